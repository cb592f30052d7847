package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements LLMClient and EmbeddingClientInterface on the OpenAI API.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel openai.EmbeddingModel
	embedTimeout   time.Duration
}

func NewOpenAIClient(apiKey, model, embeddingModel string) *OpenAIClient {
	return newOpenAIClient(openai.DefaultConfig(apiKey), model, embeddingModel)
}

func newOpenAIClient(cfg openai.ClientConfig, model, embeddingModel string) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	em := openai.SmallEmbedding3
	if embeddingModel != "" {
		em = openai.EmbeddingModel(embeddingModel)
	}
	return &OpenAIClient{
		client:         openai.NewClientWithConfig(cfg),
		model:          model,
		embeddingModel: em,
	}
}

func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxOutputTokens,
	}
	if opts.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	recordAIMetric(ctx, "openai", c.model, "generate", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// WithEmbeddingTimeout bounds each embedding call. Zero keeps the default.
func (c *OpenAIClient) WithEmbeddingTimeout(d time.Duration) *OpenAIClient {
	c.embedTimeout = d
	return c
}

func (c *OpenAIClient) GetEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	ctx, cancel := withTimeout(ctx, embeddingTimeout(c.embedTimeout))
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.embeddingModel,
	})
	recordAIMetric(ctx, "openai", string(c.embeddingModel), "embed", time.Since(start), err)
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("openai embedding failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return pgvector.Vector{}, fmt.Errorf("openai returned no embedding")
	}
	return pgvector.NewVector(resp.Data[0].Embedding), nil
}
