package utils

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/api/option"
)

// GeminiClient implements LLMClient and EmbeddingClientInterface using Google's Gemini models
type GeminiClient struct {
	client         *genai.Client
	model          string
	embeddingModel string
	embedTimeout   time.Duration
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(apiKey, model, embeddingModel string) (*GeminiClient, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	if embeddingModel == "" {
		embeddingModel = "text-embedding-004"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
	}, nil
}

func (c *GeminiClient) GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(opts.Temperature)
	m.SetTopP(0.8)
	m.SetTopK(20)
	if opts.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(int32(opts.MaxOutputTokens))
	}
	if opts.JSON {
		m.ResponseMIMEType = "application/json"
	}

	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	recordAIMetric(ctx, "gemini", c.model, "generate", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated by Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// WithEmbeddingTimeout bounds each embedding call. Zero keeps the default.
func (c *GeminiClient) WithEmbeddingTimeout(d time.Duration) *GeminiClient {
	c.embedTimeout = d
	return c
}

func (c *GeminiClient) GetEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	em := c.client.EmbeddingModel(c.embeddingModel)

	ctx, cancel := withTimeout(ctx, embeddingTimeout(c.embedTimeout))
	defer cancel()

	start := time.Now()
	res, err := em.EmbedContent(ctx, genai.Text(text))
	recordAIMetric(ctx, "gemini", c.embeddingModel, "embed", time.Since(start), err)
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return pgvector.Vector{}, fmt.Errorf("gemini returned empty embedding")
	}
	return pgvector.NewVector(res.Embedding.Values), nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
