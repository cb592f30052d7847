package ai_fx

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"tripflow/pkg/config"
	"tripflow/pkg/utils"
)

var Module = fx.Provide(
	ProvideLLMClient,
	ProvideEmbeddingClient)

const hashEmbeddingDimensions = 256

// ProvideLLMClient picks the generation provider and wraps it with retries.
func ProvideLLMClient(cfg *config.Config) (utils.LLMClient, error) {
	var base utils.LLMClient
	provider := strings.ToLower(cfg.AI.Provider)

	log.Info().Str("provider", provider).Str("model", cfg.AI.Model).Msg("initializing LLM client")

	switch provider {
	case "openai":
		if cfg.AI.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when using OpenAI provider")
		}
		base = utils.NewOpenAIClient(cfg.AI.OpenAIAPIKey, cfg.AI.Model, cfg.AI.EmbeddingModel)
	case "gemini":
		if cfg.AI.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when using Gemini provider")
		}
		client, err := utils.NewGeminiClient(cfg.AI.GeminiAPIKey, cfg.AI.Model, cfg.AI.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		base = client
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s. Use 'openai' or 'gemini'", cfg.AI.Provider)
	}

	return utils.NewRetryingLLM(base, cfg.AI.MaxRetries, 0).WithCallTimeout(cfg.AI.Timeout), nil
}

// ProvideEmbeddingClient creates an embedding client. Without an API key for the chosen
// provider it falls back to local hashed embeddings.
func ProvideEmbeddingClient(cfg *config.Config) (utils.EmbeddingClientInterface, error) {
	provider := strings.ToLower(cfg.AI.EmbeddingProvider)

	switch {
	case provider == "openai" && cfg.AI.OpenAIAPIKey != "":
		return utils.NewOpenAIClient(cfg.AI.OpenAIAPIKey, cfg.AI.Model, cfg.AI.EmbeddingModel).
			WithEmbeddingTimeout(cfg.AI.Timeout), nil
	case provider == "gemini" && cfg.AI.GeminiAPIKey != "":
		client, err := utils.NewGeminiClient(cfg.AI.GeminiAPIKey, cfg.AI.Model, cfg.AI.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return client.WithEmbeddingTimeout(cfg.AI.Timeout), nil
	case provider == "hash", provider == "openai", provider == "gemini":
		log.Warn().Str("provider", provider).Msg("no embedding API key, using hashed embeddings")
		return utils.NewHashEmbedder(hashEmbeddingDimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s. Use 'openai', 'gemini' or 'hash'", cfg.AI.EmbeddingProvider)
	}
}
