package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// GenerateOptions are the generation parameters sent along with a prompt.
type GenerateOptions struct {
	Temperature     float32
	MaxOutputTokens int
	JSON            bool
	Timeout         time.Duration
}

// LLMClient sends a prompt and returns the raw model text.
type LLMClient interface {
	GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// EmbeddingClientInterface turns text into a vector for the POI index.
type EmbeddingClientInterface interface {
	GetEmbedding(ctx context.Context, text string) (pgvector.Vector, error)
}

// RetryingLLM retries transient provider failures with exponential backoff.
type RetryingLLM struct {
	next       LLMClient
	maxRetries uint64
	initial    time.Duration
	timeout    time.Duration
}

func NewRetryingLLM(next LLMClient, maxRetries uint64, initial time.Duration) *RetryingLLM {
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	return &RetryingLLM{next: next, maxRetries: maxRetries, initial: initial}
}

// WithCallTimeout sets the per-attempt timeout used when a call does not carry its own.
func (r *RetryingLLM) WithCallTimeout(d time.Duration) *RetryingLLM {
	r.timeout = d
	return r
}

func (r *RetryingLLM) GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = r.timeout
	}
	var out string
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.initial
	policy.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		text, err := r.next.GenerateText(ctx, prompt, opts)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return backoff.Permanent(err)
			}
			log.Warn().Err(err).Int("attempt", attempt).Msg("LLM call failed")
			return err
		}
		out = text
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, r.maxRetries), ctx))
	if err != nil {
		return "", NewTransientError("llm generation", err)
	}
	return out, nil
}

type aiMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
}

var (
	aiMetricsOnce sync.Once
	aiMetricsInst *aiMetrics
)

func ensureAIMetrics() *aiMetrics {
	aiMetricsOnce.Do(func() {
		meter := otel.Meter("tripflow/ai")
		count, err := meter.Int64Counter("ai.request.count",
			metric.WithDescription("Number of LLM/embedding requests"))
		if err != nil {
			return
		}
		duration, err := meter.Float64Histogram("ai.request.duration",
			metric.WithDescription("LLM/embedding request duration in milliseconds"),
			metric.WithUnit("ms"))
		if err != nil {
			return
		}
		errs, err := meter.Int64Counter("ai.request.errors",
			metric.WithDescription("Number of failed LLM/embedding requests"))
		if err != nil {
			return
		}
		aiMetricsInst = &aiMetrics{requestCount: count, requestDuration: duration, requestErrors: errs}
	})
	return aiMetricsInst
}

func recordAIMetric(ctx context.Context, provider, model, op string, duration time.Duration, err error) {
	m := ensureAIMetrics()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
		attribute.String("ai.operation", op),
	)
	m.requestCount.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.requestErrors.Add(ctx, 1, attrs)
	}
}

const defaultEmbeddingTimeout = 30 * time.Second

func embeddingTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultEmbeddingTimeout
	}
	return d
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 60 * time.Second
	}
	return context.WithTimeout(ctx, d)
}
