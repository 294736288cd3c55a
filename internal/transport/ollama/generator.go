package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/prompt"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// Generator answers questions through the Ollama chat endpoint.
type Generator struct {
	client      *api.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewGenerator creates an Ollama chat generator.
func NewGenerator(cfg *Config) (*Generator, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Generator{client: c, model: cfg.Model, temperature: cfg.Temperature, logger: cfg.Logger}, nil
}

// Generate implements domain.Generator. Streaming is disabled; the callback still
// accumulates content in case the server sends partial messages.
func (g *Generator) Generate(ctx context.Context, question, contextText string) (domain.GenerationResult, error) {
	stream := false
	req := &api.ChatRequest{
		Model: g.model,
		Messages: []api.Message{
			{Role: "system", Content: prompt.SystemInstruction},
			{Role: "user", Content: prompt.Build(question, contextText)},
		},
		Stream:  &stream,
		Options: map[string]any{"temperature": g.temperature},
	}

	var (
		answer strings.Builder
		result domain.GenerationResult
	)

	start := time.Now()

	err := g.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		answer.WriteString(resp.Message.Content)
		if resp.Done {
			result.PromptTokens = resp.PromptEvalCount
			result.CompletionTokens = resp.EvalCount
		}
		return nil
	})

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(providerName, g.model, "error").Inc()
		return domain.GenerationResult{}, wrapError("generation", err, domain.ErrGenerationFailed)
	}
	if answer.Len() == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(providerName, g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("empty chat response: %w", domain.ErrGenerationFailed)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(providerName, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(providerName, g.model).Observe(duration.Seconds())

	result.Text = answer.String()
	return result, nil
}

// HealthCheck pings the Ollama server.
func (g *Generator) HealthCheck(ctx context.Context) error {
	return heartbeat(ctx, g.client)
}
