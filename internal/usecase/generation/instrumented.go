// Package generation decorates answer generators with throttling and logging.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/throttle"
)

// InstrumentedGenerator wraps Generator with call throttling and logging.
// Provider metrics are recorded by the transport packages.
type InstrumentedGenerator struct {
	inner    domain.Generator
	provider string
	model    string
	gate     *throttle.Gate
	logger   *zap.Logger
}

// NewInstrumentedGenerator wraps a generator. A nil gate leaves calls unbounded.
func NewInstrumentedGenerator(
	inner domain.Generator, provider, model string,
	gate *throttle.Gate, logger *zap.Logger,
) *InstrumentedGenerator {
	return &InstrumentedGenerator{
		inner:    inner,
		provider: provider,
		model:    model,
		gate:     gate,
		logger:   logger,
	}
}

// Generate delegates to the inner generator through the gate.
// Errors keep their ErrGenerationFailed classification; gate failures are wrapped in it.
func (g *InstrumentedGenerator) Generate(
	ctx context.Context, question, contextText string,
) (domain.GenerationResult, error) {
	start := time.Now()

	var result domain.GenerationResult
	err := g.gate.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = g.inner.Generate(ctx, question, contextText)
		return innerErr
	})

	duration := time.Since(start)

	if err != nil {
		g.logger.Error("Generation request failed",
			zap.String("provider", g.provider),
			zap.String("model", g.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		if errors.Is(err, domain.ErrGenerationFailed) {
			return domain.GenerationResult{}, fmt.Errorf("generate: %w", err)
		}
		return domain.GenerationResult{}, fmt.Errorf("generate: %w: %w", domain.ErrGenerationFailed, err)
	}

	g.logger.Debug("Generation request completed",
		zap.String("provider", g.provider),
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens),
	)

	return result, nil
}

// HealthCheck forwards to the inner generator through the gate
// when it supports health checks.
func (g *InstrumentedGenerator) HealthCheck(ctx context.Context) error {
	hc, ok := g.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	return g.gate.Do(ctx, hc.HealthCheck)
}
