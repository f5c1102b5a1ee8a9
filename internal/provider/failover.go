package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"toolrelay/internal/domain"
)

// Failover tries several language models in order, moving on when one
// fails. A cancelled or expired context stops the chain.
type Failover struct {
	models []domain.LanguageModel
	logger *slog.Logger
}

// NewFailover builds a chain from models. At least one model is required.
func NewFailover(models []domain.LanguageModel, logger *slog.Logger) *Failover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Failover{models: models, logger: logger}
}

func (f *Failover) Name() string {
	names := make([]string, len(f.models))
	for i, m := range f.models {
		names[i] = m.Name()
	}
	return "failover(" + strings.Join(names, ",") + ")"
}

func (f *Failover) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Generation, error) {
	if len(f.models) == 0 {
		return nil, fmt.Errorf("failover chain is empty")
	}
	var lastErr error
	for i, m := range f.models {
		gen, err := m.Generate(ctx, req)
		if err == nil {
			if i > 0 {
				f.logger.Info("failover: used fallback model", "provider", m.Name(), "attempt", i+1)
			}
			return gen, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
		f.logger.Warn("failover: model failed, trying next", "provider", m.Name(), "attempt", i+1, "error", err)
	}
	return nil, fmt.Errorf("all models in failover chain failed: %w", lastErr)
}
