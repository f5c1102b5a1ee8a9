package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"toolrelay/internal/config"
	"toolrelay/internal/domain"
)

// Constructor builds a language model from a provider entry.
type Constructor func(ctx context.Context, name string, pc config.ProviderConfig, logger *slog.Logger) (domain.LanguageModel, error)

// Factory creates and caches language models from config.
type Factory struct {
	providers    map[string]config.ProviderConfig
	logger       *slog.Logger
	constructors map[string]Constructor
	cache        map[string]domain.LanguageModel
	mu           sync.RWMutex
}

// NewFactory creates a factory with the built-in kinds registered.
func NewFactory(providers map[string]config.ProviderConfig, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Factory{
		providers:    providers,
		logger:       logger,
		constructors: make(map[string]Constructor),
		cache:        make(map[string]domain.LanguageModel),
	}
	f.registerDefaults()
	return f
}

// RegisterConstructor adds or replaces the constructor for a provider kind.
func (f *Factory) RegisterConstructor(kind string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[kind] = ctor
}

func (f *Factory) registerDefaults() {
	f.constructors["gemini"] = func(ctx context.Context, _ string, pc config.ProviderConfig, logger *slog.Logger) (domain.LanguageModel, error) {
		return NewGemini(ctx, GeminiConfig{
			APIKey:    pc.APIKey,
			Model:     pc.DefaultModel,
			MaxTokens: pc.MaxTokens,
			BaseURL:   pc.APIBase,
			Logger:    logger,
		})
	}
	f.constructors["openai"] = func(_ context.Context, name string, pc config.ProviderConfig, logger *slog.Logger) (domain.LanguageModel, error) {
		return NewOpenAI(OpenAIConfig{
			Name:      name,
			APIKey:    pc.APIKey,
			APIBase:   pc.APIBase,
			Model:     pc.DefaultModel,
			MaxTokens: pc.MaxTokens,
			Retries:   pc.Retries,
			Logger:    logger,
		}), nil
	}
	f.constructors["lmstudio"] = f.constructors["openai"]
}

// Get returns the model configured under name. Created models are cached.
func (f *Factory) Get(ctx context.Context, name string) (domain.LanguageModel, error) {
	f.mu.RLock()
	if cached, ok := f.cache[name]; ok {
		f.mu.RUnlock()
		return cached, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.cache[name]; ok {
		return cached, nil
	}

	pc, ok := f.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	if !pc.Enabled {
		return nil, fmt.Errorf("provider %s is disabled", name)
	}
	kind := pc.Kind
	if kind == "" {
		kind = name
	}
	ctor, found := f.constructors[kind]
	if !found {
		return nil, fmt.Errorf("provider %s: unsupported kind %q", name, kind)
	}

	m, err := ctor(ctx, name, pc, f.logger.With("provider", name))
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", name, err)
	}
	if pc.RequestsPerMinute > 0 {
		m = Throttle(m, NewRateLimiter(pc.Burst, pc.RequestsPerMinute))
	}
	f.cache[name] = m
	return m, nil
}

// Chain returns primary followed by any fallbacks that can be built, as a
// single model. Unusable fallbacks are logged and skipped; an unusable
// primary is an error.
func (f *Factory) Chain(ctx context.Context, primary string, fallbacks ...string) (domain.LanguageModel, error) {
	first, err := f.Get(ctx, primary)
	if err != nil {
		return nil, err
	}
	if len(fallbacks) == 0 {
		return first, nil
	}
	models := []domain.LanguageModel{first}
	for _, name := range fallbacks {
		m, err := f.Get(ctx, name)
		if err != nil {
			f.logger.Warn("skipping fallback provider", "provider", name, "error", err)
			continue
		}
		models = append(models, m)
	}
	if len(models) == 1 {
		return first, nil
	}
	return NewFailover(models, f.logger), nil
}
