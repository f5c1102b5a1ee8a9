package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"toolrelay/internal/domain"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini implements domain.LanguageModel on the Google Gemini API.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	// BaseURL overrides the API endpoint; empty uses Google's.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = SharedHTTPClient(defaultHTTPTimeout)
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Gemini{client: gc, model: cfg.Model, maxTokens: cfg.MaxTokens, logger: cfg.Logger}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Generation, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	config := &genai.GenerateContentConfig{}
	if g.maxTokens > 0 {
		config.MaxOutputTokens = int32(g.maxTokens)
	}
	if req.Context != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.Context}},
		}
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), config)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if resp.ModelVersion != "" {
		model = resp.ModelVersion
	}

	latency := time.Since(start)
	g.logger.Debug("generation done", "provider", "gemini", "model", model, "latency", latency)
	return &domain.Generation{
		Text:      strings.TrimSpace(resp.Text()),
		Model:     model,
		LatencyMs: latency.Milliseconds(),
	}, nil
}
