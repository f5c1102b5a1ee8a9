package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"toolrelay/internal/domain"
)

// OpenAI implements domain.LanguageModel for OpenAI-compatible servers,
// LM Studio included.
type OpenAI struct {
	name      string
	apiKey    string
	apiBase   string
	model     string
	maxTokens int
	client    *http.Client
	retry     retryPolicy
	logger    *slog.Logger
}

type OpenAIConfig struct {
	Name      string // reported by Name; defaults to "openai"
	APIKey    string
	APIBase   string
	Model     string
	MaxTokens int
	Retries   int // transient failures re-sent; 0 sends once
	Client    *http.Client
	Logger    *slog.Logger
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "http://localhost:1234/v1"
	}
	if cfg.Client == nil {
		cfg.Client = SharedHTTPClient(defaultHTTPTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &OpenAI{
		name:      cfg.Name,
		apiKey:    cfg.APIKey,
		apiBase:   strings.TrimRight(cfg.APIBase, "/"),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		client:    cfg.Client,
		retry:     retryPolicy{attempts: max(cfg.Retries, 0), base: defaultRetryBase},
		logger:    cfg.Logger,
	}
}

func (o *OpenAI) Name() string { return o.name }

type oaiRequest struct {
	Model     string       `json:"model,omitempty"`
	Messages  []oaiMessage `json:"messages"`
	MaxTokens int          `json:"max_tokens,omitempty"`
	Stream    bool         `json:"stream"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponse struct {
	Model   string      `json:"model"`
	Choices []oaiChoice `json:"choices"`
}

// oaiChoice covers both chat replies (message.content) and legacy
// completion replies (text), which older local servers still return.
type oaiChoice struct {
	Message      oaiMessage `json:"message"`
	Text         string     `json:"text"`
	FinishReason string     `json:"finish_reason"`
}

func (o *OpenAI) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Generation, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	msgs := make([]oaiMessage, 0, 2)
	if req.Context != "" {
		msgs = append(msgs, oaiMessage{Role: "system", Content: req.Context})
	}
	msgs = append(msgs, oaiMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(oaiRequest{Model: model, Messages: msgs, MaxTokens: o.maxTokens})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	start := time.Now()
	resp, err := o.retry.do(ctx, o.client, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiBase+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if o.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
		}
		return httpReq, nil
	}, o.logger)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", o.name, err)
	}
	defer resp.Body.Close()

	var out oaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s decode: %w", o.name, err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%s: response has no choices", o.name)
	}

	choice := out.Choices[0]
	text := choice.Message.Content
	if text == "" {
		text = choice.Text
	}
	if out.Model != "" {
		model = out.Model
	}

	latency := time.Since(start)
	o.logger.Debug("generation done", "provider", o.name, "model", model, "latency", latency, "finish", choice.FinishReason)
	return &domain.Generation{
		Text:      strings.TrimSpace(text),
		Model:     model,
		LatencyMs: latency.Milliseconds(),
	}, nil
}
