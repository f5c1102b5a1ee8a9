package domain

import "context"

// LanguageModel is a text-generation backend (Gemini, LM Studio, ...).
type LanguageModel interface {
	Name() string
	Generate(ctx context.Context, req GenerationRequest) (*Generation, error)
}

type GenerationRequest struct {
	Prompt  string
	Context string // optional system/context text
	Model   string // optional override of the provider default
}

type Generation struct {
	Text      string
	Model     string
	LatencyMs int64
}

// PageFetcher downloads the raw markup of a page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ArticleSource returns the raw wiki markup of an encyclopedia article.
type ArticleSource interface {
	Article(ctx context.Context, title string) (string, error)
}

// Email is an outgoing plain-text message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers an Email. The returned error text is shown to callers as-is.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}
