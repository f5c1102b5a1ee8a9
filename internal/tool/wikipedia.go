package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/invopop/jsonschema"

	"toolrelay/internal/domain"
	"toolrelay/internal/wiki"
)

const (
	defaultMaxRedirects = 3
	defaultSummaryWords = 20
)

type lookupRequest struct {
	Title string
	Final bool
}

// EncyclopediaLookup fetches an article, follows redirects a bounded number
// of times and returns a short plain-text extract.
type EncyclopediaLookup struct {
	source       domain.ArticleSource
	maxRedirects int
	maxWords     int
	terminal     bool
	logger       *slog.Logger
}

type EncyclopediaConfig struct {
	Source       domain.ArticleSource
	MaxRedirects int
	MaxWords     int
	// Terminal appends the termination sentinel to every successful lookup.
	Terminal bool
	Logger   *slog.Logger
}

func NewEncyclopediaLookup(cfg EncyclopediaConfig) *EncyclopediaLookup {
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = defaultSummaryWords
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &EncyclopediaLookup{
		source:       cfg.Source,
		maxRedirects: cfg.MaxRedirects,
		maxWords:     cfg.MaxWords,
		terminal:     cfg.Terminal,
		logger:       cfg.Logger,
	}
}

func (e *EncyclopediaLookup) Name() string { return "wikipedia" }
func (e *EncyclopediaLookup) Description() string {
	return "Looks up an English Wikipedia article by title and returns a short plain-text extract."
}

func (e *EncyclopediaLookup) Parameters() *jsonschema.Schema {
	return ObjectSchema([]Param{
		StringParam("title", "Article title, e.g. \"Albert Einstein\""),
		BoolParam("final", "Set when this lookup is the last step of the task"),
	}, "title")
}

func (e *EncyclopediaLookup) Execute(ctx context.Context, req domain.Request) domain.Response {
	in, err := mapLookupRequest(req.Content)
	if err != nil {
		return domain.Failure(err)
	}
	if e.source == nil {
		return domain.Failure(domain.Validationf("no article source configured"))
	}

	raw, resolved, err := e.resolve(ctx, in.Title)
	if err != nil {
		return domain.Failure(err)
	}
	text := wiki.StripMarkup(raw)
	if text == "" {
		return domain.Failure(domain.Dataf("no content for: %s", resolved))
	}

	out := truncateWords(text, e.maxWords)
	if in.Final || e.terminal {
		out += " " + domain.TerminationSentinel
	}
	msg := domain.DefaultMessage
	if resolved != in.Title {
		msg = fmt.Sprintf("resolved %q to %q", in.Title, resolved)
	}
	return domain.SuccessWithMessage(out, msg)
}

// resolve fetches title and chases redirects. Following more than
// maxRedirects redirects, or revisiting a title, is an error.
func (e *EncyclopediaLookup) resolve(ctx context.Context, title string) (string, string, error) {
	visited := map[string]bool{normalizeTitle(title): true}
	for hops := 0; ; hops++ {
		raw, err := e.source.Article(ctx, title)
		if err != nil {
			return "", title, err
		}
		target, ok := wiki.RedirectTarget(raw)
		if !ok {
			return raw, title, nil
		}
		if hops >= e.maxRedirects {
			return "", title, domain.Dataf("redirect depth exceeded (max %d) at %q", e.maxRedirects, title)
		}
		key := normalizeTitle(target)
		if visited[key] {
			return "", title, domain.Dataf("redirect loop detected at %q", target)
		}
		visited[key] = true
		e.logger.Debug("following redirect", "from", title, "to", target, "hop", hops+1)
		title = target
	}
}

func normalizeTitle(t string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(t), "_", " "))
}

// truncateWords keeps the first n words and marks the cut with "...".
func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}

func mapLookupRequest(content any) (lookupRequest, error) {
	a := newArgs(content, "title")
	title, err := a.firstString("title", "query", "topic", "input_data")
	if err != nil {
		return lookupRequest{}, err
	}
	return lookupRequest{Title: title, Final: a.optionalBool("final")}, nil
}
