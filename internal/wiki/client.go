// Package wiki reads article markup from a MediaWiki API and reduces it to plain text.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"toolrelay/internal/domain"
)

const (
	DefaultEndpoint = "https://en.wikipedia.org/w/api.php"
	defaultTimeout  = 10 * time.Second
	maxBodyBytes    = 8 << 20
	userAgent       = "toolrelay/0.1"
)

// Client implements domain.ArticleSource over the MediaWiki query API.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

type ClientConfig struct {
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client // optional; Timeout is ignored when set
	Logger   *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{endpoint: cfg.Endpoint, client: cfg.Client, logger: cfg.Logger}
}

type queryResponse struct {
	Query *struct {
		Pages map[string]page `json:"pages"`
	} `json:"query"`
}

type page struct {
	Title     string          `json:"title"`
	Missing   json.RawMessage `json:"missing,omitempty"`
	Invalid   json.RawMessage `json:"invalid,omitempty"`
	Revisions []revision      `json:"revisions"`
}

type revision struct {
	Content string `json:"*"`
	Slots   struct {
		Main struct {
			Content string `json:"*"`
		} `json:"main"`
	} `json:"slots"`
}

// Article returns the raw wikitext of the latest revision of title.
func (c *Client) Article(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":  {"query"},
		"format":  {"json"},
		"titles":  {title},
		"prop":    {"revisions"},
		"rvprop":  {"content"},
		"rvslots": {"main"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", domain.Transport(err, "build request")
	}
	req.Header.Set("User-Agent", userAgent)
	c.logger.Debug("fetching article", "title", title)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", domain.Transport(err, "wikipedia request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", domain.Transport(fmt.Errorf("HTTP %d", resp.StatusCode), "wikipedia request failed")
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", domain.Transport(err, "read response")
	}

	return parseArticle(body, title)
}

// parseArticle keeps "no such article" and "the API changed shape" apart.
func parseArticle(body []byte, title string) (string, error) {
	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return "", &domain.Error{Kind: domain.KindProtocol, Msg: "unexpected API response format", Err: err}
	}
	if qr.Query == nil || len(qr.Query.Pages) == 0 {
		return "", &domain.Error{Kind: domain.KindProtocol, Msg: "unexpected API response format: no query.pages"}
	}

	var p page
	for _, v := range qr.Query.Pages {
		p = v
		break
	}
	switch {
	case len(p.Missing) > 0:
		return "", domain.Dataf("article not found: %s", title)
	case len(p.Invalid) > 0:
		return "", domain.Validationf("invalid article title: %s", title)
	case len(p.Revisions) == 0:
		return "", domain.Dataf("no content for: %s", title)
	}

	rev := p.Revisions[0]
	text := rev.Content
	if text == "" {
		text = rev.Slots.Main.Content
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.Dataf("no content for: %s", title)
	}
	return text, nil
}
