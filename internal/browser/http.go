// Package browser fetches shop pages, either over plain HTTP or rendered in
// headless Chrome.
package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"toolrelay/internal/domain"
)

const (
	DefaultTimeout = 15 * time.Second
	// UserAgent is a desktop browser string; several shops refuse obvious bots.
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	acceptLanguage = "es-ES,es;q=0.9,en;q=0.8"
	maxPageBytes   = 10 << 20
)

// HTTPFetcher downloads pages with a plain GET.
type HTTPFetcher struct {
	client *http.Client
	logger *slog.Logger
}

type HTTPFetcherConfig struct {
	Timeout time.Duration
	Client  *http.Client // optional; Timeout is ignored when set
	Logger  *slog.Logger
}

func NewHTTPFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &HTTPFetcher{client: cfg.Client, logger: cfg.Logger}
}

// Fetch returns the body of url. Any non-2xx status is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", domain.Validationf("invalid shop url %q: %v", url, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", acceptLanguage)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", domain.Transport(err, "")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", domain.Transport(fmt.Errorf("GET %s: %s", url, resp.Status), "")
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", domain.Transport(err, "read "+url)
	}
	f.logger.Debug("fetched page", "url", url, "status", resp.StatusCode, "bytes", len(body), "took", time.Since(start))
	return string(body), nil
}
