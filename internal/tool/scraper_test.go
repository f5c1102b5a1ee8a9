package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolrelay/internal/domain"
)

type stubFetcher struct {
	pages map[string]string
	err   error
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return "", f.err
	}
	page, ok := f.pages[url]
	if !ok {
		return "", errors.New("404 Not Found")
	}
	return page, nil
}

const shopPage = `<html><body>
<div class="meta-wrapper">
  <span class="price"> 1.299,00 € </span>
  <h2 class="title">Portátil   Pro 14</h2>
  <div data-sku="A1"></div>
</div>
<div class="meta-wrapper">
  <div data-sku="A2"></div>
  <span class="price">99,95 €</span>
</div>
<div data-sku="ORPHAN"></div>
<div class="meta-wrapper">
  <div data-sku="A3"></div>
  <span class="price">10,00 €</span>
  <h2 class="title">Cable</h2>
</div>
<div class="meta-wrapper"><div data-sku="A4"></div></div>
<div class="meta-wrapper"><div data-sku="A5"></div></div>
</body></html>`

func shopArgs(urls ...string) map[string]any {
	shops := make([]any, 0, len(urls))
	for _, u := range urls {
		shops = append(shops, map[string]any{
			"url":                  u,
			"selector_price":       ".price",
			"selector_description": ".title",
			"selector_sku":         map[string]any{"tag": "div", "attribute": "data-sku"},
		})
	}
	return map[string]any{"shops": shops}
}

func products(t *testing.T, resp domain.Response) []map[string]any {
	t.Helper()
	content, ok := resp.Content.(map[string]any)
	require.True(t, ok, "content is %T", resp.Content)
	rows, ok := content["products"].([]map[string]any)
	require.True(t, ok, "products is %T", content["products"])
	return rows
}

func TestWebScraper_ExtractsGroupedProducts(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{"https://shop.example/a": shopPage}}
	s := NewWebScraper(WebScraperConfig{Fetcher: fetcher, Logger: testLogger()})

	resp := s.Execute(context.Background(), domain.Request{Content: shopArgs("https://shop.example/a")})
	require.True(t, resp.OK(), resp.Message)

	rows := products(t, resp)
	require.Len(t, rows, 5, "ORPHAN has no group and is skipped")
	assert.Equal(t, map[string]any{"description": "Portátil Pro 14", "price": "1.299,00 €", "sku": "A1"}, rows[0])
	assert.Equal(t, map[string]any{"description": "", "price": "99,95 €", "sku": "A2"}, rows[1])
	assert.Equal(t, "A3", rows[2]["sku"])
	assert.Equal(t, "", rows[3]["price"])
	assert.Equal(t, "scraped 5 products from 1 shops", resp.Message)
}

func TestWebScraper_LimitStopsAcrossShops(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"https://a.example": shopPage,
		"https://b.example": shopPage,
	}}
	s := NewWebScraper(WebScraperConfig{Fetcher: fetcher, Logger: testLogger()})

	args := shopArgs("https://a.example", "https://b.example")
	args["limit_results"] = true
	resp := s.Execute(context.Background(), domain.Request{Content: args})
	require.True(t, resp.OK(), resp.Message)

	// Extraction stops once more than MaxProducts records exist.
	assert.Len(t, products(t, resp), DefaultScraperPolicy().MaxProducts+1)
	assert.Equal(t, []string{"https://a.example"}, fetcher.calls)
}

func TestWebScraper_PolicyLimit(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{"https://a.example": shopPage}}
	policy := DefaultScraperPolicy()
	policy.LimitResults = true
	policy.MaxProducts = 1
	s := NewWebScraper(WebScraperConfig{Fetcher: fetcher, Policy: policy, Logger: testLogger()})

	resp := s.Execute(context.Background(), domain.Request{Content: shopArgs("https://a.example")})
	require.True(t, resp.OK())
	assert.Len(t, products(t, resp), 2)
}

func TestWebScraper_NoMatchesIsEmptySuccess(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{"https://a.example": "<html><body><p>nothing here</p></body></html>"}}
	s := NewWebScraper(WebScraperConfig{Fetcher: fetcher, Logger: testLogger()})

	resp := s.Execute(context.Background(), domain.Request{Content: shopArgs("https://a.example")})
	require.True(t, resp.OK())
	assert.Empty(t, products(t, resp))
}

func TestWebScraper_Failures(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *stubFetcher
		content any
		wantMsg string
		kind    domain.ErrorKind
	}{
		{
			name:    "fetch error",
			fetcher: &stubFetcher{err: errors.New("dial tcp: connection refused")},
			content: shopArgs("https://a.example"),
			wantMsg: "dial tcp: connection refused",
			kind:    domain.KindTransport,
		},
		{
			name:    "missing shops",
			fetcher: &stubFetcher{},
			content: map[string]any{},
			wantMsg: "missing argument: shops",
			kind:    domain.KindValidation,
		},
		{
			name:    "missing sku selector",
			fetcher: &stubFetcher{},
			content: map[string]any{"shops": []any{map[string]any{"url": "u", "selector_price": "p", "selector_description": "d"}}},
			wantMsg: "missing argument: shops[0].selector_sku",
			kind:    domain.KindValidation,
		},
		{
			name:    "invalid selector",
			fetcher: &stubFetcher{pages: map[string]string{"u": shopPage}},
			content: map[string]any{"shops": []any{map[string]any{
				"url": "u", "selector_price": "[[[", "selector_description": ".t",
				"selector_sku": map[string]any{"tag": "div", "attribute": "data-sku"},
			}}},
			wantMsg: "invalid shops[0].selector_price",
			kind:    domain.KindValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewWebScraper(WebScraperConfig{Fetcher: tt.fetcher, Logger: testLogger()})
			resp := s.Execute(context.Background(), domain.Request{Content: tt.content})
			assert.Equal(t, domain.StatusError, resp.Status)
			assert.Contains(t, resp.Message, tt.wantMsg)
			assert.Equal(t, tt.kind, resp.Kind)
		})
	}
}

func TestWebScraper_InvalidSelectorNeverFetches(t *testing.T) {
	valid := map[string]any{
		"url": "https://a.example", "selector_price": ".price", "selector_description": ".title",
		"selector_sku": map[string]any{"tag": "div", "attribute": "data-sku"},
	}
	invalid := map[string]any{
		"url": "https://b.example", "selector_price": "::::", "selector_description": ".title",
		"selector_sku": map[string]any{"tag": "div", "attribute": "data-sku"},
	}
	fetcher := &stubFetcher{pages: map[string]string{"https://a.example": shopPage, "https://b.example": shopPage}}
	s := NewWebScraper(WebScraperConfig{Fetcher: fetcher, Logger: testLogger()})

	resp := s.Execute(context.Background(), domain.Request{Content: map[string]any{"shops": []any{valid, invalid}}})
	assert.Equal(t, domain.StatusError, resp.Status)
	assert.Equal(t, domain.KindValidation, resp.Kind)
	assert.Contains(t, resp.Message, `invalid shops[1].selector_price "::::"`)
	assert.Empty(t, fetcher.calls)
}

func TestWebScraper_InvalidGroupSelectorNeverFetches(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{"https://a.example": shopPage}}
	s := NewWebScraper(WebScraperConfig{
		Fetcher: fetcher,
		Policy:  ScraperPolicy{GroupSelector: "[[["},
		Logger:  testLogger(),
	})

	resp := s.Execute(context.Background(), domain.Request{Content: shopArgs("https://a.example")})
	assert.Equal(t, domain.KindValidation, resp.Kind)
	assert.Contains(t, resp.Message, "invalid product group selector")
	assert.Empty(t, fetcher.calls)
}

func TestWebScraper_SingleShopAtTopLevel(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{"https://a.example": shopPage}}
	s := NewWebScraper(WebScraperConfig{Fetcher: fetcher, Logger: testLogger()})

	content := `{"url": "https://a.example", "selector_price": ".price", "selector_description": ".title",
		"selector_sku": {"tag": "div", "attribute": "data-sku"}}`
	resp := s.Execute(context.Background(), domain.Request{Content: content})
	require.True(t, resp.OK(), resp.Message)
	assert.Len(t, products(t, resp), 5)
}

func TestWebScraper_SchemaIsClosed(t *testing.T) {
	schema := NewWebScraper(WebScraperConfig{}).Parameters()
	assert.Equal(t, []string{"shops"}, schema.Required)
	assert.NotNil(t, schema.AdditionalProperties)

	shops, ok := schema.Properties.Get("shops")
	require.True(t, ok)
	assert.Equal(t, []string{"url", "selector_price", "selector_description", "selector_sku"}, shops.Items.Required)
}
