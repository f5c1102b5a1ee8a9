package tool

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolrelay/internal/domain"
)

func TestAnalyzePrices(t *testing.T) {
	stats, err := AnalyzePrices([]PricePage{
		{URL: "a", Content: "Precio 19,99 € antes 25,00 €"},
		{URL: "b", Content: "Oferta: 5,01. Envío 3,5 no cuenta"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Count)
	assert.InDelta(t, 5.01, stats.Min, 1e-9)
	assert.InDelta(t, 25.00, stats.Max, 1e-9)
	assert.InDelta(t, (19.99+25.00+5.01)/3, stats.Mean, 1e-9)
	assert.LessOrEqual(t, stats.Min, stats.Mean)
	assert.LessOrEqual(t, stats.Mean, stats.Max)
	require.Len(t, stats.Details, 2)
	assert.Equal(t, []float64{19.99, 25}, stats.Details[0].Prices)
}

func TestAnalyzePrices_NoData(t *testing.T) {
	_, err := AnalyzePrices(nil)
	assert.EqualError(t, err, "no prices found")
	assert.Equal(t, domain.KindData, domain.KindOf(err))

	_, err = AnalyzePrices([]PricePage{{URL: "a", Content: "sin precios, 12.5"}})
	require.Error(t, err)
	assert.Equal(t, domain.KindData, domain.KindOf(err))
	assert.EqualError(t, err, "no prices found")
}

func TestPriceStats_Summary(t *testing.T) {
	stats, err := AnalyzePrices([]PricePage{{Content: "10,00 20,00 30,10"}})
	require.NoError(t, err)

	summary := stats.Summary()
	assert.Contains(t, summary, "3")
	assert.Contains(t, summary, "10.00")
	assert.Contains(t, summary, "30.10")
	assert.Contains(t, summary, "20.03")
}

func TestPriceAnalyzer_Execute(t *testing.T) {
	p := NewPriceAnalyzer(testLogger())

	tests := []struct {
		name      string
		content   any
		wantCount int
	}{
		{
			name: "pages list",
			content: map[string]any{"pages": []any{
				map[string]any{"url": "a", "content": "1,00 y 2,00"},
				map[string]any{"url": "b", "content": "3,00"},
			}},
			wantCount: 3,
		},
		{
			name:      "pages as encoded strings",
			content:   map[string]any{"pages": []any{`{"url": "a", "content": "4,50"}`, "raw text 7,25"}},
			wantCount: 2,
		},
		{
			name:      "bare text",
			content:   "precio final 12,30 €",
			wantCount: 1,
		},
		{
			name:      "kwargs",
			content:   map[string]any{"kwargs": `{'pages': [{'url': 'a', 'content': '8,80'}]}`},
			wantCount: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := p.Execute(context.Background(), domain.Request{Content: tt.content})
			require.True(t, resp.OK(), resp.Message)
			content := resp.Content.(map[string]any)
			assert.Equal(t, tt.wantCount, content["count"])
			assert.NotEmpty(t, content["summary"])
		})
	}
}

func TestPriceAnalyzer_DoesNotEndWorkflow(t *testing.T) {
	pages := make([]any, 0, 12)
	for i := range 12 {
		pages = append(pages, map[string]any{"url": fmt.Sprintf("https://shop%d.example", i), "content": "19,99"})
	}
	resp := NewPriceAnalyzer(testLogger()).Execute(context.Background(), domain.Request{Content: map[string]any{"pages": pages}})
	require.True(t, resp.OK(), resp.Message)

	summary := resp.Content.(map[string]any)["summary"].(string)
	assert.NotContains(t, summary, domain.TerminationSentinel)
	assert.NotContains(t, resp.Message, domain.TerminationSentinel)
	assert.Greater(t, len(strings.Fields(summary)), 20, "summary is not cut to 20 words")
	assert.Contains(t, summary, "https://shop11.example")
}

func TestPriceAnalyzer_Errors(t *testing.T) {
	p := NewPriceAnalyzer(nil)

	resp := p.Execute(context.Background(), domain.Request{Content: map[string]any{"pages": []any{}}})
	assert.Equal(t, domain.StatusError, resp.Status)
	assert.Equal(t, "no prices found", resp.Message)
	assert.Equal(t, domain.KindData, resp.Kind)

	resp = p.Execute(context.Background(), domain.Request{Content: map[string]any{"pages": []any{map[string]any{"url": "a"}}}})
	assert.Equal(t, "missing argument: pages[0].content", resp.Message)

	resp = p.Execute(context.Background(), domain.Request{Content: map[string]any{}})
	assert.Equal(t, "missing argument: pages", resp.Message)
}
