package tool

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolrelay/internal/buffer"
	"toolrelay/internal/domain"
)

// stubModel answers "<CODE>:<text>" for every prompt, unless told otherwise.
type stubModel struct {
	mu      sync.Mutex
	prompts []string
	err     error
	empty   bool
	block   bool
}

func (m *stubModel) Name() string { return "stub" }

func (m *stubModel) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Generation, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, req.Prompt)
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.empty {
		return &domain.Generation{Text: "  "}, nil
	}
	// Prompt: "Translate the following text to XX. ...:\n<text>"
	code := strings.TrimSuffix(strings.Fields(req.Prompt)[5], ".")
	text := req.Prompt[strings.LastIndex(req.Prompt, "\n")+1:]
	return &domain.Generation{Text: code + ":" + text}, nil
}

var sampleProducts = []any{
	map[string]any{"description": "Portátil", "price": "999,00 €", "sku": "A1"},
	map[string]any{"description": "Ratón", "price": "19,99 €", "sku": "B2"},
}

func TestTranslator_AddsOneFieldPerLanguage(t *testing.T) {
	results := buffer.New()
	model := &stubModel{}
	tr := NewTranslator(TranslatorConfig{Model: model, Results: results, Logger: testLogger()})

	resp := tr.Execute(context.Background(), domain.Request{Content: map[string]any{
		"products": sampleProducts,
		"langs":    []any{map[string]any{"lang": "English"}, map[string]any{"lang": "fr"}, map[string]any{"lang": "EN"}},
	}})
	require.True(t, resp.OK(), resp.Message)

	rows := products(t, resp)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{
		"description":    "Portátil",
		"price":          "999,00 €",
		"sku":            "A1",
		"description_EN": "EN:Portátil",
		"description_FR": "FR:Portátil",
	}, rows[0])
	assert.Equal(t, "FR:Ratón", rows[1]["description_FR"])
	assert.Len(t, model.prompts, 4, "duplicate language codes are translated once")

	stored, ok := results.Get()
	require.True(t, ok)
	assert.Len(t, stored["products"], 2)
	assert.True(t, tr.OwnsResultBuffer())
}

func TestTranslator_FallsBackToOriginal(t *testing.T) {
	for name, model := range map[string]*stubModel{
		"model error": {err: errors.New("503 overloaded")},
		"empty text":  {empty: true},
	} {
		t.Run(name, func(t *testing.T) {
			tr := NewTranslator(TranslatorConfig{Model: model, Logger: testLogger()})
			resp := tr.Execute(context.Background(), domain.Request{Content: map[string]any{
				"products": sampleProducts[:1],
				"langs":    "en, pt",
			}})
			require.True(t, resp.OK(), resp.Message)
			rows := products(t, resp)
			assert.Equal(t, "Portátil", rows[0]["description_EN"])
			assert.Equal(t, "Portátil", rows[0]["description_PT"])
		})
	}
}

func TestTranslator_TimeoutIsError(t *testing.T) {
	results := buffer.New()
	tr := NewTranslator(TranslatorConfig{
		Model:   &stubModel{block: true},
		Results: results,
		Timeout: 20 * time.Millisecond,
		Logger:  testLogger(),
	})

	resp := tr.Execute(context.Background(), domain.Request{Content: map[string]any{
		"products": sampleProducts,
		"langs":    []any{"de"},
	}})
	assert.Equal(t, domain.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "timed out")
	assert.Equal(t, domain.KindTransport, resp.Kind)

	stored, ok := results.Get()
	require.True(t, ok)
	assert.Equal(t, "ERROR", stored["status"])
}

func TestTranslator_NoProvider(t *testing.T) {
	results := buffer.New()
	tr := NewTranslator(TranslatorConfig{Results: results})

	resp := tr.Execute(context.Background(), domain.Request{Content: map[string]any{}})
	assert.Equal(t, domain.StatusError, resp.Status)
	assert.Equal(t, "no provider configured", resp.Message)

	stored, ok := results.Get()
	require.True(t, ok)
	assert.Equal(t, "no provider configured", stored["message"])
}

func TestTranslator_UnwrapsScraperPayload(t *testing.T) {
	tr := NewTranslator(TranslatorConfig{Model: &stubModel{}, Logger: testLogger()})

	resp := tr.Execute(context.Background(), domain.Request{Content: map[string]any{
		"products": map[string]any{"products": sampleProducts},
		"langs":    []any{"it"},
	}})
	require.True(t, resp.OK(), resp.Message)
	assert.Len(t, products(t, resp), 2)
}

func TestMapTranslateRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content any
		want    string
	}{
		{"no products", map[string]any{"langs": []any{"en"}}, "missing argument: products"},
		{"no langs", map[string]any{"products": sampleProducts}, "missing argument: langs"},
		{"empty langs", map[string]any{"products": sampleProducts, "langs": []any{}}, "missing argument: langs"},
		{"no description", map[string]any{"products": []any{map[string]any{"sku": "x"}}, "langs": []any{"en"}}, "missing argument: products[0].description"},
		{"bad lang entry", map[string]any{"products": sampleProducts, "langs": []any{float64(3)}}, "langs[0] must be a language name or {lang}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mapTranslateRequest(tt.content)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
}

func TestLanguageCode(t *testing.T) {
	assert.Equal(t, "EN", LanguageCode(" English "))
	assert.Equal(t, "ES", LanguageCode("español"))
	assert.Equal(t, "DE", LanguageCode("Alemán"))
	assert.Equal(t, "JA", LanguageCode("ja"))
}
