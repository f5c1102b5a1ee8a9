package tool

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolrelay/internal/domain"
)

type stubArticles struct {
	pages map[string]string
	calls []string
}

func (s *stubArticles) Article(_ context.Context, title string) (string, error) {
	s.calls = append(s.calls, title)
	text, ok := s.pages[title]
	if !ok {
		return "", domain.Dataf("article not found: %s", title)
	}
	return text, nil
}

// redirectChain builds T0 -> T1 -> ... -> Tn where Tn holds the article body.
func redirectChain(n int, body string) *stubArticles {
	s := &stubArticles{pages: map[string]string{}}
	for i := 0; i < n; i++ {
		s.pages[title(i)] = "#REDIRECT [[" + title(i+1) + "]]"
	}
	s.pages[title(n)] = body
	return s
}

func title(i int) string { return "T" + string(rune('0'+i)) }

func TestEncyclopediaLookup_FollowsShortRedirectChain(t *testing.T) {
	src := redirectChain(2, "'''Go''' is a [[programming language|language]].")
	e := NewEncyclopediaLookup(EncyclopediaConfig{Source: src, Logger: testLogger()})

	resp := e.Execute(context.Background(), domain.Request{Content: map[string]any{"title": "T0"}})
	require.True(t, resp.OK(), resp.Message)
	assert.Equal(t, "Go is a language.", resp.Content)
	assert.Equal(t, `resolved "T0" to "T2"`, resp.Message)
	assert.Equal(t, []string{"T0", "T1", "T2"}, src.calls)
}

func TestEncyclopediaLookup_RedirectDepth(t *testing.T) {
	e := NewEncyclopediaLookup(EncyclopediaConfig{Source: redirectChain(3, "body"), Logger: testLogger()})
	resp := e.Execute(context.Background(), domain.Request{Content: map[string]any{"title": "T0"}})
	require.True(t, resp.OK(), "three redirects are followed: %s", resp.Message)

	e = NewEncyclopediaLookup(EncyclopediaConfig{Source: redirectChain(4, "body"), Logger: testLogger()})
	resp = e.Execute(context.Background(), domain.Request{Content: map[string]any{"title": "T0"}})
	assert.Equal(t, domain.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "redirect depth exceeded")
}

func TestEncyclopediaLookup_RedirectLoop(t *testing.T) {
	src := &stubArticles{pages: map[string]string{
		"A": "#REDIRECT [[B]]",
		"B": "#redirect [[a]]",
	}}
	e := NewEncyclopediaLookup(EncyclopediaConfig{Source: src, Logger: testLogger()})

	resp := e.Execute(context.Background(), domain.Request{Content: map[string]any{"title": "A"}})
	assert.Equal(t, domain.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "redirect loop")
}

func TestEncyclopediaLookup_TruncatesAndTerminates(t *testing.T) {
	body := strings.Repeat("word ", 30)
	src := &stubArticles{pages: map[string]string{"Long": body}}

	e := NewEncyclopediaLookup(EncyclopediaConfig{Source: src, Logger: testLogger()})
	resp := e.Execute(context.Background(), domain.Request{Content: map[string]any{"title": "Long"}})
	require.True(t, resp.OK())
	out := resp.Content.(string)
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Len(t, strings.Fields(out), 20)
	assert.NotContains(t, out, domain.TerminationSentinel)

	resp = e.Execute(context.Background(), domain.Request{Content: `{'title': 'Long', 'final': True}`})
	require.True(t, resp.OK())
	assert.True(t, strings.HasSuffix(resp.Content.(string), "... "+domain.TerminationSentinel))

	terminal := NewEncyclopediaLookup(EncyclopediaConfig{Source: src, Terminal: true, Logger: testLogger()})
	resp = terminal.Execute(context.Background(), domain.Request{Content: "Long"})
	require.True(t, resp.OK())
	assert.Contains(t, resp.Content, domain.TerminationSentinel)
}

func TestEncyclopediaLookup_Errors(t *testing.T) {
	src := &stubArticles{pages: map[string]string{"Empty": "{{Infobox}}<!-- nothing -->"}}
	e := NewEncyclopediaLookup(EncyclopediaConfig{Source: src, Logger: testLogger()})

	resp := e.Execute(context.Background(), domain.Request{Content: map[string]any{"title": "Missing"}})
	assert.Equal(t, domain.StatusError, resp.Status)
	assert.Equal(t, "article not found: Missing", resp.Message)

	resp = e.Execute(context.Background(), domain.Request{Content: map[string]any{"title": "Empty"}})
	assert.Equal(t, "no content for: Empty", resp.Message)

	resp = e.Execute(context.Background(), domain.Request{Content: map[string]any{}})
	assert.Equal(t, "missing argument: title", resp.Message)
	assert.Len(t, src.calls, 2)

	resp = NewEncyclopediaLookup(EncyclopediaConfig{}).Execute(context.Background(), domain.Request{Content: "Go"})
	assert.Equal(t, "no article source configured", resp.Message)
}

func TestMapLookupRequest_Aliases(t *testing.T) {
	for _, content := range []any{
		map[string]any{"query": "Go"},
		map[string]any{"input_data": "Go"},
		map[string]any{"kwargs": map[string]any{"title": "Go"}},
		"Go",
		`"Go"`,
	} {
		req, err := mapLookupRequest(content)
		require.NoError(t, err, "%v", content)
		assert.Equal(t, "Go", req.Title, "%v", content)
	}
}
