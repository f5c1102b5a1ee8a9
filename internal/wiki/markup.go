package wiki

import (
	"html"
	"regexp"
	"strings"
)

var (
	redirectPattern = regexp.MustCompile(`(?i)^\s*#\s*(?:redirect|redirección|redireccion)\s*:?\s*\[\[([^\]|#]+)(?:#[^\]|]*)?(?:\|[^\]]*)?\]\]`)

	commentPattern   = regexp.MustCompile(`(?s)<!--.*?-->`)
	refPattern       = regexp.MustCompile(`(?is)<ref[^>/]*>.*?</ref>|<ref[^>]*/>`)
	blockTagPattern  = regexp.MustCompile(`(?is)<(gallery|math|score|syntaxhighlight|source|timeline|nowiki)[^>]*>.*?</(gallery|math|score|syntaxhighlight|source|timeline|nowiki)>`)
	tagPattern       = regexp.MustCompile(`(?s)</?[a-zA-Z][^>]*>`)
	fileLinkPattern  = regexp.MustCompile(`(?i)\[\[(?:file|image|archivo|imagen|category|categoría):[^\[\]]*(?:\[\[[^\[\]]*\]\][^\[\]]*)*\]\]`)
	pipedLinkPattern = regexp.MustCompile(`\[\[[^\[\]|]*\|([^\[\]]*)\]\]`)
	plainLinkPattern = regexp.MustCompile(`\[\[([^\[\]|]*)\]\]`)
	extLinkPattern   = regexp.MustCompile(`\[(?:https?:)?//[^\s\]]+\s+([^\]]*)\]`)
	bareExtPattern   = regexp.MustCompile(`\[(?:https?:)?//[^\s\]]+\]`)
	headingPattern   = regexp.MustCompile(`(?m)^\s*=+\s*(.*?)\s*=+\s*$`)
	emphasisPattern  = regexp.MustCompile(`'{2,5}`)
	listPattern      = regexp.MustCompile(`(?m)^[*#:;]+\s*`)
	rulePattern      = regexp.MustCompile(`(?m)^-{4,}\s*$`)
	magicWordPattern = regexp.MustCompile(`__[A-Z]+__`)
)

// RedirectTarget reports the target title when text is a redirect page.
func RedirectTarget(text string) (string, bool) {
	m := redirectPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	target := strings.TrimSpace(m[1])
	if target == "" {
		return "", false
	}
	return target, true
}

// StripMarkup reduces wikitext to readable plain text: templates, tables,
// references, comments, files and categories are dropped; links keep their
// label; emphasis and heading markers are removed.
func StripMarkup(text string) string {
	s := commentPattern.ReplaceAllString(text, "")
	s = refPattern.ReplaceAllString(s, "")
	s = blockTagPattern.ReplaceAllString(s, "")
	s = removeNested(s, "{{", "}}")
	s = removeNested(s, "{|", "|}")
	s = fileLinkPattern.ReplaceAllString(s, "")
	s = pipedLinkPattern.ReplaceAllString(s, "$1")
	s = plainLinkPattern.ReplaceAllString(s, "$1")
	s = extLinkPattern.ReplaceAllString(s, "$1")
	s = bareExtPattern.ReplaceAllString(s, "")
	s = tagPattern.ReplaceAllString(s, "")
	s = headingPattern.ReplaceAllString(s, "$1")
	s = emphasisPattern.ReplaceAllString(s, "")
	s = rulePattern.ReplaceAllString(s, "")
	s = listPattern.ReplaceAllString(s, "")
	s = magicWordPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return collapseSpace(s)
}

// removeNested drops every balanced open...close span, including nested ones.
// An unbalanced opener swallows the rest of the text, as MediaWiki would
// render it broken anyway.
func removeNested(s, open, close string) string {
	if !strings.Contains(s, open) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	depth := 0
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], open):
			depth++
			i += len(open)
		case depth > 0 && strings.HasPrefix(s[i:], close):
			depth--
			i += len(close)
		default:
			if depth == 0 {
				sb.WriteByte(s[i])
			}
			i++
		}
	}
	return sb.String()
}

func collapseSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
