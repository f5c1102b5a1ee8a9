package wiki

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedirectTarget(t *testing.T) {
	tests := []struct {
		in     string
		target string
		ok     bool
	}{
		{"#REDIRECT [[Albert Einstein]]", "Albert Einstein", true},
		{"  #redirect:[[Go (programming language)#History|Go]]", "Go (programming language)", true},
		{"#REDIRECCIÓN [[Madrid]]", "Madrid", true},
		{"Einstein was a #REDIRECT [[physicist]]", "", false},
		{"#REDIRECT [[ ]]", "", false},
		{"plain article", "", false},
	}
	for _, tt := range tests {
		target, ok := RedirectTarget(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.target, target, tt.in)
	}
}

func TestStripMarkup(t *testing.T) {
	in := `{{Infobox person
| name = Albert Einstein
| image = {{nested|x}}
}}
'''Albert Einstein'''<ref name="bio">{{cite book|title=X}}</ref> was a German-born [[theoretical physics|theoretical physicist]]<!-- hidden -->.
[[File:Einstein 1921.jpg|thumb|Einstein in [[1921]]]]
== Early life ==
* Born in [[Ulm]] &amp; raised in [https://example.org Munich].
{| class="wikitable"
| a || b
|}
[[Category:Physicists]]
__NOTOC__`

	want := "Albert Einstein was a German-born theoretical physicist.\n" +
		"Early life\n" +
		"Born in Ulm & raised in Munich."
	assert.Equal(t, want, StripMarkup(in))
}

func TestRemoveNested(t *testing.T) {
	assert.Equal(t, "ab", removeNested("a{{x{{y}}z}}b", "{{", "}}"))
	assert.Equal(t, "a", removeNested("a{{unclosed", "{{", "}}"))
	assert.Equal(t, "plain", removeNested("plain", "{{", "}}"))
}
