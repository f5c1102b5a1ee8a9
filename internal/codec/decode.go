// Package codec decodes tool-call payloads produced by language models, which
// are frequently not quite JSON.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmpty is returned when there is nothing to decode.
var ErrEmpty = errors.New("empty payload")

// Decode parses s as valid JSON, then as a Python literal, then as JSON with
// invalid escape sequences kept as literal backslashes. The first parser that
// accepts the whole input wins.
func Decode(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmpty
	}

	var v any
	jsonErr := json.Unmarshal([]byte(s), &v)
	if jsonErr == nil {
		return v, nil
	}

	v, litErr := ParsePythonLiteral(s)
	if litErr == nil {
		return v, nil
	}

	if fixed := SanitizeJSONEscapes(s); fixed != s {
		if err := json.Unmarshal([]byte(fixed), &v); err == nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("not JSON (%v) and not a Python literal (%v)", jsonErr, litErr)
}

// DecodeObject is Decode restricted to objects.
func DecodeObject(s string) (map[string]any, error) {
	v, err := Decode(s)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %s", TypeName(v))
	}
	return m, nil
}

// TypeName describes a decoded value for error messages.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// SanitizeJSONEscapes escapes stray backslashes inside JSON strings so that
// invalid sequences such as \% or C:\d decode to the text the model wrote.
// Valid escapes (\", \\, \/, \b, \f, \n, \r, \t, \uXXXX) are untouched.
func SanitizeJSONEscapes(s string) string {
	var buf strings.Builder
	buf.Grow(len(s) + 8)
	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '"' {
			inString = !inString
			buf.WriteByte(ch)
			continue
		}
		if inString && ch == '\\' && i+1 < len(s) {
			next := s[i+1]
			switch {
			case strings.IndexByte(`"\/bfnrt`, next) >= 0,
				next == 'u' && isHex4(s[i+2:]):
				buf.WriteByte(ch)
				buf.WriteByte(next)
				i++
			default:
				buf.WriteString(`\\`)
			}
			continue
		}
		buf.WriteByte(ch)
	}
	return buf.String()
}

func isHex4(s string) bool {
	if len(s) < 4 {
		return false
	}
	for i := range 4 {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// FindJSONBounds locates the first balanced JSON object ({}) or array ([]) in s.
// Returns the start index and end+1 index, or (-1, -1) if not found.
func FindJSONBounds(s string) (int, int) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return -1, -1
	}

	openChar := s[start]
	closeChar := byte('}')
	if openChar == '[' {
		closeChar = ']'
	}

	depth := 0
	var quote byte
	for i := start; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
		case openChar:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return start, i + 1
			}
		}
	}
	return -1, -1
}

// StripCodeFence removes a surrounding markdown code fence, if any.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) >= 3 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
	}
	return s
}
