package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"toolrelay/internal/codec"
	"toolrelay/internal/domain"
)

// parseCall turns whatever the planner emitted into a ToolCall. Strings may
// carry the call inside a code fence or surrounded by prose, e.g.
//   - Pure JSON: `{"name":"send_email","arguments":{...}}`
//   - Code-fenced: ```json\n{...}\n```
//   - Prefixed text: `assistant\n{"name":"wikipedia",...}`
//   - OpenAI shape: `{"function":{"name":"...","arguments":"{...}"}}`
func parseCall(raw any) (domain.ToolCall, error) {
	switch v := raw.(type) {
	case domain.ToolCall:
		return v, nil
	case *domain.ToolCall:
		if v == nil {
			return domain.ToolCall{}, domain.Protocol(nil, "empty tool call")
		}
		return *v, nil
	case map[string]any:
		return callFromMap(v)
	case json.RawMessage:
		return parseCallText(string(v))
	case []byte:
		return parseCallText(string(v))
	case string:
		return parseCallText(v)
	case nil:
		return domain.ToolCall{}, domain.Protocol(nil, "empty tool call")
	default:
		return domain.ToolCall{}, domain.Protocol(nil, fmt.Sprintf("unsupported tool call type %T", raw))
	}
}

func parseCallText(text string) (domain.ToolCall, error) {
	text = codec.StripCodeFence(stripRolePrefix(strings.TrimSpace(text)))
	if text == "" {
		return domain.ToolCall{}, domain.Protocol(codec.ErrEmpty, "invalid tool call")
	}

	obj, err := codec.DecodeObject(text)
	if err != nil {
		// Fallback: find the object inside surrounding text.
		start, end := codec.FindJSONBounds(text)
		if start < 0 || end <= start {
			return domain.ToolCall{}, domain.Protocol(err, "invalid tool call")
		}
		if obj, err = codec.DecodeObject(text[start:end]); err != nil {
			return domain.ToolCall{}, domain.Protocol(err, "invalid tool call")
		}
	}
	return callFromMap(obj)
}

func callFromMap(m map[string]any) (domain.ToolCall, error) {
	// {"type":"function","function":{"name":...,"arguments":...}}
	if fn, ok := m["function"].(map[string]any); ok {
		call, err := callFromMap(fn)
		if id, ok := m["id"].(string); ok && call.ID == "" {
			call.ID = id
		}
		return call, err
	}

	name, _ := m["name"].(string)
	if strings.TrimSpace(name) == "" {
		return domain.ToolCall{}, domain.Protocol(nil, "tool call has no name")
	}
	id, _ := m["id"].(string)

	args, ok := m["arguments"]
	if !ok {
		args = m["parameters"]
	}
	return domain.ToolCall{ID: id, Name: name, Arguments: args}, nil
}

// decodeArguments produces the Request content for a call. Encoded strings
// are decoded as JSON, a Python literal or repaired JSON, in that order; a
// literal that is just a string stays a bare string argument.
func decodeArguments(args any) (any, error) {
	switch v := args.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case []any:
		return v, nil
	case json.RawMessage:
		return decodeArgumentText(string(v))
	case []byte:
		return decodeArgumentText(string(v))
	case string:
		return decodeArgumentText(v)
	default:
		// Typed maps and structs from Go callers: route through JSON.
		b, err := json.Marshal(v)
		if err != nil {
			return nil, domain.Protocol(err, "invalid arguments")
		}
		return decodeArgumentText(string(b))
	}
}

func decodeArgumentText(s string) (any, error) {
	if strings.TrimSpace(s) == "" {
		return map[string]any{}, nil
	}
	v, err := codec.Decode(s)
	if err != nil {
		return nil, domain.Protocol(err, "invalid arguments")
	}
	switch v.(type) {
	case map[string]any, []any, string:
		return v, nil
	default:
		return nil, domain.Protocol(nil, fmt.Sprintf("invalid arguments: expected an object or a string, got %s", codec.TypeName(v)))
	}
}

// toolAliases maps common model-generated name variations to the registered
// names. Smaller models often drop underscores or use hyphens.
var toolAliases = map[string]string{
	"webscrape":         "web_scrape",
	"web_scraper":       "web_scrape",
	"scrape":            "web_scrape",
	"priceanalyze":      "price_analyze",
	"price_analyzer":    "price_analyze",
	"analyze_prices":    "price_analyze",
	"translateproducts": "translate_products",
	"translate":         "translate_products",
	"translator":        "translate_products",
	"wiki":              "wikipedia",
	"wikipedia_search":  "wikipedia",
	"sendemail":         "send_email",
	"email":             "send_email",
	"send_mail":         "send_email",
}

// normalizeToolName lower-cases name, turns hyphens and spaces into
// underscores and resolves known aliases.
func normalizeToolName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer("-", "_", " ", "_").Replace(n)
	if mapped, ok := toolAliases[n]; ok {
		return mapped
	}
	return n
}

// stripRolePrefix removes role-name prefixes that some models leak into
// their content. Examples: "assistant\n{...}" and "Assistant: {...}".
func stripRolePrefix(content string) string {
	prefixes := []string{
		"assistant\n",
		"Assistant\n",
		"assistant:\n",
		"Assistant:\n",
		"assistant: ",
		"Assistant: ",
	}
	for _, p := range prefixes {
		if strings.HasPrefix(content, p) {
			return strings.TrimSpace(content[len(p):])
		}
	}
	return content
}
