package tool

import (
	"fmt"
	"strconv"
	"strings"

	"toolrelay/internal/codec"
	"toolrelay/internal/domain"
)

// extractStrategy is one accepted shape for a logical argument. find reports
// ok=false when content does not have that shape.
type extractStrategy struct {
	name string
	find func(content any, key string, scalar bool) (any, bool)
}

// argumentStrategies is tried in order; the first strategy that finds the
// key wins. New planner quirks are handled by appending here.
var argumentStrategies = []extractStrategy{
	{name: "top-level", find: fromTopLevel},
	{name: "kwargs", find: fromKwargs},
	{name: "bare-string", find: fromBareString},
}

func fromTopLevel(content any, key string, _ bool) (any, bool) {
	m, ok := content.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func fromKwargs(content any, key string, scalar bool) (any, bool) {
	m, ok := content.(map[string]any)
	if !ok {
		return nil, false
	}
	switch kw := m["kwargs"].(type) {
	case map[string]any:
		return fromTopLevel(kw, key, scalar)
	case string:
		decoded, err := codec.DecodeObject(kw)
		if err != nil {
			return nil, false
		}
		return fromTopLevel(decoded, key, scalar)
	default:
		return nil, false
	}
}

// fromBareString answers only for the mapper's designated scalar argument.
func fromBareString(content any, _ string, scalar bool) (any, bool) {
	s, ok := content.(string)
	if !ok || !scalar {
		return nil, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	return s, true
}

// args is a read-only view over request content for one mapper.
type args struct {
	content   any
	scalarKey string
}

// newArgs normalizes content: a string that decodes to an object is treated
// as that object, a quoted literal as the string inside it.
func newArgs(content any, scalarKey string) args {
	if s, ok := content.(string); ok {
		if v, err := codec.Decode(s); err == nil {
			switch v.(type) {
			case map[string]any, string:
				content = v
			}
		}
	}
	return args{content: content, scalarKey: scalarKey}
}

func (a args) lookup(key string) (any, bool) {
	for _, st := range argumentStrategies {
		if v, ok := st.find(a.content, key, key == a.scalarKey); ok {
			return v, true
		}
	}
	return nil, false
}

// raw reports whether content is a plain string that no strategy has claimed.
func (a args) raw() (string, bool) {
	s, ok := a.content.(string)
	return s, ok
}

func (a args) requireString(key string) (string, error) {
	v, ok := a.lookup(key)
	if !ok {
		return "", domain.Validationf("missing argument: %s", key)
	}
	s, ok := scalarString(v)
	if !ok {
		return "", domain.Validationf("argument %s must be a string, got %s", key, codec.TypeName(v))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", domain.Validationf("missing argument: %s", key)
	}
	return s, nil
}

// firstString is requireString over a list of accepted aliases for one field.
func (a args) firstString(keys ...string) (string, error) {
	for _, k := range keys {
		if _, ok := a.lookup(k); ok {
			return a.requireString(k)
		}
	}
	return a.requireString(keys[0])
}

func (a args) optionalBool(key string) bool {
	v, ok := a.lookup(key)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(b))
		return parsed
	case float64:
		return b != 0
	}
	return false
}

func (a args) requireList(key string) ([]any, error) {
	v, ok := a.lookup(key)
	if !ok {
		return nil, domain.Validationf("missing argument: %s", key)
	}
	list, ok := asList(v)
	if !ok {
		return nil, domain.Validationf("argument %s must be a list, got %s", key, codec.TypeName(v))
	}
	return list, nil
}

// asList accepts a list, a single object standing in for a one-element
// list, or a string encoding either.
func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case map[string]any:
		return []any{t}, true
	case string:
		decoded, err := codec.Decode(t)
		if err != nil {
			return nil, false
		}
		if _, isString := decoded.(string); isString {
			return nil, false
		}
		return asList(decoded)
	}
	return nil, false
}

// scalarString renders strings and numbers; anything else is rejected.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// objectField reads a required string field of a list element.
func objectField(obj map[string]any, key, path string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", domain.Validationf("missing argument: %s.%s", path, key)
	}
	s, ok := scalarString(v)
	if !ok {
		return "", domain.Validationf("argument %s.%s must be a string, got %s", path, key, codec.TypeName(v))
	}
	if strings.TrimSpace(s) == "" {
		return "", domain.Validationf("missing argument: %s.%s", path, key)
	}
	return s, nil
}

// asObject coerces a list element into an object.
func asObject(v any, path string) (map[string]any, error) {
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case string:
		m, err := codec.DecodeObject(t)
		if err == nil {
			return m, nil
		}
	}
	return nil, domain.Validationf("%s must be an object, got %s", path, codec.TypeName(v))
}

func indexPath(name string, i int) string {
	return fmt.Sprintf("%s[%d]", name, i)
}
