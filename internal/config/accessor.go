package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// GetByPath resolves a dotted path of JSON field names ("smtp.port",
// "providers.gemini.kind", "translator.fallbacks.0") against cfg.
func GetByPath(cfg *Config, path string) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	var node any
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	walked := make([]string, 0, strings.Count(path, ".")+1)
	for key := range strings.SplitSeq(path, ".") {
		walked = append(walked, key)
		if node, err = step(node, key); err != nil {
			return nil, fmt.Errorf("%s: %w", strings.Join(walked, "."), err)
		}
	}
	return node, nil
}

func step(node any, key string) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		child, ok := v[key]
		if !ok {
			return nil, fmt.Errorf("key not found")
		}
		return child, nil
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(v) {
			return nil, fmt.Errorf("index %q out of range (len %d)", key, len(v))
		}
		return v[i], nil
	default:
		return nil, fmt.Errorf("%T has no field %q", node, key)
	}
}

// Sanitize returns a copy of cfg safe to print: provider and gateway keys
// keep their first and last four characters, the SMTP password is hidden.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	out.Providers = maps.Clone(cfg.Providers)
	out.Translator.Fallbacks = append([]string(nil), cfg.Translator.Fallbacks...)

	for name, pc := range out.Providers {
		pc.APIKey = maskString(pc.APIKey)
		out.Providers[name] = pc
	}
	out.Gateway.APIKey = maskString(out.Gateway.APIKey)
	if out.SMTP.Password != "" {
		out.SMTP.Password = "***"
	}
	return &out
}

func maskString(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "***"
	default:
		return s[:4] + "****" + s[len(s)-4:]
	}
}
