package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for toolrelay.
type Config struct {
	General    GeneralConfig             `json:"general" yaml:"general"`
	Providers  map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Translator TranslatorConfig          `json:"translator" yaml:"translator"`
	Scraper    ScraperConfig             `json:"scraper" yaml:"scraper"`
	Wiki       WikiConfig                `json:"wiki" yaml:"wiki"`
	SMTP       SMTPConfig                `json:"smtp" yaml:"smtp"`
	Gateway    GatewayConfig             `json:"gateway" yaml:"gateway"`
	Metrics    MetricsConfig             `json:"metrics" yaml:"metrics"`
	Tracing    TracingConfig             `json:"tracing" yaml:"tracing"`
}

type GeneralConfig struct {
	LogLevel  string `json:"logLevel" yaml:"logLevel"`
	LogFormat string `json:"logFormat" yaml:"logFormat"` // "text" | "json"
	LogFile   string `json:"logFile,omitempty" yaml:"logFile,omitempty"`
}

// ProviderConfig configures one language model backend. Kind selects the
// client: "gemini" or "openai" (any OpenAI-compatible server, LM Studio included).
type ProviderConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	Kind         string `json:"kind" yaml:"kind"`
	APIBase      string `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
	APIKey       string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	DefaultModel string `json:"defaultModel,omitempty" yaml:"defaultModel,omitempty"`
	MaxTokens    int    `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	// RequestsPerMinute throttles calls to the provider; 0 disables throttling.
	RequestsPerMinute float64 `json:"requestsPerMinute,omitempty" yaml:"requestsPerMinute,omitempty"`
	Burst             int     `json:"burst,omitempty" yaml:"burst,omitempty"`
	// Retries re-sends transient failures (network, 5xx, 429) to
	// OpenAI-compatible servers. 0 sends each request once.
	Retries int `json:"retries,omitempty" yaml:"retries,omitempty"`
}

// TranslatorConfig selects the model used for product descriptions.
// Fallbacks are tried in order when Provider fails.
type TranslatorConfig struct {
	Provider       string   `json:"provider" yaml:"provider"`
	Fallbacks      []string `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
	TimeoutSeconds int      `json:"timeoutSeconds" yaml:"timeoutSeconds"`
}

type ScraperConfig struct {
	GroupSelector  string        `json:"groupSelector" yaml:"groupSelector"`
	LimitResults   bool          `json:"limitResults" yaml:"limitResults"`
	MaxProducts    int           `json:"maxProducts" yaml:"maxProducts"`
	TimeoutSeconds int           `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	Browser        BrowserConfig `json:"browser" yaml:"browser"`
}

// BrowserConfig switches page fetching to headless Chrome.
type BrowserConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	Headless     bool   `json:"headless" yaml:"headless"`
	ProfileDir   string `json:"profileDir,omitempty" yaml:"profileDir,omitempty"`
	SettleMillis int    `json:"settleMillis,omitempty" yaml:"settleMillis,omitempty"`
}

type WikiConfig struct {
	Endpoint       string `json:"endpoint" yaml:"endpoint"`
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	MaxRedirects   int    `json:"maxRedirects" yaml:"maxRedirects"`
	SummaryWords   int    `json:"summaryWords" yaml:"summaryWords"`
	// Terminal marks every lookup as the last step of a workflow.
	Terminal bool `json:"terminal" yaml:"terminal"`
}

type SMTPConfig struct {
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	Username       string `json:"username,omitempty" yaml:"username,omitempty"`
	Password       string `json:"password,omitempty" yaml:"password,omitempty"`
	From           string `json:"from" yaml:"from"`
	TLS            string `json:"tls" yaml:"tls"` // "starttls" | "tls" | "none"
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
}

// GatewayConfig configures the HTTP dispatch gateway.
type GatewayConfig struct {
	Host   string `json:"host" yaml:"host"`
	Port   int    `json:"port" yaml:"port"`
	APIKey string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
}

// MetricsConfig configures the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// TracingConfig selects the span exporter: "stdout" prints spans, "otlp"
// ships them to a gRPC collector at Endpoint.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"serviceName" yaml:"serviceName"`
	Exporter    string `json:"exporter" yaml:"exporter"`
	Endpoint    string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// DefaultConfigDir returns the default config directory (~/.toolrelay).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".toolrelay"
	}
	return filepath.Join(home, ".toolrelay")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LoadDotEnv reads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Variables already set win; missing files
// are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.ResolveEnv()
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Scraper.Browser.ProfileDir = ExpandPath(cfg.Scraper.Browser.ProfileDir)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

// ResolveEnv expands ${VAR} placeholders left in credential and endpoint
// fields, such as those carried by Defaults. Placeholders whose variable is
// unset and has no default become empty.
func (c *Config) ResolveEnv() {
	for name, pc := range c.Providers {
		pc.APIBase = resolveEnv(pc.APIBase)
		pc.APIKey = resolveEnv(pc.APIKey)
		pc.DefaultModel = resolveEnv(pc.DefaultModel)
		c.Providers[name] = pc
	}
	c.SMTP.Host = resolveEnv(c.SMTP.Host)
	c.SMTP.Username = resolveEnv(c.SMTP.Username)
	c.SMTP.Password = resolveEnv(c.SMTP.Password)
	c.SMTP.From = resolveEnv(c.SMTP.From)
	c.Gateway.APIKey = resolveEnv(c.Gateway.APIKey)
	c.Tracing.Endpoint = resolveEnv(c.Tracing.Endpoint)
}

func resolveEnv(s string) string {
	return envVarPattern.ReplaceAllString(ExpandEnvVars(s), "")
}

func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := Marshal(cfg, isYAML(path))
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Marshal renders cfg as YAML or indented JSON.
func Marshal(cfg *Config, asYAML bool) ([]byte, error) {
	if asYAML {
		return yaml.Marshal(cfg)
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch strings.ToLower(cfg.General.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	switch cfg.General.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, "general.logFormat must be one of: text, json")
	}

	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}
		if pc.RequestsPerMinute < 0 || pc.Burst < 0 || pc.Retries < 0 {
			errs = append(errs, fmt.Sprintf("providers.%s: requestsPerMinute, burst and retries must be >= 0", name))
		}
		switch pc.Kind {
		case "gemini":
		case "openai", "lmstudio":
			if pc.APIBase == "" {
				errs = append(errs, fmt.Sprintf("providers.%s: apiBase is required for kind %s", name, pc.Kind))
			}
		default:
			errs = append(errs, fmt.Sprintf("providers.%s: kind must be one of: gemini, openai, lmstudio", name))
		}
	}
	if p := cfg.Translator.Provider; p != "" {
		if _, ok := cfg.Providers[p]; !ok {
			errs = append(errs, fmt.Sprintf("translator.provider references unknown provider: %s", p))
		}
	}
	for _, p := range cfg.Translator.Fallbacks {
		if _, ok := cfg.Providers[p]; !ok {
			errs = append(errs, fmt.Sprintf("translator.fallbacks references unknown provider: %s", p))
		}
	}
	if cfg.Translator.TimeoutSeconds < 1 {
		errs = append(errs, "translator.timeoutSeconds must be >= 1")
	}

	if strings.TrimSpace(cfg.Scraper.GroupSelector) == "" {
		errs = append(errs, "scraper.groupSelector must not be empty")
	}
	if cfg.Scraper.MaxProducts < 1 {
		errs = append(errs, "scraper.maxProducts must be >= 1")
	}
	if cfg.Scraper.TimeoutSeconds < 1 {
		errs = append(errs, "scraper.timeoutSeconds must be >= 1")
	}

	if cfg.Wiki.MaxRedirects < 0 || cfg.Wiki.MaxRedirects > 10 {
		errs = append(errs, "wiki.maxRedirects must be between 0 and 10")
	}
	if cfg.Wiki.SummaryWords < 1 {
		errs = append(errs, "wiki.summaryWords must be >= 1")
	}

	if cfg.SMTP.Port < 0 || cfg.SMTP.Port > 65535 {
		errs = append(errs, "smtp.port must be between 0 and 65535")
	}
	switch cfg.SMTP.TLS {
	case "starttls", "tls", "none":
	default:
		errs = append(errs, "smtp.tls must be one of: starttls, tls, none")
	}

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		errs = append(errs, "gateway.port must be between 0 and 65535")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Endpoint, "/") {
		errs = append(errs, "metrics.endpoint must start with /")
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Exporter {
		case "", "stdout":
		case "otlp":
			if cfg.Tracing.Endpoint == "" {
				errs = append(errs, "tracing.endpoint is required for the otlp exporter")
			}
		default:
			errs = append(errs, "tracing.exporter must be one of: stdout, otlp")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
