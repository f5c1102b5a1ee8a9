package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Providers: map[string]ProviderConfig{
			"gemini": {
				Enabled:      true,
				Kind:         "gemini",
				APIKey:       "${GEMINI_API_KEY}",
				DefaultModel: "gemini-2.0-flash",
				// Free-tier quota.
				RequestsPerMinute: 15,
				Burst:             5,
			},
			"llmstudio": {
				Enabled:      false,
				Kind:         "lmstudio",
				APIBase:      "${LLM_STUDIO_API_URL:-http://localhost:1234/v1}",
				APIKey:       "${LLM_STUDIO_API_KEY}",
				DefaultModel: "${LLM_STUDIO_DEFAULT_NAME:-llm-studio}",
				MaxTokens:    100,
			},
		},
		Translator: TranslatorConfig{
			Provider:       "gemini",
			TimeoutSeconds: 60,
		},
		Scraper: ScraperConfig{
			GroupSelector:  ".meta-wrapper",
			LimitResults:   false,
			MaxProducts:    3,
			TimeoutSeconds: 15,
			Browser: BrowserConfig{
				Enabled:  false,
				Headless: true,
			},
		},
		Wiki: WikiConfig{
			Endpoint:       "https://en.wikipedia.org/w/api.php",
			TimeoutSeconds: 10,
			MaxRedirects:   3,
			SummaryWords:   20,
		},
		SMTP: SMTPConfig{
			Host:           "${SMTP_SERVER:-smtp.gmail.com}",
			Port:           587,
			Username:       "${SMTP_USERNAME}",
			Password:       "${SMTP_PASSWORD}",
			From:           "${SMTP_FROM_EMAIL}",
			TLS:            "starttls",
			TimeoutSeconds: 30,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 8088,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Endpoint:  "/metrics",
			Namespace: "toolrelay",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "toolrelay",
			Exporter:    "stdout",
			Endpoint:    "${OTEL_EXPORTER_OTLP_ENDPOINT}",
		},
	}
}
