package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"toolrelay/internal/agent"
	"toolrelay/internal/browser"
	"toolrelay/internal/buffer"
	"toolrelay/internal/config"
	"toolrelay/internal/domain"
	"toolrelay/internal/mail"
	"toolrelay/internal/metrics"
	"toolrelay/internal/provider"
	"toolrelay/internal/telemetry"
	"toolrelay/internal/tool"
	"toolrelay/internal/wiki"
)

// app is the wired dispatcher and everything it owns.
type app struct {
	dispatcher *agent.Dispatcher
	collector  *metrics.Collector
	shutdown   func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		Output:      os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
	}

	results := buffer.New()
	registry := tool.NewRegistry(logger.With("component", "tools"))
	if err := registerAgents(ctx, cfg, registry, results); err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}

	d := agent.NewDispatcher(agent.DispatcherConfig{
		Tools:   registry,
		Results: results,
		Metrics: metrics.NewDispatchMetrics(collector),
		Logger:  logger.With("component", "dispatcher"),
	})
	return &app{dispatcher: d, collector: collector, shutdown: shutdown}, nil
}

// metricsHandler is nil when metrics are disabled.
func (a *app) metricsHandler() http.Handler {
	if a.collector == nil {
		return nil
	}
	return a.collector.Handler()
}

// Close flushes pending spans.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		logger.Warn("tracing shutdown", "error", err)
	}
}

// registerAgents builds the five agents from config.
func registerAgents(ctx context.Context, cfg *config.Config, registry *tool.Registry, results *buffer.Buffer) error {
	scraperTimeout := seconds(cfg.Scraper.TimeoutSeconds)
	var fetcher domain.PageFetcher
	if cfg.Scraper.Browser.Enabled {
		fetcher = browser.NewBridge(browser.BridgeConfig{
			ProfileDir: cfg.Scraper.Browser.ProfileDir,
			Headless:   cfg.Scraper.Browser.Headless,
			Timeout:    scraperTimeout,
			Settle:     time.Duration(cfg.Scraper.Browser.SettleMillis) * time.Millisecond,
			Logger:     logger.With("component", "browser"),
		})
	} else {
		fetcher = browser.NewHTTPFetcher(browser.HTTPFetcherConfig{
			Client: telemetry.HTTPClient(scraperTimeout),
			Logger: logger.With("component", "fetcher"),
		})
	}

	// A missing model is not fatal; translate_products reports it per call.
	var model domain.LanguageModel
	factory := provider.NewFactory(cfg.Providers, logger.With("component", "provider"))
	if name := cfg.Translator.Provider; name != "" {
		m, err := factory.Chain(ctx, name, cfg.Translator.Fallbacks...)
		if err != nil {
			logger.Warn("translation model unavailable", "provider", name, "error", err)
		} else {
			model = m
		}
	}

	mailer := mail.NewSMTPMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		TLS:      cfg.SMTP.TLS,
		Timeout:  seconds(cfg.SMTP.TimeoutSeconds),
		Logger:   logger.With("component", "smtp"),
	})

	articles := wiki.NewClient(wiki.ClientConfig{
		Endpoint: cfg.Wiki.Endpoint,
		Client:   telemetry.HTTPClient(seconds(cfg.Wiki.TimeoutSeconds)),
		Logger:   logger.With("component", "wiki"),
	})

	agentLogger := logger.With("component", "agent")
	for _, a := range []domain.Agent{
		tool.NewWebScraper(tool.WebScraperConfig{
			Fetcher: fetcher,
			Policy: tool.ScraperPolicy{
				GroupSelector: cfg.Scraper.GroupSelector,
				LimitResults:  cfg.Scraper.LimitResults,
				MaxProducts:   cfg.Scraper.MaxProducts,
			},
			Logger: agentLogger,
		}),
		tool.NewPriceAnalyzer(agentLogger),
		tool.NewTranslator(tool.TranslatorConfig{
			Model:   model,
			Results: results,
			Timeout: seconds(cfg.Translator.TimeoutSeconds),
			Logger:  agentLogger,
		}),
		tool.NewEncyclopediaLookup(tool.EncyclopediaConfig{
			Source:       articles,
			MaxRedirects: cfg.Wiki.MaxRedirects,
			MaxWords:     cfg.Wiki.SummaryWords,
			Terminal:     cfg.Wiki.Terminal,
			Logger:       agentLogger,
		}),
		tool.NewEmailSender(mailer, agentLogger),
	} {
		if err := registry.Register(a); err != nil {
			return err
		}
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
