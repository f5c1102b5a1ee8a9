// Package gateway exposes the dispatcher over HTTP.
package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"toolrelay/internal/agent"
	"toolrelay/internal/buffer"
	"toolrelay/internal/telemetry"
)

const maxBodySize = 1 << 20 // 1MB

// Gateway serves POST /v1/dispatch and the read-only catalog, result and
// metrics endpoints.
type Gateway struct {
	addr        string
	apiKey      string
	dispatcher  *agent.Dispatcher
	results     *buffer.Buffer
	metrics     http.Handler
	metricsPath string
	logger      *slog.Logger
	server      *http.Server
}

type Config struct {
	Host       string
	Port       int
	APIKey     string // empty disables authentication
	Dispatcher *agent.Dispatcher
	// Metrics is mounted at MetricsPath when non-nil.
	Metrics     http.Handler
	MetricsPath string
	Logger      *slog.Logger
}

func New(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	results := cfg.Dispatcher.Results()
	if results == nil {
		results = buffer.New()
	}
	return &Gateway{
		addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		apiKey:      cfg.APIKey,
		dispatcher:  cfg.Dispatcher,
		results:     results,
		metrics:     cfg.Metrics,
		metricsPath: cfg.MetricsPath,
		logger:      cfg.Logger,
	}
}

// Handler returns the gateway's routes.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/dispatch", g.authed(g.handleDispatch))
	mux.HandleFunc("GET /v1/tools", g.authed(g.handleTools))
	mux.HandleFunc("GET /v1/result", g.authed(g.handleResult))
	mux.HandleFunc("DELETE /v1/result", g.authed(g.handleResetResult))
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
	})
	if g.metrics != nil {
		mux.Handle("GET "+g.metricsPath, g.metrics)
	}
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (g *Gateway) Start(ctx context.Context) error {
	g.server = &http.Server{
		Addr:              g.addr,
		Handler:           telemetry.Handler(g.Handler(), "gateway"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      150 * time.Second, // translation calls can be slow
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g.logger.Info("gateway started", "addr", g.addr, "auth", g.apiKey != "")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.server.Shutdown(shutdownCtx); err != nil {
			g.logger.Warn("gateway shutdown", "error", err)
		}
	}()

	if err := g.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

func (g *Gateway) authed(next http.HandlerFunc) http.HandlerFunc {
	if g.apiKey == "" {
		return next
	}
	return func(rw http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(g.apiKey)) != 1 {
			writeJSON(rw, http.StatusUnauthorized, map[string]string{"error": "invalid API key"})
			return
		}
		next(rw, r)
	}
}

// handleDispatch runs the raw call body. Every handled call answers 200;
// the reply status carries success or failure.
func (g *Gateway) handleDispatch(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	if len(body) > maxBodySize {
		writeJSON(rw, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
		return
	}

	_, reply := g.dispatcher.Dispatch(r.Context(), json.RawMessage(body))
	writeJSON(rw, http.StatusOK, reply)
}

func (g *Gateway) handleTools(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{"tools": g.dispatcher.Tools().Definitions()})
}

func (g *Gateway) handleResult(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(rw, g.results.Closing())
}

func (g *Gateway) handleResetResult(rw http.ResponseWriter, r *http.Request) {
	g.results.Reset()
	rw.WriteHeader(http.StatusNoContent)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
