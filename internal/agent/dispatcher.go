// Package agent routes planner tool calls to capability agents and
// normalizes whatever comes back.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"toolrelay/internal/buffer"
	"toolrelay/internal/domain"
	"toolrelay/internal/metrics"
	"toolrelay/internal/telemetry"
	"toolrelay/internal/tool"
)

// Reply is the mapping handed back to the orchestration runtime.
type Reply struct {
	Content any    `json:"content"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Terminal reports whether the reply asks the runtime to stop.
func (r Reply) Terminal() bool {
	return containsSentinel(r.Content)
}

// Dispatcher decodes a raw call, runs the named agent and converts every
// outcome, panics included, into a Reply.
type Dispatcher struct {
	tools   *tool.Registry
	results *buffer.Buffer
	metrics *metrics.DispatchMetrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// DispatcherConfig holds the dispatcher's collaborators. Tools is required.
type DispatcherConfig struct {
	Tools   *tool.Registry
	Results *buffer.Buffer
	Metrics *metrics.DispatchMetrics
	// Tracer defaults to the global provider's dispatch tracer.
	Tracer trace.Tracer
	Logger *slog.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(telemetry.TracerName)
	}
	if cfg.Tools == nil {
		cfg.Tools = tool.NewRegistry(cfg.Logger)
	}
	return &Dispatcher{
		tools:   cfg.Tools,
		results: cfg.Results,
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
		logger:  cfg.Logger,
	}
}

// Tools exposes the registry for catalog construction.
func (d *Dispatcher) Tools() *tool.Registry { return d.tools }

// Results exposes the result buffer; it may be nil.
func (d *Dispatcher) Results() *buffer.Buffer { return d.results }

// Dispatch runs one tool call. handled is always true: decode failures,
// unknown tools, agent errors and panics all come back as ERROR replies.
func (d *Dispatcher) Dispatch(ctx context.Context, raw any) (handled bool, reply Reply) {
	start := time.Now()
	name := "unknown"
	var errKind domain.ErrorKind

	call, err := parseCall(raw)
	if err == nil {
		name = call.Name
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
	}

	ctx, span := d.tracer.Start(ctx, "dispatch "+name,
		trace.WithAttributes(attribute.String("tool.name", name), attribute.String("tool.call_id", call.ID)))
	defer span.End()

	inFlight := d.metrics.InFlight()
	inFlight.Inc()
	defer func() {
		inFlight.Dec()
		d.metrics.Observe(name, reply.Status, string(errKind), time.Since(start))
		span.SetAttributes(attribute.String("tool.status", reply.Status))
		if errKind != "" {
			span.SetAttributes(attribute.String("error.kind", string(errKind)))
			span.SetStatus(codes.Error, reply.Message)
		}
	}()

	logger := d.logger.With("tool", name, "call_id", call.ID)

	if err != nil {
		errKind = domain.KindOf(err)
		logger.Warn("tool call rejected", "error", err, "kind", errKind)
		return true, toReply(domain.Failure(err))
	}

	resp, owner := d.execute(ctx, logger, call)
	if !resp.OK() {
		errKind = resp.Kind
		logger.Warn("tool call failed", "message", resp.Message, "kind", errKind, "took", time.Since(start))
		return true, toReply(resp)
	}

	if !owner {
		d.record(logger, resp.Content)
	}
	logger.Info("tool call completed", "took", time.Since(start))
	return true, toReply(resp)
}

// execute resolves the agent and runs it, converting panics into ERROR
// responses. owner reports whether the agent manages the result buffer.
func (d *Dispatcher) execute(ctx context.Context, logger *slog.Logger, call domain.ToolCall) (resp domain.Response, owner bool) {
	a, err := d.resolve(call.Name)
	if err != nil {
		return domain.Failure(err), false
	}
	if bo, ok := a.(domain.BufferOwner); ok {
		owner = bo.OwnsResultBuffer()
	}

	content, err := decodeArguments(call.Arguments)
	if err != nil {
		return domain.Failure(err), owner
	}

	if logger.Enabled(ctx, slog.LevelDebug) {
		if b, err := json.Marshal(content); err == nil {
			logger.Debug("tool arguments", "args", string(b))
		}
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("agent panicked", "panic", p, "stack", string(debug.Stack()))
			resp = domain.Failure(&domain.Error{Kind: domain.KindInternal, Msg: fmt.Sprint(p)})
		}
	}()
	return a.Execute(ctx, domain.Request{Content: content}).Normalize(), owner
}

// resolve tries the name as given, then its normalized form.
func (d *Dispatcher) resolve(name string) (domain.Agent, error) {
	if a := d.tools.Get(name); a != nil {
		return a, nil
	}
	return d.tools.Lookup(normalizeToolName(name))
}

func (d *Dispatcher) record(logger *slog.Logger, content any) {
	if d.results == nil {
		return
	}
	var payload map[string]any
	switch v := content.(type) {
	case map[string]any:
		payload = v
	case []any, []map[string]any:
		payload = map[string]any{"results": v}
	default:
		// Typed structs and slices: keep only what encodes as an object or array.
		b, err := json.Marshal(v)
		if err != nil || len(b) == 0 || (b[0] != '{' && b[0] != '[') {
			return
		}
		var decoded any
		if err := json.Unmarshal(b, &decoded); err != nil {
			return
		}
		if m, ok := decoded.(map[string]any); ok {
			payload = m
		} else {
			payload = map[string]any{"results": decoded}
		}
	}
	if err := d.results.Set(payload); err != nil {
		logger.Warn("result buffer not updated", "error", err)
	}
}

func toReply(resp domain.Response) Reply {
	return Reply{Content: resp.Content, Status: resp.Status.String(), Message: resp.Message}
}

func containsSentinel(content any) bool {
	switch v := content.(type) {
	case nil:
		return false
	case string:
		return strings.Contains(v, domain.TerminationSentinel)
	default:
		b, err := json.Marshal(v)
		return err == nil && strings.Contains(string(b), domain.TerminationSentinel)
	}
}
