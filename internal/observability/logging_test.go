package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sandeepkv93/secure-login-portal/internal/config"
)

func TestNewLoggerAddsTraceContextWhenSpanActive(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &config.Config{OTELLogLevel: "info", OTELServiceName: "portal"}, nil)

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "inside span")
	span.End()

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["trace_id"] != span.SpanContext().TraceID().String() {
		t.Fatalf("expected trace_id on log line, got %v", line["trace_id"])
	}
	if line["service"] != "portal" {
		t.Fatalf("expected service attr, got %v", line["service"])
	}
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &config.Config{OTELLogLevel: "warn"}, nil)
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
	}
	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Fatal("expected warn line")
	}
}

type countingHandler struct {
	n     *int
	level slog.Level
}

func (h countingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }
func (h countingHandler) Handle(context.Context, slog.Record) error    { *h.n++; return nil }
func (h countingHandler) WithAttrs([]slog.Attr) slog.Handler           { return h }
func (h countingHandler) WithGroup(string) slog.Handler                { return h }

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b int
	h := &multiHandler{handlers: []slog.Handler{
		countingHandler{n: &a, level: slog.LevelDebug},
		countingHandler{n: &b, level: slog.LevelDebug},
	}}
	slog.New(h).Info("x")
	if a != 1 || b != 1 {
		t.Fatalf("expected both handlers called once, got %d %d", a, b)
	}
}
