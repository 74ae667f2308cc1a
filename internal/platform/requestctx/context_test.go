package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerRoundTrip(t *testing.T) {
	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	if got := Logger(ctx); got != logger {
		t.Fatal("expected the attached logger back")
	}
}

func TestLoggerFallsBackToNoop(t *testing.T) {
	if got := Logger(context.Background()); got != NoopLogger() {
		t.Fatal("expected the shared no-op logger for a bare context")
	}
	ctx := WithLogger(context.Background(), nil)
	if got := Logger(ctx); got != NoopLogger() {
		t.Fatal("expected nil logger to be stored as no-op")
	}
}

func TestTraceRoundTrip(t *testing.T) {
	info := TraceInfo{TraceID: "abc123", SpanID: "0000000000000001", Sampled: true, ProjectID: "shop"}
	ctx := WithTrace(context.Background(), info)

	got, ok := Trace(ctx)
	if !ok || got != info {
		t.Fatalf("trace = %+v, ok = %v", got, ok)
	}
	if TraceID(ctx) != "abc123" {
		t.Fatalf("trace id = %q", TraceID(ctx))
	}
	if _, ok := Trace(context.Background()); ok {
		t.Fatal("expected no trace on a bare context")
	}
}

func TestLogResource(t *testing.T) {
	info := TraceInfo{TraceID: "abc123", ProjectID: "shop"}
	if got := info.LogResource(); got != "projects/shop/traces/abc123" {
		t.Fatalf("resource = %q", got)
	}
	if got := (TraceInfo{TraceID: "abc123"}).LogResource(); got != "" {
		t.Fatalf("resource without project = %q", got)
	}
}
