package obs

import (
	"bytes"
	"context"
	"signal-simulation-service/internal/platform/logging"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func resetTracerProvider(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
}

func TestInitTracingStdoutExportsSpans(t *testing.T) {
	resetTracerProvider(t)
	var buf bytes.Buffer
	ctx := context.Background()

	shutdown, err := InitTracing(ctx, TracingConfig{
		Enabled:     true,
		ServiceName: "signal-simulation-service",
		Exporter:    "stdout",
		SampleRatio: 1,
		Writer:      &buf,
	}, logging.Discard())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}

	_, span := otel.Tracer("signal").Start(ctx, "signal.Process")
	span.End()

	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"signal.Process", "signal-simulation-service"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in exported spans:\n%s", want, out)
		}
	}
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	resetTracerProvider(t)
	var buf bytes.Buffer
	ctx := context.Background()

	shutdown, err := InitTracing(ctx, TracingConfig{Exporter: "stdout", Writer: &buf}, logging.Discard())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}

	_, span := otel.Tracer("signal").Start(ctx, "signal.Process")
	if span.SpanContext().IsValid() {
		t.Fatal("disabled tracing produced a recording span")
	}
	span.End()

	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("disabled tracing wrote spans:\n%s", buf.String())
	}
}

func TestInitTracingUnsupportedExporter(t *testing.T) {
	resetTracerProvider(t)

	if _, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, logging.Discard()); err == nil {
		t.Fatal("expected error for unsupported exporter")
	}
}
