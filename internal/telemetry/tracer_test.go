package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracer(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	shutdown, err := InitTracer("dagview-test", &buf, logger)
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "graph.build")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"graph.build"`) {
		t.Errorf("exported spans missing graph.build: %s", out)
	}
	if !strings.Contains(out, "dagview-test") {
		t.Errorf("exported spans missing service name: %s", out)
	}
}
