package cli

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/patchpilot/patchpilot/emit"
)

// setupTracing builds an OpenTelemetry span emitter backed by an SDK tracer
// provider. Exporters attach through the usual OTEL_* environment variables;
// without one the spans are simply dropped. The returned shutdown flushes
// pending spans.
func setupTracing() (emit.Emitter, func(context.Context) error) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return emit.NewOTelEmitter(tp.Tracer("patchpilot")), tp.Shutdown
}
