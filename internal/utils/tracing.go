package utils

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used by every package
const TracerName = "github.com/amaumene/tvarr"

// Tracer returns the process tracer. Without SetupTracing it is a no-op.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// SetupTracing installs an SDK tracer provider whose finished spans are logged at debug level.
// The returned function flushes and shuts the provider down.
func SetupTracing(logger *logrus.Logger) func(context.Context) error {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(&logSpanProcessor{logger: logger}),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown
}

type logSpanProcessor struct {
	logger *logrus.Logger
}

func (p *logSpanProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *logSpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	fields := logrus.Fields{
		"span":        s.Name(),
		"trace_id":    s.SpanContext().TraceID().String(),
		"duration_ms": s.EndTime().Sub(s.StartTime()).Milliseconds(),
	}
	for _, attr := range s.Attributes() {
		fields[string(attr.Key)] = attr.Value.Emit()
	}

	entry := p.logger.WithFields(fields)
	if s.Status().Code == codes.Error {
		entry.WithField("error", s.Status().Description).Debug("Span failed")
		return
	}
	entry.Debug("Span finished")
}

func (p *logSpanProcessor) Shutdown(context.Context) error   { return nil }
func (p *logSpanProcessor) ForceFlush(context.Context) error { return nil }
