// Package telemetry provides OpenTelemetry distributed tracing for the
// investigation engine's suspension points: LLM chat completions, tool
// executions, and scratchpad appends. Shape and the no-op-when-unconfigured
// fallback are grounded on haasonsaas-nexus's internal/observability/tracing.go;
// wired into the orchestrator loop the way that file's examples show
// tracing wired into message and tool-execution paths.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/sreinvestigator/investigator"

// Config configures the tracer. TracingEnabled and OTLPEndpoint mirror
// pkg/config.TelemetryConfig so cmd/investigator can pass it straight
// through.
type Config struct {
	ServiceName    string
	ServiceVersion string
	TracingEnabled bool
	OTLPEndpoint   string
	SamplingRate   float64
}

// Tracer wraps an OpenTelemetry tracer. The zero value is unusable;
// construct with New, which always returns a working tracer — a no-op
// one when tracing is disabled or unconfigured, so call sites never
// need a nil check.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New builds a Tracer from cfg and a shutdown function that must be
// called on process exit. When cfg.TracingEnabled is false or
// cfg.OTLPEndpoint is empty, spans are created but never exported.
func New(cfg Config) (*Tracer, func(context.Context) error) {
	noop := func(context.Context) error { return nil }

	if !cfg.TracingEnabled || cfg.OTLPEndpoint == "" {
		return &Tracer{tracer: otel.Tracer(instrumentationName)}, noop
	}

	name := cfg.ServiceName
	if name == "" {
		name = "investigator"
	}

	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure()),
	)
	if err != nil {
		return &Tracer{tracer: otel.Tracer(instrumentationName)}, noop
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(name),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		res = resource.Default()
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate <= 0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SamplingRate >= 1:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)

	return &Tracer{provider: provider, tracer: provider.Tracer(instrumentationName)}, provider.Shutdown
}

// Start opens a span named name and returns the context carrying it.
func (t *Tracer) Start(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{trace.WithSpanKind(kind)}
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	return t.tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks it as failed. A nil err is
// a no-op.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// StartPhase opens a span for one orchestrator phase transition.
func (t *Tracer) StartPhase(ctx context.Context, phase string) (context.Context, trace.Span) {
	return t.Start(ctx, "phase."+phase, trace.SpanKindInternal, attribute.String("investigator.phase", phase))
}

// StartLLMCall opens a span for a chat completion issued during phase.
func (t *Tracer) StartLLMCall(ctx context.Context, phase string) (context.Context, trace.Span) {
	return t.Start(ctx, "llm.chat", trace.SpanKindClient, attribute.String("investigator.phase", phase))
}

// StartToolCall opens a span for a single tool execution.
func (t *Tracer) StartToolCall(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return t.Start(ctx, fmt.Sprintf("tool.%s", toolName), trace.SpanKindInternal, attribute.String("investigator.tool", toolName))
}

// StartScratchpadAppend opens a span for a durable scratchpad write.
func (t *Tracer) StartScratchpadAppend(ctx context.Context, entryType string) (context.Context, trace.Span) {
	return t.Start(ctx, "scratchpad.append", trace.SpanKindInternal, attribute.String("investigator.entry_type", entryType))
}
