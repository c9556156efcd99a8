package telemetry

import (
	"context"
	"sync"

	"github.com/slavikovbasa/hiku/internal/eventbus"
	"github.com/slavikovbasa/hiku/internal/qid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

// Setup configures OpenTelemetry tracing and subscribes to execution and
// resolver observation events. If endpoint is empty, no telemetry is
// configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := &subscriber{tracer: otel.Tracer("hiku")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer       trace.Tracer
	executeSpans sync.Map // execution id -> trace.Span
	resolveSpans sync.Map // invocation id -> trace.Span
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e ExecuteStart) {
		id, _ := qid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "engine.execute")
		span.SetAttributes(attribute.String("hiku.graph", e.Graph))
		s.executeSpans.Store(id, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e ExecuteFinish) {
		id, _ := qid.FromContext(ctx)
		v, ok := s.executeSpans.LoadAndDelete(id)
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e ResolveStart) {
		parent := ctx
		if id, ok := qid.FromContext(ctx); ok {
			if v, ok := s.executeSpans.Load(id); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
		}
		_, span := s.tracer.Start(parent, "graph.resolve")
		span.SetAttributes(attribute.String("hiku.resolver", e.Name))
		s.resolveSpans.Store(e.ID, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e ResolveFinish) {
		v, ok := s.resolveSpans.LoadAndDelete(e.ID)
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})
}
