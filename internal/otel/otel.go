// Package otel wires OpenTelemetry tracing to the event bus. The engine
// publishes plain events; this package turns them into spans without the
// engine importing any telemetry API.
package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"github.com/aqueductql/aqueduct/internal/eventbus"
	"github.com/aqueductql/aqueduct/internal/events"
	"github.com/aqueductql/aqueduct/internal/opid"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
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

	sub := &subscriber{tracer: otel.Tracer("aqueduct")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer  trace.Tracer
	opSpans sync.Map // operation id -> trace.Span
}

// Batch and checker spans are recorded as children of the operation span
// when one is active. They start and end within a single Finish event
// because the engine publishes both timestamps at once.
func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.OperationStart) {
		oid, _ := opid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "graphql.operation")
		span.SetAttributes(
			attribute.String("graphql.operation.name", e.OperationName),
			attribute.String("graphql.operation.type", e.OperationType),
		)
		s.opSpans.Store(oid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.OperationFinish) {
		oid, _ := opid.FromContext(ctx)
		v, ok := s.opSpans.LoadAndDelete(oid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("graphql.error_count", e.ErrorCount))
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.ResolverBatchFinish) {
		parent := s.parentContext(ctx)
		_, span := s.tracer.Start(parent, "graphql.resolver.batch",
			trace.WithTimestamp(time.Now().Add(-e.Duration)))
		span.SetAttributes(
			attribute.String("graphql.resolver", e.Resolver),
			attribute.String("graphql.resolver.kind", e.Kind),
			attribute.Int("graphql.batch.size", e.Size),
		)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.CheckerFinish) {
		parent := s.parentContext(ctx)
		_, span := s.tracer.Start(parent, "graphql.checker",
			trace.WithTimestamp(time.Now().Add(-e.Duration)))
		span.SetAttributes(
			attribute.String("graphql.checker", e.Checker),
			attribute.String("graphql.checker.coordinate", e.Coordinate),
			attribute.Bool("graphql.checker.allowed", e.Allowed),
		)
		span.End()
	})
}

func (s *subscriber) parentContext(ctx context.Context) context.Context {
	oid, _ := opid.FromContext(ctx)
	if v, ok := s.opSpans.Load(oid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}
