package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"hub/internal/hub"
)

func newTestTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return NewTracerFromProvider("hub-test", tp), recorder
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestNewDispatcherRequiresDeps(t *testing.T) {
	tracer, _ := newTestTracer(t)
	if _, err := NewDispatcher(nil, tracer); err == nil {
		t.Fatalf("expected error for missing next dispatcher")
	}
	if _, err := NewDispatcher(hub.Direct(), nil); err == nil {
		t.Fatalf("expected error for missing tracer")
	}
}

func TestDispatcherRecordsSpanPerPost(t *testing.T) {
	tracer, recorder := newTestTracer(t)
	d, err := NewDispatcher(hub.Direct(), tracer)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	h := hub.New(hub.WithDispatcher(d))
	ev := hub.NewEvent[string]("UserLoggedIn")

	var observed trace.SpanContext
	hub.ObserveContext(h, ev, func(ctx context.Context, _ string) {
		observed = trace.SpanContextFromContext(ctx)
	})
	hub.Observe(h, ev, func(string) {})

	hub.Post(h, ev, "alice")

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "hub.post" {
		t.Fatalf("span name %q, want hub.post", span.Name())
	}
	if span.SpanKind() != trace.SpanKindProducer {
		t.Fatalf("span kind %v, want producer", span.SpanKind())
	}
	if span.Status().Code != codes.Ok {
		t.Fatalf("span status %v, want ok", span.Status())
	}

	a := attrs(span)
	if a["hub.event"].AsString() != "UserLoggedIn" {
		t.Fatalf("hub.event = %q", a["hub.event"].AsString())
	}
	if a["hub.event_id"].AsString() != ev.ID().String() {
		t.Fatalf("hub.event_id = %q, want %s", a["hub.event_id"].AsString(), ev.ID())
	}
	if a["hub.deliveries"].AsInt64() != 2 {
		t.Fatalf("hub.deliveries = %d, want 2", a["hub.deliveries"].AsInt64())
	}

	if observed.SpanID() != span.SpanContext().SpanID() {
		t.Fatalf("observer did not run inside the post span")
	}
}

func TestDispatcherMarksPanicsAsErrors(t *testing.T) {
	tracer, recorder := newTestTracer(t)
	d, err := NewDispatcher(hub.Direct(), tracer)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	h := hub.New(hub.WithDispatcher(d))
	ev := hub.NewEvent[int]("boom")
	hub.Observe(h, ev, func(int) { panic("observer failed") })

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		hub.Post(h, ev, 1)
	}()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Fatalf("span status %v, want error", spans[0].Status())
	}
	if !attrs(spans[0])["error"].AsBool() {
		t.Fatalf("expected error attribute on span")
	}
}
