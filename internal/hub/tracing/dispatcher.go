package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hub/internal/hub"
	"hub/internal/validator"
)

// Dispatcher wraps a hub.Dispatcher with distributed tracing
// Layer order: tracing.Dispatcher -> metrics.Dispatcher -> hub.Direct
type Dispatcher struct {
	next   hub.Dispatcher
	tracer *Tracer
}

// NewDispatcher creates a new traced dispatcher
func NewDispatcher(next hub.Dispatcher, tracer *Tracer) (*Dispatcher, error) {
	d := Dispatcher{
		next:   next,
		tracer: tracer,
	}

	if err := validator.Validate("traced dispatcher", d.next, d.tracer); err != nil {
		return nil, fmt.Errorf("failed to validate traced dispatcher deps: %w", err)
	}

	return &d, nil
}

// Dispatch implements hub.Dispatcher.Dispatch with one span per post.
// Observers registered with hub.ObserveContext run inside that span.
func (d *Dispatcher) Dispatch(ctx context.Context, ev hub.Descriptor, deliver hub.Delivery) int {
	ctx, span := d.tracer.StartSpan(ctx, "hub.post", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	span.SetAttributes(d.tracer.EventAttributes(ev)...)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("observer panicked: %v", r)
			d.tracer.RecordError(ctx, err)
			span.SetAttributes(d.tracer.ErrorAttributes(err)...)
			panic(r)
		}
	}()

	delivered := d.next.Dispatch(ctx, ev, deliver)

	span.SetAttributes(attribute.Int("hub.deliveries", delivered))
	span.SetStatus(codes.Ok, "")
	span.SetAttributes(d.tracer.ErrorAttributes(nil)...)

	return delivered
}

// Subscribed implements hub.Dispatcher.Subscribed
func (d *Dispatcher) Subscribed(ev hub.Descriptor) {
	d.next.Subscribed(ev)
}

// Unsubscribed implements hub.Dispatcher.Unsubscribed
func (d *Dispatcher) Unsubscribed(ev hub.Descriptor) {
	d.next.Unsubscribed(ev)
}
