package metrics

import (
	"context"
	"fmt"
	"time"

	"hub/internal/hub"
	"hub/internal/validator"
)

// Dispatcher wraps a hub.Dispatcher with metrics collection
type Dispatcher struct {
	next     hub.Dispatcher
	registry *Registry
}

// NewDispatcher creates a new instrumented dispatcher
func NewDispatcher(next hub.Dispatcher, registry *Registry) (*Dispatcher, error) {
	d := Dispatcher{
		next:     next,
		registry: registry,
	}

	if err := validator.Validate("metrics dispatcher", d.next, d.registry); err != nil {
		return nil, fmt.Errorf("failed to validate metrics dispatcher deps: %w", err)
	}

	return &d, nil
}

// Dispatch implements hub.Dispatcher.Dispatch with metrics collection.
// A panicking observer is recorded with StatusPanic before the panic continues.
func (d *Dispatcher) Dispatch(ctx context.Context, ev hub.Descriptor, deliver hub.Delivery) int {
	start := time.Now()
	status := StatusPanic
	var delivered int
	defer func() {
		d.registry.RecordPost(ev.Name(), status, delivered, time.Since(start))
	}()

	delivered = d.next.Dispatch(ctx, ev, deliver)
	status = StatusDelivered
	if delivered == 0 {
		status = StatusEmpty
	}

	return delivered
}

// Subscribed implements hub.Dispatcher.Subscribed
func (d *Dispatcher) Subscribed(ev hub.Descriptor) {
	d.registry.RecordObserve(ev.Name())
	d.next.Subscribed(ev)
}

// Unsubscribed implements hub.Dispatcher.Unsubscribed
func (d *Dispatcher) Unsubscribed(ev hub.Descriptor) {
	d.registry.RecordRemove(ev.Name())
	d.next.Unsubscribed(ev)
}
