package hub

import "context"

// Delivery runs one dispatch pass over a snapshot of subscribers and
// returns the number of callbacks invoked.
type Delivery func(ctx context.Context) int

// Dispatcher defines the seam between the Hub registry and the invocation
// of subscriber callbacks. Implementations wrap one another to add
// instrumentation; the innermost one is Direct.
type Dispatcher interface {
	// Dispatch runs deliver for a post on ev and returns its result.
	// Implementations must call deliver exactly once.
	Dispatch(ctx context.Context, ev Descriptor, deliver Delivery) int

	// Subscribed is called after an observer for ev was registered.
	Subscribed(ev Descriptor)

	// Unsubscribed is called after an observer for ev was removed.
	Unsubscribed(ev Descriptor)
}

// Direct returns the Dispatcher that invokes deliveries on the calling
// goroutine with no additional behaviour.
func Direct() Dispatcher {
	return direct{}
}

type direct struct{}

func (direct) Dispatch(ctx context.Context, _ Descriptor, deliver Delivery) int {
	return deliver(ctx)
}

func (direct) Subscribed(Descriptor)   {}
func (direct) Unsubscribed(Descriptor) {}
