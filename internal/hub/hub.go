// Package hub provides an in-process, typed publish/subscribe registry.
//
// Producers post values through an Event descriptor and every callback
// currently observing that descriptor is invoked synchronously, in the order
// it was registered, on the posting goroutine:
//
//	var UserLoggedIn = hub.NewEvent[string]("UserLoggedIn")
//
//	h := hub.New(hub.WithLogger(logger))
//	obs := hub.Observe(h, UserLoggedIn, func(user string) { ... })
//	defer obs.Remove()
//
//	hub.Post(h, UserLoggedIn, "alice")
//
// Subscriptions are stored per descriptor in strongly typed lists, so a value
// is never cast on delivery and a wrongly typed post does not compile.
package hub

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub maps event descriptors to their ordered subscriptions. The zero value
// is not usable; create hubs with New. A Hub is safe for concurrent use.
type Hub struct {
	mu sync.RWMutex
	// topics holds a *topic[T] under the ID of each observed *Event[T].
	topics map[uuid.UUID]any
	seq    uint64

	logger     *zap.Logger
	dispatcher Dispatcher
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger used for subscription lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithDispatcher sets the dispatcher chain that posts run through.
// Defaults to Direct.
func WithDispatcher(dispatcher Dispatcher) Option {
	return func(h *Hub) {
		if dispatcher != nil {
			h.dispatcher = dispatcher
		}
	}
}

// New creates an empty Hub. Hubs are fully isolated from each other.
func New(opts ...Option) *Hub {
	h := &Hub{
		topics:     make(map[uuid.UUID]any),
		logger:     zap.NewNop(),
		dispatcher: Direct(),
	}

	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("hub")

	return h
}

type topic[T any] struct {
	// subs is replaced, never modified in place, on removal so that
	// snapshots taken by Post stay valid without holding the lock.
	subs []subscription[T]
}

type subscription[T any] struct {
	id uint64
	fn func(context.Context, T)
}

// Observe registers callback for every value posted through ev and returns
// the handle that removes it. Registering the same callback twice results in
// two independent deliveries.
func Observe[T any](h *Hub, ev *Event[T], callback func(T)) *Observer {
	return ObserveContext(h, ev, func(_ context.Context, v T) {
		callback(v)
	})
}

// ObserveContext is like Observe but the callback also receives the context
// given to PostContext.
func ObserveContext[T any](h *Hub, ev *Event[T], callback func(context.Context, T)) *Observer {
	h.mu.Lock()
	t := lookup(h, ev)
	if t == nil {
		t = &topic[T]{}
		h.topics[ev.id] = t
	}
	h.seq++
	id := h.seq
	t.subs = append(t.subs, subscription[T]{id: id, fn: callback})
	count := len(t.subs)
	h.mu.Unlock()

	h.logger.Debug("observer added", eventFields(ev, count)...)
	h.dispatcher.Subscribed(ev)

	return &Observer{
		cancel: func() { unobserve(h, ev, id) },
	}
}

func unobserve[T any](h *Hub, ev *Event[T], id uint64) {
	h.mu.Lock()
	t := lookup(h, ev)
	if t == nil {
		h.mu.Unlock()
		return
	}

	i := slices.IndexFunc(t.subs, func(s subscription[T]) bool { return s.id == id })
	if i < 0 {
		h.mu.Unlock()
		return
	}

	subs := make([]subscription[T], 0, len(t.subs)-1)
	subs = append(subs, t.subs[:i]...)
	subs = append(subs, t.subs[i+1:]...)
	count := len(subs)
	if count == 0 {
		delete(h.topics, ev.id)
	} else {
		t.subs = subs
	}
	h.mu.Unlock()

	h.logger.Debug("observer removed", eventFields(ev, count)...)
	h.dispatcher.Unsubscribed(ev)
}

// Post delivers value to every current observer of ev, in registration
// order, before returning. Posting to an event nobody observes is a no-op.
func Post[T any](h *Hub, ev *Event[T], value T) {
	PostContext(context.Background(), h, ev, value)
}

// PostContext is like Post but passes ctx through the dispatcher chain and
// to callbacks registered with ObserveContext.
//
// Observers are snapshotted when the post starts: observers added by a
// callback are first called by the next post, and observers removed by a
// callback still receive the in-flight value.
func PostContext[T any](ctx context.Context, h *Hub, ev *Event[T], value T) {
	h.mu.RLock()
	var subs []subscription[T]
	if t := lookup(h, ev); t != nil {
		subs = t.subs
	}
	h.mu.RUnlock()

	if len(subs) == 0 {
		h.logger.Debug("no observers for event", eventFields(ev, 0)...)
	}

	h.dispatcher.Dispatch(ctx, ev, func(ctx context.Context) int {
		for _, s := range subs {
			s.fn(ctx, value)
		}
		return len(subs)
	})
}

// Subscribers returns the number of observers currently registered for ev.
func Subscribers[T any](h *Hub, ev *Event[T]) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if t := lookup(h, ev); t != nil {
		return len(t.subs)
	}
	return 0
}

// lookup must be called with h.mu held.
func lookup[T any](h *Hub, ev *Event[T]) *topic[T] {
	t, _ := h.topics[ev.id].(*topic[T])
	return t
}

func eventFields(ev Descriptor, subscribers int) []zap.Field {
	return []zap.Field{
		zap.String("event", ev.Name()),
		zap.Stringer("event_id", ev.ID()),
		zap.Int("subscribers", subscribers),
	}
}
