package hub

import (
	"fmt"

	"github.com/google/uuid"
)

// Descriptor is the type-agnostic view of an Event. Dispatchers and
// instrumentation layers see events through it without knowing the payload type.
type Descriptor interface {
	// Name is the caller-supplied label of the event, e.g. "UserLoggedIn".
	Name() string
	// ID uniquely identifies the descriptor within the process.
	ID() uuid.UUID
}

// Event identifies one event channel carrying values of type T.
// A nilable T (pointer, interface, map, slice) makes the channel nullable:
// posting nil delivers nil to every subscriber.
//
// Events are immutable and are usually declared once as package-level values
// by the module that owns them. The Hub keys subscriptions on the event's
// identity, so two events created with the same name never share subscribers.
type Event[T any] struct {
	name string
	id   uuid.UUID
}

// NewEvent creates a new event descriptor with the given name.
func NewEvent[T any](name string) *Event[T] {
	return &Event[T]{
		name: name,
		id:   uuid.New(),
	}
}

func (e *Event[T]) Name() string   { return e.name }
func (e *Event[T]) ID() uuid.UUID  { return e.id }
func (e *Event[T]) String() string { return fmt.Sprintf("%s#%s", e.name, e.id) }
