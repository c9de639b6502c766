package session

import (
	"time"

	"github.com/conneroisu/blockwright/internal/tree"
	"github.com/conneroisu/blockwright/internal/validation"
)

// EventType represents the kind of change a session reports.
type EventType int

const (
	// EventTreeChange follows any mutation of tree shape, values or
	// exposure.
	EventTreeChange EventType = iota
	// EventSelectionChange follows a change of the selected node.
	EventSelectionChange
	// EventValidationChange follows every validation pass.
	EventValidationChange
)

// String returns the wire name of the event type.
func (e EventType) String() string {
	switch e {
	case EventTreeChange:
		return "tree_change"
	case EventSelectionChange:
		return "selection_change"
	case EventValidationChange:
		return "validation_change"
	default:
		return "unknown"
	}
}

// MarshalText encodes the event type by its wire name.
func (e EventType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Event is delivered to observers after a session operation completes.
type Event struct {
	Type       EventType          `json:"type"`
	Selected   tree.NodeID        `json:"selected,omitempty"`
	Validation *validation.Result `json:"validation,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// Observer receives session events. Observers run synchronously on the
// goroutine that performed the operation and must not call back into the
// session.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}

// Subscribe registers o and returns a function removing it.
func (s *Session) Subscribe(o Observer) func() {
	id := s.nextObserver
	s.nextObserver++
	s.observers = append(s.observers, subscription{id: id, observer: o})

	return func() {
		for i, sub := range s.observers {
			if sub.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

type subscription struct {
	id       int
	observer Observer
}

func (s *Session) emit(t EventType) {
	e := Event{
		Type:      t,
		Timestamp: s.now(),
	}
	switch t {
	case EventSelectionChange:
		e.Selected = s.selected
	case EventValidationChange:
		result := s.validation
		e.Validation = &result
	}

	for _, sub := range append([]subscription(nil), s.observers...) {
		sub.observer.OnEvent(e)
	}
}
