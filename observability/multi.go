package observability

import "context"

// MultiObserver delivers each event to a fixed list of observers, in the
// order they were given.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver fans events out to observers. Nested MultiObservers are
// flattened and observers that discard everything are left out, so
// combining the configured logger with metrics never double-wraps.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	m := &MultiObserver{}
	for _, o := range observers {
		m.add(o)
	}
	return m
}

func (m *MultiObserver) add(o Observer) {
	if nested, ok := o.(*MultiObserver); ok && nested != nil {
		for _, inner := range nested.observers {
			m.add(inner)
		}
		return
	}
	if Discards(o) {
		return
	}
	m.observers = append(m.observers, o)
}

// Len returns the number of observers receiving events.
func (m *MultiObserver) Len() int {
	return len(m.observers)
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, o := range m.observers {
		o.OnEvent(ctx, event)
	}
}
