package observability

import "context"

// NoOpObserver drops every event. Sessions, models and runtimes built
// without an observer use it.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}

// Discards reports whether events sent to o are dropped unseen, so emitters
// can skip assembling them.
func Discards(o Observer) bool {
	switch o := o.(type) {
	case nil, NoOpObserver, *NoOpObserver:
		return true
	case *MultiObserver:
		return o == nil || len(o.observers) == 0
	default:
		return false
	}
}
