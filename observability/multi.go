package observability

import "context"

// MultiObserver forwards each event to several observers in order, e.g. a
// SlogObserver for local logs and a TraceObserver for span events.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver over the non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}

// Len reports how many observers receive events.
func (m *MultiObserver) Len() int {
	return len(m.observers)
}
