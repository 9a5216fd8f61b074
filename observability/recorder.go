package observability

import (
	"context"
	"sync"
)

// Recorder keeps every event it receives. It is safe for concurrent use and
// is mostly useful in tests and diagnostics commands.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) OnEvent(ctx context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events with the given type.
func (r *Recorder) OfType(typ EventType) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
