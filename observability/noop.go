package observability

import "context"

// NoOpObserver discards all events. It is the engine default.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}
