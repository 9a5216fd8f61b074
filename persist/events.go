package persist

import "github.com/tailored-agentic-units/gamesave/observability"

// Engine event types.
const (
	EventSaveStart    observability.EventType = "persist.save.start"
	EventSaveComplete observability.EventType = "persist.save.complete"
	EventSaveFailed   observability.EventType = "persist.save.failed"
	EventLoadMissing  observability.EventType = "persist.load.missing"
	EventLoadComplete observability.EventType = "persist.load.complete"
	EventLoadFailed   observability.EventType = "persist.load.failed"
	EventDelete       observability.EventType = "persist.delete"
	EventExistsFailed observability.EventType = "persist.exists.failed"
)
