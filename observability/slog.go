package observability

import (
	"context"
	"log/slog"
	"sort"
)

// SlogObserver emits events to a slog.Logger. The event type becomes the log
// message and Data keys become top-level attributes in key order.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver creates a SlogObserver that emits to logger. A nil logger
// uses slog.Default.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	keys := make([]string, 0, len(event.Data))
	for k := range event.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	attrs = append(attrs, slog.String("source", event.Source))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, event.Data[k]))
	}

	o.logger.LogAttrs(ctx, event.Level.SlogLevel(), string(event.Type), attrs...)
}
