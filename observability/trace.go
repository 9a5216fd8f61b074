package observability

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceObserver records each event on the span active in the event's
// context. Events at LevelError or above also mark the span as failed.
// Without a recording span the event is dropped.
type TraceObserver struct{}

func (TraceObserver) OnEvent(ctx context.Context, event Event) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(event.Data)+2)
	attrs = append(attrs,
		attribute.String("event.source", event.Source),
		attribute.String("event.severity", event.Level.String()),
	)
	attrs = append(attrs, Attributes(event.Data)...)

	span.AddEvent(string(event.Type), trace.WithTimestamp(event.Timestamp), trace.WithAttributes(attrs...))
	if event.Level >= LevelError {
		span.SetStatus(codes.Error, string(event.Type))
	}
}

// Attributes converts event data into OTel attributes in key order. Values
// without a native attribute type are formatted with fmt.
func Attributes(data map[string]any) []attribute.KeyValue {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		switch v := data[k].(type) {
		case string:
			attrs = append(attrs, attribute.String(k, v))
		case bool:
			attrs = append(attrs, attribute.Bool(k, v))
		case int:
			attrs = append(attrs, attribute.Int(k, v))
		case int64:
			attrs = append(attrs, attribute.Int64(k, v))
		case float64:
			attrs = append(attrs, attribute.Float64(k, v))
		case error:
			attrs = append(attrs, attribute.String(k, v.Error()))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(v)))
		}
	}
	return attrs
}
