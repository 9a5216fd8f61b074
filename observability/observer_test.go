package observability_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tailored-agentic-units/gamesave/observability"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  string
	}{
		{name: "trace range", level: 1, want: "TRACE"},
		{name: "verbose maps to DEBUG", level: observability.LevelVerbose, want: "DEBUG"},
		{name: "info maps to INFO", level: observability.LevelInfo, want: "INFO"},
		{name: "warning maps to WARN", level: observability.LevelWarning, want: "WARN"},
		{name: "error maps to ERROR", level: observability.LevelError, want: "ERROR"},
		{name: "fatal range", level: 21, want: "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  slog.Level
	}{
		{name: "verbose maps to Debug", level: observability.LevelVerbose, want: slog.LevelDebug},
		{name: "info maps to Info", level: observability.LevelInfo, want: slog.LevelInfo},
		{name: "warning maps to Warn", level: observability.LevelWarning, want: slog.LevelWarn},
		{name: "error maps to Error", level: observability.LevelError, want: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.SlogLevel(); got != tt.want {
				t.Errorf("Level(%d).SlogLevel() = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	e := observability.NewEvent("persist.save.start", observability.LevelVerbose, "persist.Save", map[string]any{"name": "save.dat"})

	if e.Timestamp.IsZero() {
		t.Error("Timestamp is zero, want current time")
	}
	if e.Type != "persist.save.start" || e.Source != "persist.Save" {
		t.Errorf("NewEvent() = %+v", e)
	}
}

func TestMultiObserver_NilFiltering(t *testing.T) {
	var first, second observability.Recorder
	multi := observability.NewMultiObserver(nil, &first, nil, &second)

	multi.OnEvent(context.Background(), observability.NewEvent("persist.delete", observability.LevelInfo, "test", nil))

	if len(first.Events()) != 1 || len(second.Events()) != 1 {
		t.Errorf("observers received %d and %d events, want 1 each", len(first.Events()), len(second.Events()))
	}
}

func TestSlogObserver_LevelMapping(t *testing.T) {
	tests := []struct {
		name      string
		level     observability.Level
		minLevel  slog.Level
		expectLog bool
	}{
		{name: "verbose at debug handler", level: observability.LevelVerbose, minLevel: slog.LevelDebug, expectLog: true},
		{name: "verbose at info handler", level: observability.LevelVerbose, minLevel: slog.LevelInfo, expectLog: false},
		{name: "info at warn handler", level: observability.LevelInfo, minLevel: slog.LevelWarn, expectLog: false},
		{name: "warning at warn handler", level: observability.LevelWarning, minLevel: slog.LevelWarn, expectLog: true},
		{name: "error at error handler", level: observability.LevelError, minLevel: slog.LevelError, expectLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: tt.minLevel}))

			obs := observability.NewSlogObserver(logger)
			obs.OnEvent(context.Background(), observability.NewEvent("test.event", tt.level, "test", nil))

			if hasOutput := buf.Len() > 0; hasOutput != tt.expectLog {
				t.Errorf("log output = %v, want %v (buf: %q)", hasOutput, tt.expectLog, buf.String())
			}
		})
	}
}

func TestSlogObserver_Attributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	obs := observability.NewSlogObserver(logger)
	obs.OnEvent(context.Background(), observability.NewEvent(
		"persist.load.failed", observability.LevelWarning, "persist.Load",
		map[string]any{"name": "save.dat", "bytes": 42},
	))

	output := buf.String()
	for _, want := range []string{"persist.load.failed", "source=persist.Load", "name=save.dat", "bytes=42"} {
		if !strings.Contains(output, want) {
			t.Errorf("log output missing %q: %s", want, output)
		}
	}
	if strings.Index(output, "bytes=") > strings.Index(output, "name=") {
		t.Errorf("attributes not in key order: %s", output)
	}
}

func TestTraceObserver(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	obs := observability.TraceObserver{}
	obs.OnEvent(ctx, observability.NewEvent("persist.save.complete", observability.LevelInfo, "persist.Save", map[string]any{
		"name":  "save.dat",
		"bytes": 12,
	}))
	obs.OnEvent(ctx, observability.NewEvent("persist.save.failed", observability.LevelError, "persist.Save", map[string]any{
		"error": errors.New("disk full"),
	}))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	events := spans[0].Events()
	if len(events) != 2 {
		t.Fatalf("span has %d events, want 2", len(events))
	}
	if events[0].Name != "persist.save.complete" {
		t.Errorf("event name = %q, want %q", events[0].Name, "persist.save.complete")
	}

	found := false
	for _, kv := range events[0].Attributes {
		if kv.Key == "name" && kv.Value == attribute.StringValue("save.dat") {
			found = true
		}
	}
	if !found {
		t.Errorf("event attributes = %v, want name=save.dat", events[0].Attributes)
	}

	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status().Code, codes.Error)
	}
}

func TestTraceObserver_NoSpan(t *testing.T) {
	observability.TraceObserver{}.OnEvent(context.Background(), observability.NewEvent("test.event", observability.LevelError, "test", nil))
}

func TestAttributes(t *testing.T) {
	attrs := observability.Attributes(map[string]any{
		"s": "text",
		"b": true,
		"i": 7,
		"e": errors.New("boom"),
		"x": []int{1, 2},
	})

	want := map[attribute.Key]attribute.Value{
		"b": attribute.BoolValue(true),
		"e": attribute.StringValue("boom"),
		"i": attribute.IntValue(7),
		"s": attribute.StringValue("text"),
		"x": attribute.StringValue("[1 2]"),
	}
	if len(attrs) != len(want) {
		t.Fatalf("Attributes() returned %d values, want %d", len(attrs), len(want))
	}
	for i, kv := range attrs {
		if i > 0 && attrs[i-1].Key > kv.Key {
			t.Errorf("Attributes() not sorted: %v", attrs)
		}
		if w := want[kv.Key]; kv.Value != w {
			t.Errorf("Attributes()[%s] = %v, want %v", kv.Key, kv.Value.Emit(), w.Emit())
		}
	}
}

func TestRecorder_Concurrent(t *testing.T) {
	var rec observability.Recorder
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.OnEvent(context.Background(), observability.NewEvent("persist.delete", observability.LevelInfo, "test", nil))
		}()
	}
	wg.Wait()

	if got := len(rec.OfType("persist.delete")); got != 10 {
		t.Errorf("OfType() returned %d events, want 10", got)
	}
	if got := len(rec.OfType("persist.save.start")); got != 0 {
		t.Errorf("OfType(other) returned %d events, want 0", got)
	}
}

func TestRegistry_GetObserver(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "noop exists", key: "noop"},
		{name: "slog exists", key: "slog"},
		{name: "trace exists", key: "trace"},
		{name: "unknown fails", key: "nonexistent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := observability.GetObserver(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetObserver(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if !tt.wantErr && obs == nil {
				t.Errorf("GetObserver(%q) returned nil observer", tt.key)
			}
		})
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	rec := &observability.Recorder{}
	observability.RegisterObserver("test-custom", rec)

	obs, err := observability.GetObserver("test-custom")
	if err != nil {
		t.Fatalf("GetObserver() error = %v", err)
	}
	obs.OnEvent(context.Background(), observability.NewEvent("test.event", observability.LevelInfo, "test", nil))

	if len(rec.Events()) != 1 {
		t.Errorf("received %d events, want 1", len(rec.Events()))
	}

	names := strings.Join(observability.Observers(), ",")
	if !strings.Contains(names, "test-custom") {
		t.Errorf("Observers() = %s, want test-custom listed", names)
	}
}

func TestResolve(t *testing.T) {
	first, second := &observability.Recorder{}, &observability.Recorder{}
	observability.RegisterObserver("resolve-first", first)
	observability.RegisterObserver("resolve-second", second)

	tests := []struct {
		name    string
		names   string
		want    string
		wantErr bool
	}{
		{name: "empty yields noop", names: "", want: "observability.NoOpObserver"},
		{name: "single name", names: "resolve-first", want: "*observability.Recorder"},
		{name: "list fans out", names: "resolve-first, resolve-second", want: "*observability.MultiObserver"},
		{name: "unknown name fails", names: "resolve-first,nonexistent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := observability.Resolve(tt.names)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v, wantErr %v", tt.names, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := fmt.Sprintf("%T", obs); got != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.names, got, tt.want)
			}
		})
	}

	obs, err := observability.Resolve("resolve-first,resolve-second")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	obs.OnEvent(context.Background(), observability.NewEvent("persist.delete", observability.LevelInfo, "test", nil))
	if len(first.Events()) != 1 || len(second.Events()) != 1 {
		t.Errorf("observers received %d and %d events, want 1 each", len(first.Events()), len(second.Events()))
	}
}
