// Package persist saves structured values to a storage backend and loads
// them back while tolerating schema evolution. Load never fails outwardly:
// a missing, unreadable, or incompatible entry yields a fresh default value
// and the problem is reported to the configured observer.
package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/creasty/defaults"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/gamesave/codec"
	"github.com/tailored-agentic-units/gamesave/observability"
	"github.com/tailored-agentic-units/gamesave/storage"
)

// TracerName is the instrumentation scope of engine spans.
const TracerName = "gamesave.persist"

// Option configures an Engine.
type Option func(*Engine)

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger also reports events to logger through an
// observability.SlogObserver. An observer set earlier keeps receiving
// events alongside the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		logObs := observability.NewSlogObserver(logger)
		switch e.observer.(type) {
		case nil, observability.NoOpObserver:
			e.observer = logObs
		default:
			e.observer = observability.NewMultiObserver(e.observer, logObs)
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(TracerName) }
}

// WithCompression snappy-compresses stream bodies on Save. Load accepts
// both forms regardless of this setting.
func WithCompression(enabled bool) Option {
	return func(e *Engine) { e.compress = enabled }
}

// Engine is stateless between calls: every operation goes straight to the
// backend and nothing is cached. It performs no locking of its own.
type Engine struct {
	backend  storage.Backend
	observer observability.Observer
	tracer   trace.Tracer
	compress bool
}

// New creates an Engine over backend.
func New(backend storage.Backend, opts ...Option) (*Engine, error) {
	if backend == nil {
		return nil, errors.New("persist: backend is required")
	}

	e := &Engine{
		backend:  backend,
		observer: observability.NoOpObserver{},
		tracer:   otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.observer == nil {
		e.observer = observability.NoOpObserver{}
	}
	return e, nil
}

// NewFromConfig opens the configured storage driver and applies the
// configured compression and observers. Config.Observer may name several
// registered observers separated by commas. Options run afterwards.
func NewFromConfig(cfg *Config, opts ...Option) (*Engine, error) {
	backend, err := storage.Open(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	obs, err := observability.Resolve(cfg.Observer)
	if err != nil {
		closeBackend(backend)
		return nil, err
	}
	base := []Option{WithCompression(cfg.Compress), WithObserver(obs)}
	return New(backend, append(base, opts...)...)
}

// Backend returns the underlying storage backend.
func (e *Engine) Backend() storage.Backend {
	return e.backend
}

// Close releases the backend when it holds resources (database handles).
func (e *Engine) Close() error {
	if c, ok := e.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Save encodes v and writes it under name. Encoding completes before the
// backend is touched, so an encode failure never disturbs existing content.
func (e *Engine) Save(ctx context.Context, name string, v any) (err error) {
	ctx, span := e.tracer.Start(ctx, "persist.Save", trace.WithAttributes(attribute.String("gamesave.name", name)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.emit(ctx, EventSaveFailed, observability.LevelError, "persist.Save", map[string]any{
				"name":  name,
				"error": err.Error(),
			})
		}
		span.End()
	}()

	if _, err := storage.CleanName(name); err != nil {
		return err
	}

	e.emit(ctx, EventSaveStart, observability.LevelVerbose, "persist.Save", map[string]any{"name": name})

	data, err := codec.Marshal(v, codec.WithCompression(e.compress))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEncode, name, err)
	}
	span.SetAttributes(attribute.Int("gamesave.bytes", len(data)))

	if err := e.backend.Write(ctx, name, data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBackendWrite, name, err)
	}

	e.emit(ctx, EventSaveComplete, observability.LevelInfo, "persist.Save", map[string]any{
		"name":       name,
		"bytes":      len(data),
		"compressed": e.compress,
	})
	return nil
}

// Load returns the value stored under name, or a fresh default of T when the
// entry is missing or cannot be decoded. T is a struct or a pointer to a
// struct. A fresh default is the zero value with `default:"..."` struct tags
// and any SetDefaults method applied.
func Load[T any](ctx context.Context, e *Engine, name string) T {
	var v T
	_ = e.LoadInto(ctx, name, &v)
	return v
}

// LoadInto is Load for callers holding a pointer. *target always ends up a
// usable value; the returned error explains why it is the default. A missing
// entry is not an error.
func (e *Engine) LoadInto(ctx context.Context, name string, target any) (err error) {
	ctx, span := e.tracer.Start(ctx, "persist.Load", trace.WithAttributes(attribute.String("gamesave.name", name)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.emit(ctx, EventLoadFailed, observability.LevelWarning, "persist.Load", map[string]any{
				"name":  name,
				"error": err.Error(),
			})
		}
		span.End()
	}()

	record, err := freshDefault(target)
	if err != nil {
		return err
	}
	if _, err := storage.CleanName(name); err != nil {
		return err
	}

	exists, err := e.backend.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBackendRead, name, err)
	}
	if !exists {
		e.emitMissing(ctx, name)
		return nil
	}

	data, err := e.backend.Read(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.emitMissing(ctx, name)
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrBackendRead, name, err)
	}
	span.SetAttributes(attribute.Int("gamesave.bytes", len(data)))

	if err := codec.Unmarshal(data, record); err != nil {
		// Partial overlays never escape: the caller gets a brand-new default.
		if _, derr := freshDefault(target); derr != nil {
			return derr
		}
		return fmt.Errorf("%w: %s: %w", ErrDecode, name, err)
	}

	e.emit(ctx, EventLoadComplete, observability.LevelInfo, "persist.Load", map[string]any{
		"name":  name,
		"bytes": len(data),
	})
	return nil
}

// Exists reports whether name is stored. Backend failures are reported to
// the observer and count as absent.
func (e *Engine) Exists(ctx context.Context, name string) bool {
	ok, err := e.backend.Exists(ctx, name)
	if err != nil {
		e.emit(ctx, EventExistsFailed, observability.LevelWarning, "persist.Exists", map[string]any{
			"name":  name,
			"error": err.Error(),
		})
		return false
	}
	return ok
}

// Delete removes name. Deleting a missing name succeeds.
func (e *Engine) Delete(ctx context.Context, name string) error {
	if err := e.backend.Delete(ctx, name); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBackendWrite, name, err)
	}
	e.emit(ctx, EventDelete, observability.LevelInfo, "persist.Delete", map[string]any{"name": name})
	return nil
}

// ResolvePath returns the backend's location for name without touching
// storage.
func (e *Engine) ResolvePath(name string) string {
	return e.backend.ResolvePath(name)
}

// List returns the stored names when the backend supports enumeration.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	lister, ok := e.backend.(storage.Lister)
	if !ok {
		return nil, ErrNoList
	}
	names, err := lister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendRead, err)
	}
	return names, nil
}

func (e *Engine) emit(ctx context.Context, typ observability.EventType, level observability.Level, source string, data map[string]any) {
	e.observer.OnEvent(ctx, observability.NewEvent(typ, level, source, data))
}

func (e *Engine) emitMissing(ctx context.Context, name string) {
	e.emit(ctx, EventLoadMissing, observability.LevelVerbose, "persist.Load", map[string]any{"name": name})
}

// freshDefault resets the value target points at to a fresh default and
// returns a pointer to the struct that decoding overlays. Pointer-to-struct
// targets receive a newly allocated struct.
func freshDefault(target any) (any, error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("%w: target must be a non-nil pointer, got %T", codec.ErrNotRecord, target)
	}

	dst := rv.Elem()
	if dst.Kind() == reflect.Pointer {
		if dst.Type().Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: %s", codec.ErrNotRecord, dst.Type())
		}
		dst.Set(reflect.New(dst.Type().Elem()))
		dst = dst.Elem()
	}
	if dst.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", codec.ErrNotRecord, dst.Type())
	}

	dst.SetZero()
	record := dst.Addr().Interface()
	if err := defaults.Set(record); err != nil {
		return nil, fmt.Errorf("apply defaults to %s: %w", dst.Type(), err)
	}
	return record, nil
}

func closeBackend(b storage.Backend) {
	if c, ok := b.(io.Closer); ok {
		_ = c.Close()
	}
}
