package codec

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"slices"
	"time"

	"github.com/golang/snappy"
	"google.golang.org/protobuf/encoding/protowire"
)

// Magic prefixes every Encoded Stream.
const Magic = "GSAV"

// Version is the stream format version written by Marshal.
const Version uint64 = 1

const flagSnappy uint64 = 1 << 0

// Wire field numbers.
const (
	fieldItem    protowire.Number = 1
	fieldName    protowire.Number = 1
	fieldValue   protowire.Number = 2
	fieldKind    protowire.Number = 1
	fieldPayload protowire.Number = 2
	fieldKey     protowire.Number = 1
)

// maxDepth bounds nesting so cyclic values and hostile streams fail cleanly.
const maxDepth = 512

// Limits on the decoded size of a compressed body. A snappy copy element
// expands at most 64 bytes from 2 or 3 input bytes, so a larger claimed ratio
// is corrupt.
const (
	maxBodySize    = 1 << 30
	maxSnappyRatio = 32
)

// Option configures Marshal.
type Option func(*options)

type options struct {
	compress bool
}

// WithCompression snappy-compresses the stream body.
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.compress = enabled
	}
}

// Marshal encodes a struct, or a non-nil pointer to one, into an Encoded
// Stream.
func Marshal(v any, opts ...Option) ([]byte, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil pointer", ErrNotRecord)
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: nil value", ErrNotRecord)
	}

	rec, err := RecordOf(rv.Type())
	if err != nil {
		return nil, err
	}

	body, err := appendRecord(nil, rec, rv, "", 0)
	if err != nil {
		return nil, err
	}

	var flags uint64
	if o.compress {
		flags |= flagSnappy
		body = snappy.Encode(nil, body)
	}

	out := make([]byte, 0, len(Magic)+2+len(body))
	out = append(out, Magic...)
	out = protowire.AppendVarint(out, Version)
	out = protowire.AppendVarint(out, flags)
	return append(out, body...), nil
}

func appendRecord(b []byte, rec *Record, v reflect.Value, path string, depth int) ([]byte, error) {
	if depth > maxDepth {
		return nil, fieldErr(path, fmt.Errorf("%w: nesting exceeds %d levels", ErrUnsupportedType, maxDepth))
	}

	for _, f := range rec.Fields {
		fpath := joinPath(path, f.Name)
		val, err := appendValue(nil, v.FieldByIndex(f.Index), fpath, depth+1)
		if err != nil {
			return nil, err
		}

		var msg []byte
		msg = protowire.AppendTag(msg, fieldName, protowire.BytesType)
		msg = protowire.AppendString(msg, f.Name)
		msg = protowire.AppendTag(msg, fieldValue, protowire.BytesType)
		msg = protowire.AppendBytes(msg, val)

		b = protowire.AppendTag(b, fieldItem, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	return b, nil
}

func appendValue(b []byte, v reflect.Value, path string, depth int) ([]byte, error) {
	if depth > maxDepth {
		return nil, fieldErr(path, fmt.Errorf("%w: nesting exceeds %d levels", ErrUnsupportedType, maxDepth))
	}

	kind, payload, err := encodePayload(v, path, depth)
	if err != nil {
		return nil, err
	}

	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(kind))
	if kind != KindNil {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, payload)
	}
	return b, nil
}

func encodePayload(v reflect.Value, path string, depth int) (Kind, []byte, error) {
	switch v.Kind() {
	case reflect.Bool:
		return KindBool, protowire.AppendVarint(nil, protowire.EncodeBool(v.Bool())), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt, protowire.AppendVarint(nil, protowire.EncodeZigZag(v.Int())), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindUint, protowire.AppendVarint(nil, v.Uint()), nil

	case reflect.Float32:
		return KindFloat32, protowire.AppendFixed32(nil, math.Float32bits(float32(v.Float()))), nil

	case reflect.Float64:
		return KindFloat64, protowire.AppendFixed64(nil, math.Float64bits(v.Float())), nil

	case reflect.String:
		return KindString, []byte(v.String()), nil

	case reflect.Pointer:
		if v.IsNil() {
			return KindNil, nil, nil
		}
		if depth > maxDepth {
			return KindNil, nil, fieldErr(path, fmt.Errorf("%w: nesting exceeds %d levels", ErrUnsupportedType, maxDepth))
		}
		return encodePayload(v.Elem(), path, depth+1)

	case reflect.Slice:
		if v.IsNil() {
			return KindNil, nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return KindBytes, slices.Clone(v.Bytes()), nil
		}
		return encodeList(v, path, depth)

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			raw := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(raw), v)
			return KindBytes, raw, nil
		}
		return encodeList(v, path, depth)

	case reflect.Map:
		if v.IsNil() {
			return KindNil, nil, nil
		}
		return encodeMap(v, path, depth)

	case reflect.Struct:
		if v.Type() == timeType {
			t := v.Interface().(time.Time)
			var p []byte
			p = protowire.AppendVarint(p, protowire.EncodeZigZag(t.Unix()))
			p = protowire.AppendVarint(p, uint64(t.Nanosecond()))
			return KindTime, p, nil
		}
		rec, err := RecordOf(v.Type())
		if err != nil {
			return KindNil, nil, fieldErr(path, err)
		}
		body, err := appendRecord(nil, rec, v, path, depth)
		if err != nil {
			return KindNil, nil, err
		}
		return KindRecord, body, nil

	default:
		return KindNil, nil, fieldErr(path, fmt.Errorf("%w: %s", ErrUnsupportedType, v.Type()))
	}
}

func encodeList(v reflect.Value, path string, depth int) (Kind, []byte, error) {
	var p []byte
	for i := 0; i < v.Len(); i++ {
		item, err := appendValue(nil, v.Index(i), indexPath(path, i), depth+1)
		if err != nil {
			return KindNil, nil, err
		}
		p = protowire.AppendTag(p, fieldItem, protowire.BytesType)
		p = protowire.AppendBytes(p, item)
	}
	return KindList, p, nil
}

func encodeMap(v reflect.Value, path string, depth int) (Kind, []byte, error) {
	if !isMapKey(v.Type().Key()) {
		return KindNil, nil, fieldErr(path, fmt.Errorf("%w: map key %s", ErrUnsupportedType, v.Type().Key()))
	}

	keys := v.MapKeys()
	slices.SortFunc(keys, compareKeys)

	var p []byte
	for _, k := range keys {
		kpath := fmt.Sprintf("%s[%v]", path, k.Interface())
		key, err := appendValue(nil, k, kpath, depth+1)
		if err != nil {
			return KindNil, nil, err
		}
		val, err := appendValue(nil, v.MapIndex(k), kpath, depth+1)
		if err != nil {
			return KindNil, nil, err
		}

		var entry []byte
		entry = protowire.AppendTag(entry, fieldKey, protowire.BytesType)
		entry = protowire.AppendBytes(entry, key)
		entry = protowire.AppendTag(entry, fieldValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, val)

		p = protowire.AppendTag(p, fieldItem, protowire.BytesType)
		p = protowire.AppendBytes(p, entry)
	}
	return KindMap, p, nil
}

// compareKeys orders map keys so identical maps encode to identical bytes.
func compareKeys(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.String:
		return cmp.Compare(a.String(), b.String())
	case reflect.Bool:
		if a.Bool() == b.Bool() {
			return 0
		}
		if !a.Bool() {
			return -1
		}
		return 1
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	default:
		return cmp.Compare(a.Uint(), b.Uint())
	}
}
