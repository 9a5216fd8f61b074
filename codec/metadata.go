package codec

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

const tagKey = "save"

var timeType = reflect.TypeFor[time.Time]()

// Record describes the persisted shape of a struct type.
type Record struct {
	Type   reflect.Type
	Fields []Field

	byName map[string]int
}

// Field describes one persisted struct field. Name is the identity written
// to the stream; GoName is the declared Go field name.
type Field struct {
	Name   string
	GoName string
	Index  []int
	Type   reflect.Type
}

// Lookup returns the field whose stream identity is name.
func (r *Record) Lookup(name string) (Field, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Field{}, false
	}
	return r.Fields[i], true
}

var records sync.Map // map[reflect.Type]*Record

// RecordOf returns the cached record description for a struct type, a
// pointer to one, or a value of either.
func RecordOf(target any) (*Record, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: nil target", ErrNotRecord)
	}
	t, ok := target.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(target)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return recordOf(t, make(map[reflect.Type]bool))
}

func recordOf(t reflect.Type, visiting map[reflect.Type]bool) (*Record, error) {
	if t.Kind() != reflect.Struct || t == timeType {
		return nil, fmt.Errorf("%w: %s", ErrNotRecord, t)
	}
	if cached, ok := records.Load(t); ok {
		return cached.(*Record), nil
	}
	if visiting[t] {
		// Recursive types are resolved lazily through pointers, slices or maps.
		return nil, nil
	}
	visiting[t] = true
	defer delete(visiting, t)

	rec := &Record{
		Type:   t,
		Fields: make([]Field, 0, t.NumField()),
		byName: make(map[string]int, t.NumField()),
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		name, skip, err := parseTag(sf)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		if _, dup := rec.byName[name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate field name %q", ErrUnsupportedType, t, name)
		}

		if err := checkType(sf.Type, visiting); err != nil {
			return nil, &FieldError{Path: name, Err: err}
		}

		rec.byName[name] = len(rec.Fields)
		rec.Fields = append(rec.Fields, Field{
			Name:   name,
			GoName: sf.Name,
			Index:  sf.Index,
			Type:   sf.Type,
		})
	}

	actual, _ := records.LoadOrStore(t, rec)
	return actual.(*Record), nil
}

// parseTag reads the `save` tag. The tag holds a bare name or "-"; options
// after a comma are rejected rather than silently ignored.
func parseTag(sf reflect.StructField) (name string, skip bool, err error) {
	tag := sf.Tag.Get(tagKey)
	if tag == "-" {
		return "", true, nil
	}
	if strings.Contains(tag, ",") {
		return "", false, fmt.Errorf("%w: field %s: tag options are not supported: %q", ErrUnsupportedType, sf.Name, tag)
	}
	name = strings.TrimSpace(tag)
	if name == "" {
		name = sf.Name
	}
	return name, false, nil
}

// checkType reports whether values of t can be represented in a stream.
// A type already under inspection is accepted: self-referencing pointers,
// slices and maps are finite in any encodable value, and encode and decode
// bound their nesting.
func checkType(t reflect.Type, visiting map[reflect.Type]bool) error {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		if visiting[t] {
			return nil
		}
		visiting[t] = true
		defer delete(visiting, t)
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil
	case reflect.Pointer:
		return checkType(t.Elem(), visiting)
	case reflect.Slice, reflect.Array:
		return checkType(t.Elem(), visiting)
	case reflect.Map:
		if !isMapKey(t.Key()) {
			return fmt.Errorf("%w: map key %s", ErrUnsupportedType, t.Key())
		}
		return checkType(t.Elem(), visiting)
	case reflect.Struct:
		if t == timeType {
			return nil
		}
		_, err := recordOf(t, visiting)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
}

func isMapKey(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
