package codec

import (
	"fmt"
	"reflect"
	"slices"
)

// Populate overlays decoded field records onto target, a non-nil pointer to a
// struct. Records are matched to fields by name; unmatched records are
// ignored and fields without a record keep their current value.
func Populate(fields []FieldValue, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: target must be a non-nil pointer", ErrNotRecord)
	}
	dst := rv.Elem()
	if dst.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s", ErrNotRecord, dst.Type())
	}

	rec, err := RecordOf(dst.Type())
	if err != nil {
		return err
	}
	return overlay(rec, fields, dst, "", 0)
}

func overlay(rec *Record, fields []FieldValue, dst reflect.Value, path string, depth int) error {
	for _, fv := range fields {
		f, ok := rec.Lookup(fv.Name)
		if !ok {
			continue
		}
		if err := assign(fv.Value, dst.FieldByIndex(f.Index), joinPath(path, f.Name), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func assign(v Value, dst reflect.Value, path string, depth int) error {
	if depth > maxDepth {
		return fieldErr(path, fmt.Errorf("%w: nesting exceeds %d levels", ErrTypeMismatch, maxDepth))
	}
	if v.Kind == KindNil {
		dst.SetZero()
		return nil
	}

	t := dst.Type()
	switch dst.Kind() {
	case reflect.Pointer:
		if dst.IsNil() {
			elem := reflect.New(t.Elem())
			if err := assign(v, elem.Elem(), path, depth+1); err != nil {
				return err
			}
			dst.Set(elem)
			return nil
		}
		return assign(v, dst.Elem(), path, depth+1)

	case reflect.Bool:
		if v.Kind != KindBool {
			return mismatch(path, v.Kind, t)
		}
		dst.SetBool(v.Bool)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Kind != KindInt {
			return mismatch(path, v.Kind, t)
		}
		if dst.OverflowInt(v.Int) {
			return fieldErr(path, fmt.Errorf("%w: %d overflows %s", ErrTypeMismatch, v.Int, t))
		}
		dst.SetInt(v.Int)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Kind != KindUint {
			return mismatch(path, v.Kind, t)
		}
		if dst.OverflowUint(v.Uint) {
			return fieldErr(path, fmt.Errorf("%w: %d overflows %s", ErrTypeMismatch, v.Uint, t))
		}
		dst.SetUint(v.Uint)

	case reflect.Float32, reflect.Float64:
		if v.Kind != KindFloat32 && v.Kind != KindFloat64 {
			return mismatch(path, v.Kind, t)
		}
		if dst.OverflowFloat(v.Float) {
			return fieldErr(path, fmt.Errorf("%w: %g overflows %s", ErrTypeMismatch, v.Float, t))
		}
		dst.SetFloat(v.Float)

	case reflect.String:
		if v.Kind != KindString {
			return mismatch(path, v.Kind, t)
		}
		dst.SetString(v.Text)

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			if v.Kind != KindBytes {
				return mismatch(path, v.Kind, t)
			}
			dst.SetBytes(slices.Clone(v.Bytes))
			return nil
		}
		if v.Kind != KindList {
			return mismatch(path, v.Kind, t)
		}
		out := reflect.MakeSlice(t, len(v.Items), len(v.Items))
		for i, item := range v.Items {
			if err := assign(item, out.Index(i), indexPath(path, i), depth+1); err != nil {
				return err
			}
		}
		dst.Set(out)

	case reflect.Array:
		return assignArray(v, dst, path, depth)

	case reflect.Map:
		if v.Kind != KindMap {
			return mismatch(path, v.Kind, t)
		}
		out := reflect.MakeMapWithSize(t, len(v.Entries))
		for i, e := range v.Entries {
			epath := indexPath(path, i)
			key := reflect.New(t.Key()).Elem()
			if err := assign(e.Key, key, epath, depth+1); err != nil {
				return err
			}
			val := reflect.New(t.Elem()).Elem()
			if err := assign(e.Value, val, epath, depth+1); err != nil {
				return err
			}
			out.SetMapIndex(key, val)
		}
		dst.Set(out)

	case reflect.Struct:
		if t == timeType {
			if v.Kind != KindTime {
				return mismatch(path, v.Kind, t)
			}
			dst.Set(reflect.ValueOf(v.Time))
			return nil
		}
		if v.Kind != KindRecord {
			return mismatch(path, v.Kind, t)
		}
		rec, err := RecordOf(t)
		if err != nil {
			return fieldErr(path, err)
		}
		return overlay(rec, v.Fields, dst, path, depth+1)

	default:
		return fieldErr(path, fmt.Errorf("%w: %s", ErrUnsupportedType, t))
	}
	return nil
}

func assignArray(v Value, dst reflect.Value, path string, depth int) error {
	t := dst.Type()
	if t.Elem().Kind() == reflect.Uint8 {
		if v.Kind != KindBytes {
			return mismatch(path, v.Kind, t)
		}
		if len(v.Bytes) > t.Len() {
			return fieldErr(path, fmt.Errorf("%w: %d bytes do not fit %s", ErrTypeMismatch, len(v.Bytes), t))
		}
		dst.SetZero()
		reflect.Copy(dst, reflect.ValueOf(v.Bytes))
		return nil
	}

	if v.Kind != KindList {
		return mismatch(path, v.Kind, t)
	}
	if len(v.Items) > t.Len() {
		return fieldErr(path, fmt.Errorf("%w: %d items do not fit %s", ErrTypeMismatch, len(v.Items), t))
	}
	dst.SetZero()
	for i, item := range v.Items {
		if err := assign(item, dst.Index(i), indexPath(path, i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func mismatch(path string, got Kind, want reflect.Type) error {
	return fieldErr(path, fmt.Errorf("%w: stored %s, declared %s", ErrTypeMismatch, got, want))
}
