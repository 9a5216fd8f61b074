package codec

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/golang/snappy"
	"google.golang.org/protobuf/encoding/protowire"
)

// Unmarshal decodes an Encoded Stream into target, which must be a non-nil
// pointer to a struct. Fields present in the stream overwrite the matching
// fields of *target; fields missing from the stream are left untouched and
// stream records with no matching field are skipped. On error *target may be
// partially populated.
func Unmarshal(data []byte, target any) error {
	s, err := Decode(data)
	if err != nil {
		return err
	}
	return Populate(s.Fields, target)
}

// Decode parses and validates a whole Encoded Stream into its intermediate,
// type-independent form.
func Decode(data []byte) (*Stream, error) {
	if !bytes.HasPrefix(data, []byte(Magic)) {
		return nil, fmt.Errorf("%w: missing %q header", ErrMalformed, Magic)
	}
	rest := data[len(Magic):]

	version, n := protowire.ConsumeVarint(rest)
	if n < 0 {
		return nil, fmt.Errorf("%w: version: %v", ErrMalformed, protowire.ParseError(n))
	}
	rest = rest[n:]
	if version == 0 || version > Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, version)
	}

	flags, n := protowire.ConsumeVarint(rest)
	if n < 0 {
		return nil, fmt.Errorf("%w: flags: %v", ErrMalformed, protowire.ParseError(n))
	}
	rest = rest[n:]

	s := &Stream{Version: version, Compressed: flags&flagSnappy != 0}
	if s.Compressed {
		n, err := snappy.DecodedLen(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if n > maxBodySize || n > maxSnappyRatio*len(rest) {
			return nil, fmt.Errorf("%w: compressed body claims %d bytes from %d", ErrMalformed, n, len(rest))
		}
		body, err := snappy.Decode(nil, rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		rest = body
	}

	fields, err := parseRecord(rest, "", 0)
	if err != nil {
		return nil, err
	}
	s.Fields = fields
	return s, nil
}

// eachItem calls fn with the payload of every field-1 bytes element in b,
// skipping unknown fields.
func eachItem(b []byte, path string, fn func(item []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(path, protowire.ParseError(n))
		}
		b = b[n:]

		if num == fieldItem && typ == protowire.BytesType {
			item, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return malformed(path, protowire.ParseError(n))
			}
			b = b[n:]
			if err := fn(item); err != nil {
				return err
			}
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return malformed(path, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

func parseRecord(b []byte, path string, depth int) ([]FieldValue, error) {
	if depth > maxDepth {
		return nil, malformed(path, fmt.Errorf("nesting exceeds %d levels", maxDepth))
	}

	var fields []FieldValue
	err := eachItem(b, path, func(item []byte) error {
		var (
			name    string
			hasName bool
			raw     []byte
		)
		for len(item) > 0 {
			num, typ, n := protowire.ConsumeTag(item)
			if n < 0 {
				return malformed(path, protowire.ParseError(n))
			}
			item = item[n:]

			switch {
			case num == fieldName && typ == protowire.BytesType:
				v, n := protowire.ConsumeString(item)
				if n < 0 {
					return malformed(path, protowire.ParseError(n))
				}
				name, hasName = v, true
				item = item[n:]
			case num == fieldValue && typ == protowire.BytesType:
				v, n := protowire.ConsumeBytes(item)
				if n < 0 {
					return malformed(path, protowire.ParseError(n))
				}
				raw = v
				item = item[n:]
			default:
				n := protowire.ConsumeFieldValue(num, typ, item)
				if n < 0 {
					return malformed(path, protowire.ParseError(n))
				}
				item = item[n:]
			}
		}
		if !hasName {
			return malformed(path, fmt.Errorf("record without name"))
		}

		fpath := joinPath(path, name)
		v, err := parseValue(raw, fpath, depth+1)
		if err != nil {
			return err
		}
		fields = append(fields, FieldValue{Name: name, Value: v})
		return nil
	})
	return fields, err
}

func parseValue(b []byte, path string, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, malformed(path, fmt.Errorf("nesting exceeds %d levels", maxDepth))
	}

	var (
		kind    uint64
		payload []byte
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Value{}, malformed(path, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Value{}, malformed(path, protowire.ParseError(n))
			}
			kind = v
			b = b[n:]
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Value{}, malformed(path, protowire.ParseError(n))
			}
			payload = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Value{}, malformed(path, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	v := Value{Kind: Kind(kind)}
	switch v.Kind {
	case KindNil:
		return v, nil

	case KindBool:
		x, err := consumeScalarVarint(payload, path)
		if err != nil {
			return Value{}, err
		}
		if x > 1 {
			return Value{}, malformed(path, fmt.Errorf("bool value %d", x))
		}
		v.Bool = protowire.DecodeBool(x)

	case KindInt:
		x, err := consumeScalarVarint(payload, path)
		if err != nil {
			return Value{}, err
		}
		v.Int = protowire.DecodeZigZag(x)

	case KindUint:
		x, err := consumeScalarVarint(payload, path)
		if err != nil {
			return Value{}, err
		}
		v.Uint = x

	case KindFloat32:
		if len(payload) != 4 {
			return Value{}, malformed(path, fmt.Errorf("float32 payload of %d bytes", len(payload)))
		}
		x, _ := protowire.ConsumeFixed32(payload)
		v.Float = float64(math.Float32frombits(x))

	case KindFloat64:
		if len(payload) != 8 {
			return Value{}, malformed(path, fmt.Errorf("float64 payload of %d bytes", len(payload)))
		}
		x, _ := protowire.ConsumeFixed64(payload)
		v.Float = math.Float64frombits(x)

	case KindString:
		v.Text = string(payload)

	case KindBytes:
		v.Bytes = slices.Clone(payload)
		if v.Bytes == nil {
			v.Bytes = []byte{}
		}

	case KindTime:
		sec, n := protowire.ConsumeVarint(payload)
		if n < 0 {
			return Value{}, malformed(path, protowire.ParseError(n))
		}
		nsec, m := protowire.ConsumeVarint(payload[n:])
		if m < 0 {
			return Value{}, malformed(path, protowire.ParseError(m))
		}
		if n+m != len(payload) || nsec >= uint64(time.Second) {
			return Value{}, malformed(path, fmt.Errorf("invalid time payload"))
		}
		v.Time = time.Unix(protowire.DecodeZigZag(sec), int64(nsec)).UTC()

	case KindRecord:
		fields, err := parseRecord(payload, path, depth+1)
		if err != nil {
			return Value{}, err
		}
		v.Fields = fields

	case KindList:
		v.Items = []Value{}
		err := eachItem(payload, path, func(item []byte) error {
			elem, err := parseValue(item, indexPath(path, len(v.Items)), depth+1)
			if err != nil {
				return err
			}
			v.Items = append(v.Items, elem)
			return nil
		})
		if err != nil {
			return Value{}, err
		}

	case KindMap:
		v.Entries = []Entry{}
		err := eachItem(payload, path, func(item []byte) error {
			e, err := parseEntry(item, indexPath(path, len(v.Entries)), depth+1)
			if err != nil {
				return err
			}
			v.Entries = append(v.Entries, e)
			return nil
		})
		if err != nil {
			return Value{}, err
		}

	default:
		return Value{}, malformed(path, fmt.Errorf("unknown kind %d", kind))
	}
	return v, nil
}

func parseEntry(b []byte, path string, depth int) (Entry, error) {
	var (
		e              Entry
		hasKey, hasVal bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Entry{}, malformed(path, protowire.ParseError(n))
		}
		b = b[n:]

		if typ == protowire.BytesType && (num == fieldKey || num == fieldValue) {
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Entry{}, malformed(path, protowire.ParseError(n))
			}
			b = b[n:]

			v, err := parseValue(raw, path, depth+1)
			if err != nil {
				return Entry{}, err
			}
			if num == fieldKey {
				e.Key, hasKey = v, true
			} else {
				e.Value, hasVal = v, true
			}
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return Entry{}, malformed(path, protowire.ParseError(n))
		}
		b = b[n:]
	}
	if !hasKey || !hasVal {
		return Entry{}, malformed(path, fmt.Errorf("incomplete map entry"))
	}
	return e, nil
}

func consumeScalarVarint(payload []byte, path string) (uint64, error) {
	x, n := protowire.ConsumeVarint(payload)
	if n < 0 {
		return 0, malformed(path, protowire.ParseError(n))
	}
	if n != len(payload) {
		return 0, malformed(path, fmt.Errorf("trailing bytes after varint"))
	}
	return x, nil
}

func malformed(path string, err error) error {
	if path == "" {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &FieldError{Path: path, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
}
