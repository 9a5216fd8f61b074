package codec

import (
	"fmt"
	"time"
)

// Kind identifies how a value's payload is encoded.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat32
	KindFloat64
	KindString
	KindBytes
	KindTime
	KindRecord
	KindList
	KindMap
)

var kindNames = [...]string{
	KindNil:     "nil",
	KindBool:    "bool",
	KindInt:     "int",
	KindUint:    "uint",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindString:  "string",
	KindBytes:   "bytes",
	KindTime:    "time",
	KindRecord:  "record",
	KindList:    "list",
	KindMap:     "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Stream is a decoded Encoded Stream: header information plus the top-level
// field records in the order they were written.
type Stream struct {
	Version    uint64
	Compressed bool
	Fields     []FieldValue
}

// FieldValue is one field record: the field's identity and its value.
type FieldValue struct {
	Name  string
	Value Value
}

// Entry is one key/value pair of a map value.
type Entry struct {
	Key   Value
	Value Value
}

// Value is a self-describing decoded value. Only the members matching Kind
// are meaningful.
type Value struct {
	Kind    Kind
	Bool    bool
	Int     int64
	Uint    uint64
	Float   float64
	Text    string
	Bytes   []byte
	Time    time.Time
	Fields  []FieldValue
	Items   []Value
	Entries []Entry
}

// String renders the value compactly for diagnostics.
func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return fmt.Sprint(v.Bool)
	case KindInt:
		return fmt.Sprint(v.Int)
	case KindUint:
		return fmt.Sprint(v.Uint)
	case KindFloat32, KindFloat64:
		return fmt.Sprint(v.Float)
	case KindString:
		return fmt.Sprintf("%q", v.Text)
	case KindBytes:
		return fmt.Sprintf("bytes[%d]", len(v.Bytes))
	case KindTime:
		return v.Time.Format(time.RFC3339Nano)
	case KindRecord:
		return fmt.Sprintf("record{%d fields}", len(v.Fields))
	case KindList:
		return fmt.Sprintf("list[%d]", len(v.Items))
	case KindMap:
		return fmt.Sprintf("map[%d]", len(v.Entries))
	default:
		return v.Kind.String()
	}
}
