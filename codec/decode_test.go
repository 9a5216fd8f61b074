package codec_test

import (
	"errors"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tailored-agentic-units/gamesave/codec"
)

func TestDecode_Inspect(t *testing.T) {
	data, err := codec.Marshal(saveV2{ID: 1, Name: "Hi", Level: 3})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	s, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if s.Version != codec.Version {
		t.Errorf("Version = %d, want %d", s.Version, codec.Version)
	}
	if s.Compressed {
		t.Error("Compressed = true, want false")
	}

	want := []struct {
		name string
		kind codec.Kind
		repr string
	}{
		{name: "ID", kind: codec.KindInt, repr: "1"},
		{name: "Name", kind: codec.KindString, repr: `"Hi"`},
		{name: "Level", kind: codec.KindInt, repr: "3"},
	}
	if len(s.Fields) != len(want) {
		t.Fatalf("Decode() returned %d fields, want %d", len(s.Fields), len(want))
	}
	for i, w := range want {
		f := s.Fields[i]
		if f.Name != w.name {
			t.Errorf("Fields[%d].Name = %q, want %q", i, f.Name, w.name)
		}
		if f.Value.Kind != w.kind {
			t.Errorf("Fields[%d].Kind = %v, want %v", i, f.Value.Kind, w.kind)
		}
		if got := f.Value.String(); got != w.repr {
			t.Errorf("Fields[%d].String() = %q, want %q", i, got, w.repr)
		}
	}
}

func TestDecode_Corrupt(t *testing.T) {
	valid, err := codec.Marshal(sampleFull())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty", data: nil, want: codec.ErrMalformed},
		{name: "garbage", data: []byte("this is not a save file at all"), want: codec.ErrMalformed},
		{name: "header only", data: []byte(codec.Magic), want: codec.ErrMalformed},
		{name: "truncated", data: valid[:len(valid)-1], want: codec.ErrMalformed},
		{name: "future version", data: header(codec.Version+1, 0), want: codec.ErrVersion},
		{name: "zero version", data: header(0, 0), want: codec.ErrVersion},
		{name: "bad snappy body", data: append(header(codec.Version, 1), 0xff, 0xff, 0xff), want: codec.ErrMalformed},
		{name: "oversized snappy length", data: append(header(codec.Version, 1), 0xff, 0xff, 0xff, 0xff, 0x0f), want: codec.ErrMalformed},
		{name: "snappy length beyond ratio", data: append(header(codec.Version, 1), 0x80, 0x80, 0x04, 0x00), want: codec.ErrMalformed},
		{name: "unknown kind", data: streamWith("X", value(99, nil)), want: codec.ErrMalformed},
		{name: "bad bool", data: streamWith("X", value(uint64(codec.KindBool), protowire.AppendVarint(nil, 7))), want: codec.ErrMalformed},
		{name: "short float", data: streamWith("X", value(uint64(codec.KindFloat64), []byte{1, 2})), want: codec.ErrMalformed},
		{name: "record without name", data: append(header(codec.Version, 0), item1(value(uint64(codec.KindInt), []byte{2}))...), want: codec.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}

			var v saveV1
			if err := codec.Unmarshal(tt.data, &v); err == nil {
				t.Error("Unmarshal() error = nil, want failure")
			}
		})
	}
}

func TestDecode_MalformedRemovedFieldStillFails(t *testing.T) {
	data := streamWith("Removed", value(uint64(codec.KindFloat32), []byte{1}))

	var v saveV1
	if err := codec.Unmarshal(data, &v); !errors.Is(err, codec.ErrMalformed) {
		t.Errorf("Unmarshal() error = %v, want %v", err, codec.ErrMalformed)
	}
}

func TestDecode_SkipsUnknownWireFields(t *testing.T) {
	val := value(uint64(codec.KindInt), protowire.AppendVarint(nil, protowire.EncodeZigZag(9)))
	val = protowire.AppendTag(val, 15, protowire.VarintType)
	val = protowire.AppendVarint(val, 1)

	var rec []byte
	rec = protowire.AppendTag(rec, 1, protowire.BytesType)
	rec = protowire.AppendString(rec, "ID")
	rec = protowire.AppendTag(rec, 7, protowire.Fixed64Type)
	rec = protowire.AppendFixed64(rec, 123)
	rec = protowire.AppendTag(rec, 2, protowire.BytesType)
	rec = protowire.AppendBytes(rec, val)

	data := header(codec.Version, 0)
	data = protowire.AppendTag(data, 9, protowire.BytesType)
	data = protowire.AppendString(data, "future metadata")
	data = protowire.AppendTag(data, 1, protowire.BytesType)
	data = protowire.AppendBytes(data, rec)

	var v saveV1
	if err := codec.Unmarshal(data, &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v.ID != 9 {
		t.Errorf("ID = %d, want 9", v.ID)
	}
}

func TestDecode_DuplicateRecordLastWins(t *testing.T) {
	data := header(codec.Version, 0)
	for _, n := range []int64{1, 2} {
		data = append(data, record("ID", value(uint64(codec.KindInt), protowire.AppendVarint(nil, protowire.EncodeZigZag(n))))...)
	}

	var v saveV1
	if err := codec.Unmarshal(data, &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v.ID != 2 {
		t.Errorf("ID = %d, want 2", v.ID)
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind codec.Kind
		want string
	}{
		{kind: codec.KindNil, want: "nil"},
		{kind: codec.KindRecord, want: "record"},
		{kind: codec.KindMap, want: "map"},
		{kind: codec.Kind(200), want: "kind(200)"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func header(version, flags uint64) []byte {
	b := []byte(codec.Magic)
	b = protowire.AppendVarint(b, version)
	return protowire.AppendVarint(b, flags)
}

func value(kind uint64, payload []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, kind)
	if payload != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, payload)
	}
	return b
}

func item1(msg []byte) []byte {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func record(name string, val []byte) []byte {
	var rec []byte
	rec = protowire.AppendTag(rec, 1, protowire.BytesType)
	rec = protowire.AppendString(rec, name)
	rec = protowire.AppendTag(rec, 2, protowire.BytesType)
	rec = protowire.AppendBytes(rec, val)
	return item1(rec)
}

func streamWith(name string, val []byte) []byte {
	return append(header(codec.Version, 0), record(name, val)...)
}
