// Package codec implements the Encoded Stream, a self-describing binary
// encoding for Go structs that tolerates schema evolution.
//
// Every field is written as a record tagged with its name, so decoding
// locates fields by identity rather than position. A stream written from an
// older version of a struct decodes into a newer version (added fields keep
// their defaults) and a stream written from a newer version decodes into an
// older one (unknown records are skipped).
//
// Layout:
//
//	stream  = "GSAV" version:varint flags:varint body
//	body    = { 1:record }            ; snappy-compressed when flags&1
//	record  = { 1:name:string  2:value }
//	value   = { 1:kind:varint  2:payload:bytes }
//
// All messages use protobuf wire framing (tag, length, value). Record and
// list payloads are repeated field 1 messages; map payloads are repeated
// field 1 entries of { 1:key:value 2:value:value }. Unknown field numbers are
// skipped at every level.
//
// A time.Time payload is two varints: zigzag Unix seconds, then nanoseconds.
// Times decode in UTC. The instant round-trips (Equal reports true) but the
// original Location does not, so == and reflect.DeepEqual can differ for
// non-UTC input.
//
// The save tag holds a bare name or "-". Tag options after a comma are
// rejected.
//
// Field identity defaults to the Go field name and can be overridden with a
// struct tag:
//
//	type Save struct {
//		ID    int
//		Name  string `save:"name"`
//		Cache []byte `save:"-"`
//	}
package codec
