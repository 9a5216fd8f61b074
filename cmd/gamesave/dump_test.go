package main

import (
	"bytes"
	"testing"

	"github.com/tailored-agentic-units/gamesave/codec"
)

type inventory struct {
	Items []item
	Tags  map[string]int
}

type item struct {
	Count int
}

type saveFile struct {
	Name      string
	Inventory inventory
}

func TestDumpFields(t *testing.T) {
	data, err := codec.Marshal(saveFile{
		Name: "Hi",
		Inventory: inventory{
			Items: []item{{Count: 3}},
			Tags:  map[string]int{"gold": 10},
		},
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	var buf bytes.Buffer
	dumpFields(&buf, s.Fields, 0)

	want := `Name: "Hi"
Inventory: record{2 fields}
  Items: list[1]
    [0]: record{1 fields}
      Count: 3
  Tags: map[1]
    ["gold"]: 10
`
	if got := buf.String(); got != want {
		t.Errorf("dumpFields() =\n%s\nwant\n%s", got, want)
	}
}

func TestNameArg(t *testing.T) {
	if _, err := nameArg(nil); err == nil {
		t.Error("nameArg(nil) error = nil, want error")
	}
	if got, err := nameArg([]string{"save.dat"}); err != nil || got != "save.dat" {
		t.Errorf("nameArg() = %q, %v", got, err)
	}
}
