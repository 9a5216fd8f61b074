package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/tailored-agentic-units/gamesave/codec"
)

// dumpFields writes one line per field, descending into records, lists and
// maps with two spaces of indentation per level.
func dumpFields(w io.Writer, fields []codec.FieldValue, depth int) {
	for _, f := range fields {
		dumpValue(w, f.Name, f.Value, depth)
	}
}

func dumpValue(w io.Writer, label string, v codec.Value, depth int) {
	fmt.Fprintf(w, "%s%s: %s\n", strings.Repeat("  ", depth), label, v)

	switch v.Kind {
	case codec.KindRecord:
		dumpFields(w, v.Fields, depth+1)
	case codec.KindList:
		for i, item := range v.Items {
			dumpValue(w, fmt.Sprintf("[%d]", i), item, depth+1)
		}
	case codec.KindMap:
		for _, e := range v.Entries {
			dumpValue(w, "["+e.Key.String()+"]", e.Value, depth+1)
		}
	}
}
