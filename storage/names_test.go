package storage_test

import (
	"errors"
	"testing"

	"github.com/tailored-agentic-units/gamesave/storage"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "simple", input: "save.dat", want: "save.dat"},
		{name: "nested", input: "slot1/save.dat", want: "slot1/save.dat"},
		{name: "backslashes", input: `slot1\save.dat`, want: "slot1/save.dat"},
		{name: "dot segments", input: "slot1/../slot2/./save.dat", want: "slot2/save.dat"},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
		{name: "absolute", input: "/etc/passwd", wantErr: true},
		{name: "escape", input: "../save.dat", wantErr: true},
		{name: "dot", input: ".", wantErr: true},
		{name: "nul", input: "save\x00.dat", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.CleanName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CleanName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, storage.ErrInvalidName) {
					t.Errorf("CleanName(%q) error = %v, want %v", tt.input, err, storage.ErrInvalidName)
				}
				return
			}
			if got != tt.want {
				t.Errorf("CleanName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
