package codec

import (
	"errors"
	"fmt"
)

// Sentinel errors for stream encoding and decoding.
var (
	ErrNotRecord       = errors.New("not a record type")
	ErrUnsupportedType = errors.New("unsupported type")
	ErrMalformed       = errors.New("malformed stream")
	ErrVersion         = errors.New("unsupported stream version")
	ErrTypeMismatch    = errors.New("type mismatch")
)

// FieldError locates an encode or decode failure at a dotted field path,
// e.g. "inventory.items[2].count".
type FieldError struct {
	Path string
	Err  error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Path, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldErr(path string, err error) error {
	var fe *FieldError
	if errors.As(err, &fe) {
		return err
	}
	return &FieldError{Path: path, Err: err}
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func indexPath(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}
