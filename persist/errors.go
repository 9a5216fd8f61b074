package persist

import (
	"errors"

	"github.com/tailored-agentic-units/gamesave/storage"
)

// Sentinel errors for engine operations. Returned errors also wrap the
// underlying codec or storage error.
var (
	ErrEncode       = errors.New("encode failed")
	ErrBackendWrite = errors.New("backend write failed")
	ErrBackendRead  = errors.New("backend read failed")
	ErrDecode       = errors.New("decode failed")
	ErrInvalidName  = storage.ErrInvalidName
	ErrNoList       = errors.New("backend does not support listing")
)
