// Package bolt provides a storage.Backend that keeps saves as keys in a single
// BoltDB file. Importing the package registers the "bolt" driver.
package bolt

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/boltdb/bolt"

	"github.com/tailored-agentic-units/gamesave/storage"
)

var savesBucket = []byte("saves")

func init() {
	storage.Register("bolt", func(cfg *storage.Config) (storage.Backend, error) {
		return Open(cfg.Path)
	})
}

// Store persists saves in a BoltDB bucket. Every Write runs in its own
// read-write transaction, so a save is either fully committed or absent.
type Store struct {
	db   *bolt.DB
	path string
}

// Open opens (or creates) the database file at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)

	db, err := bolt.Open(cleanPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(savesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Store{db: db, path: cleanPath}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ResolvePath(name string) string {
	return "bolt://" + filepath.ToSlash(s.path) + "#" + name
}

// lookup reports the value stored under key. Cursor seeks distinguish an
// empty value from a missing key.
func lookup(b *bolt.Bucket, key []byte) ([]byte, bool) {
	k, v := b.Cursor().Seek(key)
	if k == nil || !bytes.Equal(k, key) {
		return nil, false
	}
	return v, true
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key, err := storage.CleanName(name)
	if err != nil {
		return false, err
	}

	var found bool
	err = s.db.View(func(tx *bolt.Tx) error {
		_, found = lookup(tx.Bucket(savesBucket), []byte(key))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", storage.ErrReadFailed, name, err)
	}
	return found, nil
}

func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := storage.CleanName(name)
	if err != nil {
		return nil, err
	}

	var (
		data  []byte
		found bool
	)
	err = s.db.View(func(tx *bolt.Tx) error {
		var v []byte
		v, found = lookup(tx.Bucket(savesBucket), []byte(key))
		if found {
			// Values are only valid for the life of the transaction.
			data = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrReadFailed, name, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	return data, nil
}

func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := storage.CleanName(name)
	if err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(savesBucket).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", storage.ErrWriteFailed, name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := storage.CleanName(name)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(savesBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", storage.ErrWriteFailed, name, err)
	}
	return nil
}

// List returns stored names in key order, which is lexical.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(savesBucket).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrReadFailed, err)
	}
	return names, nil
}
