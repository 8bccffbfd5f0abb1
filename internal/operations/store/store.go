// Package store persists small keyed records as individual files. Every
// write goes through a temporary file and a rename so a crash never leaves
// a half-written record.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/files"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("record not found")

// Store is a directory of records, one file per key.
type Store struct {
	dir  string
	perm os.FileMode
}

func New(dir string) *Store {
	return &Store{dir: dir, perm: 0600}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) (string, error) {
	if key == "" || strings.ContainsRune(key, filepath.Separator) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid record key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

// Get returns the trimmed value stored under key.
func (s *Store) Get(key string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Put atomically replaces the value stored under key, creating the store
// directory if needed.
func (s *Store) Put(key, value string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return files.WriteFileAtomic(p, []byte(value+"\n"), s.perm)
}

// Update runs a read-modify-write cycle on key. fn receives the current value
// and whether it existed.
func (s *Store) Update(key string, fn func(current string, found bool) (string, error)) error {
	current, err := s.Get(key)
	found := true
	if errors.Is(err, ErrNotFound) {
		found = false
	} else if err != nil {
		return err
	}
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	if found && next == current {
		return nil
	}
	return s.Put(key, next)
}
