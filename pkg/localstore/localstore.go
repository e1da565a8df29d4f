// Package localstore is a small JSON key-value slot scoped to one
// context (one process profile directory). Values survive restarts but
// are never shared between profiles; each slot has a single writer.
package localstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var ErrNotFound = errors.New("key not found")

// envelope wraps every stored value with the time it was written so
// readers can discard stale entries.
type envelope struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     json.RawMessage `json:"value"`
}

type Store struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Store) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope{Timestamp: time.Now().UTC(), Value: raw})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(key))
}

// Get unmarshals the value stored under key into out and returns when
// it was written.
func (s *Store) Get(key string, out interface{}) (time.Time, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path(key))
	s.mu.Unlock()
	if os.IsNotExist(err) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return time.Time{}, err
	}
	if out != nil {
		if err := json.Unmarshal(env.Value, out); err != nil {
			return time.Time{}, err
		}
	}
	return env.Timestamp, nil
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
