package sessionstore

import (
	"fmt"
	"maps"
	"sync"

	"github.com/livedesk/livedesk/internal/fileutil"
)

// Storage is a durable string key/value store, the client-side equivalent of
// browser localStorage.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(keys ...string) error
}

var (
	_ Storage = (*FileStorage)(nil)
	_ Storage = (*MemoryStorage)(nil)
)

// FileStorage keeps all keys in a single JSON object on disk. Every mutation
// rewrites the file atomically. It is safe for concurrent use within one
// process.
type FileStorage struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

// OpenFileStorage loads path, or starts empty when the file does not exist.
func OpenFileStorage(path string) (*FileStorage, error) {
	values := make(map[string]string)
	if _, err := fileutil.ReadJSONIfExists(path, &values); err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return &FileStorage{path: path, values: values}, nil
}

// Path returns the backing file.
func (s *FileStorage) Path() string {
	return s.path
}

func (s *FileStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.values)
	next[key] = value
	if err := s.flush(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *FileStorage) Remove(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.values)
	for _, k := range keys {
		delete(next, k)
	}
	if err := s.flush(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *FileStorage) flush(values map[string]string) error {
	if err := fileutil.WriteJSONAtomic(s.path, values, 0600); err != nil {
		return fmt.Errorf("write storage %s: %w", s.path, err)
	}
	return nil
}

// MemoryStorage is a process-local Storage.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStorage) Remove(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}
