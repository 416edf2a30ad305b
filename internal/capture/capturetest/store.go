package capturetest

import (
	"fmt"
	"sync"
)

// Store is an in-memory capture.ArtifactWriter.
type Store struct {
	mu    sync.Mutex
	files map[string][]byte
	order []string

	// Fail maps a file name to the error Write returns for it.
	Fail map[string]error
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{files: map[string][]byte{}, Fail: map[string]error{}}
}

func (s *Store) Write(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail[name]; err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if _, ok := s.files[name]; !ok {
		s.order = append(s.order, name)
	}
	s.files[name] = append([]byte(nil), data...)
	return "mem://" + name, nil
}

// Names returns the written file names in first-write order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Get returns the bytes written under name.
func (s *Store) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[name]
	return b, ok
}
