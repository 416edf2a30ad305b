// Package artifact writes captured screenshots into the output directory.
package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrEmptyImage is returned when Write is given no bytes.
var ErrEmptyImage = errors.New("empty image")

// Store is a directory of named screenshots. Files are replaced atomically so
// an interrupted run never leaves a truncated image behind.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore returns a Store rooted at dir. Nothing is created until Prepare.
func NewStore(dir string) *Store {
	return &Store{dir: filepath.Clean(dir)}
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns the location of name inside the store.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Prepare creates the output directory and its parents.
func (s *Store) Prepare() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create output directory %s: %w", s.dir, err)
	}
	return nil
}

// Write stores data under name, overwriting any previous file.
func (s *Store) Write(name string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("write %s: %w", name, ErrEmptyImage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	dest := s.Path(name)
	if err := os.Rename(tmpName, dest); err != nil {
		cleanup()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return dest, nil
}

// Verify checks that every named file exists, is non-empty and decodes as a
// PNG header. All problems are reported together.
func (s *Store) Verify(names ...string) error {
	var errs []error
	for _, name := range names {
		if err := s.verifyOne(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) verifyOne(name string) error {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("verify %s: %w", name, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("verify %s: %w", name, ErrEmptyImage)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("verify %s: not a png: %w", name, err)
	}
	return nil
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}
