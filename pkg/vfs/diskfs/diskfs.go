// Package diskfs provides a disk-based byte store rooted at a host directory.
package diskfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"rawhttp/pkg/vfs"
)

// DefaultPerm is the mode for newly written files.
const DefaultPerm fs.FileMode = 0o644

// FS is a vfs.Store backed by the files under root. Writes to the same name
// are serialized; readers never block.
type FS struct {
	root string
	perm fs.FileMode

	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a new disk-based store rooted at the given directory. The
// directory is not created.
func New(root string) *FS {
	return &FS{
		root:  filepath.Clean(root),
		perm:  DefaultPerm,
		locks: make(map[string]*pathLock),
	}
}

// Root returns the cleaned root directory.
func (s *FS) Root() string {
	return s.root
}

// ReadFile implements vfs.Store.
func (s *FS) ReadFile(name string) ([]byte, error) {
	full, err := s.fullPath(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, mapErr(name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %q", vfs.ErrIsDir, name)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, mapErr(name, err)
	}
	return data, nil
}

// WriteFile implements vfs.Store. Parent directories must already exist.
func (s *FS) WriteFile(name string, data []byte) error {
	full, err := s.fullPath(name)
	if err != nil {
		return err
	}
	if full == s.root {
		return fmt.Errorf("%w: %q", vfs.ErrIsDir, name)
	}

	unlock := s.lock(full)
	defer unlock()

	if err := os.WriteFile(full, data, s.perm); err != nil {
		return mapErr(name, err)
	}
	return nil
}

// lock takes the write lock for one file and returns its release func.
// Entries are dropped once no writer holds or waits for them.
func (s *FS) lock(full string) func() {
	s.mu.Lock()
	l, ok := s.locks[full]
	if !ok {
		l = &pathLock{}
		s.locks[full] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, full)
		}
		s.mu.Unlock()
	}
}

// fullPath converts a store name to a host path under root.
func (s *FS) fullPath(name string) (string, error) {
	rel, err := vfs.Rel(name)
	if err != nil {
		return "", err
	}
	if rel == "" {
		return s.root, nil
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

func mapErr(name string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %q", vfs.ErrNotExist, name)
	case isDirErr(err):
		return fmt.Errorf("%w: %q", vfs.ErrIsDir, name)
	}
	return fmt.Errorf("diskfs: %w", err)
}

// isDirErr reports whether err came from treating a directory as a file.
func isDirErr(err error) bool {
	var perr *fs.PathError
	if !errors.As(err, &perr) {
		return false
	}
	info, serr := os.Stat(perr.Path)
	return serr == nil && info.IsDir()
}
