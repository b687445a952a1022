// Package memfs provides an in-memory byte store.
// It is useful for ephemeral storage, testing, or as a temporary cache.
package memfs

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"rawhttp/pkg/vfs"
)

// FS is a vfs.Store that keeps file contents in memory. Directories exist
// implicitly as the parents of stored names and are created on write.
type FS struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// New creates a new in-memory store.
func New() *FS {
	return &FS{files: make(map[string][]byte)}
}

// ReadFile implements vfs.Store. The returned slice is a copy.
func (fs *FS) ReadFile(name string) ([]byte, error) {
	rel, err := vfs.Rel(name)
	if err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if rel == "" || fs.isDir(rel) {
		return nil, fmt.Errorf("%w: %q", vfs.ErrIsDir, name)
	}
	data, ok := fs.files[rel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", vfs.ErrNotExist, name)
	}
	return append([]byte(nil), data...), nil
}

// WriteFile implements vfs.Store. data is copied.
func (fs *FS) WriteFile(name string, data []byte) error {
	rel, err := vfs.Rel(name)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if rel == "" || fs.isDir(rel) {
		return fmt.Errorf("%w: %q", vfs.ErrIsDir, name)
	}
	// a stored file cannot double as a parent directory
	for dir := parent(rel); dir != ""; dir = parent(dir) {
		if _, ok := fs.files[dir]; ok {
			return fmt.Errorf("memfs: %q: parent %q is a file", name, dir)
		}
	}
	fs.files[rel] = append([]byte(nil), data...)
	return nil
}

// Names returns the stored names in sorted order.
func (fs *FS) Names() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	names := make([]string, 0, len(fs.files))
	for name := range fs.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isDir reports whether rel is the parent of any stored name. The caller
// holds fs.mu.
func (fs *FS) isDir(rel string) bool {
	prefix := rel + "/"
	for name := range fs.files {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func parent(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return ""
}
