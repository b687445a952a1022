package vfs

import "errors"

// Errors reported by Store implementations. Anything else returned from a
// Store is an I/O failure.
var (
	ErrNotExist    = errors.New("vfs: file does not exist")
	ErrIsDir       = errors.New("vfs: is a directory")
	ErrOutsideRoot = errors.New("vfs: path resolves outside root")
)

// Store is a flat byte store keyed by slash-separated names relative to a
// root. Implementations must reject names that climb out of the root with
// ErrOutsideRoot and must be safe for concurrent use.
type Store interface {
	// ReadFile returns the whole content stored under name.
	ReadFile(name string) ([]byte, error)

	// WriteFile stores data under name, replacing any previous content.
	WriteFile(name string, data []byte) error
}
