package vfs

import (
	"errors"
	"fmt"
	"strings"
)

// Common path-related errors.
var (
	ErrInvalidPath = errors.New("vfs: invalid path")
	ErrPathTooLong = errors.New("vfs: path too long")
)

// MaxPathLength is the maximum allowed path length.
const MaxPathLength = 4096

// ValidatePath checks that p can be used as a store key at all.
func ValidatePath(p string) error {
	if len(p) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(p, "\x00") {
		return ErrInvalidPath
	}
	return nil
}

// Rel cleans name lexically and returns it relative to the store root, for
// example "a/./b/../c.txt" becomes "a/c.txt". Backslashes count as
// separators and a leading slash is ignored. A ".." that would climb above
// the root yields ErrOutsideRoot; the empty result names the root itself.
//
// The check is purely lexical. Symbolic links inside the root are not
// resolved.
func Rel(name string) (string, error) {
	if err := ValidatePath(name); err != nil {
		return "", err
	}
	name = strings.ReplaceAll(name, "\\", "/")

	var parts []string
	for _, comp := range strings.Split(name, "/") {
		switch comp {
		case "", ".":
			continue
		case "..":
			if len(parts) == 0 {
				return "", fmt.Errorf("%w: %q", ErrOutsideRoot, name)
			}
			parts = parts[:len(parts)-1]
		default:
			parts = append(parts, comp)
		}
	}
	return strings.Join(parts, "/"), nil
}
