// Package vfs defines the byte store that backs the /files endpoints, along
// with the lexical path checks every backend shares.
//
// Two backends exist: diskfs, rooted at a directory on the host, and memfs,
// which keeps everything in memory.
//
//	store := diskfs.New("/tmp/data")
//	if err := store.WriteFile("notes/a.txt", body); err != nil {
//		if errors.Is(err, vfs.ErrOutsideRoot) {
//			// reject the request
//		}
//	}
package vfs
