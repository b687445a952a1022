package diskfs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"rawhttp/pkg/vfs"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	fs := New(tmpDir + "/")

	if fs == nil {
		t.Fatal("New() returned nil")
	}
	if fs.Root() != tmpDir {
		t.Errorf("root is %q, expected %q", fs.Root(), tmpDir)
	}
}

func TestReadWrite(t *testing.T) {
	tmpDir := t.TempDir()
	fs := New(tmpDir)

	testData := []byte("Hello, World!")
	if err := fs.WriteFile("test.txt", testData); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	onDisk, err := os.ReadFile(filepath.Join(tmpDir, "test.txt"))
	if err != nil {
		t.Fatalf("file should exist on disk: %v", err)
	}
	if !bytes.Equal(onDisk, testData) {
		t.Errorf("disk content %q, expected %q", onDisk, testData)
	}

	data, err := fs.ReadFile("test.txt")
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if !bytes.Equal(data, testData) {
		t.Errorf("read %q, expected %q", data, testData)
	}
}

func TestWriteFileTruncates(t *testing.T) {
	fs := New(t.TempDir())

	if err := fs.WriteFile("a.txt", []byte("a much longer body")); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if err := fs.WriteFile("a.txt", []byte("B")); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	data, err := fs.ReadFile("a.txt")
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if string(data) != "B" {
		t.Errorf("read %q, expected %q", data, "B")
	}
}

func TestEmptyAndBinaryContent(t *testing.T) {
	fs := New(t.TempDir())

	for name, content := range map[string][]byte{
		"empty":  {},
		"binary": {0x00, 0xff, '\r', '\n', 0x1f, 0x8b},
	} {
		if err := fs.WriteFile(name, content); err != nil {
			t.Fatalf("WriteFile(%q) failed: %v", name, err)
		}
		data, err := fs.ReadFile(name)
		if err != nil {
			t.Fatalf("ReadFile(%q) failed: %v", name, err)
		}
		if !bytes.Equal(data, content) {
			t.Errorf("%s: read %v, expected %v", name, data, content)
		}
	}
}

func TestReadFileErrors(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	fs := New(tmpDir)

	tests := []struct {
		name string
		want error
	}{
		{"missing.txt", vfs.ErrNotExist},
		{"sub/missing.txt", vfs.ErrNotExist},
		{"nodir/missing.txt", vfs.ErrNotExist},
		{"sub", vfs.ErrIsDir},
		{"", vfs.ErrIsDir},
		{"../secret", vfs.ErrOutsideRoot},
		{"sub/../../secret", vfs.ErrOutsideRoot},
		{"bad\x00name", vfs.ErrInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fs.ReadFile(tt.name)
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadFile(%q) error = %v, want %v", tt.name, err, tt.want)
			}
		})
	}
}

func TestWriteFileErrors(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	fs := New(tmpDir)

	tests := []struct {
		name string
		want error
	}{
		{"", vfs.ErrIsDir},
		{"sub", vfs.ErrIsDir},
		{"../escape.txt", vfs.ErrOutsideRoot},
		{"a/../../escape.txt", vfs.ErrOutsideRoot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fs.WriteFile(tt.name, []byte("x"))
			if !errors.Is(err, tt.want) {
				t.Errorf("WriteFile(%q) error = %v, want %v", tt.name, err, tt.want)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(tmpDir), "escape.txt")); err == nil {
		t.Error("traversal write landed outside the root")
	}
}

func TestWriteFileMissingParent(t *testing.T) {
	fs := New(t.TempDir())

	err := fs.WriteFile("nodir/a.txt", []byte("x"))
	if err == nil {
		t.Fatal("expected an error for a missing parent directory")
	}
	if !errors.Is(err, vfs.ErrNotExist) {
		t.Errorf("error = %v, want ErrNotExist", err)
	}
}

func TestNestedPath(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, "dir"), 0o755); err != nil {
		t.Fatal(err)
	}
	fs := New(tmpDir)

	if err := fs.WriteFile("dir/./x/../file.txt", []byte("nested")); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(tmpDir, "dir", "file.txt"))
	if err != nil {
		t.Fatalf("file should exist on disk: %v", err)
	}
	if string(data) != "nested" {
		t.Errorf("read %q, expected %q", data, "nested")
	}
}

func TestConcurrentWrites(t *testing.T) {
	fs := New(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := bytes.Repeat([]byte(strconv.Itoa(i%10)), 4096)
			if err := fs.WriteFile("shared.bin", body); err != nil {
				t.Errorf("WriteFile() failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	data, err := fs.ReadFile("shared.bin")
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if len(data) != 4096 {
		t.Fatalf("length %d, expected 4096", len(data))
	}
	// one writer's content, never an interleaving
	if !bytes.Equal(data, bytes.Repeat(data[:1], 4096)) {
		t.Error("content mixes several writers")
	}
	if len(fs.locks) != 0 {
		t.Errorf("%d path locks leaked", len(fs.locks))
	}
}
