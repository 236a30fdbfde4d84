// Package fsabs is the narrow filesystem abstraction C1 describes: read,
// write, stat, existence check, create directories, and nothing else. Every other
// component that touches disk goes through this interface so a run can be
// driven from an in-memory filesystem (the `{kind:source}` transpile path)
// without a single `if sourceFromMemory` branch anywhere else in the
// pipeline.
package fsabs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileSystem abstracts the operations the pipeline needs. Grounded on the
// indexer's FileSystemInterface, trimmed to what a single-pass transpile
// run actually calls: no caching, no metadata tracking, since the pipeline
// owns its own symbol/content state.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Stat(path string) (fs.FileInfo, error)
	Exists(path string) bool
	MkdirAll(path string) error
}

// Real implements FileSystem against the OS.
type Real struct{}

func (Real) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (Real) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (Real) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

func (Real) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (Real) MkdirAll(path string) error { return os.MkdirAll(path, 0o755) }

// Memory is an in-memory FileSystem used by the `{kind:source}` transpile
// path (spec §6), so a caller handing over raw text never touches disk
// and two concurrent in-memory runs can never see each other's files
// (spec §8 property 6, "repeated transpile isolation").
type Memory struct {
	files map[string][]byte
}

// NewMemory creates an empty in-memory filesystem, optionally seeded with
// one file at path holding content.
func NewMemory(path string, content []byte) *Memory {
	m := &Memory{files: map[string][]byte{}}
	if path != "" {
		m.files[filepath.Clean(path)] = content
	}
	return m
}

func (m *Memory) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return data, nil
}

func (m *Memory) WriteFile(path string, data []byte) error {
	m.files[filepath.Clean(path)] = data
	return nil
}

func (m *Memory) Stat(path string) (fs.FileInfo, error) {
	_, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return memFileInfo{name: filepath.Base(path)}, nil
}

func (m *Memory) Exists(path string) bool {
	_, ok := m.files[filepath.Clean(path)]
	return ok
}

func (m *Memory) MkdirAll(path string) error { return nil }

// Paths returns every path currently stored, sorted for deterministic
// iteration order (two identical in-memory runs must produce output in
// the same order).
func (m *Memory) Paths() []string {
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type memFileInfo struct{ name string }

func (i memFileInfo) Name() string      { return i.name }
func (i memFileInfo) Size() int64       { return 0 }
func (i memFileInfo) Mode() fs.FileMode { return 0o644 }
func (i memFileInfo) ModTime() time.Time { return time.Time{} }
func (i memFileInfo) IsDir() bool       { return false }
func (i memFileInfo) Sys() interface{}  { return nil }
