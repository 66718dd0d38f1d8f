package fsys

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// MemFS is an in-memory FS for tests. Files are registered with absolute
// slash-separated paths; directories are implied by the file set.
type MemFS struct {
	files map[string]*memFile
}

type memFile struct {
	data  []byte
	mtime time.Time
}

// NewMemFS returns an empty in-memory filesystem.
func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string]*memFile)}
}

// WriteFile registers a file. Parent directories come into existence
// implicitly.
func (m *MemFS) WriteFile(name string, data []byte, mtime time.Time) {
	m.files[path.Clean(name)] = &memFile{data: data, mtime: mtime}
}

// Remove deletes a file if present.
func (m *MemFS) Remove(name string) {
	delete(m.files, path.Clean(name))
}

func (m *MemFS) Open(name string) (io.ReadCloser, error) {
	f, ok := m.files[path.Clean(name)]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (m *MemFS) ReadFile(name string) ([]byte, error) {
	f, ok := m.files[path.Clean(name)]
	if !ok {
		return nil, fs.ErrNotExist
	}
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, nil
}

func (m *MemFS) Stat(name string) (fs.FileInfo, error) {
	name = path.Clean(name)
	if f, ok := m.files[name]; ok {
		return memInfo{name: path.Base(name), size: int64(len(f.data)), mtime: f.mtime}, nil
	}
	if m.isDir(name) {
		return memInfo{name: path.Base(name), dir: true}, nil
	}
	return nil, fs.ErrNotExist
}

func (m *MemFS) ReadDir(name string) ([]fs.DirEntry, error) {
	name = path.Clean(name)
	if !m.isDir(name) {
		return nil, fs.ErrNotExist
	}

	prefix := name + "/"
	if name == "/" {
		prefix = "/"
	}

	seen := make(map[string]fs.DirEntry)
	for p, f := range m.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			child := rest[:idx]
			seen[child] = memEntry{memInfo{name: child, dir: true}}
		} else {
			seen[rest] = memEntry{memInfo{name: rest, size: int64(len(f.data)), mtime: f.mtime}}
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)

	entries := make([]fs.DirEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, seen[n])
	}
	return entries, nil
}

func (m *MemFS) isDir(name string) bool {
	prefix := name + "/"
	if name == "/" {
		prefix = "/"
	}
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

type memInfo struct {
	name  string
	size  int64
	mtime time.Time
	dir   bool
}

func (i memInfo) Name() string { return i.name }
func (i memInfo) Size() int64  { return i.size }
func (i memInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (i memInfo) ModTime() time.Time { return i.mtime }
func (i memInfo) IsDir() bool        { return i.dir }
func (i memInfo) Sys() any           { return nil }

type memEntry struct{ info memInfo }

func (e memEntry) Name() string               { return e.info.name }
func (e memEntry) IsDir() bool                { return e.info.dir }
func (e memEntry) Type() fs.FileMode          { return e.info.Mode().Type() }
func (e memEntry) Info() (fs.FileInfo, error) { return e.info, nil }
