// Package fsys provides the narrow filesystem capability discovery runs
// against: a real-disk implementation and an in-memory one for tests.
package fsys

import (
	"io"
	"io/fs"
	"os"
)

// FS is the filesystem surface discovery is allowed to touch. Paths are
// absolute OS paths, not fs.FS-rooted paths.
type FS interface {
	Open(name string) (io.ReadCloser, error)
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
}

type osFS struct{}

// OS returns the real-disk filesystem.
func OS() FS { return osFS{} }

func (osFS) Open(name string) (io.ReadCloser, error) { return os.Open(name) }

func (osFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

func (osFS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }

func (osFS) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }
