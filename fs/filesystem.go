package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Filesystem is the set of filesystem operations the pipeline relies on.
// Paths are slash separated and relative to Root unless absolute.
type Filesystem interface {
	Create(name string) (File, error)
	Open(name string) (File, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	Stat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	Remove(name string) error
	Walk(root string, fn filepath.WalkFunc) error
	Exists(path string) (bool, error)

	// Root returns the host path the filesystem is rooted at. Memory
	// filesystems return "/".
	Root() string
}

// GetAbs returns an absolute version of path.
func GetAbs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("fs: abs %q: %w", path, err)
	}
	return abs, nil
}

// HostPath joins a filesystem-relative path onto the filesystem root,
// yielding the path external tools see.
func HostPath(fsys Filesystem, name string) string {
	return filepath.Join(fsys.Root(), name)
}
