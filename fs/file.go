// Package fs defines the filesystem abstraction used by the release pipeline.
// Stages that inspect the workspace (artifact lookup, post-run inspection,
// git storage) work against Filesystem so tests can run on memory-backed
// filesystems.
package fs

import (
	"io"
	"io/fs"
)

// File represents an open file handle.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Name() string
	Stat() (fs.FileInfo, error)
}
