package billy

import (
	"fmt"
	"io/fs"

	"github.com/go-git/go-billy/v5"
)

// File wraps a go-billy File and adds Stat.
type File struct {
	billy.File
	fs *FS
}

// Stat returns the file info of the underlying path.
func (f *File) Stat() (fs.FileInfo, error) {
	info, err := f.fs.Stat(f.Name())
	if err != nil {
		return nil, fmt.Errorf("billy: stat %q: %w", f.Name(), err)
	}
	return info, nil
}
