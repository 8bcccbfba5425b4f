package identity

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/fs"
)

// CounterStore remembers the last accepted build counter between runs.
type CounterStore interface {
	// Last returns the last saved counter, or zero if none was saved.
	Last() (uint64, error)
	Save(counter uint64) error
}

// FileStore keeps the counter as a decimal number in a single file.
type FileStore struct {
	fs   fs.Filesystem
	path string
}

// NewFileStore creates a FileStore writing to path on fsys.
func NewFileStore(fsys fs.Filesystem, path string) *FileStore {
	return &FileStore{fs: fsys, path: path}
}

// Last implements CounterStore.
func (s *FileStore) Last() (uint64, error) {
	exists, err := s.fs.Exists(s.path)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeInternal, "failed to check counter file %s", s.path)
	}
	if !exists {
		return 0, nil
	}

	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeInternal, "failed to read counter file %s", s.path)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeInvalidConfig, "counter file %s is corrupt", s.path)
	}
	return n, nil
}

// Save implements CounterStore.
func (s *FileStore) Save(counter uint64) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "failed to create %s", filepath.Dir(s.path))
	}
	if err := s.fs.WriteFile(s.path, []byte(strconv.FormatUint(counter, 10)+"\n"), 0o644); err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "failed to write counter file %s", s.path)
	}
	return nil
}
