// Package artifact finds the build output to publish without knowing its
// file name in advance.
package artifact

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/fs"
)

const (
	// DefaultSuffix selects Java archives.
	DefaultSuffix = ".jar"

	// DefaultSecondaryMarker excludes source archives.
	DefaultSecondaryMarker = "-sources"
)

// Reference points at a located artifact.
type Reference struct {
	// Path is the absolute host path.
	Path string `json:"path" yaml:"path"`
	// RelPath is the path inside the filesystem the locator searched.
	RelPath string `json:"rel_path" yaml:"rel_path"`
	// Name is the base file name.
	Name string `json:"name" yaml:"name"`
}

// Locator selects the primary artifact in a directory tree.
type Locator struct {
	fs      fs.Filesystem
	suffix  string
	markers []string
}

// Option configures a Locator.
type Option func(*Locator)

// WithSuffix sets the file suffix that qualifies an artifact.
func WithSuffix(suffix string) Option {
	return func(l *Locator) {
		l.suffix = suffix
	}
}

// WithSecondaryMarkers replaces the markers that disqualify a file, e.g.
// "-sources", "-javadoc", "-tests".
func WithSecondaryMarkers(markers ...string) Option {
	return func(l *Locator) {
		l.markers = append([]string(nil), markers...)
	}
}

// NewLocator creates a Locator over fsys.
func NewLocator(fsys fs.Filesystem, opts ...Option) *Locator {
	l := &Locator{
		fs:      fsys,
		suffix:  DefaultSuffix,
		markers: []string{DefaultSecondaryMarker},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate returns the first qualifying artifact under root in lexicographic
// path order. It fails with CodeArtifactNotFound when there is none.
func (l *Locator) Locate(root string) (Reference, error) {
	candidates, err := l.Candidates(root)
	if err != nil {
		return Reference{}, err
	}
	if len(candidates) == 0 {
		return Reference{}, errors.Newf(errors.CodeArtifactNotFound, "no %s artifact under %s", l.suffix, root).
			WithContext("excluded", l.markers)
	}
	return candidates[0], nil
}

// Candidates returns every qualifying artifact under root, sorted by path. A
// missing root yields CodeArtifactNotFound.
func (l *Locator) Candidates(root string) ([]Reference, error) {
	exists, err := l.fs.Exists(root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "failed to inspect %s", root)
	}
	if !exists {
		return nil, errors.Newf(errors.CodeArtifactNotFound, "output directory %s does not exist", root)
	}

	var paths []string
	err = l.fs.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() || !l.qualifies(info.Name()) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "failed to walk %s", root)
	}

	sort.Strings(paths)
	refs := make([]Reference, 0, len(paths))
	for _, p := range paths {
		refs = append(refs, Reference{
			Path:    fs.HostPath(l.fs, p),
			RelPath: filepath.ToSlash(p),
			Name:    filepath.Base(p),
		})
	}
	return refs, nil
}

func (l *Locator) qualifies(name string) bool {
	if !strings.HasSuffix(name, l.suffix) {
		return false
	}
	for _, marker := range l.markers {
		if marker != "" && strings.Contains(name, marker) {
			return false
		}
	}
	return true
}
