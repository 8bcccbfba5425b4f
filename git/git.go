// Package git clones and updates the source repository for the checkout
// stage. It wraps go-git and keeps all repository state inside an
// fs.Filesystem, so the same code runs against the host workspace and against
// memory in tests.
package git

import (
	"context"
	"fmt"
	"path"

	gobilly "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/input-output-hk/catalyst-forge-release/fs"
	fsb "github.com/input-output-hk/catalyst-forge-release/fs/billy"
)

const (
	// DefaultStorerCacheSize is the default size for the LRU object cache.
	DefaultStorerCacheSize = 1000

	// DefaultWorkdir is the default worktree directory name.
	DefaultWorkdir = "."

	// DefaultRemoteName is the default remote name used for operations.
	DefaultRemoteName = "origin"
)

// Options configures where a repository lives and how remotes are reached.
type Options struct {
	// FS is the filesystem holding the repository. Required, and must be a
	// *billy.FS from the fs/billy package.
	FS fs.Filesystem

	// Workdir is the path within FS for the worktree root. Defaults to ".".
	Workdir string

	// StorerCacheSize sets the LRU objects cache entries.
	StorerCacheSize int

	// Auth resolves credentials per remote URL. Nil means anonymous.
	Auth AuthProvider

	// ShallowDepth limits clone and fetch depth when > 0.
	ShallowDepth int
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.FS == nil {
		return WrapError(ErrInvalidRef, "FS is required")
	}
	if o.StorerCacheSize < 0 {
		return WrapError(ErrInvalidRef, "StorerCacheSize cannot be negative")
	}
	if o.ShallowDepth < 0 {
		return WrapError(ErrInvalidRef, "ShallowDepth cannot be negative")
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.Workdir == "" {
		o.Workdir = DefaultWorkdir
	}
	if o.StorerCacheSize == 0 {
		o.StorerCacheSize = DefaultStorerCacheSize
	}
}

// AuthProvider resolves authentication methods for git operations.
type AuthProvider interface {
	// Method returns the transport.AuthMethod for the given remote URL, or
	// nil when no authentication applies.
	Method(remoteURL string) (transport.AuthMethod, error)
}

// Repo is an opened repository with a worktree.
type Repo struct {
	repo     *git.Repository
	worktree *git.Worktree
	options  Options
}

// storage resolves the object storage and worktree filesystem for opts.
func storage(opts *Options) (*filesystem.Storage, gobilly.Filesystem, error) {
	bfs, ok := opts.FS.(*fsb.FS)
	if !ok {
		return nil, nil, fmt.Errorf("filesystem must be a billy.FS from fs/billy package, got %T", opts.FS)
	}

	worktreeFS, err := bfs.Raw().Chroot(opts.Workdir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to chroot to workdir %q: %w", opts.Workdir, err)
	}

	dotGitFS, err := worktreeFS.Chroot(git.GitDirName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to access %s directory: %w", git.GitDirName, err)
	}

	objCache := cache.NewObjectLRU(cache.FileSize(opts.StorerCacheSize))
	return filesystem.NewStorage(dotGitFS, objCache), worktreeFS, nil
}

func prepare(opts *Options) (*filesystem.Storage, gobilly.Filesystem, error) {
	if opts == nil {
		return nil, nil, WrapError(ErrInvalidRef, "options are required")
	}
	if err := opts.Validate(); err != nil {
		return nil, nil, WrapError(err, "invalid options")
	}
	opts.applyDefaults()
	return storage(opts)
}

func newRepo(repo *git.Repository, opts *Options) (*Repo, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, WrapError(err, "failed to get worktree")
	}
	return &Repo{repo: repo, worktree: worktree, options: *opts}, nil
}

// Open opens an existing repository at the configured workdir.
func Open(ctx context.Context, opts *Options) (*Repo, error) {
	st, wt, err := prepare(opts)
	if err != nil {
		return nil, err
	}

	repo, err := git.Open(st, wt)
	if err != nil {
		return nil, WrapError(err, "failed to open repository")
	}
	return newRepo(repo, opts)
}

// Clone clones branch of remoteURL into the configured workdir. Only the
// requested branch is fetched.
func Clone(ctx context.Context, remoteURL, branch string, opts *Options) (*Repo, error) {
	if remoteURL == "" {
		return nil, WrapError(ErrInvalidRef, "remote URL cannot be empty")
	}
	if branch == "" {
		return nil, WrapError(ErrInvalidRef, "branch cannot be empty")
	}

	st, wt, err := prepare(opts)
	if err != nil {
		return nil, err
	}

	cloneOpts := &git.CloneOptions{
		URL:           remoteURL,
		RemoteName:    DefaultRemoteName,
		ReferenceName: branchRef(branch),
		SingleBranch:  true,
		Depth:         opts.ShallowDepth,
	}

	auth, err := authFor(opts.Auth, remoteURL)
	if err != nil {
		return nil, err
	}
	cloneOpts.Auth = auth

	repo, err := git.CloneContext(ctx, st, wt, cloneOpts)
	if err != nil {
		return nil, WrapErrorf(classify(err), "failed to clone %s", remoteURL)
	}
	return newRepo(repo, opts)
}

// Exists reports whether a repository is present at the configured workdir.
func Exists(opts *Options) (bool, error) {
	if err := opts.Validate(); err != nil {
		return false, WrapError(err, "invalid options")
	}
	workdir := opts.Workdir
	if workdir == "" {
		workdir = DefaultWorkdir
	}
	ok, err := opts.FS.Exists(path.Join(workdir, git.GitDirName))
	if err != nil {
		return false, WrapError(err, "failed to inspect workspace")
	}
	return ok, nil
}

// HeadCommit returns the hash of the commit HEAD points at.
func (r *Repo) HeadCommit() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", WrapError(err, "failed to get HEAD reference")
	}
	return head.Hash().String(), nil
}

// RemoteURL returns the first URL of the named remote.
func (r *Repo) RemoteURL(name string) (string, error) {
	if name == "" {
		name = DefaultRemoteName
	}
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", WrapError(ErrResolveFailed, "remote not found")
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", WrapError(ErrResolveFailed, "remote has no URL")
	}
	return urls[0], nil
}

func authFor(provider AuthProvider, remoteURL string) (transport.AuthMethod, error) {
	if provider == nil {
		return nil, nil
	}
	method, err := provider.Method(remoteURL)
	if err != nil {
		return nil, WrapError(err, "failed to get authentication method")
	}
	return method, nil
}
