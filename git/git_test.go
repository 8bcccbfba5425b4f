package git

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsb "github.com/input-output-hk/catalyst-forge-release/fs/billy"
)

var testSignature = &object.Signature{Name: "release", Email: "release@example.com", When: time.Unix(1700000000, 0)}

// commitFile writes name with content and commits it on the current branch.
func commitFile(t *testing.T, r *Repo, name, content string) plumbing.Hash {
	t.Helper()

	fsys := r.options.FS.(*fsb.FS)
	require.NoError(t, fsys.WriteFile(filepath.Join(r.options.Workdir, name), []byte(content), 0o644))

	_, err := r.worktree.Add(name)
	require.NoError(t, err)

	hash, err := r.worktree.Commit("add "+name, &git.CommitOptions{Author: testSignature})
	require.NoError(t, err)
	return hash
}

// initRepo creates an empty repository at opts.Workdir.
func initRepo(t *testing.T, opts *Options) *Repo {
	t.Helper()

	st, wt, err := prepare(opts)
	require.NoError(t, err)
	repo, err := git.Init(st, wt)
	require.NoError(t, err)
	r, err := newRepo(repo, opts)
	require.NoError(t, err)
	return r
}

func setupRepo(t *testing.T, workdir string) *Repo {
	t.Helper()
	return initRepo(t, &Options{FS: fsb.NewInMemoryFS(), Workdir: workdir})
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "missing fs", opts: Options{}, wantErr: true},
		{name: "negative cache", opts: Options{FS: fsb.NewInMemoryFS(), StorerCacheSize: -1}, wantErr: true},
		{name: "negative depth", opts: Options{FS: fsb.NewInMemoryFS(), ShallowDepth: -1}, wantErr: true},
		{name: "valid", opts: Options{FS: fsb.NewInMemoryFS()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRef)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpenAndHead(t *testing.T) {
	fsys := fsb.NewInMemoryFS()
	opts := &Options{FS: fsys, Workdir: "ws"}

	exists, err := Exists(opts)
	require.NoError(t, err)
	assert.False(t, exists)

	r := initRepo(t, opts)
	hash := commitFile(t, r, "pom.xml", "<project/>")

	exists, err = Exists(opts)
	require.NoError(t, err)
	assert.True(t, exists)

	reopened, err := Open(context.Background(), &Options{FS: fsys, Workdir: "ws"})
	require.NoError(t, err)

	head, err := reopened.HeadCommit()
	require.NoError(t, err)
	assert.Equal(t, hash.String(), head)

	branch, err := reopened.CurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "master", branch)
}

func TestCheckoutBranch(t *testing.T) {
	r := setupRepo(t, ".")
	first := commitFile(t, r, "a.txt", "a")

	require.NoError(t, r.repo.Storer.SetReference(plumbing.NewHashReference(branchRef("release"), first)))
	commitFile(t, r, "b.txt", "b")

	require.NoError(t, r.CheckoutBranch(context.Background(), "release"))

	branch, err := r.CurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "release", branch)

	head, err := r.HeadCommit()
	require.NoError(t, err)
	assert.Equal(t, first.String(), head)

	err = r.CheckoutBranch(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBranchMissing)

	err = r.CheckoutBranch(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRef)
}

func TestResetToRemote(t *testing.T) {
	r := setupRepo(t, ".")
	first := commitFile(t, r, "a.txt", "a")
	second := commitFile(t, r, "b.txt", "b")

	// Simulate a fetched remote-tracking ref that is behind the local branch.
	remoteRef := plumbing.NewHashReference(plumbing.NewRemoteReferenceName("origin", "main"), first)
	require.NoError(t, r.repo.Storer.SetReference(remoteRef))
	require.NoError(t, r.repo.Storer.SetReference(plumbing.NewHashReference(branchRef("main"), second)))

	require.NoError(t, r.ResetToRemote(context.Background(), "", "main"))

	head, err := r.HeadCommit()
	require.NoError(t, err)
	assert.Equal(t, first.String(), head)

	err = r.ResetToRemote(context.Background(), "origin", "develop")
	assert.ErrorIs(t, err, ErrBranchMissing)
}

func TestSyncRejectsDifferentRemote(t *testing.T) {
	fsys := fsb.NewInMemoryFS()
	opts := &Options{FS: fsys, Workdir: "ws"}

	r := initRepo(t, opts)
	commitFile(t, r, "a.txt", "a")

	_, err := r.repo.CreateRemote(&config.RemoteConfig{
		Name: DefaultRemoteName,
		URLs: []string{"https://example.com/acme/other.git"},
	})
	require.NoError(t, err)

	_, err = Sync(context.Background(), "https://example.com/acme/orders.git", "main", &Options{FS: fsys, Workdir: "ws"})
	assert.ErrorIs(t, err, ErrRemoteMismatch)
}

func TestCloneValidatesInput(t *testing.T) {
	opts := &Options{FS: fsb.NewInMemoryFS()}

	_, err := Clone(context.Background(), "", "main", opts)
	assert.ErrorIs(t, err, ErrInvalidRef)

	_, err = Clone(context.Background(), "https://example.com/repo.git", "", opts)
	assert.ErrorIs(t, err, ErrInvalidRef)
}

func TestSyncClonesThenFetches(t *testing.T) {
	if _, err := exec.LookPath("git-upload-pack"); err != nil {
		t.Skip("git-upload-pack not available for local transport")
	}

	// Source repository on disk, reachable by path.
	srcDir := t.TempDir()
	src := initRepo(t, &Options{FS: fsb.NewOSFS(srcDir)})
	first := commitFile(t, src, "pom.xml", "<project/>")
	require.NoError(t, src.repo.Storer.SetReference(plumbing.NewHashReference(branchRef("main"), first)))

	ws := fsb.NewInMemoryFS()
	cloned, err := Sync(context.Background(), srcDir, "main", &Options{FS: ws, Workdir: "app"})
	require.NoError(t, err)

	head, err := cloned.HeadCommit()
	require.NoError(t, err)
	assert.Equal(t, first.String(), head)

	// Advance the source and sync again into the same workspace.
	require.NoError(t, src.CheckoutBranch(context.Background(), "main"))
	second := commitFile(t, src, "README.md", "hello")

	synced, err := Sync(context.Background(), srcDir, "main", &Options{FS: ws, Workdir: "app"})
	require.NoError(t, err)

	head, err = synced.HeadCommit()
	require.NoError(t, err)
	assert.Equal(t, second.String(), head)

	_, err = Sync(context.Background(), srcDir, "nope", &Options{FS: fsb.NewInMemoryFS()})
	assert.ErrorIs(t, err, ErrBranchMissing)
}

func TestBasicAuthProvider(t *testing.T) {
	p := NewBasicAuthProvider("ci", "s3cret")

	method, err := p.Method("https://github.com/acme/orders.git")
	require.NoError(t, err)
	require.NotNil(t, method)
	assert.Equal(t, "http-basic-auth", method.Name())

	method, err = p.Method("/srv/git/orders.git")
	require.NoError(t, err)
	assert.Nil(t, method)

	method, err = NewBasicAuthProvider("", "").Method("https://github.com/acme/orders.git")
	require.NoError(t, err)
	assert.Nil(t, method)

	tokenOnly := NewBasicAuthProvider("", "ghp_x")
	assert.Equal(t, "token", tokenOnly.auth.Username)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(git.NoErrAlreadyUpToDate), ErrAlreadyUpToDate)
	assert.ErrorIs(t, classify(plumbing.ErrReferenceNotFound), ErrBranchMissing)
	assert.ErrorIs(t, classify(git.ErrRemoteNotFound), ErrResolveFailed)
	assert.NoError(t, classify(nil))
}
