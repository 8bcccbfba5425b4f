package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
)

// Fetch updates the remote-tracking ref for branch from remote.
// Returns ErrAlreadyUpToDate if there are no changes to fetch.
func (r *Repo) Fetch(ctx context.Context, remote, branch string) error {
	if remote == "" {
		remote = DefaultRemoteName
	}
	if branch == "" {
		return WrapError(ErrInvalidRef, "branch cannot be empty")
	}

	url, err := r.RemoteURL(remote)
	if err != nil {
		return err
	}

	auth, err := authFor(r.options.Auth, url)
	if err != nil {
		return err
	}

	spec := config.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, remote, branch))
	err = r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{spec},
		Depth:      r.options.ShallowDepth,
		Auth:       auth,
		Force:      true,
	})
	if err != nil {
		return WrapErrorf(classify(err), "failed to fetch %s from %s", branch, remote)
	}
	return nil
}

// Sync makes the workdir hold branch of remoteURL at the remote's tip. An
// existing clone of the same remote is fetched and reset; otherwise the
// branch is cloned fresh.
func Sync(ctx context.Context, remoteURL, branch string, opts *Options) (*Repo, error) {
	if opts == nil {
		return nil, WrapError(ErrInvalidRef, "options are required")
	}

	exists, err := Exists(opts)
	if err != nil {
		return nil, err
	}
	if !exists {
		return Clone(ctx, remoteURL, branch, opts)
	}

	repo, err := Open(ctx, opts)
	if err != nil {
		return nil, err
	}

	current, err := repo.RemoteURL(DefaultRemoteName)
	if err != nil {
		return nil, err
	}
	if current != remoteURL {
		return nil, WrapErrorf(ErrRemoteMismatch, "have %s, want %s", current, remoteURL)
	}

	if err := repo.Fetch(ctx, DefaultRemoteName, branch); err != nil && !errors.Is(err, ErrAlreadyUpToDate) {
		return nil, err
	}

	if err := repo.ResetToRemote(ctx, DefaultRemoteName, branch); err != nil {
		return nil, err
	}
	return repo, nil
}
