package git

import (
	"context"
	"errors"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

func branchRef(name string) plumbing.ReferenceName {
	return plumbing.NewBranchReferenceName(name)
}

// CurrentBranch returns the name of the checked out branch. It returns an
// error if HEAD is detached.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", WrapError(err, "failed to get HEAD reference")
	}
	if !head.Name().IsBranch() {
		return "", WrapError(ErrResolveFailed, "HEAD is detached")
	}
	return head.Name().Short(), nil
}

// CheckoutBranch switches the worktree to a local branch, discarding local
// modifications.
func (r *Repo) CheckoutBranch(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return WrapError(err, "context cancelled")
	}
	if name == "" {
		return WrapError(ErrInvalidRef, "branch name cannot be empty")
	}

	ref := branchRef(name)
	if _, err := r.repo.Reference(ref, true); err != nil {
		return WrapErrorf(ErrBranchMissing, "branch %q", name)
	}

	if err := r.worktree.Checkout(&git.CheckoutOptions{Branch: ref, Force: true}); err != nil {
		return WrapError(err, "failed to checkout branch")
	}
	return nil
}

// ResetToRemote points the local branch at the remote-tracking branch of the
// same name and checks it out, discarding local modifications.
func (r *Repo) ResetToRemote(ctx context.Context, remote, name string) error {
	if remote == "" {
		remote = DefaultRemoteName
	}
	if name == "" {
		return WrapError(ErrInvalidRef, "branch name cannot be empty")
	}

	remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName(remote, name), true)
	if err != nil {
		return WrapErrorf(ErrBranchMissing, "remote branch %s/%s", remote, name)
	}

	local := plumbing.NewHashReference(branchRef(name), remoteRef.Hash())
	if err := r.repo.Storer.SetReference(local); err != nil {
		return WrapError(err, "failed to update local branch")
	}

	return r.CheckoutBranch(ctx, name)
}

// classify maps go-git errors onto this package's sentinels.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		return ErrAlreadyUpToDate
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return WrapError(ErrAuthRequired, err.Error())
	case errors.Is(err, plumbing.ErrReferenceNotFound),
		errors.Is(err, git.ErrBranchNotFound),
		strings.Contains(err.Error(), "couldn't find remote ref"):
		return WrapError(ErrBranchMissing, err.Error())
	case errors.Is(err, git.ErrRemoteNotFound):
		return WrapError(ErrResolveFailed, err.Error())
	default:
		return err
	}
}
