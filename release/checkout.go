package release

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/fs"
	"github.com/input-output-hk/catalyst-forge-release/git"
	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// Syncer brings the workspace to the tip of a branch and returns the
// checked out commit. cred is empty for anonymous access.
type Syncer interface {
	Sync(ctx context.Context, remoteURL, branch, dir string, cred secrets.Credential) (string, error)
}

// GitSyncer syncs with go-git. A workspace that already holds a clone of the
// same remote is fetched and reset instead of cloned again. A non-empty
// credential is sent as HTTP basic auth; Auth is used otherwise.
type GitSyncer struct {
	FS           fs.Filesystem
	Auth         git.AuthProvider
	ShallowDepth int
}

// Sync implements Syncer.
func (s *GitSyncer) Sync(ctx context.Context, remoteURL, branch, dir string, cred secrets.Credential) (string, error) {
	repo, err := git.Sync(ctx, remoteURL, branch, &git.Options{
		FS:           s.FS,
		Workdir:      dir,
		Auth:         s.authFor(cred),
		ShallowDepth: s.ShallowDepth,
	})
	if err != nil {
		return "", checkoutError(ctx, err, remoteURL, branch)
	}

	commit, err := repo.HeadCommit()
	if err != nil {
		return "", errors.Wrap(err, errors.CodeExecutionFailed, "failed to read checked out commit")
	}
	return commit, nil
}

func (s *GitSyncer) authFor(cred secrets.Credential) git.AuthProvider {
	if cred.Empty() {
		return s.Auth
	}
	return git.NewBasicAuthProvider(cred.Username, cred.Password)
}

func checkoutError(ctx context.Context, err error, remoteURL, branch string) error {
	fields := map[string]interface{}{"repo": remoteURL, "branch": branch}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.WrapWithContext(err, errors.CodeTimeout, "checkout did not finish in time", fields)
	case errors.Is(err, git.ErrAuthRequired):
		return errors.WrapWithContext(err, errors.CodeUnauthorized, "repository rejected the credentials", fields)
	case errors.Is(err, git.ErrBranchMissing),
		errors.Is(err, git.ErrInvalidRef),
		errors.Is(err, git.ErrRemoteMismatch):
		return errors.WrapWithContext(err, errors.CodeInvalidConfig, "checkout is misconfigured", fields)
	default:
		return errors.WrapWithContext(err, errors.CodeExecutionFailed, "checkout failed", fields)
	}
}
