package release

import (
	"context"
	"sync"

	"github.com/input-output-hk/catalyst-forge-release/artifact"
	"github.com/input-output-hk/catalyst-forge-release/image"
	"github.com/input-output-hk/catalyst-forge-release/publish"
	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// State carries what one stage produces for a later one within a single
// run. Lookups are computed once; failures are not cached.
type State struct {
	mu         sync.Mutex
	artifact   *artifact.Reference
	receipt    *publish.Receipt
	image      *image.Reference
	credential *secrets.Credential
}

// Artifact returns the located artifact, calling locate on first use.
func (s *State) Artifact(locate func() (artifact.Reference, error)) (artifact.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifact != nil {
		return *s.artifact, nil
	}
	ref, err := locate()
	if err != nil {
		return artifact.Reference{}, err
	}
	s.artifact = &ref
	return ref, nil
}

// Credential returns the release credential, calling fetch on first use.
func (s *State) Credential(
	ctx context.Context,
	fetch func(context.Context) (secrets.Credential, error),
) (secrets.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credential != nil {
		return *s.credential, nil
	}
	cred, err := fetch(ctx)
	if err != nil {
		return secrets.Credential{}, err
	}
	s.credential = &cred
	return cred, nil
}

func (s *State) setReceipt(r *publish.Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipt = r
}

// Receipt returns the publish receipt, if the artifact was published.
func (s *State) Receipt() (*publish.Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receipt, s.receipt != nil
}

func (s *State) setImage(ref image.Reference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = &ref
}

// Image returns the built image reference.
func (s *State) Image() (image.Reference, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return image.Reference{}, false
	}
	return *s.image, true
}
