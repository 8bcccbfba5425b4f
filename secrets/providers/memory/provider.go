// Package memory provides an in-memory secret provider for tests and local
// runs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

const latestVersion = "latest"

// Provider stores secrets in memory keyed by path and version.
type Provider struct {
	store map[string]map[string]*secrets.Secret
	mu    sync.RWMutex
}

// New creates an empty memory provider.
func New() *Provider {
	return &Provider{
		store: make(map[string]map[string]*secrets.Secret),
	}
}

// NewWith creates a provider pre-populated with path to value pairs.
func NewWith(values map[string]string) *Provider {
	p := New()
	for path, value := range values {
		p.put(secrets.SecretRef{Path: path}, []byte(value))
	}
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "memory"
}

// Close clears all stored secrets.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for path, versions := range p.store {
		for _, secret := range versions {
			secret.Clear()
		}
		delete(p.store, path)
	}
	return nil
}

// Resolve returns a copy of the stored secret.
func (p *Provider) Resolve(ctx context.Context, ref secrets.SecretRef) (*secrets.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve operation cancelled: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	secret, ok := p.lookup(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, ref.Path)
	}

	return &secrets.Secret{
		Value:     append([]byte(nil), secret.Value...),
		Version:   secret.Version,
		CreatedAt: secret.CreatedAt,
	}, nil
}

// Exists reports whether the referenced secret is stored.
func (p *Provider) Exists(ctx context.Context, ref secrets.SecretRef) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.lookup(ref)
	return ok, nil
}

// Store saves value under ref, also making it the latest version.
func (p *Provider) Store(ctx context.Context, ref secrets.SecretRef, value []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("store operation cancelled: %w", err)
	}
	if ref.Path == "" {
		return fmt.Errorf("%w: empty path", secrets.ErrInvalidRef)
	}

	p.put(ref, value)
	return nil
}

// Delete removes every version stored under ref.Path.
func (p *Provider) Delete(ctx context.Context, ref secrets.SecretRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	versions, ok := p.store[ref.Path]
	if !ok {
		return fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, ref.Path)
	}
	for _, secret := range versions {
		secret.Clear()
	}
	delete(p.store, ref.Path)
	return nil
}

func (p *Provider) put(ref secrets.SecretRef, value []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	version := ref.Version
	if version == "" {
		version = latestVersion
	}

	versions, ok := p.store[ref.Path]
	if !ok {
		versions = make(map[string]*secrets.Secret)
		p.store[ref.Path] = versions
	}

	secret := &secrets.Secret{
		Value:     append([]byte(nil), value...),
		Version:   version,
		CreatedAt: time.Now(),
	}
	versions[version] = secret
	versions[latestVersion] = secret
}

func (p *Provider) lookup(ref secrets.SecretRef) (*secrets.Secret, bool) {
	versions, ok := p.store[ref.Path]
	if !ok {
		return nil, false
	}
	version := ref.Version
	if version == "" {
		version = latestVersion
	}
	secret, ok := versions[version]
	return secret, ok
}
