// Package env resolves secrets from environment variables. A reference path
// such as "release-credentials" maps to FORGE_SECRET_RELEASE_CREDENTIALS.
package env

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// DefaultPrefix is prepended to every derived variable name.
const DefaultPrefix = "FORGE_SECRET_"

// Provider reads secrets from the process environment.
type Provider struct {
	prefix string
	lookup func(string) (string, bool)
}

// Option configures a Provider.
type Option func(*Provider)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(p *Provider) {
		p.prefix = prefix
	}
}

// WithLookup replaces os.LookupEnv, for tests.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(p *Provider) {
		p.lookup = lookup
	}
}

// New creates an environment provider.
func New(opts ...Option) *Provider {
	p := &Provider{prefix: DefaultPrefix, lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns "env".
func (p *Provider) Name() string {
	return "env"
}

// VariableName returns the environment variable consulted for ref.
func (p *Provider) VariableName(ref secrets.SecretRef) string {
	name := strings.ToUpper(ref.Path)
	name = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	return p.prefix + name
}

// Resolve implements secrets.Resolver. Versions are not supported.
func (p *Provider) Resolve(ctx context.Context, ref secrets.SecretRef) (*secrets.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve cancelled: %w", err)
	}
	if ref.Version != "" {
		return nil, fmt.Errorf("%w: env provider has no versions", secrets.ErrInvalidRef)
	}

	value, ok := p.lookup(p.VariableName(ref))
	if !ok || value == "" {
		return nil, fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, p.VariableName(ref))
	}
	return &secrets.Secret{Value: []byte(value)}, nil
}

// Exists implements secrets.Resolver.
func (p *Provider) Exists(ctx context.Context, ref secrets.SecretRef) (bool, error) {
	value, ok := p.lookup(p.VariableName(ref))
	return ok && value != "", nil
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}
