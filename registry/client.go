// Package registry talks to the OCI image registry on behalf of the push
// stage. It probes readiness before any push is attempted, validates push
// targets and resolves what a pushed tag points at.
package registry

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/errcode"

	"github.com/input-output-hk/catalyst-forge-release/errors"
)

const (
	// DefaultMaxRetries is how often a failed readiness probe is retried.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the initial delay between probes. It doubles on
	// each retry.
	DefaultRetryDelay = 500 * time.Millisecond
)

// Client probes a single registry.
type Client struct {
	host    string
	options *Options
}

// New creates a client for the registry at host (host[:port]).
func New(host string, opts ...Option) (*Client, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if err := validate(host, options); err != nil {
		return nil, err
	}

	return &Client{host: host, options: options}, nil
}

// NewFromURL creates a client from a registry URL such as
// http://localhost:5000. An http scheme enables plain HTTP.
func NewFromURL(rawURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, errors.Newf(errors.CodeInvalidConfig, "invalid registry URL %q", rawURL)
	}
	if u.Scheme == "http" {
		opts = append([]Option{WithPlainHTTP(true)}, opts...)
	}
	return New(u.Host, opts...)
}

func validate(host string, opts *Options) error {
	if host == "" {
		return errors.New(errors.CodeInvalidConfig, "registry host is empty")
	}
	if strings.Contains(host, "/") {
		return errors.Newf(errors.CodeInvalidConfig, "registry host %q must not contain a path", host)
	}
	if opts.Username != "" && opts.Password == "" {
		return errors.New(errors.CodeInvalidConfig, "static password required when a username is given")
	}
	if opts.MaxRetries < 0 {
		return errors.New(errors.CodeInvalidConfig, "max retries cannot be negative")
	}
	return nil
}

// Host returns the registry coordinate.
func (c *Client) Host() string {
	return c.host
}

// Ping checks that the registry answers the distribution API. Transient
// failures are retried with exponential backoff. A registry that stays
// unreachable yields CodeUnavailable; rejected credentials yield
// CodeUnauthorized.
func (c *Client) Ping(ctx context.Context) error {
	reg, err := c.newRegistry()
	if err != nil {
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.options.RetryDelay
	policy.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		err := reg.Ping(ctx)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.options.Logger.Warn("registry not ready, retrying",
			"registry", c.host, "attempt", attempt, "wait", wait, "error", err)
	}

	err = backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.options.MaxRetries)), ctx),
		notify)
	if err != nil {
		return c.classify(ctx, err)
	}

	c.options.Logger.Debug("registry ready", "registry", c.host, "attempts", attempt)
	return nil
}

// Resolve returns the manifest descriptor a pushed reference such as
// localhost:5000/billing:42 points at. The reference must live on this
// registry.
func (c *Client) Resolve(ctx context.Context, reference string) (ocispec.Descriptor, error) {
	ref, err := ParseReference(reference)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	if ref.Registry != c.host {
		return ocispec.Descriptor{}, errors.Newf(errors.CodeInvalidInput,
			"reference %s is not on registry %s", reference, c.host)
	}

	reg, err := c.newRegistry()
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	repo, err := reg.Repository(ctx, ref.Repository)
	if err != nil {
		return ocispec.Descriptor{}, errors.Wrapf(err, errors.CodeInvalidInput, "invalid repository %q", ref.Repository)
	}

	desc, err := repo.Resolve(ctx, ref.Reference)
	if err != nil {
		return ocispec.Descriptor{}, c.classify(ctx, err)
	}
	return desc, nil
}

func (c *Client) newRegistry() (*remote.Registry, error) {
	reg, err := remote.NewRegistry(c.host)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInvalidConfig, "invalid registry %q", c.host)
	}
	reg.PlainHTTP = c.options.PlainHTTP

	client := &auth.Client{
		Client: c.options.HTTPClient,
		Cache:  auth.NewCache(),
	}
	if c.options.Username != "" {
		client.Credential = auth.StaticCredential(c.host, auth.Credential{
			Username: c.options.Username,
			Password: c.options.Password,
		})
	}
	client.SetUserAgent("forge-release")
	reg.Client = client

	return reg, nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	fields := map[string]interface{}{"registry": c.host}

	var resp *errcode.ErrorResponse
	if stderrors.Is(err, auth.ErrBasicCredentialNotFound) || (stderrors.As(err, &resp) &&
		(resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden)) {
		return errors.WrapWithContext(err, errors.CodeUnauthorized, "registry rejected the credentials", fields)
	}
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.WrapWithContext(err, errors.CodeTimeout, "registry probe did not finish in time", fields)
	}
	return errors.WrapWithContext(err, errors.CodeUnavailable, fmt.Sprintf("registry %s is not ready", c.host), fields)
}

// isRetryable reports whether a probe failure may clear up on its own.
func isRetryable(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var resp *errcode.ErrorResponse
	if stderrors.As(err, &resp) {
		return resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
	}

	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "EOF")
}
