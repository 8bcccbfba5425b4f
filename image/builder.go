package image

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/executor"
	"github.com/input-output-hk/catalyst-forge-release/fs"
	"github.com/input-output-hk/catalyst-forge-release/fs/billy"
	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// diagnosticLines is how much collaborator output is kept on failure.
const diagnosticLines = 20

// Pinger reports registry readiness. *registry.Client implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Resolver looks up the manifest a pushed target points at. When the
// registry given to WithRegistry implements it, targets whose push output
// carries no digest are resolved against the registry.
type Resolver interface {
	Resolve(ctx context.Context, reference string) (ocispec.Descriptor, error)
}

// BuildRequest describes one image build.
type BuildRequest struct {
	// ContextDir is the build context on the host.
	ContextDir string
	Descriptor Descriptor
	Name       string
	Version    string
	// Registry is the host[:port] the image will be pushed to.
	Registry string
}

// PushedTag records the outcome for one push target.
type PushedTag struct {
	Target string        `json:"target" yaml:"target"`
	Digest digest.Digest `json:"digest,omitempty" yaml:"digest,omitempty"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// PushResult lists the outcome of every target.
type PushResult struct {
	Tags []PushedTag `json:"tags" yaml:"tags"`
}

// Pushed returns the targets that were pushed.
func (r *PushResult) Pushed() []PushedTag {
	var out []PushedTag
	for _, t := range r.Tags {
		if t.Error == "" {
			out = append(out, t)
		}
	}
	return out
}

// Builder drives the container CLI.
type Builder struct {
	runner     executor.Runner
	cli        string
	fs         fs.Filesystem
	registry   Pinger
	credential secrets.Credential
	file       string
	logger     *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithRegistry sets the readiness probe consulted before pushing.
func WithRegistry(p Pinger) Option {
	return func(b *Builder) {
		b.registry = p
	}
}

// WithCredential logs in to the registry before pushing.
func WithCredential(cred secrets.Credential) Option {
	return func(b *Builder) {
		b.credential = cred
	}
}

// WithFilesystem sets where the descriptor is written. Context paths are
// host paths, so the default is the host filesystem rooted at /.
func WithFilesystem(fsys fs.Filesystem) Option {
	return func(b *Builder) {
		b.fs = fsys
	}
}

// WithDescriptorFile overrides DefaultDescriptorFile.
func WithDescriptorFile(name string) Option {
	return func(b *Builder) {
		b.file = name
	}
}

// NewBuilder creates a Builder invoking cli (e.g. "docker") through runner.
func NewBuilder(runner executor.Runner, cli string, opts ...Option) *Builder {
	b := &Builder{
		runner: runner,
		cli:    cli,
		file:   DefaultDescriptorFile,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.fs == nil {
		b.fs = billy.NewOSFS("/")
	}
	return b
}

// Build renders the descriptor into the build context and builds the image
// tagged with both the version and latest.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (Reference, error) {
	ref := NewReference(req.Registry, req.Name, req.Version)

	content, err := Render(req.Descriptor)
	if err != nil {
		return Reference{}, err
	}

	file := path.Join(req.ContextDir, b.file)
	if err := b.fs.WriteFile(file, content, 0o644); err != nil {
		return Reference{}, errors.Wrapf(err, errors.CodeInternal, "failed to write descriptor %s", file)
	}

	args := []string{"build", "-f", file}
	for _, tag := range ref.LocalTags() {
		args = append(args, "-t", tag)
	}
	args = append(args, req.ContextDir)

	b.logger.Info("building image", "image", ref.LocalTags()[0], "context", req.ContextDir)
	result, err := b.runner.Run(ctx, b.cli, args)
	if err != nil {
		return Reference{}, collaboratorError(err, result, errors.CodeBuildFailed, "image build failed")
	}
	return ref, nil
}

// Push checks registry readiness, logs in when a credential is configured
// and pushes each target independently. A failure for one target does not
// stop the other; failures are joined into the returned error.
func (b *Builder) Push(ctx context.Context, ref Reference) (*PushResult, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	if b.registry != nil {
		if err := b.registry.Ping(ctx); err != nil {
			return nil, err
		}
	}

	if err := b.login(ctx, ref.Registry); err != nil {
		return nil, err
	}

	result := &PushResult{}
	var errs []error
	for i, target := range ref.Targets() {
		tag := PushedTag{Target: target}
		d, err := b.pushOne(ctx, ref.LocalTags()[i], target)
		if err != nil {
			b.logger.Warn("push failed", "target", target, "error", err)
			tag.Error = err.Error()
			errs = append(errs, err)
		} else {
			tag.Digest = d
			b.logger.Info("pushed image", "target", target, "digest", d)
		}
		result.Tags = append(result.Tags, tag)
	}

	if len(errs) > 0 {
		code := errors.CodePublishFailed
		for _, err := range errs {
			if errors.HasCode(err, errors.CodeTimeout) {
				code = errors.CodeTimeout
			}
		}
		return result, errors.Wrapf(errors.Join(errs...), code,
			"push failed for %d of %d targets", len(errs), len(result.Tags))
	}
	return result, nil
}

func (b *Builder) login(ctx context.Context, host string) error {
	if b.credential.Empty() {
		return nil
	}

	args := []string{"login", "--username", b.credential.Username, "--password-stdin", host}
	result, err := b.runner.RunWithInput(ctx, b.credential.Password, b.cli, args, executor.SilentMode())
	if err != nil {
		return collaboratorError(err, result, errors.CodeUnauthorized, "registry login failed")
	}
	return nil
}

func (b *Builder) pushOne(ctx context.Context, local, target string) (digest.Digest, error) {
	if result, err := b.runner.Run(ctx, b.cli, []string{"tag", local, target}); err != nil {
		return "", collaboratorError(err, result, errors.CodeExecutionFailed, fmt.Sprintf("tag %s failed", target))
	}

	result, err := b.runner.Run(ctx, b.cli, []string{"push", target})
	if err != nil {
		return "", collaboratorError(err, result, errors.CodePublishFailed, fmt.Sprintf("push %s failed", target))
	}
	if d := ParseDigest(result.Combined + result.Stdout); d != "" {
		return d, nil
	}
	return b.resolve(ctx, target), nil
}

// resolve asks the registry for the digest of target. The push already
// succeeded, so a failed lookup only leaves the digest empty.
func (b *Builder) resolve(ctx context.Context, target string) digest.Digest {
	r, ok := b.registry.(Resolver)
	if !ok {
		return ""
	}
	desc, err := r.Resolve(ctx, target)
	if err != nil {
		b.logger.Debug("could not resolve pushed digest", "target", target, "error", err)
		return ""
	}
	return desc.Digest
}

var digestLine = regexp.MustCompile(`digest:\s*(\S+)`)

// ParseDigest extracts the manifest digest from push output, returning ""
// when the output carries none.
func ParseDigest(output string) digest.Digest {
	m := digestLine.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	d, err := digest.Parse(m[1])
	if err != nil {
		return ""
	}
	return d
}

// collaboratorError annotates a failed CLI invocation with the tail of its
// output. Timeouts keep their code.
func collaboratorError(err error, result *executor.Result, code errors.ErrorCode, msg string) error {
	if errors.HasCode(err, errors.CodeTimeout) {
		code = errors.CodeTimeout
	}
	fields := map[string]interface{}{}
	if result != nil {
		fields["output"] = result.Tail(diagnosticLines)
		fields["exit_code"] = result.ExitCode
	}
	return errors.WrapWithContext(err, code, msg, fields)
}
