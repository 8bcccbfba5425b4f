// Package release declares the stages of a release run: check out the
// source, build and test it, publish the artifact, build and push the
// container image, and summarize.
package release

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-release/artifact"
	"github.com/input-output-hk/catalyst-forge-release/domain"
	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/executor"
	"github.com/input-output-hk/catalyst-forge-release/fs"
	"github.com/input-output-hk/catalyst-forge-release/fs/billy"
	"github.com/input-output-hk/catalyst-forge-release/image"
	"github.com/input-output-hk/catalyst-forge-release/pipeline"
	"github.com/input-output-hk/catalyst-forge-release/publish"
	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// Stage names in declaration order.
const (
	StageCheckout   = "checkout"
	StageBuild      = "build"
	StageTest       = "test"
	StagePublish    = "publish"
	StageBuildImage = "build-image"
	StagePushImage  = "push-image"
	StageSummary    = "summary"
)

// diagnosticLines is how much command output is kept on failure.
const diagnosticLines = 20

// CredentialSource resolves the release credential. *secrets.Manager
// implements it.
type CredentialSource interface {
	Credential(ctx context.Context, ref secrets.SecretRef) (secrets.Credential, error)
}

// ImageBuilder builds and pushes the container image. *image.Builder
// implements it.
type ImageBuilder interface {
	Build(ctx context.Context, req image.BuildRequest) (image.Reference, error)
	Push(ctx context.Context, ref image.Reference) (*image.PushResult, error)
}

// ImageBuilderFactory returns a builder that logs in with cred. Building
// passes an empty credential.
type ImageBuilderFactory func(cred secrets.Credential) (ImageBuilder, error)

// Catalog holds the collaborators the stages call.
type Catalog struct {
	runner      executor.Runner
	fs          fs.Filesystem
	syncer      Syncer
	publisher   publish.Publisher
	credentials CredentialSource
	images      ImageBuilderFactory
	onArtifact  func(domain.ArtifactEvent)
	logger      *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// WithRunner sets the runner for the build and test commands.
func WithRunner(r executor.Runner) Option {
	return func(c *Catalog) {
		c.runner = r
	}
}

// WithFilesystem sets the host filesystem. Defaults to the OS filesystem
// rooted at /.
func WithFilesystem(fsys fs.Filesystem) Option {
	return func(c *Catalog) {
		c.fs = fsys
	}
}

// WithSyncer sets how the source is checked out.
func WithSyncer(s Syncer) Option {
	return func(c *Catalog) {
		c.syncer = s
	}
}

// WithPublisher sets the artifact publisher.
func WithPublisher(p publish.Publisher) Option {
	return func(c *Catalog) {
		c.publisher = p
	}
}

// WithCredentials sets the credential source.
func WithCredentials(src CredentialSource) Option {
	return func(c *Catalog) {
		c.credentials = src
	}
}

// WithImageBuilder sets the image builder factory.
func WithImageBuilder(f ImageBuilderFactory) Option {
	return func(c *Catalog) {
		c.images = f
	}
}

// WithArtifactListener is called for every published artifact and pushed
// image tag.
func WithArtifactListener(fn func(domain.ArtifactEvent)) Option {
	return func(c *Catalog) {
		c.onArtifact = fn
	}
}

// New creates a Catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.fs == nil {
		c.fs = billy.NewOSFS("/")
	}
	if c.runner == nil {
		c.runner = executor.NewLocalRunner(executor.WithLogger(c.logger))
	}
	if c.syncer == nil {
		c.syncer = &GitSyncer{FS: c.fs}
	}
	return c
}

// Stages returns the release stages in order. Each call gets fresh State, so
// the returned list serves exactly one run. stageTimeout bounds every stage
// except the summary.
func (c *Catalog) Stages(stageTimeout time.Duration) []pipeline.Stage {
	state := &State{}
	return []pipeline.Stage{
		{Name: StageCheckout, Policy: pipeline.FailFast, Timeout: stageTimeout, Action: c.checkout(state)},
		{Name: StageBuild, Policy: pipeline.FailFast, Timeout: stageTimeout, Action: c.build},
		{Name: StageTest, Policy: pipeline.Tolerant, Timeout: stageTimeout, Action: c.test},
		{Name: StagePublish, Policy: pipeline.TolerantWithFallback, Timeout: stageTimeout, Action: c.publishArtifact(state)},
		{Name: StageBuildImage, Policy: pipeline.FailFast, Timeout: stageTimeout, Action: c.buildImage(state)},
		{Name: StagePushImage, Policy: pipeline.TolerantWithFallback, Timeout: stageTimeout, Action: c.pushImage(state)},
		{Name: StageSummary, Policy: pipeline.Tolerant, Action: summary},
	}
}

func (c *Catalog) checkout(state *State) pipeline.Action {
	return func(ctx context.Context, run *pipeline.Run) error {
		dir := run.Workspace()
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, errors.CodeInternal, "failed to create workspace %s", dir)
		}

		// An unresolvable credential falls back to an anonymous clone.
		cred, err := c.credential(ctx, state, run)
		if err != nil {
			run.Logger.Warn("checking out without credentials", "error", err)
			cred = secrets.Credential{}
		}

		commit, err := c.syncer.Sync(ctx, run.Config.RepoURL, run.Config.Branch, dir, cred)
		if err != nil {
			return err
		}

		run.Annotate(pipeline.AnnotationCommit, commit)
		run.Logger.Info("source checked out",
			"repo", run.Config.RepoURL,
			"branch", run.Config.Branch,
			"commit", commit,
			"dir", dir)
		return nil
	}
}

func (c *Catalog) build(ctx context.Context, run *pipeline.Run) error {
	return c.command(ctx, run, run.Config.BuildCommand, errors.CodeBuildFailed)
}

func (c *Catalog) test(ctx context.Context, run *pipeline.Run) error {
	return c.command(ctx, run, run.Config.TestCommand, errors.CodeExecutionFailed)
}

// command runs a configured command line in the run workspace.
func (c *Catalog) command(ctx context.Context, run *pipeline.Run, line string, code errors.ErrorCode) error {
	program, args, err := executor.SplitCommand(line)
	if err != nil {
		return errors.Wrapf(err, errors.CodeInvalidConfig, "command %q cannot be parsed", line)
	}
	if program == "" {
		return errors.New(errors.CodeInvalidConfig, "command is empty")
	}

	result, err := c.runner.Run(ctx, program, args, executor.WithWorkingDir(fs.HostPath(c.fs, run.Workspace())))
	if err != nil {
		if errors.HasCode(err, errors.CodeTimeout) {
			code = errors.CodeTimeout
		}
		fields := map[string]interface{}{"command": line}
		if result != nil {
			fields["output"] = result.Tail(diagnosticLines)
			fields["exit_code"] = result.ExitCode
		}
		return errors.WrapWithContext(err, code, fmt.Sprintf("%s failed", program), fields)
	}
	return nil
}

func (c *Catalog) locate(state *State, run *pipeline.Run) (artifact.Reference, error) {
	return state.Artifact(func() (artifact.Reference, error) {
		locator := artifact.NewLocator(c.fs,
			artifact.WithSuffix(run.Config.ArtifactSuffix),
			artifact.WithSecondaryMarkers(run.Config.SecondaryMarkers...))

		root := filepath.Join(run.Workspace(), run.Config.OutputDir)
		ref, err := locator.Locate(root)
		if err != nil {
			return artifact.Reference{}, err
		}
		run.Annotate(pipeline.AnnotationArtifact, ref.Path)
		run.Logger.Info("artifact located", "path", ref.Path)
		return ref, nil
	})
}

func (c *Catalog) credential(ctx context.Context, state *State, run *pipeline.Run) (secrets.Credential, error) {
	return state.Credential(ctx, func(ctx context.Context) (secrets.Credential, error) {
		if run.Config.CredentialsID == "" || c.credentials == nil {
			return secrets.Credential{}, nil
		}
		cred, err := c.credentials.Credential(ctx, run.Config.CredentialsRef())
		if err != nil {
			return secrets.Credential{}, credentialError(err, run.Config.CredentialsID)
		}
		return cred, nil
	})
}

func credentialError(err error, id string) error {
	switch {
	case errors.Is(err, secrets.ErrSecretNotFound),
		errors.Is(err, secrets.ErrInvalidRef),
		errors.Is(err, secrets.ErrMalformedCredential):
		return errors.Wrapf(err, errors.CodeUnavailable, "credential %s is not available", id)
	case errors.Is(err, secrets.ErrAccessDenied):
		return errors.Wrapf(err, errors.CodeUnauthorized, "access to credential %s was denied", id)
	default:
		return errors.Wrapf(err, errors.CodeUnavailable, "credential %s could not be resolved", id)
	}
}

func (c *Catalog) publishArtifact(state *State) pipeline.Action {
	return func(ctx context.Context, run *pipeline.Run) error {
		if c.publisher == nil {
			return errors.New(errors.CodeInvalidConfig, "no publisher configured")
		}

		ref, err := c.locate(state, run)
		if err != nil {
			return err
		}
		cred, err := c.credential(ctx, state, run)
		if err != nil {
			return err
		}

		receipt, err := c.publisher.Publish(ctx, publish.Request{
			Artifact:   ref,
			AppName:    run.Config.AppName,
			Version:    run.Identity.Version,
			Credential: cred,
		})
		if err != nil {
			return err
		}

		state.setReceipt(receipt)
		run.Annotate(pipeline.AnnotationArtifactURI, receipt.URI)
		c.emit(run, domain.ArtifactEvent{
			ArtifactID: ref.Name,
			Type:       domain.ArtifactTypePackage,
			URI:        receipt.URI,
		})
		return nil
	}
}

func (c *Catalog) buildImage(state *State) pipeline.Action {
	return func(ctx context.Context, run *pipeline.Run) error {
		if c.images == nil {
			return errors.New(errors.CodeInvalidConfig, "no image builder configured")
		}

		ref, err := c.locate(state, run)
		if err != nil {
			return err
		}

		contextDir := run.Workspace()
		rel, err := filepath.Rel(fs.HostPath(c.fs, contextDir), ref.Path)
		if err != nil {
			return errors.Wrapf(err, errors.CodeInternal, "artifact %s is outside the build context", ref.Path)
		}

		builder, err := c.images(secrets.Credential{})
		if err != nil {
			return err
		}

		img, err := builder.Build(ctx, image.BuildRequest{
			ContextDir: fs.HostPath(c.fs, contextDir),
			Descriptor: image.DescriptorFromConfig(run.Config, filepath.ToSlash(rel)),
			Name:       run.Config.AppName,
			Version:    run.Identity.Version,
			Registry:   run.Config.RegistryHost(),
		})
		if err != nil {
			return err
		}

		state.setImage(img)
		run.Annotate(pipeline.AnnotationImage, img.LocalTags()[0])
		return nil
	}
}

func (c *Catalog) pushImage(state *State) pipeline.Action {
	return func(ctx context.Context, run *pipeline.Run) error {
		img, ok := state.Image()
		if !ok {
			return errors.New(errors.CodeInvalidInput, "no image was built in this run")
		}
		cred, err := c.credential(ctx, state, run)
		if err != nil {
			return err
		}
		builder, err := c.images(cred)
		if err != nil {
			return err
		}

		result, err := builder.Push(ctx, img)
		if result != nil {
			for _, tag := range result.Pushed() {
				c.emit(run, domain.ArtifactEvent{
					ArtifactID: img.Name,
					Type:       domain.ArtifactTypeContainer,
					URI:        tag.Target,
					Digest:     tag.Digest.String(),
				})
			}
		}
		return err
	}
}

func summary(_ context.Context, run *pipeline.Run) error {
	pipeline.LogSummary(run, run.Results())
	return nil
}

func (c *Catalog) emit(run *pipeline.Run, event domain.ArtifactEvent) {
	event.EventID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	run.Logger.Info("artifact published",
		"event_id", event.EventID,
		"artifact", event.ArtifactID,
		"type", event.Type,
		"uri", event.URI,
		"digest", event.Digest)
	if c.onArtifact != nil {
		c.onArtifact(event)
	}
}
