package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/input-output-hk/catalyst-forge-release/config"
	"github.com/input-output-hk/catalyst-forge-release/domain"
	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/executor"
	"github.com/input-output-hk/catalyst-forge-release/fs"
	"github.com/input-output-hk/catalyst-forge-release/fs/billy"
	"github.com/input-output-hk/catalyst-forge-release/identity"
	"github.com/input-output-hk/catalyst-forge-release/image"
	"github.com/input-output-hk/catalyst-forge-release/pipeline"
	"github.com/input-output-hk/catalyst-forge-release/publish"
	"github.com/input-output-hk/catalyst-forge-release/registry"
	"github.com/input-output-hk/catalyst-forge-release/release"
	"github.com/input-output-hk/catalyst-forge-release/secrets"
	awsprovider "github.com/input-output-hk/catalyst-forge-release/secrets/providers/aws"
	envprovider "github.com/input-output-hk/catalyst-forge-release/secrets/providers/env"
)

// RunCmd runs the release pipeline.
type RunCmd struct {
	Params

	BuildNumber string `name:"build-number" env:"BUILD_NUMBER" required:"" help:"Monotonic build counter; becomes the version."`
}

// Run executes the pipeline. A failed run returns errPipelineFailed.
func (c *RunCmd) Run(ctx context.Context, e *env) error {
	cfg, err := resolve(e.globals.Config, c.Params, false)
	if err != nil {
		return err
	}

	counter, err := identity.ParseCounter(c.BuildNumber)
	if err != nil {
		return err
	}
	host := billy.NewOSFS("/")
	deriver := identity.NewDeriver(identity.SystemClock,
		identity.WithStore(identity.NewFileStore(host, cfg.CounterFile())))
	id, err := deriver.Derive(counter)
	if err != nil {
		return err
	}

	logger := e.logger.With("app", cfg.AppName, "version", id.Version)

	credentials, err := newCredentials(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer credentials.Close()

	publisher, err := publish.New(ctx, cfg, publish.WithLogger(logger), publish.WithFilesystem(host))
	if err != nil {
		return err
	}

	runner := executor.NewLocalRunner(executor.WithLogger(logger))
	catalog := release.New(
		release.WithLogger(logger),
		release.WithFilesystem(host),
		release.WithRunner(runner),
		release.WithPublisher(publisher),
		release.WithCredentials(credentials),
		release.WithImageBuilder(imageBuilders(cfg, runner, host, logger)),
		release.WithArtifactListener(func(ev domain.ArtifactEvent) {
			logger.Debug("artifact event recorded", "event_id", ev.EventID, "uri", ev.URI)
		}),
	)

	workspace := cfg.RunWorkspace(id.Version)
	hook := pipeline.NewHook(newNotifier(cfg, logger),
		pipeline.WithHookLogger(logger),
		pipeline.WithOutputDir(host, filepath.Join(workspace, cfg.OutputDir)),
		pipeline.WithReportFile(host, reportPath(cfg, workspace)))

	engine := pipeline.NewExecutor(
		pipeline.WithLogger(logger),
		pipeline.WithStrict(cfg.Strict),
		pipeline.WithGlobalTimeout(cfg.PipelineTimeout),
		pipeline.WithHook(hook))

	report := engine.Run(ctx, pipeline.NewRun(cfg, id, logger), catalog.Stages(cfg.StageTimeout))

	if err := pipeline.WriteSummary(e.stdout, report.Snapshot()); err != nil {
		logger.Warn("failed to print summary", "error", err)
	}
	if report.Failed() {
		return fmt.Errorf("%w: %s", errPipelineFailed, report.Reason)
	}
	return nil
}

// newCredentials registers the env provider and, when selected, the AWS
// Secrets Manager provider.
func newCredentials(ctx context.Context, cfg config.PipelineConfig, logger *slog.Logger) (*secrets.Manager, error) {
	m := secrets.NewManager(&secrets.Config{
		DefaultProvider: cfg.CredentialsProvider,
		AutoClear:       true,
		Logger:          logger,
	})
	if err := m.RegisterProvider(config.ProviderEnv, envprovider.New()); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to register env provider")
	}
	if cfg.CredentialsProvider == config.ProviderAWS {
		p, err := awsprovider.New(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to configure AWS Secrets Manager")
		}
		if err := m.RegisterProvider(config.ProviderAWS, p); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to register aws provider")
		}
	}
	return m, nil
}

// imageBuilders returns a factory wiring the registry probe and login for a
// credential.
func imageBuilders(
	cfg config.PipelineConfig,
	runner executor.Runner,
	host fs.Filesystem,
	logger *slog.Logger,
) release.ImageBuilderFactory {
	return func(cred secrets.Credential) (release.ImageBuilder, error) {
		opts := []registry.Option{registry.WithLogger(logger)}
		if !cred.Empty() {
			opts = append(opts, registry.WithStaticAuth(cred.Username, cred.Password))
		}
		client, err := registry.NewFromURL(cfg.RegistryURL, opts...)
		if err != nil {
			return nil, err
		}
		return image.NewBuilder(runner, cfg.ContainerCLI,
			image.WithLogger(logger),
			image.WithRegistry(client),
			image.WithCredential(cred),
			image.WithFilesystem(host)), nil
	}
}

func newNotifier(cfg config.PipelineConfig, logger *slog.Logger) pipeline.Notifier {
	notifiers := pipeline.MultiNotifier{pipeline.NewLogNotifier(logger)}
	if cfg.NotifyURL != "" {
		notifiers = append(notifiers, pipeline.NewWebhookNotifier(cfg.NotifyURL))
	}
	return notifiers
}

func reportPath(cfg config.PipelineConfig, workspace string) string {
	if filepath.IsAbs(cfg.ReportFile) {
		return cfg.ReportFile
	}
	return filepath.Join(workspace, cfg.ReportFile)
}
