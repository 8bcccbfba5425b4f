package main

import (
	"github.com/input-output-hk/catalyst-forge-release/config"
	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/fs"
	"github.com/input-output-hk/catalyst-forge-release/fs/billy"
)

// Params are the pipeline parameters. Every value stays a string so that an
// unset flag is distinguishable from a default; config.Resolve does the
// typing and validation.
type Params struct {
	RepoURL              string `name:"repo-url" env:"FORGE_REPO_URL" help:"Source repository URL." group:"Source"`
	Branch               string `name:"branch" env:"FORGE_BRANCH" help:"Branch to release." group:"Source"`
	RepositoryManagerURL string `name:"repository-manager-url" env:"FORGE_REPOSITORY_MANAGER_URL" help:"Repository manager URL (http, https or s3://bucket/prefix)." group:"Targets"`
	RegistryURL          string `name:"registry-url" env:"FORGE_REGISTRY_URL" help:"Container registry URL." group:"Targets"`
	AppName              string `name:"app-name" env:"FORGE_APP_NAME" help:"Application name." group:"Targets"`
	CredentialsID        string `name:"credentials-id" env:"FORGE_CREDENTIALS_ID" help:"Secret holding the release credential." group:"Targets"`
	CredentialsProvider  string `name:"credentials-provider" env:"FORGE_CREDENTIALS_PROVIDER" help:"Secret provider (env or aws)." group:"Targets"`

	Workspace       string `name:"workspace" env:"FORGE_WORKSPACE" help:"Workspace root; each run uses <workspace>/<app>/<version>." group:"Build"`
	OutputDir       string `name:"output-dir" env:"FORGE_OUTPUT_DIR" help:"Build output directory inside the checkout." group:"Build"`
	ArtifactSuffix  string `name:"artifact-suffix" env:"FORGE_ARTIFACT_SUFFIX" help:"File suffix of the primary artifact." group:"Build"`
	SecondaryMarker string `name:"secondary-marker" env:"FORGE_SECONDARY_MARKER" help:"Comma separated markers of archives that are never published." group:"Build"`
	BuildCommand    string `name:"build-command" env:"FORGE_BUILD_COMMAND" help:"Build command line." group:"Build"`
	TestCommand     string `name:"test-command" env:"FORGE_TEST_COMMAND" help:"Test command line." group:"Build"`

	ContainerCLI           string `name:"container-cli" env:"FORGE_CONTAINER_CLI" help:"Container CLI (docker, podman)." group:"Image"`
	BaseImage              string `name:"base-image" env:"FORGE_BASE_IMAGE" help:"Base image of the application image." group:"Image"`
	Port                   string `name:"port" env:"FORGE_PORT" help:"Port the application listens on." group:"Image"`
	HealthcheckCommand     string `name:"healthcheck-command" env:"FORGE_HEALTHCHECK_COMMAND" help:"Container health-check command." group:"Image"`
	HealthcheckInterval    string `name:"healthcheck-interval" env:"FORGE_HEALTHCHECK_INTERVAL" help:"Health-check interval." group:"Image"`
	HealthcheckTimeout     string `name:"healthcheck-timeout" env:"FORGE_HEALTHCHECK_TIMEOUT" help:"Health-check timeout." group:"Image"`
	HealthcheckStartPeriod string `name:"healthcheck-start-period" env:"FORGE_HEALTHCHECK_START_PERIOD" help:"Health-check start period." group:"Image"`
	HealthcheckRetries     string `name:"healthcheck-retries" env:"FORGE_HEALTHCHECK_RETRIES" help:"Health-check retries." group:"Image"`

	StageTimeout    string `name:"stage-timeout" env:"FORGE_STAGE_TIMEOUT" help:"Time limit of a single stage." group:"Execution"`
	PipelineTimeout string `name:"pipeline-timeout" env:"FORGE_PIPELINE_TIMEOUT" help:"Time limit of the whole run." group:"Execution"`
	Strict          string `name:"strict" env:"FORGE_STRICT" help:"Abort on publish and push failures (true or false)." group:"Execution"`
	ReportFile      string `name:"report-file" env:"FORGE_REPORT_FILE" help:"YAML run report, relative to the run workspace unless absolute." group:"Execution"`
	NotifyURL       string `name:"notify-url" env:"FORGE_NOTIFY_URL" help:"Webhook for the run notification, or none." group:"Execution"`
}

// Map returns the parameters that were set, keyed by parameter name.
func (p Params) Map() map[string]string {
	all := map[string]string{
		config.ParamRepoURL:                p.RepoURL,
		config.ParamBranch:                 p.Branch,
		config.ParamRepositoryManagerURL:   p.RepositoryManagerURL,
		config.ParamRegistryURL:            p.RegistryURL,
		config.ParamAppName:                p.AppName,
		config.ParamCredentialsID:          p.CredentialsID,
		config.ParamCredentialsProvider:    p.CredentialsProvider,
		config.ParamWorkspace:              p.Workspace,
		config.ParamOutputDir:              p.OutputDir,
		config.ParamArtifactSuffix:         p.ArtifactSuffix,
		config.ParamSecondaryMarker:        p.SecondaryMarker,
		config.ParamBuildCommand:           p.BuildCommand,
		config.ParamTestCommand:            p.TestCommand,
		config.ParamContainerCLI:           p.ContainerCLI,
		config.ParamBaseImage:              p.BaseImage,
		config.ParamPort:                   p.Port,
		config.ParamHealthcheckCommand:     p.HealthcheckCommand,
		config.ParamHealthcheckInterval:    p.HealthcheckInterval,
		config.ParamHealthcheckTimeout:     p.HealthcheckTimeout,
		config.ParamHealthcheckStartPeriod: p.HealthcheckStartPeriod,
		config.ParamHealthcheckRetries:     p.HealthcheckRetries,
		config.ParamStageTimeout:           p.StageTimeout,
		config.ParamPipelineTimeout:        p.PipelineTimeout,
		config.ParamStrict:                 p.Strict,
		config.ParamReportFile:             p.ReportFile,
		config.ParamNotifyURL:              p.NotifyURL,
	}
	set := make(map[string]string, len(all))
	for k, v := range all {
		if v != "" {
			set[k] = v
		}
	}
	return set
}

// offlineRepoURL stands in for repo_url in commands that never touch the
// source repository.
const offlineRepoURL = "file:///dev/null"

// resolve merges the parameter file under the flags and resolves the
// configuration. The workspace is made absolute so that every collaborator
// sees the same host path. With offline set, a missing repo_url is accepted.
func resolve(configFile string, p Params, offline bool) (config.PipelineConfig, error) {
	var fileParams map[string]string
	if configFile != "" {
		path, err := fs.GetAbs(configFile)
		if err != nil {
			return config.PipelineConfig{}, errors.Wrap(err, errors.CodeInvalidConfig, "invalid parameter file path")
		}
		fileParams, err = config.LoadFile(billy.NewOSFS("/"), path)
		if err != nil {
			return config.PipelineConfig{}, err
		}
	}

	var placeholder map[string]string
	if offline {
		placeholder = map[string]string{config.ParamRepoURL: offlineRepoURL}
	}

	cfg, err := config.Resolve(config.Merge(placeholder, fileParams, p.Map()))
	if err != nil {
		return config.PipelineConfig{}, err
	}

	cfg.Workspace, err = fs.GetAbs(cfg.Workspace)
	if err != nil {
		return config.PipelineConfig{}, errors.Wrap(err, errors.CodeInvalidConfig, "invalid workspace")
	}
	return cfg, nil
}
