package config

import (
	"path/filepath"
	"sort"

	"github.com/adrg/xdg"
)

// Parameter names accepted by Resolve.
const (
	ParamRepoURL                = "repo_url"
	ParamBranch                 = "branch"
	ParamRepositoryManagerURL   = "repository_manager_url"
	ParamRegistryURL            = "registry_url"
	ParamAppName                = "app_name"
	ParamCredentialsID          = "credentials_id"
	ParamCredentialsProvider    = "credentials_provider"
	ParamWorkspace              = "workspace"
	ParamOutputDir              = "output_dir"
	ParamArtifactSuffix         = "artifact_suffix"
	ParamSecondaryMarker        = "secondary_marker"
	ParamBuildCommand           = "build_command"
	ParamTestCommand            = "test_command"
	ParamContainerCLI           = "container_cli"
	ParamBaseImage              = "base_image"
	ParamPort                   = "port"
	ParamHealthcheckCommand     = "healthcheck_command"
	ParamHealthcheckInterval    = "healthcheck_interval"
	ParamHealthcheckTimeout     = "healthcheck_timeout"
	ParamHealthcheckStartPeriod = "healthcheck_start_period"
	ParamHealthcheckRetries     = "healthcheck_retries"
	ParamStageTimeout           = "stage_timeout"
	ParamPipelineTimeout        = "pipeline_timeout"
	ParamStrict                 = "strict"
	ParamReportFile             = "report_file"
	ParamNotifyURL              = "notify_url"
)

// NotifyDisabled is the notify_url value that turns the webhook notifier off.
const NotifyDisabled = "none"

// CounterFileName holds the last accepted build counter, next to the
// per-version run workspaces.
const CounterFileName = ".last-build"

// Credential providers.
const (
	ProviderEnv = "env"
	ProviderAWS = "aws"
)

// DefaultWorkspace is the workspace used when none is configured.
func DefaultWorkspace() string {
	return filepath.Join(xdg.CacheHome, "forge-release", "workspace")
}

// Defaults returns the declared default of every parameter. repo_url has no
// usable default; it resolves to empty and fails validation unless supplied.
func Defaults() map[string]string {
	return map[string]string{
		ParamRepoURL:                "",
		ParamBranch:                 "main",
		ParamRepositoryManagerURL:   "http://localhost:8081",
		ParamRegistryURL:            "http://localhost:5000",
		ParamAppName:                "app",
		ParamCredentialsID:          "release-credentials",
		ParamCredentialsProvider:    ProviderEnv,
		ParamWorkspace:              DefaultWorkspace(),
		ParamOutputDir:              "target",
		ParamArtifactSuffix:         ".jar",
		ParamSecondaryMarker:        "-sources",
		ParamBuildCommand:           "mvn -B clean package -DskipTests",
		ParamTestCommand:            "mvn -B test",
		ParamContainerCLI:           "docker",
		ParamBaseImage:              "eclipse-temurin:17-jre",
		ParamPort:                   "8080",
		ParamHealthcheckCommand:     "curl -f http://localhost:8080/actuator/health || exit 1",
		ParamHealthcheckInterval:    "30s",
		ParamHealthcheckTimeout:     "3s",
		ParamHealthcheckStartPeriod: "40s",
		ParamHealthcheckRetries:     "3",
		ParamStageTimeout:           "15m",
		ParamPipelineTimeout:        "60m",
		ParamStrict:                 "false",
		ParamReportFile:             "release-report.yaml",
		ParamNotifyURL:              NotifyDisabled,
	}
}

// ParamNames returns every declared parameter name, sorted.
func ParamNames() []string {
	defaults := Defaults()
	names := make([]string, 0, len(defaults))
	for name := range defaults {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
