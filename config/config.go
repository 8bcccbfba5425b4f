// Package config resolves the parameters of a release run into an immutable
// PipelineConfig.
//
// Parameters come from three layers, highest precedence first: explicit
// values (CLI flags and environment), a CUE parameter file loaded with
// LoadFile, and the declared defaults. Callers merge the first two with Merge
// and hand the result to Resolve:
//
//	fileParams, err := config.LoadFile(fsys, "release.cue")
//	cfg, err := config.Resolve(config.Merge(fileParams, flagParams))
package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// Healthcheck holds the container health-check settings.
type Healthcheck struct {
	Command     string        `json:"command" yaml:"command"`
	Interval    time.Duration `json:"interval" yaml:"interval"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	StartPeriod time.Duration `json:"start_period" yaml:"start_period"`
	Retries     int           `json:"retries" yaml:"retries"`
}

// PipelineConfig is the fully resolved configuration of one run. It is built
// once by Resolve and passed by value; nothing mutates it afterwards.
type PipelineConfig struct {
	RepoURL              string `json:"repo_url" yaml:"repo_url"`
	Branch               string `json:"branch" yaml:"branch"`
	RepositoryManagerURL string `json:"repository_manager_url" yaml:"repository_manager_url"`
	RegistryURL          string `json:"registry_url" yaml:"registry_url"`
	AppName              string `json:"app_name" yaml:"app_name"`

	// CredentialsID references the credential; it is never the value.
	CredentialsID       string `json:"credentials_id" yaml:"credentials_id"`
	CredentialsProvider string `json:"credentials_provider" yaml:"credentials_provider"`

	Workspace        string   `json:"workspace" yaml:"workspace"`
	OutputDir        string   `json:"output_dir" yaml:"output_dir"`
	ArtifactSuffix   string   `json:"artifact_suffix" yaml:"artifact_suffix"`
	SecondaryMarkers []string `json:"secondary_markers" yaml:"secondary_markers"`

	BuildCommand string `json:"build_command" yaml:"build_command"`
	TestCommand  string `json:"test_command" yaml:"test_command"`

	ContainerCLI string      `json:"container_cli" yaml:"container_cli"`
	BaseImage    string      `json:"base_image" yaml:"base_image"`
	Port         int         `json:"port" yaml:"port"`
	Healthcheck  Healthcheck `json:"healthcheck" yaml:"healthcheck"`

	StageTimeout    time.Duration `json:"stage_timeout" yaml:"stage_timeout"`
	PipelineTimeout time.Duration `json:"pipeline_timeout" yaml:"pipeline_timeout"`
	Strict          bool          `json:"strict" yaml:"strict"`

	ReportFile string `json:"report_file" yaml:"report_file"`
	// NotifyURL is empty when webhook notifications are disabled.
	NotifyURL string `json:"notify_url,omitempty" yaml:"notify_url,omitempty"`
}

// CredentialsRef returns the secret reference for the release credential.
func (c PipelineConfig) CredentialsRef() secrets.SecretRef {
	return secrets.SecretRef{Path: c.CredentialsID}
}

// RegistryHost returns the registry coordinate (host[:port]) used in image
// references.
func (c PipelineConfig) RegistryHost() string {
	u, err := url.Parse(c.RegistryURL)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(c.RegistryURL, "/")
	}
	return u.Host
}

// RegistryPlainHTTP reports whether the registry is reached without TLS.
func (c PipelineConfig) RegistryPlainHTTP() bool {
	return strings.HasPrefix(c.RegistryURL, "http://")
}

// RunWorkspace returns the directory isolating the run for version.
func (c PipelineConfig) RunWorkspace(version string) string {
	return filepath.Join(c.Workspace, c.AppName, version)
}

// CounterFile is where the last accepted build counter of the application
// is kept.
func (c PipelineConfig) CounterFile() string {
	return filepath.Join(c.Workspace, c.AppName, CounterFileName)
}

// Merge combines parameter layers. Later layers win; empty values never
// override.
func Merge(layers ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			if v != "" {
				merged[k] = v
			}
		}
	}
	return merged
}
