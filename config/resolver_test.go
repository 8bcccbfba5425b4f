package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-release/errors"
)

const testRepo = "https://github.com/acme/service.git"

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve(map[string]string{ParamRepoURL: testRepo})
	require.NoError(t, err)

	assert.Equal(t, testRepo, cfg.RepoURL)
	assert.Equal(t, "main", cfg.Branch)
	assert.Equal(t, "http://localhost:8081", cfg.RepositoryManagerURL)
	assert.Equal(t, "http://localhost:5000", cfg.RegistryURL)
	assert.Equal(t, "app", cfg.AppName)
	assert.Equal(t, "release-credentials", cfg.CredentialsID)
	assert.Equal(t, ProviderEnv, cfg.CredentialsProvider)
	assert.Equal(t, DefaultWorkspace(), cfg.Workspace)
	assert.Equal(t, []string{"-sources"}, cfg.SecondaryMarkers)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, Healthcheck{
		Command:     "curl -f http://localhost:8080/actuator/health || exit 1",
		Interval:    30 * time.Second,
		Timeout:     3 * time.Second,
		StartPeriod: 40 * time.Second,
		Retries:     3,
	}, cfg.Healthcheck)
	assert.Equal(t, 15*time.Minute, cfg.StageTimeout)
	assert.Equal(t, time.Hour, cfg.PipelineTimeout)
	assert.False(t, cfg.Strict)
	assert.Empty(t, cfg.NotifyURL)
}

func TestResolve_OverridesWin(t *testing.T) {
	cfg, err := Resolve(map[string]string{
		ParamRepoURL:              testRepo,
		ParamBranch:               "release/1.x",
		ParamRepositoryManagerURL: "s3://artifacts/releases",
		ParamRegistryURL:          "https://registry.example.com:5443",
		ParamAppName:              "billing",
		ParamSecondaryMarker:      "-sources, -javadoc,-tests",
		ParamPort:                 "9090",
		ParamStrict:               "true",
		ParamNotifyURL:            "https://hooks.example.com/release",
	})
	require.NoError(t, err)

	assert.Equal(t, "release/1.x", cfg.Branch)
	assert.Equal(t, "s3://artifacts/releases", cfg.RepositoryManagerURL)
	assert.Equal(t, "registry.example.com:5443", cfg.RegistryHost())
	assert.False(t, cfg.RegistryPlainHTTP())
	assert.Equal(t, "billing", cfg.AppName)
	assert.Equal(t, []string{"-sources", "-javadoc", "-tests"}, cfg.SecondaryMarkers)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Strict)
	assert.Equal(t, "https://hooks.example.com/release", cfg.NotifyURL)
}

func TestResolve_EmptyValueTakesDefault(t *testing.T) {
	cfg, err := Resolve(map[string]string{ParamRepoURL: testRepo, ParamBranch: "  ", ParamAppName: ""})
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Branch)
	assert.Equal(t, "app", cfg.AppName)
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]string
		wantMsg string
	}{
		{name: "missing repo url", params: map[string]string{}, wantMsg: "repo_url: required"},
		{name: "unknown param", params: map[string]string{ParamRepoURL: testRepo, "colour": "blue"}, wantMsg: "unknown parameter(s): colour"},
		{name: "relative url", params: map[string]string{ParamRepoURL: "acme/service"}, wantMsg: "not an absolute URL"},
		{name: "bad scheme", params: map[string]string{ParamRepoURL: testRepo, ParamRegistryURL: "ftp://r"}, wantMsg: "scheme \"ftp\""},
		{name: "bad duration", params: map[string]string{ParamRepoURL: testRepo, ParamStageTimeout: "soon"}, wantMsg: "stage_timeout"},
		{name: "negative duration", params: map[string]string{ParamRepoURL: testRepo, ParamPipelineTimeout: "-1m"}, wantMsg: "pipeline_timeout"},
		{name: "bad port", params: map[string]string{ParamRepoURL: testRepo, ParamPort: "70000"}, wantMsg: "port"},
		{name: "bad retries", params: map[string]string{ParamRepoURL: testRepo, ParamHealthcheckRetries: "x"}, wantMsg: "healthcheck_retries"},
		{name: "bad bool", params: map[string]string{ParamRepoURL: testRepo, ParamStrict: "maybe"}, wantMsg: "strict"},
		{name: "bad provider", params: map[string]string{ParamRepoURL: testRepo, ParamCredentialsProvider: "vault"}, wantMsg: "credentials_provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.params)
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
			assert.Equal(t, "ConfigurationError", errors.GetCode(err).Kind())
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestResolve_CollectsAllProblems(t *testing.T) {
	_, err := Resolve(map[string]string{ParamPort: "0", ParamStrict: "maybe"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repo_url")
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "strict")
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	params := map[string]string{ParamRepoURL: testRepo}
	_, err := Resolve(params)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{ParamRepoURL: testRepo}, params)
}

func TestMerge(t *testing.T) {
	merged := Merge(
		map[string]string{ParamBranch: "file", ParamAppName: "file-app"},
		map[string]string{ParamBranch: "flag", ParamAppName: ""},
	)
	assert.Equal(t, "flag", merged[ParamBranch])
	assert.Equal(t, "file-app", merged[ParamAppName])
}

func TestRunWorkspace(t *testing.T) {
	cfg, err := Resolve(map[string]string{ParamRepoURL: testRepo, ParamWorkspace: "/tmp/ws", ParamAppName: "svc"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/ws", "svc", "42"), cfg.RunWorkspace("42"))
	assert.Equal(t, filepath.Join("/tmp/ws", "svc", ".last-build"), cfg.CounterFile())
	assert.Equal(t, "localhost:5000", cfg.RegistryHost())
	assert.True(t, cfg.RegistryPlainHTTP())
	assert.Equal(t, "release-credentials", cfg.CredentialsRef().Path)
}

func TestParamNamesMatchDefaults(t *testing.T) {
	names := ParamNames()
	assert.Len(t, names, len(Defaults()))
	assert.Contains(t, names, ParamNotifyURL)
}
