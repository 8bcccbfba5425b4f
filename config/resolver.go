package config

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-release/errors"
)

// Resolve merges params with the declared defaults and validates the result.
// A parameter that is absent or empty takes its default. Unknown parameter
// names, empty required values and malformed values fail with
// CodeInvalidConfig. Resolve has no side effects.
func Resolve(params map[string]string) (PipelineConfig, error) {
	values := Defaults()

	var unknown []string
	for name, value := range params {
		if _, ok := values[name]; !ok {
			unknown = append(unknown, name)
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			values[name] = value
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return PipelineConfig{}, errors.New(
			errors.CodeInvalidConfig,
			fmt.Sprintf("unknown parameter(s): %s", strings.Join(unknown, ", ")),
		)
	}

	p := &parser{values: values}
	cfg := PipelineConfig{
		RepoURL:              p.url(ParamRepoURL, "http", "https", "ssh", "git", "file"),
		Branch:               p.str(ParamBranch),
		RepositoryManagerURL: p.url(ParamRepositoryManagerURL, "http", "https", "s3"),
		RegistryURL:          p.url(ParamRegistryURL, "http", "https"),
		AppName:              p.str(ParamAppName),
		CredentialsID:        p.str(ParamCredentialsID),
		CredentialsProvider:  p.oneOf(ParamCredentialsProvider, ProviderEnv, ProviderAWS),
		Workspace:            p.str(ParamWorkspace),
		OutputDir:            p.str(ParamOutputDir),
		ArtifactSuffix:       p.str(ParamArtifactSuffix),
		SecondaryMarkers:     p.list(ParamSecondaryMarker),
		BuildCommand:         p.str(ParamBuildCommand),
		TestCommand:          p.str(ParamTestCommand),
		ContainerCLI:         p.str(ParamContainerCLI),
		BaseImage:            p.str(ParamBaseImage),
		Port:                 p.port(ParamPort),
		Healthcheck: Healthcheck{
			Command:     p.str(ParamHealthcheckCommand),
			Interval:    p.duration(ParamHealthcheckInterval),
			Timeout:     p.duration(ParamHealthcheckTimeout),
			StartPeriod: p.duration(ParamHealthcheckStartPeriod),
			Retries:     p.count(ParamHealthcheckRetries),
		},
		StageTimeout:    p.duration(ParamStageTimeout),
		PipelineTimeout: p.duration(ParamPipelineTimeout),
		Strict:          p.boolean(ParamStrict),
		ReportFile:      p.str(ParamReportFile),
	}
	if notify := p.str(ParamNotifyURL); notify != NotifyDisabled {
		cfg.NotifyURL = p.url(ParamNotifyURL, "http", "https")
	}

	if len(p.problems) > 0 {
		return PipelineConfig{}, errors.New(
			errors.CodeInvalidConfig,
			fmt.Sprintf("configuration validation failed: %s", strings.Join(p.problems, "; ")),
		)
	}
	return cfg, nil
}

// parser converts resolved string values, collecting every problem instead of
// stopping at the first.
type parser struct {
	values   map[string]string
	problems []string
}

func (p *parser) fail(name, format string, args ...interface{}) {
	p.problems = append(p.problems, name+": "+fmt.Sprintf(format, args...))
}

func (p *parser) str(name string) string {
	v := p.values[name]
	if v == "" {
		p.fail(name, "required")
	}
	return v
}

func (p *parser) url(name string, schemes ...string) string {
	v := p.str(name)
	if v == "" {
		return ""
	}
	u, err := url.Parse(v)
	if err != nil || !u.IsAbs() || (u.Host == "" && u.Scheme != "file") {
		p.fail(name, "%q is not an absolute URL", v)
		return v
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return v
		}
	}
	p.fail(name, "scheme %q not supported (want one of %s)", u.Scheme, strings.Join(schemes, ", "))
	return v
}

func (p *parser) oneOf(name string, allowed ...string) string {
	v := p.str(name)
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	if v != "" {
		p.fail(name, "%q is not one of %s", v, strings.Join(allowed, ", "))
	}
	return v
}

func (p *parser) list(name string) []string {
	var out []string
	for _, item := range strings.Split(p.str(name), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (p *parser) duration(name string) time.Duration {
	v := p.str(name)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.fail(name, "%q is not a positive duration", v)
	}
	return d
}

func (p *parser) count(name string) int {
	v := p.str(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		p.fail(name, "%q is not a non-negative integer", v)
	}
	return n
}

func (p *parser) port(name string) int {
	v := p.str(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 65535 {
		p.fail(name, "%q is not a valid port", v)
	}
	return n
}

func (p *parser) boolean(name string) bool {
	v := p.str(name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(name, "%q is not a boolean", v)
	}
	return b
}
