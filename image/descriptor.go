// Package image renders the container build descriptor for a located
// artifact, builds the image with the container CLI and pushes its tags to
// the registry.
package image

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/input-output-hk/catalyst-forge-release/config"
	"github.com/input-output-hk/catalyst-forge-release/errors"
)

const (
	// DefaultWorkDir is the working directory inside the image.
	DefaultWorkDir = "/app"

	// DefaultUser is the non-root user the application runs as.
	DefaultUser = "app"

	// DefaultDescriptorFile is the descriptor file name in the build context.
	// It differs from "Dockerfile" so a descriptor shipped with the
	// application is left alone.
	DefaultDescriptorFile = "Dockerfile.release"
)

// Descriptor holds the parameters of the rendered build descriptor.
type Descriptor struct {
	BaseImage string
	// ArtifactPath is relative to the build context.
	ArtifactPath string
	WorkDir      string
	User         string
	Port         int

	HealthcheckCommand string
	Interval           time.Duration
	Timeout            time.Duration
	StartPeriod        time.Duration
	Retries            int
}

// DescriptorFromConfig fills a Descriptor from cfg for the artifact at
// artifactPath.
func DescriptorFromConfig(cfg config.PipelineConfig, artifactPath string) Descriptor {
	return Descriptor{
		BaseImage:          cfg.BaseImage,
		ArtifactPath:       artifactPath,
		WorkDir:            DefaultWorkDir,
		User:               DefaultUser,
		Port:               cfg.Port,
		HealthcheckCommand: cfg.Healthcheck.Command,
		Interval:           cfg.Healthcheck.Interval,
		Timeout:            cfg.Healthcheck.Timeout,
		StartPeriod:        cfg.Healthcheck.StartPeriod,
		Retries:            cfg.Healthcheck.Retries,
	}
}

// Validate checks the descriptor can be rendered into a usable file.
func (d Descriptor) Validate() error {
	var problems []string
	if d.BaseImage == "" {
		problems = append(problems, "base image is empty")
	}
	if d.ArtifactPath == "" {
		problems = append(problems, "artifact path is empty")
	}
	if strings.HasPrefix(d.ArtifactPath, "/") || strings.HasPrefix(d.ArtifactPath, "..") {
		problems = append(problems, "artifact path must be inside the build context")
	}
	if d.Port < 1 || d.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d is out of range", d.Port))
	}
	if d.HealthcheckCommand == "" {
		problems = append(problems, "health-check command is empty")
	}
	if d.Interval <= 0 || d.Timeout <= 0 || d.StartPeriod < 0 || d.Retries < 0 {
		problems = append(problems, "health-check timings must be positive")
	}
	if len(problems) > 0 {
		return errors.New(errors.CodeInvalidConfig, "invalid image descriptor: "+strings.Join(problems, "; "))
	}
	return nil
}

const descriptorSource = `FROM {{ .BaseImage }}
WORKDIR {{ .WorkDir | default "/app" }}
COPY {{ .ArtifactPath }} app.jar
{{- $user := .User | default "app" }}
RUN groupadd --system {{ $user }} \
 && useradd --system --gid {{ $user }} --no-create-home {{ $user }} \
 && chown -R {{ $user }}:{{ $user }} {{ .WorkDir | default "/app" }}
USER {{ $user }}
EXPOSE {{ .Port }}
HEALTHCHECK --interval={{ .Interval }} --timeout={{ .Timeout }} --start-period={{ .StartPeriod }} --retries={{ .Retries }} \
  CMD {{ .HealthcheckCommand | trim }}
ENTRYPOINT ["java", "-jar", "app.jar"]
`

var descriptorTemplate = template.Must(
	template.New("descriptor").Funcs(sprig.TxtFuncMap()).Parse(descriptorSource),
)

// Render produces the build descriptor for d.
func Render(d Descriptor) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := descriptorTemplate.Execute(&buf, d); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to render image descriptor")
	}
	return buf.Bytes(), nil
}
