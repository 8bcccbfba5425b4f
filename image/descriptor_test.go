package image

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-release/config"
	"github.com/input-output-hk/catalyst-forge-release/errors"
)

func testDescriptor() Descriptor {
	return Descriptor{
		BaseImage:          "eclipse-temurin:17-jre",
		ArtifactPath:       "target/billing-1.0.jar",
		WorkDir:            DefaultWorkDir,
		User:               DefaultUser,
		Port:               8080,
		HealthcheckCommand: "curl -f http://localhost:8080/actuator/health || exit 1",
		Interval:           30 * time.Second,
		Timeout:            3 * time.Second,
		StartPeriod:        40 * time.Second,
		Retries:            3,
	}
}

func TestRender(t *testing.T) {
	out, err := Render(testDescriptor())
	require.NoError(t, err)

	want := `FROM eclipse-temurin:17-jre
WORKDIR /app
COPY target/billing-1.0.jar app.jar
RUN groupadd --system app \
 && useradd --system --gid app --no-create-home app \
 && chown -R app:app /app
USER app
EXPOSE 8080
HEALTHCHECK --interval=30s --timeout=3s --start-period=40s --retries=3 \
  CMD curl -f http://localhost:8080/actuator/health || exit 1
ENTRYPOINT ["java", "-jar", "app.jar"]
`
	assert.Equal(t, want, string(out))
}

func TestRender_Defaults(t *testing.T) {
	d := testDescriptor()
	d.WorkDir = ""
	d.User = ""

	out, err := Render(d)
	require.NoError(t, err)
	assert.Contains(t, string(out), "WORKDIR /app\n")
	assert.Contains(t, string(out), "USER app\n")
}

func TestRender_Invalid(t *testing.T) {
	tests := map[string]func(*Descriptor){
		"no base image":     func(d *Descriptor) { d.BaseImage = "" },
		"no artifact":       func(d *Descriptor) { d.ArtifactPath = "" },
		"absolute artifact": func(d *Descriptor) { d.ArtifactPath = "/tmp/app.jar" },
		"escaping artifact": func(d *Descriptor) { d.ArtifactPath = "../app.jar" },
		"bad port":          func(d *Descriptor) { d.Port = 0 },
		"no healthcheck":    func(d *Descriptor) { d.HealthcheckCommand = "" },
		"zero interval":     func(d *Descriptor) { d.Interval = 0 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			d := testDescriptor()
			mutate(&d)
			_, err := Render(d)
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
		})
	}
}

func TestDescriptorFromConfig(t *testing.T) {
	cfg, err := config.Resolve(map[string]string{
		config.ParamRepoURL:             "https://github.com/acme/billing.git",
		config.ParamPort:                "9000",
		config.ParamHealthcheckInterval: "1m",
	})
	require.NoError(t, err)

	d := DescriptorFromConfig(cfg, "target/billing.jar")
	assert.Equal(t, 9000, d.Port)
	assert.Equal(t, time.Minute, d.Interval)

	out, err := Render(d)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "FROM eclipse-temurin:17-jre\n"))
	assert.Contains(t, string(out), "--interval=1m0s")
}

func TestReference(t *testing.T) {
	ref := NewReference("localhost:5000", "billing", "42")
	assert.Equal(t, []string{"billing:42", "billing:latest"}, ref.LocalTags())
	assert.Equal(t, []string{"localhost:5000/billing:42", "localhost:5000/billing:latest"}, ref.Targets())
	assert.Equal(t, []string{"42", "latest"}, ref.Tags())
	require.NoError(t, ref.Validate())

	bad := NewReference("localhost:5000", "Billing App", "42")
	assert.Error(t, bad.Validate())
}
