package image

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/executor"
	"github.com/input-output-hk/catalyst-forge-release/fs/billy"
	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

const testDigest = "sha256:3c4c1f9c2e0b7b6e8f4e6e1f0e2d3c4b5a69788776655443322110ffeeddccbb"

type call struct {
	program string
	args    []string
	input   string
	console bool
}

type fakeRunner struct {
	calls []call
	fn    func(c call) (*executor.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, program string, args []string, opts ...executor.Option) (*executor.Result, error) {
	return f.RunWithInput(ctx, "", program, args, opts...)
}

func (f *fakeRunner) RunWithInput(
	_ context.Context,
	input, program string,
	args []string,
	opts ...executor.Option,
) (*executor.Result, error) {
	o := &executor.Options{RedirectToConsole: true}
	for _, opt := range opts {
		opt(o)
	}
	c := call{program: program, args: args, input: input, console: o.RedirectToConsole}
	f.calls = append(f.calls, c)
	if f.fn != nil {
		return f.fn(c)
	}
	return &executor.Result{}, nil
}

func (f *fakeRunner) commands() []string {
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.program+" "+strings.Join(c.args, " "))
	}
	return out
}

type fakePinger struct {
	err   error
	calls int
}

func (p *fakePinger) Ping(context.Context) error {
	p.calls++
	return p.err
}

type fakeResolvingRegistry struct {
	fakePinger
	resolved []string
	err      error
}

func (r *fakeResolvingRegistry) Resolve(_ context.Context, reference string) (ocispec.Descriptor, error) {
	r.resolved = append(r.resolved, reference)
	if r.err != nil {
		return ocispec.Descriptor{}, r.err
	}
	return ocispec.Descriptor{MediaType: ocispec.MediaTypeImageManifest, Digest: digest.Digest(testDigest), Size: 1574}, nil
}

func TestBuild(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	require.NoError(t, fsys.WriteFile("/ws/billing/42/Dockerfile", []byte("FROM scratch\n"), 0o644))
	runner := &fakeRunner{}
	b := NewBuilder(runner, "docker", WithFilesystem(fsys))

	ref, err := b.Build(context.Background(), BuildRequest{
		ContextDir: "/ws/billing/42",
		Descriptor: testDescriptor(),
		Name:       "billing",
		Version:    "42",
		Registry:   "localhost:5000",
	})
	require.NoError(t, err)

	assert.Equal(t, NewReference("localhost:5000", "billing", "42"), ref)
	assert.Equal(t, []string{
		"docker build -f /ws/billing/42/Dockerfile.release -t billing:42 -t billing:latest /ws/billing/42",
	}, runner.commands())

	written, err := fsys.ReadFile("/ws/billing/42/Dockerfile.release")
	require.NoError(t, err)
	assert.Contains(t, string(written), "COPY target/billing-1.0.jar app.jar")

	shipped, err := fsys.ReadFile("/ws/billing/42/Dockerfile")
	require.NoError(t, err)
	assert.Equal(t, "FROM scratch\n", string(shipped), "the repository's own Dockerfile is untouched")
}

func TestBuild_DescriptorFileOverride(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	runner := &fakeRunner{}
	b := NewBuilder(runner, "docker", WithFilesystem(fsys), WithDescriptorFile("ci/Containerfile"))

	_, err := b.Build(context.Background(), BuildRequest{ContextDir: "/ws", Descriptor: testDescriptor(), Name: "a", Version: "1"})
	require.NoError(t, err)

	assert.Equal(t, "docker build -f /ws/ci/Containerfile -t a:1 -t a:latest /ws", runner.commands()[0])
	exists, err := fsys.Exists("/ws/ci/Containerfile")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBuild_Failure(t *testing.T) {
	runner := &fakeRunner{fn: func(call) (*executor.Result, error) {
		return &executor.Result{ExitCode: 1, Combined: "step 3/7\nERROR: no such file"},
			errors.New(errors.CodeExecutionFailed, "docker failed")
	}}
	b := NewBuilder(runner, "docker", WithFilesystem(billy.NewInMemoryFS()))

	_, err := b.Build(context.Background(), BuildRequest{ContextDir: "/ws", Descriptor: testDescriptor(), Name: "a", Version: "1"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeBuildFailed, errors.GetCode(err))

	var pe *errors.PlatformError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Context["output"], "no such file")
}

func TestBuild_TimeoutKeepsCode(t *testing.T) {
	runner := &fakeRunner{fn: func(call) (*executor.Result, error) {
		return &executor.Result{ExitCode: -1}, errors.New(errors.CodeTimeout, "docker exceeded its time limit")
	}}
	b := NewBuilder(runner, "docker", WithFilesystem(billy.NewInMemoryFS()))

	_, err := b.Build(context.Background(), BuildRequest{ContextDir: "/ws", Descriptor: testDescriptor(), Name: "a", Version: "1"})
	assert.Equal(t, errors.CodeTimeout, errors.GetCode(err))
}

func TestBuild_InvalidDescriptorRunsNothing(t *testing.T) {
	runner := &fakeRunner{}
	d := testDescriptor()
	d.BaseImage = ""

	_, err := NewBuilder(runner, "docker", WithFilesystem(billy.NewInMemoryFS())).
		Build(context.Background(), BuildRequest{ContextDir: "/ws", Descriptor: d, Name: "a", Version: "1"})
	require.Error(t, err)
	assert.Empty(t, runner.calls)
}

func TestPush(t *testing.T) {
	runner := &fakeRunner{fn: func(c call) (*executor.Result, error) {
		if c.args[0] == "push" {
			return &executor.Result{Stdout: fmt.Sprintf("42: digest: %s size: 1574\n", testDigest)}, nil
		}
		return &executor.Result{}, nil
	}}
	pinger := &fakePinger{}
	b := NewBuilder(runner, "docker",
		WithRegistry(pinger),
		WithCredential(secrets.Credential{Username: "ci", Password: "pw"}))

	result, err := b.Push(context.Background(), NewReference("localhost:5000", "billing", "42"))
	require.NoError(t, err)

	assert.Equal(t, 1, pinger.calls)
	assert.Equal(t, []string{
		"docker login --username ci --password-stdin localhost:5000",
		"docker tag billing:42 localhost:5000/billing:42",
		"docker push localhost:5000/billing:42",
		"docker tag billing:latest localhost:5000/billing:latest",
		"docker push localhost:5000/billing:latest",
	}, runner.commands())
	assert.Equal(t, "pw", runner.calls[0].input)
	assert.False(t, runner.calls[0].console, "login output is not streamed")
	assert.True(t, runner.calls[2].console)

	require.Len(t, result.Pushed(), 2)
	assert.Equal(t, testDigest, result.Tags[0].Digest.String())
}

func TestPush_EachTagIndependent(t *testing.T) {
	runner := &fakeRunner{fn: func(c call) (*executor.Result, error) {
		if c.args[0] == "push" && strings.HasSuffix(c.args[1], ":42") {
			return &executor.Result{ExitCode: 1}, errors.New(errors.CodeExecutionFailed, "denied")
		}
		return &executor.Result{}, nil
	}}
	b := NewBuilder(runner, "docker")

	result, err := b.Push(context.Background(), NewReference("localhost:5000", "billing", "42"))
	require.Error(t, err)
	assert.Equal(t, errors.CodePublishFailed, errors.GetCode(err))

	assert.Contains(t, runner.commands(), "docker push localhost:5000/billing:latest")
	require.Len(t, result.Tags, 2)
	assert.NotEmpty(t, result.Tags[0].Error)
	assert.Empty(t, result.Tags[1].Error)
	assert.Len(t, result.Pushed(), 1)
}

func TestPush_RegistryNotReady(t *testing.T) {
	runner := &fakeRunner{}
	pinger := &fakePinger{err: errors.New(errors.CodeUnavailable, "registry localhost:5000 is not ready")}

	_, err := NewBuilder(runner, "docker", WithRegistry(pinger)).
		Push(context.Background(), NewReference("localhost:5000", "billing", "42"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))
	assert.Empty(t, runner.calls)
}

func TestPush_LoginFailure(t *testing.T) {
	runner := &fakeRunner{fn: func(c call) (*executor.Result, error) {
		return &executor.Result{ExitCode: 1}, errors.New(errors.CodeExecutionFailed, "unauthorized")
	}}

	_, err := NewBuilder(runner, "docker", WithCredential(secrets.Credential{Username: "u", Password: "p"})).
		Push(context.Background(), NewReference("localhost:5000", "billing", "42"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnauthorized, errors.GetCode(err))
	assert.Len(t, runner.calls, 1)
}

func TestPush_ResolvesDigestMissingFromOutput(t *testing.T) {
	runner := &fakeRunner{fn: func(c call) (*executor.Result, error) {
		if c.args[0] == "push" && strings.HasSuffix(c.args[1], ":42") {
			return &executor.Result{Stdout: fmt.Sprintf("42: digest: %s size: 1574\n", testDigest)}, nil
		}
		return &executor.Result{Stdout: "pushed\n"}, nil
	}}
	reg := &fakeResolvingRegistry{}

	result, err := NewBuilder(runner, "podman", WithRegistry(reg)).
		Push(context.Background(), NewReference("localhost:5000", "billing", "42"))
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:5000/billing:latest"}, reg.resolved)
	require.Len(t, result.Tags, 2)
	assert.Equal(t, testDigest, result.Tags[1].Digest.String())

	t.Run("lookup failure leaves the digest empty", func(t *testing.T) {
		reg := &fakeResolvingRegistry{err: errors.New(errors.CodeUnavailable, "not found")}
		runner := &fakeRunner{}

		result, err := NewBuilder(runner, "podman", WithRegistry(reg)).
			Push(context.Background(), NewReference("localhost:5000", "billing", "42"))
		require.NoError(t, err)
		assert.Len(t, result.Pushed(), 2)
		assert.Empty(t, result.Tags[0].Digest)
	})
}

func TestParseDigest(t *testing.T) {
	assert.Equal(t, testDigest, ParseDigest("latest: digest: "+testDigest+" size: 1").String())
	assert.Empty(t, ParseDigest("no digest here"))
	assert.Empty(t, ParseDigest("digest: sha256:nothex"))
}
