//go:build integration

package publish

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"
)

func localstackS3(t *testing.T) *s3.Client {
	t.Helper()
	ctx := context.Background()
	edge, err := nat.NewPort("tcp", "4566")
	require.NoError(t, err)

	container, err := localstack.Run(ctx,
		"localstack/localstack:latest",
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort(edge).
				WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, edge)
	require.NoError(t, err)

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
			})),
	)
	require.NoError(t, err)

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(fmt.Sprintf("http://%s:%s", host, port.Port()))
	})
}

func TestIntegrationS3Publish(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	client := localstackS3(t)

	req, fsys := testRequest(t)

	p, err := NewS3Publisher(ctx, "releases", "ci", WithS3Client(client), WithFilesystem(fsys))
	require.NoError(t, err)

	_, err = p.Publish(ctx, req)
	require.Error(t, err, "bucket does not exist yet")

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String("releases")})
	require.NoError(t, err)

	receipt, err := p.Publish(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "s3://releases/ci/repository/maven-releases/billing/42/app-1.0.jar", receipt.URI)

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String("releases"),
		Key:    aws.String(p.ObjectKey(req)),
	})
	require.NoError(t, err)
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	assert.Equal(t, "jar-bytes", string(body))
}
