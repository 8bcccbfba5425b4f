// Package aws resolves release credentials stored in AWS Secrets Manager.
//
//	provider, err := aws.New(ctx, aws.WithRegion("eu-central-1"))
//	manager.RegisterProvider("aws", provider)
package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// SecretsManagerAPI is the subset of the Secrets Manager client the provider
// uses. It allows mocking AWS calls in unit tests.
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
	DescribeSecret(
		ctx context.Context,
		params *secretsmanager.DescribeSecretInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.DescribeSecretOutput, error)
}

// Config holds provider settings.
type Config struct {
	// Region overrides the SDK's default region resolution.
	Region string
	// Endpoint overrides the service endpoint, e.g. LocalStack.
	Endpoint string
}

// Option configures the provider.
type Option func(*Config)

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(c *Config) {
		c.Region = region
	}
}

// WithEndpoint sets a custom endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// Provider implements secrets.Provider for AWS Secrets Manager. It is
// read-only.
type Provider struct {
	client SecretsManagerAPI
}

// New loads the default AWS configuration and creates a provider.
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client), nil
}

// NewWithClient creates a provider around an existing client.
func NewWithClient(client SecretsManagerAPI) *Provider {
	return &Provider{client: client}
}

// Name returns "aws".
func (p *Provider) Name() string {
	return "aws"
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (p *Provider) Close() error {
	return nil
}

// Resolve fetches the secret value. Version may be a stage name (AWSCURRENT,
// AWSPREVIOUS, AWSPENDING) or a version id.
func (p *Provider) Resolve(ctx context.Context, ref secrets.SecretRef) (*secrets.Secret, error) {
	if ref.Path == "" {
		return nil, fmt.Errorf("secret reference path cannot be empty: %w", secrets.ErrInvalidRef)
	}

	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(ref.Path)}
	switch {
	case ref.Version == "":
	case strings.HasPrefix(ref.Version, "AWS"):
		input.VersionStage = aws.String(ref.Version)
	default:
		input.VersionId = aws.String(ref.Version)
	}

	output, err := p.client.GetSecretValue(ctx, input)
	if err != nil {
		return nil, mapAWSError(ref, err)
	}

	var value []byte
	switch {
	case output.SecretString != nil:
		value = []byte(*output.SecretString)
	case output.SecretBinary != nil:
		value = append([]byte(nil), output.SecretBinary...)
	default:
		return nil, fmt.Errorf("secret %q has no value: %w", ref.Path, secrets.ErrSecretNotFound)
	}

	secret := &secrets.Secret{Value: value, Version: aws.ToString(output.VersionId)}
	if output.CreatedDate != nil {
		secret.CreatedAt = *output.CreatedDate
	}
	return secret, nil
}

// Exists reports whether the secret exists.
func (p *Provider) Exists(ctx context.Context, ref secrets.SecretRef) (bool, error) {
	_, err := p.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{SecretId: aws.String(ref.Path)})
	if err == nil {
		return true, nil
	}
	mapped := mapAWSError(ref, err)
	if errors.Is(mapped, secrets.ErrSecretNotFound) {
		return false, nil
	}
	return false, mapped
}

func mapAWSError(ref secrets.SecretRef, err error) error {
	var rnf *types.ResourceNotFoundException
	if errors.As(err, &rnf) {
		return fmt.Errorf("secret %q not found: %w", ref.Path, secrets.ErrSecretNotFound)
	}

	if strings.Contains(strings.ToLower(err.Error()), "accessdenied") {
		return fmt.Errorf("access denied for secret %q: %w", ref.Path, secrets.ErrAccessDenied)
	}

	return secrets.WrapProviderError("aws", ref, err, "failed to resolve secret")
}
