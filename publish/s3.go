package publish

import (
	"context"
	stderrors "errors"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/fs"
)

// S3API is the subset of the S3 client used by S3Publisher. It allows
// mocking in unit tests.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher writes artifacts into a bucket using the same layout as the
// repository manager, below an optional key prefix.
type S3Publisher struct {
	client S3API
	bucket string
	prefix string
	fs     fs.Filesystem
	logger *slog.Logger
}

var _ Publisher = (*S3Publisher)(nil)

// NewS3Publisher creates an S3 publisher. Without WithS3Client the client is
// built from the default AWS credential chain.
func NewS3Publisher(ctx context.Context, bucket, prefix string, opts ...Option) (*S3Publisher, error) {
	if bucket == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "s3 repository URL has no bucket")
	}

	o := buildOptions(opts)
	client := o.S3Client
	if client == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to load AWS config")
		}
		if awsCfg.Region == "" {
			awsCfg.Region = "us-east-1"
		}
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Publisher{
		client: client,
		bucket: bucket,
		prefix: prefix,
		fs:     o.FS,
		logger: o.Logger,
	}, nil
}

// ObjectKey returns the key req is stored under.
func (p *S3Publisher) ObjectKey(req Request) string {
	return path.Join(p.prefix, req.Key())
}

// Publish uploads req.Artifact with PutObject. The credential in req is not
// used; access comes from the AWS credential chain.
func (p *S3Publisher) Publish(ctx context.Context, req Request) (*Receipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c, err := openArtifact(p.fs, req.Artifact)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	key := p.ObjectKey(req)
	uri := "s3://" + p.bucket + "/" + key
	p.logger.Info("uploading artifact", "url", uri, "size", c.size, "content_type", c.contentType)

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          c.body,
		ContentLength: aws.Int64(c.size),
		ContentType:   aws.String(c.contentType),
	})
	if err != nil {
		return nil, classifyS3Error(ctx, uri, err)
	}

	return &Receipt{URI: uri, ContentType: c.contentType, Size: c.size}, nil
}

func classifyS3Error(ctx context.Context, uri string, err error) error {
	fields := map[string]interface{}{"url": uri}

	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.WrapWithContext(err, errors.CodeTimeout, "upload did not finish in time", fields)
	}

	var noBucket *types.NoSuchBucket
	if stderrors.As(err, &noBucket) {
		return errors.WrapWithContext(err, errors.CodeUnavailable, "bucket does not exist", fields)
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return errors.WrapWithContext(err, errors.CodeUnauthorized, "bucket rejected the credentials", fields)
		case "NoSuchBucket", "ServiceUnavailable", "SlowDown":
			return errors.WrapWithContext(err, errors.CodeUnavailable, "bucket is not ready", fields)
		}
		return errors.WrapWithContext(err, errors.CodePublishFailed, "upload rejected", fields)
	}

	return errors.WrapWithContext(err, errors.CodeUnavailable, "object storage is not reachable", fields)
}
