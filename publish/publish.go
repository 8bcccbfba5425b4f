// Package publish uploads a located artifact to the artifact repository.
//
// Two backends exist: HTTPPublisher performs a single PUT against a
// repository manager, and S3Publisher writes the same layout into an S3
// bucket. New picks one from the configured repository_manager_url.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/input-output-hk/catalyst-forge-release/artifact"
	"github.com/input-output-hk/catalyst-forge-release/config"
	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/fs"
	"github.com/input-output-hk/catalyst-forge-release/fs/billy"
	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

// RepositoryPath is the repository the artifacts are released into.
const RepositoryPath = "repository/maven-releases"

// Request describes one upload.
type Request struct {
	Artifact   artifact.Reference
	AppName    string
	Version    string
	Credential secrets.Credential
}

// Validate checks the request carries everything needed to build the target.
func (r Request) Validate() error {
	switch {
	case r.Artifact.Path == "":
		return errors.New(errors.CodeInvalidInput, "artifact path is empty")
	case r.AppName == "":
		return errors.New(errors.CodeInvalidInput, "application name is empty")
	case r.Version == "":
		return errors.New(errors.CodeInvalidInput, "version is empty")
	}
	return nil
}

// Key returns the repository-relative location of the artifact:
// repository/maven-releases/{app}/{version}/{name}.
func (r Request) Key() string {
	return path.Join(RepositoryPath, r.AppName, r.Version, r.Artifact.Name)
}

// Receipt describes a completed upload.
type Receipt struct {
	URI         string `json:"uri" yaml:"uri"`
	ContentType string `json:"content_type" yaml:"content_type"`
	Size        int64  `json:"size" yaml:"size"`
	StatusCode  int    `json:"status_code,omitempty" yaml:"status_code,omitempty"`
}

// Publisher uploads artifacts.
type Publisher interface {
	Publish(ctx context.Context, req Request) (*Receipt, error)
}

// Options configures the publishers built by New.
type Options struct {
	Logger     *slog.Logger
	HTTPClient *http.Client
	FS         fs.Filesystem
	S3Client   S3API
}

// Option configures a publisher.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithHTTPClient replaces the HTTP client used by HTTPPublisher.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

// WithFilesystem sets the filesystem artifacts are read from. Artifact paths
// are absolute, so the default is the host filesystem rooted at /.
func WithFilesystem(fsys fs.Filesystem) Option {
	return func(o *Options) {
		o.FS = fsys
	}
}

// WithS3Client injects the S3 client used by S3Publisher.
func WithS3Client(client S3API) Option {
	return func(o *Options) {
		o.S3Client = client
	}
}

func buildOptions(opts []Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	if o.FS == nil {
		o.FS = billy.NewOSFS("/")
	}
	return o
}

// New returns the publisher for cfg.RepositoryManagerURL: S3Publisher for
// s3:// URLs, HTTPPublisher otherwise.
func New(ctx context.Context, cfg config.PipelineConfig, opts ...Option) (Publisher, error) {
	u, err := url.Parse(cfg.RepositoryManagerURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "invalid repository manager URL")
	}

	switch u.Scheme {
	case "s3":
		return NewS3Publisher(ctx, u.Host, strings.Trim(u.Path, "/"), opts...)
	case "http", "https":
		return NewHTTPPublisher(cfg.RepositoryManagerURL, opts...), nil
	default:
		return nil, errors.Newf(errors.CodeInvalidConfig, "unsupported repository manager scheme %q", u.Scheme)
	}
}

// content is an opened artifact ready to stream.
type content struct {
	body        io.Reader
	closer      io.Closer
	size        int64
	contentType string
}

// sniffLen is how much of the artifact is read for type detection.
const sniffLen = 3072

// openArtifact opens the artifact and detects its media type from its first
// bytes. The returned body still yields the full file.
func openArtifact(fsys fs.Filesystem, ref artifact.Reference) (*content, error) {
	info, err := fsys.Stat(ref.Path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeArtifactNotFound, "artifact %s is not readable", ref.Path)
	}

	f, err := fsys.Open(ref.Path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeArtifactNotFound, "artifact %s is not readable", ref.Path)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		_ = f.Close()
		return nil, errors.Wrapf(err, errors.CodeInternal, "failed to read artifact %s", ref.Path)
	}
	head = head[:n]

	return &content{
		body:        io.MultiReader(bytes.NewReader(head), f),
		closer:      f,
		size:        info.Size(),
		contentType: mimetype.Detect(head).String(),
	}, nil
}

func (c *content) Close() error {
	if err := c.closer.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	return nil
}
