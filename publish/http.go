package publish

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/fs"
)

// HTTPPublisher uploads artifacts to a repository manager with one
// authenticated PUT. It never retries.
type HTTPPublisher struct {
	baseURL string
	client  *http.Client
	fs      fs.Filesystem
	logger  *slog.Logger
}

var _ Publisher = (*HTTPPublisher)(nil)

// NewHTTPPublisher creates a publisher for the repository manager at baseURL.
func NewHTTPPublisher(baseURL string, opts ...Option) *HTTPPublisher {
	o := buildOptions(opts)
	return &HTTPPublisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  o.HTTPClient,
		fs:      o.FS,
		logger:  o.Logger,
	}
}

// URL returns the upload target for req.
func (p *HTTPPublisher) URL(req Request) string {
	return p.baseURL + "/" + req.Key()
}

// Publish uploads req.Artifact.
//
// Errors are classified for the stage executor: an unreachable endpoint,
// 404 and 502/503/504 yield CodeUnavailable; 401/403 yield CodeUnauthorized;
// any other non-2xx status yields CodePublishFailed. Expiry of ctx yields
// CodeTimeout.
func (p *HTTPPublisher) Publish(ctx context.Context, req Request) (*Receipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c, err := openArtifact(p.fs, req.Artifact)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	target := p.URL(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, target, c.body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to build upload request")
	}
	httpReq.ContentLength = c.size
	httpReq.Header.Set("Content-Type", c.contentType)
	if !req.Credential.Empty() {
		httpReq.SetBasicAuth(req.Credential.Username, req.Credential.Password)
	}

	p.logger.Info("uploading artifact", "url", target, "size", c.size, "content_type", c.contentType)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, p.transportError(ctx, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp, target)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return &Receipt{
		URI:         target,
		ContentType: c.contentType,
		Size:        c.size,
		StatusCode:  resp.StatusCode,
	}, nil
}

func (p *HTTPPublisher) transportError(ctx context.Context, target string, err error) error {
	fields := map[string]interface{}{"url": target}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if stderrors.Is(ctxErr, context.DeadlineExceeded) {
			return errors.WrapWithContext(err, errors.CodeTimeout, "upload did not finish in time", fields)
		}
		return errors.WrapWithContext(err, errors.CodeInternal, "upload cancelled", fields)
	}
	return errors.WrapWithContext(err, errors.CodeUnavailable, "repository manager is not reachable", fields)
}

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 512

func statusError(resp *http.Response, target string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	fields := map[string]interface{}{
		"url":    target,
		"status": resp.StatusCode,
		"body":   strings.TrimSpace(string(body)),
	}
	cause := fmt.Errorf("unexpected status %s", resp.Status)

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return errors.WrapWithContext(cause, errors.CodeUnavailable, "repository manager is not ready", fields)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.WrapWithContext(cause, errors.CodeUnauthorized, "repository manager rejected the credentials", fields)
	default:
		return errors.WrapWithContext(cause, errors.CodePublishFailed, "upload rejected", fields)
	}
}
