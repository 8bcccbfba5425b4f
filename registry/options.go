package registry

import (
	"log/slog"
	"net/http"
	"time"
)

// Options configures a Client.
type Options struct {
	// PlainHTTP talks to the registry without TLS.
	PlainHTTP bool

	// Username and Password are sent to this registry only. Empty means
	// anonymous access.
	Username string
	Password string

	// MaxRetries bounds readiness probe retries.
	MaxRetries int

	// RetryDelay is the initial backoff delay.
	RetryDelay time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Option is a functional option for configuring the Client.
type Option func(*Options)

// DefaultOptions returns the defaults used by New.
func DefaultOptions() *Options {
	return &Options{
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     slog.Default(),
	}
}

// WithPlainHTTP enables or disables plain HTTP.
func WithPlainHTTP(plain bool) Option {
	return func(o *Options) {
		o.PlainHTTP = plain
	}
}

// WithStaticAuth configures credentials for the registry.
func WithStaticAuth(username, password string) Option {
	return func(o *Options) {
		o.Username = username
		o.Password = password
	}
}

// WithRetry configures probe retries.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(o *Options) {
		o.MaxRetries = maxRetries
		o.RetryDelay = delay
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
