package git

import (
	"fmt"
	"net/url"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// BasicAuthProvider supplies HTTP basic credentials to https:// remotes.
// Other schemes (local paths, file://, ssh) get no authentication.
type BasicAuthProvider struct {
	auth *http.BasicAuth
}

// NewBasicAuthProvider creates a provider for username and password. A token
// alone may be passed as the password with an empty username.
func NewBasicAuthProvider(username, password string) *BasicAuthProvider {
	if username == "" && password != "" {
		username = "token"
	}
	return &BasicAuthProvider{
		auth: &http.BasicAuth{Username: username, Password: password},
	}
}

// Method implements AuthProvider.
//
//nolint:ireturn // go-git requires returning transport.AuthMethod interface
func (p *BasicAuthProvider) Method(remoteURL string) (transport.AuthMethod, error) {
	parsed, err := url.Parse(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return nil, nil
	}
	if p.auth.Username == "" && p.auth.Password == "" {
		return nil, nil
	}
	return p.auth, nil
}
