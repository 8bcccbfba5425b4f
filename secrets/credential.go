package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Credential is a username/password pair handed to a collaborator.
type Credential struct {
	Username string
	Password string
}

// Empty reports whether the credential carries nothing.
func (c Credential) Empty() bool {
	return c.Username == "" && c.Password == ""
}

// String hides the password.
func (c Credential) String() string {
	if c.Empty() {
		return "<none>"
	}
	return c.Username + ":****"
}

// ParseCredential decodes a secret value into a Credential. Accepted forms
// are "username:password" and a JSON object with "username" and "password"
// keys.
func ParseCredential(value []byte) (Credential, error) {
	raw := strings.TrimSpace(string(value))
	if raw == "" {
		return Credential{}, fmt.Errorf("%w: empty value", ErrMalformedCredential)
	}

	if strings.HasPrefix(raw, "{") {
		var doc struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return Credential{}, fmt.Errorf("%w: invalid JSON", ErrMalformedCredential)
		}
		if doc.Username == "" {
			return Credential{}, fmt.Errorf("%w: missing username", ErrMalformedCredential)
		}
		return Credential{Username: doc.Username, Password: doc.Password}, nil
	}

	user, pass, ok := strings.Cut(raw, ":")
	if !ok || user == "" {
		return Credential{}, fmt.Errorf("%w: expected username:password", ErrMalformedCredential)
	}
	return Credential{Username: user, Password: pass}, nil
}

// Credential resolves ref with the default provider and parses it.
func (m *Manager) Credential(ctx context.Context, ref SecretRef) (Credential, error) {
	secret, err := m.Resolve(ctx, ref)
	if err != nil {
		return Credential{}, err
	}
	defer secret.Clear()

	return ParseCredential(secret.Value)
}
