package secrets

import (
	"errors"
	"fmt"
)

var (
	// ErrSecretNotFound indicates the provider has no secret at the path.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrInvalidRef indicates a malformed SecretRef.
	ErrInvalidRef = errors.New("invalid secret reference")

	// ErrAccessDenied indicates the provider refused access.
	ErrAccessDenied = errors.New("access denied")

	// ErrMalformedCredential indicates a secret that is not a usable credential.
	ErrMalformedCredential = errors.New("malformed credential")
)

// ProviderError wraps provider-specific errors with additional context.
type ProviderError struct {
	Provider string
	Ref      SecretRef
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %q error for secret %q: %v", e.Provider, e.Ref.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapProviderError wraps a provider error with a message.
func WrapProviderError(provider string, ref SecretRef, err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, &ProviderError{Provider: provider, Ref: ref, Err: err})
}
