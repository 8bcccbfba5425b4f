// Package secrets resolves credential references into values for the
// collaborators that need them (repository manager, registry, git remote).
// The pipeline only ever holds a SecretRef; values are fetched just in time,
// handed to the collaborator and cleared.
//
//	manager := secrets.NewManager(&secrets.Config{DefaultProvider: "env", AutoClear: true})
//	_ = manager.RegisterProvider("env", env.New())
//	cred, err := manager.Credential(ctx, secrets.SecretRef{Path: "release-credentials"})
package secrets

import "time"

// Secret represents a resolved secret value with metadata.
type Secret struct {
	// Value contains the secret data. It must never be logged.
	Value []byte
	// Version indicates the version of this secret.
	Version string
	// CreatedAt records when this secret was created.
	CreatedAt time.Time
	// AutoClear zeroes Value after the first String or Bytes call.
	AutoClear bool
}

// SecretRef references a secret without containing its value.
type SecretRef struct {
	// Path identifies the secret, e.g. the credentials identifier.
	Path string
	// Version selects a version; empty means latest.
	Version string
}

// String returns the secret value as a string.
func (s *Secret) String() string {
	if s.Value == nil {
		return ""
	}

	value := string(s.Value)
	if s.AutoClear {
		s.Clear()
	}
	return value
}

// Bytes returns a copy of the secret value.
func (s *Secret) Bytes() []byte {
	if s.Value == nil {
		return nil
	}

	value := make([]byte, len(s.Value))
	copy(value, s.Value)
	if s.AutoClear {
		s.Clear()
	}
	return value
}

// Clear zeroes the secret value in memory.
func (s *Secret) Clear() {
	for i := range s.Value {
		s.Value[i] = 0
	}
	s.Value = nil
}
