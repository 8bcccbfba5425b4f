package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Config holds the configuration for the Manager.
type Config struct {
	// DefaultProvider is the name of the provider used by Resolve.
	DefaultProvider string

	// AutoClear makes resolved secrets clear themselves after first use.
	AutoClear bool

	// Logger receives an access record for every resolution. Values are
	// never logged. Nil disables access logging.
	Logger *slog.Logger
}

// Manager routes secret resolution to registered providers.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
	autoClear       bool
	logger          *slog.Logger
	mu              sync.RWMutex
}

// NewManager creates a new Manager with the provided configuration.
func NewManager(config *Config) *Manager {
	if config == nil {
		config = &Config{}
	}

	return &Manager{
		providers:       make(map[string]Provider),
		defaultProvider: config.DefaultProvider,
		autoClear:       config.AutoClear,
		logger:          config.Logger,
	}
}

// RegisterProvider adds a provider under name.
func (m *Manager) RegisterProvider(name string, provider Provider) error {
	if name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.providers[name]; exists {
		return fmt.Errorf("provider with name %q already registered", name)
	}
	m.providers[name] = provider
	return nil
}

// Resolve resolves a secret using the default provider.
func (m *Manager) Resolve(ctx context.Context, ref SecretRef) (*Secret, error) {
	if m.defaultProvider == "" {
		return nil, fmt.Errorf("no default provider configured")
	}
	return m.ResolveFrom(ctx, m.defaultProvider, ref)
}

// ResolveFrom resolves a secret using a specific provider.
func (m *Manager) ResolveFrom(ctx context.Context, providerName string, ref SecretRef) (*Secret, error) {
	if ref.Path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidRef)
	}

	m.mu.RLock()
	provider, exists := m.providers[providerName]
	m.mu.RUnlock()

	if !exists {
		err := fmt.Errorf("provider %q not found", providerName)
		m.audit(ctx, providerName, ref, err)
		return nil, err
	}

	secret, err := provider.Resolve(ctx, ref)
	m.audit(ctx, providerName, ref, err)
	if err != nil {
		return nil, WrapProviderError(providerName, ref, err, "failed to resolve secret")
	}

	secret.AutoClear = m.autoClear
	return secret, nil
}

// Exists checks whether ref exists in the default provider.
func (m *Manager) Exists(ctx context.Context, ref SecretRef) (bool, error) {
	m.mu.RLock()
	provider, exists := m.providers[m.defaultProvider]
	m.mu.RUnlock()

	if !exists {
		return false, fmt.Errorf("provider %q not found", m.defaultProvider)
	}

	ok, err := provider.Exists(ctx, ref)
	if err != nil {
		return false, WrapProviderError(m.defaultProvider, ref, err, "failed to check existence")
	}
	return ok, nil
}

// Close closes all registered providers.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, provider := range m.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", name, err))
		}
	}
	m.providers = make(map[string]Provider)

	return errors.Join(errs...)
}

func (m *Manager) audit(ctx context.Context, provider string, ref SecretRef, err error) {
	if m.logger == nil {
		return
	}
	if err != nil {
		m.logger.WarnContext(ctx, "secret access failed", "provider", provider, "path", ref.Path, "error", err)
		return
	}
	m.logger.DebugContext(ctx, "secret accessed", "provider", provider, "path", ref.Path)
}
