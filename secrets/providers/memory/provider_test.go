package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

func TestMemoryProvider_Name(t *testing.T) {
	assert.Equal(t, "memory", New().Name())
}

func TestMemoryProvider_StoreResolve(t *testing.T) {
	ctx := context.Background()
	p := New()

	require.NoError(t, p.Store(ctx, secrets.SecretRef{Path: "creds", Version: "v1"}, []byte("a:1")))
	require.NoError(t, p.Store(ctx, secrets.SecretRef{Path: "creds", Version: "v2"}, []byte("a:2")))

	latest, err := p.Resolve(ctx, secrets.SecretRef{Path: "creds"})
	require.NoError(t, err)
	assert.Equal(t, "a:2", string(latest.Value))

	v1, err := p.Resolve(ctx, secrets.SecretRef{Path: "creds", Version: "v1"})
	require.NoError(t, err)
	assert.Equal(t, "a:1", string(v1.Value))

	// Resolved values are copies.
	v1.Clear()
	again, err := p.Resolve(ctx, secrets.SecretRef{Path: "creds", Version: "v1"})
	require.NoError(t, err)
	assert.Equal(t, "a:1", string(again.Value))
}

func TestMemoryProvider_NotFound(t *testing.T) {
	_, err := New().Resolve(context.Background(), secrets.SecretRef{Path: "missing"})
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)
}

func TestMemoryProvider_ExistsDelete(t *testing.T) {
	ctx := context.Background()
	p := NewWith(map[string]string{"creds": "u:p"})
	ref := secrets.SecretRef{Path: "creds"}

	ok, err := p.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, p.Delete(ctx, ref))
	ok, err = p.Exists(ctx, ref)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, p.Delete(ctx, ref), secrets.ErrSecretNotFound)
}

func TestMemoryProvider_StoreRejectsEmptyPath(t *testing.T) {
	err := New().Store(context.Background(), secrets.SecretRef{}, []byte("x"))
	assert.ErrorIs(t, err, secrets.ErrInvalidRef)
}

func TestMemoryProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWith(map[string]string{"a": "b"}).Resolve(ctx, secrets.SecretRef{Path: "a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryProvider_Close(t *testing.T) {
	p := NewWith(map[string]string{"creds": "u:p"})
	require.NoError(t, p.Close())

	ok, err := p.Exists(context.Background(), secrets.SecretRef{Path: "creds"})
	require.NoError(t, err)
	assert.False(t, ok)
}
