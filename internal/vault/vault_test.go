package vault_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfoundation/auditable-item-stream/internal/vault"
)

func TestLocalVaultSignAndVerify(t *testing.T) {
	v := vault.NewLocalVault()
	_, err := v.EnsureKey("key-1")
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("hello world")

	sig, err := v.Sign(ctx, "key-1", data)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	ok, err := v.Verify(ctx, "key-1", data, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalVaultVerifyRejectsTamperedData(t *testing.T) {
	v := vault.NewLocalVault()
	_, err := v.EnsureKey("key-1")
	require.NoError(t, err)

	ctx := context.Background()
	sig, err := v.Sign(ctx, "key-1", []byte("original"))
	require.NoError(t, err)

	ok, err := v.Verify(ctx, "key-1", []byte("tampered"), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalVaultUnknownKey(t *testing.T) {
	v := vault.NewLocalVault()
	ctx := context.Background()

	_, err := v.Sign(ctx, "missing", []byte("data"))
	assert.ErrorIs(t, err, vault.ErrUnknownKey)

	_, err = v.Verify(ctx, "missing", []byte("data"), []byte("sig"))
	assert.ErrorIs(t, err, vault.ErrUnknownKey)

	_, err = v.PublicKey("missing")
	assert.ErrorIs(t, err, vault.ErrUnknownKey)
}

func TestLocalVaultEnsureKeyIsIdempotent(t *testing.T) {
	v := vault.NewLocalVault()
	pub1, err := v.EnsureKey("key-1")
	require.NoError(t, err)
	pub2, err := v.EnsureKey("key-1")
	require.NoError(t, err)
	assert.Equal(t, pub1, pub2)
}
