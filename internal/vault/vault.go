// Package vault is the signer gateway: it signs bytes under a named
// vault key and verifies signatures against that key. It mirrors the
// shape of a LocalSigner/kmsSigner pair, renamed to "vault" and
// narrowed to the Sign/Verify pair the engine and verifier need.
package vault

import (
	"context"
	"crypto/ed25519"
	crand "crypto/rand"
	"errors"
	"fmt"
)

// Vault signs bytes under a named key and verifies signatures against
// it. A real deployment backs this with an external key-management
// service; LocalVault below is the in-process development/testing
// implementation.
type Vault interface {
	// Sign signs data under keyID and returns the raw signature bytes.
	Sign(ctx context.Context, keyID string, data []byte) ([]byte, error)

	// Verify reports whether sig is a valid signature over data under keyID.
	Verify(ctx context.Context, keyID string, data []byte, sig []byte) (bool, error)

	// PublicKey returns the raw public key bytes for keyID, or an error
	// if the key is unknown.
	PublicKey(keyID string) ([]byte, error)
}

// ErrUnknownKey is returned when a vault has no key registered under
// the requested id.
var ErrUnknownKey = errors.New("vault: unknown key")

// LocalVault is an in-process Ed25519-backed Vault, for development
// and testing only — never for production use.
type LocalVault struct {
	keys map[string]ed25519.PrivateKey
}

// NewLocalVault constructs an empty LocalVault. Keys are created lazily
// by EnsureKey so callers don't need a separate provisioning step.
func NewLocalVault() *LocalVault {
	return &LocalVault{keys: make(map[string]ed25519.PrivateKey)}
}

// EnsureKey generates an Ed25519 keypair for keyID if one does not
// already exist, and returns its public key.
func (v *LocalVault) EnsureKey(keyID string) ([]byte, error) {
	if priv, ok := v.keys[keyID]; ok {
		return priv.Public().(ed25519.PublicKey), nil
	}
	pub, priv, err := ed25519.GenerateKey(crand.Reader)
	if err != nil {
		return nil, fmt.Errorf("vault: generate key %s: %w", keyID, err)
	}
	v.keys[keyID] = priv
	return pub, nil
}

// Sign implements Vault.
func (v *LocalVault) Sign(_ context.Context, keyID string, data []byte) ([]byte, error) {
	priv, ok := v.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, keyID)
	}
	return ed25519.Sign(priv, data), nil
}

// Verify implements Vault.
func (v *LocalVault) Verify(_ context.Context, keyID string, data []byte, sig []byte) (bool, error) {
	priv, ok := v.keys[keyID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownKey, keyID)
	}
	pub := priv.Public().(ed25519.PublicKey)
	return ed25519.Verify(pub, data, sig), nil
}

// PublicKey implements Vault.
func (v *LocalVault) PublicKey(keyID string) ([]byte, error) {
	priv, ok := v.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, keyID)
	}
	return priv.Public().(ed25519.PublicKey), nil
}
