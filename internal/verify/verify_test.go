package verify_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfoundation/auditable-item-stream/internal/credential"
	"github.com/twinfoundation/auditable-item-stream/internal/hashing"
	"github.com/twinfoundation/auditable-item-stream/internal/immutablestore"
	"github.com/twinfoundation/auditable-item-stream/internal/model"
	"github.com/twinfoundation/auditable-item-stream/internal/vault"
	"github.com/twinfoundation/auditable-item-stream/internal/verify"
)

func encodeB64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

const testKeyID = "auditable-item-stream"

func newHarness(t *testing.T) (*vault.LocalVault, credential.Gateway, immutablestore.Store) {
	t.Helper()
	v := vault.NewLocalVault()
	_, err := v.EnsureKey(testKeyID)
	require.NoError(t, err)

	cred, err := credential.NewJWTGateway(testKeyID, func() string { return "jti-verify" })
	require.NoError(t, err)

	immut := immutablestore.NewFileStore(t.TempDir())
	return v, cred, immut
}

func signedEntry(t *testing.T, v *vault.LocalVault, now time.Time, index int, obj map[string]interface{}) *model.Entry {
	t.Helper()
	digest, err := hashing.Digest(hashing.Subject{
		ID:           "entry-1",
		DateCreated:  now.Format(time.RFC3339Nano),
		UserIdentity: "did:user:1",
		Object:       obj,
		Index:        &index,
	})
	require.NoError(t, err)
	sig, err := v.Sign(context.Background(), testKeyID, digest)
	require.NoError(t, err)

	return &model.Entry{
		ID:           "entry-1",
		StreamID:     "stream-1",
		DateCreated:  now,
		UserIdentity: "did:user:1",
		EntryObject:  obj,
		Index:        index,
		Hash:         b64(digest),
		Signature:    b64(sig),
	}
}

func b64(b []byte) string { return encodeB64(b) }

func TestVerifyEntryOkWithoutAnchor(t *testing.T) {
	v, cred, immut := newHarness(t)
	now := time.Now().UTC()
	e := signedEntry(t, v, now, 0, map[string]interface{}{"content": "n"})

	result, err := verify.VerifyEntry(context.Background(), v, cred, immut, testKeyID, e)
	require.NoError(t, err)
	assert.Equal(t, verify.Ok, result.State)
}

func TestVerifyEntryHashMismatch(t *testing.T) {
	v, cred, immut := newHarness(t)
	now := time.Now().UTC()
	e := signedEntry(t, v, now, 0, map[string]interface{}{"content": "n"})
	e.EntryObject = map[string]interface{}{"content": "tampered"}

	result, err := verify.VerifyEntry(context.Background(), v, cred, immut, testKeyID, e)
	require.NoError(t, err)
	assert.Equal(t, verify.HashMismatch, result.State)
}

func TestVerifyEntrySignatureNotVerified(t *testing.T) {
	v, cred, immut := newHarness(t)
	now := time.Now().UTC()
	e := signedEntry(t, v, now, 0, map[string]interface{}{"content": "n"})
	e.Signature = encodeB64([]byte("not-a-real-signature-01234567890123456789012345678901234567890"))

	result, err := verify.VerifyEntry(context.Background(), v, cred, immut, testKeyID, e)
	require.NoError(t, err)
	assert.Equal(t, verify.SignatureNotVerified, result.State)
}

func TestVerifyEntryAnchoredOk(t *testing.T) {
	v, cred, immut := newHarness(t)
	now := time.Now().UTC()
	e := signedEntry(t, v, now, 0, map[string]interface{}{"content": "n"})

	idx := e.Index
	blob, err := cred.Issue(context.Background(), credential.Subject{
		Kind:         credential.KindEntry,
		DateCreated:  e.DateCreated.Format(time.RFC3339Nano),
		UserIdentity: e.UserIdentity,
		Hash:         e.Hash,
		Signature:    e.Signature,
		Index:        &idx,
	})
	require.NoError(t, err)
	storageID, err := immut.Put(context.Background(), blob)
	require.NoError(t, err)
	e.ImmutableStorageID = &storageID

	result, err := verify.VerifyEntry(context.Background(), v, cred, immut, testKeyID, e)
	require.NoError(t, err)
	assert.Equal(t, verify.Ok, result.State)
}

func TestVerifyEntryIndexMismatch(t *testing.T) {
	v, cred, immut := newHarness(t)
	now := time.Now().UTC()
	e := signedEntry(t, v, now, 0, map[string]interface{}{"content": "n"})

	wrongIdx := 99
	blob, err := cred.Issue(context.Background(), credential.Subject{
		Kind:         credential.KindEntry,
		DateCreated:  e.DateCreated.Format(time.RFC3339Nano),
		UserIdentity: e.UserIdentity,
		Hash:         e.Hash,
		Signature:    e.Signature,
		Index:        &wrongIdx,
	})
	require.NoError(t, err)
	storageID, err := immut.Put(context.Background(), blob)
	require.NoError(t, err)
	e.ImmutableStorageID = &storageID

	result, err := verify.VerifyEntry(context.Background(), v, cred, immut, testKeyID, e)
	require.NoError(t, err)
	assert.Equal(t, verify.IndexMismatch, result.State)
}

func TestVerifyStreamOk(t *testing.T) {
	v, cred, immut := newHarness(t)
	now := time.Now().UTC()

	digest, err := hashing.Digest(hashing.Subject{
		ID:           "stream-1",
		DateCreated:  now.Format(time.RFC3339Nano),
		NodeIdentity: "did:node:1",
		UserIdentity: "did:user:1",
	})
	require.NoError(t, err)
	sig, err := v.Sign(context.Background(), testKeyID, digest)
	require.NoError(t, err)

	s := &model.Stream{
		ID:           "stream-1",
		DateCreated:  now,
		NodeIdentity: "did:node:1",
		UserIdentity: "did:user:1",
		Hash:         encodeB64(digest),
		Signature:    encodeB64(sig),
	}

	result, err := verify.VerifyStream(context.Background(), v, cred, immut, testKeyID, s)
	require.NoError(t, err)
	assert.Equal(t, verify.Ok, result.State)
}
