// Package verify recomputes a stream or entry's hash and signature and
// cross-checks them against its anchored credential, producing the
// ordered verification state a caller asked for: a hash mismatch is
// reported before a signature is even checked, and a signature failure
// is reported before the anchored credential is consulted at all, so a
// single corrupted field never gets mis-attributed to a later stage.
package verify

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/twinfoundation/auditable-item-stream/internal/credential"
	"github.com/twinfoundation/auditable-item-stream/internal/hashing"
	"github.com/twinfoundation/auditable-item-stream/internal/immutablestore"
	"github.com/twinfoundation/auditable-item-stream/internal/model"
	"github.com/twinfoundation/auditable-item-stream/internal/vault"
)

func unb64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

// State is one outcome of verifying a stream or entry record.
type State string

const (
	Ok                         State = "ok"
	HashMismatch               State = "hashMismatch"
	SignatureNotVerified       State = "signatureNotVerified"
	CredentialRevoked          State = "credentialRevoked"
	ImmutableHashMismatch      State = "immutableHashMismatch"
	ImmutableSignatureMismatch State = "immutableSignatureMismatch"
	IndexMismatch              State = "indexMismatch"
)

// Result is the outcome of a verification pass.
type Result struct {
	State  State
	Detail string
}

func result(state State, detail string) *Result {
	return &Result{State: state, Detail: detail}
}

// VerifyStream recomputes a stream's digest and signature and, if the
// stream is anchored, cross-checks them against its credential.
func VerifyStream(
	ctx context.Context,
	v vault.Vault,
	cred credential.Gateway,
	immut immutablestore.Store,
	vaultKeyID string,
	s *model.Stream,
) (*Result, error) {
	digest, err := hashing.Digest(hashing.Subject{
		ID:           s.ID,
		DateCreated:  s.DateCreated.Format(time.RFC3339Nano),
		NodeIdentity: s.NodeIdentity,
		UserIdentity: s.UserIdentity,
		Object:       nil,
		Index:        nil,
	})
	if err != nil {
		return nil, fmt.Errorf("verify: hash stream: %w", err)
	}
	return verifyAgainst(ctx, v, cred, immut, vaultKeyID, digest, s.Hash, s.Signature, s.ImmutableStorageID, nil)
}

// VerifyEntry recomputes an entry's digest and signature and, if the
// entry is anchored, cross-checks them against its credential,
// including the entry's index.
func VerifyEntry(
	ctx context.Context,
	v vault.Vault,
	cred credential.Gateway,
	immut immutablestore.Store,
	vaultKeyID string,
	e *model.Entry,
) (*Result, error) {
	index := e.Index
	digest, err := hashing.Digest(hashing.Subject{
		ID:           e.ID,
		DateCreated:  e.DateCreated.Format(time.RFC3339Nano),
		NodeIdentity: "",
		UserIdentity: e.UserIdentity,
		Object:       e.EntryObject,
		Index:        &index,
	})
	if err != nil {
		return nil, fmt.Errorf("verify: hash entry: %w", err)
	}
	return verifyAgainst(ctx, v, cred, immut, vaultKeyID, digest, e.Hash, e.Signature, e.ImmutableStorageID, &e.Index)
}

func verifyAgainst(
	ctx context.Context,
	v vault.Vault,
	cred credential.Gateway,
	immut immutablestore.Store,
	vaultKeyID string,
	digest []byte,
	wantHashB64 string,
	wantSigB64 string,
	immutableStorageID *string,
	wantIndex *int,
) (*Result, error) {
	gotHash, err := unb64(wantHashB64)
	if err != nil {
		return result(HashMismatch, "stored hash is not valid base64"), nil
	}
	if !bytesEqual(digest, gotHash) {
		return result(HashMismatch, "recomputed digest does not match stored hash"), nil
	}

	sig, err := unb64(wantSigB64)
	if err != nil {
		return result(SignatureNotVerified, "stored signature is not valid base64"), nil
	}
	ok, err := v.Verify(ctx, vaultKeyID, digest, sig)
	if err != nil {
		return nil, fmt.Errorf("verify: check signature: %w", err)
	}
	if !ok {
		return result(SignatureNotVerified, "signature does not verify under the configured vault key"), nil
	}

	if immutableStorageID == nil {
		return result(Ok, ""), nil
	}

	blob, err := immut.Get(ctx, *immutableStorageID)
	if err != nil {
		return nil, fmt.Errorf("verify: fetch anchored credential: %w", err)
	}
	status, err := cred.Check(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("verify: check anchored credential: %w", err)
	}
	if status.Revoked {
		return result(CredentialRevoked, "anchored credential has been revoked"), nil
	}
	if status.Subject.Hash != wantHashB64 {
		return result(ImmutableHashMismatch, "anchored credential hash does not match the stored hash"), nil
	}
	if status.Subject.Signature != wantSigB64 {
		return result(ImmutableSignatureMismatch, "anchored credential signature does not match the stored signature"), nil
	}
	if wantIndex != nil {
		if status.Subject.Index == nil || *status.Subject.Index != *wantIndex {
			return result(IndexMismatch, "anchored credential index does not match the entry's index"), nil
		}
	}

	return result(Ok, ""), nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
