// Package hashing computes the deterministic digest that binds a
// stream or entry record's identity, position, and payload together.
// It mirrors the shape of an audit.HashBytes/HashHex style helper,
// swapped from SHA-256 to Blake2b-256.
package hashing

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"github.com/twinfoundation/auditable-item-stream/internal/canonical"
)

// Subject is the tuple the digest is computed over. Index is a pointer
// so "no index" (stream records) can be distinguished from index 0
// (an entry's first position).
type Subject struct {
	ID           string
	DateCreated  string
	NodeIdentity string
	UserIdentity string
	Object       interface{}
	Index        *int
}

// Digest computes the Blake2b-256 digest of a Subject: the
// UTF-8 bytes of ID, DateCreated, NodeIdentity, UserIdentity in order,
// followed by the canonical byte encoding of Object, followed by the
// decimal ASCII of Index when present. It returns the 32 raw digest
// bytes.
func Digest(s Subject) ([]byte, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, fmt.Errorf("hashing: init blake2b: %w", err)
	}

	for _, field := range []string{s.ID, s.DateCreated, s.NodeIdentity, s.UserIdentity} {
		if _, err := h.Write([]byte(field)); err != nil {
			return nil, fmt.Errorf("hashing: write field: %w", err)
		}
	}

	canon, err := canonical.Marshal(s.Object)
	if err != nil {
		return nil, fmt.Errorf("hashing: canonicalize object: %w", err)
	}
	if _, err := h.Write(canon); err != nil {
		return nil, fmt.Errorf("hashing: write object: %w", err)
	}

	if s.Index != nil {
		if _, err := h.Write([]byte(strconv.Itoa(*s.Index))); err != nil {
			return nil, fmt.Errorf("hashing: write index: %w", err)
		}
	}

	return h.Sum(nil), nil
}

// DigestBase64 computes Digest and returns its base64 (standard)
// encoding, the form persisted on stream/entry records.
func DigestBase64(s Subject) (string, error) {
	b, err := Digest(s)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
