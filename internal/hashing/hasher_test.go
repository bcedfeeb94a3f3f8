package hashing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfoundation/auditable-item-stream/internal/hashing"
)

func TestDigestDeterministic(t *testing.T) {
	subj := hashing.Subject{
		ID:           "abc123",
		DateCreated:  "2024-01-01T00:00:00Z",
		NodeIdentity: "did:node:1",
		UserIdentity: "did:user:1",
		Object:       map[string]interface{}{"b": 2, "a": 1},
	}

	d1, err := hashing.Digest(subj)
	require.NoError(t, err)
	d2, err := hashing.Digest(subj)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 32)
}

func TestDigestKeyOrderIndependent(t *testing.T) {
	base := hashing.Subject{
		ID:           "abc123",
		DateCreated:  "2024-01-01T00:00:00Z",
		NodeIdentity: "did:node:1",
		UserIdentity: "did:user:1",
	}
	a := base
	a.Object = map[string]interface{}{"a": 1, "b": 2}
	b := base
	b.Object = map[string]interface{}{"b": 2, "a": 1}

	da, err := hashing.Digest(a)
	require.NoError(t, err)
	db, err := hashing.Digest(b)
	require.NoError(t, err)

	assert.Equal(t, da, db, "digest must not depend on map key insertion order")
}

func TestDigestSensitiveToFields(t *testing.T) {
	base := hashing.Subject{
		ID:           "abc123",
		DateCreated:  "2024-01-01T00:00:00Z",
		NodeIdentity: "did:node:1",
		UserIdentity: "did:user:1",
		Object:       map[string]interface{}{"content": "n"},
	}
	baseDigest, err := hashing.Digest(base)
	require.NoError(t, err)

	mutations := []func(*hashing.Subject){
		func(s *hashing.Subject) { s.ID = "different" },
		func(s *hashing.Subject) { s.NodeIdentity = "did:node:2" },
		func(s *hashing.Subject) { s.UserIdentity = "did:user:2" },
		func(s *hashing.Subject) { s.Object = map[string]interface{}{"content": "m"} },
		func(s *hashing.Subject) { idx := 0; s.Index = &idx },
	}
	for _, mutate := range mutations {
		mutated := base
		mutate(&mutated)
		d, err := hashing.Digest(mutated)
		require.NoError(t, err)
		assert.NotEqual(t, baseDigest, d)
	}
}

func TestDigestIndexNilVsZeroDiffer(t *testing.T) {
	zero := 0
	withIndex := hashing.Subject{ID: "x", DateCreated: "t", UserIdentity: "u", Index: &zero}
	withoutIndex := hashing.Subject{ID: "x", DateCreated: "t", UserIdentity: "u"}

	d1, err := hashing.Digest(withIndex)
	require.NoError(t, err)
	d2, err := hashing.Digest(withoutIndex)
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2, "presence of index 0 must differ from absence of an index")
}

func TestDigestBase64RoundTrips(t *testing.T) {
	subj := hashing.Subject{ID: "x", DateCreated: "t", UserIdentity: "u"}
	b64, err := hashing.DigestBase64(subj)
	require.NoError(t, err)
	assert.NotEmpty(t, b64)
}
