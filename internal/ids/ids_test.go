package ids_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfoundation/auditable-item-stream/internal/ids"
)

func TestNewIsRandomHex(t *testing.T) {
	a, err := ids.New()
	require.NoError(t, err)
	b, err := ids.New()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64) // 32 bytes hex-encoded
}

func TestStreamURNRoundTrip(t *testing.T) {
	hex, err := ids.New()
	require.NoError(t, err)

	urn := ids.StreamURN(hex)
	assert.Equal(t, "ais:"+hex, urn)

	parsed, err := ids.ParseStreamURN(urn)
	require.NoError(t, err)
	assert.Equal(t, hex, parsed)
}

func TestEntryURNRoundTrip(t *testing.T) {
	streamHex, err := ids.New()
	require.NoError(t, err)
	entryHex, err := ids.New()
	require.NoError(t, err)

	urn := ids.EntryURN(streamHex, entryHex)
	assert.Equal(t, "ais:"+streamHex+":"+entryHex, urn)

	gotStream, gotEntry, err := ids.ParseEntryURN(urn)
	require.NoError(t, err)
	assert.Equal(t, streamHex, gotStream)
	assert.Equal(t, entryHex, gotEntry)
}

func TestParseStreamURNNamespaceMismatch(t *testing.T) {
	_, err := ids.ParseStreamURN("notais:deadbeef")
	assert.ErrorIs(t, err, ids.ErrNamespaceMismatch)
}

func TestParseEntryURNNamespaceMismatch(t *testing.T) {
	_, _, err := ids.ParseEntryURN("urn:isotc:deadbeef:cafe")
	assert.ErrorIs(t, err, ids.ErrNamespaceMismatch)
}

func TestParseStreamURNMalformed(t *testing.T) {
	_, err := ids.ParseStreamURN("ais:")
	assert.ErrorIs(t, err, ids.ErrMalformed)
}

func TestParseEntryURNMalformed(t *testing.T) {
	_, _, err := ids.ParseEntryURN("ais:onlystream")
	assert.ErrorIs(t, err, ids.ErrMalformed)
}

func TestNewCorrelationIDIsUnique(t *testing.T) {
	a := ids.NewCorrelationID()
	b := ids.NewCorrelationID()
	assert.NotEqual(t, a, b)
}
