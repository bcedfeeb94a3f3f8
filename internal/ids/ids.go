// Package ids generates the random stream/entry identifiers used
// across the service and parses/formats their "ais:" namespaced URN
// form. google/uuid is kept in the module's dependency set for
// correlation ids such as credential jti values (see NewCorrelationID) — the 32-byte
// stream/entry ids are deliberately not v4 UUIDs, so they're minted
// with crypto/rand directly instead.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Namespace is the only URN namespace segment this service accepts.
const Namespace = "ais"

// idByteLen is the raw byte length of a stream or entry id.
const idByteLen = 32

// ErrNamespaceMismatch is returned when a URN's namespace segment is
// not "ais".
var ErrNamespaceMismatch = errors.New("ids: namespace mismatch")

// ErrMalformed is returned when a URN cannot be parsed into its
// expected segments.
var ErrMalformed = errors.New("ids: malformed urn")

// New generates a fresh 32-byte random id, rendered as lowercase hex.
func New() (string, error) {
	b := make([]byte, idByteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("ids: generate random id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewCorrelationID returns a random UUID string; the daemon uses it as
// the credential gateway's jti source. It is never persisted as a
// stream or entry id.
func NewCorrelationID() string {
	return uuid.New().String()
}

// StreamURN formats a stream hex id as its external URN.
func StreamURN(streamHex string) string {
	return Namespace + ":" + streamHex
}

// EntryURN formats a stream/entry hex id pair as its external URN.
func EntryURN(streamHex, entryHex string) string {
	return Namespace + ":" + streamHex + ":" + entryHex
}

// ParseStreamURN parses a stream URN ("ais:<hex>") and returns the
// stream hex id.
func ParseStreamURN(urn string) (string, error) {
	parts := strings.Split(urn, ":")
	if len(parts) < 1 || parts[0] != Namespace {
		return "", ErrNamespaceMismatch
	}
	if len(parts) != 2 || parts[1] == "" {
		return "", ErrMalformed
	}
	return parts[1], nil
}

// ParseEntryURN parses an entry URN ("ais:<streamHex>:<entryHex>") and
// returns the stream and entry hex ids.
func ParseEntryURN(urn string) (streamHex string, entryHex string, err error) {
	parts := strings.Split(urn, ":")
	if len(parts) < 1 || parts[0] != Namespace {
		return "", "", ErrNamespaceMismatch
	}
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", ErrMalformed
	}
	return parts[1], parts[2], nil
}
