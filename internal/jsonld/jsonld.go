// Package jsonld defines the narrow contract the engine needs from a
// JSON-LD node: "is this well-formed enough to hash and persist" and
// "are these two nodes the same content". Full JSON-LD validation and
// compaction (context resolution, @type coercion, framing) is an
// external collaborator's job; the engine only ever needs these two
// questions answered.
package jsonld

import (
	"errors"

	"github.com/twinfoundation/auditable-item-stream/internal/canonical"
)

// ErrNotAnObject is returned when a value is not a JSON-LD node
// (i.e. not a JSON object at the top level).
var ErrNotAnObject = errors.New("jsonld: value is not an object")

// Node is the shape entries and stream annotations are carried in: a
// generic JSON object, same as what encoding/json decodes a JSON-LD
// document into.
type Node = map[string]interface{}

// Validate checks that v is a well-formed JSON-LD node for the purposes
// of this service: nil is allowed (an absent object), anything else
// must decode to a JSON object. Deeper JSON-LD semantics (context
// resolution, term expansion) are validated upstream by the caller's
// JSON-LD library before the object ever reaches the engine.
func Validate(v interface{}) error {
	if v == nil {
		return nil
	}
	if _, ok := v.(Node); ok {
		return nil
	}
	return ErrNotAnObject
}

// Equal reports whether two JSON-LD nodes are the same content, using
// canonical (key-sorted) comparison rather than raw equality so that
// key reordering by an intermediate JSON-LD processor doesn't register
// as a change.
func Equal(a, b interface{}) bool {
	return canonical.DeepEqual(a, b)
}
