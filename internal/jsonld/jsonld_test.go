package jsonld_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/twinfoundation/auditable-item-stream/internal/jsonld"
)

func TestValidateNilIsAllowed(t *testing.T) {
	assert.NoError(t, jsonld.Validate(nil))
}

func TestValidateAcceptsObject(t *testing.T) {
	assert.NoError(t, jsonld.Validate(map[string]interface{}{"@type": "Note"}))
}

func TestValidateRejectsNonObject(t *testing.T) {
	err := jsonld.Validate("not an object")
	assert.ErrorIs(t, err, jsonld.ErrNotAnObject)
}

func TestEqualIgnoresKeyOrder(t *testing.T) {
	a := jsonld.Node{"type": "Note", "content": "n"}
	b := jsonld.Node{"content": "n", "type": "Note"}
	assert.True(t, jsonld.Equal(a, b))
}

func TestEqualDetectsPayloadChange(t *testing.T) {
	a := jsonld.Node{"content": "n"}
	b := jsonld.Node{"content": "changed"}
	assert.False(t, jsonld.Equal(a, b))
}
