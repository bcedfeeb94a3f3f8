package canonical_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfoundation/auditable-item-stream/internal/canonical"
)

func TestMarshalSortsKeys(t *testing.T) {
	a := map[string]interface{}{"b": 2, "a": 1, "c": 3}
	b := map[string]interface{}{"c": 3, "a": 1, "b": 2}

	ma, err := canonical.Marshal(a)
	require.NoError(t, err)
	mb, err := canonical.Marshal(b)
	require.NoError(t, err)

	assert.Equal(t, ma, mb)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(ma))
}

func TestMarshalPreservesArrayOrder(t *testing.T) {
	a := map[string]interface{}{"list": []interface{}{"x", "y"}}
	b := map[string]interface{}{"list": []interface{}{"y", "x"}}

	ma, _ := canonical.Marshal(a)
	mb, _ := canonical.Marshal(b)

	assert.NotEqual(t, ma, mb, "array element order is part of node identity")
}

func TestMarshalNestedObjects(t *testing.T) {
	v := map[string]interface{}{
		"outer": map[string]interface{}{"z": 1, "y": 2},
	}
	m, err := canonical.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"outer":{"y":2,"z":1}}`, string(m))
}

func TestDeepEqualIgnoresKeyOrder(t *testing.T) {
	a := map[string]interface{}{"type": "Note", "content": "n"}
	b := map[string]interface{}{"content": "n", "type": "Note"}
	assert.True(t, canonical.DeepEqual(a, b))
}

func TestDeepEqualDetectsDifference(t *testing.T) {
	a := map[string]interface{}{"content": "n"}
	b := map[string]interface{}{"content": "m"}
	assert.False(t, canonical.DeepEqual(a, b))
}

func TestDeepEqualNilValues(t *testing.T) {
	assert.True(t, canonical.DeepEqual(nil, nil))
}
