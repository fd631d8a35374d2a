package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeysAndSkipsHTMLEscape(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"b": "<tag> & more",
		"a": []any{1, true, nil},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,true,null],"b":"<tag> & more"}`, string(got))
}

func TestMarshalCanonical_NFCNormalizes(t *testing.T) {
	decomposed := "e\u0301"
	got, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_LineSeparatorsLiteral(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))

	got, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(got))
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+10000 encodes as a surrogate pair (0xD800...), which sorts before U+FFFD.
	got, err := MarshalCanonical(map[string]any{"\ufffd": 1, "\U00010000": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\ufffd\":1}", string(got))
}

func TestOperationDigest_StableAndSensitive(t *testing.T) {
	op := Operation{ID: "mem_00000001", Op: KindCapture, TS: "t", Actor: "a", Workspace: "w",
		Payload: &CapturePayload{Body: "x", Meta: map[string]any{"z": 1, "y": 2.5}}}

	d1, err := OperationDigest(op)
	require.NoError(t, err)
	d2, err := OperationDigest(op)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)

	op.Actor = "b"
	d3, err := OperationDigest(op)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}
