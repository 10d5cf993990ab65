package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeysUTF16(t *testing.T) {
	obj := IRObject{
		"b": IRInt(2),
		"a": IRInt(1),
		"c": IRInt(3),
	}

	data, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(data))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	obj := IRObject{"expr": IRString("a < b && c > d")}

	data, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"expr":"a < b && c > d"}`, string(data))
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"price": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
}

func TestMarshalCanonical_RejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)

	_, err = MarshalCanonical(IRNull{})
	require.Error(t, err)
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "é" as e + combining acute must normalize to the precomposed form.
	decomposed := "é"
	precomposed := "é"

	d1, err := MarshalCanonical(IRString(decomposed))
	require.NoError(t, err)
	d2, err := MarshalCanonical(IRString(precomposed))
	require.NoError(t, err)
	assert.Equal(t, d2, d1)
}

func TestMarshalCanonical_LineSeparatorsUnescaped(t *testing.T) {
	data, err := MarshalCanonical(IRString("a b c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a b c\"", string(data))
}

func TestMarshalCanonical_EscapedBackslashBeforeU202x(t *testing.T) {
	// Literal backslash followed by "u2028" text must stay escaped.
	data, err := MarshalCanonical(IRString(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(data))
}

func TestMarshalCanonical_NestedStructures(t *testing.T) {
	obj := IRObject{
		"task": IRObject{
			"status": IRString("open"),
			"id":     IRString("t1"),
		},
		"tags": IRArray{IRString("prep"), IRString("grill")},
	}

	data, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"tags":["prep","grill"],"task":{"id":"t1","status":"open"}}`, string(data))
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	obj := IRObject{
		"z": IRInt(26), "m": IRInt(13), "a": IRInt(1),
		"nested": IRObject{"y": IRBool(true), "x": IRString("v")},
	}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
