package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRObject_Clone_DeepCopies(t *testing.T) {
	orig := IRObject{
		"status": IRString("open"),
		"tags":   IRArray{IRString("a")},
		"meta":   IRObject{"n": IRInt(1)},
	}

	cp := orig.Clone()
	cp["status"] = IRString("done")
	cp["meta"].(IRObject)["n"] = IRInt(2)
	cp["tags"].(IRArray)[0] = IRString("b")

	assert.Equal(t, IRString("open"), orig["status"])
	assert.Equal(t, IRInt(1), orig["meta"].(IRObject)["n"])
	assert.Equal(t, IRString("a"), orig["tags"].(IRArray)[0])
}

func TestIRObject_SortedKeys_UTF16Order(t *testing.T) {
	// U+FF21 (fullwidth A) sorts after "z" in UTF-16 code unit order.
	obj := IRObject{"z": IRInt(1), "Ａ": IRInt(2), "a": IRInt(3)}
	assert.Equal(t, []string{"a", "z", "Ａ"}, obj.SortedKeys())
}

func TestUnmarshalIRValue_RejectsFloatAndNull(t *testing.T) {
	_, err := UnmarshalIRValue([]byte(`{"price": 1.5}`))
	require.Error(t, err)

	_, err = UnmarshalIRValue([]byte(`{"note": null}`))
	require.Error(t, err)
}

func TestUnmarshalIRValue_LargeIntegersExact(t *testing.T) {
	// 2^53 + 1 is not representable in float64.
	v, err := UnmarshalIRValue([]byte(`9007199254740993`))
	require.NoError(t, err)
	assert.Equal(t, IRInt(9007199254740993), v)
}

func TestIRObject_JSONRoundTrip(t *testing.T) {
	obj := IRObject{
		"name":  IRString("chop onions"),
		"count": IRInt(12),
		"done":  IRBool(false),
		"steps": IRArray{IRString("wash"), IRString("chop")},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	var back IRObject
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, obj, back)
}

func TestToIRValue_ConvertsNestedGoValues(t *testing.T) {
	v, err := ToIRValue(map[string]any{
		"id":    "t1",
		"count": 3,
		"tags":  []any{"prep"},
	})
	require.NoError(t, err)

	obj, ok := v.(IRObject)
	require.True(t, ok)
	assert.Equal(t, IRString("t1"), obj["id"])
	assert.Equal(t, IRInt(3), obj["count"])
	assert.Equal(t, IRArray{IRString("prep")}, obj["tags"])
}
