package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/manifest/internal/ir"
)

// marshalData converts an instance payload to canonical JSON TEXT.
// Canonical serialization keeps stored rows byte-comparable, which the
// no-mutation-on-guard-failure tests rely on.
func marshalData(data ir.IRObject) (string, error) {
	if data == nil {
		data = ir.IRObject{}
	}
	encoded, err := ir.MarshalCanonical(data)
	if err != nil {
		return "", fmt.Errorf("marshal data: %w", err)
	}
	return string(encoded), nil
}

// unmarshalData parses canonical JSON TEXT back to an IRObject.
// ir.IRObject.UnmarshalJSON handles large integers via json.Number, so
// values above 2^53 survive the round trip exactly.
func unmarshalData(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	return obj, nil
}
