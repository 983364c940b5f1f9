package util

import (
	"bytes"
	"encoding/json"
)

// CanonicalJSON serializes v with all object keys sorted recursively,
// so that logically equal values always produce identical bytes.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	// Round-trip through generic maps: encoding/json emits map keys in
	// sorted order, which makes the second encoding canonical.
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
