package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errInvalidParams = errors.New("invalid params")

// decodeObjectParams accepts either a bare params object or the JSON-RPC
// positional form with a single object element.
func decodeObjectParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errInvalidParams
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) != 1 {
			return errInvalidParams
		}
		raw = arr[0]
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errInvalidParams
	}
	return nil
}

func decodeSingleStringParam(raw json.RawMessage) (string, error) {
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) == 1 && arr[0] != "" {
		return arr[0], nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}
	return "", errInvalidParams
}
