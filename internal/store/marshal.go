package store

import (
	"fmt"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
)

// marshalBody converts a message body to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalBody(m *ir.Message) (string, error) {
	data, err := m.Canonical()
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

// unmarshalBody parses canonical JSON TEXT into an object.
// Integers are decoded via json.Number so values > 2^53 survive.
func unmarshalBody(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal body: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal body: expected object, got %T", v)
	}
	return obj, nil
}

// unmarshalKeyspec rebuilds a stored keyspec from its xpath form and
// category name.
func unmarshalKeyspec(xpath, category string) (*keyspec.Keyspec, error) {
	cat, err := keyspec.ParseCategory(category)
	if err != nil {
		return nil, fmt.Errorf("unmarshal keyspec: %w", err)
	}
	ks, err := keyspec.ParseXPath(xpath, cat)
	if err != nil {
		return nil, fmt.Errorf("unmarshal keyspec: %w", err)
	}
	return ks, nil
}

// keyDigest is the display form of a binary key.
func keyDigest(k keyspec.Key) string {
	return ir.KeyDigest([]byte(k))
}
