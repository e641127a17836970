package ir

import "fmt"

// Message is a typed message body. Type names the declared message type
// (for example "Car"); an empty Type matches any registration.
type Message struct {
	Type string `json:"type,omitempty"`
	Body Object `json:"body"`
}

// NewMessage builds a message of the given type from fields.
func NewMessage(typ string, fields ...Field) *Message {
	return &Message{Type: typ, Body: Obj(fields...)}
}

// Clone returns a deep copy. A nil message clones to nil.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	body := m.Body.Clone()
	if body == nil {
		body = Object{}
	}
	return &Message{Type: m.Type, Body: body}
}

// Equal reports whether two messages carry the same type and body.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Type == other.Type && Equal(m.Body, other.Body)
}

// Merge folds src into m field by field: scalar fields overwrite, nested
// objects merge recursively and lists append. src is not retained.
func (m *Message) Merge(src *Message) {
	if src == nil {
		return
	}
	if m.Body == nil {
		m.Body = Object{}
	}
	if m.Type == "" {
		m.Type = src.Type
	}
	MergeObject(m.Body, src.Body)
}

// MergeObject merges src into dst in place.
func MergeObject(dst, src Object) {
	for k, sv := range src {
		dv, ok := dst[k]
		if !ok {
			dst[k] = Clone(sv)
			continue
		}
		switch s := sv.(type) {
		case Object:
			if d, ok := dv.(Object); ok {
				MergeObject(d, s)
				continue
			}
		case List:
			if d, ok := dv.(List); ok {
				dst[k] = append(d, s.Clone()...)
				continue
			}
		}
		dst[k] = Clone(sv)
	}
}

// Canonical returns the canonical JSON encoding of the message body.
func (m *Message) Canonical() ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("nil message")
	}
	body := m.Body
	if body == nil {
		body = Object{}
	}
	return MarshalCanonical(body)
}

// String renders the body as JSON for logs and diagnostics.
func (m *Message) String() string {
	if m == nil {
		return "<nil>"
	}
	b, err := m.Body.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", m.Type, err)
	}
	if m.Type == "" {
		return string(b)
	}
	return m.Type + string(b)
}
