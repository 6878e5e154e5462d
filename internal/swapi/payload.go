package swapi

import (
	"bytes"
	"encoding/json"
)

// Payload is a parsed API response held in compact JSON form. The zero
// value is empty and never stored in the cache.
type Payload struct {
	data json.RawMessage
	size int
}

// parsePayload validates body as a single JSON document and compacts it.
func parsePayload(body []byte) (Payload, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return Payload{}, err
	}
	var doc any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		return Payload{}, err
	}
	return Payload{data: buf.Bytes(), size: stringifiedLen(doc)}, nil
}

// stringifiedLen is the length in UTF-16 code units of v re-serialized as
// compact JSON, with numbers in shortest form and strings escaping only
// quotes, backslashes and control characters.
func stringifiedLen(v any) int {
	switch v := v.(type) {
	case nil:
		return 4
	case bool:
		if v {
			return 4
		}
		return 5
	case float64:
		if v == 0 {
			return 1 // -0 prints as 0
		}
		b, _ := json.Marshal(v)
		return len(b)
	case string:
		return quotedLen(v)
	case []any:
		n := 2
		for i, e := range v {
			if i > 0 {
				n++
			}
			n += stringifiedLen(e)
		}
		return n
	case map[string]any:
		n := 2
		i := 0
		for k, e := range v {
			if i > 0 {
				n++
			}
			n += quotedLen(k) + 1 + stringifiedLen(e)
			i++
		}
		return n
	}
	return 0
}

func quotedLen(s string) int {
	n := 2
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			n += 2
		case r == '\b' || r == '\f' || r == '\n' || r == '\r' || r == '\t':
			n += 2
		case r < 0x20:
			n += 6
		case r >= 0x10000:
			n += 2
		default:
			n++
		}
	}
	return n
}

// NewPayload builds a Payload from raw JSON, mainly for tests and fixtures.
func NewPayload(raw []byte) (Payload, error) {
	return parsePayload(raw)
}

// Decode unmarshals the payload into v.
func (p Payload) Decode(v any) error {
	return json.Unmarshal(p.data, v)
}

// Doc returns the payload as an untyped document (map, slice or scalar).
func (p Payload) Doc() (any, error) {
	var doc any
	if err := json.Unmarshal(p.data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Size is the number of UTF-16 code units in the canonical compact
// serialization of the payload. Escapes such as \u00e9 count as the
// character they stand for. It equals len(Bytes()) for ASCII documents
// without escapes or redundant number forms.
func (p Payload) Size() int {
	return p.size
}

// Bytes returns a copy of the compact JSON.
func (p Payload) Bytes() []byte {
	return bytes.Clone(p.data)
}

// MarshalJSON lets a Payload be embedded in other JSON documents verbatim.
func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p.data) == 0 {
		return []byte("null"), nil
	}
	return p.data, nil
}
