package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// RawOrder is an order document as returned by LINX. Numbers are kept as
// json.Number so string and numeric encodings coerce the same way.
type RawOrder map[string]any

// DecodeRawOrder parses a LINX order document.
func DecodeRawOrder(data []byte) (RawOrder, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw RawOrder
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceInvalidResponse, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty order document", ErrSourceInvalidResponse)
	}
	return raw, nil
}

// Value returns the raw value under key, nil if absent.
func (r RawOrder) Value(key string) any {
	if r == nil {
		return nil
	}
	return r[key]
}

// String returns the value under key rendered as text, or "" when absent.
func (r RawOrder) String(key string) string {
	s, _ := Stringify(r.Value(key))
	return s
}

// Object returns the nested document under key. Anything that is not an
// object yields nil, which behaves like an empty document.
func (r RawOrder) Object(key string) RawOrder {
	switch v := r.Value(key).(type) {
	case map[string]any:
		return RawOrder(v)
	case RawOrder:
		return v
	default:
		return nil
	}
}

// List returns the nested documents under key, skipping non-object entries.
func (r RawOrder) List(key string) []RawOrder {
	var entries []any
	switch v := r.Value(key).(type) {
	case []any:
		entries = v
	case []map[string]any:
		for _, m := range v {
			entries = append(entries, m)
		}
	case []RawOrder:
		return v
	default:
		return nil
	}

	out := make([]RawOrder, 0, len(entries))
	for _, e := range entries {
		switch m := e.(type) {
		case map[string]any:
			out = append(out, RawOrder(m))
		case RawOrder:
			out = append(out, m)
		}
	}
	return out
}

// Stringify renders a decoded JSON scalar as text. Strings are returned in
// Unicode NFC. The second result is false when v is nil.
func Stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return norm.NFC.String(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}
