package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is a feed item decoded from an arbitrary JSON object with an "id" field.
// Integer ids decode to int64, string ids to string.
type Record struct {
	ID     any
	Fields map[string]any
}

// ItemID implements pagination.Item.
func (r Record) ItemID() any {
	return r.ID
}

// Get returns the named field, or nil when absent.
func (r Record) Get(name string) any {
	return r.Fields[name]
}

// Text returns the named field as a string, or "" when absent or not a string.
func (r Record) Text(name string) string {
	s, _ := r.Fields[name].(string)
	return s
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return err
	}
	if fields == nil {
		return ErrMissingID
	}

	raw, ok := fields["id"]
	if !ok {
		return ErrMissingID
	}
	delete(fields, "id")

	switch id := raw.(type) {
	case string:
		r.ID = id
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return fmt.Errorf("%w: non-integer id %s", ErrMissingID, id)
		}
		r.ID = n
	default:
		return fmt.Errorf("%w: unsupported id type %T", ErrMissingID, raw)
	}

	r.Fields = fields
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	return json.Marshal(out)
}
