package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an opaque participant or booking identifier. Clients send either JSON
// strings or numbers; both decode to the same string form.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty id")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	case 'n':
		return fmt.Errorf("id must not be null")
	default:
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("id must be a string or a number: %w", err)
		}
		canonical, err := canonicalNumber(n)
		if err != nil {
			return err
		}
		*id = ID(canonical)
		return nil
	}
}

// canonicalNumber renders 1, 1.0 and 1e0 alike so they share one topic.
func canonicalNumber(n json.Number) (string, error) {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	f, err := n.Float64()
	if err != nil {
		return "", fmt.Errorf("id must be a string or a number: %w", err)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
