package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexibleID is an identifier the backend may send either as a JSON string or a number
type FlexibleID string

// UnmarshalJSON accepts "abc", 42 and null
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		*id = FlexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

// String returns the identifier as text
func (id FlexibleID) String() string {
	return string(id)
}
