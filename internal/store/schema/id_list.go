package schema

import (
	"database/sql/driver"
	"encoding/json"
)

// IDList is an ordered list of entity id strings stored as JSONB. The whole
// array is read, rewritten in memory, and written back on save; there is no
// in-place append. Lists are multisets: Append never dedups and Remove drops
// every matching entry.
type IDList []string

// Scan implements the sql.Scanner interface for reading from database
func (l *IDList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// Value implements the driver.Valuer interface for writing to database
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(IDList{})
	}
	return json.Marshal(l)
}

// Append returns a new list with id appended
func (l IDList) Append(id string) IDList {
	out := make(IDList, 0, len(l)+1)
	out = append(out, l...)
	return append(out, id)
}

// Remove returns a new list excluding all entries equal to id, preserving
// the order of the remainder
func (l IDList) Remove(id string) IDList {
	out := make(IDList, 0, len(l))
	for _, v := range l {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Contains reports whether id is present in the list
func (l IDList) Contains(id string) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}
