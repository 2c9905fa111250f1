// Package model holds the tutoring domain entities shared by the API server and the
// data-sync client, plus the repository contracts the storage layer implements.
package model

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// Entity is any record identified by an opaque string ID.
type Entity interface {
	EntityID() string
}

// NewID returns a random (v4) UUID string.
func NewID() string {
	return uuid.New().String()
}

// Strings is a set or ordered list of strings stored as a TEXT[] column.
type Strings []string

func (s Strings) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	return pq.StringArray(s).Value()
}

func (s *Strings) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*s = Strings(arr)
	return nil
}

func (s Strings) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

func (s Strings) Contains(v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// With returns a copy of s holding v exactly once.
func (s Strings) With(v string) Strings {
	out := make(Strings, 0, len(s)+1)
	out = append(out, s...)
	if !s.Contains(v) {
		out = append(out, v)
	}
	return out
}

// Without returns a copy of s with every occurrence of v removed.
func (s Strings) Without(v string) Strings {
	out := make(Strings, 0, len(s))
	for _, e := range s {
		if e != v {
			out = append(out, e)
		}
	}
	return out
}

// JSONB helpers. lib/pq sends []byte as bytea, so values go out as strings.

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling jsonb value")
	}
	return string(b), nil
}

func jsonScan(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.Errorf("unsupported jsonb source type %T", src)
	}
}
