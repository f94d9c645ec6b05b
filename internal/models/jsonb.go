package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

//
// JSON column helper
//

// JSON stores V in a json/jsonb (Postgres) or TEXT (SQLite) column.
// Valid is false for SQL NULL.
type JSON[T any] struct {
	V     T
	Valid bool
}

// NewJSON wraps v as a non-null column value.
func NewJSON[T any](v T) JSON[T] {
	return JSON[T]{V: v, Valid: true}
}

// Value encodes as a string so both lib/pq (jsonb) and SQLite (TEXT) accept it.
func (j JSON[T]) Value() (driver.Value, error) {
	if !j.Valid {
		return nil, nil
	}
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSON[T]) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*j = JSON[T]{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("JSON: expected []byte or string, got %T", value)
	}

	if len(b) == 0 {
		*j = JSON[T]{}
		return nil
	}

	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*j = JSON[T]{V: out, Valid: true}
	return nil
}

func (j JSON[T]) MarshalJSON() ([]byte, error) {
	if !j.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(j.V)
}
