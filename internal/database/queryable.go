package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Queryable is the union of the sqlx methods our stores rely on. Both
// *sqlx.DB and *sqlx.Tx satisfy it, allowing store methods to run
// standalone or composed inside a wider transaction.
type Queryable interface {
	Exec(query string, args ...any) (sql.Result, error)
	Get(dest any, query string, args ...any) error
	Select(dest any, query string, args ...any) error
	Rebind(query string) string
}

// JsonColumn wraps a generic value so it can be selected from a query
// which coalesces related rows in to a JSON document (typically via
// json_agg). A NULL column leaves the inner value absent.
type JsonColumn[T any] struct {
	val *T
}

func (j *JsonColumn[T]) Scan(src any) error {
	if src == nil {
		j.val = nil
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan JsonColumn from %T", src)
	}

	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return err
	}

	j.val = out
	return nil
}

func (j JsonColumn[T]) Value() (driver.Value, error) {
	if j.val == nil {
		return nil, nil
	}

	return json.Marshal(*j.val)
}

// Get returns the inner value, or nil if the scanned column was NULL.
func (j *JsonColumn[T]) Get() *T {
	return j.val
}
