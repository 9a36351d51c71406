// Package dbtypes holds custom column types shared by the models.
package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UUIDArray maps a postgres uuid[] column. Used for course prerequisite
// lists so they stay a single row read.
type UUIDArray []uuid.UUID

// Scan implements sql.Scanner for the {a,b,c} array literal form.
func (a *UUIDArray) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = UUIDArray{}
		return nil
	case string:
		return a.parseLiteral(v)
	case []byte:
		return a.parseLiteral(string(v))
	default:
		return fmt.Errorf("UUIDArray: unsupported Scan type %T", src)
	}
}

// Value implements driver.Valuer, emitting the postgres array literal.
func (a UUIDArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	parts := make([]string, len(a))
	for i, id := range a {
		parts[i] = id.String()
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// Contains reports whether id is present.
func (a UUIDArray) Contains(id uuid.UUID) bool {
	for _, candidate := range a {
		if candidate == id {
			return true
		}
	}
	return false
}

func (a *UUIDArray) parseLiteral(s string) error {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if strings.TrimSpace(s) == "" {
		*a = UUIDArray{}
		return nil
	}

	raw := strings.Split(s, ",")
	out := make([]uuid.UUID, 0, len(raw))
	for _, elem := range raw {
		elem = strings.TrimSpace(strings.Trim(elem, `"`))
		id, err := uuid.Parse(elem)
		if err != nil {
			return fmt.Errorf("UUIDArray: parse %q: %w", elem, err)
		}
		out = append(out, id)
	}
	*a = out
	return nil
}
