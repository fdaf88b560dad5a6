package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// ValidationError reports a missing or malformed required field, rejected
// before any write is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// ConstraintKind identifies which database constraint was violated.
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintNotNull    ConstraintKind = "not_null"
	ConstraintOther      ConstraintKind = "other"
)

// ConstraintError wraps a constraint violation surfaced by SQLite so callers
// can branch on "duplicate" versus other failures.
type ConstraintError struct {
	Kind ConstraintKind
	Err  error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s constraint violation: %v", e.Kind, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// classifyErr converts raw sqlite3 errors into the store's error taxonomy.
// Non-constraint errors pass through unchanged.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	if sqliteErr.Code != sqlite3.ErrConstraint {
		return err
	}

	kind := ConstraintOther
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		kind = ConstraintUnique
	case sqlite3.ErrConstraintForeignKey:
		kind = ConstraintForeignKey
	case sqlite3.ErrConstraintNotNull:
		kind = ConstraintNotNull
	}
	return &ConstraintError{Kind: kind, Err: err}
}

// IsConstraint reports whether err is any constraint violation.
func IsConstraint(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// IsUniqueConstraint reports whether err is a uniqueness violation, e.g. a
// second insert of the same file path.
func IsUniqueConstraint(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) && ce.Kind == ConstraintUnique
}
