package store

import (
	"errors"
	"fmt"
)

// ErrorKind distinguishes pool acquisition failures from statement and
// row-mapping failures.
type ErrorKind string

const (
	KindPool    ErrorKind = "pool"
	KindQuery   ErrorKind = "query"
	KindMapping ErrorKind = "mapping"
)

// Error is the single error category surfaced by repositories.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of a repository error anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// MappingError wraps a row decoding failure.
func MappingError(op string, err error) error {
	return &Error{Op: op, Kind: KindMapping, Err: err}
}
