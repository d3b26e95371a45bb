package storage

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PersistenceError reports a write or read the database rejected.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("database error: %s: %s", e.Op, describe(e.Cause))
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

func persistErr(op string, cause error) error {
	return &PersistenceError{Op: op, Cause: cause}
}

// describe adds the SQLSTATE name and constraint for postgres errors.
func describe(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		msg := fmt.Sprintf("%s (%s)", pqErr.Message, pqErr.Code.Name())
		if pqErr.Constraint != "" {
			msg += " constraint " + pqErr.Constraint
		}
		return msg
	}
	return err.Error()
}
