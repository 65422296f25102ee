package db

import (
	"errors"
	"strings"
)

// IsUniqueViolation reports whether the error chain references a unique
// constraint violation. When constraintName is provided, the helper looks for
// that constraint's name in the error text; otherwise any driver phrasing of
// a duplicate key counts.
func IsUniqueViolation(err error, constraintName string) bool {
	for err != nil {
		msg := err.Error()
		if constraintName != "" {
			if strings.Contains(msg, constraintName) {
				return true
			}
		} else if strings.Contains(msg, "duplicate key value") ||
			strings.Contains(msg, "UNIQUE constraint failed") {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
