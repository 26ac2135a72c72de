package database

import (
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	"github.com/kbukum/automl/errors"
)

// IsConnectionError reports whether err looks like a lost connection.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"driver: bad connection",
		"database is locked",
		"unable to open database file",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// FromDatabase converts a database error into an AppError.
func FromDatabase(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		return errors.NotFound(resource, "")
	case IsConnectionError(err):
		return errors.Resource("database is unavailable", err)
	default:
		return errors.Storage(resource, err)
	}
}
