package util

import (
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/automl/errors"
)

// ValidateUUID parses value as a UUID, reporting failures against field.
func ValidateUUID(field, value string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return uuid.Nil, errors.MissingField(field)
	}
	id, err := uuid.Parse(trimmed)
	if err != nil {
		return uuid.Nil, errors.InvalidInput(field, "not a UUID: "+trimmed)
	}
	return id, nil
}
