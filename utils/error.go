package utils

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("admin role required")
	ErrConflict         = errors.New("record was modified by someone else, reload and try again")
)

// ValidationError carries per-field messages back to the handler.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input (" + strings.Join(parts, ", ") + ")"
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
