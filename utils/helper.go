package utils

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var validate = validator.New()

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Validate runs the `validate` struct tags and converts failures into a ValidationError.
func Validate(input any) error {
	if err := validate.Struct(input); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			return &ValidationError{Fields: ProcessValidationErrors(ves)}
		}
		return err
	}
	return nil
}

func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errorResponse["input"] = err.Error()
		return errorResponse
	}
	for _, ve := range validationErrors {
		msg := ve.Tag()
		if ve.Param() != "" {
			msg += "=" + ve.Param()
		}
		errorResponse[ToSnakeCase(ve.Field())] = msg
	}
	return errorResponse
}

// ToSnakeCase turns WeightCt into weight_ct.
func ToSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// safely dereference pointer of type T, nil pointer return zero value or optional default
func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

func NilIfEmpty[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
