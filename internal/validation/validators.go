package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Validator is a function that validates a string value and returns an error message if invalid.
type Validator func(v string) string

// Required validates that a field is not blank and does not exceed maxLen characters.
// Uses rune count for proper Unicode support.
func Required(fieldName string, maxLen int) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return fieldName + " is required."
		}
		if utf8.RuneCountInString(v) > maxLen {
			return fmt.Sprintf("%s cannot exceed %d characters.", fieldName, maxLen)
		}
		return ""
	}
}

// Present validates that a field is non-empty without trimming it.
// Used for secrets, where surrounding whitespace is significant.
func Present(fieldName string) Validator {
	return func(v string) string {
		if v == "" {
			return fieldName + " is required."
		}
		return ""
	}
}

// MinLength validates that a field has at least minLen characters.
func MinLength(fieldName string, minLen int) Validator {
	return func(v string) string {
		if utf8.RuneCountInString(v) < minLen {
			return fmt.Sprintf("%s must be at least %d characters.", fieldName, minLen)
		}
		return ""
	}
}

// MaxBytes validates that a field is at most maxBytes bytes long.
func MaxBytes(fieldName string, maxBytes int) Validator {
	return func(v string) string {
		if len(v) > maxBytes {
			return fmt.Sprintf("%s cannot exceed %d bytes.", fieldName, maxBytes)
		}
		return ""
	}
}

// Email validates a bare address such as "ann@x.com". Display-name forms
// like "Ann <ann@x.com>" are rejected.
func Email(fieldName string) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return fieldName + " is required."
		}
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v || addr.Name != "" {
			return fieldName + " must be a valid email address."
		}
		if at := strings.LastIndexByte(v, '@'); at < 1 || !strings.Contains(v[at+1:], ".") {
			return fieldName + " must be a valid email address."
		}
		return ""
	}
}

// OneOf validates that a field matches one of the provided options (case-insensitive).
func OneOf(fieldName string, options []string) Validator {
	return func(v string) string {
		v = strings.ToUpper(strings.TrimSpace(v))
		for _, opt := range options {
			if v == strings.ToUpper(opt) {
				return ""
			}
		}
		return fmt.Sprintf("%s must be one of: %s", fieldName, strings.Join(options, ", "))
	}
}

// FieldValidator provides a fluent API for validating multiple fields and
// collecting every failure. Request handlers use Schema instead, which stops
// at the first failing field.
type FieldValidator struct {
	errors map[string]string
}

// New creates a new FieldValidator instance.
func New() *FieldValidator {
	return &FieldValidator{errors: make(map[string]string)}
}

// Validate validates a field with one or more validators.
// It stops at the first error for each field.
func (fv *FieldValidator) Validate(field, value string, validators ...Validator) *FieldValidator {
	for _, v := range validators {
		if err := v(value); err != "" {
			fv.errors[field] = err
			break
		}
	}
	return fv
}

// Errors returns the accumulated validation errors.
func (fv *FieldValidator) Errors() map[string]string {
	return fv.errors
}
