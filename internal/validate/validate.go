// Package validate checks user input before any store mutation is attempted.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/propmap/internal/textnorm"
)

// DefaultWeight is assigned to propositions entered without a weight.
const DefaultWeight = "1"

// Error reports rejected input. The offending field is always named.
type Error struct {
	Field  string
	Value  string
	Reason string
}

func (e *Error) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// IsError reports whether err is or wraps a validation *Error.
func IsError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

// Label sanitizes a label and rejects one that is empty once markers and
// whitespace are removed.
func Label(field, text string) (string, error) {
	clean := strings.TrimSpace(textnorm.Sanitize(text))
	if textnorm.Normalize(clean) == "" {
		return "", &Error{Field: field, Reason: "must not be empty"}
	}
	return clean, nil
}

// Weight sanitizes a weight, defaulting an empty one to DefaultWeight.
// Weights must be positive numbers.
func Weight(text string) (string, error) {
	w := strings.TrimSpace(textnorm.Sanitize(text))
	if w == "" {
		return DefaultWeight, nil
	}
	if err := Positive("weight", w); err != nil {
		return "", err
	}
	return w, nil
}

// numberPattern is the decimal form accepted for numeric attributes. It
// matches #Number in the style state schema.
var numberPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Positive rejects values that are not positive decimal numbers.
func Positive(field, value string) error {
	if !numberPattern.MatchString(value) {
		return &Error{Field: field, Value: value, Reason: "not a number"}
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return &Error{Field: field, Value: value, Reason: "not a number"}
	}
	if n <= 0 {
		return &Error{Field: field, Value: value, Reason: "must be positive"}
	}
	return nil
}
