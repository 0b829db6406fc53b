// Package validation provides custom validation rules for request DTOs.
package validation

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	apperrors "github.com/habitvault/habitvault/internal/errors"
)

var (
	// emailRegex is a basic email validation pattern
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// colorRegex matches hex color codes like #22c55e
	colorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Email validates email format using regex.
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NotBlank validates that a string is not empty after trimming whitespace.
// It is a hand-rolled Rule rather than a StringRule because StringRules skip
// empty values, and blank is exactly what this rule must reject.
var NotBlank validation.Rule = notBlankRule{}

var errNotBlank = validation.NewError("validation_not_blank", "must not be blank")

type notBlankRule struct{}

func (notBlankRule) Validate(value interface{}) error {
	s, err := validation.EnsureString(value)
	if err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		return errNotBlank
	}
	return nil
}

// EntryDate validates a calendar date in YYYY-MM-DD form. Entry records are
// keyed by this string, so anything else would scatter the storage layout.
var EntryDate = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := time.Parse("2006-01-02", s)
		return err == nil
	},
	validation.NewError("validation_entry_date", "must be a date in YYYY-MM-DD format"),
)

// HexColor validates a six-digit hex color code with a leading #.
var HexColor = validation.NewStringRuleWithError(
	func(s string) bool {
		return colorRegex.MatchString(s)
	},
	validation.NewError("validation_hex_color", "must be a hex color like #22c55e"),
)
