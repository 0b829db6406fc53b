package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/habitvault/habitvault/internal/errors"
	"github.com/habitvault/habitvault/internal/validation"
)

func TestEmail(t *testing.T) {
	assert.NoError(t, validation.Email.Validate("alice@example.com"))
	assert.Error(t, validation.Email.Validate("alice"))
	assert.Error(t, validation.Email.Validate("alice@"))
	assert.Error(t, validation.Email.Validate("@example.com"))
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, validation.NotBlank.Validate("github"))
	assert.Error(t, validation.NotBlank.Validate(""))
	assert.Error(t, validation.NotBlank.Validate("   "))
}

func TestEntryDate(t *testing.T) {
	assert.NoError(t, validation.EntryDate.Validate("2025-06-01"))
	assert.Error(t, validation.EntryDate.Validate("2025-13-01"))
	assert.Error(t, validation.EntryDate.Validate("01/06/2025"))
	assert.Error(t, validation.EntryDate.Validate("today"))
}

func TestHexColor(t *testing.T) {
	assert.NoError(t, validation.HexColor.Validate("#22c55e"))
	assert.Error(t, validation.HexColor.Validate("22c55e"))
	assert.Error(t, validation.HexColor.Validate("#22c5"))
	assert.Error(t, validation.HexColor.Validate("#gggggg"))
}

func TestWrapValidationError(t *testing.T) {
	assert.Nil(t, validation.WrapValidationError(nil))

	wrapped := validation.WrapValidationError(errors.New("must not be blank"))
	assert.ErrorIs(t, wrapped, apperrors.ErrInvalidInput)
	assert.Contains(t, wrapped.Error(), "must not be blank")
}
