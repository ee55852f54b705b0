package validation

import (
	"testing"

	validation "github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/payments/internal/errors"
)

func TestWrapValidationError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.NoError(t, WrapValidationError(nil))
	})

	t.Run("non-nil error", func(t *testing.T) {
		err := WrapValidationError(validation.NewError("code", "message"))
		assert.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, validation.Validate("value", NotBlank))
	assert.Error(t, validation.Validate("   ", NotBlank))
}

func TestNoWhitespace(t *testing.T) {
	assert.NoError(t, validation.Validate("value", NoWhitespace))
	assert.Error(t, validation.Validate(" value", NoWhitespace))
	assert.Error(t, validation.Validate("value ", NoWhitespace))
}

func TestCurrencyCode(t *testing.T) {
	valid := []string{"INR", "USD", "EUR", "GBP"}
	for _, code := range valid {
		assert.NoError(t, validation.Validate(code, CurrencyCode), code)
	}

	invalid := []string{"inr", "US", "USDD", "U1D", ""}
	for _, code := range invalid {
		if code == "" {
			// Empty values are skipped by rule, handled by Required
			assert.NoError(t, validation.Validate(code, CurrencyCode))
			continue
		}
		assert.Error(t, validation.Validate(code, CurrencyCode), code)
	}
}

func TestPositiveDecimal(t *testing.T) {
	valid := []string{"1", "100", "100.50", "0.01", "99999.9999"}
	for _, amount := range valid {
		assert.NoError(t, validation.Validate(amount, PositiveDecimal), amount)
	}

	invalid := []string{"0", "0.0", "0.00", "-1", "1.23456", "abc", "1,00", ".5"}
	for _, amount := range invalid {
		assert.Error(t, validation.Validate(amount, PositiveDecimal), amount)
	}
}
