// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/payments/internal/errors"
)

var (
	// currencyRegex matches ISO 4217 style three-letter currency codes
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

	// decimalRegex matches unsigned decimal amounts with up to four fraction digits
	decimalRegex = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,4})?$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// CurrencyCode validates a three-letter uppercase currency code (e.g. "INR", "USD")
var CurrencyCode = validation.NewStringRuleWithError(
	func(s string) bool {
		return currencyRegex.MatchString(s)
	},
	validation.NewError("validation_currency_code", "must be a three-letter uppercase currency code"),
)

// PositiveDecimal validates a decimal amount string strictly greater than zero.
// Amounts travel as strings end to end so no floating point math is involved.
var PositiveDecimal = validation.NewStringRuleWithError(
	func(s string) bool {
		if !decimalRegex.MatchString(s) {
			return false
		}
		// Reject zero values like "0", "0.0", "0.00"
		return strings.Trim(strings.ReplaceAll(s, ".", ""), "0") != ""
	},
	validation.NewError("validation_positive_decimal", "must be a positive decimal amount"),
)
