// Package dto provides data transfer objects for the payment HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/allisson/payments/internal/validation"
)

// PaymentRequest represents the API request body for a payment
type PaymentRequest struct {
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
	SourceAccount      string `json:"source_account"`
	DestinationAccount string `json:"destination_account"`
}

// Validate validates the PaymentRequest using the jellydator/validation library
func (r *PaymentRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Amount,
			validation.Required.Error("amount is required"),
			appValidation.PositiveDecimal,
		),
		validation.Field(&r.Currency,
			validation.Required.Error("currency is required"),
			appValidation.CurrencyCode,
		),
		validation.Field(&r.SourceAccount,
			validation.Required.Error("source_account is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("source_account must be between 1 and 255 characters"),
		),
		validation.Field(&r.DestinationAccount,
			validation.Required.Error("destination_account is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("destination_account must be between 1 and 255 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}
