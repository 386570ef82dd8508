// Package domain defines the outbound payment capture boundary. Billing
// treats anything other than a succeeded charge as a capture failure.
package domain

import (
	"context"
	"errors"
)

// Charge is the provider's record of a completed capture.
type Charge struct {
	ProviderChargeID string
	Status           string
	AmountCents      int64
	Currency         string
}

// Provider captures a payment against a stored customer reference. Calls
// must honor ctx cancellation; billing bounds every capture with a timeout.
type Provider interface {
	ChargeCustomer(ctx context.Context, customerID string, amountCents int64, currency, description string) (*Charge, error)
}

var (
	ErrInvalidConfig = errors.New("invalid_payment_config")
	ErrInvalidCharge = errors.New("invalid_charge_request")
	ErrCaptureFailed = errors.New("payment_capture_failed")
)
