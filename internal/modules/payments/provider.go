package payments

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider statuses that settle a payment as completed. Anything else fails it.
var approvedStatuses = map[string]bool{
	"approved":   true,
	"authorized": true,
}

func IsApproved(providerStatus string) bool { return approvedStatuses[providerStatus] }

type PreferenceRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Description    string
	BuyerEmail     string
	CorrelationKey string
}

type Preference struct {
	ID          string
	RedirectURL string
}

// ProviderPayment is the provider's authoritative view of one payment attempt.
type ProviderPayment struct {
	ID             string
	Status         string // approved|authorized|rejected|cancelled|in_process|...
	StatusDetail   string
	CorrelationKey string // external reference we sent with the preference
	Amount         decimal.Decimal
	Currency       string
}

type Provider interface {
	Name() string
	// CreatePreference fails with ErrProviderUnavailable or ErrProviderRejected.
	CreatePreference(ctx context.Context, req PreferenceRequest) (Preference, error)
	// FetchPayment fails with ErrProviderUnavailable or ErrProviderNotFound.
	FetchPayment(ctx context.Context, providerPaymentID string) (ProviderPayment, error)
	// SearchByCorrelationKey lists payment attempts for one external reference, newest first.
	SearchByCorrelationKey(ctx context.Context, correlationKey string) ([]ProviderPayment, error)
}
