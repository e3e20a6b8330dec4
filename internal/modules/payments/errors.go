package payments

import "errors"

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidCheckout       = errors.New("invalid checkout request")
	ErrMalformedNotification = errors.New("malformed notification")

	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrProviderRejected    = errors.New("payment provider rejected request")
	ErrProviderNotFound    = errors.New("payment not found at provider")

	// Returned by a Ledger when the payment references a partner that does not exist.
	ErrPartnerNotFound = errors.New("partner not found")
	// Returned by a Ledger when a commission already exists for the payment.
	ErrAlreadyCredited = errors.New("commission already credited for payment")
)

// IsRetryable reports whether the provider (or sweep) should try again later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrProviderNotFound)
}
