package payments

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreditInput struct {
	PaymentID string
	PartnerID string
	Amount    decimal.Decimal
	Currency  string
}

type CreditResult struct {
	CommissionID string
	PartnerID    string
	PaymentID    string
	Amount       decimal.Decimal
	Rate         decimal.Decimal
	Currency     string
	PartnerEmail string
}

// Ledger credits a partner for a completed payment. Credit runs on the
// caller's transaction so the payment transition and the commission commit
// or roll back together.
type Ledger interface {
	Credit(ctx context.Context, tx *gorm.DB, in CreditInput) (CreditResult, error)
}

// PartnerResolver validates a checkout's partner reference. Either argument
// may be empty; an empty result means no partner.
type PartnerResolver interface {
	ResolvePartner(ctx context.Context, partnerID, referralCode string) (string, error)
}

// CommissionNotifier is told about new commissions after commit. Best effort.
type CommissionNotifier interface {
	CommissionCredited(ctx context.Context, c CreditResult)
}
