package partners

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CommissionStatusEarned = "earned"
	CommissionStatusPaid   = "paid"
)

// Partner totals are a cache over the partner's commissions; they only move
// together with a commission insert.
type Partner struct {
	ID             string          `gorm:"type:char(36);primaryKey" json:"id"`
	UserID         string          `gorm:"type:char(36);not null;uniqueIndex:ux_partners_user_id" json:"userId"`
	ReferralCode   string          `gorm:"type:varchar(16);not null;uniqueIndex:ux_partners_referral_code" json:"referralCode"`
	ContactEmail   string          `gorm:"type:varchar(255);not null;default:''" json:"contactEmail"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"commissionRate"`
	TotalEarnings  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalEarnings"`
	TotalSales     int             `gorm:"not null;default:0" json:"totalSales"`
	IsActive       bool            `gorm:"not null" json:"isActive"`
	CreatedAt      time.Time       `gorm:"precision:3;not null" json:"createdAt"`
	UpdatedAt      time.Time       `gorm:"precision:3;not null" json:"updatedAt"`
}

func (Partner) TableName() string { return "partners" }

type Commission struct {
	ID        string          `gorm:"type:char(36);primaryKey" json:"id"`
	PartnerID string          `gorm:"type:char(36);not null;index:ix_commissions_partner_created,priority:1" json:"partnerId"`
	PaymentID string          `gorm:"type:char(36);not null;uniqueIndex:ux_commissions_payment_id" json:"paymentId"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Rate      decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"rate"`
	Currency  string          `gorm:"type:char(3);not null" json:"currency"`
	Status    string          `gorm:"type:varchar(16);not null" json:"status"`
	PaidAt    *time.Time      `gorm:"precision:3" json:"paidAt,omitempty"`
	CreatedAt time.Time       `gorm:"precision:3;not null;index:ix_commissions_partner_created,priority:2" json:"createdAt"`
}

func (Commission) TableName() string { return "commissions" }
