package payments

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

// Payment is a financial record: created pending at checkout, moved to a
// terminal state only by the reconciler, never deleted.
type Payment struct {
	ID        string          `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    string          `gorm:"type:char(36);not null;index:ix_payments_user_id" json:"userId"`
	ProjectID *string         `gorm:"type:char(36)" json:"projectId,omitempty"`
	PartnerID *string         `gorm:"type:char(36);index:ix_payments_partner_id" json:"partnerId,omitempty"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency  string          `gorm:"type:char(3);not null" json:"currency"`
	Status    string          `gorm:"type:varchar(16);not null;index:ix_payments_status_created,priority:1" json:"status"`

	Description    string `gorm:"type:varchar(255);not null" json:"description"`
	CorrelationKey string `gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_correlation_key" json:"correlationKey"`

	Provider             string  `gorm:"type:varchar(32);not null" json:"provider"`
	ProviderPreferenceID *string `gorm:"type:varchar(128)" json:"providerPreferenceId,omitempty"`
	ProviderPaymentID    *string `gorm:"type:varchar(64);index:ix_payments_provider_payment_id" json:"providerPaymentId,omitempty"`
	ProviderStatus       *string `gorm:"type:varchar(32)" json:"providerStatus,omitempty"`
	ProviderStatusDetail *string `gorm:"type:varchar(64)" json:"providerStatusDetail,omitempty"`
	ErrorMessage         *string `gorm:"type:varchar(255)" json:"-"`

	Metadata datatypes.JSON `gorm:"type:json" json:"metadata,omitempty"`

	CreatedAt   time.Time  `gorm:"precision:3;not null;index:ix_payments_status_created,priority:2" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"precision:3;not null" json:"updatedAt"`
	CompletedAt *time.Time `gorm:"precision:3" json:"completedAt,omitempty"`
}

func (Payment) TableName() string { return "payments" }

func (p Payment) IsTerminal() bool {
	return p.Status != StatusPending
}
