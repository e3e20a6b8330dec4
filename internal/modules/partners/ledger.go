package partners

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/softwareparlat/main/internal/modules/payments"
	"github.com/softwareparlat/main/internal/shared/dberr"
)

// Ledger implements payments.Ledger on the partners/commissions tables.
type Ledger struct{}

func NewLedger() *Ledger { return &Ledger{} }

var _ payments.Ledger = (*Ledger)(nil)

// Credit inserts the commission and bumps the partner totals in SQL, on tx.
// The partner's current rate is used and frozen on the commission row.
func (l *Ledger) Credit(ctx context.Context, tx *gorm.DB, in payments.CreditInput) (payments.CreditResult, error) {
	var p Partner
	if err := tx.WithContext(ctx).First(&p, "id = ?", in.PartnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return payments.CreditResult{}, payments.ErrPartnerNotFound
		}
		return payments.CreditResult{}, err
	}

	now := time.Now()
	c := Commission{
		ID:        uuid.NewString(),
		PartnerID: p.ID,
		PaymentID: in.PaymentID,
		Amount:    CommissionAmount(in.Amount, p.CommissionRate),
		Rate:      p.CommissionRate,
		Currency:  in.Currency,
		Status:    CommissionStatusEarned,
		CreatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&c).Error; err != nil {
		if dberr.IsDuplicate(err) {
			return payments.CreditResult{}, payments.ErrAlreadyCredited
		}
		return payments.CreditResult{}, fmt.Errorf("insert commission: %w", err)
	}

	// additive, evaluated by the database against the current row
	upd := tx.WithContext(ctx).Model(&Partner{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"total_earnings": gorm.Expr("total_earnings + CAST(? AS DECIMAL(12,2))", c.Amount.StringFixed(2)),
			"total_sales":    gorm.Expr("total_sales + 1"),
			"updated_at":     now,
		})
	if upd.Error != nil {
		return payments.CreditResult{}, fmt.Errorf("increment partner totals: %w", upd.Error)
	}
	if upd.RowsAffected != 1 {
		return payments.CreditResult{}, fmt.Errorf("increment partner totals: %d rows affected", upd.RowsAffected)
	}

	return payments.CreditResult{
		CommissionID: c.ID,
		PartnerID:    p.ID,
		PaymentID:    in.PaymentID,
		Amount:       c.Amount,
		Rate:         c.Rate,
		Currency:     c.Currency,
		PartnerEmail: p.ContactEmail,
	}, nil
}
