package partners

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/softwareparlat/main/internal/modules/payments"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) GetByID(ctx context.Context, id string) (Partner, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repo) GetByUserID(ctx context.Context, userID string) (Partner, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *Repo) GetByReferralCode(ctx context.Context, code string) (Partner, error) {
	return r.first(ctx, "referral_code = ?", strings.ToUpper(code))
}

func (r *Repo) first(ctx context.Context, query string, arg any) (Partner, error) {
	var p Partner
	if err := r.db.WithContext(ctx).First(&p, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Partner{}, ErrNotFound
		}
		return Partner{}, err
	}
	return p, nil
}

var _ payments.PartnerResolver = (*Repo)(nil)

// ResolvePartner maps a checkout's partner id or referral code to an active
// partner id. Unknown references are a checkout validation error.
func (r *Repo) ResolvePartner(ctx context.Context, partnerID, referralCode string) (string, error) {
	var (
		p   Partner
		err error
	)
	switch {
	case partnerID != "":
		p, err = r.GetByID(ctx, partnerID)
	case referralCode != "":
		p, err = r.GetByReferralCode(ctx, referralCode)
	default:
		return "", nil
	}
	if errors.Is(err, ErrNotFound) || (err == nil && !p.IsActive) {
		return "", fmt.Errorf("%w: unknown partner", payments.ErrInvalidCheckout)
	}
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (r *Repo) ListCommissions(ctx context.Context, partnerID string) ([]Commission, error) {
	out := []Commission{}
	err := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListReferredPayments returns the payments that carry this partner's referral.
func (r *Repo) ListReferredPayments(ctx context.Context, partnerID string, limit int) ([]payments.Payment, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	out := []payments.Payment{}
	err := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListAll pages through partners ordered by id.
func (r *Repo) ListAll(ctx context.Context, afterID string, limit int) ([]Partner, error) {
	var out []Partner
	q := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if afterID != "" {
		q = q.Where("id > ?", afterID)
	}
	err := q.Find(&out).Error
	return out, err
}

type AggregateMismatch struct {
	PartnerID       string
	TotalEarnings   decimal.Decimal
	TotalSales      int
	DerivedEarnings decimal.Decimal
	DerivedSales    int
}

type aggregateRow struct {
	ID              string
	TotalEarnings   decimal.Decimal
	TotalSales      int
	DerivedEarnings decimal.Decimal
	DerivedSales    int
}

// VerifyAggregates compares cached partner totals with the sums over their
// commissions and returns every partner that disagrees.
func (r *Repo) VerifyAggregates(ctx context.Context) ([]AggregateMismatch, error) {
	var rows []aggregateRow
	err := r.db.WithContext(ctx).
		Table("partners AS p").
		Select("p.id AS id, p.total_earnings AS total_earnings, p.total_sales AS total_sales, " +
			"COALESCE(SUM(c.amount), 0) AS derived_earnings, COUNT(c.id) AS derived_sales").
		Joins("LEFT JOIN commissions c ON c.partner_id = p.id").
		Group("p.id, p.total_earnings, p.total_sales").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate query: %w", err)
	}

	var out []AggregateMismatch
	for _, row := range rows {
		if row.TotalEarnings.Equal(row.DerivedEarnings) && row.TotalSales == row.DerivedSales {
			continue
		}
		out = append(out, AggregateMismatch{
			PartnerID:       row.ID,
			TotalEarnings:   row.TotalEarnings,
			TotalSales:      row.TotalSales,
			DerivedEarnings: row.DerivedEarnings,
			DerivedSales:    row.DerivedSales,
		})
	}
	return out, nil
}

// ListCommissionsBetween returns commissions created in [from, to), oldest first.
func (r *Repo) ListCommissionsBetween(ctx context.Context, partnerID string, from, to time.Time) ([]Commission, error) {
	out := []Commission{}
	err := r.db.WithContext(ctx).
		Where("partner_id = ? AND created_at >= ? AND created_at < ?", partnerID, from, to).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
