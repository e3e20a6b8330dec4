package partners

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/softwareparlat/main/internal/modules/payments"
	"github.com/softwareparlat/main/internal/shared/dberr"
)

const referralAttempts = 3

type Service struct {
	db          *gorm.DB
	repo        *Repo
	defaultRate decimal.Decimal
	logger      *slog.Logger
}

func NewService(db *gorm.DB, defaultRate decimal.Decimal) *Service {
	return &Service{db: db, repo: NewRepo(db), defaultRate: defaultRate, logger: slog.Default()}
}

func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

func (s *Service) Repo() *Repo { return s.repo }

type EnrollInput struct {
	UserID string
	Email  string
	Rate   *decimal.Decimal // admin override; nil means default rate
}

func (s *Service) Enroll(ctx context.Context, in EnrollInput) (Partner, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return Partner{}, errors.New("user id required")
	}
	rate := s.defaultRate
	if in.Rate != nil {
		rate = *in.Rate
	}
	if !validRate(rate) {
		return Partner{}, ErrInvalidRate
	}

	if _, err := s.repo.GetByUserID(ctx, in.UserID); err == nil {
		return Partner{}, ErrAlreadyPartner
	} else if !errors.Is(err, ErrNotFound) {
		return Partner{}, err
	}

	for attempt := 0; attempt < referralAttempts; attempt++ {
		code, err := NewReferralCode()
		if err != nil {
			return Partner{}, err
		}
		now := time.Now()
		p := Partner{
			ID:             uuid.NewString(),
			UserID:         in.UserID,
			ReferralCode:   code,
			ContactEmail:   strings.ToLower(strings.TrimSpace(in.Email)),
			CommissionRate: rate.Round(2),
			TotalEarnings:  decimal.Zero,
			TotalSales:     0,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err = s.db.WithContext(ctx).Create(&p).Error
		if err == nil {
			s.logger.InfoContext(ctx, "partner enrolled", "partner_id", p.ID, "user_id", p.UserID, "referral_code", p.ReferralCode)
			return p, nil
		}
		if !dberr.IsDuplicate(err) {
			return Partner{}, fmt.Errorf("create partner: %w", err)
		}
		// user_id raced with another enrollment, or referral code collided
		if _, gerr := s.repo.GetByUserID(ctx, in.UserID); gerr == nil {
			return Partner{}, ErrAlreadyPartner
		}
	}
	return Partner{}, errors.New("could not allocate a unique referral code")
}

type Stats struct {
	TotalEarnings  decimal.Decimal `json:"totalEarnings"`
	TotalSales     int             `json:"totalSales"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
}

type Dashboard struct {
	Partner     Partner            `json:"partner"`
	Commissions []Commission       `json:"commissions"`
	Payments    []payments.Payment `json:"payments"`
	Stats       Stats              `json:"stats"`
}

func (s *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	commissions, err := s.repo.ListCommissions(ctx, p.ID)
	if err != nil {
		return Dashboard{}, err
	}
	referred, err := s.repo.ListReferredPayments(ctx, p.ID, 100)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Partner:     p,
		Commissions: commissions,
		Payments:    referred,
		Stats: Stats{
			TotalEarnings:  p.TotalEarnings,
			TotalSales:     p.TotalSales,
			CommissionRate: p.CommissionRate,
		},
	}, nil
}
