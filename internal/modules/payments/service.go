package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// decimal(10,2)
var maxAmount = decimal.New(1, 8)

const defaultDescription = "Software service"

// Service is the checkout initiator.
type Service struct {
	db              *gorm.DB
	provider        Provider
	partners        PartnerResolver
	currency        string
	providerTimeout time.Duration
	logger          *slog.Logger
}

func NewService(db *gorm.DB, p Provider, partners PartnerResolver, currency string, providerTimeout time.Duration) *Service {
	return &Service{
		db:              db,
		provider:        p,
		partners:        partners,
		currency:        strings.ToUpper(currency),
		providerTimeout: providerTimeout,
		logger:          slog.Default(),
	}
}

func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

type InitiateInput struct {
	BuyerID      string
	BuyerEmail   string
	Amount       decimal.Decimal
	Description  string
	ProjectID    string // optional
	PartnerID    string // optional
	ReferralCode string // optional, alternative to PartnerID
	Metadata     map[string]any
}

type InitiateResult struct {
	PaymentID    string
	PreferenceID string
	RedirectURL  string
}

// ValidateAmount accepts positive amounts with at most two decimals that fit decimal(10,2).
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: at most two decimal places", ErrInvalidAmount)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: too large", ErrInvalidAmount)
	}
	return nil
}

// Initiate persists a pending payment and asks the provider for a checkout
// preference. On provider failure the payment stays pending with the error
// recorded, and the error is returned.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (InitiateResult, error) {
	if strings.TrimSpace(in.BuyerID) == "" {
		return InitiateResult{}, fmt.Errorf("%w: buyer required", ErrInvalidCheckout)
	}
	if err := ValidateAmount(in.Amount); err != nil {
		return InitiateResult{}, err
	}

	var partnerID *string
	if s.partners != nil && (in.PartnerID != "" || in.ReferralCode != "") {
		id, err := s.partners.ResolvePartner(ctx, strings.TrimSpace(in.PartnerID), strings.TrimSpace(in.ReferralCode))
		if err != nil {
			return InitiateResult{}, err
		}
		if id != "" {
			partnerID = &id
		}
	}

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = defaultDescription
	}

	var meta datatypes.JSON
	if len(in.Metadata) > 0 {
		b, err := json.Marshal(in.Metadata)
		if err != nil {
			return InitiateResult{}, fmt.Errorf("%w: metadata", ErrInvalidCheckout)
		}
		meta = datatypes.JSON(b)
	}

	// Phase-1: pending row, retrievable by correlation key before we return.
	now := time.Now()
	p := Payment{
		ID:             uuid.NewString(),
		UserID:         in.BuyerID,
		PartnerID:      partnerID,
		Amount:         in.Amount,
		Currency:       s.currency,
		Status:         StatusPending,
		Description:    desc,
		CorrelationKey: uuid.NewString(),
		Provider:       s.provider.Name(),
		Metadata:       meta,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if pid := strings.TrimSpace(in.ProjectID); pid != "" {
		p.ProjectID = &pid
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return InitiateResult{}, fmt.Errorf("create payment: %w", err)
	}

	// Phase-2: provider call, outside any transaction.
	pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	pref, perr := s.provider.CreatePreference(pctx, PreferenceRequest{
		Amount:         p.Amount,
		Currency:       p.Currency,
		Description:    p.Description,
		BuyerEmail:     in.BuyerEmail,
		CorrelationKey: p.CorrelationKey,
	})
	cancel()

	// Phase-3: record outcome on the row.
	if perr != nil {
		if errors.Is(perr, context.DeadlineExceeded) {
			perr = fmt.Errorf("%w: %v", ErrProviderUnavailable, perr)
		}
		msg := truncate(perr.Error(), 250)
		if err := s.db.WithContext(ctx).Model(&Payment{}).
			Where("id = ?", p.ID).
			Updates(map[string]any{"error_message": msg, "updated_at": time.Now()}).Error; err != nil {
			s.logger.ErrorContext(ctx, "failed to record preference error", "payment_id", p.ID, "err", err)
		}
		s.logger.WarnContext(ctx, "preference creation failed", "payment_id", p.ID, "err", perr)
		return InitiateResult{}, perr
	}

	if err := s.db.WithContext(ctx).Model(&Payment{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{"provider_preference_id": pref.ID, "updated_at": time.Now()}).Error; err != nil {
		return InitiateResult{}, fmt.Errorf("store preference id: %w", err)
	}

	s.logger.InfoContext(ctx, "checkout initiated", "payment_id", p.ID, "preference_id", pref.ID, "partner_id", deref(partnerID))

	return InitiateResult{
		PaymentID:    p.ID,
		PreferenceID: pref.ID,
		RedirectURL:  pref.RedirectURL,
	}, nil
}

// GetByCorrelationKey loads a payment by the key sent to the provider.
func (s *Service) GetByCorrelationKey(ctx context.Context, key string) (Payment, error) {
	var p Payment
	err := s.db.WithContext(ctx).First(&p, "correlation_key = ?", key).Error
	return p, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
