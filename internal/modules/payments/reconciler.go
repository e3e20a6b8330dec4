package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const NotificationTypePayment = "payment"

// Notification is the provider's webhook: a type plus an opaque data id.
type Notification struct {
	Type      string
	DataID    string
	RequestID string
}

type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"   // not a payment notification
	OutcomeUnmatched Outcome = "unmatched" // no local payment for the correlation key
	OutcomeDuplicate Outcome = "duplicate" // local payment already terminal
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

type SettlementResult struct {
	Outcome    Outcome
	PaymentID  string
	Commission *CreditResult
}

// Reconciler applies provider-reported payment outcomes to local records,
// exactly once per payment.
type Reconciler struct {
	db              *gorm.DB
	provider        Provider
	ledger          Ledger
	notifier        CommissionNotifier
	providerTimeout time.Duration
	logger          *slog.Logger
}

func NewReconciler(db *gorm.DB, p Provider, ledger Ledger, providerTimeout time.Duration) *Reconciler {
	return &Reconciler{
		db:              db,
		provider:        p,
		ledger:          ledger,
		providerTimeout: providerTimeout,
		logger:          slog.Default(),
	}
}

func (r *Reconciler) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

func (r *Reconciler) SetNotifier(n CommissionNotifier) {
	r.notifier = n
}

func (r *Reconciler) ProviderName() string { return r.provider.Name() }

// HandleNotification fetches the authoritative payment state and settles it.
// Anything other than a payment notification, including one with no type, is
// ignored. A returned error wrapping ErrProviderUnavailable/ErrProviderNotFound
// is retryable; ErrMalformedNotification is not.
func (r *Reconciler) HandleNotification(ctx context.Context, n Notification) (SettlementResult, error) {
	if strings.TrimSpace(n.Type) != NotificationTypePayment {
		return SettlementResult{Outcome: OutcomeIgnored}, nil
	}
	if strings.TrimSpace(n.DataID) == "" {
		return SettlementResult{}, fmt.Errorf("%w: missing data.id", ErrMalformedNotification)
	}

	pctx, cancel := context.WithTimeout(ctx, r.providerTimeout)
	pp, err := r.provider.FetchPayment(pctx, n.DataID)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		r.logger.WarnContext(ctx, "provider payment lookup failed", "provider_payment_id", n.DataID, "err", err)
		return SettlementResult{}, err
	}
	if pp.ID == "" {
		pp.ID = n.DataID
	}

	return r.Settle(ctx, pp)
}

// Settle applies one provider payment to the local record matched by
// correlation key. The pending→terminal transition and the commission credit
// share one transaction.
func (r *Reconciler) Settle(ctx context.Context, pp ProviderPayment) (SettlementResult, error) {
	res := SettlementResult{Outcome: OutcomeUnmatched}
	if strings.TrimSpace(pp.CorrelationKey) == "" {
		r.logger.InfoContext(ctx, "provider payment without external reference dropped", "provider_payment_id", pp.ID)
		return res, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res = SettlementResult{Outcome: OutcomeUnmatched}

		var p Payment
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "correlation_key = ?", pp.CorrelationKey).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		res.PaymentID = p.ID
		now := time.Now()

		if p.IsTerminal() {
			res.Outcome = OutcomeDuplicate
			if p.Status == StatusFailed && IsApproved(pp.Status) {
				r.logger.ErrorContext(ctx, "approved provider payment for failed local payment",
					"anomaly", "approved_after_failed", "payment_id", p.ID, "provider_payment_id", pp.ID)
			}
			// audit only: no status change, no ledger side effects
			return tx.WithContext(ctx).Model(&Payment{}).
				Where("id = ?", p.ID).
				Updates(map[string]any{
					"provider_status":        pp.Status,
					"provider_status_detail": pp.StatusDetail,
					"updated_at":             now,
				}).Error
		}

		newStatus := StatusFailed
		updates := map[string]any{
			"status":                 newStatus,
			"provider_payment_id":    pp.ID,
			"provider_status":        pp.Status,
			"provider_status_detail": pp.StatusDetail,
			"updated_at":             now,
		}
		if IsApproved(pp.Status) {
			newStatus = StatusCompleted
			updates["status"] = newStatus
			updates["completed_at"] = &now
		}

		upd := tx.WithContext(ctx).Model(&Payment{}).
			Where("id = ? AND status = ?", p.ID, StatusPending).
			Updates(updates)
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			// lost the race to a concurrent reconciler
			res.Outcome = OutcomeDuplicate
			return nil
		}

		if newStatus == StatusFailed {
			res.Outcome = OutcomeFailed
			return nil
		}
		res.Outcome = OutcomeCompleted

		if !pp.Amount.IsZero() && !pp.Amount.Equal(p.Amount) {
			r.logger.ErrorContext(ctx, "provider amount differs from local payment",
				"anomaly", "amount_mismatch", "payment_id", p.ID,
				"local_amount", p.Amount.StringFixed(2), "provider_amount", pp.Amount.StringFixed(2))
		}

		if p.PartnerID == nil || *p.PartnerID == "" || r.ledger == nil {
			return nil
		}

		credit, err := r.ledger.Credit(ctx, tx, CreditInput{
			PaymentID: p.ID,
			PartnerID: *p.PartnerID,
			Amount:    p.Amount,
			Currency:  p.Currency,
		})
		if err != nil {
			if errors.Is(err, ErrPartnerNotFound) {
				r.logger.ErrorContext(ctx, "completed payment references unknown partner",
					"anomaly", "partner_missing", "payment_id", p.ID, "partner_id", *p.PartnerID)
				return nil
			}
			if errors.Is(err, ErrAlreadyCredited) {
				// a commission exists for a payment that was still pending; keep it, finish the transition
				r.logger.ErrorContext(ctx, "pending payment already has a commission",
					"anomaly", "commission_exists", "payment_id", p.ID, "partner_id", *p.PartnerID)
				return nil
			}
			return fmt.Errorf("credit commission: %w", err)
		}
		res.Commission = &credit
		return nil
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "settlement failed", "provider_payment_id", pp.ID, "correlation_key", pp.CorrelationKey, "err", err)
		return SettlementResult{}, err
	}

	r.logger.InfoContext(ctx, "settlement applied",
		"outcome", string(res.Outcome), "payment_id", res.PaymentID, "provider_payment_id", pp.ID, "provider_status", pp.Status)

	if res.Commission != nil && r.notifier != nil {
		r.notifier.CommissionCredited(ctx, *res.Commission)
	}
	return res, nil
}
