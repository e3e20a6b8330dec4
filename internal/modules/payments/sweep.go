package payments

import (
	"context"
	"fmt"
	"time"
)

type SweepReport struct {
	Scanned   int
	Completed int
	Failed    int
	StillOpen int // provider has nothing yet
	Errors    int
}

// SweepPending re-drives pending payments older than olderThan by searching
// the provider for their correlation key. It is the compensating path for
// notifications that never arrived or exhausted the provider's retries.
func (r *Reconciler) SweepPending(ctx context.Context, olderThan time.Duration, limit int) (SweepReport, error) {
	if limit <= 0 {
		limit = 100
	}
	var pending []Payment
	cutoff := time.Now().Add(-olderThan)
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", StatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&pending).Error; err != nil {
		return SweepReport{}, fmt.Errorf("load pending payments: %w", err)
	}

	var rep SweepReport
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Scanned++

		pctx, cancel := context.WithTimeout(ctx, r.providerTimeout)
		found, err := r.provider.SearchByCorrelationKey(pctx, p.CorrelationKey)
		cancel()
		if err != nil {
			rep.Errors++
			r.logger.WarnContext(ctx, "sweep lookup failed", "payment_id", p.ID, "err", err)
			continue
		}

		pp, ok := pickAttempt(found)
		if !ok {
			rep.StillOpen++
			continue
		}

		res, err := r.Settle(ctx, pp)
		if err != nil {
			rep.Errors++
			continue
		}
		switch res.Outcome {
		case OutcomeCompleted:
			rep.Completed++
		case OutcomeFailed:
			rep.Failed++
		}
	}

	r.logger.InfoContext(ctx, "pending sweep finished",
		"scanned", rep.Scanned, "completed", rep.Completed, "failed", rep.Failed,
		"still_open", rep.StillOpen, "errors", rep.Errors)
	return rep, nil
}

// pickAttempt prefers an approved attempt, else the newest one that is final.
// In-flight attempts leave the payment pending.
func pickAttempt(attempts []ProviderPayment) (ProviderPayment, bool) {
	for _, a := range attempts {
		if IsApproved(a.Status) {
			return a, true
		}
	}
	for _, a := range attempts {
		if isFinalProviderStatus(a.Status) {
			return a, true
		}
	}
	return ProviderPayment{}, false
}

func isFinalProviderStatus(s string) bool {
	switch s {
	case "rejected", "cancelled", "refunded", "charged_back":
		return true
	}
	return IsApproved(s)
}
