package payments_test

import (
	"context"
	"testing"
	"time"

	"github.com/softwareparlat/main/internal/modules/payments"
)

func TestSweepPending(t *testing.T) {
	h := newHarness(t)
	partner := h.enroll(t, "partner-user", "10")
	ctx := context.Background()

	approved := h.initiate(t, "500.00", partner.ID)
	rejected := h.initiate(t, "80.00", "")
	open := h.initiate(t, "60.00", "")
	fresh := h.initiate(t, "40.00", "")

	h.provider.attempt(approved.CorrelationKey, "rejected", approved.Amount)
	h.provider.attempt(approved.CorrelationKey, "approved", approved.Amount)
	h.provider.attempt(rejected.CorrelationKey, "rejected", rejected.Amount)
	h.provider.attempt(open.CorrelationKey, "in_process", open.Amount)
	h.provider.attempt(fresh.CorrelationKey, "approved", fresh.Amount)

	old := time.Now().Add(-time.Hour)
	for _, p := range []payments.Payment{approved, rejected, open} {
		if err := h.db.Model(&payments.Payment{}).Where("id = ?", p.ID).Update("created_at", old).Error; err != nil {
			t.Fatalf("age payment: %v", err)
		}
	}

	rep, err := h.rec.SweepPending(ctx, 15*time.Minute, 10)
	if err != nil {
		t.Fatalf("SweepPending: %v", err)
	}
	want := payments.SweepReport{Scanned: 3, Completed: 1, Failed: 1, StillOpen: 1}
	if rep != want {
		t.Fatalf("report = %+v, want %+v", rep, want)
	}

	if got := h.payment(t, approved.ID); got.Status != payments.StatusCompleted {
		t.Errorf("approved: status = %s", got.Status)
	}
	if got := h.payment(t, rejected.ID); got.Status != payments.StatusFailed {
		t.Errorf("rejected: status = %s", got.Status)
	}
	if got := h.payment(t, open.ID); got.Status != payments.StatusPending {
		t.Errorf("open: status = %s", got.Status)
	}
	if got := h.payment(t, fresh.ID); got.Status != payments.StatusPending {
		t.Errorf("fresh payment swept too early: %s", got.Status)
	}
	if n := h.commissionCount(t); n != 1 {
		t.Fatalf("commissions = %d, want 1", n)
	}

	// a second sweep only sees the still-open payment
	rep, err = h.rec.SweepPending(ctx, 15*time.Minute, 10)
	if err != nil {
		t.Fatalf("SweepPending: %v", err)
	}
	if rep.Scanned != 1 || rep.StillOpen != 1 {
		t.Fatalf("second report = %+v", rep)
	}
}
