package payments_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/softwareparlat/main/internal/mailer"
	"github.com/softwareparlat/main/internal/modules/partners"
	"github.com/softwareparlat/main/internal/modules/payments"
)

func TestApprovedNotificationCreditsPartner(t *testing.T) {
	h := newHarness(t)
	partner := h.enroll(t, "partner-user", "15")
	p := h.initiate(t, "1000.00", partner.ID)
	id := h.provider.attempt(p.CorrelationKey, "approved", p.Amount)

	res, err := h.rec.HandleNotification(context.Background(), notify(id))
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if res.Outcome != payments.OutcomeCompleted || res.PaymentID != p.ID || res.Commission == nil {
		t.Fatalf("res = %+v", res)
	}
	if !res.Commission.Amount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("commission = %s, want 150.00", res.Commission.Amount)
	}

	got := h.payment(t, p.ID)
	if got.Status != payments.StatusCompleted || got.CompletedAt == nil {
		t.Fatalf("payment = %+v", got)
	}
	if got.ProviderPaymentID == nil || *got.ProviderPaymentID != id {
		t.Fatalf("provider payment id = %v", got.ProviderPaymentID)
	}

	pt := h.partner(t, partner.ID)
	if !pt.TotalEarnings.Equal(decimal.NewFromInt(150)) || pt.TotalSales != 1 {
		t.Fatalf("partner totals = %s / %d", pt.TotalEarnings, pt.TotalSales)
	}
	if h.notifier.count() != 1 {
		t.Fatalf("notifier calls = %d, want 1", h.notifier.count())
	}
}

func TestRepeatedNotificationsApplyOnce(t *testing.T) {
	h := newHarness(t)
	partner := h.enroll(t, "partner-user", "15")
	p := h.initiate(t, "1000.00", partner.ID)
	id := h.provider.attempt(p.CorrelationKey, "approved", p.Amount)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := h.rec.HandleNotification(ctx, notify(id)); err != nil {
			t.Fatalf("sequential #%d: %v", i, err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.rec.HandleNotification(ctx, notify(id))
			if err != nil {
				errs <- err
				return
			}
			if res.Outcome != payments.OutcomeDuplicate {
				errs <- fmt.Errorf("outcome = %s, want duplicate", res.Outcome)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if n := h.commissionCount(t); n != 1 {
		t.Fatalf("commissions = %d, want 1", n)
	}
	pt := h.partner(t, partner.ID)
	if !pt.TotalEarnings.Equal(decimal.NewFromInt(150)) || pt.TotalSales != 1 {
		t.Fatalf("partner totals = %s / %d, want 150 / 1", pt.TotalEarnings, pt.TotalSales)
	}
	if h.notifier.count() != 1 {
		t.Fatalf("notifier calls = %d, want 1", h.notifier.count())
	}
}

func TestRejectedNotificationFailsWithoutCommission(t *testing.T) {
	h := newHarness(t)
	partner := h.enroll(t, "partner-user", "15")
	p := h.initiate(t, "200.00", partner.ID)
	rejected := h.provider.attempt(p.CorrelationKey, "rejected", p.Amount)

	res, err := h.rec.HandleNotification(context.Background(), notify(rejected))
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if res.Outcome != payments.OutcomeFailed || res.Commission != nil {
		t.Fatalf("res = %+v", res)
	}

	// a later approval for the same checkout does not reopen a terminal payment
	approved := h.provider.attempt(p.CorrelationKey, "approved", p.Amount)
	res, err = h.rec.HandleNotification(context.Background(), notify(approved))
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if res.Outcome != payments.OutcomeDuplicate {
		t.Fatalf("outcome = %s, want duplicate", res.Outcome)
	}

	got := h.payment(t, p.ID)
	if got.Status != payments.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ProviderStatus == nil || *got.ProviderStatus != "approved" {
		t.Fatalf("provider status not refreshed: %v", got.ProviderStatus)
	}
	if n := h.commissionCount(t); n != 0 {
		t.Fatalf("commissions = %d, want 0", n)
	}
	pt := h.partner(t, partner.ID)
	if !pt.TotalEarnings.IsZero() || pt.TotalSales != 0 {
		t.Fatalf("partner totals moved: %s / %d", pt.TotalEarnings, pt.TotalSales)
	}
}

func TestCompletedWithoutPartner(t *testing.T) {
	h := newHarness(t)
	p := h.initiate(t, "75.50", "")
	id := h.provider.attempt(p.CorrelationKey, "approved", p.Amount)

	res, err := h.rec.HandleNotification(context.Background(), notify(id))
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if res.Outcome != payments.OutcomeCompleted || res.Commission != nil {
		t.Fatalf("res = %+v", res)
	}
	if n := h.commissionCount(t); n != 0 {
		t.Fatalf("commissions = %d, want 0", n)
	}
}

func TestCompletedWithMissingPartner(t *testing.T) {
	h := newHarness(t)
	p := h.initiate(t, "100.00", "")
	// partner vanished between checkout and settlement
	if err := h.db.Model(&payments.Payment{}).Where("id = ?", p.ID).Update("partner_id", "ghost").Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	id := h.provider.attempt(p.CorrelationKey, "approved", p.Amount)

	res, err := h.rec.HandleNotification(context.Background(), notify(id))
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if res.Outcome != payments.OutcomeCompleted || res.Commission != nil {
		t.Fatalf("res = %+v", res)
	}
	if got := h.payment(t, p.ID); got.Status != payments.StatusCompleted {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestUnmatchedAndIgnoredNotifications(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id := h.provider.attempt("unknown-key", "approved", decimal.NewFromInt(10))
	res, err := h.rec.HandleNotification(ctx, notify(id))
	if err != nil || res.Outcome != payments.OutcomeUnmatched {
		t.Fatalf("unmatched: %+v, %v", res, err)
	}

	noRef := h.provider.attempt("", "approved", decimal.NewFromInt(10))
	res, err = h.rec.HandleNotification(ctx, notify(noRef))
	if err != nil || res.Outcome != payments.OutcomeUnmatched {
		t.Fatalf("no reference: %+v, %v", res, err)
	}

	fetches := h.provider.fetches
	for _, n := range []payments.Notification{
		{Type: "merchant_order", DataID: "1"},
		{},
		{DataID: "1"}, // action-only test deliveries carry no type
	} {
		res, err = h.rec.HandleNotification(ctx, n)
		if err != nil || res.Outcome != payments.OutcomeIgnored {
			t.Fatalf("%+v: %+v, %v", n, res, err)
		}
	}
	if h.provider.fetches != fetches {
		t.Fatalf("provider queried for ignored notification")
	}

	for _, n := range []payments.Notification{{Type: "payment"}, {Type: "payment", DataID: "  "}} {
		if _, err := h.rec.HandleNotification(ctx, n); !errors.Is(err, payments.ErrMalformedNotification) {
			t.Fatalf("%+v: err = %v, want ErrMalformedNotification", n, err)
		}
	}
}

func TestProviderErrorsAreRetryable(t *testing.T) {
	h := newHarness(t)
	p := h.initiate(t, "100.00", "")
	ctx := context.Background()

	if _, err := h.rec.HandleNotification(ctx, notify("404404")); !payments.IsRetryable(err) {
		t.Fatalf("unknown provider id: err = %v, want retryable", err)
	}

	id := h.provider.attempt(p.CorrelationKey, "approved", p.Amount)
	h.provider.fetchErr = fmt.Errorf("%w: status 502", payments.ErrProviderUnavailable)
	if _, err := h.rec.HandleNotification(ctx, notify(id)); !payments.IsRetryable(err) {
		t.Fatalf("provider down: err = %v, want retryable", err)
	}
	if got := h.payment(t, p.ID); got.Status != payments.StatusPending {
		t.Fatalf("status = %s, want pending after provider error", got.Status)
	}

	// provider retry after recovery settles normally
	h.provider.fetchErr = nil
	res, err := h.rec.HandleNotification(ctx, notify(id))
	if err != nil || res.Outcome != payments.OutcomeCompleted {
		t.Fatalf("retry: %+v, %v", res, err)
	}
}

func TestConcurrentPaymentsConserveTotals(t *testing.T) {
	h := newHarness(t)
	partner := h.enroll(t, "partner-user", "12.5")
	ctx := context.Background()

	// sqlite keeps decimals as REAL, so pick commissions that are exact in binary
	amounts := []string{"100.00", "250.00", "10.00", "300.00", "20.00", "1000.00", "40.00", "2.00"}
	ids := make([]string, 0, len(amounts))
	want := decimal.Zero
	for _, a := range amounts {
		p := h.initiate(t, a, partner.ID)
		ids = append(ids, h.provider.attempt(p.CorrelationKey, "approved", p.Amount))
		want = want.Add(p.Amount.Mul(decimal.RequireFromString("12.5")).Div(decimal.NewFromInt(100)).Round(2))
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := h.rec.HandleNotification(ctx, notify(id)); err != nil {
					t.Errorf("notification %s: %v", id, err)
				}
			}(id)
		}
	}
	wg.Wait()

	if n := h.commissionCount(t); n != int64(len(amounts)) {
		t.Fatalf("commissions = %d, want %d", n, len(amounts))
	}
	mismatches, err := h.partners.Repo().VerifyAggregates(ctx)
	if err != nil {
		t.Fatalf("VerifyAggregates: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("aggregates drifted: %+v", mismatches)
	}
	pt := h.partner(t, partner.ID)
	if pt.TotalSales != len(amounts) {
		t.Fatalf("total sales = %d, want %d", pt.TotalSales, len(amounts))
	}
	if !pt.TotalEarnings.Round(2).Equal(want) {
		t.Fatalf("total earnings = %s, want %s", pt.TotalEarnings, want)
	}
}

func TestExistingCommissionStillCompletesPayment(t *testing.T) {
	h := newHarness(t)
	partner := h.enroll(t, "partner-user", "10")
	p := h.initiate(t, "100.00", partner.ID)

	// repaired by hand before the webhook arrived
	if err := h.db.Create(&partners.Commission{
		ID:        "manual-commission",
		PartnerID: partner.ID,
		PaymentID: p.ID,
		Amount:    decimal.NewFromInt(10),
		Rate:      decimal.NewFromInt(10),
		Currency:  "ARS",
		Status:    partners.CommissionStatusEarned,
		CreatedAt: time.Now(),
	}).Error; err != nil {
		t.Fatalf("seed commission: %v", err)
	}

	id := h.provider.attempt(p.CorrelationKey, "approved", p.Amount)
	res, err := h.rec.HandleNotification(context.Background(), notify(id))
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if res.Outcome != payments.OutcomeCompleted || res.Commission != nil {
		t.Fatalf("res = %+v", res)
	}
	if got := h.payment(t, p.ID); got.Status != payments.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if n := h.commissionCount(t); n != 1 {
		t.Fatalf("commissions = %d, want 1", n)
	}
	if pt := h.partner(t, partner.ID); pt.TotalSales != 0 || !pt.TotalEarnings.IsZero() {
		t.Fatalf("partner totals moved: %s / %d", pt.TotalEarnings, pt.TotalSales)
	}
	if h.notifier.count() != 0 {
		t.Fatalf("notifier called for existing commission")
	}

	// redelivery is a plain duplicate
	res, err = h.rec.HandleNotification(context.Background(), notify(id))
	if err != nil || res.Outcome != payments.OutcomeDuplicate {
		t.Fatalf("redelivery: %+v, %v", res, err)
	}
}

// silentSMTP accepts the message and never answers until ctx ends.
type silentSMTP struct{}

func (silentSMTP) Send(ctx context.Context, e mailer.Email) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestSettlementDoesNotWaitOnMail(t *testing.T) {
	h := newHarness(t)
	n := partners.NewEmailNotifier(silentSMTP{}, "no-reply@example.com", "Parlat", nil)
	n.SetTimeout(200 * time.Millisecond)
	h.rec.SetNotifier(n)
	t.Cleanup(n.Wait)

	partner := h.enroll(t, "partner-user", "15")
	p := h.initiate(t, "100.00", partner.ID)
	id := h.provider.attempt(p.CorrelationKey, "approved", p.Amount)

	start := time.Now()
	res, err := h.rec.HandleNotification(context.Background(), notify(id))
	if err != nil || res.Outcome != payments.OutcomeCompleted {
		t.Fatalf("HandleNotification: %+v, %v", res, err)
	}
	if d := time.Since(start); d > 2*time.Second {
		t.Fatalf("settlement blocked on mail for %v", d)
	}
}
