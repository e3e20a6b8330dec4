package payments_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/softwareparlat/main/internal/modules/partners"
	"github.com/softwareparlat/main/internal/modules/payments"
	"github.com/softwareparlat/main/internal/testutil"
)

// fakeProvider is an in-memory payment provider keyed by provider payment id.
type fakeProvider struct {
	mu       sync.Mutex
	seq      int
	byID     map[string]payments.ProviderPayment
	prefs    []payments.PreferenceRequest
	prefErr  error
	fetchErr error
	fetches  int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{byID: map[string]payments.ProviderPayment{}}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CreatePreference(ctx context.Context, req payments.PreferenceRequest) (payments.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefErr != nil {
		return payments.Preference{}, f.prefErr
	}
	f.prefs = append(f.prefs, req)
	id := fmt.Sprintf("pref-%d", len(f.prefs))
	return payments.Preference{ID: id, RedirectURL: "https://checkout.example/" + id}, nil
}

func (f *fakeProvider) FetchPayment(ctx context.Context, id string) (payments.ProviderPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return payments.ProviderPayment{}, f.fetchErr
	}
	pp, ok := f.byID[id]
	if !ok {
		return payments.ProviderPayment{}, payments.ErrProviderNotFound
	}
	return pp, nil
}

func (f *fakeProvider) SearchByCorrelationKey(ctx context.Context, key string) ([]payments.ProviderPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []payments.ProviderPayment
	for _, pp := range f.byID {
		if pp.CorrelationKey == key {
			out = append(out, pp)
		}
	}
	return out, nil
}

// attempt registers a provider-side payment attempt and returns its id.
func (f *fakeProvider) attempt(correlationKey, status string, amount decimal.Decimal) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("%d", 1000+f.seq)
	f.byID[id] = payments.ProviderPayment{
		ID:             id,
		Status:         status,
		StatusDetail:   status,
		CorrelationKey: correlationKey,
		Amount:         amount,
		Currency:       "ARS",
	}
	return id
}

type countingNotifier struct {
	mu   sync.Mutex
	seen []payments.CreditResult
}

func (n *countingNotifier) CommissionCredited(ctx context.Context, c payments.CreditResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, c)
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.seen)
}

type harness struct {
	db       *gorm.DB
	provider *fakeProvider
	partners *partners.Service
	checkout *payments.Service
	rec      *payments.Reconciler
	notifier *countingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t, &payments.Payment{}, &payments.ProviderEvent{}, &partners.Partner{}, &partners.Commission{})
	prov := newFakeProvider()
	ps := partners.NewService(db, decimal.RequireFromString("10.00"))
	rec := payments.NewReconciler(db, prov, partners.NewLedger(), time.Second)
	n := &countingNotifier{}
	rec.SetNotifier(n)
	return &harness{
		db:       db,
		provider: prov,
		partners: ps,
		checkout: payments.NewService(db, prov, ps.Repo(), "ARS", time.Second),
		rec:      rec,
		notifier: n,
	}
}

func (h *harness) enroll(t *testing.T, userID string, rate string) partners.Partner {
	t.Helper()
	r := decimal.RequireFromString(rate)
	p, err := h.partners.Enroll(context.Background(), partners.EnrollInput{UserID: userID, Email: userID + "@example.com", Rate: &r})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	return p
}

func (h *harness) initiate(t *testing.T, amount, partnerID string) payments.Payment {
	t.Helper()
	ctx := context.Background()
	res, err := h.checkout.Initiate(ctx, payments.InitiateInput{
		BuyerID:     "buyer-1",
		BuyerEmail:  "buyer@example.com",
		Amount:      decimal.RequireFromString(amount),
		Description: "Landing page",
		PartnerID:   partnerID,
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	return h.payment(t, res.PaymentID)
}

func (h *harness) payment(t *testing.T, id string) payments.Payment {
	t.Helper()
	var p payments.Payment
	if err := h.db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	return p
}

func (h *harness) partner(t *testing.T, id string) partners.Partner {
	t.Helper()
	p, err := h.partners.Repo().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load partner: %v", err)
	}
	return p
}

func (h *harness) commissionCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := h.db.Model(&partners.Commission{}).Count(&n).Error; err != nil {
		t.Fatalf("count commissions: %v", err)
	}
	return n
}

func notify(id string) payments.Notification {
	return payments.Notification{Type: payments.NotificationTypePayment, DataID: id}
}
