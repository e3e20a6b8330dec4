package payments_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/softwareparlat/main/internal/modules/payments"
)

func TestValidateAmount(t *testing.T) {
	ok := []string{"0.01", "1", "1000.00", "99999999.99"}
	bad := []string{"0", "-5", "10.001", "100000000"}
	for _, s := range ok {
		if err := payments.ValidateAmount(decimal.RequireFromString(s)); err != nil {
			t.Errorf("ValidateAmount(%s) = %v", s, err)
		}
	}
	for _, s := range bad {
		if err := payments.ValidateAmount(decimal.RequireFromString(s)); !errors.Is(err, payments.ErrInvalidAmount) {
			t.Errorf("ValidateAmount(%s) = %v, want ErrInvalidAmount", s, err)
		}
	}
}

func TestInitiate(t *testing.T) {
	h := newHarness(t)
	partner := h.enroll(t, "partner-user", "15")

	res, err := h.checkout.Initiate(context.Background(), payments.InitiateInput{
		BuyerID:      "buyer-1",
		BuyerEmail:   "buyer@example.com",
		Amount:       decimal.RequireFromString("1000.00"),
		Description:  "Landing page",
		ProjectID:    "project-1",
		ReferralCode: partner.ReferralCode,
		Metadata:     map[string]any{"source": "calculator"},
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if res.PreferenceID != "pref-1" || res.RedirectURL == "" {
		t.Fatalf("res = %+v", res)
	}

	p := h.payment(t, res.PaymentID)
	if p.Status != payments.StatusPending {
		t.Errorf("status = %s, want pending", p.Status)
	}
	if p.PartnerID == nil || *p.PartnerID != partner.ID {
		t.Errorf("partner id = %v, want %s", p.PartnerID, partner.ID)
	}
	if p.ProviderPreferenceID == nil || *p.ProviderPreferenceID != "pref-1" {
		t.Errorf("preference id = %v", p.ProviderPreferenceID)
	}
	if p.Currency != "ARS" || p.Provider != "fake" {
		t.Errorf("currency/provider = %s/%s", p.Currency, p.Provider)
	}

	// the provider got the same key it will echo back as external reference
	if len(h.provider.prefs) != 1 || h.provider.prefs[0].CorrelationKey != p.CorrelationKey {
		t.Fatalf("prefs = %+v", h.provider.prefs)
	}
	got, err := h.checkout.GetByCorrelationKey(context.Background(), p.CorrelationKey)
	if err != nil || got.ID != p.ID {
		t.Fatalf("GetByCorrelationKey = %+v, %v", got, err)
	}
}

func TestInitiateRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   payments.InitiateInput
		want error
	}{
		{"zero amount", payments.InitiateInput{BuyerID: "b", Amount: decimal.Zero}, payments.ErrInvalidAmount},
		{"three decimals", payments.InitiateInput{BuyerID: "b", Amount: decimal.RequireFromString("1.005")}, payments.ErrInvalidAmount},
		{"no buyer", payments.InitiateInput{Amount: decimal.NewFromInt(5)}, payments.ErrInvalidCheckout},
		{"unknown partner", payments.InitiateInput{BuyerID: "b", Amount: decimal.NewFromInt(5), PartnerID: "ghost"}, payments.ErrInvalidCheckout},
		{"unknown referral", payments.InitiateInput{BuyerID: "b", Amount: decimal.NewFromInt(5), ReferralCode: "PTN-NOPE00"}, payments.ErrInvalidCheckout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.checkout.Initiate(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	var n int64
	h.db.Model(&payments.Payment{}).Count(&n)
	if n != 0 {
		t.Fatalf("payments = %d, want none for rejected input", n)
	}
	if len(h.provider.prefs) != 0 {
		t.Fatalf("provider called for rejected input")
	}
}

func TestInitiateProviderFailureLeavesPending(t *testing.T) {
	h := newHarness(t)
	h.provider.prefErr = fmt.Errorf("%w: status 503", payments.ErrProviderUnavailable)

	_, err := h.checkout.Initiate(context.Background(), payments.InitiateInput{
		BuyerID: "buyer-1",
		Amount:  decimal.NewFromInt(50),
	})
	if !errors.Is(err, payments.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}

	var p payments.Payment
	if err := h.db.First(&p).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Status != payments.StatusPending || p.ErrorMessage == nil || p.ProviderPreferenceID != nil {
		t.Fatalf("payment = %+v", p)
	}
	if p.Description == "" {
		t.Fatalf("default description not applied")
	}
}
