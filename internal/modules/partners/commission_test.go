package partners

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCommissionAmount(t *testing.T) {
	cases := []struct {
		amount, rate, want string
	}{
		{"1000.00", "15", "150"},
		{"1000.00", "10.00", "100"},
		{"99.99", "12.5", "12.5"},   // 12.49875
		{"0.01", "10", "0"},         // 0.001
		{"33.33", "33.33", "11.11"}, // 11.108889
		{"250.00", "0", "0"},
		{"250.00", "100", "250"},
	}
	for _, tc := range cases {
		got := CommissionAmount(decimal.RequireFromString(tc.amount), decimal.RequireFromString(tc.rate))
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("CommissionAmount(%s, %s) = %s, want %s", tc.amount, tc.rate, got, tc.want)
		}
	}
}

func TestValidRate(t *testing.T) {
	for _, s := range []string{"0", "10", "100", "12.75"} {
		if !validRate(decimal.RequireFromString(s)) {
			t.Errorf("rate %s should be valid", s)
		}
	}
	for _, s := range []string{"-1", "100.01"} {
		if validRate(decimal.RequireFromString(s)) {
			t.Errorf("rate %s should be invalid", s)
		}
	}
}

func TestNewReferralCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewReferralCode()
		if err != nil {
			t.Fatalf("NewReferralCode: %v", err)
		}
		if !strings.HasPrefix(code, "PTN-") || len(code) != 10 {
			t.Fatalf("code = %q", code)
		}
		if code != strings.ToUpper(code) {
			t.Fatalf("code not upper case: %q", code)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Fatalf("too many collisions: %d unique of 50", len(seen))
	}
}
