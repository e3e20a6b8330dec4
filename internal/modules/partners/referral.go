package partners

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

const referralPrefix = "PTN"

// NewReferralCode returns PTN-XXXXXX with six base32 characters.
func NewReferralCode() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
	return referralPrefix + "-" + strings.ToUpper(s[:6]), nil
}
