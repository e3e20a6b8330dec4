package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSignatureTolerance bounds how far ts may drift from the receiver's clock.
const DefaultSignatureTolerance = 10 * time.Minute

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleSignature   = fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
)

// VerifySignature checks the x-signature header ("ts=<ts>,v1=<hex>") against
// the manifest "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
func VerifySignature(secret, header, requestID, dataID string) error {
	ts, v1 := parseSignatureHeader(header)
	if ts == "" || v1 == "" {
		return fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}
	want, err := hex.DecodeString(v1)
	if err != nil {
		return fmt.Errorf("%w: bad hex", ErrInvalidSignature)
	}
	if !hmac.Equal(want, computeSignature(secret, manifest(dataID, requestID, ts))) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifySignatureAt is VerifySignature plus a replay window: ts (unix seconds
// or milliseconds) must be within tolerance of now. tolerance <= 0 skips the
// window.
func VerifySignatureAt(secret, header, requestID, dataID string, now time.Time, tolerance time.Duration) error {
	if err := VerifySignature(secret, header, requestID, dataID); err != nil {
		return err
	}
	if tolerance <= 0 {
		return nil
	}
	ts, _ := parseSignatureHeader(header)
	signedAt, err := parseSignatureTime(ts)
	if err != nil {
		return fmt.Errorf("%w: bad ts", ErrInvalidSignature)
	}
	drift := now.Sub(signedAt)
	if drift < 0 {
		drift = -drift
	}
	if drift > tolerance {
		return ErrStaleSignature
	}
	return nil
}

func parseSignatureTime(ts string) (time.Time, error) {
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	// Mercado Pago sends milliseconds; accept seconds too
	if n > 1e12 {
		return time.UnixMilli(n), nil
	}
	return time.Unix(n, 0), nil
}

// SignatureHeader builds an x-signature value; used by the mock webhook tool and tests.
func SignatureHeader(secret, requestID, dataID, ts string) string {
	sig := computeSignature(secret, manifest(dataID, requestID, ts))
	return "ts=" + ts + ",v1=" + hex.EncodeToString(sig)
}

func manifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		// alphanumeric ids are signed lowercased
		b.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	b.WriteString("ts:" + ts + ";")
	return b.String()
}

func computeSignature(secret, msg string) []byte {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(msg))
	return m.Sum(nil)
}

func parseSignatureHeader(h string) (ts, v1 string) {
	for _, part := range strings.Split(h, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	return ts, v1
}
