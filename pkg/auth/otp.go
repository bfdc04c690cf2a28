package auth

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

// GenerateOTP returns a 6-digit one-time code in [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// CheckOTP reports whether code matches the most recently issued OTP and the
// issuance is still within window. Expiry is enforced here against the
// recorded issuedAt rather than by a deferred clear, so it survives restarts.
func CheckOTP(code, stored string, issuedAt, now time.Time, window time.Duration) bool {
	if stored == "" || code != stored {
		return false
	}
	if issuedAt.IsZero() {
		return false
	}
	return now.Sub(issuedAt) <= window
}
