package auth

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// VerifyOutcome is the result of checking an email verification token.
type VerifyOutcome int

const (
	VerifyValid VerifyOutcome = iota
	VerifyMalformed
	VerifyExpired
	VerifyMismatch
)

func (o VerifyOutcome) String() string {
	switch o {
	case VerifyValid:
		return "valid"
	case VerifyMalformed:
		return "malformed"
	case VerifyExpired:
		return "expired"
	case VerifyMismatch:
		return "mismatch"
	}
	return "unknown"
}

// GenerateVerifyToken produces a single-use email verification token:
// 20 random bytes hex-encoded, a colon, and the absolute expiry in epoch
// milliseconds. The token is stored verbatim on the account until consumed.
func GenerateVerifyToken(ttl time.Duration) (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	exp := time.Now().Add(ttl).UnixMilli()
	return hex.EncodeToString(b) + ":" + strconv.FormatInt(exp, 10), nil
}

// CheckVerifyToken validates a submitted token against the token currently
// stored on the account. Expiry is embedded in the token itself and is
// checked before the match against storage, so an expired token is rejected
// even when it equals the stored value.
func CheckVerifyToken(token, stored string, now time.Time) VerifyOutcome {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return VerifyMalformed
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return VerifyMalformed
	}
	if now.UnixMilli() > exp {
		return VerifyExpired
	}
	if stored == "" || token != stored {
		return VerifyMismatch
	}
	return VerifyValid
}
