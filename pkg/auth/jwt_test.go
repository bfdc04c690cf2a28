package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 24*time.Hour)

	tok, err := issuer.Issue("user-42")
	require.NoError(t, err)

	uid, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-42", uid)
}

func TestTokenIssuerRejectsTamperedSignature(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 24*time.Hour)

	tok, err := issuer.Issue("user-42")
	require.NoError(t, err)

	// flip a byte in the signature segment
	i := strings.LastIndex(tok, ".") + 1
	sig := []byte(tok[i:])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := tok[:i] + string(sig)

	_, err = issuer.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuerRejectsWrongSecret(t *testing.T) {
	tok, err := NewTokenIssuer("secret-a", time.Hour).Issue("user-42")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuerRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	tok, err := issuer.Issue("user-42")
	require.NoError(t, err)

	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuerRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	_, err := issuer.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
