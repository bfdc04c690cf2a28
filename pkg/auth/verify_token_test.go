package auth

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerifyToken(t *testing.T) {
	before := time.Now()
	tok, err := GenerateVerifyToken(30 * time.Minute)
	require.NoError(t, err)

	parts := strings.Split(tok, ":")
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 40) // 20 bytes hex-encoded

	exp, err := strconv.ParseInt(parts[1], 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, exp, before.Add(30*time.Minute).UnixMilli())
	assert.LessOrEqual(t, exp, time.Now().Add(31*time.Minute).UnixMilli())
}

func TestCheckVerifyToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := strconv.FormatInt(now.Add(10*time.Minute).UnixMilli(), 10)
	past := strconv.FormatInt(now.Add(-time.Minute).UnixMilli(), 10)

	tests := []struct {
		name   string
		token  string
		stored string
		want   VerifyOutcome
	}{
		{"valid", "abcd:" + future, "abcd:" + future, VerifyValid},
		{"no colon", "abcdef", "abcd:" + future, VerifyMalformed},
		{"too many parts", "a:b:c", "abcd:" + future, VerifyMalformed},
		{"non-numeric expiry", "abcd:soon", "abcd:soon", VerifyMalformed},
		{"expired before match", "abcd:" + past, "abcd:" + past, VerifyExpired},
		{"mismatch", "abcd:" + future, "efgh:" + future, VerifyMismatch},
		{"nothing pending", "abcd:" + future, "", VerifyMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckVerifyToken(tt.token, tt.stored, now))
		})
	}
}
