package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestCheckOTP(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 5 * time.Minute

	assert.True(t, CheckOTP("123456", "123456", now.Add(-time.Minute), now, window))
	assert.True(t, CheckOTP("123456", "123456", now.Add(-window), now, window))

	// expired even though numerically equal
	assert.False(t, CheckOTP("123456", "123456", now.Add(-window-time.Second), now, window))

	assert.False(t, CheckOTP("123456", "654321", now, now, window))
	assert.False(t, CheckOTP("123456", "", now, now, window))
	assert.False(t, CheckOTP("123456", "123456", time.Time{}, now, window))
}
