package gwerrors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"2m30s", 150 * time.Second, true},
		{"45", 45 * time.Second, true},
		{"", 0, false},
		{"invalid", 0, false},
		{"4h", 4 * time.Hour, true},
		{"500ms", 500 * time.Millisecond, true},
	}
	for _, tc := range cases {
		got, ok := ParseDuration(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.in)
		}
	}
}

func TestClassifyQuotaResetDelay(t *testing.T) {
	body := []byte(`{"error":{"message":"quota exhausted","details":[{"quotaResetDelay":"2m30s"}]}}`)
	c := Classify(UpstreamError{StatusCode: 429, Body: body, Message: "HTTP 429"})
	require.True(t, c.IsRateLimit)
	require.True(t, c.HasQuotaDelay)
	assert.Equal(t, 150*time.Second, c.QuotaDelay)
	assert.Equal(t, "quota_reset_delay", c.QuotaDelaySource)
}

func TestClassifyDailyQuotaExceptsCapacity(t *testing.T) {
	c := Classify(UpstreamError{StatusCode: 429, Message: "no capacity available right now"})
	assert.False(t, c.IsDailyQuota)
	assert.True(t, c.HasQuotaDelay)
	assert.Equal(t, 30*time.Second, c.QuotaDelay)
	assert.Equal(t, "capacity_exhausted_fallback", c.QuotaDelaySource)
}

func TestClassifyDailyQuotaDetected(t *testing.T) {
	c := Classify(UpstreamError{StatusCode: 429, Message: "Daily quota exceeded for this key"})
	assert.True(t, c.IsDailyQuota)
	assert.True(t, c.AffectsHealth)
	assert.Equal(t, "quota_exhausted_fallback", c.QuotaDelaySource)
}

func TestClassifyRecoverablePool(t *testing.T) {
	assert.True(t, Classify(UpstreamError{StatusCode: 400}).IsRecoverable)
	assert.True(t, Classify(UpstreamError{StatusCode: 429}).IsRecoverable)
	assert.False(t, Classify(UpstreamError{StatusCode: 401}).IsRecoverable)
	assert.False(t, Classify(UpstreamError{StatusCode: 500}).IsRecoverable)
	assert.True(t, Classify(UpstreamError{NetErrCode: "ECONNRESET", StatusCode: 0, Message: "dial tcp: connection reset"}).IsRecoverable)
}

func TestClassifyStatusFromMessage(t *testing.T) {
	c := Classify(UpstreamError{Message: "upstream failed: HTTP 503 Service Unavailable"})
	assert.Equal(t, 503, c.StatusCode)
}
