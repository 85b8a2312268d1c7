package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord429Escalation(t *testing.T) {
	s := New(nil)
	for i := 0; i < 3; i++ {
		assert.False(t, s.Record429("k1"))
	}
	assert.True(t, s.Record429("k1"))
	assert.Equal(t, 0, s.Strikes("k1"))
}

func TestResetOnSuccess(t *testing.T) {
	s := New(nil)
	s.Record429("k1")
	s.Record429("k1")
	s.Reset("k1")
	assert.Equal(t, 0, s.Strikes("k1"))
}

func TestRecord429EscalationOpensCooldown(t *testing.T) {
	s := New(nil)
	for i := 0; i < EscalationThreshold; i++ {
		s.Record429("k1")
	}
	assert.Equal(t, 0, s.Strikes("k1"))
	assert.True(t, s.IsCooling("k1"))
}

func TestForceEscalateOpensCooldown(t *testing.T) {
	s := New(nil)
	s.ForceEscalate("k1")
	assert.Equal(t, EscalationThreshold, s.Strikes("k1"))
	assert.True(t, s.IsCooling("k1"))
}

func TestResetClearsCooldown(t *testing.T) {
	s := New(nil)
	s.ForceEscalate("k1")
	s.Reset("k1")
	assert.False(t, s.IsCooling("k1"))
}

func TestBucketKeyPolicy(t *testing.T) {
	assert.Equal(t, "pk::gemini-2.5-pro", BucketKey("gemini-cli", "pk", "gemini-2.5-pro"))
	assert.Equal(t, "pk::gemini-2.5-pro", BucketKey("antigravity.pool1", "pk", "gemini-2.5-pro"))
	assert.Equal(t, "pk", BucketKey("openai", "pk", "gpt-4"))
}

func TestDetectSeries(t *testing.T) {
	s, ok := DetectSeries("claude-3-opus")
	assert.True(t, ok)
	assert.Equal(t, SeriesClaude, s)

	s, ok = DetectSeries("gemini-2.5-flash")
	assert.True(t, ok)
	assert.Equal(t, SeriesGeminiFlash, s)

	s, ok = DetectSeries("gemini-2.5-pro")
	assert.True(t, ok)
	assert.Equal(t, SeriesGeminiPro, s)

	_, ok = DetectSeries("gpt-4")
	assert.False(t, ok)
}

func TestSeriesCooldownCap(t *testing.T) {
	s := New(nil)
	s.SetSeriesCooldown(SeriesCooldownDirective{Series: SeriesClaude, CooldownMs: int64(10 * 3600 * 1000)})
	assert.True(t, s.SeriesCoolingDown(SeriesClaude))
	assert.Equal(t, int64(3*3600*1000), s.directives[SeriesClaude].CooldownMs)
}
