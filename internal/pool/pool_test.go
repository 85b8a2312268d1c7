package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/routecodex/gateway/internal/ratelimit"
)

func candidates() []Candidate {
	return []Candidate{
		{ProviderKey: "a_pool1", ProviderID: "openai", Model: "gpt-4", Vendor: "a"},
		{ProviderKey: "b_pool1", ProviderID: "openai", Model: "gpt-4", Vendor: "b"},
		{ProviderKey: "a_pool2", ProviderID: "openai", Model: "gpt-4", Vendor: "a"},
	}
}

func TestPickRoundRobinsAcrossCalls(t *testing.T) {
	p := New("default", candidates())
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		c, _, ok := p.Pick(nil, "")
		assert.True(t, ok)
		seen[c.ProviderKey] = true
	}
	assert.Len(t, seen, 3)
}

func TestPickSkipsCoolingCandidate(t *testing.T) {
	p := New("default", candidates())
	rl := ratelimit.New(nil)
	key := ratelimit.BucketKey("openai", "a_pool1", "gpt-4")
	for i := 0; i < ratelimit.EscalationThreshold; i++ {
		rl.Record429(key)
	}

	for i := 0; i < 6; i++ {
		c, _, ok := p.Pick(rl, "")
		assert.True(t, ok)
		assert.NotEqual(t, "a_pool1", c.ProviderKey)
	}
}

func TestPickFallsBackToLeastCoolingWhenAllCooling(t *testing.T) {
	p := New("default", candidates())
	rl := ratelimit.New(nil)
	for _, c := range candidates() {
		key := ratelimit.BucketKey(c.ProviderID, c.ProviderKey, c.Model)
		for i := 0; i < ratelimit.EscalationThreshold; i++ {
			rl.Record429(key)
		}
	}
	c, idx, ok := p.Pick(rl, "")
	assert.True(t, ok)
	assert.GreaterOrEqual(t, idx, 0)
	assert.NotEmpty(t, c.ProviderKey)
}

func TestPickHonorsVendorPin(t *testing.T) {
	p := New("default", candidates())
	for i := 0; i < 6; i++ {
		c, _, ok := p.Pick(nil, "b")
		assert.True(t, ok)
		assert.Equal(t, "b", c.Vendor)
	}
}

func TestPickEmptyPool(t *testing.T) {
	p := New("empty", nil)
	_, _, ok := p.Pick(nil, "")
	assert.False(t, ok)
}

func TestVendorOfSplitsOnFirstUnderscore(t *testing.T) {
	assert.Equal(t, "a", VendorOf("a_pool1"))
	assert.Equal(t, "openai", VendorOf("openai"))
}
