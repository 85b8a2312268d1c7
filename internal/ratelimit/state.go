// Package ratelimit tracks per-bucket consecutive-429 counters with
// escalation, and series-cooldown directives for the Gemini-CLI provider
// family.
package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// EscalationThreshold is the number of consecutive 429s that escalates a
// bucket to fatal.
const EscalationThreshold = 4

// escalationCooldown is how long a bucket that just escalated to fatal
// (four-in-a-row or a confirmed daily-quota 429) is skipped by C12 before
// Pick considers it eligible again.
const escalationCooldown = 60 * time.Second

// Series identifies a model family a cooldown directive applies to.
type Series string

const (
	SeriesClaude      Series = "claude"
	SeriesGeminiPro   Series = "gemini-pro"
	SeriesGeminiFlash Series = "gemini-flash"
)

// DirectiveSource names what produced a SeriesCooldownDirective.
type DirectiveSource string

const (
	SourceQuotaResetDelay       DirectiveSource = "quota_reset_delay"
	SourceQuotaExhaustedFallback DirectiveSource = "quota_exhausted_fallback"
	SourceCapacityExhaustedFallback DirectiveSource = "capacity_exhausted_fallback"
)

// SeriesCooldownDirective tells C12 to skip every pipeline in a model
// series for a bounded duration.
type SeriesCooldownDirective struct {
	Scope       string
	ProviderID  string
	ProviderKey string
	Model       string
	Series      Series
	CooldownMs  int64
	Source      DirectiveSource
	ExpiresAt   time.Time
}

type bucket struct {
	consecutive429 int
	cooldownUntil  time.Time
}

// State holds the process-global rate-limit/cooldown state — one
// critical section per bucket.
type State struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	directivesMu sync.RWMutex
	directives   map[Series]SeriesCooldownDirective

	escalations prometheus.Counter

	// escalationLog throttles escalation metric increments to one per
	// second, shared across all buckets, so a 429 burst doesn't amplify it.
	escalationLog *rate.Limiter
}

// New constructs an empty State. Pass a Prometheus counter (or nil) to
// track escalation events.
func New(escalations prometheus.Counter) *State {
	return &State{
		buckets:       make(map[string]*bucket),
		directives:    make(map[Series]SeriesCooldownDirective),
		escalations:   escalations,
		escalationLog: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// geminiCLIFamilyIDs is the provider-id prefix set driving the bucket-key
// policy: Gemini-CLI family providers key by (providerKey, model).
var geminiCLIFamilyIDs = map[string]bool{"antigravity": true, "gemini-cli": true}

// IsGeminiCLIFamily reports whether a providerId belongs to the Gemini-CLI
// family (dotted variants like "gemini-cli.pool1" count too).
func IsGeminiCLIFamily(providerID string) bool {
	head := providerID
	if i := strings.IndexByte(providerID, '.'); i >= 0 {
		head = providerID[:i]
	}
	return geminiCLIFamilyIDs[head]
}

// BucketKey computes the rate-limit bucket key for a request.
func BucketKey(providerID, providerKey, model string) string {
	if IsGeminiCLIFamily(providerID) {
		return providerKey + "::" + model
	}
	return providerKey
}

// Record429 increments the bucket's strike counter; returns true (and
// resets the counter) iff the bucket has escalated.
func (s *State) Record429(bucketKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucketKey]
	if !ok {
		b = &bucket{}
		s.buckets[bucketKey] = b
	}
	b.consecutive429++
	if b.consecutive429 >= EscalationThreshold {
		b.consecutive429 = 0
		b.cooldownUntil = time.Now().Add(escalationCooldown)
		if s.escalations != nil && s.escalationLog.Allow() {
			s.escalations.Inc()
		}
		return true
	}
	return false
}

// ForceEscalate immediately sets a bucket's counter to the escalation
// threshold and opens its cooldown window (used on a confirmed
// daily-quota 429).
func (s *State) ForceEscalate(bucketKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucketKey]
	if !ok {
		b = &bucket{}
		s.buckets[bucketKey] = b
	}
	b.consecutive429 = EscalationThreshold
	b.cooldownUntil = time.Now().Add(escalationCooldown)
	if s.escalations != nil && s.escalationLog.Allow() {
		s.escalations.Inc()
	}
}

// Reset clears a bucket's strike counter and cooldown on any non-429
// outcome.
func (s *State) Reset(bucketKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[bucketKey]; ok {
		b.consecutive429 = 0
		b.cooldownUntil = time.Time{}
	}
}

// Strikes returns the current consecutive-429 count for a bucket.
func (s *State) Strikes(bucketKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[bucketKey]; ok {
		return b.consecutive429
	}
	return 0
}

// IsCooling reports whether a bucket is currently inside the cooldown
// window opened by its last escalation. This, not the strike count
// (which Record429 resets to 0 on the very escalation that sets it), is
// the source of truth Pick consults to skip an unhealthy bucket.
func (s *State) IsCooling(bucketKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucketKey]
	if !ok {
		return false
	}
	return time.Now().Before(b.cooldownUntil)
}

// SetSeriesCooldown records (or refreshes) a series-wide cooldown
// directive, capped at 3h.
func (s *State) SetSeriesCooldown(d SeriesCooldownDirective) {
	if d.CooldownMs <= 0 {
		return
	}
	maxMs := int64(3 * time.Hour / time.Millisecond)
	if d.CooldownMs > maxMs {
		d.CooldownMs = maxMs
	}
	d.ExpiresAt = time.Now().Add(time.Duration(d.CooldownMs) * time.Millisecond)
	s.directivesMu.Lock()
	s.directives[d.Series] = d
	s.directivesMu.Unlock()
}

// SeriesCoolingDown reports whether a model series is currently under an
// active cooldown directive.
func (s *State) SeriesCoolingDown(series Series) bool {
	s.directivesMu.RLock()
	d, ok := s.directives[series]
	s.directivesMu.RUnlock()
	if !ok {
		return false
	}
	return time.Now().Before(d.ExpiresAt)
}

// DetectSeries matches a model name against the series keyword rules
// ("claude|opus", "flash", "gemini|pro").
func DetectSeries(model string) (Series, bool) {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "claude") || strings.Contains(lower, "opus"):
		return SeriesClaude, true
	case strings.Contains(lower, "flash"):
		return SeriesGeminiFlash, true
	case strings.Contains(lower, "gemini") || strings.Contains(lower, "pro"):
		return SeriesGeminiPro, true
	default:
		return "", false
	}
}
