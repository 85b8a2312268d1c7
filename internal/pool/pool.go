// Package pool implements the per-route round-robin pipeline scheduler:
// a monotonic pointer over a fixed pool of pipelines, skipping whichever
// are under an active cooldown, with an optional per-request vendor pin.
package pool

import (
	"strings"
	"sync/atomic"

	"github.com/sony/gobreaker"

	"github.com/routecodex/gateway/internal/ratelimit"
)

// Candidate is one pipeline eligible for a route, as seen by the picker.
type Candidate struct {
	ProviderKey string
	ProviderID  string
	Model       string
	Vendor      string
}

// Pool is the fixed, immutable-after-boot set of candidates for one route
// name, plus the mutable RR pointer and per-candidate circuit breakers.
type Pool struct {
	routeName  string
	candidates []Candidate
	idx        uint64
	breakers   []*gobreaker.CircuitBreaker
}

// New builds a Pool for a route name over a fixed candidate list. Order is
// preserved; the RR pointer walks it starting at index 0. One circuit
// breaker is created per candidate, named after its provider key.
func New(routeName string, candidates []Candidate) *Pool {
	breakers := make([]*gobreaker.CircuitBreaker, len(candidates))
	for i, c := range candidates {
		breakers[i] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: c.ProviderKey,
		})
	}
	return &Pool{routeName: routeName, candidates: candidates, breakers: breakers}
}

// RouteName returns the route name this pool was built for.
func (p *Pool) RouteName() string { return p.routeName }

// Len returns the number of candidates in the pool.
func (p *Pool) Len() int { return len(p.candidates) }

// Breaker returns the circuit breaker for the candidate at index i.
func (p *Pool) Breaker(i int) *gobreaker.CircuitBreaker { return p.breakers[i] }

// Pick selects the next eligible candidate: it advances the RR pointer by
// up to Len() steps, skipping any candidate under an active cooldown per
// cooldowns.BucketKey/SeriesCoolingDown. vendorPin, if non-empty, restricts
// selection to the first pool entry whose Vendor matches it (scanned in RR
// order, still respecting cooldown skip).
//
// If every candidate is cooling, Pick returns the least-cooling one (the
// lowest coolingScore, the earliest in RR order on a tie) so
// the caller can let the dispatch fail through and surface a 503/429.
func (p *Pool) Pick(cooldowns *ratelimit.State, vendorPin string) (Candidate, int, bool) {
	if len(p.candidates) == 0 {
		return Candidate{}, -1, false
	}

	n := len(p.candidates)
	start := atomic.AddUint64(&p.idx, 1) - 1

	leastIdx := -1
	leastStrikes := -1
	for step := uint64(0); step < uint64(n); step++ {
		i := int((start + step) % uint64(n))
		c := p.candidates[i]
		if vendorPin != "" && c.Vendor != vendorPin {
			continue
		}
		if cooldowns == nil {
			return c, i, true
		}
		strikes := coolingScore(cooldowns, c)
		if strikes == 0 {
			return c, i, true
		}
		if leastIdx == -1 || strikes < leastStrikes {
			leastIdx, leastStrikes = i, strikes
		}
	}
	if leastIdx == -1 {
		return Candidate{}, -1, false
	}
	return p.candidates[leastIdx], leastIdx, true
}

// coolingScore returns 0 when a candidate is fully eligible, or a positive
// severity (its bucket's strike count, boosted if a series cooldown also
// applies) used only to rank candidates when every one of them is cooling.
// Eligibility itself is driven by the bucket's live cooldown window
// (State.IsCooling), not its strike count — Record429 resets that counter
// to 0 on the very escalation that opens the cooldown, so a reached-zero
// strike count is not evidence a bucket is healthy.
func coolingScore(cooldowns *ratelimit.State, c Candidate) int {
	bucketKey := ratelimit.BucketKey(c.ProviderID, c.ProviderKey, c.Model)
	cooling := cooldowns.IsCooling(bucketKey)
	strikes := cooldowns.Strikes(bucketKey)
	if series, ok := ratelimit.DetectSeries(c.Model); ok && cooldowns.SeriesCoolingDown(series) {
		cooling = true
		strikes += ratelimit.EscalationThreshold
	}
	if !cooling {
		return 0
	}
	if strikes == 0 {
		strikes = ratelimit.EscalationThreshold
	}
	return strikes
}

// VendorOf extracts the vendor segment (the part before the first '_') of
// a provider composite key, matching the x-rc-provider pin semantics.
func VendorOf(providerComposite string) string {
	if i := strings.IndexByte(providerComposite, '_'); i >= 0 {
		return providerComposite[:i]
	}
	return providerComposite
}
