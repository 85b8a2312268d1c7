package gwerrors

import (
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// recoverableNonNetwork are the bare HTTP statuses the classifier treats
// as recoverable regardless of network-transport signals.
var recoverableNonNetwork = map[int]bool{400: true, 429: true}

var networkTransportCodes = map[string]bool{
	"ECONNRESET": true, "ECONNREFUSED": true, "EHOSTUNREACH": true,
	"ENOTFOUND": true, "EAI_AGAIN": true, "EPIPE": true,
	"ETIMEDOUT": true, "ECONNABORTED": true,
}

var networkTransportHints = []string{
	"fetch failed", "socket hang up", "tls handshake timeout",
	"connection reset", "connection refused", "no such host",
	"i/o timeout", "broken pipe",
}

var dailyQuotaHaystackHints = []string{
	"daily cost limit", "daily quota", "quota has been exhausted",
	"quota exceeded", "resource has been exhausted", "resource_exhausted",
	"余额不足", "无可用资源包",
}

const capacityExhaustedHint = "no capacity available"
const capacityExhaustedCode = "model_capacity_exhausted"

var statusFromMessageRe = regexp.MustCompile(`HTTP (\d{3})`)
var quotaResetDelayRe = regexp.MustCompile(`quotaResetDelay["']?\s*[:=]\s*"([^"]+)"`)
var durationTokenRe = regexp.MustCompile(`(\d+)(ms|h|m|s)`)

// UpstreamError is the minimal shape the classifier needs from an arbitrary
// upstream failure — an HTTP response body plus whatever transport-level
// error (if any) preceded it.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	Message    string
	NetErrCode string // e.g. ECONNRESET, populated by the transport layer
}

// Classify normalizes an arbitrary upstream failure into a Classification:
// HTTP status, network-transport detection, rate-limit/daily-quota
// detection, and an optional quota-reset delay extracted from the
// response body or message.
func Classify(u UpstreamError) Classification {
	c := Classification{Message: u.Message}

	c.StatusCode = resolveStatus(u)
	body := gjson.ParseBytes(u.Body)
	c.UpstreamCode = body.Get("error.code").String()
	c.UpstreamMessage = body.Get("error.message").String()
	if c.UpstreamMessage == "" {
		c.UpstreamMessage = body.Get("error.error.message").String()
	}

	c.IsNetworkTransport = isNetworkTransport(u)
	c.IsRecoverable = recoverableNonNetwork[c.StatusCode] || c.IsNetworkTransport
	c.IsRateLimit = c.StatusCode == 429 || strings.Contains(u.Message, "429")

	haystack := strings.ToLower(u.Message + " " + c.UpstreamMessage)
	c.IsDailyQuota = false
	if !strings.Contains(haystack, capacityExhaustedHint) && c.UpstreamCode != capacityExhaustedCode {
		for _, hint := range dailyQuotaHaystackHints {
			if strings.Contains(haystack, hint) {
				c.IsDailyQuota = true
				break
			}
		}
	}

	if d, ok := extractQuotaDelay(u, body); ok {
		c.QuotaDelay = d
		c.HasQuotaDelay = true
		c.QuotaDelaySource = "quota_reset_delay"
	} else if c.IsRateLimit {
		if strings.Contains(haystack, capacityExhaustedHint) || c.UpstreamCode == capacityExhaustedCode {
			c.QuotaDelay = envDuration("ROUTECODEX_RL_CAPACITY_COOLDOWN", 30*time.Second)
			c.HasQuotaDelay = true
			c.QuotaDelaySource = "capacity_exhausted_fallback"
		} else if c.IsDailyQuota {
			c.QuotaDelay = envDuration("ROUTECODEX_RL_DEFAULT_QUOTA_COOLDOWN", 5*time.Minute)
			c.HasQuotaDelay = true
			c.QuotaDelaySource = "quota_exhausted_fallback"
		}
	}
	if c.HasQuotaDelay && c.QuotaDelay > 3*time.Hour {
		c.QuotaDelay = 3 * time.Hour
	}

	c.AffectsHealth = !c.IsRecoverable || (c.IsRateLimit && c.IsDailyQuota)
	return c
}

func resolveStatus(u UpstreamError) int {
	if u.StatusCode > 0 {
		return u.StatusCode
	}
	if m := statusFromMessageRe.FindStringSubmatch(u.Message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return http.StatusInternalServerError
}

func isNetworkTransport(u UpstreamError) bool {
	if u.NetErrCode != "" && networkTransportCodes[u.NetErrCode] {
		return true
	}
	lower := strings.ToLower(u.Message)
	for _, hint := range networkTransportHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func extractQuotaDelay(u UpstreamError, body gjson.Result) (time.Duration, bool) {
	candidates := []string{
		body.Get("error.details.0.quotaResetDelay").String(),
		body.Get("error.metadata.quotaResetDelay").String(),
		body.Get("quotaResetDelay").String(),
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if d, ok := ParseDuration(c); ok {
			return d, true
		}
	}
	if ts := body.Get("error.details.0.quotaResetTimeStamp").String(); ts != "" {
		if tsUnix, err := strconv.ParseInt(ts, 10, 64); err == nil {
			delta := time.Unix(tsUnix, 0).Sub(time.Now())
			if delta > 0 {
				return delta, true
			}
		}
	}
	if m := quotaResetDelayRe.FindStringSubmatch(u.Message + " " + string(u.Body)); m != nil {
		if d, ok := ParseDuration(m[1]); ok {
			return d, true
		}
	}
	return 0, false
}

// ParseDuration parses strings like "45s", "2m30s", "4h", or a bare number
// of seconds ("45"). Returns (0, false) for "" or unparsable input. The
// caller is responsible for capping the result for cooldown use.
func ParseDuration(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, true
	}
	matches := durationTokenRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, false
	}
	var total time.Duration
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		switch m[2] {
		case "h":
			total += time.Duration(n) * time.Hour
		case "m":
			total += time.Duration(n) * time.Minute
		case "s":
			total += time.Duration(n) * time.Second
		case "ms":
			total += time.Duration(n) * time.Millisecond
		}
	}
	return total, true
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, ok := ParseDuration(v); ok {
		return d
	}
	return def
}
