// Package gwerrors implements the upstream error classifier and the
// client-facing error envelope shared by every protocol surface.
package gwerrors

import "time"

// ErrorFormat selects the client-facing envelope shape.
type ErrorFormat string

const (
	FormatOpenAI    ErrorFormat = "openai"
	FormatAnthropic ErrorFormat = "anthropic"
	FormatGemini    ErrorFormat = "gemini"
)

// Classification is the result of running the error classifier over an
// arbitrary upstream failure.
type Classification struct {
	Message            string
	StatusCode         int
	UpstreamCode       string
	UpstreamMessage    string
	IsRateLimit        bool
	IsRecoverable      bool
	AffectsHealth      bool
	IsNetworkTransport bool
	IsDailyQuota       bool
	QuotaDelay         time.Duration
	HasQuotaDelay      bool
	// QuotaDelaySource names what produced QuotaDelay: "quota_reset_delay"
	// when parsed straight off the upstream body, "capacity_exhausted_fallback"
	// or "quota_exhausted_fallback" when derived from the env-configured
	// default instead. Mirrors ratelimit.DirectiveSource without importing
	// it, since gwerrors stays a leaf package.
	QuotaDelaySource string
}

// APIError is the normalized error raised by any pipeline stage.
type APIError struct {
	HTTPStatus int
	Code       string
	Type       string
	Message    string
	Retryable  bool
	Details    map[string]any

	// IsDailyQuota, QuotaDelay, HasQuotaDelay and QuotaDelaySource carry
	// the rate-limit classifier's quota signal through to the router's
	// cooldown bookkeeping (ratelimit.ForceEscalate / SetSeriesCooldown),
	// which has no other way to see the classification that produced
	// this error.
	IsDailyQuota     bool
	QuotaDelay       time.Duration
	HasQuotaDelay    bool
	QuotaDelaySource string
}

func (e *APIError) Error() string { return e.Message }

// New constructs an APIError.
func New(httpStatus int, code, errType, message string) *APIError {
	return &APIError{HTTPStatus: httpStatus, Code: code, Type: errType, Message: message}
}

// WithDetails attaches structured details (upstream body, network cause, …).
func (e *APIError) WithDetails(details map[string]any) *APIError {
	e.Details = details
	return e
}

// WithRetryable marks the error explicitly retryable/non-retryable.
func (e *APIError) WithRetryable(retryable bool) *APIError {
	e.Retryable = retryable
	return e
}
