// Package transport dispatches a shaped request to a provider endpoint
// over HTTP, honoring per-request cancellation and timeouts, classifying
// non-2xx responses via gwerrors, and reading usage counters off a
// successful body.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/routecodex/gateway/internal/authheader"
	"github.com/routecodex/gateway/internal/gwerrors"
	"github.com/routecodex/gateway/internal/monitoring/tracing"
)

const defaultDeadlineEnv = "ROUTECODEX_TRANSPORT_DEADLINE_SECONDS"

// Client performs outbound provider HTTP calls with a connection pool
// tuned the way the teacher tunes its Gemini upstream client.
type Client struct {
	httpClient *http.Client
	tracer     trace.Tracer
	deadline   time.Duration
}

// Option customizes Client construction.
type Option func(*Client)

// WithTracer overrides the tracer used to span outbound calls.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithDeadline overrides the default per-request deadline.
func WithDeadline(d time.Duration) Option {
	return func(c *Client) { c.deadline = d }
}

// New builds a Client with dial/TLS/header timeouts and a shared
// connection pool, matching the teacher's upstream Gemini client tuning.
func New(proxyURL string, opts ...Option) *Client {
	tr := &http.Transport{
		Proxy: proxyFunc(proxyURL),
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
	}
	c := &Client{
		httpClient: &http.Client{Transport: tr, Timeout: 0},
		tracer:     tracing.Tracer("transport"),
		deadline:   defaultDeadline(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultDeadline() time.Duration {
	if v := os.Getenv(defaultDeadlineEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 300 * time.Second
}

func proxyFunc(proxyURL string) func(*http.Request) (*url.URL, error) {
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			return http.ProxyURL(parsed)
		}
	}
	return http.ProxyFromEnvironment
}

// Usage is the token-count event read off a successful provider response.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// Result is what a successful dispatch returns.
type Result struct {
	Body             []byte
	StatusCode       int
	Headers          http.Header
	RequestID        string
	ProcessingTimeMs int64
	Model            string
	Usage            Usage
}

// Dispatch resolves the endpoint path per destination host (OpenAI's own
// host uses the chat-completions path directly; everything else gets a
// raw POST to {baseURL}/chat/completions), then performs the call bound
// to ctx — which the caller arranges to cancel on client disconnect or
// on the pipeline deadline.
func (c *Client) Dispatch(ctx context.Context, baseURL string, headers http.Header, body []byte, apiKey string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	endpoint := resolveEndpoint(baseURL)
	start := time.Now()

	spanCtx, span := c.tracer.Start(ctx, "transport.Dispatch", trace.WithAttributes(
		attribute.String("http.method", http.MethodPost),
		attribute.String("http.url", endpoint),
	))
	defer span.End()

	req, err := http.NewRequestWithContext(spanCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, c.classifyNetworkError(err, apiKey)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		span.SetStatus(codes.Error, readErr.Error())
		return nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, fmt.Sprintf("status %d", resp.StatusCode))
		return nil, c.classifyUpstreamError(resp.StatusCode, respBody, apiKey)
	}

	parsed := gjson.ParseBytes(respBody)
	result := &Result{
		Body:             respBody,
		StatusCode:       resp.StatusCode,
		Headers:          resp.Header,
		RequestID:        firstHeader(resp.Header, "X-Request-Id", "X-Request-ID"),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Model:            parsed.Get("model").String(),
		Usage:            extractUsage(parsed),
	}
	return result, nil
}

func resolveEndpoint(baseURL string) string {
	trimmed := strings.TrimRight(baseURL, "/")
	if strings.Contains(trimmed, "api.openai.com") {
		if strings.HasSuffix(trimmed, "/chat/completions") {
			return trimmed
		}
		return trimmed + "/chat/completions"
	}
	return trimmed + "/chat/completions"
}

func extractUsage(parsed gjson.Result) Usage {
	usage := parsed.Get("usage")
	prompt := usage.Get("prompt_tokens")
	if !prompt.Exists() {
		prompt = usage.Get("input_tokens")
	}
	completion := usage.Get("completion_tokens")
	if !completion.Exists() {
		completion = usage.Get("output_tokens")
	}
	total := usage.Get("total_tokens")
	u := Usage{PromptTokens: prompt.Int(), CompletionTokens: completion.Int()}
	if total.Exists() {
		u.TotalTokens = total.Int()
	} else {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

func firstHeader(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) classifyNetworkError(err error, apiKey string) error {
	code := netErrCode(err)
	classification := gwerrors.Classify(gwerrors.UpstreamError{Message: err.Error(), NetErrCode: code})
	return c.toProviderError(classification, nil, apiKey, code)
}

func (c *Client) classifyUpstreamError(status int, body []byte, apiKey string) error {
	classification := gwerrors.Classify(gwerrors.UpstreamError{StatusCode: status, Body: body})
	return c.toProviderError(classification, body, apiKey, "")
}

// netErrCode classifies a transport-level Go error into the bare network
// cause codes gwerrors.FromNetErrCode understands, so a network failure
// (no upstream status at all) still maps to 502/504 instead of a bare 500.
func netErrCode(err error) string {
	if err == nil {
		return ""
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host"):
		return "ENOTFOUND"
	case strings.Contains(msg, "connection refused"):
		return "ECONNREFUSED"
	case strings.Contains(msg, "connection reset"):
		return "ECONNRESET"
	case strings.Contains(msg, "tls"):
		return "TLS"
	case strings.Contains(msg, "timeout"):
		return "ETIMEDOUT"
	}
	return ""
}

func (c *Client) toProviderError(classification gwerrors.Classification, body []byte, apiKey string, netCode string) error {
	status := classification.StatusCode
	if classification.IsNetworkTransport {
		if mapped, ok := gwerrors.FromNetErrCode(netCode); ok {
			status = mapped
		}
	}
	apiErr := gwerrors.New(status, classification.UpstreamCode, "", classification.Message).
		WithRetryable(classification.IsRecoverable)
	apiErr.IsDailyQuota = classification.IsDailyQuota
	apiErr.QuotaDelay = classification.QuotaDelay
	apiErr.HasQuotaDelay = classification.HasQuotaDelay
	apiErr.QuotaDelaySource = classification.QuotaDelaySource

	details := map[string]any{}
	if len(body) > 0 {
		var parsed any
		if json.Unmarshal(body, &parsed) == nil {
			details["upstreamBody"] = parsed
		}
	}
	if apiKey != "" {
		details["keyFingerprint"] = authheader.KeyFingerprint(apiKey)
	}
	return apiErr.WithDetails(details)
}
