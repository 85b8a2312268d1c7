package router

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/routecodex/gateway/internal/classifier"
	"github.com/routecodex/gateway/internal/gwerrors"
	"github.com/routecodex/gateway/internal/logging"
	"github.com/routecodex/gateway/internal/metrics"
	"github.com/routecodex/gateway/internal/middleware"
	"github.com/routecodex/gateway/internal/pipeline"
	"github.com/routecodex/gateway/internal/pool"
	"github.com/routecodex/gateway/internal/ratelimit"
	"github.com/routecodex/gateway/internal/sink"
	"github.com/routecodex/gateway/internal/sse"
	"github.com/routecodex/gateway/internal/workflow"
)

const upstreamAuthHeaderA = "x-rcc-upstream-authorization"
const upstreamAuthHeaderB = "x-rc-upstream-authorization"

func (rt *Router) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	rt.dispatch(w, r, "openai", gwerrors.FormatOpenAI, true, true)
}

func (rt *Router) handleCompletions(w http.ResponseWriter, r *http.Request) {
	rt.dispatch(w, r, "openai", gwerrors.FormatOpenAI, false, false)
}

func (rt *Router) handleMessages(w http.ResponseWriter, r *http.Request) {
	rt.dispatch(w, r, "anthropic", gwerrors.FormatAnthropic, true, true)
}

// dispatch is the shared body of every completion-shaped handler:
// classify, pick, run the pipeline, then serialize the outcome. format
// selects the error/SSE envelope flavor; allowStream is false for the
// legacy completions surface, which never streams regardless of what
// the client asked for; requireMessages is false for that same surface,
// which keys its input off "prompt" instead.
func (rt *Router) dispatch(w http.ResponseWriter, r *http.Request, protocol string, format gwerrors.ErrorFormat, allowStream, requireMessages bool) {
	requestID := middleware.FromContext(r.Context())
	setCommonHeaders(w, requestID)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, gwerrors.New(http.StatusBadRequest, "invalid_request", "", "could not read request body"), format, requestID)
		return
	}
	if err := validateCompletionShape(body, requireMessages); err != nil {
		writeJSONError(w, gwerrors.New(http.StatusBadRequest, "invalid_request", "", err.Error()), format, requestID)
		return
	}

	stream := allowStream && gjson.GetBytes(body, "stream").Bool()
	signals := classifier.ExtractSignals(r.URL.Path, protocol, body)
	routeName := classifier.Classify(rt.cfg.Rules, signals)

	route, ok := rt.cfg.Routes[routeName]
	if !ok || route.Pool == nil || route.Pool.Len() == 0 {
		writeJSONError(w, gwerrors.New(http.StatusServiceUnavailable, "no_route", "", "no provider pool configured for route \""+routeName+"\""), format, requestID)
		return
	}

	candidate, _, ok := route.Pool.Pick(rt.cfg.Cooldowns, pool.VendorPinFromHeaders(r.Header))
	if !ok {
		writeJSONError(w, gwerrors.New(http.StatusServiceUnavailable, "pool_exhausted", "", "every provider in route \""+routeName+"\" is cooling down"), format, requestID)
		return
	}

	pl, ok := route.Pipelines[candidate.ProviderKey]
	if !ok {
		writeJSONError(w, gwerrors.New(http.StatusInternalServerError, "pipeline_missing", "", "no pipeline wired for provider key \""+candidate.ProviderKey+"\""), format, requestID)
		return
	}

	cred, err := rt.resolveCredential(r, candidate.ProviderKey)
	if err != nil {
		writeJSONError(w, err, format, requestID)
		return
	}

	bucketKey := ratelimit.BucketKey(candidate.ProviderID, candidate.ProviderKey, candidate.Model)
	cooling := "false"
	if rt.cfg.Cooldowns.Strikes(bucketKey) > 0 {
		cooling = "true"
	}
	metrics.PoolPicksTotal.WithLabelValues(routeName, cooling).Inc()

	ctx, cancel := context.WithTimeout(r.Context(), rt.cfg.PipelineTimeout)
	defer cancel()

	started := time.Now()
	outcome, err := pl.Execute(ctx, pipeline.Request{
		RawJSON:   body,
		Stream:    stream,
		Cred:      cred,
		RequestID: requestID,
		RouteName: routeName,
	})
	elapsed := time.Since(started)

	metrics.UpstreamRequestDuration.WithLabelValues(candidate.ProviderKey).Observe(elapsed.Seconds())
	metrics.HTTPRequestDuration.WithLabelValues(routeName).Observe(elapsed.Seconds())

	if err != nil {
		rt.recordFailure(r.Context(), bucketKey, routeName, candidate, requestID, err)
		status := statusOf(err)
		metrics.UpstreamRequestsTotal.WithLabelValues(candidate.ProviderKey, metrics.StatusClass(status)).Inc()
		metrics.HTTPRequestsTotal.WithLabelValues(routeName, metrics.StatusClass(status)).Inc()
		writeJSONError(w, err, format, requestID)
		return
	}

	rt.cfg.Cooldowns.Reset(bucketKey)
	metrics.UpstreamRequestsTotal.WithLabelValues(candidate.ProviderKey, "2xx").Inc()
	metrics.HTTPRequestsTotal.WithLabelValues(routeName, "2xx").Inc()
	rt.publish(r.Context(), sink.TopicRequestCompleted, requestID, routeName, candidate, nil)

	rt.writeOutcome(w, outcome, candidate.Model, format)
}

func (rt *Router) writeOutcome(w http.ResponseWriter, outcome *workflow.Outcome, model string, format gwerrors.ErrorFormat) {
	switch {
	case outcome.Message != nil:
		writeRaw(w, http.StatusOK, outcome.Message)

	case outcome.Chunks != nil:
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSONError(w, gwerrors.New(http.StatusInternalServerError, "streaming_unsupported", "", "response writer does not support flushing"), format, "")
			return
		}
		sse.SetHeaders(w.Header())
		w.WriteHeader(http.StatusOK)
		opts := sse.DefaultOptions()
		var streamErr error
		if format == gwerrors.FormatAnthropic {
			streamErr = sse.StreamAnthropic(w, flusher, model, outcome.Chunks, opts)
		} else {
			streamErr = sse.StreamChunks(w, flusher, model, outcome.Chunks, opts)
		}
		if streamErr != nil {
			logging.WithReq(nil, "", nil).WithError(streamErr).Warn("sse stream ended with an error after headers were written")
		}

	case outcome.Stream != nil:
		writeJSONError(w, gwerrors.New(http.StatusNotImplemented, "raw_stream_unsupported", "", "raw provider stream passthrough is not wired yet"), format, "")

	default:
		writeJSONError(w, gwerrors.New(http.StatusInternalServerError, "empty_outcome", "", "pipeline produced neither a message nor a stream"), format, "")
	}
}

func (rt *Router) resolveCredential(r *http.Request, providerKey string) (pipeline.Credential, error) {
	cred, err := rt.cfg.Credentials.Resolve(providerKey)
	if err != nil {
		return pipeline.Credential{}, gwerrors.New(http.StatusUnauthorized, "credential_unavailable", "", err.Error())
	}

	if override, ok := upstreamOverride(r, rt.cfg.AllowUpstreamOverride); ok {
		cred.APIKey = override
	}
	return cred, nil
}

// upstreamOverride returns the client-supplied upstream Authorization
// value, if any, and whether it should be honored. The raw client
// "Authorization" header is only ever honored when allowUpstreamOverride
// is set process-wide; the two x-rc(c)-upstream-authorization headers are
// an explicit per-request opt-in regardless.
func upstreamOverride(r *http.Request, allowUpstreamOverride bool) (string, bool) {
	if v := r.Header.Get(upstreamAuthHeaderA); v != "" {
		return stripBearer(v), true
	}
	if v := r.Header.Get(upstreamAuthHeaderB); v != "" {
		return stripBearer(v), true
	}
	if allowUpstreamOverride {
		if v := r.Header.Get("Authorization"); v != "" {
			return stripBearer(v), true
		}
	}
	return "", false
}

func stripBearer(v string) string {
	if strings.HasPrefix(strings.ToLower(v), "bearer ") {
		return v[len("Bearer "):]
	}
	return v
}

func (rt *Router) recordFailure(ctx context.Context, bucketKey, routeName string, candidate pool.Candidate, requestID string, err error) {
	if apiErr, ok := err.(*gwerrors.APIError); ok && apiErr.HTTPStatus == http.StatusTooManyRequests {
		escalated := false
		if apiErr.IsDailyQuota {
			rt.cfg.Cooldowns.ForceEscalate(bucketKey)
			escalated = true
		} else if rt.cfg.Cooldowns.Record429(bucketKey) {
			escalated = true
		}
		if escalated {
			metrics.RateLimitEscalationsTotal.Inc()
			rt.publish(ctx, sink.TopicProviderCooldown, requestID, routeName, candidate, map[string]any{"bucketKey": bucketKey})
		}
		rt.recordSeriesCooldown(candidate, apiErr)
	}
	rt.publish(ctx, sink.TopicRequestFailed, requestID, routeName, candidate, map[string]any{"error": err.Error()})
}

// recordSeriesCooldown turns a classified 429 into a SeriesCooldownDirective
// when it carries a quota delay and the failing provider is part of the
// Gemini-CLI family, the only family series cooldowns apply to.
func (rt *Router) recordSeriesCooldown(candidate pool.Candidate, apiErr *gwerrors.APIError) {
	if !apiErr.HasQuotaDelay || !ratelimit.IsGeminiCLIFamily(candidate.ProviderID) {
		return
	}
	series, ok := ratelimit.DetectSeries(candidate.Model)
	if !ok {
		return
	}
	rt.cfg.Cooldowns.SetSeriesCooldown(ratelimit.SeriesCooldownDirective{
		Scope:       "model-series",
		ProviderID:  candidate.ProviderID,
		ProviderKey: candidate.ProviderKey,
		Model:       candidate.Model,
		Series:      series,
		CooldownMs:  apiErr.QuotaDelay.Milliseconds(),
		Source:      ratelimit.DirectiveSource(apiErr.QuotaDelaySource),
	})
}

func (rt *Router) publish(ctx context.Context, topic, requestID, routeName string, candidate pool.Candidate, payload map[string]any) {
	if rt.cfg.Sink == nil {
		return
	}
	rt.cfg.Sink.Publish(ctx, sink.Event{
		Topic:     topic,
		Timestamp: time.Now(),
		RequestID: requestID,
		RouteName: routeName,
		Provider:  candidate.ProviderKey,
		Model:     candidate.Model,
		Payload:   payload,
	})
}

func statusOf(err error) int {
	if apiErr, ok := err.(*gwerrors.APIError); ok {
		return apiErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
