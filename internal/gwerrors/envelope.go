package gwerrors

import "net/http"

// typeForStatus derives an OpenAI-style error type from an HTTP status when
// no internal code is known.
func typeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestTimeout:
		return "request_timeout"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusTooManyRequests:
		return "rate_limit_exceeded"
	default:
		if status >= 500 {
			return "server_error"
		}
		return "internal_error"
	}
}

// FromNetErrCode maps a bare network cause code to an HTTP status when no
// upstream status is available.
func FromNetErrCode(code string) (int, bool) {
	switch code {
	case "ENOTFOUND", "ECONNREFUSED", "ECONNRESET", "TLS":
		return http.StatusBadGateway, true
	case "ETIMEDOUT", "ECONNABORTED":
		return http.StatusGatewayTimeout, true
	}
	return 0, false
}

// BuildErrorPayload renders the OpenAI-style client-facing JSON error
// body, redacting secrets — callers must ensure `details` never carries
// raw API keys (only the sha256 fingerprint, see authheader).
func BuildErrorPayload(err *APIError, requestID string) map[string]any {
	errType := err.Type
	if errType == "" {
		errType = typeForStatus(err.HTTPStatus)
	}
	details := map[string]any{}
	for k, v := range err.Details {
		details[k] = v
	}
	details["requestId"] = requestID

	return map[string]any{
		"error": map[string]any{
			"message": err.Message,
			"type":    errType,
			"code":    err.Code,
			"param":   nil,
			"details": details,
		},
	}
}

// BuildAnthropicErrorPayload renders the Anthropic-style error envelope.
func BuildAnthropicErrorPayload(err *APIError) map[string]any {
	errType := err.Type
	if errType == "" {
		errType = "api_error"
	}
	return map[string]any{
		"type": "error",
		"error": map[string]any{
			"type":    errType,
			"message": err.Message,
		},
	}
}
