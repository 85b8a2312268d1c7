package router

import (
	"net/http"

	"github.com/routecodex/gateway/internal/gwerrors"
)

// mapError turns any error raised by a pipeline stage into the
// client-facing envelope, in the requested protocol's shape. Errors that
// already carry a *gwerrors.APIError (essentially everything C6 raises)
// keep their status/code/details; anything else falls back to a generic
// 500 so a handler can never leak a raw Go error string to a client.
func mapError(err error, format gwerrors.ErrorFormat, requestID string) (int, map[string]any) {
	apiErr, ok := err.(*gwerrors.APIError)
	if !ok {
		apiErr = gwerrors.New(http.StatusInternalServerError, "internal_error", "server_error", err.Error())
	}
	if apiErr.HTTPStatus == 0 {
		apiErr.HTTPStatus = http.StatusInternalServerError
	}

	if format == gwerrors.FormatAnthropic {
		return apiErr.HTTPStatus, gwerrors.BuildAnthropicErrorPayload(apiErr)
	}
	return apiErr.HTTPStatus, gwerrors.BuildErrorPayload(apiErr, requestID)
}

func writeJSONError(w http.ResponseWriter, err error, format gwerrors.ErrorFormat, requestID string) {
	status, body := mapError(err, format, requestID)
	writeJSON(w, status, body)
}

func notImplementedPayload() map[string]any {
	return map[string]any{"error": map[string]any{"type": "not_implemented", "message": "this endpoint is not implemented", "code": "not_implemented", "param": nil}}
}
