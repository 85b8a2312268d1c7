package router

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
)

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// setCommonHeaders stamps the response headers every handler sets
// regardless of outcome: the request ID (already set by the requestid
// middleware, repeated here defensively for direct unit-test calls) and
// a best-effort worker PID for operators correlating logs across
// replicas.
func setCommonHeaders(w http.ResponseWriter, requestID string) {
	if requestID != "" {
		w.Header().Set("x-request-id", requestID)
	}
	w.Header().Set("x-worker-pid", strconv.Itoa(os.Getpid()))
}
