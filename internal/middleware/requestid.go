// Package middleware holds the chi-compatible HTTP middleware shared by
// every edge route: request-ID tagging and panic recovery.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

type ctxKey struct{}

// RequestIDHeader is the response (and, if present, request) header
// carrying the per-request identifier.
const RequestIDHeader = "x-request-id"

// RequestID assigns a request ID (reusing one the client sent, if any),
// stores it on the request context, and always sets it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(RequestIDHeader)
		if rid == "" {
			var b [16]byte
			_, _ = rand.Read(b[:])
			rid = hex.EncodeToString(b[:])
		}
		w.Header().Set(RequestIDHeader, rid)
		ctx := context.WithValue(r.Context(), ctxKey{}, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext retrieves the request ID stashed by RequestID, or "" if the
// middleware hasn't run (e.g. in a unit test calling a handler directly).
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
