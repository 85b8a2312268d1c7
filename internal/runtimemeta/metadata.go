// Package runtimemeta carries the RuntimeMetadata envelope through the
// pipeline without letting components hold references to each other.
package runtimemeta

import "context"

// Target identifies the concrete (providerKey, model) selected for a
// request.
type Target struct {
	ProviderKey string
	Model       string
	RouteName   string
	RequestID   string
}

// ClientInfo preserves session/conversation identifiers and headers the
// client sent, used to derive deterministic identity headers downstream.
type ClientInfo struct {
	SessionID       string
	ConversationID  string
	ClientRequestID string
	ClientHeaders   map[string]string
}

// Metadata is the per-request envelope threaded through every pipeline
// stage via the request context.
type Metadata struct {
	RequestID    string
	ProviderType string
	ProviderID   string
	ProviderKey  string
	RouteName    string
	Target       Target
	Streaming    bool
	Client       ClientInfo
}

type ctxKey struct{}

// Attach stores metadata on a context as a side-channel — it is never
// duplicated into the serialized upstream payload.
func Attach(ctx context.Context, md *Metadata) context.Context {
	return context.WithValue(ctx, ctxKey{}, md)
}

// Extract retrieves metadata attached earlier in the pipeline, if any.
func Extract(ctx context.Context) (*Metadata, bool) {
	md, ok := ctx.Value(ctxKey{}).(*Metadata)
	return md, ok
}
