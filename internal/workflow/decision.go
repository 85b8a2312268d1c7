// Package workflow runs the per-request stream/non-stream coercion state
// machine: pass the request through unchanged when the client's streaming
// preference matches what the chosen provider offers, otherwise bridge the
// mismatch by synthesizing a single-block stream or collecting one.
package workflow

// Decision is the coercion path chosen for one request.
type Decision int

const (
	// Passthrough means client and provider agree on streaming or not;
	// no coercion needed.
	Passthrough Decision = iota
	// SynthesizeStream means the client asked to stream but the chosen
	// provider only answers non-streaming; request non-stream, then
	// synthesize a single-block stream for the client.
	SynthesizeStream
	// CollectStream means the client asked for a single response but the
	// chosen provider only answers streaming; collect its chunks into
	// one aggregated message.
	CollectStream
)

// Decide picks the coercion path for a request given what the client
// asked for and what the provider supports.
func Decide(clientWantsStream, providerSupportsStream, providerSupportsNonStream bool) Decision {
	switch {
	case clientWantsStream && !providerSupportsStream:
		return SynthesizeStream
	case !clientWantsStream && !providerSupportsNonStream:
		return CollectStream
	default:
		return Passthrough
	}
}
