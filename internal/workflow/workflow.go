package workflow

import (
	"context"
	"io"
)

// Capability describes what a chosen (providerKey, model) pipeline can
// answer with.
type Capability struct {
	SupportsStream    bool
	SupportsNonStream bool
}

// Outcome is what a request produced: exactly one of Message, Stream, or
// Chunks is set, depending on which coercion path ran.
type Outcome struct {
	Message []byte       // complete response: non-stream passthrough or a collected stream
	Stream  io.Reader    // raw provider stream, forwarded to the client as-is
	Chunks  []ChunkEvent // synthesized single-block stream
}

// Dispatcher performs the actual provider call for each of the two
// shapes; Run invokes only the one(s) the chosen Decision needs.
type Dispatcher struct {
	DispatchNonStream func(ctx context.Context) ([]byte, error)
	DispatchStream    func(ctx context.Context) (io.Reader, error)
}

// Run executes the coercion state machine for one request.
func Run(ctx context.Context, model string, clientWantsStream bool, caps Capability, d Dispatcher) (*Outcome, error) {
	switch Decide(clientWantsStream, caps.SupportsStream, caps.SupportsNonStream) {
	case SynthesizeStream:
		body, err := d.DispatchNonStream(ctx)
		if err != nil {
			return nil, err
		}
		chunks, err := SynthesizeStream(model, body)
		if err != nil {
			return nil, err
		}
		return &Outcome{Chunks: chunks}, nil

	case CollectStream:
		reader, err := d.DispatchStream(ctx)
		if err != nil {
			return nil, err
		}
		body, err := CollectStream(ctx, model, reader)
		if err != nil {
			return nil, err
		}
		return &Outcome{Message: body}, nil

	default:
		if clientWantsStream {
			reader, err := d.DispatchStream(ctx)
			if err != nil {
				return nil, err
			}
			return &Outcome{Stream: reader}, nil
		}
		body, err := d.DispatchNonStream(ctx)
		if err != nil {
			return nil, err
		}
		return &Outcome{Message: body}, nil
	}
}
