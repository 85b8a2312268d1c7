package llmswitch

import (
	"sync"

	"github.com/go-faster/errors"
)

// errUnsupportedPair is wrapped with the specific format pair whenever a
// translation is requested for which neither a direct transform nor an
// OpenAI pivot is registered.
var errUnsupportedPair = errors.New("llmswitch: no transform registered for format pair")

// Registry holds the translator functions registered for each (from, to)
// format pair and pivots through OpenAI-chat when a direct pair is
// missing, since every leg this package implements has an OpenAI side.
type Registry struct {
	mu        sync.RWMutex
	requests  map[Format]map[Format]RequestTransform
	responses map[Format]map[Format]ResponseTransform
}

// NewRegistry constructs an empty translator registry.
func NewRegistry() *Registry {
	return &Registry{
		requests:  make(map[Format]map[Format]RequestTransform),
		responses: make(map[Format]map[Format]ResponseTransform),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the package-wide registry populated by this package's
// init() functions.
func Default() *Registry { return defaultRegistry }

// Register stores the request/response transforms declared for a pair.
func (r *Registry) Register(from, to Format, cfg TranslatorConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.RequestTransform != nil {
		if _, ok := r.requests[from]; !ok {
			r.requests[from] = make(map[Format]RequestTransform)
		}
		r.requests[from][to] = cfg.RequestTransform
	}
	if cfg.ResponseTransform != nil {
		if _, ok := r.responses[from]; !ok {
			r.responses[from] = make(map[Format]ResponseTransform)
		}
		r.responses[from][to] = cfg.ResponseTransform
	}
}

func (r *Registry) lookupRequest(from, to Format) (RequestTransform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.requests[from][to]
	return fn, ok
}

func (r *Registry) lookupResponse(from, to Format) (ResponseTransform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.responses[from][to]
	return fn, ok
}

// TranslateRequest reshapes a client-shaped request body into the shape
// the chosen provider protocol expects. Identity when from == to; a
// direct registered transform when one exists; otherwise a two-hop
// pivot through FormatOpenAI.
func (r *Registry) TranslateRequest(from, to Format, model string, rawJSON []byte) ([]byte, error) {
	if from == to {
		return rawJSON, nil
	}
	if fn, ok := r.lookupRequest(from, to); ok {
		return fn(model, rawJSON)
	}
	if from != FormatOpenAI && to != FormatOpenAI {
		viaOpenAI, err := r.TranslateRequest(from, FormatOpenAI, model, rawJSON)
		if err != nil {
			return nil, err
		}
		return r.TranslateRequest(FormatOpenAI, to, model, viaOpenAI)
	}
	return nil, errors.Wrapf(errUnsupportedPair, "request %s -> %s", from, to)
}

// TranslateResponse reshapes a provider response body back into the
// client's protocol, with the same identity/direct/pivot precedence as
// TranslateRequest.
func (r *Registry) TranslateResponse(from, to Format, model string, rawJSON []byte) ([]byte, error) {
	if from == to {
		return rawJSON, nil
	}
	if fn, ok := r.lookupResponse(from, to); ok {
		return fn(model, rawJSON)
	}
	if from != FormatOpenAI && to != FormatOpenAI {
		viaOpenAI, err := r.TranslateResponse(from, FormatOpenAI, model, rawJSON)
		if err != nil {
			return nil, err
		}
		return r.TranslateResponse(FormatOpenAI, to, model, viaOpenAI)
	}
	return nil, errors.Wrapf(errUnsupportedPair, "response %s -> %s", from, to)
}

// Register stores request/response transforms in the default registry.
func Register(from, to Format, cfg TranslatorConfig) {
	defaultRegistry.Register(from, to, cfg)
}

// TranslateRequest uses the default registry.
func TranslateRequest(from, to Format, model string, rawJSON []byte) ([]byte, error) {
	return defaultRegistry.TranslateRequest(from, to, model, rawJSON)
}

// TranslateResponse uses the default registry.
func TranslateResponse(from, to Format, model string, rawJSON []byte) ([]byte, error) {
	return defaultRegistry.TranslateResponse(from, to, model, rawJSON)
}
