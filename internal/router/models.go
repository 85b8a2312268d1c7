package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/routecodex/gateway/internal/gwerrors"
	"github.com/routecodex/gateway/internal/httpformat"
	"github.com/routecodex/gateway/internal/middleware"
)

// handleListModels reports the models reachable through any configured
// route's pool, deduplicated, in the OpenAI /v1/models list shape.
func (rt *Router) handleListModels(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.FromContext(r.Context())
	setCommonHeaders(w, requestID)

	seen := map[string]bool{}
	var data []any
	for _, route := range rt.cfg.Routes {
		for _, pl := range route.Pipelines {
			model := pl.Model()
			if model == "" || seen[model] {
				continue
			}
			seen[model] = true
			data = append(data, map[string]any{
				"id":       model,
				"object":   "model",
				"created":  bootEpoch,
				"owned_by": "routecodex",
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data})
}

// handleGetModel returns one model's descriptor, or a 501 if it isn't
// reachable through any configured route (spec allows 501 here rather
// than requiring a full model registry).
func (rt *Router) handleGetModel(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.FromContext(r.Context())
	setCommonHeaders(w, requestID)

	model := chi.URLParam(r, "model")
	for _, route := range rt.cfg.Routes {
		for _, pl := range route.Pipelines {
			if pl.Model() == model {
				writeJSON(w, http.StatusOK, map[string]any{
					"id": model, "object": "model", "created": bootEpoch, "owned_by": "routecodex",
				})
				return
			}
		}
	}

	format := httpformat.DetectFromRequest(r)
	writeJSONError(w, gwerrors.New(http.StatusNotImplemented, "model_not_configured", "", "model \""+model+"\" is not reachable through any configured route"), format, requestID)
}

// handleNotImplemented answers every OpenAI surface this gateway
// deliberately doesn't implement (embeddings, moderations, image
// generation, audio, files, fine-tuning, batches, assistants) with the
// spec-mandated 501 envelope.
func (rt *Router) handleNotImplemented(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.FromContext(r.Context())
	setCommonHeaders(w, requestID)
	writeJSON(w, http.StatusNotImplemented, notImplementedPayload())
}

// bootEpoch stands in for a per-model creation timestamp this gateway
// has no registry to source; Date.now()-at-request-time would make the
// field change on every call, which is worse than a stable constant.
var bootEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
