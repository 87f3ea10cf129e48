package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"wander-system/internal/metrics"
	"wander-system/internal/services/llm"
	"wander-system/internal/services/reco"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// RecommendationService is the pipeline surface the handlers need. Tests
// substitute a fake.
type RecommendationService interface {
	Recommend(ctx context.Context, req reco.RecommendRequest) (*reco.RecommendationSet, error)
	RecommendStream(ctx context.Context, req reco.RecommendRequest) (<-chan llm.StreamChunk, error)
	ExpandInterests(ctx context.Context, req reco.ExpandRequest) ([]string, error)
}

// RecommendationHandler handles recommendation and interest-expansion requests.
type RecommendationHandler struct {
	service RecommendationService
}

func NewRecommendationHandler(service RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{service: service}
}

func (h *RecommendationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/recommendations", h.Recommend)
		r.Post("/recommendations/stream", h.RecommendStream)
		r.Post("/interests/expand", h.ExpandInterests)
	})
}

// RecommendResponse is the buffered success envelope. Recommendations is a
// list of place suggestions or a narrative string, depending on serving mode.
type RecommendResponse struct {
	Recommendations interface{} `json:"recommendations"`
}

// InterestsResponse is the interest-expansion success envelope.
type InterestsResponse struct {
	Interests []string `json:"interests"`
}

// Recommend handles buffered place recommendations.
func (h *RecommendationHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	const route = "recommendations"

	var req reco.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, route, http.StatusBadRequest, "validation failed", "invalid request body")
		return
	}

	start := time.Now()
	result, err := h.service.Recommend(r.Context(), req)
	if err != nil {
		writePipelineError(w, route, err)
		return
	}
	metrics.GenerationDuration.WithLabelValues("buffered").Observe(time.Since(start).Seconds())

	writeJSON(w, route, http.StatusOK, RecommendResponse{Recommendations: result.Payload()})
}

// RecommendStream handles the streaming variant: chunks are forwarded to the
// client in arrival order, flushed as they come, never buffered whole.
func (h *RecommendationHandler) RecommendStream(w http.ResponseWriter, r *http.Request) {
	const route = "recommendations_stream"

	var req reco.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, route, http.StatusBadRequest, "validation failed", "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, route, http.StatusInternalServerError, "internal error", "streaming not supported")
		return
	}

	start := time.Now()
	chunks, err := h.service.RecommendStream(r.Context(), req)
	if err != nil {
		writePipelineError(w, route, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	wrote := false
	for chunk := range chunks {
		if chunk.Err != nil {
			// Once bytes are out the status line is gone; all we can do is
			// log and cut the connection short.
			if !wrote {
				writePipelineError(w, route, &reco.UpstreamError{Err: chunk.Err})
				return
			}
			metrics.UpstreamErrorsTotal.Inc()
			log.Error().Err(chunk.Err).Msg("Stream failed mid-flight")
			return
		}
		if chunk.Token != "" {
			if _, err := w.Write([]byte(chunk.Token)); err != nil {
				return
			}
			flusher.Flush()
			wrote = true
		}
		if chunk.Done {
			break
		}
	}

	metrics.GenerationDuration.WithLabelValues("streaming").Observe(time.Since(start).Seconds())
	metrics.RequestsTotal.WithLabelValues(route, "200").Inc()
}

// ExpandInterests handles interest-expansion requests.
func (h *RecommendationHandler) ExpandInterests(w http.ResponseWriter, r *http.Request) {
	const route = "interests_expand"

	var req reco.ExpandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, route, http.StatusBadRequest, "validation failed", "invalid request body")
		return
	}

	interests, err := h.service.ExpandInterests(r.Context(), req)
	if err != nil {
		writePipelineError(w, route, err)
		return
	}

	if interests == nil {
		interests = []string{}
	}
	writeJSON(w, route, http.StatusOK, InterestsResponse{Interests: interests})
}
