package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"wander-system/internal/metrics"
	"wander-system/internal/repo"
	"wander-system/internal/services/trending"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TrendingService is what the trending endpoints need from the refresher.
type TrendingService interface {
	Refresh(ctx context.Context) trending.Outcome
	TopPlaces(ctx context.Context, category string, limit int) ([]string, error)
	LastRefresh(ctx context.Context) (*trending.Meta, error)
}

// TrendingHandler serves the trending leaderboard and its refresh trigger.
type TrendingHandler struct {
	trending TrendingService
	repo     repo.Repository
	secret   string
}

func NewTrendingHandler(trendingService TrendingService, repository repo.Repository, secret string) *TrendingHandler {
	return &TrendingHandler{
		trending: trendingService,
		repo:     repository,
		secret:   secret,
	}
}

func (h *TrendingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/trending", func(r chi.Router) {
		r.Get("/", h.Top)
		r.Get("/refresh", h.Trigger)
	})
}

// RefreshResponse relays the refresh outcome plus a correlation id.
type RefreshResponse struct {
	Success   bool   `json:"success"`
	Count     int    `json:"count,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"requestId"`
}

// Trigger is the externally scheduled refresh entry point. Authorization is a
// byte-for-byte bearer-secret match; an unset secret fails closed.
func (h *TrendingHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	const route = "trending_refresh"

	requestID := uuid.NewString()

	if !h.authorized(r.Header.Get("Authorization")) {
		log.Warn().Str("request_id", requestID).Msg("Rejected trending refresh trigger")
		writeJSON(w, route, http.StatusUnauthorized, RefreshResponse{
			Success:   false,
			Error:     "unauthorized",
			RequestID: requestID,
		})
		return
	}

	outcome := h.trending.Refresh(r.Context())

	resp := RefreshResponse{
		Success:   outcome.Success,
		Count:     outcome.Count,
		Timestamp: outcome.Timestamp,
		Error:     outcome.Error,
		RequestID: requestID,
	}

	if !outcome.Success {
		metrics.TrendingRefreshTotal.WithLabelValues("failure").Inc()
		writeJSON(w, route, http.StatusInternalServerError, resp)
		return
	}

	metrics.TrendingRefreshTotal.WithLabelValues("success").Inc()
	writeJSON(w, route, http.StatusOK, resp)
}

func (h *TrendingHandler) authorized(header string) bool {
	if h.secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

// Top returns the current leaderboard for a category.
func (h *TrendingHandler) Top(w http.ResponseWriter, r *http.Request) {
	const route = "trending"

	category := r.URL.Query().Get("category")
	if category == "" {
		category = "general"
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 50 {
			writeError(w, route, http.StatusBadRequest, "validation failed", "limit must be between 1 and 50")
			return
		}
		limit = parsed
	}

	ids, err := h.trending.TopPlaces(r.Context(), category, limit)
	if err != nil {
		writeError(w, route, http.StatusInternalServerError, "internal error", err.Error())
		return
	}

	places := make([]repo.Place, 0, len(ids))
	for _, id := range ids {
		place, err := h.repo.GetPlaceByID(r.Context(), id)
		if err != nil {
			continue
		}
		places = append(places, place)
	}

	resp := map[string]interface{}{
		"category": category,
		"places":   places,
	}
	if meta, err := h.trending.LastRefresh(r.Context()); err == nil && meta != nil {
		resp["lastRefresh"] = meta
	}

	writeJSON(w, route, http.StatusOK, resp)
}
