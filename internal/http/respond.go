package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"wander-system/internal/metrics"
	"wander-system/internal/services/reco"

	"github.com/rs/zerolog/log"
)

// ErrorResponse is the stable failure envelope for every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, route string, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Str("route", route).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, route string, status int, message, details string) {
	writeJSON(w, route, status, ErrorResponse{Error: message, Details: details})
}

// writePipelineError maps pipeline errors onto the response envelope per the
// error taxonomy: validation 400, everything else 500.
func writePipelineError(w http.ResponseWriter, route string, err error) {
	var validationErr *reco.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, route, http.StatusBadRequest, "validation failed", validationErr.Error())
		return
	}

	var upstreamErr *reco.UpstreamError
	if errors.As(err, &upstreamErr) {
		metrics.UpstreamErrorsTotal.Inc()
		writeError(w, route, http.StatusInternalServerError, "upstream provider failed", upstreamErr.Error())
		return
	}

	var resolutionErr *reco.ResolutionError
	if errors.As(err, &resolutionErr) {
		writeError(w, route, http.StatusInternalServerError, "could not resolve model output", resolutionErr.Error())
		return
	}

	writeError(w, route, http.StatusInternalServerError, "internal error", err.Error())
}
