package reco

import (
	"strings"
)

const (
	// DefaultLimit is applied when a request does not specify a result count.
	DefaultLimit = 5
	// MaxLimit caps the result count a single request may ask for.
	MaxLimit = 50
)

// RecommendRequest is the raw body of a place recommendation request.
type RecommendRequest struct {
	Query     string    `json:"query,omitempty"`
	Interests []string  `json:"interests,omitempty"`
	Location  *Location `json:"location,omitempty"`
	Radius    *float64  `json:"radius,omitempty"`
	Type      string    `json:"type,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// ExpandRequest is the raw body of an interest-expansion request.
type ExpandRequest struct {
	Interests []string `json:"interests"`
	Location  string   `json:"location,omitempty"`
	Count     int      `json:"count,omitempty"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// QueryDescriptor is the normalized, internally consistent form of a request.
// It is request-scoped; nothing retains it past the request's lifetime.
type QueryDescriptor struct {
	Query        string
	Interests    []string
	Location     *Location
	RadiusKm     *float64
	PlaceType    string
	LocationName string
	Limit        int
}

// NormalizeRecommend validates a recommendation request and produces a fully
// populated descriptor. Bounds are checked first; the query-or-interests rule
// is a semantic check layered on top and runs last.
func NormalizeRecommend(req RecommendRequest) (QueryDescriptor, error) {
	d := QueryDescriptor{
		Query:     strings.TrimSpace(req.Query),
		Interests: trimInterests(req.Interests),
		PlaceType: strings.TrimSpace(req.Type),
	}

	if req.Location != nil {
		if req.Location.Latitude < -90 || req.Location.Latitude > 90 {
			return QueryDescriptor{}, &ValidationError{Field: "location.latitude", Message: "must be between -90 and 90"}
		}
		if req.Location.Longitude < -180 || req.Location.Longitude > 180 {
			return QueryDescriptor{}, &ValidationError{Field: "location.longitude", Message: "must be between -180 and 180"}
		}
		loc := *req.Location
		d.Location = &loc
	}

	if req.Radius != nil {
		if d.Location == nil {
			return QueryDescriptor{}, &ValidationError{Field: "radius", Message: "requires a location"}
		}
		if *req.Radius < 0.1 || *req.Radius > 200 {
			return QueryDescriptor{}, &ValidationError{Field: "radius", Message: "must be between 0.1 and 200 km"}
		}
		radius := *req.Radius
		d.RadiusKm = &radius
	}

	limit, err := normalizeLimit(req.Limit, "limit")
	if err != nil {
		return QueryDescriptor{}, err
	}
	d.Limit = limit

	if d.Query == "" && len(d.Interests) == 0 {
		return QueryDescriptor{}, &ValidationError{Field: "query", Message: "either query or interests is required"}
	}

	return d, nil
}

// NormalizeExpand validates an interest-expansion request.
func NormalizeExpand(req ExpandRequest) (QueryDescriptor, error) {
	d := QueryDescriptor{
		Interests:    trimInterests(req.Interests),
		LocationName: strings.TrimSpace(req.Location),
	}

	limit, err := normalizeLimit(req.Count, "count")
	if err != nil {
		return QueryDescriptor{}, err
	}
	d.Limit = limit

	if len(d.Interests) == 0 {
		return QueryDescriptor{}, &ValidationError{Field: "interests", Message: "at least one interest is required"}
	}

	return d, nil
}

func normalizeLimit(limit int, field string) (int, error) {
	if limit <= 0 {
		return DefaultLimit, nil
	}
	if limit > MaxLimit {
		return 0, &ValidationError{Field: field, Message: "must be between 1 and 50"}
	}
	return limit, nil
}

func trimInterests(interests []string) []string {
	var out []string
	for _, interest := range interests {
		if trimmed := strings.TrimSpace(interest); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
