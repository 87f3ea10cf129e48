package reco

import (
	"context"
	"time"

	"wander-system/internal/cache"
	"wander-system/internal/services/llm"

	"github.com/rs/zerolog/log"
)

// ResultKind discriminates the two shapes a recommendation result can take.
type ResultKind string

const (
	// KindStructured carries a list of place suggestions (degraded mode).
	KindStructured ResultKind = "structured"
	// KindNarrative carries free-form prose (live mode).
	KindNarrative ResultKind = "narrative"
)

// PlaceSuggestion is one structured place recommendation.
type PlaceSuggestion struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Rating      *float64 `json:"rating,omitempty"`
	Address     *string  `json:"address,omitempty"`
}

// RecommendationSet is the result of a recommendation request. Exactly one of
// Places or Narrative is populated, discriminated by Kind.
type RecommendationSet struct {
	Kind      ResultKind        `json:"kind"`
	Places    []PlaceSuggestion `json:"places,omitempty"`
	Narrative string            `json:"narrative,omitempty"`
}

// Payload returns the wire value for the response's "recommendations" field:
// an array of suggestions or a narrative string.
func (rs *RecommendationSet) Payload() interface{} {
	if rs.Kind == KindNarrative {
		return rs.Narrative
	}
	return rs.Places
}

// Service runs the recommendation pipeline: normalize, compose, gate, invoke,
// resolve. It holds no mutable state; every invocation is independent.
type Service struct {
	transport llm.Transport
	cache     *cache.RedisCache
}

// NewService creates the pipeline service. A nil transport puts the service
// in degraded mode: deterministic mock output, no network calls. A nil cache
// disables result caching.
func NewService(transport llm.Transport, redisCache *cache.RedisCache) *Service {
	return &Service{transport: transport, cache: redisCache}
}

// Degraded reports whether the service runs without a live provider.
func (s *Service) Degraded() bool {
	return s.transport == nil
}

// Recommend handles the buffered place-recommendation request.
func (s *Service) Recommend(ctx context.Context, req RecommendRequest) (*RecommendationSet, error) {
	d, err := NormalizeRecommend(req)
	if err != nil {
		return nil, err
	}

	prompt := ComposeRecommendationPrompt(d)

	if s.Degraded() {
		log.Debug().Int("limit", d.Limit).Msg("Serving mock recommendations")
		return &RecommendationSet{Kind: KindStructured, Places: MockRecommendations(d)}, nil
	}

	key := cache.RecommendationKey(prompt.System, prompt.User, prompt.Limit)
	raw, err := s.complete(ctx, prompt, key, cache.RecommendationTTL)
	if err != nil {
		return nil, err
	}

	narrative, err := ResolveNarrative(raw)
	if err != nil {
		return nil, err
	}
	return &RecommendationSet{Kind: KindNarrative, Narrative: narrative}, nil
}

// RecommendStream handles the streaming variant. The returned channel yields
// text chunks in arrival order and is closed when the stream ends. In
// degraded mode a single chunk carries the rendered mock narrative.
func (s *Service) RecommendStream(ctx context.Context, req RecommendRequest) (<-chan llm.StreamChunk, error) {
	d, err := NormalizeRecommend(req)
	if err != nil {
		return nil, err
	}

	prompt := ComposeRecommendationPrompt(d)

	if s.Degraded() {
		chunks := make(chan llm.StreamChunk, 2)
		chunks <- llm.StreamChunk{Token: mockNarrative(d)}
		chunks <- llm.StreamChunk{Done: true}
		close(chunks)
		return chunks, nil
	}

	chunks, err := s.transport.Stream(ctx, prompt.System, prompt.User)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	return chunks, nil
}

// ExpandInterests handles the interest-expansion request.
func (s *Service) ExpandInterests(ctx context.Context, req ExpandRequest) ([]string, error) {
	d, err := NormalizeExpand(req)
	if err != nil {
		return nil, err
	}

	prompt := ComposeInterestPrompt(d)

	if s.Degraded() {
		return MockInterestList(d), nil
	}

	key := cache.InterestKey(prompt.User, prompt.Limit)
	raw, err := s.complete(ctx, prompt, key, cache.InterestTTL)
	if err != nil {
		return nil, err
	}

	return ResolveInterestList(raw, prompt.Limit)
}

// complete runs one buffered completion, going through the cache when one is
// configured. Provider failures come back as *UpstreamError; cache failures
// come back untagged so they are not reported as a provider problem.
func (s *Service) complete(ctx context.Context, prompt PromptPair, key string, ttl time.Duration) (string, error) {
	if s.cache == nil {
		raw, err := s.transport.Complete(ctx, prompt.System, prompt.User)
		if err != nil {
			return "", &UpstreamError{Err: err}
		}
		return raw, nil
	}

	data, err := s.cache.GetOrSet(ctx, key, ttl, func() (interface{}, error) {
		raw, err := s.transport.Complete(ctx, prompt.System, prompt.User)
		if err != nil {
			return nil, &UpstreamError{Err: err}
		}
		return raw, nil
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
