package trending

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"wander-system/internal/cache"
	"wander-system/internal/repo"

	"github.com/go-redis/redis/v9"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// eventWindow is how far back visit events count toward trending scores.
const eventWindow = 24 * time.Hour

// Outcome reports the result of one refresh invocation. It is written exactly
// once, never partially.
type Outcome struct {
	Success   bool   `json:"success"`
	Count     int    `json:"count,omitempty"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// Meta describes the last completed refresh.
type Meta struct {
	LastComputedAt time.Time `json:"last_computed_at"`
	EventCount     int       `json:"event_count"`
	CategoryCount  int       `json:"category_count"`
}

// CacheRefresher recomputes per-category trending leaderboards from recent
// visit events and replaces them in Redis. Writes are full-replace: each
// invocation builds under its own staging key and publishes with an atomic
// rename, so concurrent or repeated refreshes cannot interleave into an
// inconsistent state.
type CacheRefresher struct {
	repo   repo.Repository
	cache  *cache.RedisCache
	ttl    time.Duration
	ticker *time.Ticker
	done   chan bool
}

func NewCacheRefresher(repository repo.Repository, redisCache *cache.RedisCache, ttl time.Duration) *CacheRefresher {
	if ttl <= 0 {
		ttl = cache.TrendingTTL
	}
	return &CacheRefresher{
		repo:  repository,
		cache: redisCache,
		ttl:   ttl,
		done:  make(chan bool),
	}
}

// Refresh recomputes all trending leaderboards once.
func (r *CacheRefresher) Refresh(ctx context.Context) Outcome {
	start := time.Now()

	events, err := r.repo.GetRecentVisitEvents(ctx, start.Add(-eventWindow))
	if err != nil {
		return failure(start, err)
	}

	// score per category, per place
	scores := make(map[string]map[string]float64)
	for _, event := range events {
		category := event.Category
		if category == "" {
			category = "general"
		}
		if scores[category] == nil {
			scores[category] = make(map[string]float64)
		}
		scores[category][event.PlaceID] += eventScore(event, start)
	}

	nonce := uuid.NewString()

	placeCount := 0
	g, gctx := errgroup.WithContext(ctx)
	for category, placeScores := range scores {
		category, placeScores := category, placeScores
		placeCount += len(placeScores)
		g.Go(func() error {
			return r.replaceLeaderboard(gctx, category, nonce, placeScores)
		})
	}
	if err := g.Wait(); err != nil {
		return failure(start, err)
	}

	meta := Meta{
		LastComputedAt: start,
		EventCount:     len(events),
		CategoryCount:  len(scores),
	}
	if data, err := json.Marshal(meta); err == nil {
		if err := r.cache.Set(ctx, cache.TrendingMetaKey(), data, r.ttl); err != nil {
			log.Warn().Err(err).Msg("Failed to store trending refresh metadata")
		}
	}

	log.Info().
		Dur("duration", time.Since(start)).
		Int("events", len(events)).
		Int("categories", len(scores)).
		Int("places", placeCount).
		Msg("Completed trending refresh")

	return Outcome{
		Success:   true,
		Count:     placeCount,
		Timestamp: start.UTC().Format(time.RFC3339),
	}
}

// replaceLeaderboard builds the category ZSET under an invocation-scoped
// staging key and swaps it in with a rename. The nonce keeps concurrent
// refreshes off each other's staging keys; whichever renames last wins whole.
func (r *CacheRefresher) replaceLeaderboard(ctx context.Context, category, nonce string, placeScores map[string]float64) error {
	if len(placeScores) == 0 {
		return nil
	}

	stagingKey := cache.TrendingStagingKey(category, nonce)
	liveKey := cache.TrendingKey(category)

	members := make([]redis.Z, 0, len(placeScores))
	for placeID, score := range placeScores {
		members = append(members, redis.Z{Score: score, Member: placeID})
	}
	if err := r.cache.ZAdd(ctx, stagingKey, members...); err != nil {
		return err
	}

	// TTL goes on before the swap; rename carries it to the live key and
	// reaps the staging key if the rename never happens.
	if err := r.cache.Expire(ctx, stagingKey, r.ttl); err != nil {
		return err
	}
	return r.cache.Rename(ctx, stagingKey, liveKey)
}

// LastRefresh returns metadata about the most recent completed refresh, or
// nil when none has run yet.
func (r *CacheRefresher) LastRefresh(ctx context.Context) (*Meta, error) {
	data, err := r.cache.Get(ctx, cache.TrendingMetaKey())
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// TopPlaces returns the highest-scored place IDs for a category.
func (r *CacheRefresher) TopPlaces(ctx context.Context, category string, limit int) ([]string, error) {
	members, err := r.cache.ZRevRangeWithScores(ctx, cache.TrendingKey(category), 0, int64(limit-1))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(members))
	for _, member := range members {
		if id, ok := member.Member.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Start refreshes on an interval in the background. The external scheduler
// hitting the refresh endpoint is the primary trigger; this loop is a belt
// for deployments without one.
func (r *CacheRefresher) Start(ctx context.Context, interval time.Duration) {
	r.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-r.ticker.C:
				if outcome := r.Refresh(ctx); !outcome.Success {
					log.Error().Str("error", outcome.Error).Msg("Scheduled trending refresh failed")
				}
			case <-r.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info().Dur("interval", interval).Msg("Trending refresher started")
}

func (r *CacheRefresher) Stop() {
	if r.ticker != nil {
		r.ticker.Stop()
	}
	close(r.done)
	log.Info().Msg("Trending refresher stopped")
}

func failure(start time.Time, err error) Outcome {
	return Outcome{
		Success:   false,
		Timestamp: start.UTC().Format(time.RFC3339),
		Error:     err.Error(),
	}
}

// eventScore weights an event by type, decays it over time (6-hour half-life
// region) and dampens it by distance between user and place when both are known.
func eventScore(event repo.VisitEventRow, now time.Time) float64 {
	var weight float64
	switch event.Event {
	case "visit":
		weight = 3.0
	case "save":
		weight = 2.0
	case "view":
		weight = 1.0
	default:
		weight = 1.0
	}

	decay := math.Exp(-now.Sub(event.OccurredAt).Hours() / 6.0)

	geo := 1.0
	if event.UserLat != nil && event.UserLon != nil && event.Latitude != nil && event.Longitude != nil {
		distance := haversineKm(*event.UserLat, *event.UserLon, *event.Latitude, *event.Longitude)
		geo = 1.0 / (1.0 + distance/10.0)
	}

	return weight * decay * geo
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
