package trending

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wander-system/internal/cache"
	"wander-system/internal/repo"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *cache.RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisCacheFromClient(client)
}

func seedRepo(t *testing.T, ctx context.Context) repo.Repository {
	t.Helper()

	db, err := repo.NewDB("")
	require.NoError(t, err)
	repository := repo.NewRepository(db)

	cafe, err := repository.CreatePlace(ctx, repo.CreatePlaceParams{Name: "Harbor Light Cafe", Category: "cafe", Rating: 4.6})
	require.NoError(t, err)
	trail, err := repository.CreatePlace(ctx, repo.CreatePlaceParams{Name: "Ridge Line Trailhead", Category: "outdoors", Rating: 4.8})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = repository.CreateVisitEvent(ctx, repo.CreateVisitEventParams{PlaceID: cafe.ID, Event: "view"})
		require.NoError(t, err)
	}
	_, err = repository.CreateVisitEvent(ctx, repo.CreateVisitEventParams{PlaceID: trail.ID, Event: "visit"})
	require.NoError(t, err)

	return repository
}

func TestRefreshComputesLeaderboards(t *testing.T) {
	ctx := context.Background()
	repository := seedRepo(t, ctx)
	refresher := NewCacheRefresher(repository, newTestCache(t), time.Hour)

	outcome := refresher.Refresh(ctx)

	require.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.Count)
	assert.Empty(t, outcome.Error)

	ts, err := time.Parse(time.RFC3339, outcome.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)

	cafes, err := refresher.TopPlaces(ctx, "cafe", 10)
	require.NoError(t, err)
	assert.Len(t, cafes, 1)

	outdoors, err := refresher.TopPlaces(ctx, "outdoors", 10)
	require.NoError(t, err)
	assert.Len(t, outdoors, 1)
}

func TestRefreshIsRepeatable(t *testing.T) {
	ctx := context.Background()
	repository := seedRepo(t, ctx)
	refresher := NewCacheRefresher(repository, newTestCache(t), time.Hour)

	first := refresher.Refresh(ctx)
	second := refresher.Refresh(ctx)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, first.Count, second.Count)

	// full-replace semantics: repeated refreshes don't accumulate members
	cafes, err := refresher.TopPlaces(ctx, "cafe", 10)
	require.NoError(t, err)
	assert.Len(t, cafes, 1)
}

func TestRefreshConcurrentInvocations(t *testing.T) {
	ctx := context.Background()
	repository := seedRepo(t, ctx)
	refresher := NewCacheRefresher(repository, newTestCache(t), time.Hour)

	const workers = 8
	outcomes := make([]Outcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = refresher.Refresh(ctx)
		}(i)
	}
	wg.Wait()

	// each invocation stages under its own key, so none can rename away
	// another's work or fail on a missing staging key
	for _, outcome := range outcomes {
		assert.True(t, outcome.Success, outcome.Error)
	}

	cafes, err := refresher.TopPlaces(ctx, "cafe", 10)
	require.NoError(t, err)
	assert.Len(t, cafes, 1)

	outdoors, err := refresher.TopPlaces(ctx, "outdoors", 10)
	require.NoError(t, err)
	assert.Len(t, outdoors, 1)
}

func TestLastRefreshMetadata(t *testing.T) {
	ctx := context.Background()
	repository := seedRepo(t, ctx)
	refresher := NewCacheRefresher(repository, newTestCache(t), time.Hour)

	meta, err := refresher.LastRefresh(ctx)
	require.NoError(t, err)
	assert.Nil(t, meta)

	require.True(t, refresher.Refresh(ctx).Success)

	meta, err = refresher.LastRefresh(ctx)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 4, meta.EventCount)
	assert.Equal(t, 2, meta.CategoryCount)
	assert.WithinDuration(t, time.Now(), meta.LastComputedAt, time.Minute)
}

func TestRefreshNoEvents(t *testing.T) {
	ctx := context.Background()
	db, err := repo.NewDB("")
	require.NoError(t, err)
	refresher := NewCacheRefresher(repo.NewRepository(db), newTestCache(t), time.Hour)

	outcome := refresher.Refresh(ctx)

	require.True(t, outcome.Success)
	assert.Zero(t, outcome.Count)
}

type failingRepo struct {
	repo.Repository
}

func (f *failingRepo) GetRecentVisitEvents(ctx context.Context, since time.Time) ([]repo.VisitEventRow, error) {
	return nil, errors.New("storage unavailable")
}

func TestRefreshReportsFailure(t *testing.T) {
	refresher := NewCacheRefresher(&failingRepo{}, newTestCache(t), time.Hour)

	outcome := refresher.Refresh(context.Background())

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "storage unavailable")
	assert.NotEmpty(t, outcome.Timestamp)
}

func TestEventScoreWeighting(t *testing.T) {
	now := time.Now()
	view := repo.VisitEventRow{VisitEvent: repo.VisitEvent{Event: "view", OccurredAt: now}}
	visit := repo.VisitEvent{Event: "visit", OccurredAt: now}
	stale := repo.VisitEvent{Event: "view", OccurredAt: now.Add(-12 * time.Hour)}

	assert.Greater(t, eventScore(repo.VisitEventRow{VisitEvent: visit}, now), eventScore(view, now))
	assert.Greater(t, eventScore(view, now), eventScore(repo.VisitEventRow{VisitEvent: stale}, now))
}
