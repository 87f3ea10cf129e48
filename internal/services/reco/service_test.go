package reco

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"wander-system/internal/cache"
	"wander-system/internal/services/llm"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	completeCalls int
	streamCalls   int
	response      string
	err           error
	chunks        []llm.StreamChunk
}

func (f *fakeTransport) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.completeCalls++
	return f.response, f.err
}

func (f *fakeTransport) Stream(ctx context.Context, systemPrompt, userPrompt string) (<-chan llm.StreamChunk, error) {
	f.streamCalls++
	if f.err != nil {
		return nil, f.err
	}
	chunks := make(chan llm.StreamChunk, len(f.chunks))
	for _, chunk := range f.chunks {
		chunks <- chunk
	}
	close(chunks)
	return chunks, nil
}

func TestRecommendValidationFailureSkipsTransport(t *testing.T) {
	transport := &fakeTransport{response: "never used"}
	service := NewService(transport, nil)

	_, err := service.Recommend(context.Background(), RecommendRequest{})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Zero(t, transport.completeCalls)
	assert.Zero(t, transport.streamCalls)
}

func TestExpandValidationFailureSkipsTransport(t *testing.T) {
	transport := &fakeTransport{}
	service := NewService(transport, nil)

	_, err := service.ExpandInterests(context.Background(), ExpandRequest{})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Zero(t, transport.completeCalls)
}

func TestRecommendDegraded(t *testing.T) {
	service := NewService(nil, nil)
	require.True(t, service.Degraded())

	result, err := service.Recommend(context.Background(), RecommendRequest{
		Interests: []string{"hiking"},
		Limit:     3,
	})
	require.NoError(t, err)

	assert.Equal(t, KindStructured, result.Kind)
	require.Len(t, result.Places, 3)
	for _, place := range result.Places {
		assert.NotEmpty(t, place.Name)
		assert.NotEmpty(t, place.Description)
		assert.Contains(t, place.Tags, "hiking")
	}
}

func TestRecommendDegradedDeterministic(t *testing.T) {
	service := NewService(nil, nil)
	req := RecommendRequest{Interests: []string{"coffee"}, Limit: 5}

	first, err := service.Recommend(context.Background(), req)
	require.NoError(t, err)
	second, err := service.Recommend(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRecommendLiveNarrative(t *testing.T) {
	transport := &fakeTransport{response: "  Visit the old town.\n"}
	service := NewService(transport, nil)

	result, err := service.Recommend(context.Background(), RecommendRequest{Query: "old town"})
	require.NoError(t, err)

	assert.Equal(t, KindNarrative, result.Kind)
	assert.Equal(t, "Visit the old town.", result.Narrative)
	assert.Equal(t, 1, transport.completeCalls)
}

func TestRecommendUpstreamError(t *testing.T) {
	transport := &fakeTransport{err: errors.New("connection reset")}
	service := NewService(transport, nil)

	_, err := service.Recommend(context.Background(), RecommendRequest{Query: "old town"})

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.NotContains(t, upstreamErr.Error(), "sk-")
}

func TestRecommendEnvelopeShapeMatchesAcrossModes(t *testing.T) {
	degraded := &RecommendationSet{Kind: KindStructured, Places: MockRecommendations(QueryDescriptor{Interests: []string{"art"}, Limit: 2})}
	live := &RecommendationSet{Kind: KindNarrative, Narrative: "Some places."}

	for _, result := range []*RecommendationSet{degraded, live} {
		data, err := json.Marshal(map[string]interface{}{"recommendations": result.Payload()})
		require.NoError(t, err)

		var envelope map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &envelope))
		require.Len(t, envelope, 1)
		assert.Contains(t, envelope, "recommendations")
	}
}

func TestExpandInterestsDegraded(t *testing.T) {
	service := NewService(nil, nil)

	interests, err := service.ExpandInterests(context.Background(), ExpandRequest{
		Interests: []string{"hiking"},
		Count:     3,
	})
	require.NoError(t, err)

	require.LessOrEqual(t, len(interests), 3)
	assert.Equal(t, "hiking", interests[0])
	for _, interest := range interests {
		assert.Contains(t, interest, "hiking")
	}
}

func TestExpandInterestsLiveCommaFallback(t *testing.T) {
	transport := &fakeTransport{response: "coffee, tea, museums"}
	service := NewService(transport, nil)

	interests, err := service.ExpandInterests(context.Background(), ExpandRequest{
		Interests: []string{"drinks"},
		Count:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"coffee", "tea"}, interests)
}

func TestRecommendStreamPreservesOrder(t *testing.T) {
	transport := &fakeTransport{chunks: []llm.StreamChunk{
		{Token: "first "},
		{Token: "second "},
		{Token: "third"},
		{Done: true},
	}}
	service := NewService(transport, nil)

	chunks, err := service.RecommendStream(context.Background(), RecommendRequest{Query: "cafes"})
	require.NoError(t, err)

	var tokens []string
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		if chunk.Token != "" {
			tokens = append(tokens, chunk.Token)
		}
	}
	assert.Equal(t, []string{"first ", "second ", "third"}, tokens)
	assert.Equal(t, 1, transport.streamCalls)
}

// endlessTransport produces tokens until its context is cancelled, signalling
// producer exit through producerDone.
type endlessTransport struct {
	producerDone chan struct{}
}

func (e *endlessTransport) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "", nil
}

func (e *endlessTransport) Stream(ctx context.Context, systemPrompt, userPrompt string) (<-chan llm.StreamChunk, error) {
	chunks := make(chan llm.StreamChunk)
	go func() {
		defer close(chunks)
		defer close(e.producerDone)
		for {
			select {
			case chunks <- llm.StreamChunk{Token: "token "}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return chunks, nil
}

func TestRecommendStreamStopsOnCancellation(t *testing.T) {
	transport := &endlessTransport{producerDone: make(chan struct{})}
	service := NewService(transport, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunks, err := service.RecommendStream(ctx, RecommendRequest{Query: "cafes"})
	require.NoError(t, err)

	// consume a couple of chunks, then walk away mid-stream
	<-chunks
	<-chunks
	cancel()

	select {
	case <-transport.producerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("stream producer kept running after cancellation")
	}
}

func newRecoTestCache(t *testing.T) *cache.RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisCacheFromClient(client)
}

func TestRecommendLiveResultCached(t *testing.T) {
	transport := &fakeTransport{response: "Visit the old town."}
	service := NewService(transport, newRecoTestCache(t))

	req := RecommendRequest{Query: "old town"}

	first, err := service.Recommend(context.Background(), req)
	require.NoError(t, err)
	second, err := service.Recommend(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, transport.completeCalls)
}

func TestRecommendCacheFailureIsNotUpstream(t *testing.T) {
	redisCache := newRecoTestCache(t)
	transport := &fakeTransport{response: "Visit the old town."}
	service := NewService(transport, redisCache)

	req := RecommendRequest{Query: "old town"}
	d, err := NormalizeRecommend(req)
	require.NoError(t, err)
	prompt := ComposeRecommendationPrompt(d)
	key := cache.RecommendationKey(prompt.System, prompt.User, prompt.Limit)

	// another instance holds the generation lock and never finishes, so
	// this request waits on the cache rather than calling the provider
	acquired, err := redisCache.SetNX(context.Background(), "lock:"+key, "1", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	_, err = service.Recommend(ctx, req)
	require.Error(t, err)

	var upstreamErr *UpstreamError
	assert.False(t, errors.As(err, &upstreamErr))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, transport.completeCalls)
}

func TestRecommendStreamDegraded(t *testing.T) {
	service := NewService(nil, nil)

	chunks, err := service.RecommendStream(context.Background(), RecommendRequest{
		Interests: []string{"hiking"},
		Limit:     2,
	})
	require.NoError(t, err)

	var text string
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		text += chunk.Token
	}
	assert.Contains(t, text, "2 places")
	assert.Contains(t, text, "- ")
}
