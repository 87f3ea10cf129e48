package cache

import (
	"crypto/sha1"
	"fmt"
	"time"
)

const (
	RecommendationTTL = 10 * time.Minute
	InterestTTL       = 30 * time.Minute
	TrendingTTL       = 24 * time.Hour
)

// RecommendationKey generates the Redis key for a buffered recommendation
// result. The hash input must be the canonical prompt pair so that identical
// descriptors hit the same entry.
func RecommendationKey(systemPrompt, userPrompt string, limit int) string {
	hash := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%d", systemPrompt, userPrompt, limit)))
	return fmt.Sprintf("cache:v1:recommend:%x", hash)
}

// InterestKey generates the Redis key for an interest-expansion result.
func InterestKey(userPrompt string, limit int) string {
	hash := sha1.Sum([]byte(fmt.Sprintf("%s|%d", userPrompt, limit)))
	return fmt.Sprintf("cache:v1:interests:%x", hash)
}

// TrendingKey generates the Redis key for the per-category trending leaderboard.
func TrendingKey(category string) string {
	return fmt.Sprintf("trending:category:%s", category)
}

// TrendingStagingKey is where a refresh builds the next leaderboard before the
// atomic rename into TrendingKey. The nonce is unique per refresh invocation
// so concurrent refreshes never build on the same staging key.
func TrendingStagingKey(category, nonce string) string {
	return fmt.Sprintf("trending:staging:%s:%s", category, nonce)
}

// TrendingMetaKey holds metadata about the last completed refresh.
func TrendingMetaKey() string {
	return "trending:meta"
}
