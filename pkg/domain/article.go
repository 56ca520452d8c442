package domain

import "time"

// Article represents a single normalized news article returned by a provider.
// Identity is the URL; near-duplicate identity is a normalized title prefix.
// Articles are immutable once constructed by an adapter.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Published   time.Time `json:"published_at"`
	SourceName  string    `json:"source_name"`
}

// ScoredArticle wraps an Article with the deterministic ranking scores.
// All component scores are in [0,1]; Total may exceed 1 due to the additive
// preferred-source boost.
type ScoredArticle struct {
	Article
	Relevance      float64 `json:"relevance_score"`
	Recency        float64 `json:"recency_score"`
	SourceQuality  float64 `json:"source_quality_score"`
	PreferredBoost float64 `json:"preferred_source_boost"`
	Total          float64 `json:"total_score"`
}

// EditorialRanking is a single LLM importance assignment for one article.
type EditorialRanking struct {
	URL        string `json:"url"`
	Importance int    `json:"importance"` // 1-10
	Reasoning  string `json:"reasoning"`
}

// RankingSet is the editorial ranking for one (topic, day) with metadata.
type RankingSet struct {
	Topic    string             `json:"topic"`
	Rankings []EditorialRanking `json:"rankings"`
	Model    string             `json:"model"`
	RankedAt time.Time          `json:"ranked_at"`
	Fallback bool               `json:"fallback"` // true when deterministic fallback produced the set
}

// CacheEntry is a daily snapshot of fetched articles for a topic,
// keyed by (topic, day, provider label).
type CacheEntry struct {
	Topic         string    `json:"topic"`
	Day           string    `json:"day"` // calendar day, YYYY-MM-DD
	ProviderLabel string    `json:"provider_label"`
	Articles      []Article `json:"articles"`
	FetchDuration int64     `json:"fetch_duration_ms"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// Day formats a time as the calendar-day cache key.
func Day(t time.Time) string { return t.UTC().Format("2006-01-02") }
