package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefwire/briefwire/pkg/domain"
)

func TestKeywords(t *testing.T) {
	tests := []struct {
		topic string
		want  []string
	}{
		{"climate change", []string{"climate", "change"}},
		{"f1", []string{"f1"}}, // short but on the allowlist
		{"ai", []string{"ai"}}, // short but on the allowlist
		{"la it of", []string(nil)}, // all too short and not meaningful
		{"US economy", []string{"us", "economy"}},
		{"", []string(nil)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Keywords(tt.topic), "topic %q", tt.topic)
	}
}

func TestScorer_Recency(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s := NewScorer(DefaultWeights())
	s.now = func() time.Time { return now }

	t.Run("24h old scores half", func(t *testing.T) {
		got := s.recency(now.Add(-24 * time.Hour))
		assert.InDelta(t, 0.5, got, 1e-9)
	})

	t.Run("fresh article scores near one", func(t *testing.T) {
		got := s.recency(now.Add(-1 * time.Minute))
		assert.Greater(t, got, 0.99)
	})

	t.Run("unparsable date is neutral", func(t *testing.T) {
		assert.InDelta(t, 0.5, s.recency(time.Time{}), 1e-9)
	})

	t.Run("future date clamps to one", func(t *testing.T) {
		got := s.recency(now.Add(time.Hour))
		assert.InDelta(t, 1.0, got, 1e-9)
	})
}

func TestScorer_Score(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s := NewScorer(DefaultWeights())
	s.now = func() time.Time { return now }

	article := domain.Article{
		Title:       "NBA finals game seven preview",
		Description: "The nba championship comes down to one final game on Sunday night.",
		URL:         "https://www.espn.com/nba/story/game-seven",
		SourceName:  "ESPN",
		Published:   now.Add(-2 * time.Hour),
	}

	scored := s.Score(article, "nba")
	assert.InDelta(t, 1.0, scored.Relevance, 1e-9, "exact title and description hits max out one keyword")
	assert.Greater(t, scored.Recency, 0.9)
	assert.InDelta(t, 0.6, scored.SourceQuality, 1e-9, "espn is tier 3")
	assert.InDelta(t, 0.15, scored.PreferredBoost, 1e-9, "espn preferred for nba")

	want := 0.45*scored.Relevance + 0.30*scored.Recency + 0.25*scored.SourceQuality + scored.PreferredBoost
	assert.InDelta(t, want, scored.Total, 1e-9)
}

func TestScorer_TotalMonotonic(t *testing.T) {
	s := NewScorer(DefaultWeights())
	base := domain.ScoredArticle{Relevance: 0.4, Recency: 0.5, SourceQuality: 0.6}

	total := func(rel, rec, sq float64) float64 {
		return s.weights.Relevance*rel + s.weights.Recency*rec + s.weights.SourceQuality*sq
	}

	baseTotal := total(base.Relevance, base.Recency, base.SourceQuality)
	assert.GreaterOrEqual(t, total(base.Relevance+0.1, base.Recency, base.SourceQuality), baseTotal)
	assert.GreaterOrEqual(t, total(base.Relevance, base.Recency+0.1, base.SourceQuality), baseTotal)
	assert.GreaterOrEqual(t, total(base.Relevance, base.Recency, base.SourceQuality+0.1), baseTotal)
}

func TestScoreAll_SortedDescending(t *testing.T) {
	now := time.Now()
	s := NewScorer(DefaultWeights())

	articles := []domain.Article{
		{Title: "unrelated gardening tips", Description: "flowers and soil", URL: "https://blog.example.com/garden", Published: now.Add(-60 * time.Hour)},
		{Title: "nba trade deadline moves", Description: "teams shuffle rosters before the nba deadline", URL: "https://www.reuters.com/nba-trades", SourceName: "Reuters", Published: now.Add(-1 * time.Hour)},
		{Title: "old nba story", Description: "nba news from a while back", URL: "https://site.example.com/old-nba", Published: now.Add(-40 * time.Hour)},
	}

	scored := s.ScoreAll(articles, "nba")
	require.Len(t, scored, 3)
	for i := 1; i < len(scored); i++ {
		assert.GreaterOrEqual(t, scored[i-1].Total, scored[i].Total)
	}
	assert.Equal(t, "https://www.reuters.com/nba-trades", scored[0].URL)
}

func TestSelect_RelevanceFloor(t *testing.T) {
	mk := func(url string, rel, total float64) domain.ScoredArticle {
		return domain.ScoredArticle{Article: domain.Article{URL: url}, Relevance: rel, Total: total}
	}

	t.Run("relevant subset fills first", func(t *testing.T) {
		scored := []domain.ScoredArticle{
			mk("a", 0.1, 0.9), // high total but barely relevant
			mk("b", 0.5, 0.8),
			mk("c", 0.6, 0.7),
			mk("d", 0.2, 0.6),
		}
		got := Select(scored, 2)
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].URL)
		assert.Equal(t, "c", got[1].URL)
	})

	t.Run("rest fills remaining slots", func(t *testing.T) {
		scored := []domain.ScoredArticle{
			mk("a", 0.5, 0.9),
			mk("b", 0.1, 0.8),
			mk("c", 0.1, 0.7),
			mk("d", 0.1, 0.6),
		}
		got := Select(scored, 3)
		require.Len(t, got, 3)
		assert.Equal(t, "a", got[0].URL)
		assert.Equal(t, "b", got[1].URL)
		assert.Equal(t, "c", got[2].URL)
	})

	t.Run("small set passes through", func(t *testing.T) {
		scored := []domain.ScoredArticle{mk("a", 0.5, 0.9)}
		assert.Len(t, Select(scored, 10), 1)
	})
}

func TestSourceQuality(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		source string
		want   float64
	}{
		{"tier1 by url", "https://www.reuters.com/world/story", "", 1.0},
		{"tier1 by source name", "https://example.com/a", "Associated Press", 1.0},
		{"tier2", "https://www.theguardian.com/us-news/story", "The Guardian", 0.8},
		{"tier3", "https://techcrunch.com/2025/startup", "TechCrunch", 0.6},
		{"unknown", "https://myblog.example.com/post", "My Blog", 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SourceQuality(tt.url, tt.source), 1e-9)
		})
	}
}
