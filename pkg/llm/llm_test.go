package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefwire/briefwire/pkg/domain"
)

// completionResponse builds a minimal chat completion body with the given
// assistant message content
func completionResponse(t *testing.T, content string) []byte {
	t.Helper()
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	return b
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain object", `{"a":1}`, `{"a":1}`, false},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"fenced without language", "```\n{\"a\":1}\n```", `{"a":1}`, false},
		{"prose prefix", `Here you go: {"a":1} hope that helps`, `{"a":1}`, false},
		{"nested objects", `{"a":{"b":2}}`, `{"a":{"b":2}}`, false},
		{"brace inside string", `{"a":"}{"}`, `{"a":"}{"}`, false},
		{"no object", "sorry, I cannot do that", "", true},
		{"unbalanced", `{"a":1`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedCompletion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
}

func TestFallbackRanking(t *testing.T) {
	articles := []domain.ScoredArticle{
		{Article: domain.Article{URL: "https://a.example.com"}, Total: 0.85},
		{Article: domain.Article{URL: "https://b.example.com"}, Total: 0.04},
		{Article: domain.Article{URL: "https://c.example.com"}, Total: 1.3},
	}

	set := FallbackRanking("nba", articles)
	assert.True(t, set.Fallback)
	assert.Equal(t, "nba", set.Topic)
	require.Len(t, set.Rankings, 3)
	assert.Equal(t, 9, set.Rankings[0].Importance, "0.85*10 rounds to 9")
	assert.Equal(t, 1, set.Rankings[1].Importance, "clamped to floor")
	assert.Equal(t, 10, set.Rankings[2].Importance, "clamped to ceiling")
	for _, rk := range set.Rankings {
		assert.Equal(t, "deterministic score fallback", rk.Reasoning)
	}
}

func TestReconcile(t *testing.T) {
	articles := []domain.ScoredArticle{
		{Article: domain.Article{URL: "a"}},
		{Article: domain.Article{URL: "b"}},
		{Article: domain.Article{URL: "c"}},
	}

	t.Run("follows ranking order", func(t *testing.T) {
		set := domain.RankingSet{Rankings: []domain.EditorialRanking{{URL: "c"}, {URL: "a"}, {URL: "b"}}}
		out := Reconcile(set, articles, 3)
		require.Len(t, out, 3)
		assert.Equal(t, "c", out[0].URL)
		assert.Equal(t, "a", out[1].URL)
		assert.Equal(t, "b", out[2].URL)
	})

	t.Run("appends articles the ranking missed", func(t *testing.T) {
		set := domain.RankingSet{Rankings: []domain.EditorialRanking{{URL: "b"}}}
		out := Reconcile(set, articles, 3)
		require.Len(t, out, 3)
		assert.Equal(t, "b", out[0].URL)
		assert.Equal(t, "a", out[1].URL)
		assert.Equal(t, "c", out[2].URL)
	})

	t.Run("ignores unknown urls and truncates", func(t *testing.T) {
		set := domain.RankingSet{Rankings: []domain.EditorialRanking{{URL: "x"}, {URL: "c"}, {URL: "c"}}}
		out := Reconcile(set, articles, 2)
		require.Len(t, out, 2)
		assert.Equal(t, "c", out[0].URL)
		assert.Equal(t, "a", out[1].URL)
	})
}

func TestParseRankings(t *testing.T) {
	articles := []domain.ScoredArticle{
		{Article: domain.Article{URL: "https://a.example.com"}},
		{Article: domain.Article{URL: "https://b.example.com"}},
	}

	t.Run("clamps importance and drops unknown urls", func(t *testing.T) {
		content := `{"rankings":[
			{"url":"https://a.example.com","importance":15,"reasoning":"big"},
			{"url":"https://b.example.com","importance":0,"reasoning":"small"},
			{"url":"https://hallucinated.example.com","importance":5,"reasoning":"made up"}
		]}`
		got, err := parseRankings(content, articles)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 10, got[0].Importance)
		assert.Equal(t, 1, got[1].Importance)
	})

	t.Run("duplicate urls keep first", func(t *testing.T) {
		content := `{"rankings":[
			{"url":"https://a.example.com","importance":8},
			{"url":"https://a.example.com","importance":2}
		]}`
		got, err := parseRankings(content, articles)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 8, got[0].Importance)
	})

	t.Run("nothing matching input is malformed", func(t *testing.T) {
		content := `{"rankings":[{"url":"https://other.example.com","importance":5}]}`
		_, err := parseRankings(content, articles)
		assert.ErrorIs(t, err, ErrMalformedCompletion)
	})

	t.Run("empty rankings is malformed", func(t *testing.T) {
		_, err := parseRankings(`{"rankings":[]}`, articles)
		assert.ErrorIs(t, err, ErrMalformedCompletion)
	})
}

func TestRanker_Rank(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Messages[1].Content, "Topic: nba")

		content := `{"rankings":[
			{"url":"https://b.example.com","importance":9,"reasoning":"title decided"},
			{"url":"https://a.example.com","importance":4,"reasoning":"routine"}
		]}`
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse(t, content))
	}))
	defer ts.Close()

	r := NewRanker(Config{Endpoint: ts.URL + "/v1", APIKey: "test", Model: "gpt-4o-mini", Timeout: 5 * time.Second})
	articles := []domain.ScoredArticle{
		{Article: domain.Article{Title: "A", URL: "https://a.example.com"}, Total: 0.5},
		{Article: domain.Article{Title: "B", URL: "https://b.example.com"}, Total: 0.8},
	}

	set := r.Rank(context.Background(), "nba", articles)
	assert.False(t, set.Fallback)
	assert.Equal(t, "gpt-4o-mini", set.Model)
	require.Len(t, set.Rankings, 2)
	assert.Equal(t, "https://b.example.com", set.Rankings[0].URL)
	assert.Equal(t, 9, set.Rankings[0].Importance)
}

func TestRanker_FallbackOnServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	r := NewRanker(Config{Endpoint: ts.URL + "/v1", APIKey: "test", Model: "gpt-4o-mini", Timeout: time.Second})
	articles := []domain.ScoredArticle{{Article: domain.Article{URL: "https://a.example.com"}, Total: 0.62}}

	set := r.Rank(context.Background(), "nba", articles)
	assert.True(t, set.Fallback, "server failure routes to deterministic fallback")
	require.Len(t, set.Rankings, 1)
	assert.Equal(t, 6, set.Rankings[0].Importance)
}

func TestRanker_EmptyInput(t *testing.T) {
	r := NewRanker(Config{APIKey: "test", Model: "gpt-4o-mini"})
	set := r.Rank(context.Background(), "nba", nil)
	assert.True(t, set.Fallback)
	assert.Empty(t, set.Rankings)
}

func TestWithRetry(t *testing.T) {
	policy := RetryPolicy{MaxRateLimited: 2, MaxParseRetries: 1, BaseDelay: time.Millisecond}

	t.Run("success on first attempt", func(t *testing.T) {
		calls := 0
		outcome, err := withRetry(context.Background(), policy, func() error {
			calls++
			return nil
		})
		assert.Equal(t, OutcomeOK, outcome)
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("rate limit budget exhausts", func(t *testing.T) {
		calls := 0
		outcome, err := withRetry(context.Background(), policy, func() error {
			calls++
			return &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}
		})
		assert.Equal(t, OutcomeRateLimited, outcome)
		assert.Error(t, err)
		assert.Equal(t, 3, calls, "initial attempt plus two retries")
	})

	t.Run("one retry on parse errors", func(t *testing.T) {
		calls := 0
		outcome, _ := withRetry(context.Background(), policy, func() error {
			calls++
			return ErrMalformedCompletion
		})
		assert.Equal(t, OutcomeParseError, outcome)
		assert.Equal(t, 2, calls)
	})

	t.Run("other errors fail immediately", func(t *testing.T) {
		calls := 0
		outcome, err := withRetry(context.Background(), policy, func() error {
			calls++
			return errors.New("connection refused")
		})
		assert.Equal(t, OutcomeExhausted, outcome)
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestSummarizer_Summarize(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Messages[0].Content, "bullet", "sports free profile asks for bullets")

		content := `{"summaries":[
			{"title":"Celtics win game seven","url":"https://espn.com/celtics","bullets":["Celtics 104, Heat 98","Series decided on the road"]},
			{"title":"Trade rumors swirl","url":"https://wire.example.com/trades","source_name":"Wire","bullets":["Deadline approaching"]}
		]}`
		w.Write(completionResponse(t, content))
	}))
	defer ts.Close()

	s := NewSummarizer(Config{Endpoint: ts.URL + "/v1", APIKey: "test", Model: "gpt-4o-mini"}, DefaultRetryPolicy())
	articles := []domain.Article{
		{Title: "Celtics win NBA game seven", URL: "https://espn.com/celtics", SourceName: "ESPN",
			Description: "The Boston Celtics closed out the series with a dominant fourth quarter performance on the road."},
		{Title: "NBA trade rumors swirl", URL: "https://wire.example.com/trades", SourceName: "Wire",
			Description: "Several contenders are reported to be working the phones ahead of the trade deadline this week."},
	}

	digest := s.Summarize(context.Background(), "nba", domain.TierFree, articles)
	assert.Equal(t, "nba", digest.Topic)
	require.Len(t, digest.Summaries, 2)
	assert.Equal(t, []string{"Celtics 104, Heat 98", "Series decided on the road"}, digest.Summaries[0].Bullets)
	assert.Equal(t, "ESPN", digest.Summaries[0].SourceName, "source backfilled from the matching candidate")
	assert.Equal(t, "Wire", digest.Summaries[1].SourceName)
}

func TestSummarizer_ExtractiveFallback(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write(completionResponse(t, `{"summaries":[]}`))
	}))
	defer ts.Close()

	policy := RetryPolicy{MaxRateLimited: 3, MaxParseRetries: 1, BaseDelay: time.Millisecond}
	s := NewSummarizer(Config{Endpoint: ts.URL + "/v1", APIKey: "test", Model: "gpt-4o-mini"}, policy)
	articles := []domain.Article{
		{Title: "Celtics win NBA game seven", URL: "https://espn.com/celtics", SourceName: "ESPN",
			Description: "The Boston Celtics closed out the series with a dominant fourth quarter performance on the road."},
	}

	digest := s.Summarize(context.Background(), "nba", domain.TierFree, articles)
	assert.Equal(t, 2, calls, "initial attempt plus single parse retry")
	require.Len(t, digest.Summaries, 1, "extractive fallback from the description")
	assert.Equal(t, "Celtics win NBA game seven", digest.Summaries[0].Title)
	require.Len(t, digest.Summaries[0].Bullets, 1)
	assert.Contains(t, digest.Summaries[0].Bullets[0], "fourth quarter")
}

func TestSummarizer_EmptyAfterFilter(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
	}))
	defer ts.Close()

	s := NewSummarizer(Config{Endpoint: ts.URL + "/v1", APIKey: "test", Model: "gpt-4o-mini"}, DefaultRetryPolicy())
	articles := []domain.Article{
		{Title: "Gardening tips for June", URL: "https://blog.example.com/garden", Description: "Nothing about the topic here."},
	}

	digest := s.Summarize(context.Background(), "nba", domain.TierFree, articles)
	assert.Empty(t, digest.Summaries)
	assert.Zero(t, calls, "no completion call for an empty candidate set")
}

func TestFilterRelevant(t *testing.T) {
	articles := []domain.Article{
		{Title: "What the coach said after the game", URL: "a", Description: "He said plenty."},
		{Title: "AI startups raise new rounds", URL: "b", Description: "Funding continues to flow."},
		{Title: "Artificial intelligence in medicine", URL: "c", Description: "AI tools assist radiologists."},
	}

	t.Run("single short keyword matches whole words only", func(t *testing.T) {
		got := FilterRelevant("ai", articles)
		require.Len(t, got, 2, `"ai" must not match inside "said"`)
		assert.Equal(t, "b", got[0].URL)
		assert.Equal(t, "c", got[1].URL)
	})

	t.Run("multi keyword topics match by substring", func(t *testing.T) {
		got := FilterRelevant("artificial intelligence", articles)
		require.Len(t, got, 1)
		assert.Equal(t, "c", got[0].URL)
	})

	t.Run("no usable keywords", func(t *testing.T) {
		assert.Nil(t, FilterRelevant("of", articles))
	})
}

func TestDedupEntries(t *testing.T) {
	entries := []domain.SummaryEntry{
		{Title: "Celtics win game seven in Boston", Summary: "The Celtics closed it out."},
		{Title: "Celtics win game seven thriller", Summary: "A different angle on the same game."},
		{Title: "Trade deadline nears", Summary: "The Celtics closed it out."},
		{Title: "Lakers make a move", Summary: "A genuinely different story."},
	}

	got := dedupEntries(entries)
	require.Len(t, got, 2)
	assert.Equal(t, "Celtics win game seven in Boston", got[0].Title)
	assert.Equal(t, "Lakers make a move", got[1].Title)
}
