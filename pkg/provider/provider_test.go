package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewsAPI_Fetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "nba", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		assert.Equal(t, "publishedAt", r.URL.Query().Get("sortBy"))
		assert.Equal(t, "25", r.URL.Query().Get("pageSize"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","articles":[
			{"source":{"name":"ESPN"},"title":"Celtics win game seven",
			 "description":"The Boston Celtics closed out the series with a dominant fourth quarter performance on the road.",
			 "url":"https://espn.com/celtics","publishedAt":"2025-06-15T10:00:00Z"},
			{"source":{"name":"Wire"},"title":"Trade rumors swirl",
			 "description":"BREAKING NEWS ALERT",
			 "url":"https://wire.example.com/trades","publishedAt":"2025-06-15T09:00:00Z"},
			{"source":{"name":"Empty"},"title":"","description":"x","url":"https://gone.example.com"}
		]}`))
	}))
	defer ts.Close()

	p := NewNewsAPI("test-key", 25, NewWindowLimiter(nil), 5*time.Second)
	p.baseURL = ts.URL

	articles, err := p.Fetch(context.Background(), "nba", 1)
	require.NoError(t, err)
	require.Len(t, articles, 2, "titleless article dropped")

	assert.Equal(t, "Celtics win game seven", articles[0].Title)
	assert.Equal(t, "ESPN", articles[0].SourceName)
	assert.Equal(t, time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), articles[0].Published)
	assert.Contains(t, articles[0].Description, "fourth quarter")

	assert.Equal(t, "Trade rumors swirl", articles[1].Title)
	assert.Empty(t, articles[1].Description, "garbage description blanked, article kept")
}

func TestNewsAPI_RateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	p := NewNewsAPI("test-key", 25, NewWindowLimiter(nil), 5*time.Second)
	p.baseURL = ts.URL

	_, err := p.Fetch(context.Background(), "nba", 1)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestNewsAPI_QuotaExhausted(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write([]byte(`{"status":"ok","articles":[]}`))
	}))
	defer ts.Close()

	limiter := NewWindowLimiter(map[string]int{"newsapi": 0})
	p := NewNewsAPI("test-key", 25, limiter, 5*time.Second)
	p.baseURL = ts.URL

	_, err := p.Fetch(context.Background(), "nba", 1)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Zero(t, calls, "no request made when quota exhausted")
}

func TestNewsAPI_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"error","message":"apiKeyInvalid"}`))
	}))
	defer ts.Close()

	p := NewNewsAPI("bad-key", 25, NewWindowLimiter(nil), 5*time.Second)
	p.baseURL = ts.URL

	_, err := p.Fetch(context.Background(), "nba", 1)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Contains(t, err.Error(), "apiKeyInvalid")
}

func TestNewsAPI_ServerDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	p := NewNewsAPI("test-key", 25, NewWindowLimiter(nil), 5*time.Second)
	p.baseURL = ts.URL

	_, err := p.Fetch(context.Background(), "nba", 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGNews_Fetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "climate change", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		w.Write([]byte(`{"articles":[
			{"title":"Heatwave records broken across Europe",
			 "description":"Meteorologists recorded the hottest June temperatures in decades across several European capitals this week.",
			 "url":"https://example.com/heatwave","publishedAt":"2025-06-15T08:00:00Z",
			 "source":{"name":"Example News"}}
		]}`))
	}))
	defer ts.Close()

	p := NewGNews("test-key", 25, NewWindowLimiter(nil), 5*time.Second)
	p.baseURL = ts.URL

	articles, err := p.Fetch(context.Background(), "climate change", 1)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Heatwave records broken across Europe", articles[0].Title)
	assert.Equal(t, "Example News", articles[0].SourceName)
}

func TestGNews_ForbiddenMeansRateLimited(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusTooManyRequests} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		p := NewGNews("test-key", 25, NewWindowLimiter(nil), 5*time.Second)
		p.baseURL = ts.URL

		_, err := p.Fetch(context.Background(), "nba", 1)
		assert.ErrorIs(t, err, ErrRateLimited, "status %d", status)
		ts.Close()
	}
}

func TestGoogleNewsRSS_Fetch(t *testing.T) {
	now := time.Now().UTC()
	fresh := now.Add(-2 * time.Hour).Format(time.RFC1123Z)
	stale := now.Add(-10 * 24 * time.Hour).Format(time.RFC1123Z)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "nba", r.URL.Query().Get("q"))
		assert.Equal(t, "US:en", r.URL.Query().Get("ceid"))
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>search results</title>
<item>
  <title>Lakers land veteran guard in three team deal - ESPN</title>
  <link>https://news.example.com/lakers-deal</link>
  <pubDate>` + fresh + `</pubDate>
  <description>The Lakers completed a three team trade on Friday that brings a veteran guard to Los Angeles before the deadline.</description>
</item>
<item>
  <title>Old preseason story - Some Site</title>
  <link>https://news.example.com/old</link>
  <pubDate>` + stale + `</pubDate>
  <description>An old story that falls outside the lookback window and should be filtered.</description>
</item>
</channel></rss>`))
	}))
	defer ts.Close()

	p := NewGoogleNewsRSS(NewWindowLimiter(nil), 5*time.Second)
	p.baseURL = ts.URL

	articles, err := p.Fetch(context.Background(), "nba", 2)
	require.NoError(t, err)
	require.Len(t, articles, 1, "stale item filtered by lookback window")
	assert.Equal(t, "Lakers land veteran guard in three team deal", articles[0].Title, "source suffix stripped")
	assert.Equal(t, "ESPN", articles[0].SourceName)
}

func TestWindowLimiter(t *testing.T) {
	current := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	l := NewWindowLimiter(map[string]int{"newsapi": 2})
	l.now = func() time.Time { return current }

	assert.True(t, l.Allow("newsapi"))
	assert.Equal(t, 2, l.Remaining("newsapi"))

	l.Use("newsapi")
	l.Use("newsapi")
	assert.False(t, l.Allow("newsapi"))
	assert.Equal(t, 0, l.Remaining("newsapi"))

	// quota returns after the rolling window elapses
	current = current.Add(25 * time.Hour)
	assert.True(t, l.Allow("newsapi"))
	assert.Equal(t, 2, l.Remaining("newsapi"))
}

func TestWindowLimiter_Unlimited(t *testing.T) {
	l := NewWindowLimiter(nil)
	assert.True(t, l.Allow("anything"))
	l.Use("anything")
	assert.True(t, l.Allow("anything"))
	assert.Equal(t, 1<<20, l.Remaining("anything"))
}

func TestParseWhen(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-06-15T10:00:00Z", time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)},
		{"2025-06-15 10:00:00", time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)},
		{"not a date", time.Time{}},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseWhen(tt.in), "input %q", tt.in)
	}
}
