package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/briefwire/briefwire/pkg/content"
	"github.com/briefwire/briefwire/pkg/domain"
)

const gnewsBase = "https://gnews.io/api/v4"

// GNews is the adapter for the gnews.io search API, used as the secondary
// provider when the primary comes up short.
type GNews struct {
	apiKey     string
	baseURL    string
	maxResults int
	limiter    Limiter
	client     *http.Client
	now        func() time.Time
}

// NewGNews creates a GNews adapter with its own rate-limit accounting.
func NewGNews(apiKey string, maxResults int, limiter Limiter, timeout time.Duration) *GNews {
	if maxResults <= 0 {
		maxResults = 25
	}
	return &GNews{
		apiKey:     apiKey,
		baseURL:    gnewsBase,
		maxResults: maxResults,
		limiter:    limiter,
		client:     &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Name implements Provider.
func (g *GNews) Name() string { return "gnews" }

// gnewsResponse mirrors the provider's wire format
type gnewsResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Fetch queries the search endpoint and normalizes results. GNews signals
// quota exhaustion with both 403 and 429, both mapped to ErrRateLimited.
func (g *GNews) Fetch(ctx context.Context, topic string, daysBack int) ([]domain.Article, error) {
	if !g.limiter.Allow(g.Name()) {
		return nil, fmt.Errorf("gnews daily quota exhausted: %w", ErrRateLimited)
	}

	from := g.now().AddDate(0, 0, -daysBack).UTC().Format(time.RFC3339)
	q := url.Values{}
	q.Set("q", topic)
	q.Set("from", from)
	q.Set("lang", "en")
	q.Set("max", strconv.Itoa(g.maxResults))
	q.Set("apikey", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create gnews request: %w", err)
	}

	g.limiter.Use(g.Name())
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gnews request: %w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests, http.StatusForbidden:
		return nil, fmt.Errorf("gnews returned %d: %w", resp.StatusCode, ErrRateLimited)
	default:
		return nil, fmt.Errorf("gnews returned status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var apiResp gnewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode gnews response: %w: %w", ErrMalformedResponse, err)
	}

	articles := make([]domain.Article, 0, len(apiResp.Articles))
	for _, a := range apiResp.Articles {
		if a.Title == "" || a.URL == "" {
			continue
		}
		desc := content.Clean(a.Description)
		if content.IsGarbage(desc) {
			desc = ""
		}
		articles = append(articles, domain.Article{
			Title:       a.Title,
			Description: desc,
			URL:         a.URL,
			Published:   parseWhen(a.PublishedAt),
			SourceName:  a.Source.Name,
		})
	}
	return articles, nil
}
