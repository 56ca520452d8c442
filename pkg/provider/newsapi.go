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

const newsAPIBase = "https://newsapi.org/v2"

// NewsAPI is the adapter for newsapi.org's /v2/everything search endpoint.
type NewsAPI struct {
	apiKey   string
	baseURL  string
	pageSize int
	limiter  Limiter
	client   *http.Client
	now      func() time.Time
}

// NewNewsAPI creates a NewsAPI adapter with its own rate-limit accounting.
func NewNewsAPI(apiKey string, pageSize int, limiter Limiter, timeout time.Duration) *NewsAPI {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &NewsAPI{
		apiKey:   apiKey,
		baseURL:  newsAPIBase,
		pageSize: pageSize,
		limiter:  limiter,
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// Name implements Provider.
func (n *NewsAPI) Name() string { return "newsapi" }

// newsAPIResponse mirrors the provider's wire format
type newsAPIResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Fetch queries the everything endpoint for a topic within the lookback
// window and normalizes results, dropping articles with garbage descriptions.
func (n *NewsAPI) Fetch(ctx context.Context, topic string, daysBack int) ([]domain.Article, error) {
	if !n.limiter.Allow(n.Name()) {
		return nil, fmt.Errorf("newsapi daily quota exhausted: %w", ErrRateLimited)
	}

	from := n.now().AddDate(0, 0, -daysBack).UTC().Format("2006-01-02")
	q := url.Values{}
	q.Set("q", topic)
	q.Set("from", from)
	q.Set("language", "en")
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", strconv.Itoa(n.pageSize))
	q.Set("apiKey", n.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/everything?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create newsapi request: %w", err)
	}

	n.limiter.Use(n.Name())
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("newsapi returned 429: %w", ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("newsapi returned status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var apiResp newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode newsapi response: %w: %w", ErrMalformedResponse, err)
	}
	if apiResp.Status != "ok" {
		return nil, fmt.Errorf("newsapi error status %q (%s): %w", apiResp.Status, apiResp.Message, ErrMalformedResponse)
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

// parseWhen parses provider timestamps, returning zero time for unparsable
// values so the scorer assigns its neutral recency
func parseWhen(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
