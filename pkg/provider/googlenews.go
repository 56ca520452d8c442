package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/briefwire/briefwire/pkg/content"
	"github.com/briefwire/briefwire/pkg/domain"
)

const googleNewsBase = "https://news.google.com/rss/search"

// GoogleNewsRSS is a keyless adapter over the Google News search feed,
// used as the last live strategy when the API-backed providers fail or
// run out of quota.
type GoogleNewsRSS struct {
	baseURL string
	limiter Limiter
	client  *http.Client
	now     func() time.Time
}

// NewGoogleNewsRSS creates the RSS search adapter.
func NewGoogleNewsRSS(limiter Limiter, timeout time.Duration) *GoogleNewsRSS {
	return &GoogleNewsRSS{
		baseURL: googleNewsBase,
		limiter: limiter,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		now: time.Now,
	}
}

// Name implements Provider.
func (g *GoogleNewsRSS) Name() string { return "google-news-rss" }

// Fetch retrieves and parses the search feed for a topic. The feed has no
// date filter parameter, so the lookback window is applied locally.
func (g *GoogleNewsRSS) Fetch(ctx context.Context, topic string, daysBack int) ([]domain.Article, error) {
	if !g.limiter.Allow(g.Name()) {
		return nil, fmt.Errorf("google news rss quota exhausted: %w", ErrRateLimited)
	}

	q := url.Values{}
	q.Set("q", topic)
	q.Set("hl", "en-US")
	q.Set("gl", "US")
	q.Set("ceid", "US:en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create google news request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; briefwire/1.0)")

	g.limiter.Use(g.Name())
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google news request: %w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("google news returned 429: %w", ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("google news returned status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse google news feed: %w: %w", ErrMalformedResponse, err)
	}

	cutoff := g.now().AddDate(0, 0, -daysBack)
	articles := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}
		if !published.IsZero() && published.Before(cutoff) {
			continue
		}

		desc := content.Clean(item.Description)
		if content.IsGarbage(desc) {
			desc = ""
		}
		articles = append(articles, domain.Article{
			Title:       stripFeedSource(item.Title),
			Description: desc,
			URL:         item.Link,
			Published:   published,
			SourceName:  feedSource(item),
		})
	}
	return articles, nil
}

// google news titles carry the publication as a " - Source" suffix
func stripFeedSource(title string) string {
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		return strings.TrimSpace(title[:idx])
	}
	return title
}

// feedSource extracts the publication name from the item, preferring the
// explicit source element over the title suffix
func feedSource(item *gofeed.Item) string {
	if item.Custom != nil {
		if src, ok := item.Custom["source"]; ok && src != "" {
			return src
		}
	}
	if idx := strings.LastIndex(item.Title, " - "); idx > 0 {
		return strings.TrimSpace(item.Title[idx+3:])
	}
	return "Google News"
}
