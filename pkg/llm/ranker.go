// Package llm holds the completion-service consumers: the editorial ranker
// that re-ranks a scored shortlist by newsworthiness, and the summarizer that
// produces the tier-specific digest text. Both degrade deterministically when
// the service fails; neither surfaces an error the caller must special-case.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/sashabaranov/go-openai"

	"github.com/briefwire/briefwire/pkg/domain"
)

// Config holds completion-service settings shared by ranker and summarizer.
type Config struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration // hard deadline for the editorial ranking call
}

// Ranker asks the completion service for a 1-10 editorial importance
// re-rank of a scored shortlist, with a deterministic fallback.
type Ranker struct {
	client *openai.Client
	cfg    Config
}

// NewRanker creates an editorial ranker.
func NewRanker(cfg Config) *Ranker {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Ranker{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}
}

const rankerSystemPrompt = `You are a news editor ranking articles by editorial importance for a reader following a specific topic.
Rate each article with an integer importance from 1 to 10:
- 9-10: major development every follower of the topic must know
- 6-8: significant, worth a prominent slot
- 3-5: routine coverage
- 1-2: marginal or tangential

Respond with a JSON object: {"rankings": [{"url": "...", "importance": N, "reasoning": "one sentence"}]}.
Cover EVERY article from the input exactly once. Reasoning is one sentence, under 120 characters.`

// rankerPayload is the compact per-article view sent to the model
type rankerPayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Source      string  `json:"source"`
	PublishedAt string  `json:"published_at,omitempty"`
	URL         string  `json:"url"`
	Score       float64 `json:"score"`
}

// Rank requests an editorial re-rank of the shortlist under the configured
// hard timeout. Every failure mode routes to the deterministic fallback,
// so the returned set is always usable downstream.
func (r *Ranker) Rank(ctx context.Context, topic string, articles []domain.ScoredArticle) domain.RankingSet {
	if len(articles) == 0 {
		return domain.RankingSet{Topic: topic, RankedAt: time.Now(), Fallback: true}
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	set, err := r.rank(ctx, topic, articles)
	if err != nil {
		lgr.Printf("[WARN] editorial ranking failed for topic %q, using deterministic fallback: %v", topic, err)
		return FallbackRanking(topic, articles)
	}
	return set
}

// rank performs the completion call and validates the result
func (r *Ranker) rank(ctx context.Context, topic string, articles []domain.ScoredArticle) (domain.RankingSet, error) {
	payload := make([]rankerPayload, 0, len(articles))
	for _, a := range articles {
		p := rankerPayload{
			Title:       a.Title,
			Description: truncate(a.Description, 200),
			Source:      a.SourceName,
			URL:         a.URL,
			Score:       a.Total,
		}
		if !a.Published.IsZero() {
			p.PublishedAt = a.Published.UTC().Format(time.RFC3339)
		}
		payload = append(payload, p)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Topic: %s\n\nArticles to rank:\n", topic))
	enc := json.NewEncoder(&sb)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return domain.RankingSet{}, fmt.Errorf("encode payload: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:       r.cfg.Model,
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rankerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.RankingSet{}, fmt.Errorf("%w: %w", ErrCompletionTimeout, err)
		}
		return domain.RankingSet{}, fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.RankingSet{}, fmt.Errorf("empty completion: %w", ErrMalformedCompletion)
	}

	rankings, err := parseRankings(resp.Choices[0].Message.Content, articles)
	if err != nil {
		return domain.RankingSet{}, err
	}

	return domain.RankingSet{
		Topic:    topic,
		Rankings: rankings,
		Model:    r.cfg.Model,
		RankedAt: time.Now(),
	}, nil
}

// parseRankings extracts and validates the ranking array; entries for URLs
// not in the input are dropped, importance is clamped to [1,10]
func parseRankings(content string, articles []domain.ScoredArticle) ([]domain.EditorialRanking, error) {
	obj, err := extractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Rankings []domain.EditorialRanking `json:"rankings"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return nil, fmt.Errorf("parse rankings json: %w: %w", ErrMalformedCompletion, err)
	}
	if len(parsed.Rankings) == 0 {
		return nil, fmt.Errorf("empty rankings array: %w", ErrMalformedCompletion)
	}

	known := make(map[string]bool, len(articles))
	for _, a := range articles {
		known[a.URL] = true
	}

	valid := make([]domain.EditorialRanking, 0, len(parsed.Rankings))
	seen := make(map[string]bool, len(parsed.Rankings))
	for _, rk := range parsed.Rankings {
		if !known[rk.URL] || seen[rk.URL] {
			continue
		}
		if rk.Importance < 1 {
			rk.Importance = 1
		}
		if rk.Importance > 10 {
			rk.Importance = 10
		}
		seen[rk.URL] = true
		valid = append(valid, rk)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no rankings matched input articles: %w", ErrMalformedCompletion)
	}
	return valid, nil
}

// FallbackRanking derives importance deterministically from the total score:
// round(clamp(total*10, 1, 10)). Usable downstream without special-casing.
func FallbackRanking(topic string, articles []domain.ScoredArticle) domain.RankingSet {
	rankings := make([]domain.EditorialRanking, 0, len(articles))
	for _, a := range articles {
		rankings = append(rankings, domain.EditorialRanking{
			URL:        a.URL,
			Importance: fallbackImportance(a.Total),
			Reasoning:  "deterministic score fallback",
		})
	}
	return domain.RankingSet{Topic: topic, Rankings: rankings, RankedAt: time.Now(), Fallback: true}
}

// fallbackImportance maps a total score to the 1-10 importance scale
func fallbackImportance(total float64) int {
	v := math.Round(math.Max(1, math.Min(10, total*10)))
	return int(v)
}

// Reconcile maps the ranking's URL order back to full scored articles,
// appends any input article missing from the ranking, and truncates to n.
func Reconcile(set domain.RankingSet, articles []domain.ScoredArticle, n int) []domain.ScoredArticle {
	byURL := make(map[string]domain.ScoredArticle, len(articles))
	for _, a := range articles {
		byURL[a.URL] = a
	}

	out := make([]domain.ScoredArticle, 0, len(articles))
	used := make(map[string]bool, len(articles))
	for _, rk := range set.Rankings {
		a, ok := byURL[rk.URL]
		if !ok || used[rk.URL] {
			continue
		}
		used[rk.URL] = true
		out = append(out, a)
	}
	// defensive completeness: keep inputs the model forgot
	for _, a := range articles {
		if !used[a.URL] {
			out = append(out, a)
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}
