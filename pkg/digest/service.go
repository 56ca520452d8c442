// Package digest is the inbound surface of the pipeline: it turns a topic
// string and a service tier into an ordered set of article summaries,
// wiring the fetch orchestrator to the summarizer.
package digest

import (
	"context"

	"github.com/go-pkgz/lgr"

	"github.com/briefwire/briefwire/pkg/domain"
	"github.com/briefwire/briefwire/pkg/fetch"
)

// Fetcher resolves a topic to its ranked article set.
type Fetcher interface {
	FetchTopic(ctx context.Context, topic string) []domain.Article
	FetchAll(ctx context.Context, topics []string) fetch.BatchResult
}

// Summarizer produces the tier-specific digest text for a topic.
type Summarizer interface {
	Summarize(ctx context.Context, topic string, tier domain.Tier, articles []domain.Article) domain.DigestSummary
}

// Service assembles per-topic digests. It never fails a topic with an
// error; an unresolvable topic yields a digest with zero summaries.
type Service struct {
	fetcher    Fetcher
	summarizer Summarizer
}

// NewService creates the digest service.
func NewService(fetcher Fetcher, summarizer Summarizer) *Service {
	return &Service{fetcher: fetcher, summarizer: summarizer}
}

// GetDigest resolves one topic to a tier-specific digest.
func (s *Service) GetDigest(ctx context.Context, topic string, tier domain.Tier) domain.DigestSummary {
	articles := s.fetcher.FetchTopic(ctx, topic)
	if len(articles) == 0 {
		return domain.DigestSummary{Topic: topic, Summaries: []domain.SummaryEntry{}}
	}
	return s.summarizer.Summarize(ctx, topic, tier, articles)
}

// GetDigests resolves a batch of topics, fanning out fetches under the
// shared rate budget and summarizing each topic's result. One topic's
// failure never affects the others.
func (s *Service) GetDigests(ctx context.Context, topics []string, tier domain.Tier) []domain.DigestSummary {
	fetched := s.fetcher.FetchAll(ctx, topics)

	digests := make([]domain.DigestSummary, 0, len(topics))
	for _, topic := range topics {
		if err, failed := fetched.Errors[topic]; failed {
			lgr.Printf("[WARN] topic %q failed to fetch: %v", topic, err)
		}
		articles := fetched.Articles[topic]
		if len(articles) == 0 {
			digests = append(digests, domain.DigestSummary{Topic: topic, Summaries: []domain.SummaryEntry{}})
			continue
		}
		digests = append(digests, s.summarizer.Summarize(ctx, topic, tier, articles))
	}
	return digests
}
