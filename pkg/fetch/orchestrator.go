// Package fetch drives the per-topic fallback chain across the article
// cache and the news providers, and fans out across topics under a shared
// rate budget. The chain is an ordered list of strategies executed in
// sequence; a topic that cannot be resolved to any articles yields an empty
// result, never an error.
package fetch

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/briefwire/briefwire/pkg/cache"
	"github.com/briefwire/briefwire/pkg/domain"
	"github.com/briefwire/briefwire/pkg/llm"
	"github.com/briefwire/briefwire/pkg/provider"
	"github.com/briefwire/briefwire/pkg/scoring"
)

// thresholds of the fallback chain
const (
	minCachedArticles = 3  // fresh cache entries below this are ignored
	minWindowArticles = 3  // primary results below this trigger window expansion
	minRequired       = 25 // combined results below this pull in the secondary provider
	shortlistSize     = 25 // articles sent to the editorial ranker
	finalCount        = 7  // articles written back and handed to the summarizer
	cacheReadLimit    = 10 // articles returned from a fresh cache hit
)

// strategy labels recorded with cache writes
const (
	labelEditorial     = "multi-source-editorial"
	labelDeterministic = "multi-source-deterministic"
)

// Store is the cache surface the orchestrator needs.
type Store interface {
	Get(ctx context.Context, topic, day, providerLabel string) (*domain.CacheEntry, error)
	Latest(ctx context.Context, topic string) (*domain.CacheEntry, error)
	Upsert(ctx context.Context, entry domain.CacheEntry) error
	GetRanking(ctx context.Context, topic, day string) (*domain.RankingSet, error)
	UpsertRanking(ctx context.Context, set domain.RankingSet) error
}

// Ranker is the editorial ranking surface the orchestrator needs.
type Ranker interface {
	Rank(ctx context.Context, topic string, articles []domain.ScoredArticle) domain.RankingSet
}

// Config holds orchestrator settings.
type Config struct {
	RequestsPerTopic int           // estimated provider requests per topic, for batch sizing
	BatchDelay       time.Duration // fixed delay between topic batches
	StaggerDelay     time.Duration // delay between topic starts inside a batch
	DefaultBatchSize int
}

// Orchestrator resolves topics to ranked article sets.
type Orchestrator struct {
	primary   provider.Provider
	secondary provider.Provider
	tertiary  provider.Provider // optional keyless fallback, may be nil
	limiter   provider.Limiter
	store     Store
	ranker    Ranker
	scorer    *scoring.Scorer
	cfg       Config
	now       func() time.Time
}

// New creates an orchestrator over the provider chain.
func New(primary, secondary, tertiary provider.Provider, limiter provider.Limiter, store Store, ranker Ranker, scorer *scoring.Scorer, cfg Config) *Orchestrator {
	if cfg.RequestsPerTopic == 0 {
		cfg.RequestsPerTopic = 3
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = 2 * time.Second
	}
	if cfg.StaggerDelay == 0 {
		cfg.StaggerDelay = 100 * time.Millisecond
	}
	if cfg.DefaultBatchSize == 0 {
		cfg.DefaultBatchSize = 5
	}
	return &Orchestrator{
		primary:   primary,
		secondary: secondary,
		tertiary:  tertiary,
		limiter:   limiter,
		store:     store,
		ranker:    ranker,
		scorer:    scorer,
		cfg:       cfg,
		now:       time.Now,
	}
}

// topicState accumulates the merged article set as strategies run
type topicState struct {
	topic    string
	articles []domain.Article
	seen     map[string]bool // URLs already merged
	done     bool            // a strategy produced a terminal result
}

// merge adds articles with previously unseen URLs
func (t *topicState) merge(articles []domain.Article) int {
	added := 0
	for _, a := range articles {
		if t.seen[a.URL] {
			continue
		}
		t.seen[a.URL] = true
		t.articles = append(t.articles, a)
		added++
	}
	return added
}

// strategy is one step of the fallback chain; it mutates state and reports
// a recoverable error that never aborts the chain
type strategy struct {
	name string
	run  func(ctx context.Context, st *topicState) error
}

// FetchTopic resolves one topic through the fallback chain:
// fresh cache, primary provider with window expansion, secondary provider,
// keyless tertiary, then dedup+score+editorial rank, cache write, and
// stale-cache rescue when everything came up empty.
func (o *Orchestrator) FetchTopic(ctx context.Context, topic string) []domain.Article {
	start := o.now()
	st := &topicState{topic: topic, seen: make(map[string]bool)}

	for _, s := range o.strategies() {
		if st.done {
			break
		}
		if err := s.run(ctx, st); err != nil {
			lgr.Printf("[WARN] strategy %s failed for topic %q: %v", s.name, topic, err)
		}
	}

	if st.done {
		return st.articles
	}

	if len(st.articles) < minCachedArticles {
		return o.staleFallback(ctx, topic)
	}

	// dedup wants the most desirable duplicate to win, so feed newest first
	merged := sortByRecency(st.articles)
	merged = scoring.DedupAcross(merged)
	scored := o.scorer.ScoreAll(merged, topic)
	shortlist := scoring.Select(scored, shortlistSize)

	set := o.rankShortlist(ctx, topic, shortlist)
	final := llm.Reconcile(set, shortlist, finalCount)

	label := labelEditorial
	if set.Fallback {
		label = labelDeterministic
	}
	o.writeBack(ctx, topic, label, final, o.now().Sub(start))

	articles := make([]domain.Article, 0, len(final))
	for _, a := range final {
		articles = append(articles, a.Article)
	}
	return articles
}

// strategies returns the ordered fallback chain for one topic
func (o *Orchestrator) strategies() []strategy {
	chain := []strategy{
		{name: "fresh-cache", run: o.freshCache},
		{name: "primary-24h", run: o.primaryWindow},
		{name: "secondary-merge", run: o.secondaryMerge},
	}
	if o.tertiary != nil {
		chain = append(chain, strategy{name: "rss-merge", run: o.tertiaryMerge})
	}
	return chain
}

// freshCache short-circuits the chain when a same-day snapshot with enough
// articles exists; zero provider calls are made in that case
func (o *Orchestrator) freshCache(ctx context.Context, st *topicState) error {
	entry, err := o.store.Get(ctx, st.topic, domain.Day(o.now()), labelEditorial)
	if errors.Is(err, cache.ErrNotFound) {
		entry, err = o.store.Get(ctx, st.topic, domain.Day(o.now()), labelDeterministic)
	}
	if errors.Is(err, cache.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entry.Articles) < minCachedArticles {
		return nil
	}

	articles := entry.Articles
	if len(articles) > cacheReadLimit {
		articles = articles[:cacheReadLimit]
	}
	st.articles = articles
	st.done = true
	lgr.Printf("[INFO] topic %q served from fresh cache (%d articles)", st.topic, len(articles))
	return nil
}

// primaryWindow queries the primary provider for 24h, expanding to 48h when
// the first window comes up short; only new URLs are merged
func (o *Orchestrator) primaryWindow(ctx context.Context, st *topicState) error {
	articles, err := o.primary.Fetch(ctx, st.topic, 1)
	if err != nil {
		// a rate-limited provider is dead for the day, no point expanding
		// the window; the next strategy takes over either way
		return err
	}
	st.merge(scoring.DedupWithin(articles))

	if len(st.articles) >= minWindowArticles {
		return nil
	}

	lgr.Printf("[DEBUG] topic %q has %d articles in 24h window, expanding to 48h", st.topic, len(st.articles))
	expanded, err := o.primary.Fetch(ctx, st.topic, 2)
	if err != nil {
		return err
	}
	st.merge(scoring.DedupWithin(expanded))
	return nil
}

// secondaryMerge pulls in the secondary provider when the primary set is
// below the minimum required threshold
func (o *Orchestrator) secondaryMerge(ctx context.Context, st *topicState) error {
	if len(st.articles) >= minRequired {
		return nil
	}
	articles, err := o.secondary.Fetch(ctx, st.topic, 2)
	if err != nil {
		return err
	}
	st.merge(scoring.DedupWithin(articles))
	return nil
}

// tertiaryMerge adds the keyless RSS provider when still short
func (o *Orchestrator) tertiaryMerge(ctx context.Context, st *topicState) error {
	if len(st.articles) >= minRequired {
		return nil
	}
	articles, err := o.tertiary.Fetch(ctx, st.topic, 2)
	if err != nil {
		return err
	}
	st.merge(scoring.DedupWithin(articles))
	return nil
}

// rankShortlist reads the day's cached editorial ranking or requests a new
// one, caching successful (non-fallback) sets per (topic, day)
func (o *Orchestrator) rankShortlist(ctx context.Context, topic string, shortlist []domain.ScoredArticle) domain.RankingSet {
	if cached, err := o.store.GetRanking(ctx, topic, domain.Day(o.now())); err == nil && !cached.Fallback {
		lgr.Printf("[DEBUG] editorial ranking for %q served from cache", topic)
		return *cached
	}

	set := o.ranker.Rank(ctx, topic, shortlist)
	if !set.Fallback {
		if err := o.store.UpsertRanking(ctx, set); err != nil {
			lgr.Printf("[WARN] failed to cache ranking for topic %q: %v", topic, err)
		}
	}
	return set
}

// writeBack stores the final article set labeled by the producing strategy
func (o *Orchestrator) writeBack(ctx context.Context, topic, label string, final []domain.ScoredArticle, took time.Duration) {
	articles := make([]domain.Article, 0, len(final))
	for _, a := range final {
		articles = append(articles, a.Article)
	}
	entry := domain.CacheEntry{
		Topic:         topic,
		Day:           domain.Day(o.now()),
		ProviderLabel: label,
		Articles:      articles,
		FetchDuration: took.Milliseconds(),
		ExpiresAt:     o.now().Add(24 * time.Hour),
	}
	if err := o.store.Upsert(ctx, entry); err != nil {
		lgr.Printf("[WARN] failed to cache articles for topic %q: %v", topic, err)
	}
}

// staleFallback serves the most recent snapshot regardless of day when all
// live strategies failed; an empty result is returned when none exists
func (o *Orchestrator) staleFallback(ctx context.Context, topic string) []domain.Article {
	entry, err := o.store.Latest(ctx, topic)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			lgr.Printf("[WARN] stale cache lookup failed for topic %q: %v", topic, err)
		}
		lgr.Printf("[INFO] topic %q resolved to zero articles", topic)
		return []domain.Article{}
	}
	lgr.Printf("[INFO] topic %q served from stale cache dated %s (%d articles)", topic, entry.Day, len(entry.Articles))
	return entry.Articles
}

// sortByRecency returns a copy ordered newest first; unparsable dates sink
func sortByRecency(articles []domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Published.After(out[j].Published) })
	return out
}
