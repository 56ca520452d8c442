// Package scoring ranks articles for a topic by combining keyword relevance,
// recency decay, source reputation and preferred-source boosts, and collapses
// near-duplicate articles within and across providers.
package scoring

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/briefwire/briefwire/pkg/domain"
)

// Weights holds the scoring coefficients. The defaults are tuned empirically,
// not structurally required, so they are configurable rather than constants.
type Weights struct {
	Relevance      float64 `yaml:"relevance" json:"relevance" jsonschema:"default=0.45,description=Weight of keyword relevance in the total score"`
	Recency        float64 `yaml:"recency" json:"recency" jsonschema:"default=0.30,description=Weight of recency in the total score"`
	SourceQuality  float64 `yaml:"source_quality" json:"source_quality" jsonschema:"default=0.25,description=Weight of source quality in the total score"`
	PreferredBoost float64 `yaml:"preferred_boost" json:"preferred_boost" jsonschema:"default=0.15,description=Additive boost for topic-preferred sources"`
	HalfLifeHours  float64 `yaml:"half_life_hours" json:"half_life_hours" jsonschema:"default=24,description=Recency decay half-life in hours"`
}

// DefaultWeights returns the standard scoring coefficients.
func DefaultWeights() Weights {
	return Weights{Relevance: 0.45, Recency: 0.30, SourceQuality: 0.25, PreferredBoost: 0.15, HalfLifeHours: 24}
}

// Scorer computes deterministic ranking scores for articles against a topic.
type Scorer struct {
	weights Weights
	now     func() time.Time
}

// NewScorer creates a scorer with the given weights, filling zero values
// from the defaults.
func NewScorer(w Weights) *Scorer {
	def := DefaultWeights()
	if w.Relevance == 0 {
		w.Relevance = def.Relevance
	}
	if w.Recency == 0 {
		w.Recency = def.Recency
	}
	if w.SourceQuality == 0 {
		w.SourceQuality = def.SourceQuality
	}
	if w.PreferredBoost == 0 {
		w.PreferredBoost = def.PreferredBoost
	}
	if w.HalfLifeHours == 0 {
		w.HalfLifeHours = def.HalfLifeHours
	}
	return &Scorer{weights: w, now: time.Now}
}

// shortTokens lists short tokens that carry meaning and survive the
// minimum keyword length cut
var shortTokens = map[string]bool{
	"ai": true, "us": true, "uk": true, "eu": true, "un": true,
	"nba": true, "nfl": true, "nhl": true, "mlb": true, "f1": true,
	"ufc": true, "ipo": true, "gdp": true, "fed": true, "oil": true,
	"war": true, "tax": true,
}

// Keywords splits a topic into scoring keywords, dropping words of two
// characters or fewer unless they are on the meaningful short-token allowlist.
func Keywords(topic string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(topic)) {
		w = strings.Trim(w, `"'.,!?()`)
		if w == "" {
			continue
		}
		if len(w) <= 2 && !shortTokens[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Score computes all component scores for one article independently.
func (s *Scorer) Score(a domain.Article, topic string) domain.ScoredArticle {
	scored := domain.ScoredArticle{
		Article:       a,
		Relevance:     relevance(a, Keywords(topic)),
		Recency:       s.recency(a.Published),
		SourceQuality: SourceQuality(a.URL, a.SourceName),
	}
	if IsPreferredSource(topic, a.URL, a.SourceName) {
		scored.PreferredBoost = s.weights.PreferredBoost
	}
	scored.Total = s.weights.Relevance*scored.Relevance +
		s.weights.Recency*scored.Recency +
		s.weights.SourceQuality*scored.SourceQuality +
		scored.PreferredBoost
	return scored
}

// ScoreAll scores every article and returns the set sorted by total
// score descending.
func (s *Scorer) ScoreAll(articles []domain.Article, topic string) []domain.ScoredArticle {
	scored := make([]domain.ScoredArticle, 0, len(articles))
	for _, a := range articles {
		scored = append(scored, s.Score(a, topic))
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Total > scored[j].Total })
	return scored
}

// Select picks up to n articles from a scored, sorted set, guaranteeing the
// highly relevant subset (relevance > 0.3) gets priority before remaining
// slots are filled from the rest.
func Select(scored []domain.ScoredArticle, n int) []domain.ScoredArticle {
	if len(scored) <= n {
		return scored
	}
	relevant := make([]domain.ScoredArticle, 0, n)
	rest := make([]domain.ScoredArticle, 0, len(scored))
	for _, a := range scored {
		if a.Relevance > 0.3 {
			relevant = append(relevant, a)
		} else {
			rest = append(rest, a)
		}
	}
	out := make([]domain.ScoredArticle, 0, n)
	for _, a := range relevant {
		if len(out) == n {
			break
		}
		out = append(out, a)
	}
	for _, a := range rest {
		if len(out) == n {
			break
		}
		out = append(out, a)
	}
	return out
}

// relevance accumulates weighted keyword hits normalized to [0,1]:
// exact title substring 3.0, partial title word 2.0, exact description
// substring 1.0, partial description word 0.5.
func relevance(a domain.Article, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	title := strings.ToLower(a.Title)
	desc := strings.ToLower(a.Description)
	titleWords := strings.Fields(title)
	descWords := strings.Fields(desc)

	var total float64
	for _, kw := range keywords {
		switch {
		case strings.Contains(title, kw):
			total += 3.0
		case partialWordMatch(titleWords, kw):
			total += 2.0
		}
		switch {
		case strings.Contains(desc, kw):
			total += 1.0
		case partialWordMatch(descWords, kw):
			total += 0.5
		}
	}
	return math.Min(1, total/(float64(len(keywords))*3))
}

// partialWordMatch reports whether any word shares a significant overlap
// with the keyword (one contains the other, both at least 3 characters)
func partialWordMatch(words []string, kw string) bool {
	if len(kw) < 3 {
		return false
	}
	for _, w := range words {
		w = strings.Trim(w, `"'.,!?()`)
		if len(w) < 3 {
			continue
		}
		if strings.Contains(w, kw) || strings.Contains(kw, w) {
			return true
		}
	}
	return false
}

// recency is exponential decay by age with the configured half-life;
// articles without a parsable publish time score a neutral 0.5
func (s *Scorer) recency(published time.Time) float64 {
	if published.IsZero() {
		return 0.5
	}
	ageHours := s.now().Sub(published).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	score := math.Exp(-ageHours / s.weights.HalfLifeHours * math.Ln2)
	return math.Max(0, math.Min(1, score))
}
