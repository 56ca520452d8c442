package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-pkgz/lgr"
	"github.com/sashabaranov/go-openai"

	"github.com/briefwire/briefwire/pkg/content"
	"github.com/briefwire/briefwire/pkg/domain"
	"github.com/briefwire/briefwire/pkg/scoring"
	"github.com/briefwire/briefwire/pkg/styles"
)

// maxSummaryCandidates bounds the article list sent to the model per topic
const maxSummaryCandidates = 7

// Summarizer turns ranked articles into the tier-specific digest text,
// validating and deduplicating the structured model output and falling back
// to extractive summaries when the service cannot deliver.
type Summarizer struct {
	client *openai.Client
	cfg    Config
	policy RetryPolicy
}

// NewSummarizer creates a digest summarizer.
func NewSummarizer(cfg Config, policy RetryPolicy) *Summarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}
	if policy.BaseDelay == 0 {
		policy = DefaultRetryPolicy()
	}
	return &Summarizer{client: openai.NewClientWithConfig(clientCfg), cfg: cfg, policy: policy}
}

// Summarize produces the digest for one topic. The candidate set is filtered
// to articles matching at least one significant topic keyword; an empty
// surviving set yields an empty digest, never an error.
func (s *Summarizer) Summarize(ctx context.Context, topic string, tier domain.Tier, articles []domain.Article) domain.DigestSummary {
	digest := domain.DigestSummary{Topic: topic, Summaries: []domain.SummaryEntry{}}

	candidates := FilterRelevant(topic, articles)
	if len(candidates) == 0 {
		lgr.Printf("[INFO] no articles match topic keywords for %q, empty digest", topic)
		return digest
	}

	// longer descriptions give the model more to work with
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].Description) > len(candidates[j].Description)
	})
	if len(candidates) > maxSummaryCandidates {
		candidates = candidates[:maxSummaryCandidates]
	}

	category := styles.Classify(topic)
	profile := styles.ProfileFor(category, tier)

	var entries []domain.SummaryEntry
	outcome, err := withRetry(ctx, s.policy, func() error {
		var attemptErr error
		entries, attemptErr = s.complete(ctx, topic, profile, candidates)
		return attemptErr
	})

	if outcome != OutcomeOK {
		lgr.Printf("[WARN] summarization failed for topic %q (outcome %d): %v, using extractive fallback", topic, outcome, err)
		digest.Summaries = ExtractiveSummaries(candidates, profile)
		return digest
	}

	digest.Summaries = dedupEntries(entries)
	return digest
}

// summarizerSystem is the fixed part of the system prompt; the style
// profile supplies tone, format and count instructions per category/tier.
const summarizerSystem = `You are a news digest writer. Summarize the provided articles for a reader following the given topic.
%s
Respond with strict JSON only, no prose and no markdown fences:
{"summaries": [{"title": "...", "url": "...", "source_name": "...", %s}]}
Produce up to %d entries. Use only the provided articles; never invent stories. Each entry must use a distinct article.`

// complete issues one completion request and validates the structured result
func (s *Summarizer) complete(ctx context.Context, topic string, profile styles.Profile, candidates []domain.Article) ([]domain.SummaryEntry, error) {
	format := `"summary": "one paragraph"`
	if profile.Bulleted {
		format = `"bullets": ["point", "point"]`
	}
	system := fmt.Sprintf(summarizerSystem, profile.Instructions, format, profile.Count)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Topic: %s\n\nArticles:\n", topic))
	for i, a := range candidates {
		sb.WriteString(fmt.Sprintf("%d. Title: %s\n   Source: %s\n   URL: %s\n", i+1, a.Title, a.SourceName, a.URL))
		if a.Description != "" {
			sb.WriteString(fmt.Sprintf("   Description: %s\n", truncate(a.Description, 500)))
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion: %w", ErrMalformedCompletion)
	}

	return parseSummaries(resp.Choices[0].Message.Content, profile, candidates)
}

// parseSummaries extracts the JSON object, validates entries against the
// expected format and drops those failing validation. Any non-zero surviving
// count is accepted; zero is a parse failure.
func parseSummaries(respContent string, profile styles.Profile, candidates []domain.Article) ([]domain.SummaryEntry, error) {
	obj, err := extractJSONObject(respContent)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Summaries []domain.SummaryEntry `json:"summaries"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return nil, fmt.Errorf("parse summaries json: %w: %w", ErrMalformedCompletion, err)
	}

	bySource := make(map[string]domain.Article, len(candidates))
	for _, a := range candidates {
		bySource[a.URL] = a
	}

	valid := make([]domain.SummaryEntry, 0, len(parsed.Summaries))
	for _, e := range parsed.Summaries {
		if e.Title == "" {
			continue
		}
		if profile.Bulleted {
			if len(e.Bullets) == 0 {
				continue
			}
			e.Summary = ""
		} else {
			if strings.TrimSpace(e.Summary) == "" {
				continue
			}
			e.Bullets = nil
		}
		// backfill source metadata from the candidate when the model matched a URL
		if a, ok := bySource[e.URL]; ok && e.SourceName == "" {
			e.SourceName = a.SourceName
		}
		valid = append(valid, e)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no valid summary entries: %w", ErrMalformedCompletion)
	}
	return valid, nil
}

// dedupEntries removes entries with equal or near-equal normalized titles
// or near-equal normalized leading content across entries
func dedupEntries(entries []domain.SummaryEntry) []domain.SummaryEntry {
	out := make([]domain.SummaryEntry, 0, len(entries))
	seenTitles := make([]string, 0, len(entries))
	seenLeads := make([]string, 0, len(entries))

	for _, e := range entries {
		titleKey := scoring.TitleKey(e.Title)
		leadKey := leadContent(e)

		dup := false
		for _, t := range seenTitles {
			if t == titleKey {
				dup = true
				break
			}
		}
		if !dup && leadKey != "" {
			for _, l := range seenLeads {
				if l == leadKey {
					dup = true
					break
				}
			}
		}
		if dup {
			continue
		}
		seenTitles = append(seenTitles, titleKey)
		if leadKey != "" {
			seenLeads = append(seenLeads, leadKey)
		}
		out = append(out, e)
	}
	return out
}

// leadContent normalizes the first 100 chars of an entry's text for
// near-duplicate comparison
func leadContent(e domain.SummaryEntry) string {
	text := e.Summary
	if text == "" && len(e.Bullets) > 0 {
		text = strings.Join(e.Bullets, " ")
	}
	norm := scoring.NormalizeTitle(text)
	if len(norm) > 100 {
		norm = norm[:100]
	}
	return norm
}

// wordRe matches word tokens for the boundary check
var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// FilterRelevant keeps articles containing at least one significant topic
// keyword. Single-word topics must match as a whole word so short topics
// like "ai" do not hit on words such as "said".
func FilterRelevant(topic string, articles []domain.Article) []domain.Article {
	keywords := scoring.Keywords(topic)
	if len(keywords) == 0 {
		return nil
	}
	wholeWord := len(keywords) == 1

	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		text := strings.ToLower(a.Title + " " + a.Description)
		if matchesAny(text, keywords, wholeWord) {
			out = append(out, a)
		}
	}
	return out
}

// matchesAny checks keyword presence, whole-word when required
func matchesAny(text string, keywords []string, wholeWord bool) bool {
	if !wholeWord {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}
	words := wordRe.FindAllString(text, -1)
	for _, kw := range keywords {
		for _, w := range words {
			if w == kw {
				return true
			}
		}
	}
	return false
}

// ExtractiveSummaries builds degraded summaries directly from cleaned
// article descriptions, skipping garbage, truncated to 200 chars, top 3.
func ExtractiveSummaries(articles []domain.Article, profile styles.Profile) []domain.SummaryEntry {
	const maxExtractive = 3
	out := make([]domain.SummaryEntry, 0, maxExtractive)
	for _, a := range articles {
		if len(out) == maxExtractive {
			break
		}
		desc := content.Clean(a.Description)
		if content.IsGarbage(desc) {
			continue
		}
		text := truncate(desc, 200)
		entry := domain.SummaryEntry{Title: a.Title, URL: a.URL, SourceName: a.SourceName}
		if profile.Bulleted {
			entry.Bullets = []string{text}
		} else {
			entry.Summary = text
		}
		out = append(out, entry)
	}
	return out
}
