// Package styles maps free-text topics to content categories and carries the
// per-category, per-tier style profiles that drive summarization tone,
// format and target count. Profiles are static configuration loaded from an
// embedded YAML table, not runtime state.
package styles

import (
	"strings"

	"github.com/briefwire/briefwire/pkg/domain"
)

// categoryKeywords is an ordered table; the first category whose keyword
// list contains a substring of the lowercased topic wins.
var categoryKeywords = []struct {
	category domain.Category
	keywords []string
}{
	{domain.CategorySports, []string{
		"nba", "nfl", "nhl", "mlb", "soccer", "football", "basketball",
		"baseball", "hockey", "tennis", "golf", "olympics", "f1", "ufc",
		"boxing", "cricket", "rugby", "sports",
	}},
	{domain.CategoryBusiness, []string{
		"stock", "market", "economy", "business", "finance", "crypto",
		"bitcoin", "investing", "ipo", "earnings", "startup", "trade",
		"inflation", "banking", "real estate",
	}},
	{domain.CategoryTech, []string{
		"tech", "ai", "artificial intelligence", "software", "apple",
		"google", "microsoft", "amazon", "meta", "startup", "gadget",
		"smartphone", "cybersecurity", "programming", "robotics",
	}},
	{domain.CategoryScience, []string{
		"science", "space", "nasa", "physics", "biology", "chemistry",
		"astronomy", "research", "climate", "environment", "archaeology",
	}},
	{domain.CategoryHealth, []string{
		"health", "medicine", "medical", "fitness", "nutrition", "disease",
		"vaccine", "mental health", "wellness", "cancer",
	}},
	{domain.CategoryEntertainment, []string{
		"movie", "film", "music", "celebrity", "tv", "television",
		"streaming", "hollywood", "concert", "album", "entertainment",
		"gaming", "video game",
	}},
	{domain.CategoryPolitics, []string{
		"politics", "election", "congress", "senate", "president",
		"government", "policy", "legislation", "supreme court", "campaign",
	}},
}

// Classify maps a free-text topic to a content category. Topics matching no
// keyword list classify as the default category.
func Classify(topic string) domain.Category {
	t := strings.ToLower(strings.TrimSpace(topic))
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(t, kw) {
				return entry.category
			}
		}
	}
	return domain.CategoryDefault
}
