package scoring

import "strings"

// source quality tiers, matched by substring against article URL and source name.
// Tier 1 is wire services and papers of record, tier 2 major outlets,
// tier 3 reputable but narrower publications. Anything else scores default.
const (
	tier1Score   = 1.0
	tier2Score   = 0.8
	tier3Score   = 0.6
	defaultScore = 0.4
)

var tier1Sources = []string{
	"reuters", "apnews", "associated press", "afp", "bloomberg",
	"wsj.com", "wall street journal", "ft.com", "financial times",
	"nytimes", "new york times", "bbc",
}

var tier2Sources = []string{
	"washingtonpost", "washington post", "theguardian", "guardian",
	"cnn", "cnbc", "economist", "npr", "axios", "politico",
	"aljazeera", "time.com", "forbes", "theatlantic",
}

var tier3Sources = []string{
	"techcrunch", "theverge", "wired", "arstechnica", "engadget",
	"espn", "theathletic", "skysports", "bleacherreport",
	"businessinsider", "marketwatch", "fortune", "variety",
	"hollywoodreporter", "scientificamerican", "nature.com", "newscientist",
}

// preferredSources lists publications preferred for specific topic keywords;
// a match earns the fixed additive boost from Weights.PreferredBoost.
var preferredSources = map[string][]string{
	"nba":        {"espn", "theathletic", "bleacherreport", "nba.com"},
	"nfl":        {"espn", "theathletic", "nfl.com"},
	"soccer":     {"espn", "skysports", "theguardian", "theathletic"},
	"football":   {"espn", "skysports", "theathletic"},
	"tennis":     {"espn", "atptour", "wtatennis"},
	"stocks":     {"bloomberg", "wsj.com", "cnbc", "marketwatch"},
	"crypto":     {"coindesk", "cointelegraph", "bloomberg"},
	"economy":    {"bloomberg", "ft.com", "economist", "wsj.com"},
	"tech":       {"techcrunch", "theverge", "arstechnica", "wired"},
	"ai":         {"techcrunch", "theverge", "wired", "technologyreview"},
	"science":    {"nature.com", "scientificamerican", "newscientist"},
	"health":     {"statnews", "webmd", "nih.gov", "reuters"},
	"climate":    {"theguardian", "insideclimatenews", "reuters"},
	"politics":   {"politico", "axios", "thehill", "reuters"},
	"movies":     {"variety", "hollywoodreporter", "deadline"},
	"music":      {"billboard", "rollingstone", "pitchfork"},
}

// SourceQuality returns the tiered reputation score for an article,
// matching tier substrings against both the URL and the source name.
func SourceQuality(url, sourceName string) float64 {
	haystack := strings.ToLower(url + " " + sourceName)
	for _, s := range tier1Sources {
		if strings.Contains(haystack, s) {
			return tier1Score
		}
	}
	for _, s := range tier2Sources {
		if strings.Contains(haystack, s) {
			return tier2Score
		}
	}
	for _, s := range tier3Sources {
		if strings.Contains(haystack, s) {
			return tier3Score
		}
	}
	return defaultScore
}

// IsPreferredSource reports whether the article's URL or source name matches
// a topic-specific preferred publication list.
func IsPreferredSource(topic, url, sourceName string) bool {
	haystack := strings.ToLower(url + " " + sourceName)
	topicLower := strings.ToLower(topic)
	for key, sources := range preferredSources {
		if !strings.Contains(topicLower, key) {
			continue
		}
		for _, s := range sources {
			if strings.Contains(haystack, s) {
				return true
			}
		}
	}
	return false
}
