package domain

// Tier is the service level controlling summary count and format.
type Tier string

// service tiers
const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// Category is a content category a topic classifies into, selecting
// tone and format rules for summarization.
type Category string

// known content categories
const (
	CategorySports        Category = "sports"
	CategoryBusiness      Category = "business"
	CategoryTech          Category = "tech"
	CategoryScience       Category = "science"
	CategoryHealth        Category = "health"
	CategoryEntertainment Category = "entertainment"
	CategoryPolitics      Category = "politics"
	CategoryDefault       Category = "default"
)

// SummaryEntry is one summarized article in a digest. Bullets is populated
// for bulleted formats, Summary (a paragraph) for the rest; never both.
type SummaryEntry struct {
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	SourceName string   `json:"source_name"`
	Summary    string   `json:"summary,omitempty"`
	Bullets    []string `json:"bullets,omitempty"`
}

// DigestSummary is the final per-topic payload delivered downstream.
// No two entries share a normalized title or near-duplicate content.
type DigestSummary struct {
	Topic     string         `json:"topic"`
	Summaries []SummaryEntry `json:"summaries"`
}
