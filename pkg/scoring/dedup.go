package scoring

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/briefwire/briefwire/pkg/domain"
)

// titlePrefixLen is the number of normalized-title characters used as the
// near-duplicate key. Titles shorter than this compare in full.
const titlePrefixLen = 20

// NormalizeTitle lowercases a title and strips everything but letters,
// digits and single spaces, so that punctuation and casing differences
// between providers do not defeat duplicate detection.
func NormalizeTitle(title string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// TitleKey returns the normalized-title prefix used as the near-duplicate key.
func TitleKey(title string) string {
	norm := NormalizeTitle(title)
	if len(norm) > titlePrefixLen {
		return norm[:titlePrefixLen]
	}
	return norm
}

// DedupWithin collapses duplicates inside one provider's result set.
// An article is dropped when its normalized title equals or prefix-overlaps
// any previously kept title. First seen wins.
func DedupWithin(articles []domain.Article) []domain.Article {
	seen := make([]string, 0, len(articles))
	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		norm := NormalizeTitle(a.Title)
		if norm == "" {
			continue
		}
		dup := false
		for _, s := range seen {
			if s == norm || strings.HasPrefix(s, TitleKey(a.Title)) || strings.HasPrefix(norm, prefixOf(s)) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, norm)
		out = append(out, a)
	}
	return out
}

// DedupAcross collapses duplicates across providers using a dual key of
// title prefix and URL host+path. An article is dropped when either the full
// dual key or the title prefix alone matches an accepted article. First seen
// wins, so callers must feed articles pre-sorted by desirability.
func DedupAcross(articles []domain.Article) []domain.Article {
	seenKeys := make(map[string]bool, len(articles))
	seenTitles := make(map[string]bool, len(articles))
	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		titleKey := TitleKey(a.Title)
		if titleKey == "" {
			continue
		}
		dualKey := titleKey + "|" + urlKey(a.URL)
		if seenKeys[dualKey] || seenTitles[titleKey] {
			continue
		}
		seenKeys[dualKey] = true
		seenTitles[titleKey] = true
		out = append(out, a)
	}
	return out
}

// prefixOf truncates an already normalized title to the duplicate key length
func prefixOf(norm string) string {
	if len(norm) > titlePrefixLen {
		return norm[:titlePrefixLen]
	}
	return norm
}

// urlKey reduces a URL to hostname+path, ignoring scheme, query and fragment
func urlKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return strings.ToLower(u.Hostname() + strings.TrimSuffix(u.Path, "/"))
}
