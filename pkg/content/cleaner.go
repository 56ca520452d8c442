// Package content cleans raw provider text before it is allowed into the
// pipeline. Provider descriptions arrive with boilerplate, share widgets,
// truncation markers and sometimes nothing but concatenated headlines;
// Clean strips the noise and IsGarbage rejects what cannot be salvaged.
package content

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// reused across calls, all side effect free
var (
	htmlPolicy = bluemonday.StrictPolicy()

	bracketTagRe = regexp.MustCompile(`\[[^\]]*\]`)
	sourceTagRe  = regexp.MustCompile(`^\(([A-Z][A-Za-z .]+)\)\s*[-–—]?\s*`)
	ellipsisRe   = regexp.MustCompile(`(\.{3,}|…)\s*$`)
	spaceRe      = regexp.MustCompile(`\s+`)

	// phrases that mark social-share and legal boilerplate; everything from
	// the first match to the end of the text is dropped
	boilerplate = []string{
		"share this article",
		"share on facebook",
		"follow us on",
		"sign up for our newsletter",
		"subscribe to our",
		"read more at",
		"continue reading",
		"all rights reserved",
		"terms of service",
		"privacy policy",
		"click here",
	}
)

// Clean strips markup and boilerplate noise from raw provider text.
// The result may still be garbage; callers check with IsGarbage.
func Clean(raw string) string {
	text := html.UnescapeString(htmlPolicy.Sanitize(raw))
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	// NewsAPI-style truncation markers come wrapped in brackets, e.g. [+1234 chars]
	text = bracketTagRe.ReplaceAllString(text, "")
	text = sourceTagRe.ReplaceAllString(text, "")

	lower := strings.ToLower(text)
	cut := len(text)
	for _, phrase := range boilerplate {
		if idx := strings.Index(lower, phrase); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	text = text[:cut]

	text = ellipsisRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if looksLikeBanner(text) {
		text = recoverSentence(text)
	}

	return text
}

// IsGarbage reports whether cleaned text is unusable: too short, shouting,
// without sentence structure, or a run of concatenated headline fragments.
func IsGarbage(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) < 80 {
		return true
	}
	if !strings.ContainsFunc(text, unicode.IsLower) {
		return true
	}
	if !strings.ContainsAny(text, ".!?") {
		return true
	}
	return headlineFragments(text) >= 3
}

// looksLikeBanner detects text opening with an all-caps banner segment,
// judged on the part before the first period
func looksLikeBanner(text string) bool {
	head := text
	if idx := strings.Index(text, "."); idx > 0 {
		head = text[:idx]
	}
	var upper, lower int
	for _, r := range head {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		}
	}
	return upper > 10 && upper > lower*2
}

// recoverSentence attempts to find the first real sentence after a period
// in banner-like text, falling back to the input when none exists
func recoverSentence(text string) string {
	parts := strings.SplitAfter(text, ".")
	for i := 1; i < len(parts); i++ {
		candidate := strings.TrimSpace(strings.Join(parts[i:], ""))
		if candidate != "" && strings.ContainsFunc(candidate, unicode.IsLower) {
			return candidate
		}
	}
	return text
}

// headlineFragments counts runs of 3+ consecutive capitalized words, a
// telltale of scraped headline lists glued together without punctuation
func headlineFragments(text string) int {
	words := strings.Fields(text)
	fragments := 0
	run := 0
	for _, w := range words {
		r := []rune(w)
		if len(r) > 0 && unicode.IsUpper(r[0]) {
			run++
			if run == 3 {
				fragments++
			}
			continue
		}
		run = 0
	}
	return fragments
}
