package scan

import (
	"regexp"
	"strings"

	"capscan/internal/engine"
)

// Matcher decides whether a caption line contains the target phrase.
type Matcher struct {
	phrase string         // lowercased phrase, substring mode
	re     *regexp.Regexp // word-boundary pattern, exact-word mode only
}

// NewMatcher builds a Matcher for phrase. With exactWord the phrase
// matches only at word boundaries; otherwise any case-insensitive
// substring hit counts. An empty phrase matches everything in both modes.
func NewMatcher(phrase string, exactWord bool) *Matcher {
	m := &Matcher{phrase: strings.ToLower(phrase)}
	if exactWord && phrase != "" {
		m.re = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
	}
	return m
}

// MatchText reports whether one caption line matches.
func (m *Matcher) MatchText(text string) bool {
	if m.phrase == "" {
		return true
	}
	if m.re != nil {
		return m.re.MatchString(text)
	}
	return strings.Contains(strings.ToLower(text), m.phrase)
}

// Filter returns the subsequence of segs whose text matches, preserving
// original order. Repeated matches are kept; nothing is deduplicated.
func (m *Matcher) Filter(segs []engine.CaptionSegment) []engine.CaptionSegment {
	var out []engine.CaptionSegment
	for _, s := range segs {
		if m.MatchText(s.Text) {
			out = append(out, s)
		}
	}
	return out
}
