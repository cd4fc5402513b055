package engine

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// User-Agent strings used across HTTP clients.
const (
	UserAgentBot    = "capscan/1.0"
	UserAgentChrome = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

var browserAgents = []string{
	UserAgentChrome,
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// RandomUserAgent returns a browser User-Agent for watch-page requests.
func RandomUserAgent() string {
	return browserAgents[rand.Intn(len(browserAgents))]
}

// CleanCaptionText strips inline markup from a caption line and collapses
// whitespace. Timedtext payloads arrive with entities escaped and the odd
// <i>/<b>/<font> tag; layout newlines inside a segment become single spaces.
func CleanCaptionText(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	tz := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := tz.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.Write(tz.Text())
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Truncate returns the first n bytes of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// FormatTimestamp renders a caption offset as HH:MM:SS, flooring
// sub-second precision.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := total % 3600 / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatViews renders a view count with thousands separators: 1234567 → "1,234,567".
func FormatViews(n uint64) string {
	s := strconv.FormatUint(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// SanitizeFilename derives a filesystem-safe stem from a search phrase.
// Letters, digits, spaces, underscores and hyphens survive; everything
// else becomes an underscore. Spaces collapse to underscores after the
// ends are trimmed, and the result is capped at 50 runes. An empty
// phrase yields "matches".
func SanitizeFilename(phrase string) string {
	var b strings.Builder
	for _, r := range phrase {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := strings.TrimSpace(b.String())
	s = strings.ReplaceAll(s, " ", "_")
	if runes := []rune(s); len(runes) > 50 {
		s = string(runes[:50])
	}
	if s == "" {
		return "matches"
	}
	return s
}

var (
	videoIDRE     = regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	bareVideoIDRE = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// IsVideoID reports whether s looks like a bare 11-character video ID.
func IsVideoID(s string) bool {
	return bareVideoIDRE.MatchString(s)
}

// ExtractVideoID pulls the video ID out of a watch or share URL.
// Returns "" when s carries no recognizable ID.
func ExtractVideoID(s string) string {
	if m := videoIDRE.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}
