package scan

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/creachadair/atomicfile"

	"capscan/internal/engine"
)

// reportDivider separates video blocks in the report file.
var reportDivider = strings.Repeat("═", 40)

// FormatRecord renders one matched video as a report block: the metadata
// header, then one timestamp line per matching segment.
func FormatRecord(r MatchRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Video Title: %s\n", r.Meta.Title)
	fmt.Fprintf(&sb, "Video ID: %s\n", r.VideoID)
	fmt.Fprintf(&sb, "Channel Name: %s\n", r.Meta.ChannelTitle)
	fmt.Fprintf(&sb, "Channel ID: %s\n", r.Meta.ChannelID)
	fmt.Fprintf(&sb, "Date Uploaded: %s\n", r.Meta.UploadedAt)
	fmt.Fprintf(&sb, "Views: %s\n", engine.FormatViews(r.Meta.Views))
	sb.WriteString("Timestamps:\n")
	for _, seg := range r.Segments {
		fmt.Fprintf(&sb, "╳ %s - %s\n", engine.FormatTimestamp(seg.Start), seg.Text)
	}
	return sb.String()
}

// FormatReport renders all records, each block followed by a divider line.
func FormatReport(records []MatchRecord) string {
	var sb strings.Builder
	for _, r := range records {
		sb.WriteString(FormatRecord(r))
		sb.WriteString("\n" + reportDivider + "\n\n")
	}
	return sb.String()
}

// ReportPath is the output file for phrase under dir.
func ReportPath(dir, phrase string) string {
	return filepath.Join(dir, engine.SanitizeFilename(phrase)+".txt")
}

// WriteReport writes the formatted records under dir atomically and
// returns the file path. Zero records write nothing and return "".
func WriteReport(dir, phrase string, records []MatchRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := ReportPath(dir, phrase)
	f, err := atomicfile.New(path, 0o644)
	if err != nil {
		return "", err
	}
	defer f.Cancel()
	if _, err := io.WriteString(f, FormatReport(records)); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
