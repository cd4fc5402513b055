package scan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"capscan/internal/engine"
)

func sampleRecord() MatchRecord {
	return MatchRecord{
		VideoID: "dQw4w9WgXcQ",
		Meta: engine.VideoMetadata{
			VideoID:      "dQw4w9WgXcQ",
			Title:        "Test Video",
			ChannelTitle: "Some Channel",
			ChannelID:    "UCabc",
			UploadedAt:   "2024-05-01",
			Views:        1234567,
		},
		Segments: []engine.CaptionSegment{
			{Start: 65, Text: "first match"},
			{Start: 3600, Text: "second match"},
		},
	}
}

func TestFormatRecord(t *testing.T) {
	want := `Video Title: Test Video
Video ID: dQw4w9WgXcQ
Channel Name: Some Channel
Channel ID: UCabc
Date Uploaded: 2024-05-01
Views: 1,234,567
Timestamps:
╳ 00:01:05 - first match
╳ 01:00:00 - second match
`
	if got := FormatRecord(sampleRecord()); got != want {
		t.Errorf("FormatRecord mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatReportDividers(t *testing.T) {
	out := FormatReport([]MatchRecord{sampleRecord(), sampleRecord()})

	divider := strings.Repeat("═", 40)
	if n := strings.Count(out, divider); n != 2 {
		t.Errorf("report has %d dividers, want one per record", n)
	}
	if !strings.HasSuffix(out, divider+"\n\n") {
		t.Errorf("report does not end with divider and blank line:\n%q", out[len(out)-50:])
	}
	if strings.Count(out, "Video Title: Test Video") != 2 {
		t.Errorf("report missing record blocks:\n%s", out)
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteReport(dir, "hello world!", []MatchRecord{sampleRecord()})
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	want := filepath.Join(dir, "hello_world_.txt")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if string(data) != FormatReport([]MatchRecord{sampleRecord()}) {
		t.Errorf("file content mismatch:\n%s", data)
	}
}

func TestWriteReportNoMatches(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteReport(dir, "nothing", nil)
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty for zero records", path)
	}
	if _, err := os.Stat(filepath.Join(dir, "nothing.txt")); !os.IsNotExist(err) {
		t.Errorf("report file created despite zero records (stat err = %v)", err)
	}
}

func TestReportPath(t *testing.T) {
	tests := []struct {
		phrase string
		want   string
	}{
		{"hello world", "hello_world.txt"},
		{"c++ tips", "c___tips.txt"},
		{"", "matches.txt"},
	}
	for _, tt := range tests {
		if got := ReportPath("out", tt.phrase); got != filepath.Join("out", tt.want) {
			t.Errorf("ReportPath(%q) = %q, want %q", tt.phrase, got, tt.want)
		}
	}
}
