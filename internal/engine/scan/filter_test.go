package scan

import (
	"testing"

	"capscan/internal/engine"
)

func segs(texts ...string) []engine.CaptionSegment {
	out := make([]engine.CaptionSegment, len(texts))
	for i, t := range texts {
		out[i] = engine.CaptionSegment{Start: float64(i * 10), Text: t}
	}
	return out
}

func TestFilterSubstring(t *testing.T) {
	in := segs("Hello world", "nothing here", "say HELLO twice", "hello again")

	got := NewMatcher("hello", false).Filter(in)

	want := []string{"Hello world", "say HELLO twice", "hello again"}
	if len(got) != len(want) {
		t.Fatalf("got %d segments, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Text != w {
			t.Errorf("segment %d = %q, want %q", i, got[i].Text, w)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start <= got[i-1].Start {
			t.Errorf("order not preserved: start %v after %v", got[i].Start, got[i-1].Start)
		}
	}
}

func TestFilterEmptyPhraseMatchesAll(t *testing.T) {
	in := segs("a", "b", "c")
	got := NewMatcher("", false).Filter(in)
	if len(got) != len(in) {
		t.Fatalf("got %d segments, want all %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("segment %d changed: %+v != %+v", i, got[i], in[i])
		}
	}
}

func TestFilterKeepsRepeats(t *testing.T) {
	in := segs("go go go", "go", "go")
	got := NewMatcher("go", false).Filter(in)
	if len(got) != 3 {
		t.Errorf("got %d segments, want 3 (repeats kept)", len(got))
	}
}

func TestFilterEmptyInput(t *testing.T) {
	if got := NewMatcher("x", false).Filter(nil); len(got) != 0 {
		t.Errorf("Filter(nil) = %v, want empty", got)
	}
}

func TestMatchTextExactWord(t *testing.T) {
	tests := []struct {
		name   string
		phrase string
		text   string
		want   bool
	}{
		{"word present", "cat", "the cat sat", true},
		{"substring rejected", "cat", "we concatenate strings", false},
		{"case insensitive", "cat", "a CAT appeared", true},
		{"starts sentence", "cat", "Cat videos", true},
		{"punctuation boundary", "cat", "my cat, she naps", true},
		{"multi-word phrase", "the cat", "feed the cat now", true},
		{"empty phrase matches", "", "anything", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(tt.phrase, true)
			if got := m.MatchText(tt.text); got != tt.want {
				t.Errorf("MatchText(%q) with phrase %q = %v, want %v", tt.text, tt.phrase, got, tt.want)
			}
		})
	}
}

func TestSubstringModeMatchesInsideWords(t *testing.T) {
	m := NewMatcher("cat", false)
	if !m.MatchText("we concatenate strings") {
		t.Error("substring mode should match inside words")
	}
}
