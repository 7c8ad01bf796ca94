package draft

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/exp/golden"
)

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{`<a href="x">`, "&lt;a href=&quot;x&quot;&gt;"},
		{"a & b", "a &amp; b"},
		{"it's", "it&#39;s"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := escapeHTML(tt.in); got != tt.want {
			t.Errorf("escapeHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnnotationWindowStartsAboveAnchor(t *testing.T) {
	b := New(Options{})
	b.Seed("one\ntwo\nthree\nfour\nfive\nsix")

	b.WriteReplace(5, "FIVE")
	ann := b.ActiveDiff().Annotation
	if ann.StartLine != 3 {
		t.Errorf("window start: got %d, want 3", ann.StartLine)
	}

	b.WriteReplace(1, "ONE")
	ann = b.ActiveDiff().Annotation
	if ann.StartLine != 1 {
		t.Errorf("window start must clamp to 1, got %d", ann.StartLine)
	}
}

func TestAnnotationWindowIsBounded(t *testing.T) {
	b := New(Options{})
	b.Seed(strings.TrimSuffix(strings.Repeat("word\n", 60), "\n"))

	b.WriteReplace(1, "changed")
	ann := b.ActiveDiff().Annotation
	if len(ann.HTMLLines) != annotationWindow {
		t.Errorf("window size: got %d, want %d", len(ann.HTMLLines), annotationWindow)
	}
}

func TestAnnotationMarksFreshLines(t *testing.T) {
	b := New(Options{})
	b.Seed("one\ntwo\nthree")

	b.WriteReplace(2, "a <new> line")
	ann := b.ActiveDiff().Annotation
	if ann.StartLine != 1 {
		t.Fatalf("window start: got %d", ann.StartLine)
	}
	want := `<mark class="fresh">a &lt;new&gt; line</mark>`
	if ann.HTMLLines[1] != want {
		t.Errorf("highlighted line: got %q, want %q", ann.HTMLLines[1], want)
	}
	if ann.HTMLLines[0] != "one" || ann.HTMLLines[2] != "three" {
		t.Errorf("neighbor lines must stay unmarked: %v", ann.HTMLLines)
	}
}

func TestAnnotationGolden(t *testing.T) {
	b := New(Options{})
	b.Seed("Meeting notes & \"agenda\"\n- item <one>\n- item two")

	b.WriteReplace(2, "- item 'uno'")
	ann := b.ActiveDiff().Annotation
	out := strings.Join(ann.HTMLLines, "\n") + "\n"
	golden.RequireEqual(t, []byte(out))
}
