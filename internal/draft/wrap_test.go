package draft

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestWrapDeterministic(t *testing.T) {
	text := "The quick brown fox\njumps over the lazy dog\n\nand naps."
	a := Wrap(text, 12)
	b := Wrap(text, 12)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("wrap is not deterministic:\n%v\n%v", a, b)
	}
}

func TestWrapKeepsEveryWordInOrder(t *testing.T) {
	text := "hello world this is a test line"
	lines := Wrap(text, 10)

	var words []string
	for _, l := range lines {
		if utf8.RuneCountInString(l.Text) > 10 {
			t.Errorf("line %d exceeds width: %q", l.LineNo, l.Text)
		}
		words = append(words, strings.Fields(l.Text)...)
	}
	if got, want := strings.Join(words, " "), text; got != want {
		t.Fatalf("words dropped or reordered: got %q, want %q", got, want)
	}
}

func TestWrapOffsetsAreOrdered(t *testing.T) {
	text := "one two three four five six seven\n\neight nine ten eleven twelve\nthirteen"
	lines := Wrap(text, 10)

	for i, l := range lines {
		if l.Start > l.End {
			t.Errorf("line %d: start %d > end %d", l.LineNo, l.Start, l.End)
		}
		if l.LineNo != i+1 {
			t.Errorf("line numbering not contiguous: got %d at index %d", l.LineNo, i)
		}
		if i > 0 && lines[i-1].End > l.Start {
			t.Errorf("line %d overlaps predecessor: prev end %d, start %d", l.LineNo, lines[i-1].End, l.Start)
		}
	}
}

func TestWrapEmptyBuffer(t *testing.T) {
	lines := Wrap("", 26)
	want := []VisualLine{{LineNo: 1, Text: "", Start: 0, End: 0}}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("empty buffer: got %v, want %v", lines, want)
	}
}

func TestWrapEmptyParagraphsStayAddressable(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []VisualLine
	}{
		{
			name: "trailing newline",
			text: "abc\n",
			want: []VisualLine{
				{LineNo: 1, Text: "abc", Start: 0, End: 3},
				{LineNo: 2, Text: "", Start: 4, End: 4},
			},
		},
		{
			name: "double newline",
			text: "a\n\nb",
			want: []VisualLine{
				{LineNo: 1, Text: "a", Start: 0, End: 1},
				{LineNo: 2, Text: "", Start: 2, End: 2},
				{LineNo: 3, Text: "b", Start: 3, End: 4},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.text, 26)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapTruncatesOversizedWord(t *testing.T) {
	word := strings.Repeat("x", 15)
	lines := Wrap(word, 10)

	want := []VisualLine{
		{LineNo: 1, Text: strings.Repeat("x", 10), Start: 0, End: 10},
		{LineNo: 2, Text: strings.Repeat("x", 5), Start: 10, End: 15},
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
}

func TestWrapCollapsedSpacesWidenSpan(t *testing.T) {
	lines := Wrap("foo   bar", 26)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	l := lines[0]
	if l.Text != "foo bar" {
		t.Errorf("runs of spaces should render as one: got %q", l.Text)
	}
	// The recorded span covers the original text, which is wider than the
	// rendered text.
	if l.Start != 0 || l.End != 9 {
		t.Errorf("span should cover source text: got [%d,%d)", l.Start, l.End)
	}
	if l.End-l.Start <= len(l.Text) {
		t.Errorf("expected span wider than rendered text: span %d, text %d", l.End-l.Start, len(l.Text))
	}
}

func TestWrapGreedyFill(t *testing.T) {
	lines := Wrap("alpha beta gamma delta", 10)
	want := []VisualLine{
		{LineNo: 1, Text: "alpha beta", Start: 0, End: 10},
		{LineNo: 2, Text: "gamma", Start: 11, End: 16},
		{LineNo: 3, Text: "delta", Start: 17, End: 22},
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
}
