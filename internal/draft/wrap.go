package draft

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// VisualLine is one wrapped row of the buffer. Line numbers are 1-based and
// continuous across the whole document. Start/End are byte offsets into the
// buffer text; the span can be wider than the rendered text when source
// whitespace runs were collapsed for display.
type VisualLine struct {
	LineNo int    `json:"lineNo"`
	Text   string `json:"text"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// Wrap computes the visual layout of text at the given column width.
// Paragraphs (newline-delimited) wrap independently; numbering runs across
// the whole buffer. An empty paragraph still yields one empty line so every
// paragraph boundary stays addressable. Pure and deterministic.
func Wrap(text string, columns int) []VisualLine {
	if columns < 1 {
		columns = 1
	}
	lines := make([]VisualLine, 0, 16)
	lineNo := 1
	base := 0
	for {
		rel := strings.IndexByte(text[base:], '\n')
		if rel < 0 {
			return wrapParagraph(text[base:], base, columns, &lineNo, lines)
		}
		lines = wrapParagraph(text[base:base+rel], base, columns, &lineNo, lines)
		base += rel + 1
	}
}

// wordSpan is a whitespace-delimited word with absolute byte offsets.
type wordSpan struct {
	text  string
	start int
	end   int
}

func splitWords(par string, base int) []wordSpan {
	var words []wordSpan
	start := -1
	for i, r := range par {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, wordSpan{par[start:i], base + start, base + i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, wordSpan{par[start:], base + start, base + len(par)})
	}
	return words
}

// wrapParagraph greedily packs words into lines of at most columns cells,
// counting display width in runes. A word longer than the width is cut at
// exactly columns runes and its remainder re-enters the stream as an
// ordinary word.
func wrapParagraph(par string, base, columns int, lineNo *int, out []VisualLine) []VisualLine {
	words := splitWords(par, base)
	if len(words) == 0 {
		out = append(out, VisualLine{LineNo: *lineNo, Text: "", Start: base, End: base})
		*lineNo++
		return out
	}

	var cur []wordSpan
	width := 0
	flush := func() {
		texts := make([]string, len(cur))
		for i, w := range cur {
			texts[i] = w.text
		}
		out = append(out, VisualLine{
			LineNo: *lineNo,
			Text:   strings.Join(texts, " "),
			Start:  cur[0].start,
			End:    cur[len(cur)-1].end,
		})
		*lineNo++
		cur = cur[:0]
		width = 0
	}

	for i := 0; i < len(words); {
		w := words[i]
		wlen := utf8.RuneCountInString(w.text)
		if width == 0 {
			if wlen > columns {
				cut := runeCut(w.text, columns)
				out = append(out, VisualLine{
					LineNo: *lineNo,
					Text:   w.text[:cut],
					Start:  w.start,
					End:    w.start + cut,
				})
				*lineNo++
				words[i] = wordSpan{w.text[cut:], w.start + cut, w.end}
				continue
			}
			cur = append(cur, w)
			width = wlen
			i++
			continue
		}
		if width+1+wlen <= columns {
			cur = append(cur, w)
			width += 1 + wlen
			i++
			continue
		}
		flush()
	}
	if len(cur) > 0 {
		flush()
	}
	return out
}

// runeCut returns the byte index of the n-th rune in s, or len(s) if s has
// fewer than n runes.
func runeCut(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}
