package draft

import (
	"slices"
	"strings"
)

// ReasonEmptyText is reported when an append's trimmed text is empty.
const ReasonEmptyText = "empty_text"

// Result is the outcome of an edit action. Changed is true only if the
// buffer text actually differs from before, so a caller never presents a
// no-op as a visible edit.
type Result struct {
	OK             bool     `json:"ok"`
	Reason         string   `json:"reason,omitempty"`
	Changed        bool     `json:"changed"`
	Revision       int      `json:"revision"`
	AnchorLine     int      `json:"anchorLine,omitempty"`
	HighlightLines []int    `json:"highlightLines,omitempty"`
	RemovedText    *string  `json:"removedText,omitempty"`
	RemovedLines   []string `json:"removedLines,omitempty"`
}

// WriteReplace replaces the buffer span of the addressed visual line with
// newText, normalized by collapsing whitespace runs to single spaces and
// trimming both ends. An empty normalized text is a clear and yields a
// RemovedLines ghost; otherwise the original line text is exposed as
// RemovedText. Out-of-range line numbers are clamped, not rejected.
func (b *Buffer) WriteReplace(line int, newText string) Result {
	normalized := normalizeText(newText)
	prev := b.text
	target := b.spliceLine(line, normalized)
	changed := b.text != prev
	if changed {
		b.revision++
	}

	post := Wrap(b.text, b.columns)
	var highlights []int
	if normalized != "" {
		highlights = overlapLines(post, target.Start, target.Start+len(normalized))
	}

	rec := &DiffRecord{AnchorLine: target.LineNo, HighlightLines: highlights}
	if normalized == "" {
		rec.RemovedLines = []string{target.Text}
	} else {
		removed := target.Text
		rec.RemovedText = &removed
	}
	rec.Annotation = annotate(post, target.LineNo, highlights)
	b.diff = rec

	return Result{
		OK:             true,
		Changed:        changed,
		Revision:       b.revision,
		AnchorLine:     target.LineNo,
		HighlightLines: highlights,
		RemovedText:    rec.RemovedText,
		RemovedLines:   rec.RemovedLines,
	}
}

// WriteAppend appends text to the end of the buffer. Only leading and
// trailing whitespace is trimmed; interior whitespace, including newlines,
// is preserved verbatim. An empty trimmed text is rejected as a no-op.
// When ensureNewParagraph is set and the non-empty buffer does not end with
// a newline, one is inserted first. The diff anchors on the last line of
// the pre-append layout so a preview window begins just above the new
// content.
func (b *Buffer) WriteAppend(text string, ensureNewParagraph bool) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{Reason: ReasonEmptyText, Revision: b.revision}
	}

	pre := Wrap(b.text, b.columns)
	anchor := pre[len(pre)-1].LineNo

	sep := ""
	if ensureNewParagraph && b.text != "" && !strings.HasSuffix(b.text, "\n") {
		sep = "\n"
	}
	start := len(b.text) + len(sep)
	b.text += sep + trimmed
	b.revision++

	post := Wrap(b.text, b.columns)
	highlights := overlapLines(post, start, start+len(trimmed))
	b.diff = &DiffRecord{
		AnchorLine:     anchor,
		HighlightLines: highlights,
		Annotation:     annotate(post, anchor, highlights),
	}

	return Result{
		OK:             true,
		Changed:        true,
		Revision:       b.revision,
		AnchorLine:     anchor,
		HighlightLines: highlights,
	}
}

// ClearLine clears the addressed visual line. Equivalent to WriteReplace
// with empty text: always a single-element RemovedLines ghost.
func (b *Buffer) ClearLine(line int) Result {
	return b.WriteReplace(line, "")
}

// ClearRange clears every visual line in [startLine,endLine], normalizing
// reversed bounds. Lines are cleared from the highest number down, with the
// full layout recomputed between steps: clearing one line can change how
// many lines the remainder of its paragraph wraps into, so offsets from a
// prior step are never reused. The resulting diff lists the cleared lines
// top-to-bottom with nothing highlighted.
func (b *Buffer) ClearRange(startLine, endLine int) Result {
	layout := Wrap(b.text, b.columns)
	s := clampLine(startLine, len(layout))
	e := clampLine(endLine, len(layout))
	if e < s {
		s, e = e, s
	}

	prev := b.text
	removed := make([]string, 0, e-s+1)
	for ln := e; ln >= s; ln-- {
		target := b.spliceLine(ln, "")
		removed = append(removed, target.Text)
	}
	slices.Reverse(removed)

	changed := b.text != prev
	if changed {
		b.revision++
	}

	post := Wrap(b.text, b.columns)
	b.diff = &DiffRecord{
		AnchorLine:   s,
		RemovedLines: removed,
		Annotation:   annotate(post, s, nil),
	}

	return Result{
		OK:           true,
		Changed:      changed,
		Revision:     b.revision,
		AnchorLine:   s,
		RemovedLines: removed,
	}
}

// ClearAll captures every current visual line as a ghost and empties the
// buffer.
func (b *Buffer) ClearAll() Result {
	layout := Wrap(b.text, b.columns)
	removed := make([]string, len(layout))
	for i, l := range layout {
		removed[i] = l.Text
	}

	changed := b.text != ""
	b.text = ""
	if changed {
		b.revision++
	}

	post := Wrap(b.text, b.columns)
	b.diff = &DiffRecord{
		AnchorLine:   1,
		RemovedLines: removed,
		Annotation:   annotate(post, 1, nil),
	}

	return Result{
		OK:           true,
		Changed:      changed,
		Revision:     b.revision,
		AnchorLine:   1,
		RemovedLines: removed,
	}
}

// Read returns the visual lines in [startLine,endLine], clamping both
// bounds into range and swapping them if reversed. Pure: touches neither
// the revision nor the active diff.
func (b *Buffer) Read(startLine, endLine int) []VisualLine {
	layout := Wrap(b.text, b.columns)
	s := clampLine(startLine, len(layout))
	e := clampLine(endLine, len(layout))
	if e < s {
		s, e = e, s
	}
	out := make([]VisualLine, e-s+1)
	copy(out, layout[s-1:e])
	return out
}

// Match is one search hit.
type Match struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// SearchResult holds either the head listing (empty query) or up to topK
// substring matches in ascending line order.
type SearchResult struct {
	Listing []string `json:"listing,omitempty"`
	Matches []Match  `json:"matches,omitempty"`
}

// Search performs case-insensitive substring matching against the rendered
// text of each visual line. An empty query returns the head listing
// instead. topK values below 1 fall back to the default of 8. Pure.
func (b *Buffer) Search(query string, topK int) SearchResult {
	layout := Wrap(b.text, b.columns)
	if query == "" {
		return SearchResult{Listing: headListing(layout)}
	}
	if topK < 1 {
		topK = defaultTopK
	}
	needle := strings.ToLower(query)
	var matches []Match
	for _, l := range layout {
		if strings.Contains(strings.ToLower(l.Text), needle) {
			matches = append(matches, Match{Line: l.LineNo, Text: l.Text})
			if len(matches) == topK {
				break
			}
		}
	}
	return SearchResult{Matches: matches}
}

// spliceLine replaces the span of the addressed visual line (clamped into
// range) with replacement, and returns the pre-edit line. The layout is
// recomputed from the current text on every call; stale offsets are never
// patched.
func (b *Buffer) spliceLine(line int, replacement string) VisualLine {
	layout := Wrap(b.text, b.columns)
	target := layout[clampLine(line, len(layout))-1]
	b.text = b.text[:target.Start] + replacement + b.text[target.End:]
	return target
}

// normalizeText collapses whitespace runs (including newlines) to single
// spaces and trims both ends.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// overlapLines returns the numbers of lines whose [Start,End) byte span
// overlaps the half-open interval [from,to). Highlight membership is always
// derived this way from the post-edit layout, never from line-number
// arithmetic: an edit can shift how many visual lines the rest of the
// document occupies.
func overlapLines(layout []VisualLine, from, to int) []int {
	var out []int
	for _, l := range layout {
		if l.Start < to && l.End > from {
			out = append(out, l.LineNo)
		}
	}
	return out
}
