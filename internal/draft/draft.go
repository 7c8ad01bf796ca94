// Package draft maintains one editable text document as a single source of
// truth: the buffer, its deterministic line-wrapped layout, and a record of
// the most recent edit used to render additions (highlight) and removals
// (ghost) in a presentation layer.
//
// The package is pure in-memory computation. A Buffer is single-writer: the
// caller is responsible for serializing actions against one instance.
// Separate instances share nothing.
package draft

import "fmt"

const (
	defaultColumns = 26
	minColumns     = 10
	maxColumns     = 120

	// headLines is how many numbered lines the head listing shows.
	headLines = 12
	// defaultTopK bounds search results when the caller passes no limit.
	defaultTopK = 8
)

// Options configures a new Buffer.
type Options struct {
	// Columns is the wrap width. Values outside [10,120] are ignored and
	// the default of 26 is used.
	Columns int
}

// Buffer holds the document text, its revision counter, the wrap width, and
// the diff record of the most recent edit. Visual lines are never stored;
// they are recomputed from the text on every read.
type Buffer struct {
	text     string
	revision int
	columns  int
	diff     *DiffRecord
}

// DiffRecord describes the most recent edit. Exactly one of RemovedText
// (in-place replacement) or RemovedLines (clears and deletions) is set.
type DiffRecord struct {
	AnchorLine     int        `json:"anchorLine"`
	RemovedText    *string    `json:"removedText"`
	RemovedLines   []string   `json:"removedLines"`
	HighlightLines []int      `json:"highlightLines"`
	Annotation     Annotation `json:"annotation"`
}

// State is a snapshot of the buffer for collaborators.
type State struct {
	Revision    int          `json:"revision"`
	Columns     int          `json:"columns"`
	FullText    string       `json:"fullText"`
	LineCount   int          `json:"lineCount"`
	HeadListing []string     `json:"headListing"`
	ActiveDiff  *DiffRecord  `json:"activeDiff"`
	VisualLines []VisualLine `json:"visualLines,omitempty"`
}

// New creates an empty buffer.
func New(opts Options) *Buffer {
	b := &Buffer{columns: defaultColumns}
	b.SetColumns(opts.Columns)
	return b
}

// Seed replaces the buffer content wholesale, increments the revision, and
// discards any active diff.
func (b *Buffer) Seed(text string) {
	b.text = text
	b.revision++
	b.diff = nil
}

// ClearBuffer empties the buffer, increments the revision, and discards any
// active diff.
func (b *Buffer) ClearBuffer() {
	b.text = ""
	b.revision++
	b.diff = nil
}

// SetColumns changes the wrap width. Out-of-range values are silently
// ignored and the previous width is retained.
func (b *Buffer) SetColumns(n int) {
	if n >= minColumns && n <= maxColumns {
		b.columns = n
	}
}

// Columns returns the current wrap width.
func (b *Buffer) Columns() int { return b.columns }

// Revision returns the current revision counter.
func (b *Buffer) Revision() int { return b.revision }

// Text returns the full buffer text.
func (b *Buffer) Text() string { return b.text }

// ClearDiff drops the active diff without touching the buffer or revision.
func (b *Buffer) ClearDiff() { b.diff = nil }

// ActiveDiff returns the diff record of the most recent edit, or nil.
func (b *Buffer) ActiveDiff() *DiffRecord { return b.diff }

// State returns a snapshot of the buffer. When includeVisual is set the
// full visual layout is included.
func (b *Buffer) State(includeVisual bool) State {
	layout := Wrap(b.text, b.columns)
	st := State{
		Revision:    b.revision,
		Columns:     b.columns,
		FullText:    b.text,
		LineCount:   len(layout),
		HeadListing: headListing(layout),
		ActiveDiff:  b.diff,
	}
	if includeVisual {
		st.VisualLines = layout
	}
	return st
}

// headListing renders the first lines of the layout as "{lineNo}| {text}".
func headListing(layout []VisualLine) []string {
	n := len(layout)
	if n > headLines {
		n = headLines
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = fmt.Sprintf("%d| %s", layout[i].LineNo, layout[i].Text)
	}
	return out
}

// clampLine coerces a 1-based line number into [1,count]. count is always
// at least 1 because Wrap never returns an empty layout.
func clampLine(n, count int) int {
	if n < 1 {
		return 1
	}
	if n > count {
		return count
	}
	return n
}
