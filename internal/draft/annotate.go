package draft

import "strings"

const (
	// annotationWindow is the maximum number of lines in a preview window.
	annotationWindow = 45
	// anchorContext is how many lines above the anchor the window starts.
	anchorContext = 2
)

// Annotation is a fixed-size preview window of escaped lines around an
// edit. HTMLLines is pre-escaped: consumers must render it as-is and never
// re-escape or execute it. Lines that were freshly written are wrapped in
// <mark class="fresh">, used downstream purely for styling.
type Annotation struct {
	StartLine int      `json:"startLine"`
	HTMLLines []string `json:"htmlLines"`
}

// annotate builds the preview window from the post-edit layout: up to 45
// consecutive lines starting 2 above the anchor, clamped to line 1.
func annotate(layout []VisualLine, anchor int, highlights []int) Annotation {
	start := anchor - anchorContext
	if start < 1 {
		start = 1
	}
	hl := make(map[int]bool, len(highlights))
	for _, n := range highlights {
		hl[n] = true
	}
	htmlLines := make([]string, 0, annotationWindow)
	for n := start; n <= len(layout) && len(htmlLines) < annotationWindow; n++ {
		esc := escapeHTML(layout[n-1].Text)
		if hl[n] {
			esc = `<mark class="fresh">` + esc + `</mark>`
		}
		htmlLines = append(htmlLines, esc)
	}
	return Annotation{StartLine: start, HTMLLines: htmlLines}
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// escapeHTML escapes the five HTML-significant characters. This is the only
// markup the engine ever emits.
func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
