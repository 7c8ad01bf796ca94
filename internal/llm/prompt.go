package llm

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xonecas/drafter/internal/draft"
)

//go:embed prompts/base.md
var basePrompt string

// SystemPrompt builds the system message for a turn from the base prompt
// and the current draft state, so the model starts with fresh line numbers.
func SystemPrompt(st draft.State) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	fmt.Fprintf(&sb, "\n\nThe draft wraps at %d columns and has %d visual lines (revision %d).",
		st.Columns, st.LineCount, st.Revision)
	if st.LineCount > 0 && st.FullText != "" {
		sb.WriteString("\nDraft head:\n")
		for _, line := range st.HeadListing {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	} else {
		sb.WriteString("\nThe draft is currently empty.")
	}
	return sb.String()
}
