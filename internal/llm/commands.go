package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/xonecas/drafter/internal/draft"
	"github.com/xonecas/drafter/internal/provider"
)

// EditEvent describes one applied edit for push listeners.
type EditEvent struct {
	Action string            `json:"action"`
	Result draft.Result      `json:"result"`
	Diff   *draft.DiffRecord `json:"diff,omitempty"`
}

// Dispatcher maps tool calls produced by the model onto buffer operations.
// Every reply to a mutating call carries a fresh head listing so the model
// never edits against a stale view of the layout.
type Dispatcher struct {
	Buffer *draft.Buffer
	OnEdit func(EditEvent) // optional, invoked after each mutating action
}

const lineSchema = `{"type": "number", "description": "1-based visual line number from the draft listing"}`

// Tools returns the tool definitions for the seven draft actions.
func Tools() []provider.Tool {
	return []provider.Tool{
		{
			Name:        "write_replace",
			Description: `Replace one visual line of the draft with new text. Whitespace runs in the text are collapsed to single spaces. Passing empty text clears the line (shown to the user as a ghost removal).`,
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"line": ` + lineSchema + `,
					"text": {"type": "string", "description": "Replacement text"}
				},
				"required": ["line", "text"]
			}`),
		},
		{
			Name:        "write_append",
			Description: `Append text to the end of the draft. Interior whitespace, including newlines, is preserved. By default a paragraph break is inserted first when needed.`,
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"text": {"type": "string", "description": "Text to append"},
					"ensure_new_paragraph": {"type": "boolean", "description": "Start a new paragraph (default true)"}
				},
				"required": ["text"]
			}`),
		},
		{
			Name:        "clear_line",
			Description: `Clear one visual line of the draft.`,
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {"line": ` + lineSchema + `},
				"required": ["line"]
			}`),
		},
		{
			Name:        "clear_range",
			Description: `Clear every visual line between start_line and end_line, inclusive. Reversed bounds are accepted.`,
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"start_line": ` + lineSchema + `,
					"end_line":   ` + lineSchema + `
				},
				"required": ["start_line", "end_line"]
			}`),
		},
		{
			Name:        "clear_all",
			Description: `Clear the entire draft.`,
			Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        "read",
			Description: `Read the visual lines between start_line and end_line, inclusive. Out-of-range bounds are clamped.`,
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"start_line": ` + lineSchema + `,
					"end_line":   ` + lineSchema + `
				},
				"required": ["start_line", "end_line"]
			}`),
		},
		{
			Name:        "search",
			Description: `Case-insensitive substring search over the draft's visual lines. An empty query lists the first lines of the draft.`,
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Substring to look for"},
					"top_k": {"type": "number", "description": "Maximum matches to return (default 8)"}
				},
				"required": ["query"]
			}`),
		},
	}
}

type replaceArgs struct {
	Line float64 `json:"line"`
	Text string  `json:"text"`
}

type appendArgs struct {
	Text               string `json:"text"`
	EnsureNewParagraph *bool  `json:"ensure_new_paragraph"`
}

type lineArgs struct {
	Line float64 `json:"line"`
}

type rangeArgs struct {
	StartLine float64 `json:"start_line"`
	EndLine   float64 `json:"end_line"`
}

type searchArgs struct {
	Query string  `json:"query"`
	TopK  float64 `json:"top_k"`
}

// Apply executes one tool call against the buffer and returns the reply
// text for the model. Malformed calls come back as error text, never as a
// failure of the turn.
func (d *Dispatcher) Apply(call provider.ToolCall) string {
	switch call.Name {
	case "write_replace":
		var a replaceArgs
		if err := json.Unmarshal(call.Arguments, &a); err != nil {
			return argError(call.Name, err)
		}
		res := d.Buffer.WriteReplace(lineArg(a.Line), a.Text)
		d.emit(call.Name, res)
		return d.editReply(call.Name, res)

	case "write_append":
		var a appendArgs
		if err := json.Unmarshal(call.Arguments, &a); err != nil {
			return argError(call.Name, err)
		}
		ensure := true
		if a.EnsureNewParagraph != nil {
			ensure = *a.EnsureNewParagraph
		}
		res := d.Buffer.WriteAppend(a.Text, ensure)
		d.emit(call.Name, res)
		return d.editReply(call.Name, res)

	case "clear_line":
		var a lineArgs
		if err := json.Unmarshal(call.Arguments, &a); err != nil {
			return argError(call.Name, err)
		}
		res := d.Buffer.ClearLine(lineArg(a.Line))
		d.emit(call.Name, res)
		return d.editReply(call.Name, res)

	case "clear_range":
		var a rangeArgs
		if err := json.Unmarshal(call.Arguments, &a); err != nil {
			return argError(call.Name, err)
		}
		res := d.Buffer.ClearRange(lineArg(a.StartLine), lineArg(a.EndLine))
		d.emit(call.Name, res)
		return d.editReply(call.Name, res)

	case "clear_all":
		res := d.Buffer.ClearAll()
		d.emit(call.Name, res)
		return d.editReply(call.Name, res)

	case "read":
		var a rangeArgs
		if err := json.Unmarshal(call.Arguments, &a); err != nil {
			return argError(call.Name, err)
		}
		lines := d.Buffer.Read(lineArg(a.StartLine), lineArg(a.EndLine))
		var sb strings.Builder
		for _, l := range lines {
			fmt.Fprintf(&sb, "%d| %s\n", l.LineNo, l.Text)
		}
		return sb.String()

	case "search":
		var a searchArgs
		if err := json.Unmarshal(call.Arguments, &a); err != nil {
			return argError(call.Name, err)
		}
		res := d.Buffer.Search(a.Query, lineArg(a.TopK))
		if a.Query == "" {
			return "Draft head:\n" + strings.Join(res.Listing, "\n")
		}
		if len(res.Matches) == 0 {
			return fmt.Sprintf("no lines match %q", a.Query)
		}
		var sb strings.Builder
		for _, m := range res.Matches {
			fmt.Fprintf(&sb, "%d| %s\n", m.Line, m.Text)
		}
		return sb.String()

	default:
		return fmt.Sprintf("unknown tool %q", call.Name)
	}
}

func (d *Dispatcher) emit(action string, res draft.Result) {
	if d.OnEdit != nil {
		d.OnEdit(EditEvent{Action: action, Result: res, Diff: d.Buffer.ActiveDiff()})
	}
}

func (d *Dispatcher) editReply(action string, res draft.Result) string {
	if !res.OK {
		return fmt.Sprintf("%s rejected: %s (revision still %d)", action, res.Reason, res.Revision)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s ok: changed=%t revision=%d anchor=%d", action, res.Changed, res.Revision, res.AnchorLine)
	if len(res.HighlightLines) > 0 {
		fmt.Fprintf(&sb, " highlighted=%v", res.HighlightLines)
	}
	// The layout may have re-wrapped; hand the model fresh line numbers.
	sb.WriteString("\n\nDraft head:\n")
	for _, line := range d.Buffer.State(false).HeadListing {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func argError(tool string, err error) string {
	return fmt.Sprintf("invalid %s arguments: %v", tool, err)
}

// lineArg coerces a JSON number into a usable line count or number.
// Non-finite values default to 1; everything else is truncated and left for
// the buffer to clamp into range.
func lineArg(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int(v)
}
