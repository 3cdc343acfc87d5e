package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ANSI escape codes for terminal rendering.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// Viewer renders transcripts for terminal display and export. Colors are
// applied only when enabled, so output stays pipe-safe by default.
type Viewer struct {
	colorEnabled bool
}

// NewViewer creates a viewer. Pass false when writing to a file or pipe.
func NewViewer(colorEnabled bool) *Viewer {
	return &Viewer{colorEnabled: colorEnabled}
}

// paint wraps s in the ANSI code when color is enabled.
func (v *Viewer) paint(code, s string) string {
	if !v.colorEnabled {
		return s
	}
	return code + s + ansiReset
}

// statusColor maps a run status to its display color.
func statusColor(status RunStatus) string {
	switch status {
	case RunStatusCompleted:
		return ansiGreen
	case RunStatusFailed:
		return ansiRed
	case RunStatusCanceled:
		return ansiYellow
	default:
		return ansiCyan
	}
}

// roleColor maps a turn role to its display color.
func roleColor(role string) string {
	switch role {
	case "assistant":
		return ansiCyan
	case "user":
		return ansiGreen
	default:
		return ansiYellow
	}
}

// ViewFull displays the complete transcript, every turn included.
func (v *Viewer) ViewFull(w io.Writer, t *Transcript) error {
	v.writeHeader(w, t)
	for _, turn := range t.Turns {
		v.writeTurn(w, turn)
	}
	return nil
}

// ViewSummary displays the header plus a one-line preview per turn.
func (v *Viewer) ViewSummary(w io.Writer, t *Transcript) error {
	v.writeHeader(w, t)

	fmt.Fprintln(w, "\nTurn Summary:")
	for _, turn := range t.Turns {
		preview := strings.ReplaceAll(truncate(turn.Content, 100), "\n", " ")
		label := fmt.Sprintf("[%d] %s/%s:", turn.ID, turn.Role, turn.Stage)
		fmt.Fprintf(w, "  %s %s\n", v.paint(roleColor(turn.Role), label), preview)
	}
	return nil
}

// ViewTurn displays a single turn.
func (v *Viewer) ViewTurn(w io.Writer, turn Turn) error {
	v.writeTurn(w, turn)
	return nil
}

// ViewAssistantOnly displays only assistant turns, useful for reading the
// workflow's replies without the surrounding conversation.
func (v *Viewer) ViewAssistantOnly(w io.Writer, t *Transcript) error {
	v.writeHeader(w, t)
	for _, turn := range t.Turns {
		if turn.Role == "assistant" {
			v.writeTurn(w, turn)
		}
	}
	return nil
}

func (v *Viewer) writeHeader(w io.Writer, t *Transcript) {
	sep := strings.Repeat("=", 60)

	fmt.Fprintln(w, sep)
	fmt.Fprintf(w, "Run: %s\n", v.paint(ansiBold, t.RunID))
	fmt.Fprintf(w, "Request: %s | Status: %s\n",
		t.Metadata.Request,
		v.paint(statusColor(t.Metadata.Status), string(t.Metadata.Status)))
	fmt.Fprintf(w, "Started: %s | Duration: %s\n",
		t.Metadata.StartedAt.Format("2006-01-02 15:04:05"),
		t.Duration().Round(time.Second))
	fmt.Fprintf(w, "Tokens: %d in / %d out\n",
		t.Metadata.TotalTokensIn, t.Metadata.TotalTokensOut)
	if t.Metadata.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", v.paint(ansiRed, t.Metadata.Error))
	}
	fmt.Fprintln(w, sep)
}

func (v *Viewer) writeTurn(w io.Writer, turn Turn) {
	fmt.Fprintln(w)

	var header strings.Builder
	fmt.Fprintf(&header, "[%d] %s (%s)",
		turn.ID,
		v.paint(roleColor(turn.Role), strings.ToUpper(turn.Role)),
		turn.Timestamp.Format("15:04:05"))
	if turn.Stage != "" {
		fmt.Fprintf(&header, " [%s]", turn.Stage)
	}
	if turn.TokensIn > 0 {
		fmt.Fprintf(&header, " [%d tokens in]", turn.TokensIn)
	}
	if turn.TokensOut > 0 {
		fmt.Fprintf(&header, " [%d tokens out]", turn.TokensOut)
	}
	if turn.DurationMs > 0 {
		fmt.Fprintf(&header, " [%dms]", turn.DurationMs)
	}

	fmt.Fprintln(w, header.String())
	fmt.Fprintln(w, v.paint(ansiDim, strings.Repeat("-", 60)))
	fmt.Fprintln(w, turn.Content)

	for _, tc := range turn.ToolCalls {
		fmt.Fprintf(w, "\n  Tool: %s\n", v.paint(ansiBold, tc.Name))
		if tc.Input != nil {
			inputJSON, _ := json.MarshalIndent(tc.Input, "     ", "  ")
			fmt.Fprintf(w, "     Input: %s\n", string(inputJSON))
		}
		if tc.Output != "" {
			fmt.Fprintf(w, "     Output: %s\n", truncate(tc.Output, 200))
		}
		if tc.Error != "" {
			fmt.Fprintf(w, "     Error: %s\n", v.paint(ansiRed, tc.Error))
		}
	}
}

// ExportMarkdown writes the transcript as a markdown document with a
// metadata table followed by the conversation. Colors never apply here.
func (v *Viewer) ExportMarkdown(w io.Writer, t *Transcript) error {
	fmt.Fprintf(w, "# Transcript: %s\n\n", t.RunID)

	fmt.Fprintf(w, "## Metadata\n\n")
	fmt.Fprintf(w, "| Field | Value |\n")
	fmt.Fprintf(w, "|-------|-------|\n")
	fmt.Fprintf(w, "| Request | %s |\n", t.Metadata.Request)
	fmt.Fprintf(w, "| Status | %s |\n", t.Metadata.Status)
	fmt.Fprintf(w, "| Started | %s |\n", t.Metadata.StartedAt.Format(time.RFC3339))
	if !t.Metadata.EndedAt.IsZero() {
		fmt.Fprintf(w, "| Ended | %s |\n", t.Metadata.EndedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "| Duration | %s |\n", t.Duration().Round(time.Second))
	fmt.Fprintf(w, "| Tokens In | %d |\n", t.Metadata.TotalTokensIn)
	fmt.Fprintf(w, "| Tokens Out | %d |\n", t.Metadata.TotalTokensOut)
	if t.Metadata.Error != "" {
		fmt.Fprintf(w, "| Error | %s |\n", t.Metadata.Error)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "## Conversation\n\n")
	for _, turn := range t.Turns {
		fmt.Fprintf(w, "### %s (Turn %d)\n\n", roleTitle.String(turn.Role), turn.ID)

		if turn.Stage != "" {
			fmt.Fprintf(w, "*Stage: %s*\n\n", turn.Stage)
		}
		if turn.TokensIn > 0 {
			fmt.Fprintf(w, "*%d tokens in*\n\n", turn.TokensIn)
		}
		if turn.TokensOut > 0 {
			fmt.Fprintf(w, "*%d tokens out*\n\n", turn.TokensOut)
		}

		fmt.Fprintf(w, "%s\n\n", turn.Content)

		for _, tc := range turn.ToolCalls {
			fmt.Fprintf(w, "#### Tool Call: `%s`\n\n", tc.Name)
			if tc.Input != nil {
				inputJSON, _ := json.MarshalIndent(tc.Input, "", "  ")
				fmt.Fprintf(w, "**Input:**\n```json\n%s\n```\n\n", string(inputJSON))
			}
			if tc.Output != "" {
				fmt.Fprintf(w, "**Output:**\n```\n%s\n```\n\n", tc.Output)
			}
			if tc.Error != "" {
				fmt.Fprintf(w, "**Error:** %s\n\n", tc.Error)
			}
		}
	}
	return nil
}

// ExportJSON writes the transcript as indented JSON.
func (v *Viewer) ExportJSON(w io.Writer, t *Transcript) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(t)
}

// FormatMetaList renders run metadata as an aligned table.
func (v *Viewer) FormatMetaList(w io.Writer, metas []Meta) error {
	if len(metas) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}

	fmt.Fprintf(w, "%-40s %-12s %-20s %12s %8s\n",
		"RUN ID", "STATUS", "STARTED", "TOKENS", "TURNS")
	fmt.Fprintln(w, strings.Repeat("-", 96))

	for _, m := range metas {
		fmt.Fprintf(w, "%-40s %-12s %-20s %12s %8d\n",
			truncate(m.RunID, 40),
			v.paint(statusColor(m.Status), string(m.Status)),
			m.StartedAt.Format("2006-01-02 15:04"),
			fmt.Sprintf("%d/%d", m.TotalTokensIn, m.TotalTokensOut),
			m.TurnCount)
	}

	fmt.Fprintf(w, "\nTotal: %d runs\n", len(metas))
	return nil
}

// FormatStats renders aggregated run statistics.
func (v *Viewer) FormatStats(w io.Writer, stats *Statistics) error {
	fmt.Fprintln(w, "Run Statistics:")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "Total Runs:      %d\n", stats.TotalRuns)
	fmt.Fprintf(w, "  Completed:     %d\n", stats.CompletedRuns)
	fmt.Fprintf(w, "  Failed:        %d\n", stats.FailedRuns)
	fmt.Fprintf(w, "  Canceled:      %d\n", stats.CanceledRuns)
	fmt.Fprintf(w, "  Active:        %d\n", stats.ActiveRuns)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total Tokens:    %d in / %d out\n", stats.TotalTokensIn, stats.TotalTokensOut)
	fmt.Fprintf(w, "Avg Tokens/Run:  %d in / %d out\n", stats.AvgTokensIn, stats.AvgTokensOut)
	return nil
}

// roleTitle capitalizes role names for markdown headings.
var roleTitle = cases.Title(language.English)

// truncate shortens a string to max length with an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
