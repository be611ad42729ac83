package board

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/pushboard/pkg/aggregate"
	"github.com/vanderheijden86/pushboard/pkg/hierarchy"
	"github.com/vanderheijden86/pushboard/pkg/model"
	"github.com/vanderheijden86/pushboard/pkg/pushjobs"
)

// statusMarks suffix a job symbol in the dump. Success and superseded jobs
// carry no mark.
var statusMarks = map[string]string{
	model.ResultTestFailed:      "!",
	model.ResultBusted:          "!",
	model.ResultException:       "!",
	model.ResultRetry:           "r",
	model.ResultUserCancel:      "x",
	model.ResultUnknown:         "?",
	string(model.StateRunning):  "*",
	string(model.StatePending):  ".",
	string(model.StateRunnable): "+",
}

// notesShown is how many notifications the dump lists.
const notesShown = 5

// View implements tea.Model: a plain-text dump of every push.
func (b *Board) View() string {
	var sb strings.Builder
	for i, id := range b.order {
		if i > 0 {
			sb.WriteByte('\n')
		}
		writePush(&sb, b.receivers[id].View(), b.width)
	}
	if notes := b.notes.Recent(notesShown); len(notes) > 0 {
		sb.WriteByte('\n')
		for _, n := range notes {
			fitLine(&sb, fmt.Sprintf("[%s] %s", n.Severity, n.Message), b.width)
		}
	}
	return sb.String()
}

func writePush(sb *strings.Builder, r pushjobs.Render, width int) {
	header := fmt.Sprintf("Push %s  %s  pending %d  running %d  completed %d",
		r.Revision, r.Author, r.Counts.Pending, r.Counts.Running, r.Counts.Completed)
	if r.RunnableVisible {
		header += "  runnable"
	}
	if r.Watch != pushjobs.WatchNone {
		header += "  watching " + r.Watch.String()
	}
	if len(r.Pinned) > 0 {
		header += fmt.Sprintf("  pinned %d", len(r.Pinned))
	}
	fitLine(sb, header, width)

	titleWidth := 0
	for _, p := range r.Platforms {
		titleWidth = max(titleWidth, runewidth.StringWidth(p.Title))
	}
	for _, p := range r.Platforms {
		cells := make([]string, 0, len(p.Groups))
		for _, g := range p.Groups {
			cells = append(cells, groupCell(g))
		}
		line := "  " + runewidth.FillRight(p.Title, titleWidth) + "  " + strings.Join(cells, " ")
		fitLine(sb, line, width)
	}
	for _, e := range r.Errors {
		fitLine(sb, "  error: "+e.Error(), width)
	}
}

// groupCell renders "M(1 2! success×3)". Ungrouped jobs render bare.
func groupCell(g pushjobs.GroupRender) string {
	parts := make([]string, 0, len(g.Result.Buttons)+len(g.Result.Counts))
	for _, jv := range g.Result.Buttons {
		parts = append(parts, jobLabel(jv))
	}
	for _, c := range g.Result.Counts {
		parts = append(parts, countLabel(c))
	}
	body := strings.Join(parts, " ")
	if g.Symbol == "?" {
		return body
	}
	symbol := g.Symbol
	if g.Tier > 1 {
		symbol += fmt.Sprintf("[tier %d]", g.Tier)
	}
	return symbol + "(" + body + ")"
}

func jobLabel(jv hierarchy.JobView) string {
	status := jv.Job.Status()
	label := jv.Job.JobTypeSymbol + statusMarks[status]
	if model.IsFailureStatus(status) && jv.Job.IsClassified() {
		label += "c"
	}
	if jv.Selected {
		label = "[" + label + "]"
	}
	return label
}

func countLabel(c aggregate.CountBucket) string {
	label := fmt.Sprintf("%s×%d", c.CountText, c.Count)
	if c.Selected {
		label = "[" + label + "]"
	}
	return label
}

// fitLine writes s truncated to width cells. A width of 0 disables
// truncation.
func fitLine(sb *strings.Builder, s string, width int) {
	if width > 0 && runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	sb.WriteString(s)
	sb.WriteByte('\n')
}
