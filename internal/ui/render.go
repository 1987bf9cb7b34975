package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mschirtzinger/flowboard/internal/board"
	"github.com/mschirtzinger/flowboard/internal/schema"
	"github.com/mschirtzinger/flowboard/internal/sync"
	"github.com/mschirtzinger/flowboard/internal/view"
)

// BarWidth is the width of the timeline's bar column.
const BarWidth = 40

// Summary renders the one-line risk summary.
func Summary(v view.Board) string {
	s := v.Summary
	return fmt.Sprintf("%d ok, %s, %s, %d done",
		s.OK,
		StyleYellow.Render(fmt.Sprintf("%d at risk", s.Risk)),
		StyleRed.Render(fmt.Sprintf("%d blocked", s.Blocked)),
		s.Done)
}

// RenderBoard writes the kanban listing: parents, their modules with
// progress, and each module's tasks with risk badges.
func RenderBoard(w io.Writer, v view.Board, status board.Status) {
	doc := v.Document
	fmt.Fprintf(w, "%s  %s\n", StyleBold.Render(doc.Project.Name), StatusBadge(status))
	fmt.Fprintf(w, "%s\n", Summary(v))

	if len(doc.ParentModules) == 0 && len(doc.Modules) == 0 {
		fmt.Fprintf(w, "\n%s\n", Dim("Empty board. Add a parent module with: fb parent add <name>"))
		return
	}

	for _, p := range doc.ParentModules {
		fmt.Fprintf(w, "\n%s %s\n", Header(p.Name), Dim("("+p.ID+")"))
		modules := doc.ModulesOf(p.ID)
		if len(modules) == 0 {
			fmt.Fprintf(w, "  %s\n", Dim("no modules"))
		}
		for _, m := range modules {
			renderModule(w, v, m)
		}
	}

	var ungrouped []schema.Module
	for _, m := range doc.Modules {
		if m.ParentID == "" || doc.FindParent(m.ParentID) == nil {
			ungrouped = append(ungrouped, m)
		}
	}
	if len(ungrouped) > 0 {
		fmt.Fprintf(w, "\n%s\n", Header("Ungrouped"))
		for _, m := range ungrouped {
			renderModule(w, v, m)
		}
	}
}

func renderModule(w io.Writer, v view.Board, m schema.Module) {
	doc := v.Document
	done, total := doc.ModuleStats(m.ID)
	fmt.Fprintf(w, "  %s %s%s  %d/%d\n",
		StyleBlue.Render("■"), m.Name, Dim(" ("+m.ID+")"+span(m.StartDate, m.EndDate)), done, total)
	for _, t := range doc.TasksOf(m.ID) {
		line := fmt.Sprintf("    %s %s %s%s", StatusMark(t.Status), Dim(t.ID), t.Content, Dim(span(t.StartDate, t.EndDate)))
		res := v.Risk[t.ID]
		if badge := RiskBadge(res.Status); badge != "" {
			by := res.BlockedBy
			if len(by) == 0 {
				by = res.RiskBy
			}
			line += "  " + badge + Dim(" by "+strings.Join(by, ", "))
		}
		fmt.Fprintln(w, line)
	}
}

func span(start, end string) string {
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return " " + start + " →"
	case start == "":
		return " → " + end
	default:
		return " " + start + " → " + end
	}
}

// RenderTimeline writes one line per row with a bar scaled to the board's
// overall date range. Rows without dates get no bar.
func RenderTimeline(w io.Writer, rows []view.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, Dim("Nothing to show."))
		return
	}

	first, last := bounds(rows)
	total, ok := schema.SpanDays(first, last)
	if ok {
		fmt.Fprintf(w, "%s  %s → %s\n", Dim("range"), first, last)
	}

	width := 0
	for _, r := range rows {
		if n := labelWidth(r); n > width {
			width = n
		}
	}

	for _, r := range rows {
		label := strings.Repeat("  ", r.Depth) + r.Name
		pad := strings.Repeat(" ", width-labelWidth(r))
		bar := ""
		if ok && r.Start != "" && r.End != "" {
			bar = renderBar(r, first, total)
		}

		switch r.Kind {
		case view.KindParent:
			label = Header(label)
		case view.KindTask:
			label = StatusMark(r.Status) + " " + label
		}
		line := label + pad + "  " + bar
		if badge := RiskBadge(r.Risk); badge != "" {
			line += " " + badge
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func labelWidth(r view.Row) int {
	n := 2*r.Depth + lipgloss.Width(r.Name)
	if r.Kind == view.KindTask {
		n += 4
	}
	return n
}

func bounds(rows []view.Row) (first, last string) {
	for _, r := range rows {
		if r.Start != "" && (first == "" || r.Start < first) {
			first = r.Start
		}
		if r.End != "" && r.End > last {
			last = r.End
		}
	}
	return first, last
}

func renderBar(r view.Row, first string, total int) string {
	if total == 0 {
		total = 1
	}
	offset, _ := schema.SpanDays(first, r.Start)
	length, _ := schema.SpanDays(r.Start, r.End)
	if r.End < r.Start {
		length = 0
	}

	from := offset * BarWidth / total
	to := (offset + length) * BarWidth / total
	if to <= from {
		to = from + 1
	}
	if to > BarWidth {
		to = BarWidth
	}
	if from >= BarWidth {
		from = BarWidth - 1
	}

	bar := strings.Repeat("·", from) + strings.Repeat("█", to-from) + strings.Repeat("·", BarWidth-to)
	if r.Kind == view.KindParent {
		return StyleDim.Render(bar)
	}
	return StyleBlue.Render(bar)
}

// RenderSources writes the recovery listing.
func RenderSources(w io.Writer, infos []sync.SourceInfo) {
	for _, s := range infos {
		state := s.State
		switch s.State {
		case sync.StateOK:
			state = StyleGreen.Render(state)
		case sync.StateCorrupt, sync.StateUnreachable:
			state = StyleRed.Render(state)
		default:
			state = Dim(state)
		}
		line := fmt.Sprintf("%-7s %s", s.Source, state)
		if s.Backend != "" {
			line += Dim(" [" + s.Backend + "]")
		}
		if s.State == sync.StateOK {
			line += fmt.Sprintf("  %q  %d modules, %d tasks", s.Project, s.Modules, s.Tasks)
		}
		if s.Detail != "" {
			line += Dim("  " + s.Detail)
		}
		fmt.Fprintln(w, line)
	}
}

// RenderSave reports a save outcome in one line, or nothing when all went
// well.
func RenderSave(w io.Writer, res board.SaveResult) {
	if res.LocalErr != nil {
		fmt.Fprintf(w, "%s %v\n", StyleRed.Render("local save failed:"), res.LocalErr)
	}
	if res.RemoteErr != nil {
		fmt.Fprintf(w, "%s %v %s\n", StatusBadge(res.Status), res.RemoteErr, Dim("(saved locally; retry with: fb sync --force)"))
	}
}

// Ago formats the age of t for listings.
func Ago(t, now time.Time) string {
	d := now.Sub(t).Round(time.Second)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
