// Package view projects a board document into the read models shown by the
// CLI and the dashboard: a kanban view with per-task risk and a timeline of
// parent, module and task rows.
package view

import (
	"github.com/mschirtzinger/flowboard/internal/risk"
	"github.com/mschirtzinger/flowboard/internal/schema"
)

// Board is the document plus everything derived from it for display.
type Board struct {
	Document *schema.Document       `json:"document"`
	Today    string                 `json:"today"`
	Risk     map[string]risk.Result `json:"risk"`
	Summary  risk.Summary           `json:"summary"`
}

// NewBoard evaluates doc against today.
func NewBoard(doc *schema.Document, today string) Board {
	results := risk.EvaluateAll(doc, today)
	return Board{
		Document: doc,
		Today:    today,
		Risk:     results,
		Summary:  risk.Summarize(doc, results),
	}
}

// Row kinds of the timeline.
const (
	KindParent = "parent"
	KindModule = "module"
	KindTask   = "task"
)

// Row is one line of the timeline.
type Row struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Depth int    `json:"depth"`
	Start string `json:"startDate,omitempty"`
	End   string `json:"endDate,omitempty"`
	Color string `json:"color,omitempty"`

	// Task rows only.
	Status string      `json:"status,omitempty"`
	Risk   risk.Status `json:"risk,omitempty"`

	// Parent and module rows: done and total task counts below the row.
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Timeline lists parents in document order, each followed by its modules and
// each module by its tasks. A parent's span covers its modules' dates.
func Timeline(b Board) []Row {
	doc := b.Document
	var rows []Row
	for _, p := range doc.ParentModules {
		parentAt := len(rows)
		rows = append(rows, Row{Kind: KindParent, ID: p.ID, Name: p.Name})

		for _, m := range doc.ModulesOf(p.ID) {
			done, total := doc.ModuleStats(m.ID)
			rows = append(rows, Row{
				Kind:  KindModule,
				ID:    m.ID,
				Name:  m.Name,
				Depth: 1,
				Start: m.StartDate,
				End:   m.EndDate,
				Color: m.Color,
				Done:  done,
				Total: total,
			})
			widen(&rows[parentAt], m.StartDate, m.EndDate)
			rows[parentAt].Done += done
			rows[parentAt].Total += total

			for _, t := range doc.TasksOf(m.ID) {
				rows = append(rows, Row{
					Kind:   KindTask,
					ID:     t.ID,
					Name:   t.Content,
					Depth:  2,
					Start:  t.StartDate,
					End:    t.EndDate,
					Color:  m.Color,
					Status: t.Status,
					Risk:   b.Risk[t.ID].Status,
				})
			}
		}
	}
	return rows
}

func widen(r *Row, start, end string) {
	if start != "" && (r.Start == "" || start < r.Start) {
		r.Start = start
	}
	if end != "" && end > r.End {
		r.End = end
	}
}

// Column groups the tasks of one module for the kanban view.
type Column struct {
	Parent schema.ParentModule `json:"parent"`
	Module schema.Module       `json:"module"`
	Tasks  []schema.Task       `json:"tasks"`
}

// Columns returns one column per module, ordered by parent then module.
func Columns(doc *schema.Document) []Column {
	var cols []Column
	for _, p := range doc.ParentModules {
		for _, m := range doc.ModulesOf(p.ID) {
			cols = append(cols, Column{Parent: p, Module: m, Tasks: doc.TasksOf(m.ID)})
		}
	}
	return cols
}
