// Package risk derives a per-task schedule status from the dependency graph
// and the current date.
//
// A task is blocked when it should already have started but some dependency
// is not done. It is at risk when some unfinished dependency has overrun its
// own end date. Blocked dominates risk.
//
// All date comparisons are lexicographic on YYYY-MM-DD strings, which sort
// the same way as the dates they encode.
package risk

import (
	"time"

	"github.com/mschirtzinger/flowboard/internal/schema"
)

// Status of a task with respect to its dependencies.
type Status string

const (
	StatusOK      Status = "ok"
	StatusRisk    Status = "risk"
	StatusBlocked Status = "blocked"
)

// Result is the outcome of evaluating one task. BlockedBy and RiskBy hold the
// content strings of the offending dependencies, in dependency order, and are
// never nil.
type Result struct {
	Status    Status   `json:"status"`
	BlockedBy []string `json:"blockedBy"`
	RiskBy    []string `json:"riskBy"`
}

// Today formats t as a YYYY-MM-DD date in t's local time zone.
func Today(t time.Time) string {
	return t.Local().Format(schema.DateLayout)
}

// Evaluate computes the status of task given every task in the document and
// today's date. Dependencies that do not resolve are ignored.
func Evaluate(task schema.Task, all []schema.Task, today string) Result {
	res := Result{Status: StatusOK, BlockedBy: []string{}, RiskBy: []string{}}
	if len(task.Dependencies) == 0 {
		return res
	}

	byID := make(map[string]*schema.Task, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
	}

	needsStart := task.StartDate != "" && task.StartDate <= today
	for _, id := range task.Dependencies {
		dep, ok := byID[id]
		if !ok || dep.Status == schema.StatusDone {
			continue
		}
		if needsStart {
			res.BlockedBy = append(res.BlockedBy, dep.Content)
		}
		if dep.EndDate != "" && dep.EndDate < today {
			res.RiskBy = append(res.RiskBy, dep.Content)
		}
	}

	switch {
	case len(res.BlockedBy) > 0:
		res.Status = StatusBlocked
	case len(res.RiskBy) > 0:
		res.Status = StatusRisk
	}
	return res
}

// Evaluator evaluates against a clock. The date is recomputed on every call.
type Evaluator struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func (e Evaluator) today() string {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return Today(now())
}

// Evaluate is Evaluate with today taken from the clock.
func (e Evaluator) Evaluate(task schema.Task, all []schema.Task) Result {
	return Evaluate(task, all, e.today())
}

// EvaluateAll evaluates every task of doc, keyed by task id.
func (e Evaluator) EvaluateAll(doc *schema.Document) map[string]Result {
	return EvaluateAll(doc, e.today())
}

// EvaluateAll evaluates every task of doc against one date, keyed by task id.
func EvaluateAll(doc *schema.Document, today string) map[string]Result {
	out := make(map[string]Result, len(doc.Tasks))
	for _, t := range doc.Tasks {
		out[t.ID] = Evaluate(t, doc.Tasks, today)
	}
	return out
}

// Summary counts tasks per risk status. Done tasks are counted separately and
// never as blocked or at risk.
type Summary struct {
	OK      int `json:"ok"`
	Risk    int `json:"risk"`
	Blocked int `json:"blocked"`
	Done    int `json:"done"`
}

// Summarize aggregates results for the tasks of doc.
func Summarize(doc *schema.Document, results map[string]Result) Summary {
	var s Summary
	for _, t := range doc.Tasks {
		if t.Status == schema.StatusDone {
			s.Done++
			continue
		}
		switch results[t.ID].Status {
		case StatusBlocked:
			s.Blocked++
		case StatusRisk:
			s.Risk++
		default:
			s.OK++
		}
	}
	return s
}
