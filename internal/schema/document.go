package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Task statuses.
const (
	StatusPending = "pending"
	StatusDoing   = "doing"
	StatusDone    = "done"
)

// DateLayout is the layout of every date field in the document.
const DateLayout = "2006-01-02"

// Document is the whole board: project metadata, module hierarchy and tasks.
type Document struct {
	Project       Project        `json:"project" yaml:"project"`
	ParentModules []ParentModule `json:"parentModules" yaml:"parentModules"`
	Modules       []Module       `json:"modules" yaml:"modules"`
	Tasks         []Task         `json:"tasks" yaml:"tasks"`
}

// Project carries the free-text board label.
type Project struct {
	Name string `json:"name" yaml:"name"`
}

// ParentModule is the top hierarchy level ("project phase").
type ParentModule struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Module groups tasks under a parent and carries a display colour and date range.
type Module struct {
	ID        string `json:"id" yaml:"id"`
	ParentID  string `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	Name      string `json:"name" yaml:"name"`
	Color     string `json:"color,omitempty" yaml:"color,omitempty"`
	StartDate string `json:"startDate" yaml:"startDate"`
	EndDate   string `json:"endDate" yaml:"endDate"`
}

// Task is a leaf work item.
type Task struct {
	ID           string   `json:"id" yaml:"id"`
	Content      string   `json:"content" yaml:"content"`
	ModuleID     string   `json:"moduleId" yaml:"moduleId"`
	Status       string   `json:"status" yaml:"status"`
	StartDate    string   `json:"startDate" yaml:"startDate"`
	EndDate      string   `json:"endDate" yaml:"endDate"`
	Duration     Days     `json:"duration" yaml:"duration"`
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
}

// Days is an advisory duration in whole days.
//
// Older clients stored the raw form input, so both 5 and "5" decode. Anything
// unparsable decodes to zero rather than failing the whole document.
type Days int

// UnmarshalJSON implements json.Unmarshaler.
func (d *Days) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*d = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			*d = 0
			return nil
		}
		*d = Days(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*d = 0
		return nil
	}
	*d = Days(int(f))
	return nil
}

// IsValidStatus reports whether s is one of the three task statuses.
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusDoing, StatusDone:
		return true
	}
	return false
}

// Decode parses a document from JSON.
// A JSON null or a non-object decodes to an error, never to an empty document.
func Decode(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("document is not a JSON object")
	}
	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &doc, nil
}

// Encode marshals the document as indented JSON.
func (d *Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

// IsCurrent reports whether the document already has the current (V3) shape:
// parentModules present, even if empty, and every module assigned to a parent.
func (d *Document) IsCurrent() bool {
	if d.ParentModules == nil {
		return false
	}
	for _, m := range d.Modules {
		if m.ParentID == "" {
			return false
		}
	}
	return true
}

// Validate checks id uniqueness and structural references.
// Dangling task dependencies are allowed.
func (d *Document) Validate() error {
	parents := make(map[string]bool, len(d.ParentModules))
	for _, p := range d.ParentModules {
		if p.ID == "" {
			return fmt.Errorf("parent module id is required")
		}
		if parents[p.ID] {
			return fmt.Errorf("duplicate parent module id %q", p.ID)
		}
		parents[p.ID] = true
	}

	modules := make(map[string]bool, len(d.Modules))
	for _, m := range d.Modules {
		if m.ID == "" {
			return fmt.Errorf("module id is required")
		}
		if modules[m.ID] {
			return fmt.Errorf("duplicate module id %q", m.ID)
		}
		if !parents[m.ParentID] {
			return fmt.Errorf("module %q references unknown parent %q", m.ID, m.ParentID)
		}
		modules[m.ID] = true
	}

	tasks := make(map[string]bool, len(d.Tasks))
	for _, t := range d.Tasks {
		if t.ID == "" {
			return fmt.Errorf("task id is required")
		}
		if tasks[t.ID] {
			return fmt.Errorf("duplicate task id %q", t.ID)
		}
		if !modules[t.ModuleID] {
			return fmt.Errorf("task %q references unknown module %q", t.ID, t.ModuleID)
		}
		if !IsValidStatus(t.Status) {
			return fmt.Errorf("task %q has invalid status %q", t.ID, t.Status)
		}
		tasks[t.ID] = true
	}
	return nil
}

// Clone returns a deep copy. Views render from clones so they never hold a
// second mutable copy of the board.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{Project: d.Project}
	if d.ParentModules != nil {
		out.ParentModules = append([]ParentModule{}, d.ParentModules...)
	}
	if d.Modules != nil {
		out.Modules = append([]Module{}, d.Modules...)
	}
	if d.Tasks != nil {
		out.Tasks = make([]Task, len(d.Tasks))
		for i, t := range d.Tasks {
			t.Dependencies = append([]string{}, t.Dependencies...)
			out.Tasks[i] = t
		}
	}
	return out
}

// FindTask returns the task with the given id, or nil.
func (d *Document) FindTask(id string) *Task {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			return &d.Tasks[i]
		}
	}
	return nil
}

// FindModule returns the module with the given id, or nil.
func (d *Document) FindModule(id string) *Module {
	for i := range d.Modules {
		if d.Modules[i].ID == id {
			return &d.Modules[i]
		}
	}
	return nil
}

// FindParent returns the parent module with the given id, or nil.
func (d *Document) FindParent(id string) *ParentModule {
	for i := range d.ParentModules {
		if d.ParentModules[i].ID == id {
			return &d.ParentModules[i]
		}
	}
	return nil
}

// ModulesOf returns the modules under a parent, in document order.
func (d *Document) ModulesOf(parentID string) []Module {
	var out []Module
	for _, m := range d.Modules {
		if m.ParentID == parentID {
			out = append(out, m)
		}
	}
	return out
}

// TasksOf returns the tasks in a module, in document order.
func (d *Document) TasksOf(moduleID string) []Task {
	var out []Task
	for _, t := range d.Tasks {
		if t.ModuleID == moduleID {
			out = append(out, t)
		}
	}
	return out
}

// ModuleStats returns the done and total task counts of a module.
func (d *Document) ModuleStats(moduleID string) (done, total int) {
	for _, t := range d.Tasks {
		if t.ModuleID != moduleID {
			continue
		}
		total++
		if t.Status == StatusDone {
			done++
		}
	}
	return done, total
}
