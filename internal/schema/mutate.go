package schema

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrNotFound is returned when a mutation names an entity that does not exist.
var ErrNotFound = errors.New("not found")

// RenameProject sets the project name. Blank names are rejected.
func (d *Document) RenameProject(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("project name is required")
	}
	d.Project.Name = name
	return nil
}

// AddParent appends a parent module.
func (d *Document) AddParent(p ParentModule) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" {
		return fmt.Errorf("parent module id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("parent module name is required")
	}
	if d.FindParent(p.ID) != nil {
		return fmt.Errorf("parent module %q already exists", p.ID)
	}
	if d.ParentModules == nil {
		d.ParentModules = []ParentModule{}
	}
	d.ParentModules = append(d.ParentModules, p)
	return nil
}

// RenameParent changes a parent module's name.
func (d *Document) RenameParent(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("parent module name is required")
	}
	p := d.FindParent(id)
	if p == nil {
		return fmt.Errorf("parent module %q: %w", id, ErrNotFound)
	}
	p.Name = name
	return nil
}

// DeleteParent removes a parent module, every module under it and every task
// in those modules. The removed ids are collected before anything is filtered
// so no task can survive pointing at a removed module.
//
// Dependencies of surviving tasks are left alone, even if they now dangle.
func (d *Document) DeleteParent(id string) (modulesRemoved, tasksRemoved int, err error) {
	if d.FindParent(id) == nil {
		return 0, 0, fmt.Errorf("parent module %q: %w", id, ErrNotFound)
	}

	doomed := make(map[string]bool)
	for _, m := range d.Modules {
		if m.ParentID == id {
			doomed[m.ID] = true
		}
	}

	parents := d.ParentModules[:0:0]
	for _, p := range d.ParentModules {
		if p.ID != id {
			parents = append(parents, p)
		}
	}

	modules := d.Modules[:0:0]
	for _, m := range d.Modules {
		if !doomed[m.ID] {
			modules = append(modules, m)
		}
	}

	tasks := d.Tasks[:0:0]
	for _, t := range d.Tasks {
		if doomed[t.ModuleID] {
			tasksRemoved++
			continue
		}
		tasks = append(tasks, t)
	}

	modulesRemoved = len(d.Modules) - len(modules)
	d.ParentModules = parents
	d.Modules = modules
	d.Tasks = tasks
	return modulesRemoved, tasksRemoved, nil
}

// AddModule appends a module. Its parent must exist.
func (d *Document) AddModule(m Module) error {
	if err := d.checkModule(m); err != nil {
		return err
	}
	if d.FindModule(m.ID) != nil {
		return fmt.Errorf("module %q already exists", m.ID)
	}
	d.Modules = append(d.Modules, m)
	return nil
}

// UpdateModule replaces every editable field of an existing module.
func (d *Document) UpdateModule(m Module) error {
	if err := d.checkModule(m); err != nil {
		return err
	}
	existing := d.FindModule(m.ID)
	if existing == nil {
		return fmt.Errorf("module %q: %w", m.ID, ErrNotFound)
	}
	*existing = m
	return nil
}

func (d *Document) checkModule(m Module) error {
	if m.ID == "" {
		return fmt.Errorf("module id is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("module name is required")
	}
	if d.FindParent(m.ParentID) == nil {
		return fmt.Errorf("parent module %q: %w", m.ParentID, ErrNotFound)
	}
	return checkDates(m.StartDate, m.EndDate)
}

// SetModuleDates applies a timeline drag to a module.
func (d *Document) SetModuleDates(id, start, end string) error {
	if err := checkDates(start, end); err != nil {
		return err
	}
	m := d.FindModule(id)
	if m == nil {
		return fmt.Errorf("module %q: %w", id, ErrNotFound)
	}
	m.StartDate = start
	m.EndDate = end
	return nil
}

// DeleteModule removes a module and every task in it. Dependencies of
// surviving tasks are not pruned.
func (d *Document) DeleteModule(id string) (tasksRemoved int, err error) {
	if d.FindModule(id) == nil {
		return 0, fmt.Errorf("module %q: %w", id, ErrNotFound)
	}

	modules := d.Modules[:0:0]
	for _, m := range d.Modules {
		if m.ID != id {
			modules = append(modules, m)
		}
	}

	tasks := d.Tasks[:0:0]
	for _, t := range d.Tasks {
		if t.ModuleID == id {
			tasksRemoved++
			continue
		}
		tasks = append(tasks, t)
	}

	d.Modules = modules
	d.Tasks = tasks
	return tasksRemoved, nil
}

// AddTask appends a task. Its module must exist; an empty status means pending.
func (d *Document) AddTask(t Task) error {
	t, err := d.prepareTask(t)
	if err != nil {
		return err
	}
	if d.FindTask(t.ID) != nil {
		return fmt.Errorf("task %q already exists", t.ID)
	}
	d.Tasks = append(d.Tasks, t)
	return nil
}

// UpdateTask replaces every editable field of an existing task.
func (d *Document) UpdateTask(t Task) error {
	t, err := d.prepareTask(t)
	if err != nil {
		return err
	}
	existing := d.FindTask(t.ID)
	if existing == nil {
		return fmt.Errorf("task %q: %w", t.ID, ErrNotFound)
	}
	*existing = t
	return nil
}

func (d *Document) prepareTask(t Task) (Task, error) {
	t.Content = strings.TrimSpace(t.Content)
	if t.ID == "" {
		return t, fmt.Errorf("task id is required")
	}
	if t.Content == "" {
		return t, fmt.Errorf("task content is required")
	}
	if d.FindModule(t.ModuleID) == nil {
		return t, fmt.Errorf("module %q: %w", t.ModuleID, ErrNotFound)
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if !IsValidStatus(t.Status) {
		return t, fmt.Errorf("invalid status %q (must be pending, doing or done)", t.Status)
	}
	if err := checkDates(t.StartDate, t.EndDate); err != nil {
		return t, err
	}

	deps := make([]string, 0, len(t.Dependencies))
	seen := make(map[string]bool, len(t.Dependencies))
	for _, dep := range t.Dependencies {
		if dep == "" || dep == t.ID || seen[dep] {
			continue
		}
		seen[dep] = true
		deps = append(deps, dep)
	}
	t.Dependencies = deps
	return t, nil
}

// ToggleTask flips a task between done and pending and returns the new status.
// A doing task becomes done.
func (d *Document) ToggleTask(id string) (string, error) {
	t := d.FindTask(id)
	if t == nil {
		return "", fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	if t.Status == StatusDone {
		t.Status = StatusPending
	} else {
		t.Status = StatusDone
	}
	return t.Status, nil
}

// SetTaskDates applies a timeline drag to a task. The duration is recomputed
// as the whole number of days between start and end, rounded up.
func (d *Document) SetTaskDates(id, start, end string) error {
	if err := checkDates(start, end); err != nil {
		return err
	}
	t := d.FindTask(id)
	if t == nil {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	t.StartDate = start
	t.EndDate = end
	if days, ok := SpanDays(start, end); ok {
		t.Duration = Days(days)
	}
	return nil
}

// DeleteTask removes a task and strips its id from every other task's
// dependencies.
func (d *Document) DeleteTask(id string) error {
	if d.FindTask(id) == nil {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}

	tasks := d.Tasks[:0:0]
	for _, t := range d.Tasks {
		if t.ID == id {
			continue
		}
		if len(t.Dependencies) > 0 {
			deps := make([]string, 0, len(t.Dependencies))
			for _, dep := range t.Dependencies {
				if dep != id {
					deps = append(deps, dep)
				}
			}
			t.Dependencies = deps
		}
		tasks = append(tasks, t)
	}
	d.Tasks = tasks
	return nil
}

// SpanDays returns ceil(|end-start|) in days. ok is false when either date is
// empty or malformed.
func SpanDays(start, end string) (int, bool) {
	if start == "" || end == "" {
		return 0, false
	}
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return 0, false
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return 0, false
	}
	return int(math.Ceil(math.Abs(e.Sub(s).Hours()) / 24)), true
}

func checkDates(dates ...string) error {
	for _, s := range dates {
		if s == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, s); err != nil {
			return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
		}
	}
	return nil
}
