package board

import (
	"context"
	"fmt"

	"github.com/mschirtzinger/flowboard/internal/migrate"
	"github.com/mschirtzinger/flowboard/internal/schema"
)

// DefaultModuleColor is used when a new module has no colour.
const DefaultModuleColor = migrate.RecoveredColor

// RenameProject renames the board.
func (b *Board) RenameProject(ctx context.Context, name string) (SaveResult, error) {
	return b.Mutate(ctx, func(d *schema.Document) error {
		return d.RenameProject(name)
	})
}

// AddParent creates a parent module and returns its id.
func (b *Board) AddParent(ctx context.Context, name string) (string, SaveResult, error) {
	id := b.NewID()
	res, err := b.Mutate(ctx, func(d *schema.Document) error {
		return d.AddParent(schema.ParentModule{ID: id, Name: name})
	})
	return id, res, err
}

// RenameParent renames a parent module.
func (b *Board) RenameParent(ctx context.Context, id, name string) (SaveResult, error) {
	return b.Mutate(ctx, func(d *schema.Document) error {
		return d.RenameParent(id, name)
	})
}

// DeleteParent removes a parent module with its modules and their tasks.
func (b *Board) DeleteParent(ctx context.Context, id string) (modules, tasks int, res SaveResult, err error) {
	res, err = b.Mutate(ctx, func(d *schema.Document) error {
		var derr error
		modules, tasks, derr = d.DeleteParent(id)
		return derr
	})
	return modules, tasks, res, err
}

// AddModule creates a module and returns its id. An empty id is generated
// and an empty colour gets the default.
func (b *Board) AddModule(ctx context.Context, m schema.Module) (string, SaveResult, error) {
	if m.ID == "" {
		m.ID = b.NewID()
	}
	if m.Color == "" {
		m.Color = DefaultModuleColor
	}
	res, err := b.Mutate(ctx, func(d *schema.Document) error {
		return d.AddModule(m)
	})
	return m.ID, res, err
}

// UpdateModule replaces a module's editable fields.
func (b *Board) UpdateModule(ctx context.Context, m schema.Module) (SaveResult, error) {
	return b.Mutate(ctx, func(d *schema.Document) error {
		return d.UpdateModule(m)
	})
}

// SetModuleDates moves a module on the timeline.
func (b *Board) SetModuleDates(ctx context.Context, id, start, end string) (SaveResult, error) {
	return b.Mutate(ctx, func(d *schema.Document) error {
		return d.SetModuleDates(id, start, end)
	})
}

// DeleteModule removes a module and its tasks.
func (b *Board) DeleteModule(ctx context.Context, id string) (tasks int, res SaveResult, err error) {
	res, err = b.Mutate(ctx, func(d *schema.Document) error {
		var derr error
		tasks, derr = d.DeleteModule(id)
		return derr
	})
	return tasks, res, err
}

// AddTask creates a task and returns its id. An empty id is generated.
func (b *Board) AddTask(ctx context.Context, t schema.Task) (string, SaveResult, error) {
	if t.ID == "" {
		t.ID = b.NewID()
	}
	if t.Duration == 0 {
		if days, ok := schema.SpanDays(t.StartDate, t.EndDate); ok {
			t.Duration = schema.Days(days)
		} else {
			t.Duration = migrate.DefaultDuration
		}
	}
	res, err := b.Mutate(ctx, func(d *schema.Document) error {
		return d.AddTask(t)
	})
	return t.ID, res, err
}

// UpdateTask replaces a task's editable fields.
func (b *Board) UpdateTask(ctx context.Context, t schema.Task) (SaveResult, error) {
	return b.Mutate(ctx, func(d *schema.Document) error {
		return d.UpdateTask(t)
	})
}

// ToggleTask flips a task between done and pending and returns the new status.
func (b *Board) ToggleTask(ctx context.Context, id string) (string, SaveResult, error) {
	var status string
	res, err := b.Mutate(ctx, func(d *schema.Document) error {
		var terr error
		status, terr = d.ToggleTask(id)
		return terr
	})
	return status, res, err
}

// SetTaskStatus sets a task's status directly.
func (b *Board) SetTaskStatus(ctx context.Context, id, status string) (SaveResult, error) {
	return b.Mutate(ctx, func(d *schema.Document) error {
		t := d.FindTask(id)
		if t == nil {
			return fmt.Errorf("task %q: %w", id, schema.ErrNotFound)
		}
		updated := *t
		updated.Status = status
		return d.UpdateTask(updated)
	})
}

// SetTaskDates moves a task on the timeline and recomputes its duration.
func (b *Board) SetTaskDates(ctx context.Context, id, start, end string) (SaveResult, error) {
	return b.Mutate(ctx, func(d *schema.Document) error {
		return d.SetTaskDates(id, start, end)
	})
}

// DeleteTask removes a task and prunes it from other tasks' dependencies.
func (b *Board) DeleteTask(ctx context.Context, id string) (SaveResult, error) {
	return b.Mutate(ctx, func(d *schema.Document) error {
		return d.DeleteTask(id)
	})
}
