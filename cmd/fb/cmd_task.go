package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/flowboard/internal/schema"
)

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		GroupID: "edit",
		Short:   "Add, edit and remove tasks",
		Long: `Tasks live in a module. Ids can be abbreviated to any unique prefix.

Dates accept YYYY-MM-DD or expressions such as "tomorrow" or "next monday".`,
	}
	cmd.AddCommand(
		newTaskAddCmd(a),
		newTaskEditCmd(a),
		newTaskDoneCmd(a),
		newTaskToggleCmd(a),
		newTaskDatesCmd(a),
		newTaskDeleteCmd(a),
	)
	return cmd
}

func newTaskAddCmd(a *app) *cobra.Command {
	var module, status, start, end string
	var deps []string
	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Add a task to a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			doc := s.board.Snapshot()
			mid, err := moduleID(doc, module)
			if err != nil {
				return err
			}
			depIDs, err := taskIDs(doc, deps)
			if err != nil {
				return err
			}
			if start, err = a.date(start); err != nil {
				return err
			}
			if end, err = a.date(end); err != nil {
				return err
			}

			id, res, err := s.board.AddTask(cmd.Context(), schema.Task{
				Content:      args[0],
				ModuleID:     mid,
				Status:       status,
				StartDate:    start,
				EndDate:      end,
				Dependencies: depIDs,
			})
			if err != nil {
				return err
			}
			a.report(res)
			fmt.Fprintf(a.stdout, "Added task %s\n", id)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&module, "module", "m", "", "Module id (required)")
	f.StringVar(&status, "status", schema.StatusPending, "pending, doing or done")
	f.StringVar(&start, "start", "", "Start date")
	f.StringVar(&end, "end", "", "End date")
	f.StringSliceVar(&deps, "dep", nil, "Task this one depends on (repeatable)")
	_ = cmd.MarkFlagRequired("module")
	return cmd
}

func newTaskEditCmd(a *app) *cobra.Command {
	var content, module, status, start, end string
	var deps []string
	var clearDeps bool
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			doc := s.board.Snapshot()
			id, err := taskID(doc, args[0])
			if err != nil {
				return err
			}
			t := *doc.FindTask(id)

			f := cmd.Flags()
			if f.Changed("content") {
				t.Content = content
			}
			if f.Changed("module") {
				if t.ModuleID, err = moduleID(doc, module); err != nil {
					return err
				}
			}
			if f.Changed("status") {
				t.Status = status
			}
			if f.Changed("start") {
				if t.StartDate, err = a.date(start); err != nil {
					return err
				}
			}
			if f.Changed("end") {
				if t.EndDate, err = a.date(end); err != nil {
					return err
				}
			}
			if clearDeps {
				t.Dependencies = []string{}
			}
			if f.Changed("dep") {
				if t.Dependencies, err = taskIDs(doc, deps); err != nil {
					return err
				}
			}
			if f.Changed("start") || f.Changed("end") {
				if days, ok := schema.SpanDays(t.StartDate, t.EndDate); ok {
					t.Duration = schema.Days(days)
				}
			}

			res, err := s.board.UpdateTask(cmd.Context(), t)
			if err != nil {
				return err
			}
			a.report(res)
			fmt.Fprintf(a.stdout, "Updated task %s\n", id)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&content, "content", "", "New content")
	f.StringVarP(&module, "module", "m", "", "Move to module")
	f.StringVar(&status, "status", "", "pending, doing or done")
	f.StringVar(&start, "start", "", "Start date (empty clears)")
	f.StringVar(&end, "end", "", "End date (empty clears)")
	f.StringSliceVar(&deps, "dep", nil, "Replace dependencies (repeatable)")
	f.BoolVar(&clearDeps, "clear-deps", false, "Remove all dependencies")
	return cmd
}

func newTaskDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			id, err := taskID(s.board.Snapshot(), args[0])
			if err != nil {
				return err
			}
			res, err := s.board.SetTaskStatus(cmd.Context(), id, schema.StatusDone)
			if err != nil {
				return err
			}
			a.report(res)
			fmt.Fprintf(a.stdout, "Task %s is done\n", id)
			return nil
		},
	}
}

func newTaskToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between done and pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			id, err := taskID(s.board.Snapshot(), args[0])
			if err != nil {
				return err
			}
			status, res, err := s.board.ToggleTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			a.report(res)
			fmt.Fprintf(a.stdout, "Task %s is %s\n", id, status)
			return nil
		},
	}
}

func newTaskDatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dates <id> <start> <end>",
		Short: "Move a task on the timeline",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			id, err := taskID(s.board.Snapshot(), args[0])
			if err != nil {
				return err
			}
			start, err := a.date(args[1])
			if err != nil {
				return err
			}
			end, err := a.date(args[2])
			if err != nil {
				return err
			}
			res, err := s.board.SetTaskDates(cmd.Context(), id, start, end)
			if err != nil {
				return err
			}
			a.report(res)
			fmt.Fprintf(a.stdout, "Task %s: %s → %s\n", id, start, end)
			return nil
		},
	}
}

func newTaskDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task and drop it from other tasks' dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			doc := s.board.Snapshot()
			id, err := taskID(doc, args[0])
			if err != nil {
				return err
			}
			if err := a.confirm.Confirm(fmt.Sprintf("Delete task %q?", doc.FindTask(id).Content), ""); err != nil {
				return err
			}
			res, err := s.board.DeleteTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			a.report(res)
			fmt.Fprintf(a.stdout, "Deleted task %s\n", id)
			return nil
		},
	}
}
