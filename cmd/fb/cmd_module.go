package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/flowboard/internal/schema"
)

func newModuleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "module",
		GroupID: "edit",
		Short:   "Add, edit and remove modules",
	}
	cmd.AddCommand(
		newModuleAddCmd(a),
		newModuleEditCmd(a),
		newModuleDatesCmd(a),
		newModuleDeleteCmd(a),
	)
	return cmd
}

func newModuleAddCmd(a *app) *cobra.Command {
	var parent, color, start, end string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a module under a parent module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			m := schema.Module{Name: args[0], Color: color}
			if m.ParentID, err = parentID(s.board.Snapshot(), parent); err != nil {
				return err
			}
			if m.StartDate, err = a.date(start); err != nil {
				return err
			}
			if m.EndDate, err = a.date(end); err != nil {
				return err
			}

			id, res, err := s.board.AddModule(cmd.Context(), m)
			if err != nil {
				return err
			}
			a.report(res)
			fmt.Fprintf(a.stdout, "Added module %s\n", id)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&parent, "parent", "p", "", "Parent module id (required)")
	f.StringVar(&color, "color", "", "Display colour, e.g. #3b82f6")
	f.StringVar(&start, "start", "", "Start date")
	f.StringVar(&end, "end", "", "End date")
	_ = cmd.MarkFlagRequired("parent")
	return cmd
}

func newModuleEditCmd(a *app) *cobra.Command {
	var name, parent, color, start, end string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a module's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			doc := s.board.Snapshot()
			id, err := moduleID(doc, args[0])
			if err != nil {
				return err
			}
			m := *doc.FindModule(id)

			f := cmd.Flags()
			if f.Changed("name") {
				m.Name = name
			}
			if f.Changed("parent") {
				if m.ParentID, err = parentID(doc, parent); err != nil {
					return err
				}
			}
			if f.Changed("color") {
				m.Color = color
			}
			if f.Changed("start") {
				if m.StartDate, err = a.date(start); err != nil {
					return err
				}
			}
			if f.Changed("end") {
				if m.EndDate, err = a.date(end); err != nil {
					return err
				}
			}

			res, err := s.board.UpdateModule(cmd.Context(), m)
			if err != nil {
				return err
			}
			a.report(res)
			fmt.Fprintf(a.stdout, "Updated module %s\n", id)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "New name")
	f.StringVarP(&parent, "parent", "p", "", "Move under this parent module")
	f.StringVar(&color, "color", "", "Display colour")
	f.StringVar(&start, "start", "", "Start date (empty clears)")
	f.StringVar(&end, "end", "", "End date (empty clears)")
	return cmd
}

func newModuleDatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dates <id> <start> <end>",
		Short: "Move a module on the timeline",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			id, err := moduleID(s.board.Snapshot(), args[0])
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
			res, err := s.board.SetModuleDates(cmd.Context(), id, start, end)
			if err != nil {
				return err
			}
			a.report(res)
			fmt.Fprintf(a.stdout, "Module %s: %s → %s\n", id, start, end)
			return nil
		},
	}
}

func newModuleDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a module and all of its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			doc := s.board.Snapshot()
			id, err := moduleID(doc, args[0])
			if err != nil {
				return err
			}
			n := len(doc.TasksOf(id))
			title := fmt.Sprintf("Delete module %q?", doc.FindModule(id).Name)
			if err := a.confirm.Confirm(title, fmt.Sprintf("%d task(s) will be deleted with it.", n)); err != nil {
				return err
			}
			removed, res, err := s.board.DeleteModule(cmd.Context(), id)
			if err != nil {
				return err
			}
			a.report(res)
			fmt.Fprintf(a.stdout, "Deleted module %s and %d task(s)\n", id, removed)
			return nil
		},
	}
}

func newParentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "parent",
		GroupID: "edit",
		Short:   "Add, rename and remove parent modules",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Add a parent module",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.session(cmd.Context())
				if err != nil {
					return err
				}
				id, res, err := s.board.AddParent(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				a.report(res)
				fmt.Fprintf(a.stdout, "Added parent module %s\n", id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename a parent module",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.session(cmd.Context())
				if err != nil {
					return err
				}
				id, err := parentID(s.board.Snapshot(), args[0])
				if err != nil {
					return err
				}
				res, err := s.board.RenameParent(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				a.report(res)
				fmt.Fprintf(a.stdout, "Renamed parent module %s\n", id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a parent module with its modules and their tasks",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.session(cmd.Context())
				if err != nil {
					return err
				}
				doc := s.board.Snapshot()
				id, err := parentID(doc, args[0])
				if err != nil {
					return err
				}
				mods := doc.ModulesOf(id)
				tasks := 0
				for _, m := range mods {
					tasks += len(doc.TasksOf(m.ID))
				}
				title := fmt.Sprintf("Delete parent module %q?", doc.FindParent(id).Name)
				desc := fmt.Sprintf("%d module(s) and %d task(s) will be deleted with it.", len(mods), tasks)
				if err := a.confirm.Confirm(title, desc); err != nil {
					return err
				}
				nm, nt, res, err := s.board.DeleteParent(cmd.Context(), id)
				if err != nil {
					return err
				}
				a.report(res)
				fmt.Fprintf(a.stdout, "Deleted parent module %s, %d module(s) and %d task(s)\n", id, nm, nt)
				return nil
			},
		},
	)
	return cmd
}

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		GroupID: "edit",
		Short:   "Project settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rename <name>",
		Short: "Rename the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			res, err := s.board.RenameProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.report(res)
			fmt.Fprintf(a.stdout, "Renamed project to %q\n", s.board.Snapshot().Project.Name)
			return nil
		},
	})
	return cmd
}
