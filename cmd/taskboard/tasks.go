package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskboard/internal/models"
	"taskboard/internal/ui"
	"taskboard/internal/view"
)

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Manage tasks",
	}
	cmd.AddCommand(
		newTaskListCmd(a),
		newTaskCreateCmd(a),
		newTaskUpdateCmd(a),
		newTaskStatusCmd(a),
		newTaskDeleteCmd(a),
	)
	return cmd
}

// resolveProject maps a canonical or legacy project id to the canonical one. An
// empty id stays empty.
func (a *app) resolveProject(cmd *cobra.Command, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	project, err := a.projects.Select(cmd.Context(), id)
	if err != nil {
		return "", err
	}
	return project.ID, nil
}

// parseStatus accepts statuses in any case. Unknown values pass through and are
// rejected by validation.
func parseStatus(value string) models.TaskStatus {
	return models.TaskStatus(strings.ToUpper(strings.TrimSpace(value)))
}

func newTaskListCmd(a *app) *cobra.Command {
	var projectID, status, sort string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks of a project, or of every project without --project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := view.ParseStatusFilter(status)
			if err != nil {
				return err
			}
			order, err := view.ParseSortOrder(sort)
			if err != nil {
				return err
			}
			resolved, err := a.resolveProject(cmd, projectID)
			if err != nil {
				return err
			}

			a.tasks.SetStatusFilter(filter)
			a.tasks.SetSortOrder(order)
			if err := a.tasks.Fetch(cmd.Context(), resolved); err != nil {
				return err
			}

			visible := a.tasks.State().Visible
			if asJSON {
				return encodeJSON(cmd.OutOrStdout(), visible)
			}
			if len(visible) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted("No tasks."))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), ui.TaskTable(visible))
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project id")
	cmd.Flags().StringVarP(&status, "status", "s", "all", "Show only tasks with this status: all, pending, in_progress or done")
	cmd.Flags().StringVar(&sort, "sort", "", "Order by due date: asc or desc")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newTaskCreateCmd(a *app) *cobra.Command {
	var projectID, description, status, due, assignee string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := a.resolveProject(cmd, projectID)
			if err != nil {
				return err
			}
			task, err := a.tasks.Create(cmd.Context(), resolved, models.TaskInput{
				Title:       args[0],
				Description: description,
				Status:      parseStatus(status),
				DueDate:     due,
				AssigneeID:  assignee,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s (%s)\n", task.ID, task.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project id")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&status, "status", "s", string(models.StatusPending), "PENDING, IN_PROGRESS or DONE")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "Assignee user id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newTaskUpdateCmd(a *app) *cobra.Command {
	var projectID, title, description, status, due, assignee string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a task",
		Long: `Change fields of a task.

Only the flags that are passed are sent. Pass an empty --due or --assignee to clear it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("status") {
				s := parseStatus(status)
				patch.Status = &s
			}
			if flags.Changed("due") {
				patch.DueDate = &due
			}
			if flags.Changed("assignee") {
				patch.AssigneeID = &assignee
			}
			if patch == (models.TaskPatch{}) {
				return fmt.Errorf("nothing to update")
			}
			resolved, err := a.resolveProject(cmd, projectID)
			if err != nil {
				return err
			}
			task, err := a.tasks.Update(cmd.Context(), resolved, args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s (%s)\n", task.ID, ui.Status(task.Status))
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project id")
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "PENDING, IN_PROGRESS or DONE")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "Assignee user id")
	return cmd
}

func newTaskStatusCmd(a *app) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a task to PENDING, IN_PROGRESS or DONE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := a.resolveProject(cmd, projectID)
			if err != nil {
				return err
			}
			task, err := a.tasks.UpdateStatus(cmd.Context(), resolved, args[0], parseStatus(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", task.ID, ui.Status(task.Status))
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project id")
	return cmd
}

func newTaskDeleteCmd(a *app) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tasks.Delete(cmd.Context(), projectID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project id")
	return cmd
}
