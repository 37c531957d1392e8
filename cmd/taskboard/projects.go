package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskboard/internal/models"
	"taskboard/internal/ui"
)

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage projects",
	}
	cmd.AddCommand(
		newProjectListCmd(a),
		newProjectCreateCmd(a),
		newProjectUpdateCmd(a),
		newProjectDeleteCmd(a),
	)
	return cmd
}

func newProjectListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.projects.Fetch(cmd.Context()); err != nil {
				return err
			}
			state := a.projects.State()
			if asJSON {
				return encodeJSON(cmd.OutOrStdout(), state.Projects)
			}
			if len(state.Projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted("No projects."))
				return nil
			}
			current := ""
			if state.Current != nil {
				current = state.Current.ID
			}
			fmt.Fprint(cmd.OutOrStdout(), ui.ProjectTable(state.Projects, current))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newProjectCreateCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.projects.Create(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", project.ID, project.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	return cmd
}

func newProjectUpdateCmd(a *app) *cobra.Command {
	var name, description, status string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the name, description or status of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.ProjectPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("status") {
				patch.Status = &status
			}
			if patch == (models.ProjectPatch{}) {
				return fmt.Errorf("nothing to update: pass --name, --description or --status")
			}
			project, err := a.projects.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated project %s (%s)\n", project.ID, project.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "New name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVar(&status, "status", "", "New project status")
	return cmd
}

func newProjectDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.projects.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
			return nil
		},
	}
}
