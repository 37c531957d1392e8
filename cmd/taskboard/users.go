package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskboard/internal/ui"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Show users tasks can be assigned to",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tasks.FetchUsers(cmd.Context()); err != nil {
				return err
			}
			users := a.tasks.State().Users
			if asJSON {
				return encodeJSON(cmd.OutOrStdout(), users)
			}
			fmt.Fprint(cmd.OutOrStdout(), ui.UserTable(users))
			return nil
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.AddCommand(list)
	return cmd
}
