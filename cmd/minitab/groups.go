package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List groups in display order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		groups, err := e.lib.Groups(cmd.Context())
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No groups")
			return nil
		}

		all, err := e.lib.AllBookmarks(cmd.Context())
		if err != nil {
			return err
		}
		counts := make(map[string]int, len(groups))
		for _, b := range all {
			counts[b.GroupID]++
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tBOOKMARKS")
		for _, g := range groups {
			fmt.Fprintf(w, "%s\t%s\t%d\n", g.ID, g.Name, counts[g.ID])
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(groupsCmd)
}
