package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/minitab/internal/importer"
)

var noDescribeFlag bool

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import bookmarks from an HTML or JSON export",
	Long: `Import bookmarks from a browser HTML export or a JSON file.

Every folder becomes a group. Bookmarks without a description get one
fetched from the page unless --no-describe is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		e, err := openEnv(cmd.Context(), envOptions{noDescribe: noDescribeFlag})
		if err != nil {
			return err
		}
		defer e.Close()
		defer printFeed(cmd.OutOrStdout(), e.feed)

		groups := e.lib.ParseImport(string(content))
		if len(groups) == 0 {
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Found %d bookmarks in %d groups\n",
			importer.Count(groups), len(groups))

		res, err := e.lib.Import(cmd.Context(), groups)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d bookmarks into %d groups\n", res.Bookmarks, res.Groups)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&noDescribeFlag, "no-describe", false, "do not fetch missing descriptions")
	rootCmd.AddCommand(importCmd)
}
