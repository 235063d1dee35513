package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/minitab/internal/model"
	"github.com/nikbrunner/minitab/internal/picker"
)

var printFlag bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find a bookmark and open it",
	Long: `Search titles, URLs and descriptions. A single match opens directly;
several matches open a picker.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		e, err := openEnv(cmd.Context(), envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		results, err := e.lib.Search(cmd.Context(), query)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintf(out, "No bookmarks found for %q\n", query)
			return nil
		}

		if printFlag {
			for _, b := range results {
				fmt.Fprintf(out, "%s\t%s\n", b.Title, b.URL)
			}
			return nil
		}

		var selected *model.Bookmark
		if len(results) == 1 {
			selected = &results[0]
		} else {
			groups, err := e.lib.Groups(cmd.Context())
			if err != nil {
				return err
			}
			names := make(map[string]string, len(groups))
			for _, g := range groups {
				names[g.ID] = g.Name
			}

			final, err := tea.NewProgram(picker.New(results, names, query)).Run()
			if err != nil {
				return fmt.Errorf("run picker: %w", err)
			}
			p := final.(picker.Picker)
			if p.Cancelled() {
				return nil
			}
			selected = p.SelectedBookmark()
		}
		if selected == nil || selected.URL == "" {
			return nil
		}

		fmt.Fprintf(out, "Opening: %s\n", selected.Title)
		return browser.OpenURL(selected.URL)
	},
}

func init() {
	searchCmd.Flags().BoolVarP(&printFlag, "print", "p", false, "print matches instead of opening one")
	rootCmd.AddCommand(searchCmd)
}
