package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/minitab/internal/tui"
)

var (
	configFlag  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "minitab",
	Short: "Bookmark manager for the terminal",
	Long: `minitab keeps bookmarks in ordered groups.

Without arguments it opens the interactive TUI. Bookmarks live on this
machine until you sign in; the first sign-in moves them to your account.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), envOptions{logToFile: true})
		if err != nil {
			return err
		}
		defer e.Close()

		m := tui.NewApp(tui.AppParams{
			Context:   cmd.Context(),
			Library:   e.lib,
			Feed:      e.feed,
			Account:   e.account,
			ExportDir: e.cfg.ExportDir,
		})
		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		return nil
	},
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "minitab: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file (default ~/.config/minitab/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log at debug level")
}
