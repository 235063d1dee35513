package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/minitab/internal/linkcheck"
	"github.com/nikbrunner/minitab/internal/model"
)

var (
	checkGroupFlag       string
	checkConcurrencyFlag int
	checkTimeoutFlag     time.Duration
	checkPrivateFlag     []string
	checkAllFlag         bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Find bookmarks whose pages are gone",
	Long: `Probe every bookmark URL and list the dead and unreachable ones.

Domains passed with --private report 404s as possibly private, for sites
that hide pages behind a login.`,
	Args: cobra.NoArgs,
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
		names := make(map[string]string, len(groups))
		for _, g := range groups {
			names[g.ID] = g.Name
		}

		var bookmarks []model.Bookmark
		if checkGroupFlag != "" {
			g, err := findGroup(groups, checkGroupFlag)
			if err != nil {
				return err
			}
			bookmarks, err = e.lib.Bookmarks(cmd.Context(), g.ID)
			if err != nil {
				return err
			}
		} else if bookmarks, err = e.lib.AllBookmarks(cmd.Context()); err != nil {
			return err
		}

		errw := cmd.ErrOrStderr()
		checker := linkcheck.New(linkcheck.Options{
			Timeout:        checkTimeoutFlag,
			Concurrency:    checkConcurrencyFlag,
			PrivateDomains: checkPrivateFlag,
			Logger:         e.log,
			OnProgress: func(done, total int) {
				fmt.Fprintf(errw, "\rChecking %d/%d", done, total)
			},
		})
		results, err := checker.Check(cmd.Context(), bookmarks)
		if len(results) > 0 {
			fmt.Fprintln(errw)
		}
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		var dead, unreachable int
		for _, r := range results {
			switch r.Status {
			case linkcheck.Dead:
				dead++
			case linkcheck.Unreachable:
				unreachable++
			default:
				if !checkAllFlag {
					continue
				}
			}
			detail := r.Reason
			if r.StatusCode != 0 {
				detail = fmt.Sprintf("%d %s", r.StatusCode, detail)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.Status, names[r.Bookmark.GroupID], r.Bookmark.Title, r.Bookmark.URL, detail)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d checked, %d dead, %d unreachable\n", len(results), dead, unreachable)
		return nil
	},
}

func init() {
	f := checkCmd.Flags()
	f.StringVarP(&checkGroupFlag, "group", "g", "", "only check this group (name or id)")
	f.IntVar(&checkConcurrencyFlag, "concurrency", linkcheck.DefaultConcurrency, "parallel requests")
	f.DurationVar(&checkTimeoutFlag, "timeout", linkcheck.DefaultTimeout, "per-request timeout")
	f.StringSliceVar(&checkPrivateFlag, "private", []string{"github.com"}, "domains whose 404s may mean private")
	f.BoolVarP(&checkAllFlag, "all", "a", false, "list healthy bookmarks too")
	rootCmd.AddCommand(checkCmd)
}
