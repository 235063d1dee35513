package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/minitab/internal/apperr"
	"github.com/nikbrunner/minitab/internal/model"
)

var exportCmd = &cobra.Command{
	Use:   "export <group> [path]",
	Short: "Export one group as a browser bookmarks file",
	Long: `Export one group, matched by name or id, as Netscape bookmark HTML.

Without a path the file is written to the configured export directory as
<group>_bookmarks.html. A path naming a directory gets that file name too.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()
		defer printFeed(cmd.OutOrStdout(), e.feed)

		groups, err := e.lib.Groups(cmd.Context())
		if err != nil {
			return err
		}
		g, err := findGroup(groups, args[0])
		if err != nil {
			return err
		}

		name, content, err := e.lib.ExportGroup(cmd.Context(), g.ID)
		if err != nil {
			return err
		}

		dir := e.cfg.ExportDir
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(dir, name)
		if len(args) == 2 {
			path = args[1]
			if fi, err := os.Stat(path); err == nil && fi.IsDir() {
				path = filepath.Join(path, name)
			}
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %q to %s\n", g.Name, path)
		return nil
	},
}

// findGroup matches by id first, then by case-insensitive name.
func findGroup(groups []model.Group, key string) (model.Group, error) {
	for _, g := range groups {
		if g.ID == key {
			return g, nil
		}
	}
	var found []model.Group
	for _, g := range groups {
		if strings.EqualFold(g.Name, key) {
			found = append(found, g)
		}
	}
	switch len(found) {
	case 0:
		return model.Group{}, apperr.NotFoundf("group %q", key)
	case 1:
		return found[0], nil
	default:
		return model.Group{}, fmt.Errorf("%d groups are named %q; use the group id", len(found), key)
	}
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
