package app

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nikbrunner/minitab/internal/apperr"
	"github.com/nikbrunner/minitab/internal/exporter"
	"github.com/nikbrunner/minitab/internal/importer"
	"github.com/nikbrunner/minitab/internal/logger"
	"github.com/nikbrunner/minitab/internal/model"
)

// ImportResult counts what an import created.
type ImportResult struct {
	Groups    int `json:"groups"`
	Bookmarks int `json:"bookmarks"`
	// Skipped counts entries without a usable URL or title.
	Skipped int `json:"skipped,omitempty"`
}

const maxTitleLen = 500

// importEntry is the part of a parsed bookmark that must hold up before
// it is stored.
type importEntry struct {
	Title string `json:"title" validate:"notblank"`
	URL   string `json:"url" validate:"notblank,max=2048"`
}

// ParseImport parses file content for the import preview. Nothing found
// is reported as a notification, not an error.
func (l *Library) ParseImport(content string) []importer.ParsedGroup {
	groups := importer.Parse(content)
	if len(groups) == 0 {
		l.notifier.Notify(LevelWarning, "No bookmarks found in file")
	}
	return groups
}

// Import creates every parsed group with its bookmarks. For each group
// the missing descriptions are looked up in parallel before any bookmark
// is written, then the bookmarks are created in file order. The first
// provider failure stops the import.
func (l *Library) Import(ctx context.Context, groups []importer.ParsedGroup) (ImportResult, error) {
	var res ImportResult

	p, err := l.provider(ctx)
	if err != nil {
		return res, l.fail("Import failed", err)
	}

	for _, pg := range groups {
		valid := l.validEntries(pg.Bookmarks)
		res.Skipped += len(pg.Bookmarks) - len(valid)
		if len(valid) == 0 {
			continue
		}

		name := strings.TrimSpace(pg.Name)
		if name == "" {
			name = importer.UnnamedGroupName
		}
		g, err := p.CreateGroup(ctx, name)
		if err != nil {
			return res, l.fail("Import failed", err)
		}
		res.Groups++

		descriptions := l.describeAll(ctx, valid)

		for i, pb := range valid {
			order := i
			if _, err := p.CreateBookmark(ctx, model.BookmarkInput{
				GroupID:     g.ID,
				Title:       pb.Title,
				URL:         pb.URL,
				Description: descriptions[i],
				FaviconURL:  importIcon(pb),
				SortOrder:   &order,
			}); err != nil {
				return res, l.fail("Import failed", err)
			}
			res.Bookmarks++
		}
	}

	if res.Skipped > 0 {
		l.notifier.Notify(LevelWarning, fmt.Sprintf("Skipped %d bookmarks without a URL", res.Skipped))
	}
	if res.Groups == 0 {
		l.notifier.Notify(LevelWarning, "No bookmarks found in file")
		return res, nil
	}

	l.log.Info("import finished",
		logger.Int("groups", res.Groups),
		logger.Int("bookmarks", res.Bookmarks),
		logger.Int("skipped", res.Skipped))
	l.ok("Bookmarks imported")
	return res, nil
}

// validEntries trims parsed bookmarks and drops the ones that cannot be
// stored. A blank title falls back to the URL.
func (l *Library) validEntries(bookmarks []importer.ParsedBookmark) []importer.ParsedBookmark {
	out := make([]importer.ParsedBookmark, 0, len(bookmarks))
	for _, pb := range bookmarks {
		pb.URL = strings.TrimSpace(pb.URL)
		pb.Title = strings.TrimSpace(pb.Title)
		if pb.Title == "" {
			pb.Title = pb.URL
		}
		if r := []rune(pb.Title); len(r) > maxTitleLen {
			pb.Title = string(r[:maxTitleLen])
		}
		if err := l.validator.Validate(importEntry{Title: pb.Title, URL: pb.URL}); err != nil {
			l.log.Debug("skip imported bookmark", logger.String("url", pb.URL), logger.Error(err))
			continue
		}
		out = append(out, pb)
	}
	return out
}

// describeAll keeps descriptions present in the file and looks up the
// rest with bounded parallelism.
func (l *Library) describeAll(ctx context.Context, bookmarks []importer.ParsedBookmark) []string {
	out := make([]string, len(bookmarks))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(l.concurrency)

	for i, b := range bookmarks {
		if desc := strings.TrimSpace(b.Description); desc != "" {
			out[i] = desc
			continue
		}
		eg.Go(func() error {
			out[i] = l.describer.Describe(ctx, b.URL)
			return nil
		})
	}

	// lookups never fail
	_ = eg.Wait()
	return out
}

// importIcon keeps inline icons from the file; anything else is replaced
// by the derived favicon.
func importIcon(b importer.ParsedBookmark) string {
	if strings.HasPrefix(b.Icon, "data:") {
		return b.Icon
	}
	return model.FaviconURL(b.URL)
}

// ExportGroup renders one group as a Netscape bookmark file and returns
// the suggested file name with the content.
func (l *Library) ExportGroup(ctx context.Context, groupID string) (filename, content string, err error) {
	p, err := l.provider(ctx)
	if err != nil {
		return "", "", l.fail("Export failed", err)
	}

	groups, err := p.Groups(ctx)
	if err != nil {
		return "", "", l.fail("Export failed", err)
	}

	var group *model.Group
	for i := range groups {
		if groups[i].ID == groupID {
			group = &groups[i]
			break
		}
	}
	if group == nil {
		return "", "", l.fail("Export failed", apperr.NotFoundf("group %s not found", groupID))
	}

	bookmarks, err := p.BookmarksByGroup(ctx, groupID)
	if err != nil {
		return "", "", l.fail("Export failed", err)
	}

	l.ok("Group exported")
	return exporter.FileName(*group), exporter.ExportGroupHTML(*group, bookmarks), nil
}
