// Package migrate copies anonymous local data into an account the first
// time the user signs in.
//
// A journal maps local ids to the remote ids already created, so a run
// that fails part way can be repeated without duplicating rows. Local data
// and the journal are cleared only after every row has been copied.
package migrate

import (
	"context"
	"fmt"
	"sync"

	"github.com/nikbrunner/minitab/internal/apperr"
	"github.com/nikbrunner/minitab/internal/logger"
	"github.com/nikbrunner/minitab/internal/model"
)

// Source is the anonymous store being migrated.
type Source interface {
	Snapshot(ctx context.Context) ([]model.Group, []model.Bookmark, error)
	Clear(ctx context.Context) error
	LoadJournal(ctx context.Context, v any) (bool, error)
	SaveJournal(ctx context.Context, v any) error
}

// Target is the account store receiving the rows.
type Target interface {
	CreateGroup(ctx context.Context, name string) (model.Group, error)
	CreateBookmark(ctx context.Context, in model.BookmarkInput) (model.Bookmark, error)
}

// Journal records the rows already copied to one owner.
type Journal struct {
	Owner     string            `json:"owner"`
	Groups    map[string]string `json:"groups"`
	Bookmarks map[string]string `json:"bookmarks"`
}

func newJournal(owner string) *Journal {
	return &Journal{
		Owner:     owner,
		Groups:    make(map[string]string),
		Bookmarks: make(map[string]string),
	}
}

// Report counts the rows of one run. Failed bookmarks include those
// skipped because their group could not be created.
type Report struct {
	Groups          int `json:"groups"`
	Bookmarks       int `json:"bookmarks"`
	FailedGroups    int `json:"failed_groups"`
	FailedBookmarks int `json:"failed_bookmarks"`
}

// Complete reports whether nothing failed.
func (r Report) Complete() bool {
	return r.FailedGroups == 0 && r.FailedBookmarks == 0
}

func (r Report) String() string {
	return fmt.Sprintf("%d groups, %d bookmarks migrated; %d groups, %d bookmarks failed",
		r.Groups, r.Bookmarks, r.FailedGroups, r.FailedBookmarks)
}

// HasUserData reports whether the local store holds anything a user added
// or edited. The untouched seed group and seed bookmarks do not count.
func HasUserData(groups []model.Group, bookmarks []model.Bookmark) bool {
	for _, g := range groups {
		if groupAuthored(g) {
			return true
		}
	}
	for _, b := range bookmarks {
		if bookmarkAuthored(b) {
			return true
		}
	}
	return false
}

// groupAuthored treats the seed group as authored once it was renamed.
// Reordering alone does not count.
func groupAuthored(g model.Group) bool {
	return !model.IsSeedGroupID(g.ID) || g.Name != model.SeedGroupName
}

func bookmarkAuthored(b model.Bookmark) bool {
	return !model.IsSeedBookmarkID(b.ID) || b.UpdatedAt.After(b.CreatedAt)
}

// Migrator runs migrations. Runs are serialized.
type Migrator struct {
	log logger.Logger
	mu  sync.Mutex
}

// New creates a Migrator. A nil log discards output.
func New(log logger.Logger) *Migrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Migrator{log: log}
}

// Run copies the user-authored rows of src into dst for owner.
//
// Groups are created in ascending sort order. A seed group is copied only
// when it was renamed or holds user-authored bookmarks; a renamed seed
// group takes all its bookmarks along. Bookmarks follow in ascending
// sort order with a dense per-group order. Row failures are logged and
// counted; when any row failed the journal is kept, src is left intact and
// a Partial error carrying the report is returned.
func (m *Migrator) Run(ctx context.Context, owner string, src Source, dst Target) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var report Report

	groups, bookmarks, err := src.Snapshot(ctx)
	if err != nil {
		return report, err
	}

	journal, err := m.loadJournal(ctx, owner, src)
	if err != nil {
		return report, err
	}

	all := make(map[string][]model.Bookmark)
	authored := make(map[string][]model.Bookmark)
	for _, b := range bookmarks {
		all[b.GroupID] = append(all[b.GroupID], b)
		if bookmarkAuthored(b) {
			authored[b.GroupID] = append(authored[b.GroupID], b)
		}
	}

	for _, g := range groups {
		members := authored[g.ID]
		if groupAuthored(g) {
			members = all[g.ID]
		} else if len(members) == 0 {
			continue
		}

		remoteID, ok := journal.Groups[g.ID]
		if !ok {
			created, err := dst.CreateGroup(ctx, g.Name)
			if err != nil {
				m.log.Warn("migrate group failed",
					logger.String("group", g.ID),
					logger.Error(err))
				report.FailedGroups++
				report.FailedBookmarks += pending(journal, members)
				continue
			}
			remoteID = created.ID
			journal.Groups[g.ID] = remoteID
			if err := src.SaveJournal(ctx, journal); err != nil {
				return report, err
			}
			report.Groups++
		}

		for i, b := range members {
			if _, done := journal.Bookmarks[b.ID]; done {
				continue
			}

			order := i
			created, err := dst.CreateBookmark(ctx, model.BookmarkInput{
				GroupID:     remoteID,
				Title:       b.Title,
				URL:         b.URL,
				Description: b.Description,
				FaviconURL:  b.FaviconURL,
				SortOrder:   &order,
			})
			if err != nil {
				m.log.Warn("migrate bookmark failed",
					logger.String("bookmark", b.ID),
					logger.Error(err))
				report.FailedBookmarks++
				continue
			}
			journal.Bookmarks[b.ID] = created.ID
			if err := src.SaveJournal(ctx, journal); err != nil {
				return report, err
			}
			report.Bookmarks++
		}
	}

	m.log.Info("migration finished",
		logger.String("owner", owner),
		logger.Int("groups", report.Groups),
		logger.Int("bookmarks", report.Bookmarks),
		logger.Int("failed_groups", report.FailedGroups),
		logger.Int("failed_bookmarks", report.FailedBookmarks))

	if !report.Complete() {
		return report, apperr.Partial("migration incomplete: "+report.String(), report)
	}

	if err := src.Clear(ctx); err != nil {
		return report, err
	}
	return report, nil
}

func (m *Migrator) loadJournal(ctx context.Context, owner string, src Source) (*Journal, error) {
	journal := newJournal(owner)

	var stored Journal
	ok, err := src.LoadJournal(ctx, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return journal, nil
	}
	if stored.Owner != owner {
		// rows of another account cannot be reused
		m.log.Info("discarding migration journal of another owner", logger.String("owner", stored.Owner))
		return journal, nil
	}

	if stored.Groups != nil {
		journal.Groups = stored.Groups
	}
	if stored.Bookmarks != nil {
		journal.Bookmarks = stored.Bookmarks
	}
	return journal, nil
}

func pending(j *Journal, bookmarks []model.Bookmark) int {
	n := 0
	for _, b := range bookmarks {
		if _, done := j.Bookmarks[b.ID]; !done {
			n++
		}
	}
	return n
}
