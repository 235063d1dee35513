package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nikbrunner/minitab/internal/apperr"
	"github.com/nikbrunner/minitab/internal/model"
	"github.com/nikbrunner/minitab/internal/search"
)

// RemoteProvider stores one authenticated owner's data in SQLite.
// Every statement is scoped by the owner id given at construction.
type RemoteProvider struct {
	db      *sqlx.DB
	ownerID string
}

// NewRemoteProvider creates a provider for ownerID.
func NewRemoteProvider(db *sqlx.DB, ownerID string) *RemoteProvider {
	return &RemoteProvider{db: db, ownerID: ownerID}
}

var _ Provider = (*RemoteProvider)(nil)

// OwnerID returns the owner this provider is scoped to.
func (p *RemoteProvider) OwnerID() string {
	return p.ownerID
}

const (
	groupColumns    = "id, user_id, name, sort_order, created_at, updated_at"
	bookmarkColumns = "b.id, b.group_id, b.title, b.url, b.description, b.favicon_url, b.sort_order, b.created_at, b.updated_at"
)

// Groups returns the owner's groups.
func (p *RemoteProvider) Groups(ctx context.Context) ([]model.Group, error) {
	var groups []model.Group
	err := p.db.SelectContext(ctx, &groups,
		"SELECT "+groupColumns+" FROM bookmark_groups WHERE user_id = ? ORDER BY sort_order, created_at",
		p.ownerID)
	if err != nil {
		return nil, apperr.Backend("list groups", err)
	}
	return groups, nil
}

// CreateGroup appends a new group.
func (p *RemoteProvider) CreateGroup(ctx context.Context, name string) (model.Group, error) {
	var g model.Group
	err := withTx(ctx, p.db, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count,
			"SELECT COUNT(*) FROM bookmark_groups WHERE user_id = ?", p.ownerID); err != nil {
			return err
		}

		g = model.NewGroup(model.NewGroupParams{Name: name, OwnerID: p.ownerID, SortOrder: count})
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO bookmark_groups (id, user_id, name, sort_order, created_at, updated_at)
			VALUES (:id, :user_id, :name, :sort_order, :created_at, :updated_at)`, g)
		return err
	})
	if err != nil {
		return model.Group{}, apperr.Backend("create group", err)
	}
	return g, nil
}

// UpdateGroup renames one of the owner's groups.
func (p *RemoteProvider) UpdateGroup(ctx context.Context, id, name string) (model.Group, error) {
	var g model.Group
	err := withTx(ctx, p.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE bookmark_groups SET name = ?, updated_at = ? WHERE id = ? AND user_id = ?",
			name, time.Now().UTC(), id, p.ownerID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return apperr.NotFoundf("group %s not found", id)
		}
		return tx.GetContext(ctx, &g,
			"SELECT "+groupColumns+" FROM bookmark_groups WHERE id = ?", id)
	})
	if err != nil {
		return model.Group{}, wrapBackend("update group", err)
	}
	return g, nil
}

// DeleteGroup removes a group with its bookmarks and renumbers the rest.
func (p *RemoteProvider) DeleteGroup(ctx context.Context, id string) error {
	err := withTx(ctx, p.db, func(tx *sqlx.Tx) error {
		if ok, err := p.ownsGroup(ctx, tx, id); err != nil {
			return err
		} else if !ok {
			return apperr.NotFoundf("group %s not found", id)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM bookmarks WHERE group_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM bookmark_groups WHERE id = ? AND user_id = ?", id, p.ownerID); err != nil {
			return err
		}

		var ids []string
		if err := tx.SelectContext(ctx, &ids,
			"SELECT id FROM bookmark_groups WHERE user_id = ? ORDER BY sort_order, created_at",
			p.ownerID); err != nil {
			return err
		}
		return setGroupOrder(ctx, tx, ids, false)
	})
	return wrapBackend("delete group", err)
}

// BookmarksByGroup returns a group's bookmarks. A group the owner does not
// own yields an empty list.
func (p *RemoteProvider) BookmarksByGroup(ctx context.Context, groupID string) ([]model.Bookmark, error) {
	var bookmarks []model.Bookmark
	err := p.db.SelectContext(ctx, &bookmarks, `
		SELECT `+bookmarkColumns+`
		FROM bookmarks b
		JOIN bookmark_groups g ON g.id = b.group_id
		WHERE g.user_id = ? AND b.group_id = ?
		ORDER BY b.sort_order`,
		p.ownerID, groupID)
	if err != nil {
		return nil, apperr.Backend("list bookmarks", err)
	}
	return bookmarks, nil
}

// AllBookmarks returns every bookmark of the owner.
func (p *RemoteProvider) AllBookmarks(ctx context.Context) ([]model.Bookmark, error) {
	var bookmarks []model.Bookmark
	err := p.db.SelectContext(ctx, &bookmarks, `
		SELECT `+bookmarkColumns+`
		FROM bookmarks b
		JOIN bookmark_groups g ON g.id = b.group_id
		WHERE g.user_id = ?
		ORDER BY b.sort_order, g.sort_order`,
		p.ownerID)
	if err != nil {
		return nil, apperr.Backend("list bookmarks", err)
	}
	return bookmarks, nil
}

// CreateBookmark adds a bookmark to one of the owner's groups.
func (p *RemoteProvider) CreateBookmark(ctx context.Context, in model.BookmarkInput) (model.Bookmark, error) {
	b := model.NewBookmark(in, 0)
	err := withTx(ctx, p.db, func(tx *sqlx.Tx) error {
		if ok, err := p.ownsGroup(ctx, tx, in.GroupID); err != nil {
			return err
		} else if !ok {
			return apperr.NotFoundf("group %s not found", in.GroupID)
		}

		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO bookmarks (id, group_id, title, url, description, favicon_url, sort_order, created_at, updated_at)
			VALUES (:id, :group_id, :title, :url, :description, :favicon_url, :sort_order, :created_at, :updated_at)`, b); err != nil {
			return err
		}

		order, err := reindexBookmarks(ctx, tx, b.GroupID, b.ID, in.SortOrder)
		b.SortOrder = order
		return err
	})
	if err != nil {
		return model.Bookmark{}, wrapBackend("create bookmark", err)
	}
	return b, nil
}

// UpdateBookmark applies patch to one of the owner's bookmarks.
func (p *RemoteProvider) UpdateBookmark(ctx context.Context, id string, patch model.BookmarkPatch) (model.Bookmark, error) {
	var b model.Bookmark
	err := withTx(ctx, p.db, func(tx *sqlx.Tx) error {
		var err error
		if b, err = p.getBookmark(ctx, tx, id); err != nil {
			return err
		}
		if patch.GroupID != nil {
			if ok, err := p.ownsGroup(ctx, tx, *patch.GroupID); err != nil {
				return err
			} else if !ok {
				return apperr.NotFoundf("group %s not found", *patch.GroupID)
			}
		}

		from := b.GroupID
		b.Apply(patch)

		if _, err := tx.NamedExecContext(ctx, `
			UPDATE bookmarks SET group_id = :group_id, title = :title, url = :url,
				description = :description, favicon_url = :favicon_url, updated_at = :updated_at
			WHERE id = :id`, b); err != nil {
			return err
		}

		switch {
		case from != b.GroupID:
			if _, err := reindexBookmarks(ctx, tx, from, "", nil); err != nil {
				return err
			}
			b.SortOrder, err = reindexBookmarks(ctx, tx, b.GroupID, b.ID, patch.SortOrder)
		case patch.SortOrder != nil:
			b.SortOrder, err = reindexBookmarks(ctx, tx, b.GroupID, b.ID, patch.SortOrder)
		}
		return err
	})
	if err != nil {
		return model.Bookmark{}, wrapBackend("update bookmark", err)
	}
	return b, nil
}

// DeleteBookmark removes one of the owner's bookmarks.
func (p *RemoteProvider) DeleteBookmark(ctx context.Context, id string) error {
	err := withTx(ctx, p.db, func(tx *sqlx.Tx) error {
		b, err := p.getBookmark(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM bookmarks WHERE id = ?", id); err != nil {
			return err
		}
		_, err = reindexBookmarks(ctx, tx, b.GroupID, "", nil)
		return err
	})
	return wrapBackend("delete bookmark", err)
}

// SearchBookmarks matches query against the owner's bookmarks with the
// same rules as the local store. SQLite's LIKE folds ASCII letters only, so
// matching happens here rather than in SQL.
func (p *RemoteProvider) SearchBookmarks(ctx context.Context, query string) ([]model.Bookmark, error) {
	if query == "" {
		return nil, nil
	}
	bookmarks, err := p.AllBookmarks(ctx)
	if err != nil {
		return nil, err
	}
	return search.Filter(bookmarks, query), nil
}

// ReorderGroups rewrites the owner's group order in one transaction.
func (p *RemoteProvider) ReorderGroups(ctx context.Context, orderedIDs []string) error {
	err := withTx(ctx, p.db, func(tx *sqlx.Tx) error {
		var current []string
		if err := tx.SelectContext(ctx, &current,
			"SELECT id FROM bookmark_groups WHERE user_id = ?", p.ownerID); err != nil {
			return err
		}
		if err := checkPermutation(current, orderedIDs); err != nil {
			return err
		}
		return setGroupOrder(ctx, tx, orderedIDs, true)
	})
	return wrapBackend("reorder groups", err)
}

func (p *RemoteProvider) ownsGroup(ctx context.Context, tx *sqlx.Tx, id string) (bool, error) {
	var n int
	err := tx.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM bookmark_groups WHERE id = ? AND user_id = ?", id, p.ownerID)
	return n > 0, err
}

func (p *RemoteProvider) getBookmark(ctx context.Context, tx *sqlx.Tx, id string) (model.Bookmark, error) {
	var b model.Bookmark
	err := tx.GetContext(ctx, &b, `
		SELECT `+bookmarkColumns+`
		FROM bookmarks b
		JOIN bookmark_groups g ON g.id = b.group_id
		WHERE b.id = ? AND g.user_id = ?`, id, p.ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return b, apperr.NotFoundf("bookmark %s not found", id)
	}
	return b, err
}

func setGroupOrder(ctx context.Context, tx *sqlx.Tx, ids []string, touch bool) error {
	now := time.Now().UTC()
	for order, id := range ids {
		var err error
		if touch {
			_, err = tx.ExecContext(ctx,
				"UPDATE bookmark_groups SET sort_order = ?, updated_at = ? WHERE id = ?", order, now, id)
		} else {
			_, err = tx.ExecContext(ctx,
				"UPDATE bookmark_groups SET sort_order = ? WHERE id = ?", order, id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// reindexBookmarks renumbers a group's bookmarks densely, placing moving at
// pos when set. It returns the final sort order of moving.
func reindexBookmarks(ctx context.Context, tx *sqlx.Tx, groupID, moving string, pos *int) (int, error) {
	var ids []string
	if err := tx.SelectContext(ctx, &ids,
		"SELECT id FROM bookmarks WHERE group_id = ? AND id <> ? ORDER BY sort_order, created_at",
		groupID, moving); err != nil {
		return 0, err
	}
	if moving != "" {
		ids = place(ids, moving, pos)
	}

	at := -1
	for order, id := range ids {
		if id == moving {
			at = order
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE bookmarks SET sort_order = ? WHERE id = ?", order, id); err != nil {
			return 0, err
		}
	}
	return at, nil
}

// wrapBackend passes apperr errors through and wraps everything else.
func wrapBackend(msg string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Backend(msg, err)
}
