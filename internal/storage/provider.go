// Package storage implements the two bookmark backends: an anonymous local
// store kept in JSON records and an owner-scoped SQLite store.
package storage

import (
	"context"

	"github.com/nikbrunner/minitab/internal/model"
)

// Provider is the storage capability shared by both backends.
//
// Every list is ordered by ascending sort order, and every mutation keeps
// sort orders dense (0..n-1) within a group list or a group's bookmarks.
type Provider interface {
	Groups(ctx context.Context) ([]model.Group, error)
	CreateGroup(ctx context.Context, name string) (model.Group, error)
	UpdateGroup(ctx context.Context, id, name string) (model.Group, error)
	// DeleteGroup removes the group and all of its bookmarks.
	DeleteGroup(ctx context.Context, id string) error

	BookmarksByGroup(ctx context.Context, groupID string) ([]model.Bookmark, error)
	AllBookmarks(ctx context.Context) ([]model.Bookmark, error)
	CreateBookmark(ctx context.Context, in model.BookmarkInput) (model.Bookmark, error)
	// UpdateBookmark applies a patch. Changing GroupID moves the bookmark,
	// and the target group must belong to the same owner.
	UpdateBookmark(ctx context.Context, id string, patch model.BookmarkPatch) (model.Bookmark, error)
	DeleteBookmark(ctx context.Context, id string) error

	// SearchBookmarks matches query case-insensitively against title, URL
	// and description. An empty query yields no results.
	SearchBookmarks(ctx context.Context, query string) ([]model.Bookmark, error)

	// ReorderGroups takes every group id of the owner exactly once.
	ReorderGroups(ctx context.Context, orderedIDs []string) error
}

type providerKey struct{}

// WithProvider returns a copy of ctx carrying p.
func WithProvider(ctx context.Context, p Provider) context.Context {
	return context.WithValue(ctx, providerKey{}, p)
}

// FromContext returns the provider stored by WithProvider.
func FromContext(ctx context.Context) (Provider, bool) {
	p, ok := ctx.Value(providerKey{}).(Provider)
	return p, ok
}
