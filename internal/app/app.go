// Package app is the action layer shared by the front-ends. Every user
// action resolves the active provider, calls it, and turns the outcome
// into a notification. Errors are also returned so callers can re-sync.
package app

import (
	"context"
	"errors"
	"strings"

	"github.com/nikbrunner/minitab/internal/apperr"
	"github.com/nikbrunner/minitab/internal/describe"
	"github.com/nikbrunner/minitab/internal/logger"
	"github.com/nikbrunner/minitab/internal/model"
	"github.com/nikbrunner/minitab/internal/storage"
	"github.com/nikbrunner/minitab/internal/validation"
)

// DefaultImportConcurrency bounds parallel description lookups per group.
const DefaultImportConcurrency = 8

// ProviderSource yields the provider for the current session state.
type ProviderSource interface {
	Provider() storage.Provider
}

// StaticSource returns a ProviderSource that always yields p.
func StaticSource(p storage.Provider) ProviderSource {
	return staticSource{p: p}
}

type staticSource struct {
	p storage.Provider
}

func (s staticSource) Provider() storage.Provider { return s.p }

// Options configures a Library.
type Options struct {
	// Source is consulted when the context carries no provider.
	Source            ProviderSource
	Describer         describe.Describer
	Notifier          Notifier
	Logger            logger.Logger
	ImportConcurrency int
}

// Library runs bookmark actions against the active provider.
type Library struct {
	source      ProviderSource
	describer   describe.Describer
	notifier    Notifier
	log         logger.Logger
	validator   *validation.Validator
	concurrency int
}

// New creates a Library.
func New(opts Options) *Library {
	l := &Library{
		source:      opts.Source,
		describer:   opts.Describer,
		notifier:    opts.Notifier,
		log:         opts.Logger,
		validator:   validation.New(),
		concurrency: opts.ImportConcurrency,
	}
	if l.describer == nil {
		l.describer = describe.Nop{}
	}
	if l.notifier == nil {
		l.notifier = Discard
	}
	if l.log == nil {
		l.log = logger.Nop()
	}
	if l.concurrency <= 0 {
		l.concurrency = DefaultImportConcurrency
	}
	return l
}

// provider prefers a provider carried by ctx, then the session's.
func (l *Library) provider(ctx context.Context) (storage.Provider, error) {
	if p, ok := storage.FromContext(ctx); ok {
		return p, nil
	}
	if l.source != nil {
		if p := l.source.Provider(); p != nil {
			return p, nil
		}
	}
	return nil, apperr.Backend("no storage provider", errNoProvider)
}

var errNoProvider = errors.New("provider not configured")

// fail reports err to the user as msg and returns it.
func (l *Library) fail(msg string, err error) error {
	if apperr.CodeOf(err) == apperr.CodeBackend {
		l.log.Error(msg, logger.Error(err))
	}
	l.notifier.Notify(LevelError, msg+": "+userMessage(err))
	return err
}

func (l *Library) ok(msg string) {
	l.notifier.Notify(LevelSuccess, msg)
}

func userMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// GroupForm is the input of the add and rename group dialogs.
type GroupForm struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

// BookmarkForm is the input of the add bookmark dialog.
type BookmarkForm struct {
	GroupID     string `json:"group_id" validate:"required"`
	Title       string `json:"title" validate:"notblank,max=500"`
	URL         string `json:"url" validate:"notblank,max=2048"`
	Description string `json:"description,omitempty" validate:"max=1000"`
}

func (f *BookmarkForm) trim() {
	f.GroupID = strings.TrimSpace(f.GroupID)
	f.Title = strings.TrimSpace(f.Title)
	f.URL = strings.TrimSpace(f.URL)
	f.Description = strings.TrimSpace(f.Description)
}

// Groups lists the groups of the active provider.
func (l *Library) Groups(ctx context.Context) ([]model.Group, error) {
	p, err := l.provider(ctx)
	if err != nil {
		return nil, l.fail("Failed to load groups", err)
	}
	groups, err := p.Groups(ctx)
	if err != nil {
		return nil, l.fail("Failed to load groups", err)
	}
	return groups, nil
}

// AddGroup creates a group at the end of the list.
func (l *Library) AddGroup(ctx context.Context, name string) (model.Group, error) {
	form := GroupForm{Name: strings.TrimSpace(name)}
	if err := l.validator.Validate(form); err != nil {
		return model.Group{}, l.fail("Invalid group", err)
	}

	p, err := l.provider(ctx)
	if err != nil {
		return model.Group{}, l.fail("Failed to create group", err)
	}
	g, err := p.CreateGroup(ctx, form.Name)
	if err != nil {
		return model.Group{}, l.fail("Failed to create group", err)
	}
	l.ok("Group created")
	return g, nil
}

// RenameGroup changes a group's name.
func (l *Library) RenameGroup(ctx context.Context, id, name string) (model.Group, error) {
	form := GroupForm{Name: strings.TrimSpace(name)}
	if err := l.validator.Validate(form); err != nil {
		return model.Group{}, l.fail("Invalid group", err)
	}

	p, err := l.provider(ctx)
	if err != nil {
		return model.Group{}, l.fail("Failed to rename group", err)
	}
	g, err := p.UpdateGroup(ctx, id, form.Name)
	if err != nil {
		return model.Group{}, l.fail("Failed to rename group", err)
	}
	l.ok("Group renamed")
	return g, nil
}

// DeleteGroup removes a group and its bookmarks.
func (l *Library) DeleteGroup(ctx context.Context, id string) error {
	p, err := l.provider(ctx)
	if err != nil {
		return l.fail("Failed to delete group", err)
	}
	if err := p.DeleteGroup(ctx, id); err != nil {
		return l.fail("Failed to delete group", err)
	}
	l.ok("Group deleted")
	return nil
}

// ReorderGroups persists a new group order. The caller shows ordered
// optimistically; on failure the returned list is the stored order to
// re-sync to.
func (l *Library) ReorderGroups(ctx context.Context, ordered []string) ([]model.Group, error) {
	p, err := l.provider(ctx)
	if err != nil {
		return nil, l.fail("Failed to reorder groups", err)
	}

	if err := p.ReorderGroups(ctx, ordered); err != nil {
		reportErr := l.fail("Failed to reorder groups", err)
		groups, syncErr := p.Groups(ctx)
		if syncErr != nil {
			l.log.Error("re-sync groups after failed reorder", logger.Error(syncErr))
			return nil, reportErr
		}
		return groups, reportErr
	}

	groups, err := p.Groups(ctx)
	if err != nil {
		return nil, l.fail("Failed to load groups", err)
	}
	return groups, nil
}

// Bookmarks lists one group's bookmarks.
func (l *Library) Bookmarks(ctx context.Context, groupID string) ([]model.Bookmark, error) {
	p, err := l.provider(ctx)
	if err != nil {
		return nil, l.fail("Failed to load bookmarks", err)
	}
	bookmarks, err := p.BookmarksByGroup(ctx, groupID)
	if err != nil {
		return nil, l.fail("Failed to load bookmarks", err)
	}
	return bookmarks, nil
}

// AllBookmarks lists every bookmark of the active provider.
func (l *Library) AllBookmarks(ctx context.Context) ([]model.Bookmark, error) {
	p, err := l.provider(ctx)
	if err != nil {
		return nil, l.fail("Failed to load bookmarks", err)
	}
	bookmarks, err := p.AllBookmarks(ctx)
	if err != nil {
		return nil, l.fail("Failed to load bookmarks", err)
	}
	return bookmarks, nil
}

// AddBookmark validates form, derives the favicon and, when the form has
// no description, looks one up before creating the bookmark.
func (l *Library) AddBookmark(ctx context.Context, form BookmarkForm) (model.Bookmark, error) {
	form.trim()
	if err := l.validator.Validate(form); err != nil {
		return model.Bookmark{}, l.fail("Invalid bookmark", err)
	}

	p, err := l.provider(ctx)
	if err != nil {
		return model.Bookmark{}, l.fail("Failed to add bookmark", err)
	}

	desc := form.Description
	if desc == "" {
		desc = l.describer.Describe(ctx, form.URL)
	}

	b, err := p.CreateBookmark(ctx, model.BookmarkInput{
		GroupID:     form.GroupID,
		Title:       form.Title,
		URL:         form.URL,
		Description: desc,
		FaviconURL:  model.FaviconURL(form.URL),
	})
	if err != nil {
		return model.Bookmark{}, l.fail("Failed to add bookmark", err)
	}
	l.ok("Bookmark added")
	return b, nil
}

// UpdateBookmark applies patch. A changed URL refreshes the favicon
// unless the patch sets one.
func (l *Library) UpdateBookmark(ctx context.Context, id string, patch model.BookmarkPatch) (model.Bookmark, error) {
	trimPtr(patch.Title)
	trimPtr(patch.URL)
	trimPtr(patch.Description)
	if err := l.validator.Validate(patch); err != nil {
		return model.Bookmark{}, l.fail("Invalid bookmark", err)
	}
	if patch.URL != nil && patch.FaviconURL == nil {
		favicon := model.FaviconURL(*patch.URL)
		patch.FaviconURL = &favicon
	}

	p, err := l.provider(ctx)
	if err != nil {
		return model.Bookmark{}, l.fail("Failed to update bookmark", err)
	}
	b, err := p.UpdateBookmark(ctx, id, patch)
	if err != nil {
		return model.Bookmark{}, l.fail("Failed to update bookmark", err)
	}
	l.ok("Bookmark updated")
	return b, nil
}

// DeleteBookmark removes a bookmark.
func (l *Library) DeleteBookmark(ctx context.Context, id string) error {
	p, err := l.provider(ctx)
	if err != nil {
		return l.fail("Failed to delete bookmark", err)
	}
	if err := p.DeleteBookmark(ctx, id); err != nil {
		return l.fail("Failed to delete bookmark", err)
	}
	l.ok("Bookmark deleted")
	return nil
}

// Search matches query against every bookmark. A blank query returns no
// results without touching the provider.
func (l *Library) Search(ctx context.Context, query string) ([]model.Bookmark, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	p, err := l.provider(ctx)
	if err != nil {
		return nil, l.fail("Search failed", err)
	}
	results, err := p.SearchBookmarks(ctx, query)
	if err != nil {
		return nil, l.fail("Search failed", err)
	}
	return results, nil
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
