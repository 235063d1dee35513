package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/nikbrunner/minitab/internal/apperr"
	"github.com/nikbrunner/minitab/internal/model"
	"github.com/nikbrunner/minitab/internal/search"
)

// LocalProvider stores the anonymous owner's data in two JSON records.
// The records are read on every call so several processes can share them.
type LocalProvider struct {
	mu      sync.Mutex
	records *Records
}

// NewLocalProvider creates a LocalProvider over records.
func NewLocalProvider(records *Records) *LocalProvider {
	return &LocalProvider{records: records}
}

var _ Provider = (*LocalProvider)(nil)

type localState struct {
	groups    []model.Group
	bookmarks []model.Bookmark
}

// load reads both records, seeding them when neither exists yet.
func (p *LocalProvider) load() (*localState, error) {
	s := &localState{}

	hasGroups, err := p.records.Load(GroupsRecord, &s.groups)
	if err != nil {
		return nil, apperr.Backend("read local groups", err)
	}
	hasBookmarks, err := p.records.Load(BookmarksRecord, &s.bookmarks)
	if err != nil {
		return nil, apperr.Backend("read local bookmarks", err)
	}

	if !hasGroups && !hasBookmarks {
		s.groups, s.bookmarks = model.SeedData()
		if err := p.save(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (p *LocalProvider) save(s *localState) error {
	if s.groups == nil {
		s.groups = []model.Group{}
	}
	if s.bookmarks == nil {
		s.bookmarks = []model.Bookmark{}
	}
	if err := p.records.Save(GroupsRecord, s.groups); err != nil {
		return apperr.Backend("write local groups", err)
	}
	if err := p.records.Save(BookmarksRecord, s.bookmarks); err != nil {
		return apperr.Backend("write local bookmarks", err)
	}
	return nil
}

func (s *localState) group(id string) int {
	return slices.IndexFunc(s.groups, func(g model.Group) bool { return g.ID == id })
}

func (s *localState) bookmark(id string) int {
	return slices.IndexFunc(s.bookmarks, func(b model.Bookmark) bool { return b.ID == id })
}

// reindexGroups renumbers groups densely in their current order.
func (s *localState) reindexGroups() {
	model.SortGroups(s.groups)
	for i := range s.groups {
		s.groups[i].SortOrder = i
	}
}

// reindexBookmarks renumbers the bookmarks of groupID densely. If moving is
// set, that bookmark is placed at pos among the others.
func (s *localState) reindexBookmarks(groupID, moving string, pos *int) {
	var members []model.Bookmark
	for _, b := range s.bookmarks {
		if b.GroupID == groupID && b.ID != moving {
			members = append(members, b)
		}
	}
	model.SortBookmarks(members)

	ids := make([]string, len(members))
	for i, b := range members {
		ids[i] = b.ID
	}
	if moving != "" {
		ids = place(ids, moving, pos)
	}

	for order, id := range ids {
		if i := s.bookmark(id); i >= 0 {
			s.bookmarks[i].SortOrder = order
		}
	}
}

// Groups returns all local groups.
func (p *LocalProvider) Groups(_ context.Context) ([]model.Group, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.load()
	if err != nil {
		return nil, err
	}
	model.SortGroups(s.groups)
	return s.groups, nil
}

// CreateGroup appends a new group.
func (p *LocalProvider) CreateGroup(_ context.Context, name string) (model.Group, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.load()
	if err != nil {
		return model.Group{}, err
	}

	g := model.NewGroup(model.NewGroupParams{Name: name, SortOrder: len(s.groups)})
	s.groups = append(s.groups, g)
	if err := p.save(s); err != nil {
		return model.Group{}, err
	}
	return g, nil
}

// UpdateGroup renames a group.
func (p *LocalProvider) UpdateGroup(_ context.Context, id, name string) (model.Group, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.load()
	if err != nil {
		return model.Group{}, err
	}

	i := s.group(id)
	if i < 0 {
		return model.Group{}, apperr.NotFoundf("group %s not found", id)
	}
	s.groups[i].Name = name
	s.groups[i].UpdatedAt = time.Now().UTC()

	if err := p.save(s); err != nil {
		return model.Group{}, err
	}
	return s.groups[i], nil
}

// DeleteGroup removes a group and its bookmarks.
func (p *LocalProvider) DeleteGroup(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.load()
	if err != nil {
		return err
	}

	i := s.group(id)
	if i < 0 {
		return apperr.NotFoundf("group %s not found", id)
	}
	s.groups = slices.Delete(s.groups, i, i+1)
	s.bookmarks = slices.DeleteFunc(s.bookmarks, func(b model.Bookmark) bool { return b.GroupID == id })
	s.reindexGroups()

	return p.save(s)
}

// BookmarksByGroup returns the bookmarks of one group.
func (p *LocalProvider) BookmarksByGroup(_ context.Context, groupID string) ([]model.Bookmark, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.load()
	if err != nil {
		return nil, err
	}

	var out []model.Bookmark
	for _, b := range s.bookmarks {
		if b.GroupID == groupID {
			out = append(out, b)
		}
	}
	model.SortBookmarks(out)
	return out, nil
}

// AllBookmarks returns every local bookmark, ordered by sort order with
// ties broken by group order.
func (p *LocalProvider) AllBookmarks(_ context.Context) ([]model.Bookmark, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.load()
	if err != nil {
		return nil, err
	}
	return s.ordered(), nil
}

func (s *localState) ordered() []model.Bookmark {
	model.SortGroups(s.groups)
	rank := make(map[string]int, len(s.groups))
	for i, g := range s.groups {
		rank[g.ID] = i
	}

	out := slices.Clone(s.bookmarks)
	slices.SortStableFunc(out, func(a, b model.Bookmark) int {
		if a.SortOrder != b.SortOrder {
			return a.SortOrder - b.SortOrder
		}
		return rank[a.GroupID] - rank[b.GroupID]
	})
	return out
}

// CreateBookmark adds a bookmark to an existing group.
func (p *LocalProvider) CreateBookmark(_ context.Context, in model.BookmarkInput) (model.Bookmark, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.load()
	if err != nil {
		return model.Bookmark{}, err
	}
	if s.group(in.GroupID) < 0 {
		return model.Bookmark{}, apperr.NotFoundf("group %s not found", in.GroupID)
	}

	b := model.NewBookmark(in, 0)
	s.bookmarks = append(s.bookmarks, b)
	s.reindexBookmarks(b.GroupID, b.ID, in.SortOrder)

	if err := p.save(s); err != nil {
		return model.Bookmark{}, err
	}
	return s.bookmarks[s.bookmark(b.ID)], nil
}

// UpdateBookmark applies patch to a bookmark.
func (p *LocalProvider) UpdateBookmark(_ context.Context, id string, patch model.BookmarkPatch) (model.Bookmark, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.load()
	if err != nil {
		return model.Bookmark{}, err
	}

	i := s.bookmark(id)
	if i < 0 {
		return model.Bookmark{}, apperr.NotFoundf("bookmark %s not found", id)
	}
	if patch.GroupID != nil && s.group(*patch.GroupID) < 0 {
		return model.Bookmark{}, apperr.NotFoundf("group %s not found", *patch.GroupID)
	}

	from := s.bookmarks[i].GroupID
	s.bookmarks[i].Apply(patch)
	to := s.bookmarks[i].GroupID

	switch {
	case from != to:
		s.reindexBookmarks(from, "", nil)
		s.reindexBookmarks(to, id, patch.SortOrder)
	case patch.SortOrder != nil:
		s.reindexBookmarks(to, id, patch.SortOrder)
	}

	if err := p.save(s); err != nil {
		return model.Bookmark{}, err
	}
	return s.bookmarks[i], nil
}

// DeleteBookmark removes a bookmark.
func (p *LocalProvider) DeleteBookmark(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.load()
	if err != nil {
		return err
	}

	i := s.bookmark(id)
	if i < 0 {
		return apperr.NotFoundf("bookmark %s not found", id)
	}
	groupID := s.bookmarks[i].GroupID
	s.bookmarks = slices.Delete(s.bookmarks, i, i+1)
	s.reindexBookmarks(groupID, "", nil)

	return p.save(s)
}

// SearchBookmarks filters every local bookmark by query.
func (p *LocalProvider) SearchBookmarks(_ context.Context, query string) ([]model.Bookmark, error) {
	if query == "" {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.load()
	if err != nil {
		return nil, err
	}
	return search.Filter(s.ordered(), query), nil
}

// ReorderGroups assigns sort orders 0..n-1 following orderedIDs.
func (p *LocalProvider) ReorderGroups(_ context.Context, orderedIDs []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.load()
	if err != nil {
		return err
	}

	current := make([]string, len(s.groups))
	for i, g := range s.groups {
		current[i] = g.ID
	}
	if err := checkPermutation(current, orderedIDs); err != nil {
		return err
	}

	// UpdatedAt tracks content edits, not order
	for order, id := range orderedIDs {
		s.groups[s.group(id)].SortOrder = order
	}
	model.SortGroups(s.groups)

	return p.save(s)
}

// Snapshot returns the stored records as they are, without seeding.
func (p *LocalProvider) Snapshot(_ context.Context) ([]model.Group, []model.Bookmark, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var groups []model.Group
	var bookmarks []model.Bookmark
	if _, err := p.records.Load(GroupsRecord, &groups); err != nil {
		return nil, nil, apperr.Backend("read local groups", err)
	}
	if _, err := p.records.Load(BookmarksRecord, &bookmarks); err != nil {
		return nil, nil, apperr.Backend("read local bookmarks", err)
	}
	model.SortGroups(groups)
	model.SortBookmarks(bookmarks)
	return groups, bookmarks, nil
}

// Clear removes the local records and the migration journal. The next call
// that reads data seeds the store again.
func (p *LocalProvider) Clear(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.records.Remove(GroupsRecord, BookmarksRecord, JournalRecord); err != nil {
		return apperr.Backend("clear local data", err)
	}
	return nil
}

// LoadJournal decodes the migration journal into v.
func (p *LocalProvider) LoadJournal(_ context.Context, v any) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ok, err := p.records.Load(JournalRecord, v)
	if err != nil {
		return false, apperr.Backend("read migration journal", err)
	}
	return ok, nil
}

// SaveJournal writes the migration journal.
func (p *LocalProvider) SaveJournal(_ context.Context, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.records.Save(JournalRecord, v); err != nil {
		return apperr.Backend("write migration journal", err)
	}
	return nil
}
