package migrate

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nikbrunner/minitab/internal/model"
)

// MemorySource is a Source over rows supplied by a client, such as a
// browser posting its local records.
type MemorySource struct {
	mu        sync.Mutex
	groups    []model.Group
	bookmarks []model.Bookmark
	journal   []byte
	cleared   bool
}

// NewMemorySource creates a source over groups and bookmarks, resuming
// journal when it is not nil.
func NewMemorySource(groups []model.Group, bookmarks []model.Bookmark, journal *Journal) (*MemorySource, error) {
	s := &MemorySource{groups: groups, bookmarks: bookmarks}
	if journal != nil {
		data, err := json.Marshal(journal)
		if err != nil {
			return nil, err
		}
		s.journal = data
	}
	return s, nil
}

func (s *MemorySource) Snapshot(context.Context) ([]model.Group, []model.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := append([]model.Group(nil), s.groups...)
	bookmarks := append([]model.Bookmark(nil), s.bookmarks...)
	model.SortGroups(groups)
	model.SortBookmarks(bookmarks)
	return groups, bookmarks, nil
}

func (s *MemorySource) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups, s.bookmarks, s.journal = nil, nil, nil
	s.cleared = true
	return nil
}

// Cleared reports whether a run completed and cleared the source.
func (s *MemorySource) Cleared() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}

func (s *MemorySource) LoadJournal(_ context.Context, v any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return false, nil
	}
	return true, json.Unmarshal(s.journal, v)
}

func (s *MemorySource) SaveJournal(_ context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.journal = data
	s.mu.Unlock()
	return nil
}

// Journal returns the current journal, or nil if none was written.
func (s *MemorySource) Journal() *Journal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return nil
	}
	var j Journal
	if err := json.Unmarshal(s.journal, &j); err != nil {
		return nil
	}
	return &j
}
