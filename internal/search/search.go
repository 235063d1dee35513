// Package search matches bookmarks against user queries.
package search

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/nikbrunner/minitab/internal/model"
)

// Match reports whether query is a case-insensitive substring of the
// bookmark's title, URL or description. An empty query matches nothing.
func Match(b model.Bookmark, query string) bool {
	if query == "" {
		return false
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(b.Title), q) ||
		strings.Contains(strings.ToLower(b.URL), q) ||
		strings.Contains(strings.ToLower(b.Description), q)
}

// Filter returns the bookmarks matching query, keeping their order.
func Filter(bookmarks []model.Bookmark, query string) []model.Bookmark {
	var out []model.Bookmark
	for _, b := range bookmarks {
		if Match(b, query) {
			out = append(out, b)
		}
	}
	return out
}

// GroupResult represents a fuzzy group match.
type GroupResult struct {
	Group          model.Group
	MatchedIndexes []int
	Score          int
}

type groupNames []model.Group

func (g groupNames) String(i int) string { return g[i].Name }
func (g groupNames) Len() int            { return len(g) }

// FuzzyGroups ranks groups by fuzzy match on their name, best first.
func FuzzyGroups(groups []model.Group, query string) []GroupResult {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, groupNames(groups))

	results := make([]GroupResult, len(matches))
	for i, m := range matches {
		results[i] = GroupResult{
			Group:          groups[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

// BookmarkResult represents a fuzzy bookmark match.
type BookmarkResult struct {
	Bookmark       model.Bookmark
	MatchedIndexes []int
	Score          int
}

// bookmarkLabels matches on "title host" so a domain finds its bookmarks.
type bookmarkLabels []model.Bookmark

func (b bookmarkLabels) String(i int) string {
	return b[i].Title + " " + model.Hostname(b[i].URL)
}
func (b bookmarkLabels) Len() int { return len(b) }

// FuzzyBookmarks ranks bookmarks by fuzzy match on title and hostname.
// MatchedIndexes that fall inside the title can be used for highlighting.
func FuzzyBookmarks(bookmarks []model.Bookmark, query string) []BookmarkResult {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, bookmarkLabels(bookmarks))

	results := make([]BookmarkResult, len(matches))
	for i, m := range matches {
		results[i] = BookmarkResult{
			Bookmark:       bookmarks[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}
