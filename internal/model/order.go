package model

import "sort"

// SortGroups orders groups by ascending SortOrder, keeping ties stable.
func SortGroups(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].SortOrder < groups[j].SortOrder
	})
}

// SortBookmarks orders bookmarks by ascending SortOrder, keeping ties stable.
func SortBookmarks(bookmarks []Bookmark) {
	sort.SliceStable(bookmarks, func(i, j int) bool {
		return bookmarks[i].SortOrder < bookmarks[j].SortOrder
	})
}
