// Package importer turns bookmark export files into flat, named groups.
//
// Two families of input are recognised: JSON documents in a handful of
// common shapes and Netscape bookmark HTML as written by every major browser.
// Parsing never fails; input that cannot be understood yields no groups.
package importer

import "strings"

const (
	// DefaultGroupName names the group for bookmarks found outside any folder.
	DefaultGroupName = "导入的书签"
	// UnnamedGroupName names folders without a title.
	UnnamedGroupName = "未命名分组"

	// maxDepth bounds folder recursion in both the HTML and JSON walks.
	maxDepth = 32
)

// ParsedBookmark is a bookmark found in an import file. It is not persisted.
type ParsedBookmark struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
}

// ParsedGroup is a named list of bookmarks found in an import file.
type ParsedGroup struct {
	Name      string           `json:"name"`
	Bookmarks []ParsedBookmark `json:"bookmarks"`
}

// Count returns the number of bookmarks over all groups.
func Count(groups []ParsedGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Bookmarks)
	}
	return n
}

// Parse detects the format of content and extracts its groups.
// Content that looks like JSON but does not decode is parsed as HTML.
func Parse(content string) []ParsedGroup {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if v, err := decodeJSON(trimmed); err == nil {
			return parseJSON(v)
		}
	}

	return parseHTML(content)
}

// appendGroup appends a group when it holds at least one bookmark.
func appendGroup(groups []ParsedGroup, name string, bookmarks []ParsedBookmark) []ParsedGroup {
	if len(bookmarks) == 0 {
		return groups
	}
	return append(groups, ParsedGroup{Name: name, Bookmarks: bookmarks})
}
