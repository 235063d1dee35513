// Package exporter writes a group as a Netscape bookmark file.
package exporter

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/nikbrunner/minitab/internal/model"
)

// FileName returns the download name for a group's export,
// "{group}_bookmarks.html". Path separators in the name are replaced.
func FileName(group model.Group) string {
	name := strings.TrimSpace(group.Name)
	if name == "" {
		name = "group"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, name)
	return name + "_bookmarks.html"
}

// ExportGroupHTML renders one group and its bookmarks, ordered by sort order.
// Every bookmark is followed by a <DD> so that titles survive a re-import
// without being split.
func ExportGroupHTML(group model.Group, bookmarks []model.Bookmark) string {
	sorted := make([]model.Bookmark, len(bookmarks))
	copy(sorted, bookmarks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortOrder < sorted[j].SortOrder
	})

	var b strings.Builder

	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	fmt.Fprintf(&b, "    <DT><H3 ADD_DATE=\"%d\">%s</H3>\n", group.CreatedAt.Unix(), html.EscapeString(group.Name))
	b.WriteString("    <DL><p>\n")

	for _, bk := range sorted {
		icon := ""
		if strings.HasPrefix(bk.FaviconURL, "data:") {
			icon = fmt.Sprintf(" ICON=\"%s\"", html.EscapeString(bk.FaviconURL))
		}
		fmt.Fprintf(&b,
			"        <DT><A HREF=\"%s\" ADD_DATE=\"%d\"%s>%s</A>\n",
			html.EscapeString(bk.URL),
			bk.CreatedAt.Unix(),
			icon,
			html.EscapeString(bk.Title),
		)
		fmt.Fprintf(&b, "        <DD>%s\n", html.EscapeString(bk.Description))
	}

	b.WriteString("    </DL><p>\n")
	b.WriteString("</DL><p>\n")

	return b.String()
}
