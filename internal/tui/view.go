package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nikbrunner/minitab/internal/app"
	"github.com/nikbrunner/minitab/internal/importer"
	"github.com/nikbrunner/minitab/internal/model"
	"github.com/nikbrunner/minitab/internal/tui/layout"
)

// renderView creates the two-pane view, or the active dialog.
func (a App) renderView() string {
	switch a.mode {
	case ModeNormal:
	case ModeHelp:
		return a.renderHelpOverlay()
	default:
		return a.renderModal()
	}

	paneHeight := layout.CalculatePaneHeight(a.height, a.layoutConfig.Pane)
	widths := layout.CalculatePaneWidths(a.width, a.layoutConfig.Pane)

	columns := lipgloss.JoinHorizontal(
		lipgloss.Top,
		a.renderGroupsPane(widths.GroupsWidth, paneHeight),
		a.renderBookmarksPane(widths.BookmarksWidth, paneHeight),
	)

	content := a.styles.App.Render(
		lipgloss.JoinVertical(lipgloss.Left, a.renderHeader(), columns, a.renderStatusLine()),
	)

	// Use Place to ensure exact terminal dimensions and prevent overflow
	return lipgloss.Place(a.width, a.height, lipgloss.Left, lipgloss.Top, content)
}

func (a App) renderHeader() string {
	return a.styles.Title.Render("minitab") + a.styles.Header.Render(a.account())
}

func (a App) paneStyle(p Pane) lipgloss.Style {
	if a.focus == p {
		return a.styles.PaneActive
	}
	return a.styles.Pane
}

// rowStyle picks the style of a list row: full highlight in the focused
// pane, accent text for the remembered cursor of the other pane.
func (a App) rowStyle(p Pane, isCursor bool) lipgloss.Style {
	switch {
	case isCursor && a.focus == p:
		return a.styles.ItemSelected
	case isCursor:
		return a.styles.ItemCursor
	default:
		return a.styles.Item
	}
}

func (a App) renderGroupsPane(width, height int) string {
	var content strings.Builder
	content.WriteString(a.styles.Title.Render("Groups") + "\n")

	visibleHeight := layout.CalculateVisibleHeight(height, 1)
	itemWidth := layout.CalculateItemWidth(width, a.layoutConfig.Pane)

	if len(a.groups) == 0 {
		content.WriteString(a.styles.Empty.Render("(no groups)"))
	} else {
		offset := layout.CalculateViewportOffset(a.groupCursor, len(a.groups), visibleHeight)
		for i := offset; i < len(a.groups) && i < offset+visibleHeight; i++ {
			isCursor := i == a.groupCursor
			prefix := "  "
			if isCursor {
				prefix = "> "
			}
			line, _ := layout.TruncateWithPrefixSuffix(a.groups[i].Name, itemWidth, prefix, "", a.layoutConfig.Text)
			content.WriteString(a.rowStyle(PaneGroups, isCursor).Width(itemWidth).Render(line) + "\n")
		}
	}

	return a.paneStyle(PaneGroups).
		Width(width).
		Height(height).
		Render(strings.TrimRight(content.String(), "\n"))
}

func (a App) renderBookmarksPane(width, height int) string {
	var content strings.Builder

	title := "Bookmarks"
	if g, ok := a.selectedGroup(); ok {
		title = g.Name
	}
	itemWidth := layout.CalculateItemWidth(width, a.layoutConfig.Pane)
	title, _ = layout.TruncateText(title, itemWidth, a.layoutConfig.Text)
	content.WriteString(a.styles.Title.Render(title) + "\n")

	// Two lines per bookmark: title, then host and description.
	visibleItems := layout.CalculateVisibleHeight(height, 1) / 2
	if visibleItems < 1 {
		visibleItems = 1
	}

	if len(a.bookmarks) == 0 {
		content.WriteString(a.styles.Empty.Render("(empty)"))
	} else {
		offset := layout.CalculateViewportOffset(a.bookmarkCursor, len(a.bookmarks), visibleItems)
		for i := offset; i < len(a.bookmarks) && i < offset+visibleItems; i++ {
			content.WriteString(a.renderBookmark(a.bookmarks[i], i == a.bookmarkCursor, itemWidth) + "\n")
		}
	}

	return a.paneStyle(PaneBookmarks).
		Width(width).
		Height(height).
		Render(strings.TrimRight(content.String(), "\n"))
}

func (a App) renderBookmark(b model.Bookmark, isCursor bool, maxWidth int) string {
	prefix := "  "
	if isCursor {
		prefix = "> "
	}
	title, _ := layout.TruncateWithPrefixSuffix(b.Title, maxWidth, prefix, "", a.layoutConfig.Text)

	detail := model.Hostname(b.URL)
	if b.Description != "" {
		detail += " - " + b.Description
	}
	detail, _ = layout.TruncateText(detail, maxWidth-2, a.layoutConfig.Text)

	return a.rowStyle(PaneBookmarks, isCursor).Width(maxWidth).Render(title) + "\n" +
		"  " + a.styles.URL.Render(detail)
}

// renderStatusLine renders the toast, or the contextual hints when no
// toast is showing.
func (a App) renderStatusLine() string {
	if a.toast == nil {
		return layout.TruncateANSIAware(a.renderHints(a.getContextualHints()), a.width-4, a.layoutConfig.Text)
	}

	var style lipgloss.Style
	var prefix string
	switch a.toast.level {
	case app.LevelError:
		style, prefix = a.styles.ToastError, "✗ "
	case app.LevelWarning:
		style, prefix = a.styles.ToastWarning, "⚠ "
	case app.LevelSuccess:
		style, prefix = a.styles.ToastSuccess, "✓ "
	default:
		style = a.styles.ToastInfo
	}
	msg, _ := layout.TruncateText(prefix+a.toast.message, a.width-4, a.layoutConfig.Text)
	return style.Render(msg)
}

func (a App) renderModal() string {
	var title, content strings.Builder

	modalWidth := layout.CalculateModalWidth(a.width, a.layoutConfig.Modal.DefaultWidthPercent, a.layoutConfig.Modal)
	innerWidth := modalWidth - 4 // horizontal padding

	switch a.mode {
	case ModeAddGroup, ModeEditGroup:
		if a.mode == ModeAddGroup {
			title.WriteString("Add Group\n\n")
		} else {
			title.WriteString("Rename Group\n\n")
		}
		content.WriteString("Name:\n")
		content.WriteString(a.groupForm.Name.View())

	case ModeAddBookmark, ModeEditBookmark:
		if a.mode == ModeAddBookmark {
			title.WriteString("Add Bookmark\n\n")
		} else {
			title.WriteString("Edit Bookmark\n\n")
		}
		labels := [fieldCount]string{"Title:", "URL:", "Description:"}
		for i, label := range labels {
			if i > 0 {
				content.WriteString("\n\n")
			}
			content.WriteString(label + "\n")
			content.WriteString(a.bookmarkForm.Inputs[i].View())
		}
		if a.bookmarkForm.Saving {
			content.WriteString("\n\n" + a.styles.Help.Render("Saving..."))
		}

	case ModeConfirmDelete:
		if a.confirm.Pane == PaneGroups {
			title.WriteString("Delete Group?\n\n")
			content.WriteString(a.confirm.Label + "\n")
			content.WriteString(a.styles.Help.Render("All bookmarks in this group are deleted too."))
		} else {
			title.WriteString("Delete Bookmark?\n\n")
			content.WriteString(a.confirm.Label + "\n")
			content.WriteString(a.styles.Help.Render("This action cannot be undone."))
		}

	case ModeSearch:
		title.WriteString("Search\n\n")
		content.WriteString(a.search.Input.View() + "\n")
		content.WriteString(a.renderSearchResults(innerWidth))

	case ModeJump:
		title.WriteString("Jump to Group\n\n")
		content.WriteString(a.jump.Input.View() + "\n")
		content.WriteString(a.renderJumpMatches(innerWidth))

	case ModeImport:
		title.WriteString("Import Bookmarks\n\n")
		content.WriteString("File (HTML or JSON):\n")
		content.WriteString(a.imports.Path.View())

	case ModeImportConfirm:
		title.WriteString("Import Bookmarks?\n\n")
		content.WriteString(a.renderImportPreview(innerWidth))
		if a.imports.Running {
			content.WriteString("\n\n" + a.styles.Help.Render("Importing..."))
		}
	}

	body := a.styles.Title.Render(strings.TrimRight(title.String(), "\n")) + "\n\n" + content.String()
	if hints := a.renderHintsInline(a.getContextualHints().All()); hints != "" {
		body += "\n\n" + hints
	}

	return lipgloss.Place(
		a.width,
		a.height,
		lipgloss.Center,
		lipgloss.Center,
		a.styles.Modal.Width(modalWidth).Render(body),
	)
}

func (a App) renderSearchResults(width int) string {
	s := a.search
	if len(s.Results) == 0 {
		if strings.TrimSpace(s.Input.Value()) == "" {
			return ""
		}
		return "\n" + a.styles.Empty.Render("(no matches)")
	}

	var b strings.Builder
	start, end := layout.CalculateVisibleListItems(a.layoutConfig.Modal.MaxVisible, s.Cursor, len(s.Results))
	for i := start; i < end; i++ {
		r := s.Results[i]
		prefix := "  "
		style := a.styles.Item
		if i == s.Cursor {
			prefix = "> "
			style = a.styles.ItemSelected
		}
		line, _ := layout.TruncateWithPrefixSuffix(r.Title, width, prefix, "", a.layoutConfig.Text)
		host, _ := layout.TruncateText(model.Hostname(r.URL), width-2, a.layoutConfig.Text)
		b.WriteString("\n" + style.Render(line) + "\n  " + a.styles.URL.Render(host))
	}
	if len(s.Results) > end-start {
		b.WriteString("\n" + a.styles.Count.Render(strconv.Itoa(len(s.Results))+" results"))
	}
	return b.String()
}

func (a App) renderJumpMatches(width int) string {
	j := a.jump
	if len(j.Matches) == 0 {
		return "\n" + a.styles.Empty.Render("(no matches)")
	}

	var b strings.Builder
	start, end := layout.CalculateVisibleListItems(a.layoutConfig.Modal.MaxVisible, j.Cursor, len(j.Matches))
	for i := start; i < end; i++ {
		m := j.Matches[i]
		prefix := "  "
		base := a.styles.Item
		if i == j.Cursor {
			prefix = "> "
			base = a.styles.ItemCursor
		}
		line := prefix + a.highlight(m.Group.Name, m.MatchedIndexes, base)
		b.WriteString("\n" + layout.TruncateANSIAware(line, width, a.layoutConfig.Text))
	}
	return b.String()
}

// highlight renders text in base with the runes at the given byte offsets
// in the match style.
func (a App) highlight(text string, matched []int, base lipgloss.Style) string {
	if len(matched) == 0 {
		return base.Render(text)
	}
	hit := make(map[int]bool, len(matched))
	for _, i := range matched {
		hit[i] = true
	}

	var b strings.Builder
	for i, r := range text {
		if hit[i] {
			b.WriteString(a.styles.Match.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}
	return b.String()
}

func (a App) renderImportPreview(width int) string {
	groups := a.imports.Parsed

	var b strings.Builder
	b.WriteString(strconv.Itoa(importer.Count(groups)) + " bookmarks in " + strconv.Itoa(len(groups)) + " groups\n")

	limit := a.layoutConfig.Modal.MaxVisible
	for i, g := range groups {
		if i == limit {
			b.WriteString("\n" + a.styles.Help.Render("and "+strconv.Itoa(len(groups)-limit)+" more"))
			break
		}
		name := g.Name
		if strings.TrimSpace(name) == "" {
			name = importer.UnnamedGroupName
		}
		line, _ := layout.TruncateWithPrefixSuffix(name, width, "  ", " ("+strconv.Itoa(len(g.Bookmarks))+")", a.layoutConfig.Text)
		b.WriteString("\n" + line)
	}
	return b.String()
}

func (a App) renderHelpOverlay() string {
	// Brutalist style: no border, just raw columns
	modalStyle := lipgloss.NewStyle().
		Padding(1, 2)

	keyCol := lipgloss.NewStyle().Width(a.layoutConfig.Modal.HelpKeyColumnWidth)
	section := func(b *strings.Builder, name string, rows [][2]string) {
		b.WriteString(a.styles.Title.Render(name) + "\n")
		for _, r := range rows {
			b.WriteString(keyCol.Render(r[0]) + r[1] + "\n")
		}
		b.WriteString("\n")
	}

	var left strings.Builder
	section(&left, "nav", [][2]string{
		{"j/k", "move"},
		{"gg/G", "top/bottom"},
		{"tab", "switch pane"},
		{"h/l", "groups/bookmarks"},
		{"f", "jump to group"},
	})
	section(&left, "act", [][2]string{
		{"o/enter", "open url"},
		{"Y", "yank url"},
		{"/", "search"},
		{"i", "import file"},
		{"x", "export group"},
	})

	var right strings.Builder
	section(&right, "edit", [][2]string{
		{"a", "add"},
		{"e", "edit"},
		{"d", "delete"},
		{"J/K", "move group"},
	})
	right.WriteString(a.styles.Help.Render("[?/q/esc] close"))

	cols := lipgloss.JoinHorizontal(lipgloss.Top, left.String(), "    ", right.String())

	// Top-left aligned, brutalist style
	return lipgloss.Place(
		a.width,
		a.height,
		lipgloss.Left,
		lipgloss.Top,
		modalStyle.Render(cols),
	)
}
