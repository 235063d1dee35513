package tui

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikbrunner/minitab/internal/app"
	"github.com/nikbrunner/minitab/internal/model"
)

// ToastExpiredMsg dismisses the toast with the matching ID.
type ToastExpiredMsg struct {
	ID int
}

type bookmarkSavedMsg struct {
	bookmark model.Bookmark
	err      error
}

type groupsReorderedMsg struct {
	groups []model.Group // stored order; nil when it could not be read back
	err    error
}

type importDoneMsg struct {
	result app.ImportResult
	err    error
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case ToastExpiredMsg:
		if a.toast != nil && a.toast.id == msg.ID {
			a.toast = nil
		}
		return a, nil

	case bookmarkSavedMsg:
		a.bookmarkForm.Saving = false
		if msg.err == nil {
			a.mode = ModeNormal
			a.focus = PaneBookmarks
			a.refresh(msg.bookmark.GroupID)
			a.selectBookmark(msg.bookmark.ID)
		}
		return a, a.toastCmd()

	case groupsReorderedMsg:
		// Success confirms the optimistic order; failure re-syncs to storage.
		if msg.groups != nil {
			selected, _ := a.selectedGroup()
			a.groups = msg.groups
			a.selectGroup(selected.ID)
		}
		return a, a.toastCmd()

	case importDoneMsg:
		a.imports.Running = false
		a.mode = ModeNormal
		a.reload()
		return a, a.toastCmd()

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		return a.handleKey(msg)
	}

	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.mode {
	case ModeNormal:
		return a.handleNormalMode(msg)
	case ModeAddGroup, ModeEditGroup:
		return a.handleGroupForm(msg)
	case ModeAddBookmark, ModeEditBookmark:
		return a.handleBookmarkForm(msg)
	case ModeConfirmDelete:
		return a.handleConfirmDelete(msg)
	case ModeSearch:
		return a.handleSearch(msg)
	case ModeJump:
		return a.handleJump(msg)
	case ModeImport:
		return a.handleImportPath(msg)
	case ModeImportConfirm:
		return a.handleImportConfirm(msg)
	case ModeHelp:
		return a.handleHelp(msg)
	}
	return a, nil
}

func (a App) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle gg
	if key.Matches(msg, a.keys.Top) {
		if a.lastKeyWasG {
			a.lastKeyWasG = false
			a.moveTo(0)
		} else {
			a.lastKeyWasG = true
		}
		return a, nil
	}
	a.lastKeyWasG = false

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Down):
		a.moveTo(a.cursor() + 1)

	case key.Matches(msg, a.keys.Up):
		a.moveTo(a.cursor() - 1)

	case key.Matches(msg, a.keys.Bottom):
		a.moveTo(a.listLen() - 1)

	case key.Matches(msg, a.keys.NextPane):
		if a.focus == PaneGroups {
			a.focus = PaneBookmarks
		} else {
			a.focus = PaneGroups
		}

	case key.Matches(msg, a.keys.Left):
		a.focus = PaneGroups

	case key.Matches(msg, a.keys.Right):
		a.focus = PaneBookmarks

	case key.Matches(msg, a.keys.GroupDown):
		return a.moveGroup(1)

	case key.Matches(msg, a.keys.GroupUp):
		return a.moveGroup(-1)

	case key.Matches(msg, a.keys.Add):
		a.openAdd()

	case key.Matches(msg, a.keys.Edit):
		a.openEdit()

	case key.Matches(msg, a.keys.Delete):
		a.openDelete()

	case key.Matches(msg, a.keys.Search):
		a.search.Reset()
		a.mode = ModeSearch

	case key.Matches(msg, a.keys.Jump):
		a.jump.Reset(a.groups)
		a.mode = ModeJump

	case key.Matches(msg, a.keys.Open):
		a.openSelected()

	case key.Matches(msg, a.keys.YankURL):
		a.yankURL()

	case key.Matches(msg, a.keys.Import):
		a.imports.Reset()
		a.mode = ModeImport

	case key.Matches(msg, a.keys.Export):
		a.exportGroup()

	case key.Matches(msg, a.keys.Help):
		a.mode = ModeHelp
	}

	return a, a.toastCmd()
}

func (a App) cursor() int {
	if a.focus == PaneGroups {
		return a.groupCursor
	}
	return a.bookmarkCursor
}

func (a App) listLen() int {
	if a.focus == PaneGroups {
		return len(a.groups)
	}
	return len(a.bookmarks)
}

// moveTo places the focused pane's cursor at i, clamped to the list.
func (a *App) moveTo(i int) {
	if a.focus == PaneBookmarks {
		a.bookmarkCursor = clamp(i, len(a.bookmarks))
		return
	}
	i = clamp(i, len(a.groups))
	if i == a.groupCursor {
		return
	}
	a.groupCursor = i
	a.bookmarkCursor = 0
	a.reloadBookmarks()
}

// moveGroup swaps the selected group with its neighbour and shows the new
// order at once; the returned command persists it.
func (a App) moveGroup(delta int) (tea.Model, tea.Cmd) {
	if a.focus != PaneGroups {
		return a, nil
	}
	from := a.groupCursor
	to := from + delta
	if from >= len(a.groups) || to < 0 || to >= len(a.groups) {
		return a, nil
	}

	groups := slices.Clone(a.groups)
	groups[from], groups[to] = groups[to], groups[from]
	a.groups = groups
	a.groupCursor = to

	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	lib, ctx := a.lib, a.ctx
	return a, func() tea.Msg {
		stored, err := lib.ReorderGroups(ctx, ids)
		return groupsReorderedMsg{groups: stored, err: err}
	}
}

func (a *App) openAdd() {
	if a.focus == PaneGroups {
		a.groupForm.Reset("", "")
		a.mode = ModeAddGroup
		return
	}
	g, ok := a.selectedGroup()
	if !ok {
		a.notify(app.LevelWarning, "Create a group first")
		return
	}
	a.bookmarkForm.Reset(g.ID, model.Bookmark{})
	a.mode = ModeAddBookmark
}

func (a *App) openEdit() {
	if a.focus == PaneGroups {
		if g, ok := a.selectedGroup(); ok {
			a.groupForm.Reset(g.ID, g.Name)
			a.mode = ModeEditGroup
		}
		return
	}
	if b, ok := a.selectedBookmark(); ok {
		a.bookmarkForm.Reset(b.GroupID, b)
		a.mode = ModeEditBookmark
	}
}

func (a *App) openDelete() {
	if a.focus == PaneGroups {
		if g, ok := a.selectedGroup(); ok {
			a.confirm = ConfirmState{Pane: PaneGroups, ID: g.ID, Label: g.Name}
			a.mode = ModeConfirmDelete
		}
		return
	}
	if b, ok := a.selectedBookmark(); ok {
		a.confirm = ConfirmState{Pane: PaneBookmarks, ID: b.ID, Label: b.Title}
		a.mode = ModeConfirmDelete
	}
}

// openSelected opens the selected bookmark. On the groups pane it moves
// focus into the group instead.
func (a *App) openSelected() {
	if a.focus == PaneGroups {
		if len(a.bookmarks) > 0 {
			a.focus = PaneBookmarks
		}
		return
	}
	if b, ok := a.selectedBookmark(); ok {
		a.open(b)
	}
}

func (a *App) open(b model.Bookmark) {
	if err := a.openURL(b.URL); err != nil {
		a.notify(app.LevelError, "Could not open browser: "+err.Error())
	}
}

func (a *App) yankURL() {
	b, ok := a.selectedBookmark()
	if !ok || a.focus != PaneBookmarks {
		return
	}
	if err := a.copyText(b.URL); err != nil {
		a.notify(app.LevelError, "Could not copy URL: "+err.Error())
		return
	}
	a.notify(app.LevelSuccess, "Copied "+b.URL)
}

func (a *App) exportGroup() {
	g, ok := a.selectedGroup()
	if !ok {
		return
	}
	filename, content, err := a.lib.ExportGroup(a.ctx, g.ID)
	if err != nil {
		return
	}

	dir := a.exportDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		a.notify(app.LevelError, "Export failed: "+err.Error())
		return
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		a.notify(app.LevelError, "Export failed: "+err.Error())
		return
	}
	a.notify(app.LevelSuccess, "Exported to "+path)
}

func (a App) handleGroupForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.mode = ModeNormal
		return a, nil
	case tea.KeyEnter:
		return a.submitGroupForm()
	}

	var cmd tea.Cmd
	a.groupForm.Name, cmd = a.groupForm.Name.Update(msg)
	return a, cmd
}

func (a App) submitGroupForm() (tea.Model, tea.Cmd) {
	name := a.groupForm.Name.Value()

	var g model.Group
	var err error
	if a.groupForm.EditID == "" {
		g, err = a.lib.AddGroup(a.ctx, name)
	} else {
		g, err = a.lib.RenameGroup(a.ctx, a.groupForm.EditID, name)
	}
	// Invalid names keep the dialog open so they can be fixed.
	if err == nil {
		a.mode = ModeNormal
		a.focus = PaneGroups
		a.refresh(g.ID)
	}
	return a, a.toastCmd()
}

func (a App) handleBookmarkForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.bookmarkForm.Saving {
		return a, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		a.mode = ModeNormal
		return a, nil
	case tea.KeyTab, tea.KeyDown:
		a.bookmarkForm.Cycle(1)
		return a, nil
	case tea.KeyShiftTab, tea.KeyUp:
		a.bookmarkForm.Cycle(-1)
		return a, nil
	case tea.KeyEnter:
		return a.submitBookmarkForm()
	}

	f := &a.bookmarkForm
	var cmd tea.Cmd
	f.Inputs[f.Focus], cmd = f.Inputs[f.Focus].Update(msg)
	return a, cmd
}

func (a App) submitBookmarkForm() (tea.Model, tea.Cmd) {
	f := a.bookmarkForm
	title := f.Value(fieldTitle)
	url := f.Value(fieldURL)
	desc := f.Value(fieldDescription)

	if f.EditID != "" {
		patch := model.BookmarkPatch{
			Title:       changed(f.Original.Title, title),
			URL:         changed(f.Original.URL, url),
			Description: changed(f.Original.Description, desc),
		}
		if patch.Title == nil && patch.URL == nil && patch.Description == nil {
			a.mode = ModeNormal
			return a, nil
		}
		b, err := a.lib.UpdateBookmark(a.ctx, f.EditID, patch)
		if err == nil {
			a.mode = ModeNormal
			a.reloadBookmarks()
			a.selectBookmark(b.ID)
		}
		return a, a.toastCmd()
	}

	// Adding may look the description up over the network.
	a.bookmarkForm.Saving = true
	lib, ctx := a.lib, a.ctx
	form := app.BookmarkForm{GroupID: f.GroupID, Title: title, URL: url, Description: desc}
	return a, func() tea.Msg {
		b, err := lib.AddBookmark(ctx, form)
		return bookmarkSavedMsg{bookmark: b, err: err}
	}
}

func changed(old, v string) *string {
	if strings.TrimSpace(v) == old {
		return nil
	}
	return &v
}

func (a App) handleConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		var err error
		if a.confirm.Pane == PaneGroups {
			err = a.lib.DeleteGroup(a.ctx, a.confirm.ID)
		} else {
			err = a.lib.DeleteBookmark(a.ctx, a.confirm.ID)
		}
		a.mode = ModeNormal
		if err == nil {
			a.reload()
		}
		return a, a.toastCmd()

	case "n", "esc", "q":
		a.mode = ModeNormal
	}
	return a, nil
}

func (a App) handleSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &a.search
	switch msg.Type {
	case tea.KeyEsc:
		a.mode = ModeNormal
		return a, nil

	case tea.KeyDown, tea.KeyCtrlN:
		if s.Cursor < len(s.Results)-1 {
			s.Cursor++
		}
		return a, nil

	case tea.KeyUp, tea.KeyCtrlP:
		if s.Cursor > 0 {
			s.Cursor--
		}
		return a, nil

	case tea.KeyEnter:
		if s.Cursor < len(s.Results) {
			a.open(s.Results[s.Cursor])
			a.mode = ModeNormal
		}
		return a, a.toastCmd()

	case tea.KeyTab:
		// Reveal the result in the panes.
		if s.Cursor < len(s.Results) {
			b := s.Results[s.Cursor]
			a.mode = ModeNormal
			a.focus = PaneBookmarks
			a.selectGroup(b.GroupID)
			a.selectBookmark(b.ID)
		}
		return a, nil
	}

	prev := s.Input.Value()
	var cmd tea.Cmd
	s.Input, cmd = s.Input.Update(msg)
	if q := s.Input.Value(); q != prev {
		results, _ := a.lib.Search(a.ctx, q)
		s.Results = results
		s.Cursor = 0
	}
	return a, tea.Batch(cmd, a.toastCmd())
}

func (a App) handleJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	j := &a.jump
	switch msg.Type {
	case tea.KeyEsc:
		a.mode = ModeNormal
		return a, nil

	case tea.KeyDown, tea.KeyCtrlN:
		if j.Cursor < len(j.Matches)-1 {
			j.Cursor++
		}
		return a, nil

	case tea.KeyUp, tea.KeyCtrlP:
		if j.Cursor > 0 {
			j.Cursor--
		}
		return a, nil

	case tea.KeyEnter:
		if j.Cursor < len(j.Matches) {
			a.mode = ModeNormal
			a.focus = PaneGroups
			a.selectGroup(j.Matches[j.Cursor].Group.ID)
		}
		return a, nil
	}

	prev := j.Input.Value()
	var cmd tea.Cmd
	j.Input, cmd = j.Input.Update(msg)
	if j.Input.Value() != prev {
		j.Filter(a.groups)
	}
	return a, cmd
}

func (a App) handleImportPath(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.mode = ModeNormal
		return a, nil

	case tea.KeyEnter:
		path := expandHome(strings.TrimSpace(a.imports.Path.Value()))
		if path == "" {
			return a, nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			a.notify(app.LevelError, "Could not read file: "+err.Error())
			return a, a.toastCmd()
		}
		parsed := a.lib.ParseImport(string(content))
		if len(parsed) == 0 {
			a.mode = ModeNormal
			return a, a.toastCmd()
		}
		a.imports.Parsed = parsed
		a.mode = ModeImportConfirm
		return a, nil
	}

	var cmd tea.Cmd
	a.imports.Path, cmd = a.imports.Path.Update(msg)
	return a, cmd
}

func (a App) handleImportConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.imports.Running {
		return a, nil
	}

	switch msg.String() {
	case "esc", "n", "q":
		a.mode = ModeNormal
		return a, nil

	case "enter", "y":
		a.imports.Running = true
		lib, ctx, groups := a.lib, a.ctx, a.imports.Parsed
		return a, func() tea.Msg {
			res, err := lib.Import(ctx, groups)
			return importDoneMsg{result: res, err: err}
		}
	}
	return a, nil
}

func (a App) handleHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "?", "q", "esc":
		a.mode = ModeNormal
	}
	return a, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
