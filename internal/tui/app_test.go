package tui_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/minitab/internal/app"
	"github.com/nikbrunner/minitab/internal/storage"
	"github.com/nikbrunner/minitab/internal/tui"
	"github.com/nikbrunner/minitab/internal/tui/layout"
)

type fakeDescriber struct{}

func (fakeDescriber) Describe(context.Context, string) string { return "fetched description" }

// reorderFails rejects every reorder.
type reorderFails struct {
	storage.Provider
}

func (reorderFails) ReorderGroups(context.Context, []string) error {
	return errors.New("disk full")
}

type env struct {
	lib       *app.Library
	feed      *app.Feed
	local     *storage.LocalProvider
	opened    []string
	copied    []string
	exportDir string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	local := storage.NewLocalProvider(storage.NewRecords(t.TempDir()))
	return newEnvWith(t, local, local)
}

func newEnvWith(t *testing.T, local *storage.LocalProvider, p storage.Provider) *env {
	t.Helper()
	feed := app.NewFeed()
	return &env{
		local:     local,
		feed:      feed,
		exportDir: filepath.Join(t.TempDir(), "exports"),
		lib: app.New(app.Options{
			Source:    app.StaticSource(p),
			Describer: fakeDescriber{},
			Notifier:  feed,
		}),
	}
}

// app starts the TUI with notifications from setup already discarded.
func (e *env) app() tui.App {
	e.feed.Drain()
	return tui.NewApp(tui.AppParams{
		Library:       e.lib,
		Feed:          e.feed,
		ExportDir:     e.exportDir,
		OpenURL:       func(u string) error { e.opened = append(e.opened, u); return nil },
		Clipboard:     func(s string) error { e.copied = append(e.copied, s); return nil },
		ToastDuration: time.Millisecond,
	}).WithDimensions(100, 30)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(a tui.App, msg tea.Msg) (tui.App, tea.Cmd) {
	m, cmd := a.Update(msg)
	return m.(tui.App), cmd
}

// press sends keys one by one, discarding their commands.
func press(a tui.App, keys ...string) tui.App {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		default:
			msg = runes(k)
		}
		a, _ = update(a, msg)
	}
	return a
}

// typeText types s into the focused input.
func typeText(a tui.App, s string) tui.App {
	for _, r := range s {
		a, _ = update(a, runes(string(r)))
	}
	return a
}

func groupNames(a tui.App) []string {
	names := make([]string, len(a.Groups()))
	for i, g := range a.Groups() {
		names[i] = g.Name
	}
	return names
}

func TestNewApp_LoadsSeedGroup(t *testing.T) {
	a := newEnv(t).app()

	assert.DeepEqual(t, groupNames(a), []string{"热门网站"})
	assert.Equal(t, len(a.Bookmarks()), 7)
	assert.Equal(t, a.Focus(), tui.PaneGroups)
	assert.Equal(t, a.Mode(), tui.ModeNormal)
}

func TestNavigation(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "tab")
	assert.Equal(t, a.Focus(), tui.PaneBookmarks)

	a = press(a, "j", "j")
	assert.Equal(t, a.BookmarkCursor(), 2)

	a = press(a, "k")
	assert.Equal(t, a.BookmarkCursor(), 1)

	a = press(a, "G")
	assert.Equal(t, a.BookmarkCursor(), 6)

	a = press(a, "j")
	assert.Equal(t, a.BookmarkCursor(), 6, "j at bottom should stay at bottom")

	a = press(a, "g", "g")
	assert.Equal(t, a.BookmarkCursor(), 0)

	a = press(a, "h")
	assert.Equal(t, a.Focus(), tui.PaneGroups)

	a = press(a, "l")
	assert.Equal(t, a.Focus(), tui.PaneBookmarks)
}

func TestNavigation_GroupChangeLoadsBookmarks(t *testing.T) {
	e := newEnv(t)
	_, err := e.lib.AddGroup(context.Background(), "Work")
	assert.NilError(t, err)
	a := e.app()

	a = press(a, "j")
	assert.Equal(t, a.GroupCursor(), 1)
	assert.Equal(t, len(a.Bookmarks()), 0)

	a = press(a, "k")
	assert.Equal(t, len(a.Bookmarks()), 7)
}

func TestAddGroup(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "a")
	assert.Equal(t, a.Mode(), tui.ModeAddGroup)

	a = typeText(a, "Work")
	a = press(a, "enter")

	assert.Equal(t, a.Mode(), tui.ModeNormal)
	assert.DeepEqual(t, groupNames(a), []string{"热门网站", "Work"})
	assert.Equal(t, a.GroupCursor(), 1)
	assert.Equal(t, len(a.Bookmarks()), 0)
	assert.Equal(t, a.Toast(), "Group created")
}

func TestAddGroup_BlankNameKeepsDialog(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "a", "enter")

	assert.Equal(t, a.Mode(), tui.ModeAddGroup)
	assert.Assert(t, strings.HasPrefix(a.Toast(), "Invalid group"), a.Toast())
	assert.Equal(t, len(a.Groups()), 1)
}

func TestRenameGroup(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "e")
	assert.Equal(t, a.Mode(), tui.ModeEditGroup)
	a = typeText(a, "!")
	a = press(a, "enter")

	assert.DeepEqual(t, groupNames(a), []string{"热门网站!"})
	assert.Equal(t, a.Toast(), "Group renamed")
}

func TestAddBookmark_SavesInBackground(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "tab", "a")
	assert.Equal(t, a.Mode(), tui.ModeAddBookmark)

	a = typeText(a, "Go")
	a = press(a, "tab")
	a = typeText(a, "https://go.dev")

	a, cmd := update(a, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Assert(t, cmd != nil)
	assert.Assert(t, is.Contains(layout.StripANSI(a.View()), "Saving..."))

	a, _ = update(a, cmd())

	assert.Equal(t, a.Mode(), tui.ModeNormal)
	assert.Equal(t, len(a.Bookmarks()), 8)
	assert.Equal(t, a.BookmarkCursor(), 7)
	added := a.Bookmarks()[7]
	assert.Equal(t, added.Title, "Go")
	assert.Equal(t, added.Description, "fetched description")
	assert.Equal(t, a.Toast(), "Bookmark added")
}

func TestAddBookmark_InvalidKeepsDialog(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "tab", "a")
	a = typeText(a, "No URL")

	a, cmd := update(a, tea.KeyMsg{Type: tea.KeyEnter})
	a, _ = update(a, cmd())

	assert.Equal(t, a.Mode(), tui.ModeAddBookmark)
	assert.Assert(t, strings.HasPrefix(a.Toast(), "Invalid bookmark"), a.Toast())
	assert.Equal(t, len(a.Bookmarks()), 7)
}

func TestEditBookmark(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "tab", "j", "e")
	assert.Equal(t, a.Mode(), tui.ModeEditBookmark)
	a = typeText(a, " Plus")
	a = press(a, "enter")

	assert.Equal(t, a.Mode(), tui.ModeNormal)
	assert.Equal(t, a.Bookmarks()[1].Title, "ChatGPT Plus")
	assert.Equal(t, a.BookmarkCursor(), 1)
	assert.Equal(t, a.Toast(), "Bookmark updated")
}

func TestEditBookmark_UnchangedSkipsSave(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "tab", "e", "enter")

	assert.Equal(t, a.Mode(), tui.ModeNormal)
	assert.Equal(t, a.Toast(), "")
}

func TestDeleteBookmark_Confirm(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "tab", "d")
	assert.Equal(t, a.Mode(), tui.ModeConfirmDelete)
	assert.Assert(t, is.Contains(layout.StripANSI(a.View()), "元宝"))

	a = press(a, "n")
	assert.Equal(t, a.Mode(), tui.ModeNormal)
	assert.Equal(t, len(a.Bookmarks()), 7)

	a = press(a, "d", "y")
	assert.Equal(t, len(a.Bookmarks()), 6)
	assert.Equal(t, a.Bookmarks()[0].Title, "ChatGPT")
	assert.Equal(t, a.Toast(), "Bookmark deleted")
}

func TestDeleteGroup_CascadesInView(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "d", "enter")

	assert.Equal(t, len(a.Groups()), 0)
	assert.Equal(t, len(a.Bookmarks()), 0)
	assert.Assert(t, is.Contains(layout.StripANSI(a.View()), "(no groups)"))
}

func TestMoveGroup_ShowsNewOrderBeforeSaving(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	_, err := e.lib.AddGroup(ctx, "A")
	assert.NilError(t, err)
	_, err = e.lib.AddGroup(ctx, "B")
	assert.NilError(t, err)
	a := e.app()

	a, cmd := update(a, runes("J"))
	assert.DeepEqual(t, groupNames(a), []string{"A", "热门网站", "B"})
	assert.Equal(t, a.GroupCursor(), 1)

	stored, err := e.local.Groups(ctx)
	assert.NilError(t, err)
	assert.Equal(t, stored[0].Name, "热门网站", "store is untouched until the command runs")

	a, _ = update(a, cmd())
	assert.DeepEqual(t, groupNames(a), []string{"A", "热门网站", "B"})

	stored, err = e.local.Groups(ctx)
	assert.NilError(t, err)
	assert.Equal(t, stored[0].Name, "A")
	assert.Equal(t, stored[1].SortOrder, 1)

	a, cmd = update(a, runes("K"))
	a, _ = update(a, cmd())
	assert.DeepEqual(t, groupNames(a), []string{"热门网站", "A", "B"})
	assert.Equal(t, a.GroupCursor(), 0)
}

func TestMoveGroup_ResyncsOnFailure(t *testing.T) {
	ctx := context.Background()
	local := storage.NewLocalProvider(storage.NewRecords(t.TempDir()))
	e := newEnvWith(t, local, reorderFails{local})
	_, err := e.lib.AddGroup(ctx, "A")
	assert.NilError(t, err)
	a := e.app()

	a, cmd := update(a, runes("J"))
	assert.DeepEqual(t, groupNames(a), []string{"A", "热门网站"})

	a, _ = update(a, cmd())
	assert.DeepEqual(t, groupNames(a), []string{"热门网站", "A"})
	assert.Equal(t, a.GroupCursor(), 0, "selection follows the moved group")
	assert.Assert(t, strings.HasPrefix(a.Toast(), "Failed to reorder groups"), a.Toast())
}

func TestMoveGroup_IgnoredAtEdgesAndInBookmarksPane(t *testing.T) {
	a := newEnv(t).app()

	a, cmd := update(a, runes("K"))
	assert.Assert(t, cmd == nil)

	a = press(a, "tab")
	_, cmd = update(a, runes("J"))
	assert.Assert(t, cmd == nil)
}

func TestSearch_OpensResult(t *testing.T) {
	e := newEnv(t)
	a := e.app()

	a = press(a, "/")
	assert.Equal(t, a.Mode(), tui.ModeSearch)
	a = typeText(a, "chat")
	assert.Assert(t, is.Contains(layout.StripANSI(a.View()), "ChatGPT"))

	a = press(a, "enter")
	assert.Equal(t, a.Mode(), tui.ModeNormal)
	assert.DeepEqual(t, e.opened, []string{"https://chat.openai.com"})
}

func TestSearch_TabRevealsResult(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "/")
	a = typeText(a, "behance")
	a = press(a, "tab")

	assert.Equal(t, a.Mode(), tui.ModeNormal)
	assert.Equal(t, a.Focus(), tui.PaneBookmarks)
	assert.Equal(t, a.BookmarkCursor(), 6)
}

func TestSearch_NoMatches(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "/")
	a = typeText(a, "zzzz")

	assert.Assert(t, is.Contains(layout.StripANSI(a.View()), "(no matches)"))
	a = press(a, "esc")
	assert.Equal(t, a.Mode(), tui.ModeNormal)
}

func TestJumpToGroup(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	for _, name := range []string{"Work", "Travel"} {
		_, err := e.lib.AddGroup(ctx, name)
		assert.NilError(t, err)
	}
	a := e.app()
	a = press(a, "tab")

	a = press(a, "f")
	assert.Equal(t, a.Mode(), tui.ModeJump)
	a = typeText(a, "trv")
	a = press(a, "enter")

	assert.Equal(t, a.Mode(), tui.ModeNormal)
	assert.Equal(t, a.Focus(), tui.PaneGroups)
	assert.Equal(t, a.GroupCursor(), 2)
}

func TestOpen(t *testing.T) {
	e := newEnv(t)
	a := e.app()

	// On the groups pane, enter steps into the group.
	a = press(a, "enter")
	assert.Equal(t, a.Focus(), tui.PaneBookmarks)
	assert.Equal(t, len(e.opened), 0)

	a = press(a, "j", "o")
	assert.DeepEqual(t, e.opened, []string{"https://chat.openai.com"})
}

func TestYankURL(t *testing.T) {
	e := newEnv(t)
	a := e.app()

	a = press(a, "Y")
	assert.Equal(t, len(e.copied), 0, "yank only acts on the bookmarks pane")

	a = press(a, "tab", "Y")
	assert.DeepEqual(t, e.copied, []string{"https://yuanbao.tencent.com"})
	assert.Equal(t, a.Toast(), "Copied https://yuanbao.tencent.com")
}

const importFile = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
  <DT><H3>Reading</H3>
  <DL><p>
    <DT><A HREF="https://go.dev/blog">Go Blog</A>
    <DT><A HREF="https://research.swtch.com">research!rsc</A>
  </DL><p>
</DL><p>
`

func TestImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.html")
	assert.NilError(t, os.WriteFile(path, []byte(importFile), 0o644))
	a := newEnv(t).app()

	a = press(a, "i")
	assert.Equal(t, a.Mode(), tui.ModeImport)
	a = typeText(a, path)
	a = press(a, "enter")

	assert.Equal(t, a.Mode(), tui.ModeImportConfirm)
	view := layout.StripANSI(a.View())
	assert.Assert(t, is.Contains(view, "2 bookmarks in 1 groups"))
	assert.Assert(t, is.Contains(view, "Reading (2)"))

	a, cmd := update(a, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Assert(t, cmd != nil)
	a, _ = update(a, cmd())

	assert.Equal(t, a.Mode(), tui.ModeNormal)
	assert.DeepEqual(t, groupNames(a), []string{"热门网站", "Reading"})
	assert.Equal(t, a.Toast(), "Bookmarks imported")
}

func TestImport_MissingFile(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "i")
	a = typeText(a, filepath.Join(t.TempDir(), "missing.html"))
	a = press(a, "enter")

	assert.Equal(t, a.Mode(), tui.ModeImport)
	assert.Assert(t, strings.HasPrefix(a.Toast(), "Could not read file"), a.Toast())
}

func TestImport_NothingFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	assert.NilError(t, os.WriteFile(path, []byte(`{"title": "no links here"}`), 0o644))
	a := newEnv(t).app()

	a = press(a, "i")
	a = typeText(a, path)
	a = press(a, "enter")

	assert.Equal(t, a.Mode(), tui.ModeNormal)
	assert.Equal(t, a.Toast(), "No bookmarks found in file")
}

func TestExportGroup(t *testing.T) {
	e := newEnv(t)
	a := e.app()

	a = press(a, "x")

	path := filepath.Join(e.exportDir, "热门网站_bookmarks.html")
	content, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Assert(t, is.Contains(string(content), "https://chat.openai.com"))
	assert.Equal(t, a.Toast(), "Exported to "+path)
}

func TestToast_Expires(t *testing.T) {
	a := newEnv(t).app()

	a, cmd := update(a, runes("x"))
	assert.Assert(t, a.Toast() != "")

	// A timer from an older toast leaves the current one alone.
	a, _ = update(a, tui.ToastExpiredMsg{ID: -1})
	assert.Assert(t, a.Toast() != "")

	a, _ = update(a, cmd())
	assert.Equal(t, a.Toast(), "")
}

func TestHelp(t *testing.T) {
	a := newEnv(t).app()

	a = press(a, "?")
	assert.Equal(t, a.Mode(), tui.ModeHelp)
	assert.Assert(t, is.Contains(layout.StripANSI(a.View()), "jump to group"))

	a = press(a, "esc")
	assert.Equal(t, a.Mode(), tui.ModeNormal)
}

func TestQuit(t *testing.T) {
	a := newEnv(t).app()

	_, cmd := update(a, runes("q"))
	assert.Assert(t, cmd != nil)
	_, ok := cmd().(tea.QuitMsg)
	assert.Assert(t, ok)
}
