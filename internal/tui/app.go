package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikbrunner/minitab/internal/app"
	"github.com/nikbrunner/minitab/internal/model"
	"github.com/nikbrunner/minitab/internal/tui/layout"
	"github.com/pkg/browser"
)

// ToastDuration is how long a notification stays in the status line.
const ToastDuration = 3 * time.Second

// App is the main bubbletea model for the bookmark manager.
type App struct {
	ctx          context.Context
	lib          *app.Library
	feed         *app.Feed
	account      func() string
	exportDir    string
	openURL      func(string) error
	copyText     func(string) error
	toastTTL     time.Duration
	keys         KeyMap
	styles       Styles
	layoutConfig layout.LayoutConfig

	mode  Mode
	focus Pane

	groups         []model.Group
	bookmarks      []model.Bookmark // bookmarks of the selected group
	groupCursor    int
	bookmarkCursor int

	groupForm    GroupFormState
	bookmarkForm BookmarkFormState
	confirm      ConfirmState
	search       SearchState
	jump         JumpState
	imports      ImportState

	toast   *toast
	toasts  int // toast sequence, so a stale timer cannot clear a newer toast
	initCmd tea.Cmd

	// For gg command
	lastKeyWasG bool

	// Window dimensions
	width  int
	height int
}

type toast struct {
	id      int
	level   app.Level
	message string
}

// AppParams holds parameters for creating a new App.
type AppParams struct {
	Context context.Context // optional, defaults to Background
	Library *app.Library
	// Feed receives the Library's notifications; they are shown as toasts.
	Feed *app.Feed
	// Account labels the storage in use, e.g. "local" or an email.
	Account   func() string
	ExportDir string

	OpenURL       func(string) error   // optional, uses the system browser if nil
	Clipboard     func(string) error   // optional, uses the system clipboard if nil
	ToastDuration time.Duration        // optional, uses ToastDuration if zero
	Keys          *KeyMap              // optional, uses default if nil
	Styles        *Styles              // optional, uses default if nil
	LayoutConfig  *layout.LayoutConfig // optional, uses default if nil
}

// NewApp creates a new App and loads the groups of the active provider.
func NewApp(params AppParams) App {
	keys := DefaultKeyMap()
	if params.Keys != nil {
		keys = *params.Keys
	}

	styles := DefaultStyles()
	if params.Styles != nil {
		styles = *params.Styles
	}

	layoutCfg := layout.DefaultConfig()
	if params.LayoutConfig != nil {
		layoutCfg = *params.LayoutConfig
	}

	a := App{
		ctx:          params.Context,
		lib:          params.Library,
		feed:         params.Feed,
		account:      params.Account,
		exportDir:    params.ExportDir,
		openURL:      params.OpenURL,
		copyText:     params.Clipboard,
		toastTTL:     params.ToastDuration,
		keys:         keys,
		styles:       styles,
		layoutConfig: layoutCfg,
		groupForm:    NewGroupFormState(layoutCfg),
		bookmarkForm: NewBookmarkFormState(layoutCfg),
		search:       NewSearchState(layoutCfg),
		jump:         NewJumpState(layoutCfg),
		imports:      NewImportState(layoutCfg),
		width:        80,
		height:       24,
	}
	if a.ctx == nil {
		a.ctx = context.Background()
	}
	if a.feed == nil {
		a.feed = app.NewFeed()
	}
	if a.account == nil {
		a.account = func() string { return "local" }
	}
	if a.openURL == nil {
		a.openURL = browser.OpenURL
	}
	if a.copyText == nil {
		a.copyText = clipboard.WriteAll
	}
	if a.toastTTL == 0 {
		a.toastTTL = ToastDuration
	}

	a.reload()
	a.initCmd = a.toastCmd()
	return a
}

// Init implements tea.Model. A load failure from NewApp is shown right away.
func (a App) Init() tea.Cmd {
	return a.initCmd
}

// View implements tea.Model.
func (a App) View() string {
	return a.renderView()
}

// WithDimensions returns a copy of the app with the given terminal size.
func (a App) WithDimensions(width, height int) App {
	a.width = width
	a.height = height
	return a
}

// Mode returns the current interaction mode.
func (a App) Mode() Mode { return a.mode }

// Focus returns the focused pane.
func (a App) Focus() Pane { return a.focus }

// Groups returns the groups in display order.
func (a App) Groups() []model.Group { return a.groups }

// Bookmarks returns the bookmarks of the selected group.
func (a App) Bookmarks() []model.Bookmark { return a.bookmarks }

// GroupCursor returns the index of the selected group.
func (a App) GroupCursor() int { return a.groupCursor }

// BookmarkCursor returns the index of the selected bookmark.
func (a App) BookmarkCursor() int { return a.bookmarkCursor }

// Toast returns the message in the status line, or "" if none.
func (a App) Toast() string {
	if a.toast == nil {
		return ""
	}
	return a.toast.message
}

func (a App) selectedGroup() (model.Group, bool) {
	if a.groupCursor < 0 || a.groupCursor >= len(a.groups) {
		return model.Group{}, false
	}
	return a.groups[a.groupCursor], true
}

func (a App) selectedBookmark() (model.Bookmark, bool) {
	if a.bookmarkCursor < 0 || a.bookmarkCursor >= len(a.bookmarks) {
		return model.Bookmark{}, false
	}
	return a.bookmarks[a.bookmarkCursor], true
}

// reload fetches groups and the selected group's bookmarks, keeping the
// selection on the same group when it still exists.
func (a *App) reload() {
	selected, _ := a.selectedGroup()
	a.refresh(selected.ID)
}

// refresh fetches groups and selects groupID.
func (a *App) refresh(groupID string) {
	groups, err := a.lib.Groups(a.ctx)
	if err != nil {
		return
	}
	a.groups = groups
	a.selectGroup(groupID)
}

// selectGroup moves the group cursor to id (clamped when id is gone) and
// loads its bookmarks.
func (a *App) selectGroup(id string) {
	cursor := a.groupCursor
	for i, g := range a.groups {
		if g.ID == id {
			cursor = i
			break
		}
	}
	a.groupCursor = clamp(cursor, len(a.groups))
	a.reloadBookmarks()
}

func (a *App) reloadBookmarks() {
	selected, _ := a.selectedBookmark()
	a.bookmarks = nil
	g, ok := a.selectedGroup()
	if !ok {
		a.bookmarkCursor = 0
		return
	}
	bookmarks, err := a.lib.Bookmarks(a.ctx, g.ID)
	if err != nil {
		a.bookmarkCursor = 0
		return
	}
	a.bookmarks = bookmarks
	a.selectBookmark(selected.ID)
}

func (a *App) selectBookmark(id string) {
	cursor := a.bookmarkCursor
	for i, b := range a.bookmarks {
		if b.ID == id {
			cursor = i
			break
		}
	}
	a.bookmarkCursor = clamp(cursor, len(a.bookmarks))
}

// notify records a TUI-originated message alongside the Library's own.
func (a *App) notify(level app.Level, message string) {
	a.feed.Notify(level, message)
}

// toastCmd shows the newest pending notification and schedules its
// dismissal. Older pending notifications are superseded.
func (a *App) toastCmd() tea.Cmd {
	pending := a.feed.Drain()
	if len(pending) == 0 {
		return nil
	}
	last := pending[len(pending)-1]
	a.toasts++
	a.toast = &toast{id: a.toasts, level: last.Level, message: last.Message}

	id := a.toasts
	return tea.Tick(a.toastTTL, func(time.Time) tea.Msg {
		return ToastExpiredMsg{ID: id}
	})
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
