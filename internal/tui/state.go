package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/nikbrunner/minitab/internal/importer"
	"github.com/nikbrunner/minitab/internal/model"
	"github.com/nikbrunner/minitab/internal/search"
	"github.com/nikbrunner/minitab/internal/tui/layout"
)

// Mode is the current interaction mode of the app.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddGroup
	ModeEditGroup
	ModeAddBookmark
	ModeEditBookmark
	ModeConfirmDelete
	ModeSearch
	ModeJump
	ModeImport
	ModeImportConfirm
	ModeHelp
)

// Pane identifies one of the two list panes.
type Pane int

const (
	PaneGroups Pane = iota
	PaneBookmarks
)

// Bookmark form fields, in tab order.
const (
	fieldTitle = iota
	fieldURL
	fieldDescription
	fieldCount
)

// GroupFormState holds the add/rename group dialog.
type GroupFormState struct {
	Name   textinput.Model
	EditID string // empty when adding
}

// NewGroupFormState creates a GroupFormState with initialized input.
func NewGroupFormState(cfg layout.LayoutConfig) GroupFormState {
	name := textinput.New()
	name.Placeholder = "Group name"
	name.CharLimit = cfg.Input.NameCharLimit
	name.Width = cfg.Input.StandardWidth
	return GroupFormState{Name: name}
}

// Reset clears the form and focuses the name input.
func (g *GroupFormState) Reset(editID, name string) {
	g.EditID = editID
	g.Name.SetValue(name)
	g.Name.CursorEnd()
	g.Name.Focus()
}

// BookmarkFormState holds the add/edit bookmark dialog.
type BookmarkFormState struct {
	Inputs  [fieldCount]textinput.Model
	Focus   int
	EditID   string // empty when adding
	GroupID  string
	Original model.Bookmark
	Saving   bool // waiting on the description lookup and save
}

// NewBookmarkFormState creates a BookmarkFormState with initialized inputs.
func NewBookmarkFormState(cfg layout.LayoutConfig) BookmarkFormState {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = cfg.Input.TitleCharLimit
	title.Width = cfg.Input.StandardWidth

	url := textinput.New()
	url.Placeholder = "https://..."
	url.CharLimit = cfg.Input.URLCharLimit
	url.Width = cfg.Input.StandardWidth

	desc := textinput.New()
	desc.Placeholder = "Fetched from the page when empty"
	desc.CharLimit = cfg.Input.DescriptionCharLimit
	desc.Width = cfg.Input.StandardWidth

	return BookmarkFormState{Inputs: [fieldCount]textinput.Model{title, url, desc}}
}

// Reset fills the form from b (zero value when adding) and focuses the title.
func (f *BookmarkFormState) Reset(groupID string, b model.Bookmark) {
	f.EditID = b.ID
	f.GroupID = groupID
	f.Original = b
	f.Saving = false
	f.Inputs[fieldTitle].SetValue(b.Title)
	f.Inputs[fieldURL].SetValue(b.URL)
	f.Inputs[fieldDescription].SetValue(b.Description)
	f.focus(fieldTitle)
}

// Cycle moves focus by delta, wrapping around.
func (f *BookmarkFormState) Cycle(delta int) {
	f.focus((f.Focus + delta + fieldCount) % fieldCount)
}

func (f *BookmarkFormState) focus(field int) {
	f.Focus = field
	for i := range f.Inputs {
		if i == field {
			f.Inputs[i].Focus()
			f.Inputs[i].CursorEnd()
		} else {
			f.Inputs[i].Blur()
		}
	}
}

// Value returns the current text of a field.
func (f BookmarkFormState) Value(field int) string {
	return f.Inputs[field].Value()
}

// ConfirmState holds the pending delete.
type ConfirmState struct {
	Pane  Pane
	ID    string
	Label string
}

// SearchState holds the bookmark search dialog.
type SearchState struct {
	Input   textinput.Model
	Results []model.Bookmark
	Cursor  int
}

// NewSearchState creates a SearchState with initialized input.
func NewSearchState(cfg layout.LayoutConfig) SearchState {
	input := textinput.New()
	input.Placeholder = "Search title, URL or description..."
	input.CharLimit = cfg.Input.SearchCharLimit
	input.Width = cfg.Input.StandardWidth
	return SearchState{Input: input}
}

// Reset clears the search and focuses the input.
func (s *SearchState) Reset() {
	s.Input.Reset()
	s.Input.Focus()
	s.Results = nil
	s.Cursor = 0
}

// JumpState holds the fuzzy group jump dialog.
type JumpState struct {
	Input   textinput.Model
	Matches []search.GroupResult
	Cursor  int
}

// NewJumpState creates a JumpState with initialized input.
func NewJumpState(cfg layout.LayoutConfig) JumpState {
	input := textinput.New()
	input.Placeholder = "Jump to group..."
	input.CharLimit = cfg.Input.NameCharLimit
	input.Width = cfg.Input.StandardWidth
	return JumpState{Input: input}
}

// Reset clears the query and lists every group.
func (j *JumpState) Reset(groups []model.Group) {
	j.Input.Reset()
	j.Input.Focus()
	j.Cursor = 0
	j.Filter(groups)
}

// Filter ranks groups against the current query. An empty query keeps
// display order.
func (j *JumpState) Filter(groups []model.Group) {
	j.Cursor = 0
	query := j.Input.Value()
	if query == "" {
		j.Matches = make([]search.GroupResult, len(groups))
		for i, g := range groups {
			j.Matches[i] = search.GroupResult{Group: g}
		}
		return
	}
	j.Matches = search.FuzzyGroups(groups, query)
}

// ImportState holds the import dialog: a file path, then a preview.
type ImportState struct {
	Path    textinput.Model
	Parsed  []importer.ParsedGroup
	Running bool
}

// NewImportState creates an ImportState with initialized input.
func NewImportState(cfg layout.LayoutConfig) ImportState {
	path := textinput.New()
	path.Placeholder = "~/Downloads/bookmarks.html"
	path.CharLimit = cfg.Input.PathCharLimit
	path.Width = cfg.Input.StandardWidth
	return ImportState{Path: path}
}

// Reset clears the dialog and focuses the path input.
func (s *ImportState) Reset() {
	s.Path.Reset()
	s.Path.Focus()
	s.Parsed = nil
	s.Running = false
}
