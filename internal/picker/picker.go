// Package picker is the one-shot chooser `minitab search` shows when a
// query matches more than one bookmark.
package picker

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/minitab/internal/model"
	"github.com/nikbrunner/minitab/internal/search"
	"github.com/nikbrunner/minitab/internal/tui/layout"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0e0e0"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6b35")).Bold(true)
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#707070"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6b35")).Bold(true)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#505050"))
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Filter key.Binding
	Choose key.Binding
	Cancel key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("k", "up", "ctrl+p")),
	Down:   key.NewBinding(key.WithKeys("j", "down", "ctrl+n")),
	Top:    key.NewBinding(key.WithKeys("g", "home")),
	Bottom: key.NewBinding(key.WithKeys("G", "end")),
	Filter: key.NewBinding(key.WithKeys("/")),
	Choose: key.NewBinding(key.WithKeys("enter")),
	Cancel: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c")),
}

// Picker lists search results and remembers the one chosen.
type Picker struct {
	all     []model.Bookmark
	results []model.Bookmark // all, narrowed by the filter
	groups  map[string]string
	query   string

	filter    textinput.Model
	filtering bool

	cursor    int
	selected  bool
	cancelled bool
	width     int
	height    int
	layout    layout.LayoutConfig
}

// New creates a Picker over results. groups maps group ids to names for
// display and may be nil.
func New(results []model.Bookmark, groups map[string]string, query string) Picker {
	cfg := layout.DefaultConfig()
	ti := textinput.New()
	ti.Prompt = "/"
	ti.CharLimit = cfg.Input.SearchCharLimit

	return Picker{
		all:     results,
		results: results,
		groups:  groups,
		query:   query,
		filter:  ti,
		width:   80,
		height:  24,
		layout:  cfg,
	}
}

func (p Picker) Init() tea.Cmd {
	return nil
}

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case tea.KeyMsg:
		if p.filtering {
			return p.updateFilter(msg)
		}

		switch {
		case key.Matches(msg, keys.Cancel):
			p.cancelled = true
			return p, tea.Quit
		case key.Matches(msg, keys.Choose):
			if len(p.results) == 0 {
				return p, nil
			}
			p.selected = true
			return p, tea.Quit
		case key.Matches(msg, keys.Down):
			if p.cursor < len(p.results)-1 {
				p.cursor++
			}
		case key.Matches(msg, keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
		case key.Matches(msg, keys.Top):
			p.cursor = 0
		case key.Matches(msg, keys.Bottom):
			p.cursor = max(len(p.results)-1, 0)
		case key.Matches(msg, keys.Filter):
			p.filtering = true
			cmd := p.filter.Focus()
			return p, cmd
		}
	}
	return p, nil
}

// updateFilter edits the narrowing filter. Enter keeps it, esc drops it.
func (p Picker) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		p.cancelled = true
		return p, tea.Quit
	case tea.KeyEnter:
		p.filtering = false
		p.filter.Blur()
		return p, nil
	case tea.KeyEsc:
		p.filtering = false
		p.filter.Blur()
		p.filter.SetValue("")
		p.narrow()
		return p, nil
	}

	var cmd tea.Cmd
	p.filter, cmd = p.filter.Update(msg)
	p.narrow()
	return p, cmd
}

func (p *Picker) narrow() {
	q := strings.TrimSpace(p.filter.Value())
	if q == "" {
		p.results = p.all
	} else {
		matches := search.FuzzyBookmarks(p.all, q)
		p.results = make([]model.Bookmark, len(matches))
		for i, m := range matches {
			p.results[i] = m.Bookmark
		}
	}
	p.cursor = 0
}

func (p Picker) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n")
	if p.filtering || p.filter.Value() != "" {
		b.WriteString(p.filter.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(p.results) == 0 {
		b.WriteString(detailStyle.Render("  (no matches)"))
		b.WriteString("\n")
	}

	// two lines per row, header and footer take six
	visible := max((p.height-6)/2, 1)
	start, end := layout.CalculateVisibleListItems(visible, p.cursor, len(p.results))
	textWidth := max(p.width-4, 10)

	for i := start; i < end; i++ {
		bm := p.results[i]
		cursor, style := "  ", titleStyle
		if i == p.cursor {
			cursor, style = "> ", selectedStyle
		}

		title, _ := layout.TruncateText(bm.Title, textWidth, p.layout.Text)
		detail := bm.URL
		if name, ok := p.groups[bm.GroupID]; ok {
			detail = name + " / " + detail
		}
		detail, _ = layout.TruncateText(detail, textWidth-1, p.layout.Text)

		b.WriteString(cursor + style.Render(title) + "\n")
		b.WriteString("   " + detailStyle.Render(detail) + "\n")
	}

	b.WriteString("\n")
	if p.filtering {
		b.WriteString(footerStyle.Render("enter: keep filter  esc: clear"))
	} else {
		b.WriteString(footerStyle.Render("j/k: move  /: filter  enter: open  q/esc: cancel"))
	}
	return b.String()
}

// SelectedBookmark returns the chosen bookmark, or nil if none was chosen.
func (p Picker) SelectedBookmark() *model.Bookmark {
	if p.cancelled || !p.selected || p.cursor >= len(p.results) {
		return nil
	}
	b := p.results[p.cursor]
	return &b
}

func (p Picker) Cancelled() bool {
	return p.cancelled
}
