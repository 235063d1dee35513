package layout

// LayoutConfig holds all layout-related configuration values.
type LayoutConfig struct {
	Pane  PaneConfig
	Modal ModalConfig
	Input InputConfig
	Text  TextConfig
}

// PaneConfig holds pane dimension configuration.
type PaneConfig struct {
	// HeightReduction is subtracted from terminal height for pane content.
	// Accounts for: app padding (1) + header (1) + pane borders (2) + status line (1) = 5
	HeightReduction int

	// MinHeight is the minimum pane height.
	MinHeight int

	// WidthOffset is subtracted before splitting the width between panes.
	// Accounts for app padding and the borders and padding of both panes.
	WidthOffset int

	// GroupsWidthPercent is the share of the usable width given to the groups pane.
	GroupsWidthPercent int

	// MinGroupsWidth is the minimum width of the groups pane.
	MinGroupsWidth int

	// MinBookmarksWidth is the minimum width of the bookmarks pane.
	MinBookmarksWidth int

	// ContentPadding is subtracted from pane width for item rendering.
	ContentPadding int
}

// ModalConfig holds modal dialog configuration.
type ModalConfig struct {
	// DefaultWidthPercent is the standard modal width as percentage of terminal width.
	DefaultWidthPercent int

	// MinWidth is the minimum modal width in characters.
	MinWidth int

	// MaxWidth is the maximum modal width in characters.
	MaxWidth int

	// MaxVisible: max results shown in search and jump lists.
	MaxVisible int

	// HelpKeyColumnWidth: width of the key column in the help overlay.
	HelpKeyColumnWidth int
}

// InputConfig holds text input configuration.
type InputConfig struct {
	// Character limits
	NameCharLimit        int
	TitleCharLimit       int
	URLCharLimit         int
	DescriptionCharLimit int
	PathCharLimit        int
	SearchCharLimit      int

	// StandardWidth is the display width of every modal input.
	StandardWidth int
}

// TextConfig holds text truncation configuration.
type TextConfig struct {
	// Ellipsis is the string used to indicate truncation.
	Ellipsis string
}

// DefaultConfig returns the default layout configuration.
func DefaultConfig() LayoutConfig {
	return LayoutConfig{
		Pane: PaneConfig{
			HeightReduction:    5,
			MinHeight:          5,
			WidthOffset:        8,
			GroupsWidthPercent: 30,
			MinGroupsWidth:     20,
			MinBookmarksWidth:  30,
			ContentPadding:     2,
		},
		Modal: ModalConfig{
			DefaultWidthPercent: 50,
			MinWidth:            50,
			MaxWidth:            80,
			MaxVisible:          8,
			HelpKeyColumnWidth:  12,
		},
		Input: InputConfig{
			NameCharLimit:        100,
			TitleCharLimit:       500,
			URLCharLimit:         2048,
			DescriptionCharLimit: 1000,
			PathCharLimit:        1024,
			SearchCharLimit:      100,
			StandardWidth:        40,
		},
		Text: TextConfig{
			Ellipsis: "...",
		},
	}
}
