package tui_test

import (
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/minitab/internal/tui/layout"
)

func TestView_NormalMode(t *testing.T) {
	a := newEnv(t).app()
	view := layout.StripANSI(a.View())

	for _, want := range []string{"minitab", "local", "Groups", "> 热门网站", "元宝", "yuanbao.tencent.com", "j/k:move"} {
		assert.Assert(t, is.Contains(view, want))
	}
}

func TestView_FitsTerminal(t *testing.T) {
	for _, size := range [][2]int{{80, 24}, {120, 30}} {
		a := newEnv(t).app().WithDimensions(size[0], size[1])
		lines := strings.Split(layout.StripANSI(a.View()), "\n")

		assert.Equal(t, len(lines), size[1])
		for _, line := range lines {
			assert.Assert(t, layout.VisibleLength(line) <= size[0], "line too wide: %q", line)
		}
	}
}

func TestView_BookmarksPaneTitleIsGroup(t *testing.T) {
	a := newEnv(t).app()
	a = press(a, "tab")
	view := layout.StripANSI(a.View())

	assert.Assert(t, is.Contains(view, "> 元宝"))
	assert.Assert(t, is.Contains(view, "o:open"))
}

func TestView_Modals(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"add group", []string{"a"}, "Add Group"},
		{"rename group", []string{"e"}, "Rename Group"},
		{"add bookmark", []string{"tab", "a"}, "Add Bookmark"},
		{"delete group", []string{"d"}, "All bookmarks in this group are deleted too."},
		{"search", []string{"/"}, "Search"},
		{"jump", []string{"f"}, "热门网站"},
		{"import", []string{"i"}, "File (HTML or JSON):"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := press(newEnv(t).app(), tt.keys...)
			assert.Assert(t, is.Contains(layout.StripANSI(a.View()), tt.want))
		})
	}
}
