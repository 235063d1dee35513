package exporter_test

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/golden"

	"github.com/nikbrunner/minitab/internal/exporter"
	"github.com/nikbrunner/minitab/internal/importer"
	"github.com/nikbrunner/minitab/internal/model"
)

func fixture() (model.Group, []model.Bookmark) {
	created := time.Unix(1700000000, 0).UTC()
	group := model.Group{ID: "g1", Name: "Dev & Tools", CreatedAt: created}
	bookmarks := []model.Bookmark{
		{ID: "b2", GroupID: "g1", Title: "Go - The Go Programming Language", URL: "https://go.dev", SortOrder: 1, CreatedAt: created},
		{ID: "b1", GroupID: "g1", Title: "GitHub", URL: "https://github.com/?q=a&b=c", Description: "Where <code> lives", SortOrder: 0, CreatedAt: created},
		{ID: "b3", GroupID: "g1", Title: "Pixel", URL: "https://pixel.dev", FaviconURL: "data:image/png;base64,AA", SortOrder: 2, CreatedAt: created},
	}
	return group, bookmarks
}

func TestExportGroupHTML_Golden(t *testing.T) {
	group, bookmarks := fixture()

	golden.Assert(t, exporter.ExportGroupHTML(group, bookmarks), "group.golden")
}

func TestExportGroupHTML_RoundTrip(t *testing.T) {
	group, bookmarks := fixture()

	groups := importer.Parse(exporter.ExportGroupHTML(group, bookmarks))
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	assert.Equal(t, groups[0].Name, group.Name)

	type pair struct{ Title, URL string }
	var got []pair
	for _, b := range groups[0].Bookmarks {
		got = append(got, pair{b.Title, b.URL})
	}
	assert.DeepEqual(t, got, []pair{
		{"GitHub", "https://github.com/?q=a&b=c"},
		{"Go - The Go Programming Language", "https://go.dev"},
		{"Pixel", "https://pixel.dev"},
	})

	assert.Equal(t, groups[0].Bookmarks[0].Description, "Where <code> lives")
	assert.Equal(t, groups[0].Bookmarks[2].Icon, "data:image/png;base64,AA")
}

func TestExportGroupHTML_Empty(t *testing.T) {
	out := exporter.ExportGroupHTML(model.Group{Name: "Empty"}, nil)

	if groups := importer.Parse(out); len(groups) != 0 {
		t.Errorf("expected empty group to re-import as nothing, got %v", groups)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Work", "Work_bookmarks.html"},
		{"热门网站", "热门网站_bookmarks.html"},
		{"a/b\\c", "a_b_c_bookmarks.html"},
		{"  ", "group_bookmarks.html"},
	}

	for _, tt := range tests {
		if got := exporter.FileName(model.Group{Name: tt.name}); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
