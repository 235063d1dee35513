package model_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nikbrunner/minitab/internal/model"
)

func intPtr(i int) *int          { return &i }
func stringPtr(s string) *string { return &s }

func TestHostname(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "https url", raw: "https://example.com/path?q=1", want: "example.com"},
		{name: "with port", raw: "http://localhost:8080", want: "localhost"},
		{name: "no scheme falls back to raw", raw: "example.com", want: "example.com"},
		{name: "garbage falls back to raw", raw: "::not a url", want: "::not a url"},
		{name: "empty", raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := model.Hostname(tt.raw); got != tt.want {
				t.Errorf("Hostname(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFaviconURL(t *testing.T) {
	got := model.FaviconURL("https://github.com/nikbrunner")
	want := "https://www.google.com/s2/favicons?domain=github.com&sz=64"
	if got != want {
		t.Errorf("FaviconURL = %q, want %q", got, want)
	}

	// Malformed input still yields a usable URL
	if got := model.FaviconURL("not a url"); !strings.HasPrefix(got, "https://www.google.com/s2/favicons?domain=") {
		t.Errorf("unexpected favicon for malformed url: %q", got)
	}
}

func TestSeedData(t *testing.T) {
	groups, bookmarks := model.SeedData()

	if len(groups) != 1 {
		t.Fatalf("expected 1 seed group, got %d", len(groups))
	}
	if !model.IsSeedGroupID(groups[0].ID) {
		t.Errorf("seed group id %q not recognised as seed", groups[0].ID)
	}
	if len(bookmarks) != 7 {
		t.Fatalf("expected 7 seed bookmarks, got %d", len(bookmarks))
	}

	for i, b := range bookmarks {
		if !model.IsSeedBookmarkID(b.ID) {
			t.Errorf("seed bookmark id %q not recognised as seed", b.ID)
		}
		if b.GroupID != model.SeedGroupID {
			t.Errorf("bookmark %s in group %q, want %q", b.ID, b.GroupID, model.SeedGroupID)
		}
		if b.SortOrder != i {
			t.Errorf("bookmark %s sort order %d, want %d", b.ID, b.SortOrder, i)
		}
	}
}

func TestNewBookmark(t *testing.T) {
	b := model.NewBookmark(model.BookmarkInput{
		GroupID: "g1",
		Title:   "Go",
		URL:     "https://go.dev",
	}, 3)

	if b.ID == "" {
		t.Error("expected generated id")
	}
	if b.SortOrder != 3 {
		t.Errorf("expected sort order 3, got %d", b.SortOrder)
	}
	if !b.CreatedAt.Equal(b.UpdatedAt) {
		t.Error("expected created and updated timestamps to match")
	}
}

func TestBookmark_Apply(t *testing.T) {
	created := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	b := model.Bookmark{
		ID:        "b1",
		GroupID:   "g1",
		Title:     "Old",
		URL:       "https://old.example",
		CreatedAt: created,
		UpdatedAt: created,
	}

	b.Apply(model.BookmarkPatch{Title: stringPtr("New"), SortOrder: intPtr(2)})

	if b.Title != "New" {
		t.Errorf("expected title New, got %q", b.Title)
	}
	if b.URL != "https://old.example" {
		t.Errorf("untouched field changed: %q", b.URL)
	}
	if b.SortOrder != 2 {
		t.Errorf("expected sort order 2, got %d", b.SortOrder)
	}
	if !b.UpdatedAt.After(created) {
		t.Error("expected UpdatedAt to advance")
	}
}

func TestBookmark_JSONFieldNames(t *testing.T) {
	b := model.Bookmark{ID: "b1", GroupID: "g1", Title: "T", URL: "https://t.example", SortOrder: 1}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	for _, field := range []string{`"group_id"`, `"sort_order"`, `"created_at"`, `"updated_at"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("expected %s in %s", field, data)
		}
	}
}
