package model

import "time"

// Bookmark represents a saved URL inside a group.
type Bookmark struct {
	ID          string    `json:"id" db:"id"`
	GroupID     string    `json:"group_id" db:"group_id"`
	Title       string    `json:"title" db:"title"`
	URL         string    `json:"url" db:"url"`
	Description string    `json:"description,omitempty" db:"description"`
	FaviconURL  string    `json:"favicon_url,omitempty" db:"favicon_url"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// BookmarkInput holds the caller-supplied fields of a new bookmark.
// A nil SortOrder appends the bookmark to the end of its group.
type BookmarkInput struct {
	GroupID     string `json:"group_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=500"`
	URL         string `json:"url" validate:"required,max=2048"`
	Description string `json:"description,omitempty"`
	FaviconURL  string `json:"favicon_url,omitempty"`
	SortOrder   *int   `json:"sort_order,omitempty" validate:"omitempty,gte=0"`
}

// BookmarkPatch describes a partial bookmark update. Only non-nil fields change.
type BookmarkPatch struct {
	GroupID     *string `json:"group_id,omitempty" validate:"omitempty,min=1"`
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	URL         *string `json:"url,omitempty" validate:"omitempty,min=1,max=2048"`
	Description *string `json:"description,omitempty"`
	FaviconURL  *string `json:"favicon_url,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty" validate:"omitempty,gte=0"`
}

// NewBookmark creates a Bookmark from input with a generated ID and timestamps.
// sortOrder is used as-is; callers resolve the append position.
func NewBookmark(in BookmarkInput, sortOrder int) Bookmark {
	now := time.Now().UTC()
	return Bookmark{
		ID:          GenerateID(),
		GroupID:     in.GroupID,
		Title:       in.Title,
		URL:         in.URL,
		Description: in.Description,
		FaviconURL:  in.FaviconURL,
		SortOrder:   sortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Apply copies the non-nil fields of p onto b and stamps UpdatedAt.
func (b *Bookmark) Apply(p BookmarkPatch) {
	if p.GroupID != nil {
		b.GroupID = *p.GroupID
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.URL != nil {
		b.URL = *p.URL
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.FaviconURL != nil {
		b.FaviconURL = *p.FaviconURL
	}
	if p.SortOrder != nil {
		b.SortOrder = *p.SortOrder
	}
	b.UpdatedAt = time.Now().UTC()
}
