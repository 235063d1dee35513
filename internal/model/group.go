package model

import "time"

// Group is a named, ordered collection of bookmarks belonging to one owner.
type Group struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"user_id,omitempty" db:"user_id"` // empty for the anonymous local store
	Name      string    `json:"name" db:"name"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewGroupParams holds parameters for creating a new Group.
type NewGroupParams struct {
	Name      string
	OwnerID   string
	SortOrder int
}

// NewGroup creates a Group with a generated ID and matching timestamps.
func NewGroup(params NewGroupParams) Group {
	now := time.Now().UTC()
	return Group{
		ID:        GenerateID(),
		OwnerID:   params.OwnerID,
		Name:      params.Name,
		SortOrder: params.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
