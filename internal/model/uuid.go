package model

import "github.com/google/uuid"

// GenerateID creates a new UUID string for groups and bookmarks.
func GenerateID() string {
	return uuid.New().String()
}
