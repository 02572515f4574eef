package model

import "time"

// Entry is a single changelog record. ID and the timestamps are assigned by the
// persistence layer; clients only supply text, description and tags.
type Entry struct {
	ID          string    `json:"id"`
	Tags        []string  `json:"tags"`
	Text        string    `json:"text"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListEntriesRequest captures optional paging used when reading the changelog.
// The zero value selects every entry.
type ListEntriesRequest struct {
	Limit  int
	Before *time.Time
}
