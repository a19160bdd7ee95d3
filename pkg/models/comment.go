package models

import "time"

// Comment is an append-only note on a task. is_internal marks comments
// hidden from the client portal.
type Comment struct {
	ID         string    `json:"id" db:"id"`
	TaskID     string    `json:"task_id" db:"task_id"`
	AuthorID   *string   `json:"author_id,omitempty" db:"author_id"`
	Content    string    `json:"content" db:"content"`
	IsInternal bool      `json:"is_internal" db:"is_internal"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	// Joined data
	Author *User `json:"author,omitempty"`
}
