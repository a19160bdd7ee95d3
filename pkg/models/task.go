package models

import "time"

// TaskPriority is the urgency band shown on the card
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// TaskType distinguishes client deliverables from internal work.
// A task with no client_id is internal regardless of the type field;
// the two are not cross-validated (see DESIGN.md).
type TaskType string

const (
	TypeClient   TaskType = "client"
	TypeInternal TaskType = "internal"
)

// Task is the unit of work on the board. Archival (is_archived) soft-hides
// the task; deletion is a hard delete.
type Task struct {
	ID             string       `json:"id" db:"id"`
	OrganizationID string       `json:"organization_id" db:"organization_id"`
	ClientID       *string      `json:"client_id,omitempty" db:"client_id"`
	StatusID       string       `json:"status_id" db:"status_id"`
	AssignedTo     *string      `json:"assigned_to,omitempty" db:"assigned_to"`
	CreatedBy      *string      `json:"created_by,omitempty" db:"created_by"`
	Title          string       `json:"title" db:"title"`
	Description    string       `json:"description,omitempty" db:"description"`
	Priority       TaskPriority `json:"priority" db:"priority"`
	Type           TaskType     `json:"type" db:"type"`
	Service        string       `json:"service,omitempty" db:"service"`
	DueDate        *time.Time   `json:"due_date,omitempty" db:"due_date"`
	IsArchived     bool         `json:"is_archived" db:"is_archived"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`

	// Joined data
	Client   *Client `json:"client,omitempty"`
	Status   *Status `json:"status,omitempty"`
	Assignee *User   `json:"assignee,omitempty"`
}
