package models

import "time"

// StatusGroup bands the workflow into columns-of-columns
type StatusGroup string

const (
	GroupBeginning  StatusGroup = "beginning"
	GroupInProgress StatusGroup = "in-progress"
	GroupEnd        StatusGroup = "end"
	GroupSpecific   StatusGroup = "specific"
)

// Status is a named stage in the task workflow, ordered by position.
// One status per group should be flagged is_default; the "beginning"
// default seeds new tasks.
type Status struct {
	ID             string      `json:"id" db:"id"`
	OrganizationID string      `json:"organization_id" db:"organization_id"`
	Name           string      `json:"name" db:"name"`
	Slug           string      `json:"slug" db:"slug"`
	Icon           string      `json:"icon" db:"icon"`
	Color          string      `json:"color,omitempty" db:"color"`
	Group          StatusGroup `json:"group" db:"group"`
	IsDefault      bool        `json:"is_default" db:"is_default"`
	InTaskLimit    bool        `json:"in_task_limit" db:"in_task_limit"`
	Position       int         `json:"position" db:"position"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// DefaultStatuses returns the seven statuses seeded for a new organization,
// in position order.
func DefaultStatuses(organizationID string) []Status {
	return []Status{
		{OrganizationID: organizationID, Name: "Not started", Slug: "not-started", Icon: "circle", Group: GroupBeginning, IsDefault: true, InTaskLimit: false, Position: 0},
		{OrganizationID: organizationID, Name: "To do", Slug: "todo", Icon: "clock", Group: GroupInProgress, IsDefault: true, InTaskLimit: false, Position: 1},
		{OrganizationID: organizationID, Name: "In Progress", Slug: "in-progress", Icon: "loader", Group: GroupInProgress, IsDefault: false, InTaskLimit: true, Position: 2},
		{OrganizationID: organizationID, Name: "Internal Review", Slug: "internal-review", Icon: "eye", Group: GroupInProgress, IsDefault: false, InTaskLimit: true, Position: 3},
		{OrganizationID: organizationID, Name: "Awaiting feedback", Slug: "awaiting-feedback", Icon: "help-circle", Group: GroupInProgress, IsDefault: false, InTaskLimit: true, Position: 4},
		{OrganizationID: organizationID, Name: "Done", Slug: "done", Icon: "check-circle-2", Group: GroupEnd, IsDefault: true, InTaskLimit: false, Position: 5},
		{OrganizationID: organizationID, Name: "Blocked", Slug: "blocked", Icon: "ban", Group: GroupSpecific, IsDefault: false, InTaskLimit: false, Position: 6},
	}
}
