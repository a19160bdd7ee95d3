package models

import "time"

// Client is an agency customer. plan_id is optional; a client without a
// resolvable plan is grouped under the synthetic "no plan" bucket.
// Deletion is a soft-delete: is_active=false hides the client without
// touching its tasks.
type Client struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	PlanID         *string   `json:"plan_id,omitempty" db:"plan_id"`
	Name           string    `json:"name" db:"name"`
	Slug           string    `json:"slug" db:"slug"`
	LogoURL        string    `json:"logo_url,omitempty" db:"logo_url"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`

	// Joined data
	Plan *Plan `json:"plan,omitempty"`
}
