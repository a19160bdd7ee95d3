package models

import "time"

// PlanPermissions is the capability bag attached to a subscription plan
type PlanPermissions struct {
	CanCreateTasks       bool `json:"can_create_tasks"`
	CanChangeStatus      bool `json:"can_change_status"`
	CanManagePlans       bool `json:"can_manage_plans"`
	CanPauseSubscription bool `json:"can_pause_subscription"`
}

// Plan is a client-facing subscription tier controlling task allowance and permissions
type Plan struct {
	ID             string          `json:"id" db:"id"`
	OrganizationID string          `json:"organization_id" db:"organization_id"`
	Name           string          `json:"name" db:"name"`
	Description    string          `json:"description,omitempty" db:"description"`
	PriceCents     int             `json:"price_cents" db:"price_cents"`
	BillingPeriod  string          `json:"billing_period" db:"billing_period"`
	TaskLimit      int             `json:"task_limit" db:"task_limit"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	Permissions    PlanPermissions `json:"permissions" db:"permissions"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// DefaultPlans returns the three plans seeded for a new organization.
// Prices are cents; task_limit counts concurrently active tasks for the tier.
func DefaultPlans(organizationID string) []Plan {
	allPerms := PlanPermissions{
		CanCreateTasks:       true,
		CanChangeStatus:      true,
		CanManagePlans:       true,
		CanPauseSubscription: true,
	}
	return []Plan{
		{OrganizationID: organizationID, Name: "Starter", Description: "For small projects", PriceCents: 49900, BillingPeriod: "monthly", TaskLimit: 3, IsActive: true, Permissions: allPerms},
		{OrganizationID: organizationID, Name: "Growth", Description: "For growing teams", PriceCents: 99900, BillingPeriod: "monthly", TaskLimit: 5, IsActive: true, Permissions: allPerms},
		{OrganizationID: organizationID, Name: "Scale", Description: "For agencies", PriceCents: 199900, BillingPeriod: "monthly", TaskLimit: 10, IsActive: true, Permissions: allPerms},
	}
}
