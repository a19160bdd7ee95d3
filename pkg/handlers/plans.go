package handlers

import (
	"net/http"
	"strings"

	chiRoute "github.com/go-chi/chi/v5"

	"github.com/TheWonderFran/wonder-tasks/pkg/board"
	"github.com/TheWonderFran/wonder-tasks/pkg/config"
	"github.com/TheWonderFran/wonder-tasks/pkg/database"
	"github.com/TheWonderFran/wonder-tasks/pkg/middleware"
	"github.com/TheWonderFran/wonder-tasks/pkg/models"
	"github.com/TheWonderFran/wonder-tasks/pkg/utils"
)

// PlansHandler serves the organization's service plans
type PlansHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	sessions *board.Registry
}

func NewPlansHandler(cfg *config.Config, db database.DatabaseInterface, sessions *board.Registry) *PlansHandler {
	return &PlansHandler{config: cfg, db: db, sessions: sessions}
}

// GET /api/plans
func (h *PlansHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	plans, err := h.db.ListPlansByOrganization(user.OrganizationID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list plans: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"plans": plans})
}

// POST /api/plans
func (h *PlansHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Name          string                  `json:"name"`
		Description   string                  `json:"description,omitempty"`
		PriceCents    int                     `json:"price_cents"`
		BillingPeriod string                  `json:"billing_period,omitempty"`
		TaskLimit     int                     `json:"task_limit"`
		Permissions   *models.PlanPermissions `json:"permissions,omitempty"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		utils.WriteValidationErrorResponse(w, "Name is required", "name")
		return
	}
	if req.PriceCents < 0 {
		utils.WriteValidationErrorResponse(w, "Price cannot be negative", "price_cents")
		return
	}

	billing := req.BillingPeriod
	if billing == "" {
		billing = "monthly"
	}
	permissions := models.PlanPermissions{
		CanCreateTasks:  true,
		CanChangeStatus: true,
	}
	if req.Permissions != nil {
		permissions = *req.Permissions
	}

	plan := &models.Plan{
		OrganizationID: user.OrganizationID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		PriceCents:     req.PriceCents,
		BillingPeriod:  billing,
		TaskLimit:      req.TaskLimit,
		IsActive:       true,
		Permissions:    permissions,
	}
	if err := h.db.CreatePlan(plan); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create plan: "+err.Error())
		return
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.UpsertPlan(*plan)
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"plan": plan})
}

// PUT /api/plans/{id}
func (h *PlansHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	plan, ok := h.requireOrgPlan(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	var req struct {
		Name          *string                 `json:"name,omitempty"`
		Description   *string                 `json:"description,omitempty"`
		PriceCents    *int                    `json:"price_cents,omitempty"`
		BillingPeriod *string                 `json:"billing_period,omitempty"`
		TaskLimit     *int                    `json:"task_limit,omitempty"`
		IsActive      *bool                   `json:"is_active,omitempty"`
		Permissions   *models.PlanPermissions `json:"permissions,omitempty"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			utils.WriteValidationErrorResponse(w, "Name cannot be empty", "name")
			return
		}
		plan.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			utils.WriteValidationErrorResponse(w, "Price cannot be negative", "price_cents")
			return
		}
		plan.PriceCents = *req.PriceCents
	}
	if req.BillingPeriod != nil {
		plan.BillingPeriod = *req.BillingPeriod
	}
	if req.TaskLimit != nil {
		plan.TaskLimit = *req.TaskLimit
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}
	if req.Permissions != nil {
		plan.Permissions = *req.Permissions
	}

	if err := h.db.UpdatePlan(plan); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update plan: "+err.Error())
		return
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.UpsertPlan(*plan)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"plan": plan})
}

// DELETE /api/plans/{id}
// Clients on the plan are detached and regroup under the unassigned
// bucket.
func (h *PlansHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	plan, ok := h.requireOrgPlan(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.db.DeletePlan(plan.ID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to delete plan: "+err.Error())
		return
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.RemovePlan(plan.ID)
		// detached clients regroup on the next derived view; refresh
		// their stored plan_id so the view matches the database
		if clients, err := h.db.ListClientsByOrganization(user.OrganizationID); err == nil {
			for _, c := range clients {
				session.UpsertClient(c)
			}
		}
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": plan.ID})
}

// requireOrgPlan loads the plan and rejects cross-tenant access
func (h *PlansHandler) requireOrgPlan(w http.ResponseWriter, user *models.User, planID string) (*models.Plan, bool) {
	if strings.TrimSpace(planID) == "" {
		utils.WriteBadRequestResponse(w, "plan id required")
		return nil, false
	}
	plan, err := h.db.GetPlan(planID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Plan not found")
		return nil, false
	}
	if plan.OrganizationID != user.OrganizationID {
		utils.WriteNotFoundResponse(w, "Plan not found")
		return nil, false
	}
	return plan, true
}
