package handlers

import (
	"fmt"
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

// ClientsHandler serves client CRUD, plan moves and the grouped view
type ClientsHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	sessions *board.Registry
}

func NewClientsHandler(cfg *config.Config, db database.DatabaseInterface, sessions *board.Registry) *ClientsHandler {
	return &ClientsHandler{config: cfg, db: db, sessions: sessions}
}

// GET /api/clients?include_inactive=true
func (h *ClientsHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	clients, err := h.db.ListClientsByOrganization(user.OrganizationID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list clients: "+err.Error())
		return
	}

	if utils.GetQueryParam(r, "include_inactive", "false") != "true" {
		clients = activeClients(clients)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"clients": clients})
}

// GET /api/clients/grouped
func (h *ClientsHandler) ListClientsGrouped(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	clients, err := h.db.ListClientsByOrganization(user.OrganizationID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list clients: "+err.Error())
		return
	}
	plans, err := h.db.ListPlansByOrganization(user.OrganizationID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list plans: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"plans":  plans,
		"groups": board.GroupClientsByPlan(activeClients(clients), plans),
	})
}

// POST /api/clients
func (h *ClientsHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Name    string  `json:"name"`
		PlanID  *string `json:"plan_id,omitempty"`
		LogoURL string  `json:"logo_url,omitempty"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		utils.WriteValidationErrorResponse(w, "Name is required", "name")
		return
	}
	if req.PlanID != nil {
		plan, err := h.db.GetPlan(*req.PlanID)
		if err != nil || plan.OrganizationID != user.OrganizationID {
			utils.WriteBadRequestResponse(w, "Unknown plan")
			return
		}
	}

	client := &models.Client{
		OrganizationID: user.OrganizationID,
		PlanID:         req.PlanID,
		Name:           strings.TrimSpace(req.Name),
		Slug:           utils.Slugify(req.Name),
		LogoURL:        req.LogoURL,
		IsActive:       true,
	}
	if err := h.db.CreateClient(client); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create client: "+err.Error())
		return
	}

	if full, err := h.db.GetClient(client.ID); err == nil {
		client = full
	}
	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.UpsertClient(*client)
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"client": client})
}

// PUT /api/clients/{id}
func (h *ClientsHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	client, ok := h.requireOrgClient(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	var req map[string]interface{}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	patch := make(map[string]interface{})
	for _, key := range []string{"name", "logo_url", "plan_id", "is_active"} {
		if value, present := req[key]; present {
			patch[key] = value
		}
	}
	if name, ok := patch["name"].(string); ok {
		if strings.TrimSpace(name) == "" {
			utils.WriteValidationErrorResponse(w, "Name cannot be empty", "name")
			return
		}
		patch["slug"] = utils.Slugify(name)
	}
	if planID, ok := patch["plan_id"].(string); ok {
		plan, err := h.db.GetPlan(planID)
		if err != nil || plan.OrganizationID != user.OrganizationID {
			utils.WriteBadRequestResponse(w, "Unknown plan")
			return
		}
	}

	if len(patch) > 0 {
		if err := h.db.UpdateClientPartial(client.ID, patch); err != nil {
			utils.WriteInternalServerErrorResponse(w, "Failed to update client: "+err.Error())
			return
		}
	}

	updated, err := h.db.GetClient(client.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to reload client: "+err.Error())
		return
	}
	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.UpsertClient(*updated)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"client": updated})
}

// DELETE /api/clients/{id}
// Soft delete: flips is_active so the client disappears from views while
// its tasks keep their history.
func (h *ClientsHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	client, ok := h.requireOrgClient(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.db.UpdateClientPartial(client.ID, map[string]interface{}{"is_active": false}); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to deactivate client: "+err.Error())
		return
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.RemoveClient(client.ID)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"deactivated": client.ID})
}

// POST /api/clients/{id}/move
// Moves a client to another plan column; a null plan_id drops it into
// the unassigned bucket.
func (h *ClientsHandler) MoveClient(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	client, ok := h.requireOrgClient(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	var req struct {
		PlanID *string `json:"plan_id"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	updated, err := MoveClientForOrg(h.db, user.OrganizationID, client.ID, req.PlanID)
	if err != nil {
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.UpsertClient(*updated)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"client": updated})
}

// MoveClientForOrg validates and persists a client's move to another
// plan folder. Shared by the REST move endpoint and the board drag
// mover. A nil planID files the client as unassigned; moving to the
// plan it already has writes nothing.
func MoveClientForOrg(db database.DatabaseInterface, orgID, clientID string, planID *string) (*models.Client, error) {
	client, err := db.GetClient(clientID)
	if err != nil || client.OrganizationID != orgID {
		return nil, fmt.Errorf("client not found")
	}

	if planID != nil {
		plan, err := db.GetPlan(*planID)
		if err != nil || plan.OrganizationID != orgID {
			return nil, fmt.Errorf("unknown plan")
		}
	}

	samePlan := (client.PlanID == nil && planID == nil) ||
		(client.PlanID != nil && planID != nil && *client.PlanID == *planID)
	if samePlan {
		return client, nil
	}

	var planValue interface{}
	if planID != nil {
		planValue = *planID
	}
	if err := db.UpdateClientPartial(clientID, map[string]interface{}{"plan_id": planValue}); err != nil {
		return nil, fmt.Errorf("failed to move client: %w", err)
	}
	return db.GetClient(clientID)
}

// requireOrgClient loads the client and rejects cross-tenant access
func (h *ClientsHandler) requireOrgClient(w http.ResponseWriter, user *models.User, clientID string) (*models.Client, bool) {
	if strings.TrimSpace(clientID) == "" {
		utils.WriteBadRequestResponse(w, "client id required")
		return nil, false
	}
	client, err := h.db.GetClient(clientID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Client not found")
		return nil, false
	}
	if client.OrganizationID != user.OrganizationID {
		utils.WriteNotFoundResponse(w, "Client not found")
		return nil, false
	}
	return client, true
}

// activeClients filters out soft-deleted clients, preserving order
func activeClients(clients []models.Client) []models.Client {
	var out []models.Client
	for _, c := range clients {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out
}
