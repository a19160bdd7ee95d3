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

// StatusesHandler serves the organization's status columns
type StatusesHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	sessions *board.Registry
}

func NewStatusesHandler(cfg *config.Config, db database.DatabaseInterface, sessions *board.Registry) *StatusesHandler {
	return &StatusesHandler{config: cfg, db: db, sessions: sessions}
}

// GET /api/statuses
func (h *StatusesHandler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	statuses, err := h.db.ListStatusesByOrganization(user.OrganizationID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list statuses: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"statuses": statuses})
}

// POST /api/statuses
func (h *StatusesHandler) CreateStatus(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Name        string `json:"name"`
		Icon        string `json:"icon,omitempty"`
		Color       string `json:"color,omitempty"`
		Group       string `json:"group,omitempty"`
		InTaskLimit bool   `json:"in_task_limit,omitempty"`
		Position    *int   `json:"position,omitempty"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		utils.WriteValidationErrorResponse(w, "Name is required", "name")
		return
	}

	group := models.StatusGroup(req.Group)
	switch group {
	case models.GroupBeginning, models.GroupInProgress, models.GroupEnd, models.GroupSpecific:
	case "":
		group = models.GroupInProgress
	default:
		utils.WriteValidationErrorResponse(w, "Unknown status group", "group")
		return
	}

	existing, err := h.db.ListStatusesByOrganization(user.OrganizationID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list statuses: "+err.Error())
		return
	}

	position := len(existing)
	if req.Position != nil {
		position = *req.Position
	}

	status := &models.Status{
		OrganizationID: user.OrganizationID,
		Name:           strings.TrimSpace(req.Name),
		Slug:           utils.Slugify(req.Name),
		Icon:           req.Icon,
		Color:          req.Color,
		Group:          group,
		InTaskLimit:    req.InTaskLimit,
		Position:       position,
	}
	if err := h.db.CreateStatus(status); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create status: "+err.Error())
		return
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.UpsertStatus(*status)
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"status": status})
}

// PUT /api/statuses/{id}
func (h *StatusesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	status, ok := h.requireOrgStatus(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	var req struct {
		Name        *string `json:"name,omitempty"`
		Icon        *string `json:"icon,omitempty"`
		Color       *string `json:"color,omitempty"`
		Group       *string `json:"group,omitempty"`
		IsDefault   *bool   `json:"is_default,omitempty"`
		InTaskLimit *bool   `json:"in_task_limit,omitempty"`
		Position    *int    `json:"position,omitempty"`
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
		status.Name = strings.TrimSpace(*req.Name)
		status.Slug = utils.Slugify(*req.Name)
	}
	if req.Icon != nil {
		status.Icon = *req.Icon
	}
	if req.Color != nil {
		status.Color = *req.Color
	}
	if req.Group != nil {
		group := models.StatusGroup(*req.Group)
		switch group {
		case models.GroupBeginning, models.GroupInProgress, models.GroupEnd, models.GroupSpecific:
			status.Group = group
		default:
			utils.WriteValidationErrorResponse(w, "Unknown status group", "group")
			return
		}
	}
	if req.IsDefault != nil {
		status.IsDefault = *req.IsDefault
	}
	if req.InTaskLimit != nil {
		status.InTaskLimit = *req.InTaskLimit
	}
	if req.Position != nil {
		status.Position = *req.Position
	}

	if err := h.db.UpdateStatus(status); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update status: "+err.Error())
		return
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.UpsertStatus(*status)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"status": status})
}

// DELETE /api/statuses/{id}
// A column still holding tasks cannot be removed.
func (h *StatusesHandler) DeleteStatus(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	status, ok := h.requireOrgStatus(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	tasks, err := h.db.ListTasksByOrganization(user.OrganizationID, true)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list tasks: "+err.Error())
		return
	}
	for _, task := range tasks {
		if task.StatusID == status.ID {
			utils.WriteConflictResponse(w, "Status still has tasks")
			return
		}
	}

	if err := h.db.DeleteStatus(status.ID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to delete status: "+err.Error())
		return
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.RemoveStatus(status.ID)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": status.ID})
}

// requireOrgStatus loads the status and rejects cross-tenant access
func (h *StatusesHandler) requireOrgStatus(w http.ResponseWriter, user *models.User, statusID string) (*models.Status, bool) {
	if strings.TrimSpace(statusID) == "" {
		utils.WriteBadRequestResponse(w, "status id required")
		return nil, false
	}
	status, err := h.db.GetStatus(statusID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Status not found")
		return nil, false
	}
	if status.OrganizationID != user.OrganizationID {
		utils.WriteNotFoundResponse(w, "Status not found")
		return nil, false
	}
	return status, true
}
