package handlers

import (
	"net/http"
	"strings"

	"github.com/TheWonderFran/wonder-tasks/pkg/config"
	"github.com/TheWonderFran/wonder-tasks/pkg/database"
	"github.com/TheWonderFran/wonder-tasks/pkg/middleware"
	"github.com/TheWonderFran/wonder-tasks/pkg/utils"
)

// OrgsHandler serves the authenticated member's organization
type OrgsHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

func NewOrgsHandler(cfg *config.Config, db database.DatabaseInterface) *OrgsHandler {
	return &OrgsHandler{config: cfg, db: db}
}

// GET /api/org
func (h *OrgsHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	if user.OrganizationID == "" {
		utils.WriteNotFoundResponse(w, "No organization for this user")
		return
	}

	org, err := h.db.GetOrganization(user.OrganizationID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"organization": org})
}

// PUT /api/org
func (h *OrgsHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	if user.OrganizationID == "" {
		utils.WriteNotFoundResponse(w, "No organization for this user")
		return
	}

	var req struct {
		Name    string `json:"name"`
		LogoURL string `json:"logo_url"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	org, err := h.db.GetOrganization(user.OrganizationID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		org.Name = name
		org.Slug = utils.Slugify(name)
	}
	if req.LogoURL != "" {
		org.LogoURL = req.LogoURL
	}

	if err := h.db.UpdateOrganization(org); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update organization: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"organization": org})
}

// GET /api/org/members
func (h *OrgsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	if user.OrganizationID == "" {
		utils.WriteNotFoundResponse(w, "No organization for this user")
		return
	}

	members, err := h.db.ListUsersByOrganization(user.OrganizationID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list members: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"members": members})
}
