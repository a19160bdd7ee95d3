package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/TheWonderFran/wonder-tasks/pkg/config"
	"github.com/TheWonderFran/wonder-tasks/pkg/database"
	"github.com/TheWonderFran/wonder-tasks/pkg/models"
	"github.com/TheWonderFran/wonder-tasks/pkg/utils"
)

// AuthHandler serves registration, login and token refresh
type AuthHandler struct {
	config     *config.Config
	db         database.DatabaseInterface
	jwtService *utils.JWTService
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface) *AuthHandler {
	return &AuthHandler{
		config:     cfg,
		db:         db,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserRegisterRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		utils.WriteValidationErrorResponse(w, "Invalid email address", "email")
		return
	}
	if len(req.Password) < 8 {
		utils.WriteValidationErrorResponse(w, "Password must be at least 8 characters", "password")
		return
	}

	if _, err := h.db.GetUserByEmail(req.Email); err == nil {
		utils.WriteConflictResponse(w, "A user with this email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to hash password")
		return
	}

	user := &models.User{
		Email:    req.Email,
		Password: string(hash),
		FullName: req.FullName,
		Role:     models.RoleOwner,
	}
	if err := h.db.CreateUser(user); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create user: "+err.Error())
		return
	}

	if err := h.ensureTenant(user); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to bootstrap organization: "+err.Error())
		return
	}

	h.writeTokenResponse(w, user, http.StatusCreated)
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.db.GetUserByEmail(req.Email)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	// Defaults may be missing for accounts created before seeding existed
	if err := h.ensureTenant(user); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to bootstrap organization: "+err.Error())
		return
	}

	h.writeTokenResponse(w, user, http.StatusOK)
}

// POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		utils.WriteBadRequestResponse(w, "refresh_token is required")
		return
	}

	accessToken, expiresIn, err := h.jwtService.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid refresh token")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"access_token": accessToken,
		"expires_in":   expiresIn,
	})
}

// POST /api/auth/logout
// Tokens are stateless, so logout is a client-side discard; the endpoint
// exists so clients have a uniform call to finish a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"message": "Logged out",
	})
}

// GET /
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := h.db.HealthCheck(); err != nil {
		status = "degraded"
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"status":      status,
		"environment": h.config.Environment,
		"database":    database.GetConnectionStats(),
	})
}

// ensureTenant makes sure the user has an organization with the default
// statuses and plans. Safe to call repeatedly.
func (h *AuthHandler) ensureTenant(user *models.User) error {
	if user.OrganizationID == "" {
		org := &models.Organization{
			Name: orgNameFromEmail(user.Email),
		}
		org.Slug = utils.Slugify(org.Name)
		if err := h.db.CreateOrganization(org); err != nil {
			return fmt.Errorf("create organization: %w", err)
		}

		user.OrganizationID = org.ID
		if err := h.db.UpdateUser(user); err != nil {
			return fmt.Errorf("attach user to organization: %w", err)
		}
	}

	statuses, err := h.db.ListStatusesByOrganization(user.OrganizationID)
	if err != nil {
		return fmt.Errorf("list statuses: %w", err)
	}
	if len(statuses) == 0 {
		for _, status := range models.DefaultStatuses(user.OrganizationID) {
			s := status
			if err := h.db.CreateStatus(&s); err != nil {
				return fmt.Errorf("seed status %q: %w", status.Name, err)
			}
		}
	}

	plans, err := h.db.ListPlansByOrganization(user.OrganizationID)
	if err != nil {
		return fmt.Errorf("list plans: %w", err)
	}
	if len(plans) == 0 {
		for _, plan := range models.DefaultPlans(user.OrganizationID) {
			p := plan
			if err := h.db.CreatePlan(&p); err != nil {
				return fmt.Errorf("seed plan %q: %w", plan.Name, err)
			}
		}
	}

	return nil
}

// orgNameFromEmail derives the bootstrap org name from the email local part
func orgNameFromEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	return local + "'s Agency"
}

// writeTokenResponse issues the token pair for a user
func (h *AuthHandler) writeTokenResponse(w http.ResponseWriter, user *models.User, statusCode int) {
	accessToken, refreshToken, expiresIn, err := h.jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens")
		return
	}

	utils.WriteJSONResponse(w, statusCode, models.UserLoginResponse{
		User:         *user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		OrgID:        user.OrganizationID,
	})
}
