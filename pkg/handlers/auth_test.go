package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

func TestRegister_BootstrapsTenant(t *testing.T) {
	env := newTestEnv(t)

	token, user := env.register(t, "fran@example.com")
	assert.Equal(t, "fran@example.com", user.Email)
	assert.Equal(t, models.RoleOwner, user.Role)

	// the org is derived from the email local part
	rec := env.do(t, http.MethodGet, "/api/org", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var orgResp struct {
		Organization models.Organization `json:"organization"`
	}
	decodeData(t, rec, &orgResp)
	assert.Equal(t, "fran's Agency", orgResp.Organization.Name)
	assert.Equal(t, "fran-s-agency", orgResp.Organization.Slug)

	// seven status columns and three plans are seeded
	statuses := env.statusesFor(t, token)
	require.Len(t, statuses, 7)
	assert.Equal(t, "Not started", statuses[0].Name)
	assert.Equal(t, "Blocked", statuses[6].Name)

	rec = env.do(t, http.MethodGet, "/api/plans", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var planResp struct {
		Plans []models.Plan `json:"plans"`
	}
	decodeData(t, rec, &planResp)
	assert.Len(t, planResp.Plans, 3)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "fran@example.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "fran@example.com")

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "fran@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "fran@example.com")

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "Fran@Example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.UserLoginResponse
	decodeData(t, rec, &resp)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEmpty(t, resp.OrgID)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "fran@example.com")

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "fran@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "fran@example.com")

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "fran@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login models.UserLoginResponse
	decodeData(t, rec, &login)

	rec = env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": login.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var refreshed struct {
		AccessToken string `json:"access_token"`
	}
	decodeData(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.AccessToken)

	// an access token is not accepted as a refresh token
	rec = env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": login.AccessToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/tasks", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
