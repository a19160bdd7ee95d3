package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	chiRoute "github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/TheWonderFran/wonder-tasks/pkg/board"
	"github.com/TheWonderFran/wonder-tasks/pkg/config"
	"github.com/TheWonderFran/wonder-tasks/pkg/database"
	"github.com/TheWonderFran/wonder-tasks/pkg/middleware"
	"github.com/TheWonderFran/wonder-tasks/pkg/models"
	"github.com/TheWonderFran/wonder-tasks/pkg/utils"
)

// testEnv wires the full API router against the in-memory database so
// handler tests exercise real routing, auth and session mirroring
type testEnv struct {
	cfg      *config.Config
	db       database.DatabaseInterface
	storage  database.ObjectStore
	sessions *board.Registry
	router   *chiRoute.Mux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, database.NewMemoryDatabase(), database.NewMemoryStorage())
}

func newTestEnvWith(t *testing.T, db database.DatabaseInterface, storage database.ObjectStore) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Environment: "development",
		JWTSecret:   "test-secret",
		UseMemoryDB: true,
	}

	env := &testEnv{
		cfg:      cfg,
		db:       db,
		storage:  storage,
		sessions: board.NewRegistry(),
		router:   chiRoute.NewRouter(),
	}

	authHandler := NewAuthHandler(cfg, db)
	orgsHandler := NewOrgsHandler(cfg, db)
	tasksHandler := NewTasksHandler(cfg, db, env.sessions)
	clientsHandler := NewClientsHandler(cfg, db, env.sessions)
	statusesHandler := NewStatusesHandler(cfg, db, env.sessions)
	plansHandler := NewPlansHandler(cfg, db, env.sessions)
	commentsHandler := NewCommentsHandler(cfg, db, env.sessions)
	attachmentsHandler := NewAttachmentsHandler(cfg, db, env.storage, env.sessions)
	boardHandler := NewBoardHandler(cfg, db, env.sessions)

	env.router.Route("/api", func(r chiRoute.Router) {
		r.Route("/auth", func(r chiRoute.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
		})

		r.Group(func(r chiRoute.Router) {
			r.Use(middleware.AuthMiddleware(cfg, db))

			r.Route("/org", func(r chiRoute.Router) {
				r.Get("/", orgsHandler.GetOrganization)
				r.Put("/", orgsHandler.UpdateOrganization)
				r.Get("/members", orgsHandler.ListMembers)
			})

			r.Route("/tasks", func(r chiRoute.Router) {
				r.Get("/", tasksHandler.ListTasks)
				r.Post("/", tasksHandler.CreateTask)
				r.Get("/{id}", tasksHandler.GetTask)
				r.Put("/{id}", tasksHandler.UpdateTask)
				r.Delete("/{id}", tasksHandler.DeleteTask)
				r.Post("/{id}/archive", tasksHandler.ArchiveTask)
				r.Post("/{id}/unarchive", tasksHandler.UnarchiveTask)
				r.Post("/{id}/move", tasksHandler.MoveTask)
				r.Get("/{id}/comments", commentsHandler.ListComments)
				r.Post("/{id}/comments", commentsHandler.CreateComment)
				r.Get("/{id}/attachments", attachmentsHandler.ListAttachments)
				r.Post("/{id}/attachments", attachmentsHandler.UploadAttachment)
			})

			r.Route("/clients", func(r chiRoute.Router) {
				r.Get("/", clientsHandler.ListClients)
				r.Post("/", clientsHandler.CreateClient)
				r.Get("/grouped", clientsHandler.ListClientsGrouped)
				r.Put("/{id}", clientsHandler.UpdateClient)
				r.Delete("/{id}", clientsHandler.DeleteClient)
				r.Post("/{id}/move", clientsHandler.MoveClient)
			})

			r.Route("/statuses", func(r chiRoute.Router) {
				r.Get("/", statusesHandler.ListStatuses)
				r.Post("/", statusesHandler.CreateStatus)
				r.Put("/{id}", statusesHandler.UpdateStatus)
				r.Delete("/{id}", statusesHandler.DeleteStatus)
			})

			r.Route("/plans", func(r chiRoute.Router) {
				r.Get("/", plansHandler.ListPlans)
				r.Post("/", plansHandler.CreatePlan)
				r.Put("/{id}", plansHandler.UpdatePlan)
				r.Delete("/{id}", plansHandler.DeletePlan)
			})

			r.Delete("/comments/{id}", commentsHandler.DeleteComment)
			r.Get("/attachments/{id}/download", attachmentsHandler.DownloadAttachment)
			r.Delete("/attachments/{id}", attachmentsHandler.DeleteAttachment)

			r.Route("/board", func(r chiRoute.Router) {
				r.Post("/load", boardHandler.LoadBoard)
				r.Get("/", boardHandler.GetBoard)
				r.Put("/filters", boardHandler.SetFilters)
				r.Post("/select", boardHandler.SelectTask)
				r.Post("/drag", boardHandler.Drag)
			})
		})
	})

	return env
}

// do sends a JSON request through the router
func (env *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// upload sends a multipart file upload through the router
func (env *testEnv) upload(t *testing.T, path, token, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// decodeData unwraps the response envelope into out
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var envelope utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected success envelope, got body: %s", rec.Body.String())

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	// zero the destination so fields omitted from this response (via
	// omitempty) don't keep values from a previous decode
	v := reflect.ValueOf(out).Elem()
	v.Set(reflect.Zero(v.Type()))
	require.NoError(t, json.Unmarshal(raw, out))
}

// register creates a member and returns the access token and user
func (env *testEnv) register(t *testing.T, email string) (string, models.User) {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":     email,
		"password":  "password123",
		"full_name": "Test Member",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp models.UserLoginResponse
	decodeData(t, rec, &resp)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.User.OrganizationID)
	return resp.AccessToken, resp.User
}

// statusesFor lists the seeded status columns for the caller's org
func (env *testEnv) statusesFor(t *testing.T, token string) []models.Status {
	t.Helper()

	rec := env.do(t, http.MethodGet, "/api/statuses", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Statuses []models.Status `json:"statuses"`
	}
	decodeData(t, rec, &resp)
	return resp.Statuses
}

// createTask creates a task titled title and returns it
func (env *testEnv) createTask(t *testing.T, token, title string) models.Task {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Task models.Task `json:"task"`
	}
	decodeData(t, rec, &resp)
	return resp.Task
}
