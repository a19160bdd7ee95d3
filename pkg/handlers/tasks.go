package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	chiRoute "github.com/go-chi/chi/v5"

	"github.com/TheWonderFran/wonder-tasks/pkg/board"
	"github.com/TheWonderFran/wonder-tasks/pkg/config"
	"github.com/TheWonderFran/wonder-tasks/pkg/database"
	"github.com/TheWonderFran/wonder-tasks/pkg/middleware"
	"github.com/TheWonderFran/wonder-tasks/pkg/models"
	"github.com/TheWonderFran/wonder-tasks/pkg/utils"
)

// TasksHandler serves task CRUD, archiving and column moves. Mutations
// are mirrored into the organization's board session when one is live.
type TasksHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	sessions *board.Registry
}

func NewTasksHandler(cfg *config.Config, db database.DatabaseInterface, sessions *board.Registry) *TasksHandler {
	return &TasksHandler{config: cfg, db: db, sessions: sessions}
}

// GET /api/tasks?archived=true
func (h *TasksHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	includeArchived := utils.GetQueryParam(r, "archived", "false") == "true"
	tasks, err := h.db.ListTasksByOrganization(user.OrganizationID, includeArchived)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list tasks: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"tasks": tasks})
}

// CreateTaskRequest is the POST /api/tasks payload
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ClientID    *string    `json:"client_id,omitempty"`
	StatusID    string     `json:"status_id,omitempty"`
	AssignedTo  *string    `json:"assigned_to,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	Service     string     `json:"service,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// POST /api/tasks
func (h *TasksHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req CreateTaskRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		utils.WriteValidationErrorResponse(w, "Title is required", "title")
		return
	}

	if req.ClientID != nil {
		client, err := h.db.GetClient(*req.ClientID)
		if err != nil || client.OrganizationID != user.OrganizationID {
			utils.WriteBadRequestResponse(w, "Unknown client")
			return
		}
	}

	statusID := req.StatusID
	if statusID == "" {
		statuses, err := h.db.ListStatusesByOrganization(user.OrganizationID)
		if err != nil {
			utils.WriteInternalServerErrorResponse(w, "Failed to resolve default status: "+err.Error())
			return
		}
		def, ok := board.DefaultStatus(statuses)
		if !ok {
			// no columns at all, nothing to create the task into
			utils.WriteConflictResponse(w, "Organization has no status columns")
			return
		}
		statusID = def.ID
	} else {
		status, err := h.db.GetStatus(statusID)
		if err != nil || status.OrganizationID != user.OrganizationID {
			utils.WriteBadRequestResponse(w, "Unknown status")
			return
		}
	}

	priority := models.TaskPriority(req.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}

	taskType := models.TypeInternal
	if req.ClientID != nil {
		taskType = models.TypeClient
	}

	createdBy := user.ID
	task := &models.Task{
		OrganizationID: user.OrganizationID,
		ClientID:       req.ClientID,
		StatusID:       statusID,
		AssignedTo:     req.AssignedTo,
		CreatedBy:      &createdBy,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Priority:       priority,
		Type:           taskType,
		Service:        req.Service,
		DueDate:        req.DueDate,
	}
	if err := h.db.CreateTask(task); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create task: "+err.Error())
		return
	}

	full, err := h.db.GetTask(task.ID)
	if err == nil {
		task = full
	}

	// new tasks show at the head of their column
	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.PrependTask(*task)
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"task": task})
}

// GET /api/tasks/{id}
func (h *TasksHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	task, ok := h.requireOrgTask(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"task": task})
}

// PUT /api/tasks/{id}
// Partial update: only keys present in the body are touched.
func (h *TasksHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	task, ok := h.requireOrgTask(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	var req map[string]interface{}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	patch := make(map[string]interface{})
	for _, key := range []string{"title", "description", "status_id", "client_id", "assigned_to", "priority", "type", "service", "due_date"} {
		if value, present := req[key]; present {
			patch[key] = value
		}
	}
	if title, ok := patch["title"].(string); ok && strings.TrimSpace(title) == "" {
		utils.WriteValidationErrorResponse(w, "Title cannot be empty", "title")
		return
	}
	if statusID, ok := patch["status_id"].(string); ok {
		status, err := h.db.GetStatus(statusID)
		if err != nil || status.OrganizationID != user.OrganizationID {
			utils.WriteBadRequestResponse(w, "Unknown status")
			return
		}
	}
	if clientID, ok := patch["client_id"].(string); ok {
		client, err := h.db.GetClient(clientID)
		if err != nil || client.OrganizationID != user.OrganizationID {
			utils.WriteBadRequestResponse(w, "Unknown client")
			return
		}
	}

	if len(patch) > 0 {
		if err := h.db.UpdateTaskPartial(task.ID, patch); err != nil {
			utils.WriteInternalServerErrorResponse(w, "Failed to update task: "+err.Error())
			return
		}
	}

	updated, err := h.db.GetTask(task.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to reload task: "+err.Error())
		return
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.ReplaceTask(*updated)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"task": updated})
}

// DELETE /api/tasks/{id}
func (h *TasksHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	task, ok := h.requireOrgTask(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.db.DeleteTask(task.ID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to delete task: "+err.Error())
		return
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.RemoveTask(task.ID)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": task.ID})
}

// POST /api/tasks/{id}/archive
func (h *TasksHandler) ArchiveTask(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

// POST /api/tasks/{id}/unarchive
func (h *TasksHandler) UnarchiveTask(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *TasksHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	task, ok := h.requireOrgTask(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	// archiving an archived task (or the reverse) is a no-op
	if task.IsArchived != archived {
		if err := h.db.UpdateTaskPartial(task.ID, map[string]interface{}{"is_archived": archived}); err != nil {
			utils.WriteInternalServerErrorResponse(w, "Failed to update task: "+err.Error())
			return
		}
		task.IsArchived = archived
	}

	updated, err := h.db.GetTask(task.ID)
	if err == nil {
		task = updated
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.ReplaceTask(*task)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"task": task})
}

// POST /api/tasks/{id}/move
func (h *TasksHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	task, ok := h.requireOrgTask(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	var req struct {
		StatusID string `json:"status_id"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.StatusID == "" {
		utils.WriteBadRequestResponse(w, "status_id is required")
		return
	}

	moved, err := MoveTaskForOrg(h.db, user.OrganizationID, task.ID, req.StatusID)
	if err != nil {
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.ReplaceTask(*moved)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"task": moved})
}

// MoveTaskForOrg validates and persists a task's move to another status
// column. Shared by the REST move endpoint and the board drag mover: if
// the task already sits in the target column nothing is written.
func MoveTaskForOrg(db database.DatabaseInterface, orgID, taskID, statusID string) (*models.Task, error) {
	task, err := db.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("task not found")
	}
	if task.OrganizationID != orgID {
		return nil, fmt.Errorf("task not found")
	}

	status, err := db.GetStatus(statusID)
	if err != nil || status.OrganizationID != orgID {
		return nil, fmt.Errorf("unknown status")
	}

	if task.StatusID == statusID {
		return task, nil
	}

	if err := db.UpdateTaskPartial(taskID, map[string]interface{}{"status_id": statusID}); err != nil {
		return nil, fmt.Errorf("failed to move task: %w", err)
	}
	return db.GetTask(taskID)
}

// requireOrgTask loads the task and rejects cross-tenant access
func (h *TasksHandler) requireOrgTask(w http.ResponseWriter, user *models.User, taskID string) (*models.Task, bool) {
	if strings.TrimSpace(taskID) == "" {
		utils.WriteBadRequestResponse(w, "task id required")
		return nil, false
	}
	task, err := h.db.GetTask(taskID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Task not found")
		return nil, false
	}
	if task.OrganizationID != user.OrganizationID {
		utils.WriteNotFoundResponse(w, "Task not found")
		return nil, false
	}
	return task, true
}
