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

// CommentsHandler serves the comment thread under a task
type CommentsHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	sessions *board.Registry
}

func NewCommentsHandler(cfg *config.Config, db database.DatabaseInterface, sessions *board.Registry) *CommentsHandler {
	return &CommentsHandler{config: cfg, db: db, sessions: sessions}
}

// GET /api/tasks/{id}/comments
func (h *CommentsHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	task, ok := h.requireOrgTask(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	comments, err := h.db.ListCommentsByTask(task.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list comments: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"comments": comments})
}

// POST /api/tasks/{id}/comments
func (h *CommentsHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
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
		Content    string `json:"content"`
		IsInternal bool   `json:"is_internal,omitempty"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		utils.WriteValidationErrorResponse(w, "Content is required", "content")
		return
	}

	authorID := user.ID
	comment := &models.Comment{
		TaskID:     task.ID,
		AuthorID:   &authorID,
		Content:    req.Content,
		IsInternal: req.IsInternal,
	}
	if err := h.db.CreateComment(comment); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create comment: "+err.Error())
		return
	}
	comment.Author = user

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.AppendComment(*comment)
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"comment": comment})
}

// DELETE /api/comments/{id}
// Only the author can remove a comment.
func (h *CommentsHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	commentID := chiRoute.URLParam(r, "id")
	if strings.TrimSpace(commentID) == "" {
		utils.WriteBadRequestResponse(w, "comment id required")
		return
	}

	comment, err := h.db.GetComment(commentID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Comment not found")
		return
	}

	task, err := h.db.GetTask(comment.TaskID)
	if err != nil || task.OrganizationID != user.OrganizationID {
		utils.WriteNotFoundResponse(w, "Comment not found")
		return
	}
	if comment.AuthorID == nil || *comment.AuthorID != user.ID {
		utils.WriteForbiddenResponse(w, "Only the author can delete a comment")
		return
	}

	if err := h.db.DeleteComment(comment.ID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to delete comment: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": comment.ID})
}

// requireOrgTask loads the task and rejects cross-tenant access
func (h *CommentsHandler) requireOrgTask(w http.ResponseWriter, user *models.User, taskID string) (*models.Task, bool) {
	if strings.TrimSpace(taskID) == "" {
		utils.WriteBadRequestResponse(w, "task id required")
		return nil, false
	}
	task, err := h.db.GetTask(taskID)
	if err != nil || task.OrganizationID != user.OrganizationID {
		utils.WriteNotFoundResponse(w, "Task not found")
		return nil, false
	}
	return task, true
}
