package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
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

// maxUploadBytes caps a single attachment at 25 MB
const maxUploadBytes = 25 << 20

// AttachmentsHandler serves file attachments on tasks. Blobs live in the
// object store, metadata rows in the database.
type AttachmentsHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	storage  database.ObjectStore
	sessions *board.Registry
}

func NewAttachmentsHandler(cfg *config.Config, db database.DatabaseInterface, storage database.ObjectStore, sessions *board.Registry) *AttachmentsHandler {
	return &AttachmentsHandler{config: cfg, db: db, storage: storage, sessions: sessions}
}

// GET /api/tasks/{id}/attachments
func (h *AttachmentsHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	task, ok := h.requireOrgTask(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	attachments, err := h.db.ListAttachmentsByTask(task.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list attachments: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"attachments": attachments})
}

// POST /api/tasks/{id}/attachments
// Multipart upload under the "file" field. The blob goes to the object
// store first, then the metadata row; if the row insert fails the blob
// is deleted again so storage never holds orphans.
func (h *AttachmentsHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	task, ok := h.requireOrgTask(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteBadRequestResponse(w, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		utils.WriteBadRequestResponse(w, "File exceeds the 25MB limit")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to read upload: "+err.Error())
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	path, err := storagePath(task.OrganizationID, task.ID, header.Filename)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to build storage path: "+err.Error())
		return
	}

	if err := h.storage.Upload(path, contentType, data); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to store file: "+err.Error())
		return
	}

	uploadedBy := user.ID
	attachment := &models.Attachment{
		TaskID:      task.ID,
		UploadedBy:  &uploadedBy,
		FileName:    filepath.Base(header.Filename),
		FileSize:    int64(len(data)),
		FileType:    contentType,
		StoragePath: path,
	}
	if err := h.db.CreateAttachment(attachment); err != nil {
		// roll the blob back so a failed insert leaves no orphan
		if rmErr := h.storage.Remove(path); rmErr != nil {
			fmt.Printf("failed to remove orphaned blob %s: %v\n", path, rmErr)
		}
		utils.WriteInternalServerErrorResponse(w, "Failed to save attachment: "+err.Error())
		return
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.AppendAttachment(*attachment)
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"attachment": attachment})
}

// GET /api/attachments/{id}/download
func (h *AttachmentsHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	attachment, ok := h.requireOrgAttachment(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	data, contentType, err := h.storage.Download(attachment.StoragePath)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Attachment blob not found")
		return
	}
	if contentType == "" {
		contentType = attachment.FileType
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// DELETE /api/attachments/{id}
func (h *AttachmentsHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	attachment, ok := h.requireOrgAttachment(w, user, chiRoute.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.db.DeleteAttachment(attachment.ID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to delete attachment: "+err.Error())
		return
	}

	// best effort; a leftover blob is harmless once the row is gone
	if err := h.storage.Remove(attachment.StoragePath); err != nil {
		fmt.Printf("failed to remove blob %s: %v\n", attachment.StoragePath, err)
	}

	if session := h.sessions.Get(user.OrganizationID); session != nil {
		session.RemoveAttachment(attachment.ID)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": attachment.ID})
}

// storagePath builds a collision-free bucket path for an upload
func storagePath(orgID, taskID, filename string) (string, error) {
	token, err := utils.GenerateURLToken(6)
	if err != nil {
		return "", err
	}
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	return fmt.Sprintf("%s/%s/%d-%s-%s", orgID, taskID, time.Now().UnixNano(), token, name), nil
}

// requireOrgAttachment loads the attachment and rejects cross-tenant access
func (h *AttachmentsHandler) requireOrgAttachment(w http.ResponseWriter, user *models.User, attachmentID string) (*models.Attachment, bool) {
	if strings.TrimSpace(attachmentID) == "" {
		utils.WriteBadRequestResponse(w, "attachment id required")
		return nil, false
	}
	attachment, err := h.db.GetAttachment(attachmentID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Attachment not found")
		return nil, false
	}
	task, err := h.db.GetTask(attachment.TaskID)
	if err != nil || task.OrganizationID != user.OrganizationID {
		utils.WriteNotFoundResponse(w, "Attachment not found")
		return nil, false
	}
	return attachment, true
}

// requireOrgTask loads the task and rejects cross-tenant access
func (h *AttachmentsHandler) requireOrgTask(w http.ResponseWriter, user *models.User, taskID string) (*models.Task, bool) {
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
