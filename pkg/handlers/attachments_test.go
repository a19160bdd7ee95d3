package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheWonderFran/wonder-tasks/pkg/database"
	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

// recordingStore wraps the in-memory store and records upload and
// remove calls by path
type recordingStore struct {
	*database.MemoryStorage
	uploads []string
	removes []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStorage: database.NewMemoryStorage()}
}

func (s *recordingStore) Upload(path, contentType string, data []byte) error {
	s.uploads = append(s.uploads, path)
	return s.MemoryStorage.Upload(path, contentType, data)
}

func (s *recordingStore) Remove(path string) error {
	s.removes = append(s.removes, path)
	return s.MemoryStorage.Remove(path)
}

// failingAttachmentDB rejects every metadata insert
type failingAttachmentDB struct {
	database.DatabaseInterface
}

func (db *failingAttachmentDB) CreateAttachment(attachment *models.Attachment) error {
	return errors.New("insert rejected")
}

func TestUploadAttachment_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")
	task := env.createTask(t, token, "Design review")

	content := []byte("%PDF-1.4 fake report")
	rec := env.upload(t, "/api/tasks/"+task.ID+"/attachments", token, "report.pdf", content)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Attachment models.Attachment `json:"attachment"`
	}
	decodeData(t, rec, &created)
	assert.Equal(t, "report.pdf", created.Attachment.FileName)
	assert.Equal(t, int64(len(content)), created.Attachment.FileSize)
	assert.NotEmpty(t, created.Attachment.StoragePath)

	// the blob is retrievable under the stored path
	blob, _, err := env.storage.Download(created.Attachment.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, content, blob)

	// and the download endpoint streams it back
	rec = env.do(t, http.MethodGet, "/api/attachments/"+created.Attachment.ID+"/download", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report.pdf")
}

func TestUploadAttachment_FailedInsertRemovesBlob(t *testing.T) {
	storage := newRecordingStore()
	env := newTestEnvWith(t, &failingAttachmentDB{database.NewMemoryDatabase()}, storage)
	token, _ := env.register(t, "fran@example.com")
	task := env.createTask(t, token, "Doomed upload")

	rec := env.upload(t, "/api/tasks/"+task.ID+"/attachments", token, "notes.txt", []byte("scratch"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// the blob was written first, then rolled back
	require.Len(t, storage.uploads, 1)
	require.Len(t, storage.removes, 1)
	assert.Equal(t, storage.uploads[0], storage.removes[0])

	_, _, err := storage.Download(storage.uploads[0])
	assert.Error(t, err)
}

func TestDeleteAttachment_RemovesRowAndBlob(t *testing.T) {
	storage := newRecordingStore()
	env := newTestEnvWith(t, database.NewMemoryDatabase(), storage)
	token, _ := env.register(t, "fran@example.com")
	task := env.createTask(t, token, "Cleanup")

	rec := env.upload(t, "/api/tasks/"+task.ID+"/attachments", token, "old.png", []byte{0x89, 0x50})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Attachment models.Attachment `json:"attachment"`
	}
	decodeData(t, rec, &created)

	rec = env.do(t, http.MethodDelete, "/api/attachments/"+created.Attachment.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/tasks/"+task.ID+"/attachments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Attachments []models.Attachment `json:"attachments"`
	}
	decodeData(t, rec, &list)
	assert.Empty(t, list.Attachments)

	_, _, err := storage.Download(created.Attachment.StoragePath)
	assert.Error(t, err)
}

func TestUploadAttachment_FileFieldRequired(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")
	task := env.createTask(t, token, "No file")

	rec := env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/attachments", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttachments_CrossTenantIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.register(t, "fran@example.com")
	tokenB, _ := env.register(t, "other@example.com")
	task := env.createTask(t, tokenA, "Private files")

	rec := env.upload(t, "/api/tasks/"+task.ID+"/attachments", tokenA, "secret.txt", []byte("hidden"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Attachment models.Attachment `json:"attachment"`
	}
	decodeData(t, rec, &created)

	rec = env.do(t, http.MethodGet, "/api/attachments/"+created.Attachment.ID+"/download", tokenB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/attachments/"+created.Attachment.ID, tokenB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
