package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

func TestCreateTask_DefaultStatusAndType(t *testing.T) {
	env := newTestEnv(t)
	token, user := env.register(t, "fran@example.com")

	task := env.createTask(t, token, "First task")
	assert.Equal(t, user.OrganizationID, task.OrganizationID)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, models.TypeInternal, task.Type)
	assert.False(t, task.IsArchived)

	// lands in the default beginning column
	statuses := env.statusesFor(t, token)
	def := statuses[0]
	require.True(t, def.IsDefault)
	assert.Equal(t, def.ID, task.StatusID)
}

func TestCreateTask_WithClientBecomesClientWork(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")

	rec := env.do(t, http.MethodPost, "/api/clients", token, map[string]string{"name": "Acme Corp"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var clientResp struct {
		Client models.Client `json:"client"`
	}
	decodeData(t, rec, &clientResp)

	rec = env.do(t, http.MethodPost, "/api/tasks", token, map[string]interface{}{
		"title":     "Acme homepage",
		"client_id": clientResp.Client.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var taskResp struct {
		Task models.Task `json:"task"`
	}
	decodeData(t, rec, &taskResp)
	assert.Equal(t, models.TypeClient, taskResp.Task.Type)
	require.NotNil(t, taskResp.Task.Client)
	assert.Equal(t, "Acme Corp", taskResp.Task.Client.Name)
}

func TestCreateTask_TitleRequired(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")

	rec := env.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTask_PartialPatch(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")
	task := env.createTask(t, token, "Draft copy")

	rec := env.do(t, http.MethodPut, "/api/tasks/"+task.ID, token, map[string]interface{}{
		"priority": "high",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Task models.Task `json:"task"`
	}
	decodeData(t, rec, &resp)
	assert.Equal(t, models.PriorityHigh, resp.Task.Priority)
	// untouched fields survive the patch
	assert.Equal(t, "Draft copy", resp.Task.Title)
}

func TestMoveTask(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")
	task := env.createTask(t, token, "Move me")
	statuses := env.statusesFor(t, token)
	target := statuses[2]

	rec := env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/move", token, map[string]string{
		"status_id": target.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Task models.Task `json:"task"`
	}
	decodeData(t, rec, &resp)
	assert.Equal(t, target.ID, resp.Task.StatusID)

	// moving to an unknown column fails
	rec = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/move", token, map[string]string{
		"status_id": "no-such-status",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArchiveLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")
	task := env.createTask(t, token, "Finished work")

	rec := env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/archive", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Task models.Task `json:"task"`
	}
	decodeData(t, rec, &resp)
	assert.True(t, resp.Task.IsArchived)

	// archiving again is a no-op, not an error
	rec = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/archive", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// archived tasks are hidden from the default listing
	rec = env.do(t, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Tasks []models.Task `json:"tasks"`
	}
	decodeData(t, rec, &list)
	assert.Empty(t, list.Tasks)

	rec = env.do(t, http.MethodGet, "/api/tasks?archived=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &list)
	require.Len(t, list.Tasks, 1)

	rec = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/unarchive", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &resp)
	assert.False(t, resp.Task.IsArchived)
}

func TestCrossTenantAccessIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.register(t, "fran@example.com")
	tokenB, _ := env.register(t, "other@example.com")

	task := env.createTask(t, tokenA, "Private work")

	// the other tenant sees a 404, not a 403, so existence leaks nothing
	rec := env.do(t, http.MethodGet, "/api/tasks/"+task.ID, tokenB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/tasks/"+task.ID, tokenB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/tasks/"+task.ID, tokenB, map[string]string{"title": "hijack"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTask_CascadesComments(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")
	task := env.createTask(t, token, "Short lived")

	rec := env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/comments", token, map[string]string{
		"content": "first note",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/tasks/"+task.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestComments_AuthorOnlyDelete(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")
	task := env.createTask(t, token, "Discussed work")

	rec := env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/comments", token, map[string]string{
		"content": "looks good",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Comment models.Comment `json:"comment"`
	}
	decodeData(t, rec, &created)

	rec = env.do(t, http.MethodGet, "/api/tasks/"+task.ID+"/comments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Comments []models.Comment `json:"comments"`
	}
	decodeData(t, rec, &list)
	require.Len(t, list.Comments, 1)
	assert.Equal(t, "looks good", list.Comments[0].Content)

	rec = env.do(t, http.MethodDelete, "/api/comments/"+created.Comment.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/tasks/"+task.ID+"/comments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &list)
	assert.Empty(t, list.Comments)
}
