package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheWonderFran/wonder-tasks/pkg/board"
	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

type boardResponse struct {
	Board   board.View    `json:"board"`
	Members []models.User `json:"members"`
}

func (env *testEnv) loadBoard(t *testing.T, token string) boardResponse {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/board/load", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp boardResponse
	decodeData(t, rec, &resp)
	return resp
}

func TestLoadBoard(t *testing.T) {
	env := newTestEnv(t)
	token, user := env.register(t, "fran@example.com")
	task := env.createTask(t, token, "On the board")

	resp := env.loadBoard(t, token)
	assert.Equal(t, user.OrganizationID, resp.Board.OrganizationID)
	require.Len(t, resp.Board.Statuses, 7)
	require.Len(t, resp.Members, 1)
	assert.Equal(t, 1, resp.Board.ActiveCount)

	column := resp.Board.Columns[task.StatusID]
	require.Len(t, column, 1)
	assert.Equal(t, task.ID, column[0].ID)

	// plans seeded at registration become client group buckets
	assert.Len(t, resp.Board.Plans, 3)
	assert.Contains(t, resp.Board.ClientGroups, board.NoPlanKey)
}

func TestGetBoard_RequiresLoad(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")

	rec := env.do(t, http.MethodGet, "/api/board", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBoardFilters(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")
	env.createTask(t, token, "Launch checklist")
	env.createTask(t, token, "Unrelated chore")
	env.loadBoard(t, token)

	rec := env.do(t, http.MethodPut, "/api/board/filters", token, map[string]string{"search": "launch"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp boardResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, "launch", resp.Board.Filters.Search)

	visible := 0
	for _, column := range resp.Board.Columns {
		visible += len(column)
	}
	assert.Equal(t, 1, visible)
	// counts stay global while filters narrow the columns
	assert.Equal(t, 2, resp.Board.ActiveCount)
}

func TestBoardSelect(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")
	task := env.createTask(t, token, "Detailed work")

	rec := env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/comments", token, map[string]string{
		"content": "kickoff note",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	env.loadBoard(t, token)

	rec = env.do(t, http.MethodPost, "/api/board/select", token, map[string]string{"task_id": task.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp boardResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, task.ID, resp.Board.SelectedTaskID)
	require.Len(t, resp.Board.Comments, 1)
	assert.Equal(t, "kickoff note", resp.Board.Comments[0].Content)

	// selecting nothing clears the detail view
	rec = env.do(t, http.MethodPost, "/api/board/select", token, map[string]interface{}{"task_id": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &resp)
	assert.Empty(t, resp.Board.SelectedTaskID)
	assert.Empty(t, resp.Board.Comments)
}

func TestBoardSelect_UnknownTask(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")
	env.loadBoard(t, token)

	rec := env.do(t, http.MethodPost, "/api/board/select", token, map[string]string{"task_id": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBoardDrag_DropMovesTask(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")
	task := env.createTask(t, token, "Drag me")
	statuses := env.statusesFor(t, token)
	target := statuses[2]
	env.loadBoard(t, token)

	rec := env.do(t, http.MethodPost, "/api/board/drag", token, map[string]string{
		"action": "start", "item_id": task.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/board/drag", token, map[string]string{
		"action": "hover", "target_id": target.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp boardResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, board.DragHovering, resp.Board.Drag.Phase)

	rec = env.do(t, http.MethodPost, "/api/board/drag", token, map[string]string{"action": "drop"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &resp)

	assert.Equal(t, board.DragState{}, resp.Board.Drag)
	require.Len(t, resp.Board.Columns[target.ID], 1)
	assert.Equal(t, task.ID, resp.Board.Columns[target.ID][0].ID)

	// the move was persisted, not just mirrored into the session
	rec = env.do(t, http.MethodGet, "/api/tasks/"+task.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var taskResp struct {
		Task models.Task `json:"task"`
	}
	decodeData(t, rec, &taskResp)
	assert.Equal(t, target.ID, taskResp.Task.StatusID)
}

func TestBoardDrag_ClientDropFilesUnderPlan(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")

	rec := env.do(t, http.MethodPost, "/api/clients", token, map[string]string{"name": "Acme Corp"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var clientResp struct {
		Client models.Client `json:"client"`
	}
	decodeData(t, rec, &clientResp)

	loaded := env.loadBoard(t, token)
	require.NotEmpty(t, loaded.Board.Plans)
	plan := loaded.Board.Plans[0]

	rec = env.do(t, http.MethodPost, "/api/board/drag", token, map[string]string{
		"action": "start", "kind": "client", "item_id": clientResp.Client.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/board/drag", token, map[string]string{
		"action": "hover", "target_id": plan.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/board/drag", token, map[string]string{"action": "drop"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp boardResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, board.DragState{}, resp.Board.Drag)
	require.Len(t, resp.Board.ClientGroups[plan.ID], 1)
	assert.Equal(t, clientResp.Client.ID, resp.Board.ClientGroups[plan.ID][0].ID)

	// the move was persisted, not just mirrored into the session
	rec = env.do(t, http.MethodGet, "/api/clients", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Clients []models.Client `json:"clients"`
	}
	decodeData(t, rec, &listResp)
	require.Len(t, listResp.Clients, 1)
	require.NotNil(t, listResp.Clients[0].PlanID)
	assert.Equal(t, plan.ID, *listResp.Clients[0].PlanID)
}

func TestBoardDrag_CancelAndBadAction(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")
	task := env.createTask(t, token, "Changed my mind")
	env.loadBoard(t, token)

	rec := env.do(t, http.MethodPost, "/api/board/drag", token, map[string]string{
		"action": "start", "item_id": task.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/board/drag", token, map[string]string{"action": "cancel"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp boardResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, board.DragState{}, resp.Board.Drag)

	rec = env.do(t, http.MethodPost, "/api/board/drag", token, map[string]string{"action": "shake"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBoardSessionMirrorsRESTMutations(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "fran@example.com")
	env.loadBoard(t, token)

	// a task created after the load shows up without a reload
	task := env.createTask(t, token, "Fresh work")

	rec := env.do(t, http.MethodGet, "/api/board", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp boardResponse
	decodeData(t, rec, &resp)
	column := resp.Board.Columns[task.StatusID]
	require.Len(t, column, 1)
	assert.Equal(t, task.ID, column[0].ID)

	// archiving hides it from the default view but keeps the count
	rec = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/archive", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/board", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &resp)
	assert.Empty(t, resp.Board.Columns[task.StatusID])
	assert.Equal(t, 1, resp.Board.ArchivedCount)
}
