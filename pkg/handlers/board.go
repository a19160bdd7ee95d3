package handlers

import (
	"net/http"
	"sync"

	"github.com/TheWonderFran/wonder-tasks/pkg/board"
	"github.com/TheWonderFran/wonder-tasks/pkg/config"
	"github.com/TheWonderFran/wonder-tasks/pkg/database"
	"github.com/TheWonderFran/wonder-tasks/pkg/middleware"
	"github.com/TheWonderFran/wonder-tasks/pkg/models"
	"github.com/TheWonderFran/wonder-tasks/pkg/utils"
)

// BoardHandler serves the dashboard session: loading the organization's
// collections into a board store and driving filters, selection and
// drag gestures against it
type BoardHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	sessions *board.Registry
}

func NewBoardHandler(cfg *config.Config, db database.DatabaseInterface, sessions *board.Registry) *BoardHandler {
	return &BoardHandler{config: cfg, db: db, sessions: sessions}
}

// POST /api/board/load
// Fetches tasks, clients, statuses, plans and members concurrently and
// waits for all five before the session goes live. Any fetch error
// aborts the load and leaves a previous session untouched.
func (h *BoardHandler) LoadBoard(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID := user.OrganizationID
	if orgID == "" {
		utils.WriteNotFoundResponse(w, "No organization for this user")
		return
	}

	var (
		wg       sync.WaitGroup
		tasks    []models.Task
		clients  []models.Client
		statuses []models.Status
		plans    []models.Plan
		members  []models.User
		errs     [5]error
	)

	wg.Add(5)
	go func() { defer wg.Done(); tasks, errs[0] = h.db.ListTasksByOrganization(orgID, true) }()
	go func() { defer wg.Done(); clients, errs[1] = h.db.ListClientsByOrganization(orgID) }()
	go func() { defer wg.Done(); statuses, errs[2] = h.db.ListStatusesByOrganization(orgID) }()
	go func() { defer wg.Done(); plans, errs[3] = h.db.ListPlansByOrganization(orgID) }()
	go func() { defer wg.Done(); members, errs[4] = h.db.ListUsersByOrganization(orgID) }()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			utils.WriteInternalServerErrorResponse(w, "Failed to load board: "+err.Error())
			return
		}
	}

	session := h.sessions.GetOrCreate(orgID)
	session.Load(tasks, activeClients(clients), statuses, plans)

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"board":   session.View(),
		"members": members,
	})
}

// GET /api/board
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"board": session.View()})
}

// PUT /api/board/filters
func (h *BoardHandler) SetFilters(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var filters board.Filters
	if err := utils.ParseJSONBody(r, &filters); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	session.SetFilters(filters)
	utils.WriteSuccessResponse(w, map[string]interface{}{"board": session.View()})
}

// POST /api/board/select
// Selecting a task opens its detail view: the selection epoch guards the
// follow-up comment and attachment fetches so results for a superseded
// selection are discarded, not shown under the wrong task.
func (h *BoardHandler) SelectTask(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var req struct {
		TaskID *string `json:"task_id"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	if req.TaskID == nil || *req.TaskID == "" {
		session.ClearSelection()
		utils.WriteSuccessResponse(w, map[string]interface{}{"board": session.View()})
		return
	}

	epoch, err := session.Select(*req.TaskID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Task not found")
		return
	}

	var (
		wg          sync.WaitGroup
		comments    []models.Comment
		attachments []models.Attachment
		errs        [2]error
	)
	wg.Add(2)
	go func() { defer wg.Done(); comments, errs[0] = h.db.ListCommentsByTask(*req.TaskID) }()
	go func() { defer wg.Done(); attachments, errs[1] = h.db.ListAttachmentsByTask(*req.TaskID) }()
	wg.Wait()

	// stale epochs are silently dropped; the view reflects whatever
	// selection is current
	if errs[0] == nil {
		session.ApplyComments(epoch, comments)
	}
	if errs[1] == nil {
		session.ApplyAttachments(epoch, attachments)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"board": session.View()})
}

// DragRequest drives the drag state machine. Kind picks the payload:
// "task" (the default) drags a task onto a status column, "client"
// drags a client onto a plan folder.
type DragRequest struct {
	Action   string `json:"action"` // start | hover | leave | drop | cancel
	Kind     string `json:"kind,omitempty"`
	ItemID   string `json:"item_id,omitempty"`
	TargetID string `json:"target_id,omitempty"`
}

// POST /api/board/drag
func (h *BoardHandler) Drag(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var req DragRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	switch req.Action {
	case "start":
		if req.ItemID == "" {
			utils.WriteBadRequestResponse(w, "item_id is required")
			return
		}
		var err error
		switch req.Kind {
		case "", string(board.DragTask):
			err = session.StartDrag(req.ItemID)
		case string(board.DragClient):
			err = session.StartClientDrag(req.ItemID)
		default:
			utils.WriteBadRequestResponse(w, "Unknown drag kind")
			return
		}
		if err != nil {
			utils.WriteBadRequestResponse(w, err.Error())
			return
		}

	case "hover":
		if req.TargetID == "" {
			utils.WriteBadRequestResponse(w, "target_id is required")
			return
		}
		if err := session.HoverTarget(req.TargetID); err != nil {
			utils.WriteBadRequestResponse(w, err.Error())
			return
		}

	case "leave":
		session.LeaveTarget()

	case "cancel":
		session.CancelDrag()

	case "drop":
		// the drop path matches the in-flight gesture's kind, not the
		// request's
		var err error
		if session.View().Drag.Kind == board.DragClient {
			mover := board.ClientMoverFunc(func(clientID string, planID *string) (*models.Client, error) {
				return MoveClientForOrg(h.db, user.OrganizationID, clientID, planID)
			})
			_, err = session.DropClient(mover)
		} else {
			mover := board.MoverFunc(func(taskID, statusID string) (*models.Task, error) {
				return MoveTaskForOrg(h.db, user.OrganizationID, taskID, statusID)
			})
			_, err = session.Drop(mover)
		}
		if err != nil {
			// the gesture is already cleared; report the failed move
			utils.WriteBadRequestResponse(w, err.Error())
			return
		}

	default:
		utils.WriteBadRequestResponse(w, "Unknown drag action")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"board": session.View()})
}

// requireSession resolves the caller's live board session
func (h *BoardHandler) requireSession(w http.ResponseWriter, r *http.Request) (*board.Store, bool) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, false
	}
	session := h.sessions.Get(user.OrganizationID)
	if session == nil {
		utils.WriteNotFoundResponse(w, "Board not loaded")
		return nil, false
	}
	return session, true
}
