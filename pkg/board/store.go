package board

import (
	"fmt"
	"sync"

	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

// Store is the mutex-guarded dashboard state for one organization. All
// mutation goes through typed methods; reads come back as derived views
// so callers never hold references into the guarded slices.
type Store struct {
	mu sync.RWMutex

	orgID string

	tasks    []models.Task // includes archived, newest first
	clients  []models.Client
	statuses []models.Status
	plans    []models.Plan

	filters Filters

	// Selection carries an epoch so detail responses that arrive after
	// the selection changed are discarded instead of applied.
	selectedTaskID string
	selectionEpoch uint64
	comments       []models.Comment
	attachments    []models.Attachment

	drag DragState
}

// NewStore creates an empty store for an organization
func NewStore(orgID string) *Store {
	return &Store{orgID: orgID}
}

// OrgID returns the owning organization's ID
func (s *Store) OrgID() string {
	return s.orgID
}

// Load replaces every collection at once, as after the initial dashboard
// fetch. Selection, filters and drag state are reset.
func (s *Store) Load(tasks []models.Task, clients []models.Client, statuses []models.Status, plans []models.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = append([]models.Task(nil), tasks...)
	s.clients = append([]models.Client(nil), clients...)
	s.statuses = append([]models.Status(nil), statuses...)
	s.plans = append([]models.Plan(nil), plans...)

	s.filters = Filters{}
	s.clearSelectionLocked()
	s.drag = DragState{}
}

// SetFilters replaces the active filter criteria
func (s *Store) SetFilters(f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
}

// Filters returns the active filter criteria
func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// PrependTask puts a newly created task at the head of the list so it
// shows first in its column
func (s *Store) PrependTask(task models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append([]models.Task{task}, s.tasks...)
}

// ReplaceTask swaps the stored task for the given one, matched by ID.
// Position in the list is kept. Unknown IDs are ignored. Archiving the
// selected task closes its detail view.
func (s *Store) ReplaceTask(task models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i] = task
			if task.IsArchived && s.selectedTaskID == task.ID {
				s.clearSelectionLocked()
			}
			return
		}
	}
}

// RemoveTask drops a task from the store and clears the selection if the
// removed task was selected
func (s *Store) RemoveTask(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == taskID {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			break
		}
	}
	if s.selectedTaskID == taskID {
		s.clearSelectionLocked()
	}
	if s.drag.Kind == DragTask && s.drag.ItemID == taskID {
		s.drag = DragState{}
	}
}

// Task returns a stored task by ID
func (s *Store) Task(taskID string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return models.Task{}, false
}

// UpsertClient adds or replaces a client
func (s *Store) UpsertClient(client models.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.clients {
		if s.clients[i].ID == client.ID {
			s.clients[i] = client
			return
		}
	}
	s.clients = append(s.clients, client)
}

// RemoveClient drops a client from the store
func (s *Store) RemoveClient(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.clients {
		if s.clients[i].ID == clientID {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			break
		}
	}
	if s.drag.Kind == DragClient && s.drag.ItemID == clientID {
		s.drag = DragState{}
	}
}

// UpsertStatus adds or replaces a status column, keeping position order
func (s *Store) UpsertStatus(status models.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.statuses {
		if s.statuses[i].ID == status.ID {
			s.statuses[i] = status
			return
		}
	}
	// insert before the first column with a higher position
	for i := range s.statuses {
		if s.statuses[i].Position > status.Position {
			s.statuses = append(s.statuses[:i], append([]models.Status{status}, s.statuses[i:]...)...)
			return
		}
	}
	s.statuses = append(s.statuses, status)
}

// RemoveStatus drops a status column
func (s *Store) RemoveStatus(statusID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.statuses {
		if s.statuses[i].ID == statusID {
			s.statuses = append(s.statuses[:i], s.statuses[i+1:]...)
			return
		}
	}
}

// UpsertPlan adds or replaces a plan
func (s *Store) UpsertPlan(plan models.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.plans {
		if s.plans[i].ID == plan.ID {
			s.plans[i] = plan
			return
		}
	}
	s.plans = append(s.plans, plan)
}

// RemovePlan drops a plan; its clients regroup under NoPlanKey on the
// next derived view
func (s *Store) RemovePlan(planID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.plans {
		if s.plans[i].ID == planID {
			s.plans = append(s.plans[:i], s.plans[i+1:]...)
			return
		}
	}
}

// Select marks a task as the detail selection and returns the new
// selection epoch. Pending comment and attachment lists are cleared;
// callers pass the epoch back with ApplyComments/ApplyAttachments.
func (s *Store) Select(taskID string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, t := range s.tasks {
		if t.ID == taskID {
			found = true
			break
		}
	}
	if !found {
		return 0, fmt.Errorf("task not found")
	}

	s.selectedTaskID = taskID
	s.selectionEpoch++
	s.comments = nil
	s.attachments = nil
	return s.selectionEpoch, nil
}

// ClearSelection drops the detail selection
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearSelectionLocked()
}

func (s *Store) clearSelectionLocked() {
	s.selectedTaskID = ""
	s.selectionEpoch++
	s.comments = nil
	s.attachments = nil
}

// SelectedTask returns the selected task ID and current epoch
func (s *Store) SelectedTask() (string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedTaskID, s.selectionEpoch
}

// ApplyComments installs a fetched comment list if the epoch still
// matches the live selection. A stale epoch means the member has moved
// on; the result is discarded and false returned.
func (s *Store) ApplyComments(epoch uint64, comments []models.Comment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.selectionEpoch || s.selectedTaskID == "" {
		return false
	}
	s.comments = append([]models.Comment(nil), comments...)
	return true
}

// ApplyAttachments installs a fetched attachment list under the same
// epoch rule as ApplyComments
func (s *Store) ApplyAttachments(epoch uint64, attachments []models.Attachment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.selectionEpoch || s.selectedTaskID == "" {
		return false
	}
	s.attachments = append([]models.Attachment(nil), attachments...)
	return true
}

// AppendComment adds a comment to the open detail view when it belongs
// to the selected task
func (s *Store) AppendComment(comment models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedTaskID == comment.TaskID {
		s.comments = append(s.comments, comment)
	}
}

// AppendAttachment adds an attachment to the open detail view when it
// belongs to the selected task
func (s *Store) AppendAttachment(attachment models.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedTaskID == attachment.TaskID {
		s.attachments = append(s.attachments, attachment)
	}
}

// RemoveAttachment drops an attachment from the open detail view
func (s *Store) RemoveAttachment(attachmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.attachments {
		if s.attachments[i].ID == attachmentID {
			s.attachments = append(s.attachments[:i], s.attachments[i+1:]...)
			return
		}
	}
}

// View is the derived dashboard state handed to callers
type View struct {
	OrganizationID string                     `json:"organization_id"`
	Statuses       []models.Status            `json:"statuses"`
	Columns        map[string][]models.Task   `json:"columns"`
	Plans          []models.Plan              `json:"plans"`
	ClientGroups   map[string][]models.Client `json:"client_groups"`
	Filters        Filters                    `json:"filters"`
	ActiveCount    int                        `json:"active_count"`
	ArchivedCount  int                        `json:"archived_count"`
	SelectedTaskID string                     `json:"selected_task_id,omitempty"`
	Comments       []models.Comment           `json:"comments,omitempty"`
	Attachments    []models.Attachment        `json:"attachments,omitempty"`
	Drag           DragState                  `json:"drag"`
}

// View derives the full dashboard state: archived tasks are excluded,
// the filters applied, and the survivors grouped into status columns
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active, archived := 0, 0
	for _, t := range s.tasks {
		if t.IsArchived {
			archived++
		} else {
			active++
		}
	}

	visible := FilterTasks(s.tasks, s.filters)

	return View{
		OrganizationID: s.orgID,
		Statuses:       append([]models.Status(nil), s.statuses...),
		Columns:        GroupByStatus(visible, s.statuses),
		Plans:          append([]models.Plan(nil), s.plans...),
		ClientGroups:   GroupClientsByPlan(s.clients, s.plans),
		Filters:        s.filters,
		ActiveCount:    active,
		ArchivedCount:  archived,
		SelectedTaskID: s.selectedTaskID,
		Comments:       append([]models.Comment(nil), s.comments...),
		Attachments:    append([]models.Attachment(nil), s.attachments...),
		Drag:           s.drag,
	}
}

// ArchivedTasks returns the archived tasks, newest first
func (s *Store) ArchivedTasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Task
	for _, t := range s.tasks {
		if t.IsArchived {
			out = append(out, t)
		}
	}
	return out
}
