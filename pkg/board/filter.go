// Package board holds the dashboard view model: pure grouping and
// filtering over tasks and clients, a per-organization state store, and
// the drag-and-drop state machine for moving tasks between status columns.
package board

import (
	"strings"

	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

// NoPlanKey is the synthetic bucket for clients without an assigned plan
const NoPlanKey = "no-plan"

// Filters narrows the visible task set. All populated criteria must
// match. The zero value shows the active board: no search, all clients,
// all types, archived hidden.
type Filters struct {
	Search       string          `json:"search,omitempty"`
	ClientID     string          `json:"client_id,omitempty"`
	TaskType     models.TaskType `json:"task_type,omitempty"`
	ShowArchived bool            `json:"show_archived,omitempty"`
}

// FilterTasks returns the tasks matching every populated criterion,
// preserving input order. The archived flag must equal ShowArchived, so
// the default filters yield the input minus archived tasks. The search
// term matches case-insensitively against the title.
func FilterTasks(tasks []models.Task, f Filters) []models.Task {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var out []models.Task
	for _, task := range tasks {
		if task.IsArchived != f.ShowArchived {
			continue
		}
		if search != "" && !matchesSearch(task, search) {
			continue
		}
		if f.ClientID != "" {
			if task.ClientID == nil || *task.ClientID != f.ClientID {
				continue
			}
		}
		if f.TaskType != "" && task.Type != f.TaskType {
			continue
		}
		out = append(out, task)
	}
	return out
}

func matchesSearch(task models.Task, search string) bool {
	return strings.Contains(strings.ToLower(task.Title), search)
}

// GroupByStatus buckets tasks by status column. Every status gets a
// bucket, empty columns included, and tasks keep their input order.
// Tasks pointing at an unknown status are dropped.
func GroupByStatus(tasks []models.Task, statuses []models.Status) map[string][]models.Task {
	grouped := make(map[string][]models.Task, len(statuses))
	for _, status := range statuses {
		grouped[status.ID] = []models.Task{}
	}
	for _, task := range tasks {
		if _, ok := grouped[task.StatusID]; ok {
			grouped[task.StatusID] = append(grouped[task.StatusID], task)
		}
	}
	return grouped
}

// GroupClientsByPlan buckets clients by their plan ID. Clients without a
// plan, or whose plan is not in the given list, land under NoPlanKey.
// Input order is preserved within each bucket.
func GroupClientsByPlan(clients []models.Client, plans []models.Plan) map[string][]models.Client {
	known := make(map[string]bool, len(plans))
	grouped := make(map[string][]models.Client, len(plans)+1)
	for _, plan := range plans {
		known[plan.ID] = true
		grouped[plan.ID] = []models.Client{}
	}
	grouped[NoPlanKey] = []models.Client{}

	for _, client := range clients {
		key := NoPlanKey
		if client.PlanID != nil && known[*client.PlanID] {
			key = *client.PlanID
		}
		grouped[key] = append(grouped[key], client)
	}
	return grouped
}

// DefaultStatus resolves the column new tasks land in: the flagged
// default within the beginning group, else any beginning-group status,
// else the first column
func DefaultStatus(statuses []models.Status) (models.Status, bool) {
	for _, status := range statuses {
		if status.IsDefault && status.Group == models.GroupBeginning {
			return status, true
		}
	}
	for _, status := range statuses {
		if status.Group == models.GroupBeginning {
			return status, true
		}
	}
	if len(statuses) > 0 {
		return statuses[0], true
	}
	return models.Status{}, false
}
