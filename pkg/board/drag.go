package board

import (
	"fmt"

	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

// DragPhase is the stage of an in-flight drag gesture
type DragPhase string

const (
	DragIdle     DragPhase = "idle"
	DragDragging DragPhase = "dragging"
	DragHovering DragPhase = "hovering"
)

// DragKind is the payload being dragged: a task onto a status column, or
// a client onto a plan folder
type DragKind string

const (
	DragTask   DragKind = "task"
	DragClient DragKind = "client"
)

// DragState is the serializable drag gesture state
type DragState struct {
	Phase         DragPhase `json:"phase"`
	Kind          DragKind  `json:"kind,omitempty"`
	ItemID        string    `json:"item_id,omitempty"`
	HoverTargetID string    `json:"hover_target_id,omitempty"`
}

// Phase normalization: the zero value reads as idle
func (d DragState) phase() DragPhase {
	if d.Phase == "" {
		return DragIdle
	}
	return d.Phase
}

// Mover persists a task's move to a new status column and returns the
// updated task. The store is the single writer of local state, so the
// mover only talks to the backend.
type Mover interface {
	MoveTask(taskID, statusID string) (*models.Task, error)
}

// MoverFunc adapts a function to the Mover interface
type MoverFunc func(taskID, statusID string) (*models.Task, error)

func (f MoverFunc) MoveTask(taskID, statusID string) (*models.Task, error) {
	return f(taskID, statusID)
}

// ClientMover persists a client's move to another plan folder. A nil
// planID drops the client into the unassigned bucket.
type ClientMover interface {
	MoveClient(clientID string, planID *string) (*models.Client, error)
}

// ClientMoverFunc adapts a function to the ClientMover interface
type ClientMoverFunc func(clientID string, planID *string) (*models.Client, error)

func (f ClientMoverFunc) MoveClient(clientID string, planID *string) (*models.Client, error) {
	return f(clientID, planID)
}

// StartDrag begins a drag gesture on a task. A gesture already in
// flight is replaced.
func (s *Store) StartDrag(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.ID == taskID {
			if t.IsArchived {
				return fmt.Errorf("cannot drag an archived task")
			}
			s.drag = DragState{Phase: DragDragging, Kind: DragTask, ItemID: taskID}
			return nil
		}
	}
	return fmt.Errorf("task not found")
}

// StartClientDrag begins a drag gesture on a client
func (s *Store) StartClientDrag(clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if c.ID == clientID {
			s.drag = DragState{Phase: DragDragging, Kind: DragClient, ItemID: clientID}
			return nil
		}
	}
	return fmt.Errorf("client not found")
}

// HoverTarget marks a drop target: a status column for a task drag, a
// plan folder (or NoPlanKey) for a client drag
func (s *Store) HoverTarget(targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.phase() == DragIdle {
		return fmt.Errorf("no drag in progress")
	}

	if !s.validTargetLocked(targetID) {
		if s.drag.Kind == DragClient {
			return fmt.Errorf("plan not found")
		}
		return fmt.Errorf("status not found")
	}

	s.drag.Phase = DragHovering
	s.drag.HoverTargetID = targetID
	return nil
}

func (s *Store) validTargetLocked(targetID string) bool {
	switch s.drag.Kind {
	case DragClient:
		if targetID == NoPlanKey {
			return true
		}
		for _, plan := range s.plans {
			if plan.ID == targetID {
				return true
			}
		}
	default:
		for _, status := range s.statuses {
			if status.ID == targetID {
				return true
			}
		}
	}
	return false
}

// LeaveTarget clears the hover target but keeps the gesture alive
func (s *Store) LeaveTarget() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.phase() == DragHovering {
		s.drag.Phase = DragDragging
		s.drag.HoverTargetID = ""
	}
}

// CancelDrag abandons the gesture without touching any entity
func (s *Store) CancelDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = DragState{}
}

// Drop completes a task gesture over the hovered column. Dropping on the
// task's current column is a no-op. Otherwise the mover persists the
// move and the returned task replaces the stored one. The gesture is
// cleared on every path, success or failure, so a failed move never
// leaves a stuck drag.
func (s *Store) Drop(mover Mover) (*models.Task, error) {
	s.mu.Lock()

	drag := s.drag
	s.drag = DragState{}

	if drag.phase() != DragHovering || drag.Kind != DragTask {
		s.mu.Unlock()
		return nil, fmt.Errorf("no drop target")
	}

	var current *models.Task
	for i := range s.tasks {
		if s.tasks[i].ID == drag.ItemID {
			t := s.tasks[i]
			current = &t
			break
		}
	}
	if current == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("task not found")
	}

	if current.StatusID == drag.HoverTargetID {
		// same column, nothing to persist
		s.mu.Unlock()
		return current, nil
	}

	// release the lock for the backend call
	s.mu.Unlock()

	moved, err := mover.MoveTask(drag.ItemID, drag.HoverTargetID)
	if err != nil {
		return nil, fmt.Errorf("failed to move task: %w", err)
	}

	s.ReplaceTask(*moved)
	return moved, nil
}

// DropClient completes a client gesture over the hovered plan folder,
// under the same rules as Drop. NoPlanKey drops into the unassigned
// bucket.
func (s *Store) DropClient(mover ClientMover) (*models.Client, error) {
	s.mu.Lock()

	drag := s.drag
	s.drag = DragState{}

	if drag.phase() != DragHovering || drag.Kind != DragClient {
		s.mu.Unlock()
		return nil, fmt.Errorf("no drop target")
	}

	var current *models.Client
	for i := range s.clients {
		if s.clients[i].ID == drag.ItemID {
			c := s.clients[i]
			current = &c
			break
		}
	}
	if current == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("client not found")
	}

	var target *string
	if drag.HoverTargetID != NoPlanKey {
		id := drag.HoverTargetID
		target = &id
	}

	samePlan := (current.PlanID == nil && target == nil) ||
		(current.PlanID != nil && target != nil && *current.PlanID == *target)
	if samePlan {
		s.mu.Unlock()
		return current, nil
	}

	s.mu.Unlock()

	moved, err := mover.MoveClient(drag.ItemID, target)
	if err != nil {
		return nil, fmt.Errorf("failed to move client: %w", err)
	}

	s.UpsertClient(*moved)
	return moved, nil
}
