package board

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

// countingMover records move calls and returns the moved task
type countingMover struct {
	calls int
	err   error
}

func (m *countingMover) MoveTask(taskID, statusID string) (*models.Task, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &models.Task{ID: taskID, StatusID: statusID}, nil
}

// countingClientMover does the same for client moves
type countingClientMover struct {
	calls int
	err   error
}

func (m *countingClientMover) MoveClient(clientID string, planID *string) (*models.Client, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &models.Client{ID: clientID, Name: "Acme", PlanID: planID}, nil
}

func TestDrag_FullGesture(t *testing.T) {
	s := loadedStore()
	mover := &countingMover{}

	require.NoError(t, s.StartDrag("t1"))
	assert.Equal(t, DragDragging, s.View().Drag.Phase)
	assert.Equal(t, DragTask, s.View().Drag.Kind)

	require.NoError(t, s.HoverTarget("s2"))
	assert.Equal(t, DragHovering, s.View().Drag.Phase)
	assert.Equal(t, "s2", s.View().Drag.HoverTargetID)

	moved, err := s.Drop(mover)
	require.NoError(t, err)
	assert.Equal(t, 1, mover.calls)
	assert.Equal(t, "s2", moved.StatusID)

	// gesture cleared and the stored task updated
	assert.Equal(t, DragState{}, s.View().Drag)
	task, found := s.Task("t1")
	require.True(t, found)
	assert.Equal(t, "s2", task.StatusID)
}

func TestDrag_DropOnSameColumnIsNoOp(t *testing.T) {
	s := loadedStore()
	mover := &countingMover{}

	require.NoError(t, s.StartDrag("t1"))
	require.NoError(t, s.HoverTarget("s1"))

	moved, err := s.Drop(mover)
	require.NoError(t, err)
	assert.Equal(t, 0, mover.calls)
	assert.Equal(t, "s1", moved.StatusID)
	assert.Equal(t, DragState{}, s.View().Drag)
}

func TestDrag_FailedMoveStillClearsGesture(t *testing.T) {
	s := loadedStore()
	mover := &countingMover{err: errors.New("backend down")}

	require.NoError(t, s.StartDrag("t1"))
	require.NoError(t, s.HoverTarget("s2"))

	_, err := s.Drop(mover)
	require.Error(t, err)

	assert.Equal(t, DragState{}, s.View().Drag)

	// the stored task keeps its original column
	task, _ := s.Task("t1")
	assert.Equal(t, "s1", task.StatusID)
}

func TestDrag_DropWithoutHoverFails(t *testing.T) {
	s := loadedStore()
	mover := &countingMover{}

	require.NoError(t, s.StartDrag("t1"))

	_, err := s.Drop(mover)
	assert.Error(t, err)
	assert.Equal(t, 0, mover.calls)
	assert.Equal(t, DragState{}, s.View().Drag)
}

func TestDrag_ArchivedTaskCannotBeDragged(t *testing.T) {
	s := loadedStore()

	err := s.StartDrag("t3")
	assert.Error(t, err)
	assert.Equal(t, DragState{}, s.View().Drag)
}

func TestDrag_HoverRequiresActiveGesture(t *testing.T) {
	s := loadedStore()

	assert.Error(t, s.HoverTarget("s2"))
}

func TestDrag_HoverUnknownStatus(t *testing.T) {
	s := loadedStore()

	require.NoError(t, s.StartDrag("t1"))
	assert.Error(t, s.HoverTarget("nope"))
}

func TestDrag_LeaveKeepsGestureAlive(t *testing.T) {
	s := loadedStore()

	require.NoError(t, s.StartDrag("t1"))
	require.NoError(t, s.HoverTarget("s2"))

	s.LeaveTarget()

	drag := s.View().Drag
	assert.Equal(t, DragDragging, drag.Phase)
	assert.Empty(t, drag.HoverTargetID)
	assert.Equal(t, "t1", drag.ItemID)
}

func TestDrag_CancelClearsGesture(t *testing.T) {
	s := loadedStore()

	require.NoError(t, s.StartDrag("t1"))
	s.CancelDrag()

	assert.Equal(t, DragState{}, s.View().Drag)
}

func TestDrag_StartReplacesInFlightGesture(t *testing.T) {
	s := loadedStore()

	require.NoError(t, s.StartDrag("t1"))
	require.NoError(t, s.HoverTarget("s2"))
	require.NoError(t, s.StartDrag("t2"))

	drag := s.View().Drag
	assert.Equal(t, DragDragging, drag.Phase)
	assert.Equal(t, "t2", drag.ItemID)
	assert.Empty(t, drag.HoverTargetID)
}

func TestClientDrag_FullGesture(t *testing.T) {
	s := loadedStore()
	mover := &countingClientMover{}

	require.NoError(t, s.StartClientDrag("c1"))
	assert.Equal(t, DragClient, s.View().Drag.Kind)

	require.NoError(t, s.HoverTarget("p1"))

	moved, err := s.DropClient(mover)
	require.NoError(t, err)
	assert.Equal(t, 1, mover.calls)
	require.NotNil(t, moved.PlanID)
	assert.Equal(t, "p1", *moved.PlanID)

	// the client landed in the plan's folder
	assert.Equal(t, DragState{}, s.View().Drag)
	grouped := s.View().ClientGroups
	require.Len(t, grouped["p1"], 1)
	assert.Equal(t, "c1", grouped["p1"][0].ID)
}

func TestClientDrag_DropOnSamePlanIsNoOp(t *testing.T) {
	s := loadedStore()
	mover := &countingClientMover{}

	// c1 starts unassigned, so the no-plan folder is its own bucket
	require.NoError(t, s.StartClientDrag("c1"))
	require.NoError(t, s.HoverTarget(NoPlanKey))

	moved, err := s.DropClient(mover)
	require.NoError(t, err)
	assert.Equal(t, 0, mover.calls)
	assert.Nil(t, moved.PlanID)
	assert.Equal(t, DragState{}, s.View().Drag)
}

func TestClientDrag_HoverUnknownPlan(t *testing.T) {
	s := loadedStore()

	require.NoError(t, s.StartClientDrag("c1"))
	assert.Error(t, s.HoverTarget("nope"))
	// a task's status column is not a valid client target either
	assert.Error(t, s.HoverTarget("s1"))
}

func TestClientDrag_FailedMoveStillClearsGesture(t *testing.T) {
	s := loadedStore()
	mover := &countingClientMover{err: errors.New("backend down")}

	require.NoError(t, s.StartClientDrag("c1"))
	require.NoError(t, s.HoverTarget("p1"))

	_, err := s.DropClient(mover)
	require.Error(t, err)
	assert.Equal(t, DragState{}, s.View().Drag)
}

func TestClientDrag_DropRejectsTaskGesture(t *testing.T) {
	s := loadedStore()

	require.NoError(t, s.StartDrag("t1"))
	require.NoError(t, s.HoverTarget("s2"))

	_, err := s.DropClient(&countingClientMover{})
	assert.Error(t, err)
	assert.Equal(t, DragState{}, s.View().Drag)
}

func TestDrag_UnknownClientCannotBeDragged(t *testing.T) {
	s := loadedStore()

	assert.Error(t, s.StartClientDrag("nope"))
	assert.Equal(t, DragState{}, s.View().Drag)
}

func TestMoverFunc(t *testing.T) {
	called := false
	fn := MoverFunc(func(taskID, statusID string) (*models.Task, error) {
		called = true
		return &models.Task{ID: taskID, StatusID: statusID}, nil
	})

	moved, err := fn.MoveTask("t1", "s2")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "s2", moved.StatusID)
}

func TestClientMoverFunc(t *testing.T) {
	fn := ClientMoverFunc(func(clientID string, planID *string) (*models.Client, error) {
		return &models.Client{ID: clientID, PlanID: planID}, nil
	})

	planID := "p1"
	moved, err := fn.MoveClient("c1", &planID)
	require.NoError(t, err)
	require.NotNil(t, moved.PlanID)
	assert.Equal(t, "p1", *moved.PlanID)
}
