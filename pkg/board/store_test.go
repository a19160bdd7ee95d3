package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

func loadedStore() *Store {
	s := NewStore("org-1")
	s.Load(
		[]models.Task{
			{ID: "t1", StatusID: "s1", Title: "Newest"},
			{ID: "t2", StatusID: "s2", Title: "Older"},
			{ID: "t3", StatusID: "s1", Title: "Oldest", IsArchived: true},
		},
		[]models.Client{{ID: "c1", Name: "Acme"}},
		[]models.Status{{ID: "s1", Position: 0}, {ID: "s2", Position: 1}},
		[]models.Plan{{ID: "p1"}},
	)
	return s
}

func TestStore_ViewCountsAndColumns(t *testing.T) {
	s := loadedStore()

	view := s.View()
	assert.Equal(t, "org-1", view.OrganizationID)
	assert.Equal(t, 2, view.ActiveCount)
	assert.Equal(t, 1, view.ArchivedCount)

	// archived t3 is hidden by the default filters
	require.Len(t, view.Columns["s1"], 1)
	assert.Equal(t, "t1", view.Columns["s1"][0].ID)
	require.Len(t, view.Columns["s2"], 1)
}

func TestStore_FiltersDoNotChangeCounts(t *testing.T) {
	s := loadedStore()
	s.SetFilters(Filters{Search: "no such task"})

	view := s.View()
	assert.Equal(t, 2, view.ActiveCount)
	assert.Equal(t, 1, view.ArchivedCount)
	assert.Empty(t, view.Columns["s1"])
	assert.Empty(t, view.Columns["s2"])
}

func TestStore_PrependTaskShowsFirstInColumn(t *testing.T) {
	s := loadedStore()
	s.PrependTask(models.Task{ID: "t4", StatusID: "s1", Title: "Brand new"})

	view := s.View()
	require.Len(t, view.Columns["s1"], 2)
	assert.Equal(t, "t4", view.Columns["s1"][0].ID)
	assert.Equal(t, "t1", view.Columns["s1"][1].ID)
}

func TestStore_SelectUnknownTask(t *testing.T) {
	s := loadedStore()

	_, err := s.Select("nope")
	assert.Error(t, err)
}

func TestStore_StaleEpochResultsAreDiscarded(t *testing.T) {
	s := loadedStore()

	firstEpoch, err := s.Select("t1")
	require.NoError(t, err)

	// selection moves on before the first fetch lands
	secondEpoch, err := s.Select("t2")
	require.NoError(t, err)
	require.NotEqual(t, firstEpoch, secondEpoch)

	stale := []models.Comment{{ID: "cm1", TaskID: "t1", Content: "late reply"}}
	assert.False(t, s.ApplyComments(firstEpoch, stale))
	assert.False(t, s.ApplyAttachments(firstEpoch, []models.Attachment{{ID: "a1", TaskID: "t1"}}))

	fresh := []models.Comment{{ID: "cm2", TaskID: "t2", Content: "current"}}
	assert.True(t, s.ApplyComments(secondEpoch, fresh))

	view := s.View()
	assert.Equal(t, "t2", view.SelectedTaskID)
	require.Len(t, view.Comments, 1)
	assert.Equal(t, "cm2", view.Comments[0].ID)
	assert.Empty(t, view.Attachments)
}

func TestStore_ClearSelectionInvalidatesEpoch(t *testing.T) {
	s := loadedStore()

	epoch, err := s.Select("t1")
	require.NoError(t, err)

	s.ClearSelection()

	assert.False(t, s.ApplyComments(epoch, []models.Comment{{ID: "cm1", TaskID: "t1"}}))

	selected, _ := s.SelectedTask()
	assert.Empty(t, selected)
}

func TestStore_AppendCommentOnlyForSelectedTask(t *testing.T) {
	s := loadedStore()

	epoch, err := s.Select("t1")
	require.NoError(t, err)
	require.True(t, s.ApplyComments(epoch, nil))

	s.AppendComment(models.Comment{ID: "cm1", TaskID: "t1", Content: "on selected"})
	s.AppendComment(models.Comment{ID: "cm2", TaskID: "t2", Content: "other task"})

	view := s.View()
	require.Len(t, view.Comments, 1)
	assert.Equal(t, "cm1", view.Comments[0].ID)
}

func TestStore_RemoveTaskClearsSelection(t *testing.T) {
	s := loadedStore()

	_, err := s.Select("t1")
	require.NoError(t, err)

	s.RemoveTask("t1")

	selected, _ := s.SelectedTask()
	assert.Empty(t, selected)
	_, found := s.Task("t1")
	assert.False(t, found)
}

func TestStore_ArchivingSelectedTaskClosesDetail(t *testing.T) {
	s := loadedStore()

	_, err := s.Select("t1")
	require.NoError(t, err)

	s.ReplaceTask(models.Task{ID: "t1", StatusID: "s1", Title: "Newest", IsArchived: true})

	selected, _ := s.SelectedTask()
	assert.Empty(t, selected)
}

func TestStore_LoadResetsSessionState(t *testing.T) {
	s := loadedStore()
	s.SetFilters(Filters{Search: "x"})
	_, err := s.Select("t1")
	require.NoError(t, err)
	require.NoError(t, s.StartDrag("t2"))

	s.Load([]models.Task{{ID: "t9", StatusID: "s1"}}, nil, []models.Status{{ID: "s1"}}, nil)

	view := s.View()
	assert.Equal(t, Filters{}, view.Filters)
	assert.Empty(t, view.SelectedTaskID)
	assert.Equal(t, DragState{}, view.Drag)
	assert.Equal(t, 1, view.ActiveCount)
}

func TestStore_UpsertStatusKeepsPositionOrder(t *testing.T) {
	s := loadedStore()
	s.UpsertStatus(models.Status{ID: "s1b", Position: 1})

	view := s.View()
	require.Len(t, view.Statuses, 3)
	assert.Equal(t, "s1", view.Statuses[0].ID)
	assert.Equal(t, "s1b", view.Statuses[1].ID)
	assert.Equal(t, "s2", view.Statuses[2].ID)
}

func TestStore_RemovePlanRegroupsClients(t *testing.T) {
	s := NewStore("org-1")
	s.Load(nil,
		[]models.Client{{ID: "c1", PlanID: strPtr("p1")}},
		nil,
		[]models.Plan{{ID: "p1"}},
	)

	s.RemovePlan("p1")

	view := s.View()
	require.Len(t, view.ClientGroups[NoPlanKey], 1)
	assert.Equal(t, "c1", view.ClientGroups[NoPlanKey][0].ID)
}
