package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

func seedOrg(t *testing.T, db *MemoryDatabase) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: "Test Agency", Slug: "test-agency"}
	require.NoError(t, db.CreateOrganization(org))
	return org
}

func TestMemoryDatabase_TasksNewestFirst(t *testing.T) {
	db := NewMemoryDatabase()
	org := seedOrg(t, db)

	first := &models.Task{OrganizationID: org.ID, Title: "first", StatusID: "s1"}
	second := &models.Task{OrganizationID: org.ID, Title: "second", StatusID: "s1"}
	require.NoError(t, db.CreateTask(first))
	require.NoError(t, db.CreateTask(second))

	tasks, err := db.ListTasksByOrganization(org.ID, false)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "second", tasks[0].Title)
	assert.Equal(t, "first", tasks[1].Title)
}

func TestMemoryDatabase_ListTasksArchivedFlag(t *testing.T) {
	db := NewMemoryDatabase()
	org := seedOrg(t, db)

	live := &models.Task{OrganizationID: org.ID, Title: "live", StatusID: "s1"}
	gone := &models.Task{OrganizationID: org.ID, Title: "gone", StatusID: "s1", IsArchived: true}
	require.NoError(t, db.CreateTask(live))
	require.NoError(t, db.CreateTask(gone))

	tasks, err := db.ListTasksByOrganization(org.ID, false)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "live", tasks[0].Title)

	tasks, err = db.ListTasksByOrganization(org.ID, true)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestMemoryDatabase_GetTaskJoinsRelations(t *testing.T) {
	db := NewMemoryDatabase()
	org := seedOrg(t, db)

	status := &models.Status{OrganizationID: org.ID, Name: "To do", Slug: "todo"}
	require.NoError(t, db.CreateStatus(status))
	client := &models.Client{OrganizationID: org.ID, Name: "Acme", Slug: "acme", IsActive: true}
	require.NoError(t, db.CreateClient(client))

	task := &models.Task{OrganizationID: org.ID, Title: "joined", StatusID: status.ID, ClientID: &client.ID}
	require.NoError(t, db.CreateTask(task))

	got, err := db.GetTask(task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Status)
	assert.Equal(t, "To do", got.Status.Name)
	require.NotNil(t, got.Client)
	assert.Equal(t, "Acme", got.Client.Name)
}

func TestMemoryDatabase_DeleteTaskCascades(t *testing.T) {
	db := NewMemoryDatabase()
	org := seedOrg(t, db)

	task := &models.Task{OrganizationID: org.ID, Title: "doomed", StatusID: "s1"}
	require.NoError(t, db.CreateTask(task))

	comment := &models.Comment{TaskID: task.ID, Content: "note"}
	require.NoError(t, db.CreateComment(comment))
	attachment := &models.Attachment{TaskID: task.ID, FileName: "f.txt", StoragePath: "p"}
	require.NoError(t, db.CreateAttachment(attachment))

	require.NoError(t, db.DeleteTask(task.ID))

	_, err := db.GetComment(comment.ID)
	assert.Error(t, err)
	_, err = db.GetAttachment(attachment.ID)
	assert.Error(t, err)

	comments, err := db.ListCommentsByTask(task.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestMemoryDatabase_DeletePlanDetachesClients(t *testing.T) {
	db := NewMemoryDatabase()
	org := seedOrg(t, db)

	plan := &models.Plan{OrganizationID: org.ID, Name: "Starter"}
	require.NoError(t, db.CreatePlan(plan))
	client := &models.Client{OrganizationID: org.ID, Name: "Acme", Slug: "acme", PlanID: &plan.ID, IsActive: true}
	require.NoError(t, db.CreateClient(client))

	require.NoError(t, db.DeletePlan(plan.ID))

	got, err := db.GetClient(client.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PlanID)
}

func TestMemoryDatabase_UpdateTaskPartial(t *testing.T) {
	db := NewMemoryDatabase()
	org := seedOrg(t, db)

	task := &models.Task{OrganizationID: org.ID, Title: "before", StatusID: "s1", Priority: models.PriorityLow}
	require.NoError(t, db.CreateTask(task))

	err := db.UpdateTaskPartial(task.ID, map[string]interface{}{
		"title":    "after",
		"priority": "high",
	})
	require.NoError(t, err)

	got, err := db.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	// untouched fields stay put
	assert.Equal(t, "s1", got.StatusID)
}

func TestMemoryDatabase_UserRoundTrip(t *testing.T) {
	db := NewMemoryDatabase()

	user := &models.User{Email: "fran@example.com", FullName: "Fran"}
	require.NoError(t, db.CreateUser(user))
	require.NotEmpty(t, user.ID)

	byEmail, err := db.GetUserByEmail("fran@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = db.GetUserByEmail("missing@example.com")
	assert.Error(t, err)

	// duplicate emails are rejected
	dup := &models.User{Email: "fran@example.com"}
	assert.Error(t, db.CreateUser(dup))
}
