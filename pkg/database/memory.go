package database

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

// MemoryDatabase is an in-memory implementation used for development and tests.
// All maps are guarded by a single mutex; reads return copies so callers can
// mutate results without racing the store.
type MemoryDatabase struct {
	mu sync.RWMutex

	users         map[string]models.User
	organizations map[string]models.Organization
	statuses      map[string]models.Status
	plans         map[string]models.Plan
	clients       map[string]models.Client
	tasks         map[string]models.Task
	comments      map[string]models.Comment
	attachments   map[string]models.Attachment

	// insertion order per collection, used to keep deterministic listings
	taskOrder    []string
	commentOrder []string
}

// NewMemoryDatabase creates an empty in-memory database
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		users:         make(map[string]models.User),
		organizations: make(map[string]models.Organization),
		statuses:      make(map[string]models.Status),
		plans:         make(map[string]models.Plan),
		clients:       make(map[string]models.Client),
		tasks:         make(map[string]models.Task),
		comments:      make(map[string]models.Comment),
		attachments:   make(map[string]models.Attachment),
	}
}

// CreateUser stores a new user, assigning an ID when missing
func (db *MemoryDatabase) CreateUser(user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	for _, u := range db.users {
		if u.Email == user.Email {
			return fmt.Errorf("user with email %s already exists", user.Email)
		}
	}

	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	db.users[user.ID] = *user
	return nil
}

// GetUserByEmail finds a user by email
func (db *MemoryDatabase) GetUserByEmail(email string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, user := range db.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

// GetUserByID finds a user by ID
func (db *MemoryDatabase) GetUserByID(id string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	user, ok := db.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	u := user
	return &u, nil
}

// UpdateUser replaces a stored user
func (db *MemoryDatabase) UpdateUser(user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[user.ID]; !ok {
		return fmt.Errorf("user not found")
	}
	user.UpdatedAt = time.Now()
	db.users[user.ID] = *user
	return nil
}

// DeleteUser removes a user
func (db *MemoryDatabase) DeleteUser(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[id]; !ok {
		return fmt.Errorf("user not found")
	}
	delete(db.users, id)
	return nil
}

// ListUsersByOrganization lists an org's members ordered by creation time
func (db *MemoryDatabase) ListUsersByOrganization(orgID string) ([]models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []models.User
	for _, u := range db.users {
		if u.OrganizationID == orgID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CreateOrganization stores a new organization
func (db *MemoryDatabase) CreateOrganization(org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt
	db.organizations[org.ID] = *org
	return nil
}

// GetOrganization finds an organization by ID
func (db *MemoryDatabase) GetOrganization(orgID string) (*models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	org, ok := db.organizations[orgID]
	if !ok {
		return nil, fmt.Errorf("organization not found")
	}
	o := org
	return &o, nil
}

// GetOrganizationBySlug finds an organization by its slug
func (db *MemoryDatabase) GetOrganizationBySlug(slug string) (*models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, org := range db.organizations {
		if org.Slug == slug {
			o := org
			return &o, nil
		}
	}
	return nil, fmt.Errorf("organization not found")
}

// UpdateOrganization replaces a stored organization
func (db *MemoryDatabase) UpdateOrganization(org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.organizations[org.ID]; !ok {
		return fmt.Errorf("organization not found")
	}
	org.UpdatedAt = time.Now()
	db.organizations[org.ID] = *org
	return nil
}

// CreateStatus stores a new status column
func (db *MemoryDatabase) CreateStatus(status *models.Status) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if status.ID == "" {
		status.ID = uuid.New().String()
	}
	status.CreatedAt = time.Now()
	db.statuses[status.ID] = *status
	return nil
}

// ListStatusesByOrganization lists statuses for an org ordered by position
func (db *MemoryDatabase) ListStatusesByOrganization(orgID string) ([]models.Status, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []models.Status
	for _, s := range db.statuses {
		if s.OrganizationID == orgID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// GetStatus finds a status by ID
func (db *MemoryDatabase) GetStatus(id string) (*models.Status, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	status, ok := db.statuses[id]
	if !ok {
		return nil, fmt.Errorf("status not found")
	}
	s := status
	return &s, nil
}

// UpdateStatus replaces a stored status
func (db *MemoryDatabase) UpdateStatus(status *models.Status) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.statuses[status.ID]; !ok {
		return fmt.Errorf("status not found")
	}
	db.statuses[status.ID] = *status
	return nil
}

// DeleteStatus removes a status
func (db *MemoryDatabase) DeleteStatus(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.statuses[id]; !ok {
		return fmt.Errorf("status not found")
	}
	delete(db.statuses, id)
	return nil
}

// CreatePlan stores a new plan
func (db *MemoryDatabase) CreatePlan(plan *models.Plan) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	plan.CreatedAt = time.Now()
	plan.UpdatedAt = plan.CreatedAt
	db.plans[plan.ID] = *plan
	return nil
}

// ListPlansByOrganization lists plans for an org ordered by price
func (db *MemoryDatabase) ListPlansByOrganization(orgID string) ([]models.Plan, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []models.Plan
	for _, p := range db.plans {
		if p.OrganizationID == orgID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	return out, nil
}

// GetPlan finds a plan by ID
func (db *MemoryDatabase) GetPlan(id string) (*models.Plan, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	plan, ok := db.plans[id]
	if !ok {
		return nil, fmt.Errorf("plan not found")
	}
	p := plan
	return &p, nil
}

// UpdatePlan replaces a stored plan
func (db *MemoryDatabase) UpdatePlan(plan *models.Plan) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.plans[plan.ID]; !ok {
		return fmt.Errorf("plan not found")
	}
	plan.UpdatedAt = time.Now()
	db.plans[plan.ID] = *plan
	return nil
}

// DeletePlan removes a plan and detaches clients that referenced it
func (db *MemoryDatabase) DeletePlan(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.plans[id]; !ok {
		return fmt.Errorf("plan not found")
	}
	delete(db.plans, id)
	for cid, c := range db.clients {
		if c.PlanID != nil && *c.PlanID == id {
			c.PlanID = nil
			db.clients[cid] = c
		}
	}
	return nil
}

// CreateClient stores a new client
func (db *MemoryDatabase) CreateClient(client *models.Client) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	client.CreatedAt = time.Now()
	client.UpdatedAt = client.CreatedAt
	db.clients[client.ID] = *client
	return nil
}

// ListClientsByOrganization lists clients for an org ordered by creation time
func (db *MemoryDatabase) ListClientsByOrganization(orgID string) ([]models.Client, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []models.Client
	for _, c := range db.clients {
		if c.OrganizationID == orgID {
			out = append(out, db.joinClient(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// GetClient finds a client by ID
func (db *MemoryDatabase) GetClient(id string) (*models.Client, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	client, ok := db.clients[id]
	if !ok {
		return nil, fmt.Errorf("client not found")
	}
	c := db.joinClient(client)
	return &c, nil
}

// UpdateClient replaces a stored client
func (db *MemoryDatabase) UpdateClient(client *models.Client) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.clients[client.ID]; !ok {
		return fmt.Errorf("client not found")
	}
	client.UpdatedAt = time.Now()
	stored := *client
	stored.Plan = nil
	db.clients[client.ID] = stored
	return nil
}

// UpdateClientPartial applies a patch map to a stored client
func (db *MemoryDatabase) UpdateClientPartial(clientID string, patch map[string]interface{}) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	client, ok := db.clients[clientID]
	if !ok {
		return fmt.Errorf("client not found")
	}

	for key, value := range patch {
		switch key {
		case "name":
			if v, ok := value.(string); ok {
				client.Name = v
			}
		case "slug":
			if v, ok := value.(string); ok {
				client.Slug = v
			}
		case "logo_url":
			if v, ok := value.(string); ok {
				client.LogoURL = v
			}
		case "plan_id":
			switch v := value.(type) {
			case string:
				planID := v
				client.PlanID = &planID
			case nil:
				client.PlanID = nil
			}
		case "is_active":
			if v, ok := value.(bool); ok {
				client.IsActive = v
			}
		}
	}

	client.UpdatedAt = time.Now()
	db.clients[clientID] = client
	return nil
}

// DeleteClient removes a client
func (db *MemoryDatabase) DeleteClient(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.clients[id]; !ok {
		return fmt.Errorf("client not found")
	}
	delete(db.clients, id)
	return nil
}

// CreateTask stores a new task
func (db *MemoryDatabase) CreateTask(task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	stored := *task
	stored.Client = nil
	stored.Status = nil
	stored.Assignee = nil
	db.tasks[task.ID] = stored
	db.taskOrder = append(db.taskOrder, task.ID)
	return nil
}

// ListTasksByOrganization lists tasks for an org, newest first, with joins
func (db *MemoryDatabase) ListTasksByOrganization(orgID string, includeArchived bool) ([]models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []models.Task
	// walk insertion order backwards so newer tasks come first
	for i := len(db.taskOrder) - 1; i >= 0; i-- {
		t, ok := db.tasks[db.taskOrder[i]]
		if !ok || t.OrganizationID != orgID {
			continue
		}
		if t.IsArchived && !includeArchived {
			continue
		}
		out = append(out, db.joinTask(t))
	}
	return out, nil
}

// GetTask finds a task by ID with joined client, status and assignee
func (db *MemoryDatabase) GetTask(id string) (*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	task, ok := db.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task not found")
	}
	t := db.joinTask(task)
	return &t, nil
}

// UpdateTask replaces a stored task
func (db *MemoryDatabase) UpdateTask(task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tasks[task.ID]; !ok {
		return fmt.Errorf("task not found")
	}
	task.UpdatedAt = time.Now()
	stored := *task
	stored.Client = nil
	stored.Status = nil
	stored.Assignee = nil
	db.tasks[task.ID] = stored
	return nil
}

// UpdateTaskPartial applies a patch map to a stored task
func (db *MemoryDatabase) UpdateTaskPartial(taskID string, patch map[string]interface{}) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	task, ok := db.tasks[taskID]
	if !ok {
		return fmt.Errorf("task not found")
	}

	for key, value := range patch {
		switch key {
		case "title":
			if v, ok := value.(string); ok {
				task.Title = v
			}
		case "description":
			if v, ok := value.(string); ok {
				task.Description = v
			}
		case "status_id":
			if v, ok := value.(string); ok {
				task.StatusID = v
			}
		case "client_id":
			switch v := value.(type) {
			case string:
				clientID := v
				task.ClientID = &clientID
			case nil:
				task.ClientID = nil
			}
		case "assigned_to":
			switch v := value.(type) {
			case string:
				userID := v
				task.AssignedTo = &userID
			case nil:
				task.AssignedTo = nil
			}
		case "priority":
			if v, ok := value.(string); ok {
				task.Priority = models.TaskPriority(v)
			}
		case "type":
			if v, ok := value.(string); ok {
				task.Type = models.TaskType(v)
			}
		case "service":
			if v, ok := value.(string); ok {
				task.Service = v
			}
		case "due_date":
			switch v := value.(type) {
			case time.Time:
				due := v
				task.DueDate = &due
			case *time.Time:
				task.DueDate = v
			case nil:
				task.DueDate = nil
			}
		case "is_archived":
			if v, ok := value.(bool); ok {
				task.IsArchived = v
			}
		}
	}

	task.UpdatedAt = time.Now()
	db.tasks[taskID] = task
	return nil
}

// DeleteTask removes a task and its comments and attachment rows
func (db *MemoryDatabase) DeleteTask(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tasks[id]; !ok {
		return fmt.Errorf("task not found")
	}
	delete(db.tasks, id)
	for cid, c := range db.comments {
		if c.TaskID == id {
			delete(db.comments, cid)
		}
	}
	for aid, a := range db.attachments {
		if a.TaskID == id {
			delete(db.attachments, aid)
		}
	}
	return nil
}

// CreateComment stores a new comment
func (db *MemoryDatabase) CreateComment(comment *models.Comment) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	if _, ok := db.tasks[comment.TaskID]; !ok {
		return fmt.Errorf("task not found")
	}
	comment.CreatedAt = time.Now()
	comment.UpdatedAt = comment.CreatedAt
	stored := *comment
	stored.Author = nil
	db.comments[comment.ID] = stored
	db.commentOrder = append(db.commentOrder, comment.ID)
	return nil
}

// ListCommentsByTask lists comments for a task ordered oldest first
func (db *MemoryDatabase) ListCommentsByTask(taskID string) ([]models.Comment, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []models.Comment
	for _, id := range db.commentOrder {
		c, ok := db.comments[id]
		if !ok || c.TaskID != taskID {
			continue
		}
		if c.AuthorID != nil {
			if author, ok := db.users[*c.AuthorID]; ok {
				a := author
				c.Author = &a
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// GetComment finds a comment by ID
func (db *MemoryDatabase) GetComment(id string) (*models.Comment, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	comment, ok := db.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment not found")
	}
	c := comment
	return &c, nil
}

// DeleteComment removes a comment
func (db *MemoryDatabase) DeleteComment(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.comments[id]; !ok {
		return fmt.Errorf("comment not found")
	}
	delete(db.comments, id)
	return nil
}

// CreateAttachment stores a new attachment row
func (db *MemoryDatabase) CreateAttachment(attachment *models.Attachment) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if attachment.ID == "" {
		attachment.ID = uuid.New().String()
	}
	if _, ok := db.tasks[attachment.TaskID]; !ok {
		return fmt.Errorf("task not found")
	}
	attachment.CreatedAt = time.Now()
	db.attachments[attachment.ID] = *attachment
	return nil
}

// ListAttachmentsByTask lists attachment rows for a task, newest first
func (db *MemoryDatabase) ListAttachmentsByTask(taskID string) ([]models.Attachment, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []models.Attachment
	for _, a := range db.attachments {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetAttachment finds an attachment row by ID
func (db *MemoryDatabase) GetAttachment(id string) (*models.Attachment, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	attachment, ok := db.attachments[id]
	if !ok {
		return nil, fmt.Errorf("attachment not found")
	}
	a := attachment
	return &a, nil
}

// DeleteAttachment removes an attachment row
func (db *MemoryDatabase) DeleteAttachment(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.attachments[id]; !ok {
		return fmt.Errorf("attachment not found")
	}
	delete(db.attachments, id)
	return nil
}

// HealthCheck always succeeds for the in-memory database
func (db *MemoryDatabase) HealthCheck() error {
	return nil
}

// Close is a no-op for the in-memory database
func (db *MemoryDatabase) Close() error {
	return nil
}

// joinClient attaches the referenced plan to a client copy.
// Caller must hold at least a read lock.
func (db *MemoryDatabase) joinClient(c models.Client) models.Client {
	if c.PlanID != nil {
		if plan, ok := db.plans[*c.PlanID]; ok {
			p := plan
			c.Plan = &p
		}
	}
	return c
}

// joinTask attaches referenced client, status and assignee to a task copy.
// Caller must hold at least a read lock.
func (db *MemoryDatabase) joinTask(t models.Task) models.Task {
	if t.ClientID != nil {
		if client, ok := db.clients[*t.ClientID]; ok {
			c := db.joinClient(client)
			t.Client = &c
		}
	}
	if status, ok := db.statuses[t.StatusID]; ok {
		s := status
		t.Status = &s
	}
	if t.AssignedTo != nil {
		if user, ok := db.users[*t.AssignedTo]; ok {
			u := user
			t.Assignee = &u
		}
	}
	return t
}
