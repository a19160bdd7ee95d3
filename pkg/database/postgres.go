package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

// PostgresDatabase is the direct PostgreSQL implementation
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase opens a PostgreSQL connection, trying several DSN
// variants to work around serverless networking quirks
func NewPostgresDatabase(dsn string) DatabaseInterface {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "prefer_simple_protocol=true"),
		addConnectionParams(dsn, "prefer_simple_protocol=true&connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&prefer_simple_protocol=true"),
		dsn, // raw DSN as a last resort
	}

	var db *sql.DB
	var err error

	for i, strategy := range strategies {
		db, err = sql.Open("postgres", strategy)
		if err != nil {
			fmt.Printf("Connection strategy %d failed to open: %v\n", i+1, err)
			continue
		}

		// Pool limits sized for serverless execution
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err = db.Ping(); err != nil {
			fmt.Printf("Connection strategy %d failed to ping: %v\n", i+1, err)
			db.Close()
			continue
		}

		return &PostgresDatabase{db: db}
	}

	panic(fmt.Sprintf("Failed to connect to PostgreSQL with all strategies. Last error: %v", err))
}

// addConnectionParams appends query parameters to a DSN
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + params
}

// CreateUser inserts a new user
func (db *PostgresDatabase) CreateUser(user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, full_name, avatar_url, organization_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := db.db.QueryRow(query, user.Email, user.Password, user.FullName, user.AvatarURL, user.OrganizationID, user.Role).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail fetches a user by email, including the password hash
func (db *PostgresDatabase) GetUserByEmail(email string) (*models.User, error) {
	query := `
		SELECT id, email, COALESCE(password_hash,''), COALESCE(full_name,''), COALESCE(avatar_url,''),
		       COALESCE(organization_id::text,''), COALESCE(role,'member'), created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var u models.User
	err := db.db.QueryRow(query, email).Scan(
		&u.ID, &u.Email, &u.Password, &u.FullName, &u.AvatarURL, &u.OrganizationID, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

// GetUserByID fetches a user by ID
func (db *PostgresDatabase) GetUserByID(id string) (*models.User, error) {
	query := `
		SELECT id, email, COALESCE(full_name,''), COALESCE(avatar_url,''),
		       COALESCE(organization_id::text,''), COALESCE(role,'member'), created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u models.User
	err := db.db.QueryRow(query, id).Scan(
		&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.OrganizationID, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// UpdateUser updates profile fields on a user
func (db *PostgresDatabase) UpdateUser(user *models.User) error {
	if user.ID == "" {
		return fmt.Errorf("user ID is required for update")
	}
	query := `
		UPDATE users
		SET full_name = $1,
		    avatar_url = $2,
		    organization_id = NULLIF($3, '')::uuid,
		    role = $4,
		    updated_at = NOW()
		WHERE id = $5
	`
	result, err := db.db.Exec(query, user.FullName, user.AvatarURL, user.OrganizationID, user.Role, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(result, "user")
}

// DeleteUser removes a user
func (db *PostgresDatabase) DeleteUser(id string) error {
	result, err := db.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRow(result, "user")
}

// ListUsersByOrganization lists an org's members ordered by creation time
func (db *PostgresDatabase) ListUsersByOrganization(orgID string) ([]models.User, error) {
	query := `
		SELECT id, email, COALESCE(full_name,''), COALESCE(avatar_url,''),
		       COALESCE(organization_id::text,''), COALESCE(role,'member'), created_at, updated_at
		FROM users
		WHERE organization_id = $1
		ORDER BY created_at ASC
	`
	rows, err := db.db.Query(query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(
			&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.OrganizationID, &u.Role, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateOrganization inserts a new organization
func (db *PostgresDatabase) CreateOrganization(org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, slug, logo_url, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := db.db.QueryRow(query, org.Name, org.Slug, org.LogoURL).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// GetOrganization fetches an organization by ID
func (db *PostgresDatabase) GetOrganization(orgID string) (*models.Organization, error) {
	return db.getOrganizationWhere("id = $1", orgID)
}

// GetOrganizationBySlug fetches an organization by slug
func (db *PostgresDatabase) GetOrganizationBySlug(slug string) (*models.Organization, error) {
	return db.getOrganizationWhere("slug = $1", slug)
}

func (db *PostgresDatabase) getOrganizationWhere(where string, arg interface{}) (*models.Organization, error) {
	query := `
		SELECT id, name, slug, COALESCE(logo_url,''), created_at, updated_at
		FROM organizations
		WHERE ` + where
	var org models.Organization
	err := db.db.QueryRow(query, arg).Scan(
		&org.ID, &org.Name, &org.Slug, &org.LogoURL, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("organization not found")
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

// UpdateOrganization updates the organization's display fields
func (db *PostgresDatabase) UpdateOrganization(org *models.Organization) error {
	query := `
		UPDATE organizations
		SET name = $1, slug = $2, logo_url = $3, updated_at = NOW()
		WHERE id = $4
	`
	result, err := db.db.Exec(query, org.Name, org.Slug, org.LogoURL, org.ID)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return requireRow(result, "organization")
}

// CreateStatus inserts a new status column
func (db *PostgresDatabase) CreateStatus(status *models.Status) error {
	query := `
		INSERT INTO statuses (organization_id, name, slug, icon, color, "group", is_default, in_task_limit, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`
	err := db.db.QueryRow(query,
		status.OrganizationID, status.Name, status.Slug, status.Icon, status.Color,
		status.Group, status.IsDefault, status.InTaskLimit, status.Position,
	).Scan(&status.ID, &status.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create status: %w", err)
	}
	return nil
}

// ListStatusesByOrganization lists an org's statuses ordered by position
func (db *PostgresDatabase) ListStatusesByOrganization(orgID string) ([]models.Status, error) {
	query := `
		SELECT id, organization_id, name, slug, COALESCE(icon,''), COALESCE(color,''),
		       "group", is_default, in_task_limit, position, created_at
		FROM statuses
		WHERE organization_id = $1
		ORDER BY position ASC
	`
	rows, err := db.db.Query(query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer rows.Close()

	var statuses []models.Status
	for rows.Next() {
		var s models.Status
		if err := rows.Scan(
			&s.ID, &s.OrganizationID, &s.Name, &s.Slug, &s.Icon, &s.Color,
			&s.Group, &s.IsDefault, &s.InTaskLimit, &s.Position, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// GetStatus fetches a status by ID
func (db *PostgresDatabase) GetStatus(id string) (*models.Status, error) {
	query := `
		SELECT id, organization_id, name, slug, COALESCE(icon,''), COALESCE(color,''),
		       "group", is_default, in_task_limit, position, created_at
		FROM statuses
		WHERE id = $1
	`
	var s models.Status
	err := db.db.QueryRow(query, id).Scan(
		&s.ID, &s.OrganizationID, &s.Name, &s.Slug, &s.Icon, &s.Color,
		&s.Group, &s.IsDefault, &s.InTaskLimit, &s.Position, &s.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("status not found")
		}
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &s, nil
}

// UpdateStatus updates a status column
func (db *PostgresDatabase) UpdateStatus(status *models.Status) error {
	query := `
		UPDATE statuses
		SET name = $1, slug = $2, icon = $3, color = $4, "group" = $5,
		    is_default = $6, in_task_limit = $7, position = $8
		WHERE id = $9
	`
	result, err := db.db.Exec(query,
		status.Name, status.Slug, status.Icon, status.Color, status.Group,
		status.IsDefault, status.InTaskLimit, status.Position, status.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return requireRow(result, "status")
}

// DeleteStatus removes a status
func (db *PostgresDatabase) DeleteStatus(id string) error {
	result, err := db.db.Exec(`DELETE FROM statuses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}
	return requireRow(result, "status")
}

// CreatePlan inserts a new plan; permissions are stored as JSONB
func (db *PostgresDatabase) CreatePlan(plan *models.Plan) error {
	permissions, err := json.Marshal(plan.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode plan permissions: %w", err)
	}
	query := `
		INSERT INTO plans (organization_id, name, description, price_cents, billing_period, task_limit, is_active, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err = db.db.QueryRow(query,
		plan.OrganizationID, plan.Name, plan.Description, plan.PriceCents,
		plan.BillingPeriod, plan.TaskLimit, plan.IsActive, permissions,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

// ListPlansByOrganization lists an org's plans ordered by price
func (db *PostgresDatabase) ListPlansByOrganization(orgID string) ([]models.Plan, error) {
	query := `
		SELECT id, organization_id, name, COALESCE(description,''), price_cents, billing_period,
		       task_limit, is_active, permissions, created_at, updated_at
		FROM plans
		WHERE organization_id = $1
		ORDER BY price_cents ASC
	`
	rows, err := db.db.Query(query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []models.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

// GetPlan fetches a plan by ID
func (db *PostgresDatabase) GetPlan(id string) (*models.Plan, error) {
	query := `
		SELECT id, organization_id, name, COALESCE(description,''), price_cents, billing_period,
		       task_limit, is_active, permissions, created_at, updated_at
		FROM plans
		WHERE id = $1
	`
	rows, err := db.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("plan not found")
	}
	return scanPlan(rows)
}

// scanPlan reads one plan row, decoding the permissions JSONB column
func scanPlan(rows *sql.Rows) (*models.Plan, error) {
	var p models.Plan
	var permissions []byte
	if err := rows.Scan(
		&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.PriceCents, &p.BillingPeriod,
		&p.TaskLimit, &p.IsActive, &permissions, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan plan: %w", err)
	}
	if len(permissions) > 0 {
		if err := json.Unmarshal(permissions, &p.Permissions); err != nil {
			return nil, fmt.Errorf("failed to decode plan permissions: %w", err)
		}
	}
	return &p, nil
}

// UpdatePlan updates a plan
func (db *PostgresDatabase) UpdatePlan(plan *models.Plan) error {
	permissions, err := json.Marshal(plan.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode plan permissions: %w", err)
	}
	query := `
		UPDATE plans
		SET name = $1, description = $2, price_cents = $3, billing_period = $4,
		    task_limit = $5, is_active = $6, permissions = $7, updated_at = NOW()
		WHERE id = $8
	`
	result, err := db.db.Exec(query,
		plan.Name, plan.Description, plan.PriceCents, plan.BillingPeriod,
		plan.TaskLimit, plan.IsActive, permissions, plan.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	return requireRow(result, "plan")
}

// DeletePlan removes a plan. The clients.plan_id FK is ON DELETE SET NULL,
// so clients on this plan fall back to the unassigned bucket.
func (db *PostgresDatabase) DeletePlan(id string) error {
	result, err := db.db.Exec(`DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return requireRow(result, "plan")
}

// CreateClient inserts a new client
func (db *PostgresDatabase) CreateClient(client *models.Client) error {
	query := `
		INSERT INTO clients (organization_id, plan_id, name, slug, logo_url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := db.db.QueryRow(query,
		client.OrganizationID, client.PlanID, client.Name, client.Slug, client.LogoURL, client.IsActive,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// ListClientsByOrganization lists an org's clients with their plan joined
func (db *PostgresDatabase) ListClientsByOrganization(orgID string) ([]models.Client, error) {
	query := `
		SELECT c.id, c.organization_id, c.plan_id, c.name, c.slug, COALESCE(c.logo_url,''), c.is_active,
		       c.created_at, c.updated_at,
		       p.id, p.name, p.price_cents, p.billing_period, p.task_limit
		FROM clients c
		LEFT JOIN plans p ON p.id = c.plan_id
		WHERE c.organization_id = $1
		ORDER BY c.created_at ASC
	`
	rows, err := db.db.Query(query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		client, err := scanClientWithPlan(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *client)
	}
	return clients, rows.Err()
}

// GetClient fetches a client by ID with its plan joined
func (db *PostgresDatabase) GetClient(id string) (*models.Client, error) {
	query := `
		SELECT c.id, c.organization_id, c.plan_id, c.name, c.slug, COALESCE(c.logo_url,''), c.is_active,
		       c.created_at, c.updated_at,
		       p.id, p.name, p.price_cents, p.billing_period, p.task_limit
		FROM clients c
		LEFT JOIN plans p ON p.id = c.plan_id
		WHERE c.id = $1
	`
	rows, err := db.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("client not found")
	}
	return scanClientWithPlan(rows)
}

// scanClientWithPlan reads one client row with its left-joined plan columns
func scanClientWithPlan(rows *sql.Rows) (*models.Client, error) {
	var c models.Client
	var planID sql.NullString
	var pID, pName, pBilling sql.NullString
	var pPrice, pLimit sql.NullInt64
	if err := rows.Scan(
		&c.ID, &c.OrganizationID, &planID, &c.Name, &c.Slug, &c.LogoURL, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt,
		&pID, &pName, &pPrice, &pBilling, &pLimit,
	); err != nil {
		return nil, fmt.Errorf("failed to scan client: %w", err)
	}
	if planID.Valid {
		c.PlanID = &planID.String
	}
	if pID.Valid {
		c.Plan = &models.Plan{
			ID:            pID.String,
			Name:          pName.String,
			PriceCents:    int(pPrice.Int64),
			BillingPeriod: pBilling.String,
			TaskLimit:     int(pLimit.Int64),
		}
	}
	return &c, nil
}

// UpdateClient replaces a client's editable fields
func (db *PostgresDatabase) UpdateClient(client *models.Client) error {
	query := `
		UPDATE clients
		SET plan_id = $1, name = $2, slug = $3, logo_url = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6
	`
	result, err := db.db.Exec(query,
		client.PlanID, client.Name, client.Slug, client.LogoURL, client.IsActive, client.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return requireRow(result, "client")
}

// UpdateClientPartial applies a patch map to a client
func (db *PostgresDatabase) UpdateClientPartial(clientID string, patch map[string]interface{}) error {
	allowed := map[string]bool{
		"name": true, "slug": true, "logo_url": true, "plan_id": true, "is_active": true,
	}
	sets, args := buildPatch(patch, allowed)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, clientID)
	query := fmt.Sprintf(
		`UPDATE clients SET %s, updated_at = NOW() WHERE id = $%d`,
		strings.Join(sets, ", "), len(args),
	)
	result, err := db.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return requireRow(result, "client")
}

// DeleteClient removes a client
func (db *PostgresDatabase) DeleteClient(id string) error {
	result, err := db.db.Exec(`DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return requireRow(result, "client")
}

const taskSelect = `
	SELECT t.id, t.organization_id, t.client_id, t.status_id, t.assigned_to, t.created_by,
	       t.title, COALESCE(t.description,''), t.priority, t.type, COALESCE(t.service,''),
	       t.due_date, t.is_archived, t.created_at, t.updated_at,
	       c.id, c.name, c.slug, COALESCE(c.logo_url,''),
	       s.id, s.name, s.slug, s."group", s.is_default, s.position,
	       u.id, u.email, COALESCE(u.full_name,''), COALESCE(u.avatar_url,'')
	FROM tasks t
	LEFT JOIN clients c ON c.id = t.client_id
	LEFT JOIN statuses s ON s.id = t.status_id
	LEFT JOIN users u ON u.id = t.assigned_to
`

// CreateTask inserts a new task
func (db *PostgresDatabase) CreateTask(task *models.Task) error {
	query := `
		INSERT INTO tasks (organization_id, client_id, status_id, assigned_to, created_by,
		                   title, description, priority, type, service, due_date, is_archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := db.db.QueryRow(query,
		task.OrganizationID, task.ClientID, task.StatusID, task.AssignedTo, task.CreatedBy,
		task.Title, task.Description, task.Priority, task.Type, task.Service, task.DueDate, task.IsArchived,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// ListTasksByOrganization lists an org's tasks, newest first, with joins
func (db *PostgresDatabase) ListTasksByOrganization(orgID string, includeArchived bool) ([]models.Task, error) {
	query := taskSelect + ` WHERE t.organization_id = $1`
	if !includeArchived {
		query += ` AND t.is_archived = FALSE`
	}
	query += ` ORDER BY t.created_at DESC`

	rows, err := db.db.Query(query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// GetTask fetches a task with joined client, status and assignee
func (db *PostgresDatabase) GetTask(id string) (*models.Task, error) {
	rows, err := db.db.Query(taskSelect+` WHERE t.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("task not found")
	}
	return scanTask(rows)
}

// scanTask reads one row of taskSelect
func scanTask(rows *sql.Rows) (*models.Task, error) {
	var t models.Task
	var clientID, assignedTo, createdBy sql.NullString
	var dueDate sql.NullTime
	var cID, cName, cSlug, cLogo sql.NullString
	var sID, sName, sSlug, sGroup sql.NullString
	var sDefault sql.NullBool
	var sPosition sql.NullInt64
	var uID, uEmail, uName, uAvatar sql.NullString

	if err := rows.Scan(
		&t.ID, &t.OrganizationID, &clientID, &t.StatusID, &assignedTo, &createdBy,
		&t.Title, &t.Description, &t.Priority, &t.Type, &t.Service,
		&dueDate, &t.IsArchived, &t.CreatedAt, &t.UpdatedAt,
		&cID, &cName, &cSlug, &cLogo,
		&sID, &sName, &sSlug, &sGroup, &sDefault, &sPosition,
		&uID, &uEmail, &uName, &uAvatar,
	); err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	if clientID.Valid {
		t.ClientID = &clientID.String
	}
	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.String
	}
	if createdBy.Valid {
		t.CreatedBy = &createdBy.String
	}
	if dueDate.Valid {
		due := dueDate.Time
		t.DueDate = &due
	}
	if cID.Valid {
		t.Client = &models.Client{ID: cID.String, Name: cName.String, Slug: cSlug.String, LogoURL: cLogo.String}
	}
	if sID.Valid {
		t.Status = &models.Status{
			ID:        sID.String,
			Name:      sName.String,
			Slug:      sSlug.String,
			Group:     models.StatusGroup(sGroup.String),
			IsDefault: sDefault.Bool,
			Position:  int(sPosition.Int64),
		}
	}
	if uID.Valid {
		t.Assignee = &models.User{ID: uID.String, Email: uEmail.String, FullName: uName.String, AvatarURL: uAvatar.String}
	}
	return &t, nil
}

// UpdateTask replaces a task's editable fields
func (db *PostgresDatabase) UpdateTask(task *models.Task) error {
	query := `
		UPDATE tasks
		SET client_id = $1, status_id = $2, assigned_to = $3, title = $4, description = $5,
		    priority = $6, type = $7, service = $8, due_date = $9, is_archived = $10, updated_at = NOW()
		WHERE id = $11
	`
	result, err := db.db.Exec(query,
		task.ClientID, task.StatusID, task.AssignedTo, task.Title, task.Description,
		task.Priority, task.Type, task.Service, task.DueDate, task.IsArchived, task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireRow(result, "task")
}

// UpdateTaskPartial applies a patch map to a task
func (db *PostgresDatabase) UpdateTaskPartial(taskID string, patch map[string]interface{}) error {
	allowed := map[string]bool{
		"title": true, "description": true, "status_id": true, "client_id": true,
		"assigned_to": true, "priority": true, "type": true, "service": true,
		"due_date": true, "is_archived": true,
	}
	sets, args := buildPatch(patch, allowed)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, taskID)
	query := fmt.Sprintf(
		`UPDATE tasks SET %s, updated_at = NOW() WHERE id = $%d`,
		strings.Join(sets, ", "), len(args),
	)
	result, err := db.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireRow(result, "task")
}

// DeleteTask removes a task; comments and attachments cascade
func (db *PostgresDatabase) DeleteTask(id string) error {
	result, err := db.db.Exec(`DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireRow(result, "task")
}

// CreateComment inserts a new comment
func (db *PostgresDatabase) CreateComment(comment *models.Comment) error {
	query := `
		INSERT INTO comments (task_id, author_id, content, is_internal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := db.db.QueryRow(query, comment.TaskID, comment.AuthorID, comment.Content, comment.IsInternal).
		Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListCommentsByTask lists a task's comments oldest first with authors joined
func (db *PostgresDatabase) ListCommentsByTask(taskID string) ([]models.Comment, error) {
	query := `
		SELECT cm.id, cm.task_id, cm.author_id, cm.content, cm.is_internal, cm.created_at, cm.updated_at,
		       u.id, u.email, COALESCE(u.full_name,''), COALESCE(u.avatar_url,'')
		FROM comments cm
		LEFT JOIN users u ON u.id = cm.author_id
		WHERE cm.task_id = $1
		ORDER BY cm.created_at ASC
	`
	rows, err := db.db.Query(query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		var authorID sql.NullString
		var uID, uEmail, uName, uAvatar sql.NullString
		if err := rows.Scan(
			&c.ID, &c.TaskID, &authorID, &c.Content, &c.IsInternal, &c.CreatedAt, &c.UpdatedAt,
			&uID, &uEmail, &uName, &uAvatar,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		if authorID.Valid {
			c.AuthorID = &authorID.String
		}
		if uID.Valid {
			c.Author = &models.User{ID: uID.String, Email: uEmail.String, FullName: uName.String, AvatarURL: uAvatar.String}
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// GetComment fetches a comment by ID
func (db *PostgresDatabase) GetComment(id string) (*models.Comment, error) {
	query := `
		SELECT id, task_id, author_id, content, is_internal, created_at, updated_at
		FROM comments
		WHERE id = $1
	`
	var c models.Comment
	var authorID sql.NullString
	err := db.db.QueryRow(query, id).Scan(
		&c.ID, &c.TaskID, &authorID, &c.Content, &c.IsInternal, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("comment not found")
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	if authorID.Valid {
		c.AuthorID = &authorID.String
	}
	return &c, nil
}

// DeleteComment removes a comment
func (db *PostgresDatabase) DeleteComment(id string) error {
	result, err := db.db.Exec(`DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return requireRow(result, "comment")
}

// CreateAttachment inserts a new attachment row
func (db *PostgresDatabase) CreateAttachment(attachment *models.Attachment) error {
	query := `
		INSERT INTO attachments (task_id, uploaded_by, file_name, file_size, file_type, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`
	err := db.db.QueryRow(query,
		attachment.TaskID, attachment.UploadedBy, attachment.FileName,
		attachment.FileSize, attachment.FileType, attachment.StoragePath,
	).Scan(&attachment.ID, &attachment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

// ListAttachmentsByTask lists a task's attachment rows, newest first
func (db *PostgresDatabase) ListAttachmentsByTask(taskID string) ([]models.Attachment, error) {
	query := `
		SELECT id, task_id, uploaded_by, file_name, file_size, file_type, storage_path, created_at
		FROM attachments
		WHERE task_id = $1
		ORDER BY created_at DESC
	`
	rows, err := db.db.Query(query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []models.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, *a)
	}
	return attachments, rows.Err()
}

// GetAttachment fetches an attachment row by ID
func (db *PostgresDatabase) GetAttachment(id string) (*models.Attachment, error) {
	query := `
		SELECT id, task_id, uploaded_by, file_name, file_size, file_type, storage_path, created_at
		FROM attachments
		WHERE id = $1
	`
	rows, err := db.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("attachment not found")
	}
	return scanAttachment(rows)
}

func scanAttachment(rows *sql.Rows) (*models.Attachment, error) {
	var a models.Attachment
	var uploadedBy sql.NullString
	if err := rows.Scan(
		&a.ID, &a.TaskID, &uploadedBy, &a.FileName, &a.FileSize, &a.FileType, &a.StoragePath, &a.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan attachment: %w", err)
	}
	if uploadedBy.Valid {
		a.UploadedBy = &uploadedBy.String
	}
	return &a, nil
}

// DeleteAttachment removes an attachment row
func (db *PostgresDatabase) DeleteAttachment(id string) error {
	result, err := db.db.Exec(`DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return requireRow(result, "attachment")
}

// HealthCheck pings the database
func (db *PostgresDatabase) HealthCheck() error {
	return db.db.Ping()
}

// Close closes the connection pool
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}

// buildPatch turns an allowed patch map into SET clauses and ordered args
func buildPatch(patch map[string]interface{}, allowed map[string]bool) ([]string, []interface{}) {
	var sets []string
	var args []interface{}
	for key, value := range patch {
		if !allowed[key] {
			continue
		}
		column := key
		if key == "group" {
			column = `"group"`
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	return sets, args
}

// requireRow converts a zero-row update/delete into a not-found error
func requireRow(result sql.Result, entity string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return nil // driver does not support RowsAffected, assume success
	}
	if affected == 0 {
		return fmt.Errorf("%s not found", entity)
	}
	return nil
}
