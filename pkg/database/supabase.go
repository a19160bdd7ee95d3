package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

// SupabaseDatabase talks to Supabase's PostgREST endpoint over HTTP
type SupabaseDatabase struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// taskEmbed pulls the related client, status and assignee rows in one query.
// The FK hint on assignee disambiguates from created_by.
const taskEmbed = "*,client:clients(*),status:statuses(*),assignee:users!tasks_assigned_to_fkey(*)"

// NewSupabaseDatabase creates a Supabase REST client
func NewSupabaseDatabase(apiURL, key string) DatabaseInterface {
	if !strings.HasPrefix(apiURL, "http") {
		apiURL = "https://" + apiURL
	}

	return &SupabaseDatabase{
		baseURL: apiURL,
		apiKey:  key,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// makeRequest sends an HTTP request to the PostgREST endpoint
func (db *SupabaseDatabase) makeRequest(method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	reqURL := db.baseURL + "/rest/v1" + endpoint
	req, err := http.NewRequest(method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", db.apiKey)
	req.Header.Set("Authorization", "Bearer "+db.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := db.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// decodeRows unmarshals a PostgREST array response
func decodeRows(data []byte, out interface{}) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ================= Users =================

// CreateUser inserts a new user
func (db *SupabaseDatabase) CreateUser(user *models.User) error {
	payload := map[string]interface{}{
		"email":         user.Email,
		"password_hash": user.Password,
		"full_name":     user.FullName,
		"avatar_url":    user.AvatarURL,
		"role":          user.Role,
	}
	if user.OrganizationID != "" {
		payload["organization_id"] = user.OrganizationID
	}
	data, err := db.makeRequest("POST", "/users", payload)
	if err != nil {
		return err
	}
	var rows []models.User
	if err := decodeRows(data, &rows); err == nil && len(rows) > 0 {
		user.ID = rows[0].ID
		user.CreatedAt = rows[0].CreatedAt
		user.UpdatedAt = rows[0].UpdatedAt
	}
	return nil
}

// GetUserByEmail fetches a user by email
func (db *SupabaseDatabase) GetUserByEmail(email string) (*models.User, error) {
	endpoint := "/users?email=eq." + url.QueryEscape(email) + "&select=*"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	var users []supabaseUser
	if err := decodeRows(data, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	return users[0].toUser(), nil
}

// GetUserByID fetches a user by ID
func (db *SupabaseDatabase) GetUserByID(id string) (*models.User, error) {
	endpoint := "/users?id=eq." + url.QueryEscape(id) + "&select=*"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	var users []supabaseUser
	if err := decodeRows(data, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	return users[0].toUser(), nil
}

// supabaseUser carries the password_hash column, which the User model hides
// from JSON
type supabaseUser struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

func (su supabaseUser) toUser() *models.User {
	u := su.User
	u.Password = su.PasswordHash
	return &u
}

// UpdateUser updates profile fields on a user
func (db *SupabaseDatabase) UpdateUser(user *models.User) error {
	payload := map[string]interface{}{
		"full_name":  user.FullName,
		"avatar_url": user.AvatarURL,
		"role":       user.Role,
		"updated_at": time.Now().Format(time.RFC3339),
	}
	if user.OrganizationID != "" {
		payload["organization_id"] = user.OrganizationID
	}
	_, err := db.makeRequest("PATCH", "/users?id=eq."+url.QueryEscape(user.ID), payload)
	return err
}

// DeleteUser removes a user
func (db *SupabaseDatabase) DeleteUser(id string) error {
	_, err := db.makeRequest("DELETE", "/users?id=eq."+url.QueryEscape(id), nil)
	return err
}

// ListUsersByOrganization lists an org's members ordered by creation time
func (db *SupabaseDatabase) ListUsersByOrganization(orgID string) ([]models.User, error) {
	endpoint := "/users?organization_id=eq." + url.QueryEscape(orgID) + "&select=*&order=created_at.asc"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := decodeRows(data, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ================= Organizations =================

// CreateOrganization inserts a new organization
func (db *SupabaseDatabase) CreateOrganization(org *models.Organization) error {
	payload := map[string]interface{}{
		"name":     org.Name,
		"slug":     org.Slug,
		"logo_url": org.LogoURL,
	}
	data, err := db.makeRequest("POST", "/organizations", payload)
	if err != nil {
		return err
	}
	var rows []models.Organization
	if err := decodeRows(data, &rows); err == nil && len(rows) > 0 {
		*org = rows[0]
	}
	return nil
}

// GetOrganization fetches an organization by ID
func (db *SupabaseDatabase) GetOrganization(orgID string) (*models.Organization, error) {
	return db.getOrganization("id=eq." + url.QueryEscape(orgID))
}

// GetOrganizationBySlug fetches an organization by slug
func (db *SupabaseDatabase) GetOrganizationBySlug(slug string) (*models.Organization, error) {
	return db.getOrganization("slug=eq." + url.QueryEscape(slug))
}

func (db *SupabaseDatabase) getOrganization(filter string) (*models.Organization, error) {
	data, err := db.makeRequest("GET", "/organizations?"+filter+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var orgs []models.Organization
	if err := decodeRows(data, &orgs); err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		return nil, fmt.Errorf("organization not found")
	}
	return &orgs[0], nil
}

// UpdateOrganization updates the organization's display fields
func (db *SupabaseDatabase) UpdateOrganization(org *models.Organization) error {
	payload := map[string]interface{}{
		"name":       org.Name,
		"slug":       org.Slug,
		"logo_url":   org.LogoURL,
		"updated_at": time.Now().Format(time.RFC3339),
	}
	_, err := db.makeRequest("PATCH", "/organizations?id=eq."+url.QueryEscape(org.ID), payload)
	return err
}

// ================= Statuses =================

// CreateStatus inserts a new status column
func (db *SupabaseDatabase) CreateStatus(status *models.Status) error {
	payload := map[string]interface{}{
		"organization_id": status.OrganizationID,
		"name":            status.Name,
		"slug":            status.Slug,
		"icon":            status.Icon,
		"color":           status.Color,
		"group":           status.Group,
		"is_default":      status.IsDefault,
		"in_task_limit":   status.InTaskLimit,
		"position":        status.Position,
	}
	data, err := db.makeRequest("POST", "/statuses", payload)
	if err != nil {
		return err
	}
	var rows []models.Status
	if err := decodeRows(data, &rows); err == nil && len(rows) > 0 {
		*status = rows[0]
	}
	return nil
}

// ListStatusesByOrganization lists an org's statuses ordered by position
func (db *SupabaseDatabase) ListStatusesByOrganization(orgID string) ([]models.Status, error) {
	endpoint := "/statuses?organization_id=eq." + url.QueryEscape(orgID) + "&select=*&order=position.asc"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var statuses []models.Status
	if err := decodeRows(data, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// GetStatus fetches a status by ID
func (db *SupabaseDatabase) GetStatus(id string) (*models.Status, error) {
	data, err := db.makeRequest("GET", "/statuses?id=eq."+url.QueryEscape(id)+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var statuses []models.Status
	if err := decodeRows(data, &statuses); err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, fmt.Errorf("status not found")
	}
	return &statuses[0], nil
}

// UpdateStatus updates a status column
func (db *SupabaseDatabase) UpdateStatus(status *models.Status) error {
	payload := map[string]interface{}{
		"name":          status.Name,
		"slug":          status.Slug,
		"icon":          status.Icon,
		"color":         status.Color,
		"group":         status.Group,
		"is_default":    status.IsDefault,
		"in_task_limit": status.InTaskLimit,
		"position":      status.Position,
	}
	_, err := db.makeRequest("PATCH", "/statuses?id=eq."+url.QueryEscape(status.ID), payload)
	return err
}

// DeleteStatus removes a status
func (db *SupabaseDatabase) DeleteStatus(id string) error {
	_, err := db.makeRequest("DELETE", "/statuses?id=eq."+url.QueryEscape(id), nil)
	return err
}

// ================= Plans =================

// CreatePlan inserts a new plan
func (db *SupabaseDatabase) CreatePlan(plan *models.Plan) error {
	payload := map[string]interface{}{
		"organization_id": plan.OrganizationID,
		"name":            plan.Name,
		"description":     plan.Description,
		"price_cents":     plan.PriceCents,
		"billing_period":  plan.BillingPeriod,
		"task_limit":      plan.TaskLimit,
		"is_active":       plan.IsActive,
		"permissions":     plan.Permissions,
	}
	data, err := db.makeRequest("POST", "/plans", payload)
	if err != nil {
		return err
	}
	var rows []models.Plan
	if err := decodeRows(data, &rows); err == nil && len(rows) > 0 {
		*plan = rows[0]
	}
	return nil
}

// ListPlansByOrganization lists an org's plans ordered by price
func (db *SupabaseDatabase) ListPlansByOrganization(orgID string) ([]models.Plan, error) {
	endpoint := "/plans?organization_id=eq." + url.QueryEscape(orgID) + "&select=*&order=price_cents.asc"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var plans []models.Plan
	if err := decodeRows(data, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// GetPlan fetches a plan by ID
func (db *SupabaseDatabase) GetPlan(id string) (*models.Plan, error) {
	data, err := db.makeRequest("GET", "/plans?id=eq."+url.QueryEscape(id)+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var plans []models.Plan
	if err := decodeRows(data, &plans); err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("plan not found")
	}
	return &plans[0], nil
}

// UpdatePlan updates a plan
func (db *SupabaseDatabase) UpdatePlan(plan *models.Plan) error {
	payload := map[string]interface{}{
		"name":           plan.Name,
		"description":    plan.Description,
		"price_cents":    plan.PriceCents,
		"billing_period": plan.BillingPeriod,
		"task_limit":     plan.TaskLimit,
		"is_active":      plan.IsActive,
		"permissions":    plan.Permissions,
		"updated_at":     time.Now().Format(time.RFC3339),
	}
	_, err := db.makeRequest("PATCH", "/plans?id=eq."+url.QueryEscape(plan.ID), payload)
	return err
}

// DeletePlan removes a plan; clients.plan_id is set NULL by the FK
func (db *SupabaseDatabase) DeletePlan(id string) error {
	_, err := db.makeRequest("DELETE", "/plans?id=eq."+url.QueryEscape(id), nil)
	return err
}

// ================= Clients =================

// CreateClient inserts a new client
func (db *SupabaseDatabase) CreateClient(client *models.Client) error {
	payload := map[string]interface{}{
		"organization_id": client.OrganizationID,
		"plan_id":         client.PlanID,
		"name":            client.Name,
		"slug":            client.Slug,
		"logo_url":        client.LogoURL,
		"is_active":       client.IsActive,
	}
	data, err := db.makeRequest("POST", "/clients", payload)
	if err != nil {
		return err
	}
	var rows []models.Client
	if err := decodeRows(data, &rows); err == nil && len(rows) > 0 {
		*client = rows[0]
	}
	return nil
}

// ListClientsByOrganization lists an org's clients with plans embedded
func (db *SupabaseDatabase) ListClientsByOrganization(orgID string) ([]models.Client, error) {
	endpoint := "/clients?organization_id=eq." + url.QueryEscape(orgID) +
		"&select=" + url.QueryEscape("*,plan:plans(*)") + "&order=created_at.asc"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var clients []models.Client
	if err := decodeRows(data, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// GetClient fetches a client by ID with its plan embedded
func (db *SupabaseDatabase) GetClient(id string) (*models.Client, error) {
	endpoint := "/clients?id=eq." + url.QueryEscape(id) +
		"&select=" + url.QueryEscape("*,plan:plans(*)")
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var clients []models.Client
	if err := decodeRows(data, &clients); err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("client not found")
	}
	return &clients[0], nil
}

// UpdateClient replaces a client's editable fields
func (db *SupabaseDatabase) UpdateClient(client *models.Client) error {
	payload := map[string]interface{}{
		"plan_id":    client.PlanID,
		"name":       client.Name,
		"slug":       client.Slug,
		"logo_url":   client.LogoURL,
		"is_active":  client.IsActive,
		"updated_at": time.Now().Format(time.RFC3339),
	}
	_, err := db.makeRequest("PATCH", "/clients?id=eq."+url.QueryEscape(client.ID), payload)
	return err
}

// UpdateClientPartial applies a patch map to a client
func (db *SupabaseDatabase) UpdateClientPartial(clientID string, patch map[string]interface{}) error {
	allowed := map[string]bool{
		"name": true, "slug": true, "logo_url": true, "plan_id": true, "is_active": true,
	}
	payload := map[string]interface{}{
		"updated_at": time.Now().Format(time.RFC3339),
	}
	for key, value := range patch {
		if allowed[key] {
			payload[key] = value
		}
	}
	_, err := db.makeRequest("PATCH", "/clients?id=eq."+url.QueryEscape(clientID), payload)
	return err
}

// DeleteClient removes a client
func (db *SupabaseDatabase) DeleteClient(id string) error {
	_, err := db.makeRequest("DELETE", "/clients?id=eq."+url.QueryEscape(id), nil)
	return err
}

// ================= Tasks =================

// CreateTask inserts a new task, then re-reads it to embed relations
func (db *SupabaseDatabase) CreateTask(task *models.Task) error {
	payload := map[string]interface{}{
		"organization_id": task.OrganizationID,
		"client_id":       task.ClientID,
		"status_id":       task.StatusID,
		"assigned_to":     task.AssignedTo,
		"created_by":      task.CreatedBy,
		"title":           task.Title,
		"description":     task.Description,
		"priority":        task.Priority,
		"type":            task.Type,
		"service":         task.Service,
		"due_date":        task.DueDate,
		"is_archived":     task.IsArchived,
	}
	data, err := db.makeRequest("POST", "/tasks", payload)
	if err != nil {
		return err
	}
	var rows []models.Task
	if err := decodeRows(data, &rows); err == nil && len(rows) > 0 {
		task.ID = rows[0].ID
		task.CreatedAt = rows[0].CreatedAt
		task.UpdatedAt = rows[0].UpdatedAt
	}
	if task.ID != "" {
		if full, err := db.GetTask(task.ID); err == nil {
			*task = *full
		}
	}
	return nil
}

// ListTasksByOrganization lists an org's tasks, newest first, relations embedded
func (db *SupabaseDatabase) ListTasksByOrganization(orgID string, includeArchived bool) ([]models.Task, error) {
	endpoint := "/tasks?organization_id=eq." + url.QueryEscape(orgID) +
		"&select=" + url.QueryEscape(taskEmbed) + "&order=created_at.desc"
	if !includeArchived {
		endpoint += "&is_archived=eq.false"
	}
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var tasks []models.Task
	if err := decodeRows(data, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask fetches a task with relations embedded
func (db *SupabaseDatabase) GetTask(id string) (*models.Task, error) {
	endpoint := "/tasks?id=eq." + url.QueryEscape(id) + "&select=" + url.QueryEscape(taskEmbed)
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var tasks []models.Task
	if err := decodeRows(data, &tasks); err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("task not found")
	}
	return &tasks[0], nil
}

// UpdateTask replaces a task's editable fields
func (db *SupabaseDatabase) UpdateTask(task *models.Task) error {
	payload := map[string]interface{}{
		"client_id":   task.ClientID,
		"status_id":   task.StatusID,
		"assigned_to": task.AssignedTo,
		"title":       task.Title,
		"description": task.Description,
		"priority":    task.Priority,
		"type":        task.Type,
		"service":     task.Service,
		"due_date":    task.DueDate,
		"is_archived": task.IsArchived,
		"updated_at":  time.Now().Format(time.RFC3339),
	}
	_, err := db.makeRequest("PATCH", "/tasks?id=eq."+url.QueryEscape(task.ID), payload)
	return err
}

// UpdateTaskPartial applies a patch map to a task
func (db *SupabaseDatabase) UpdateTaskPartial(taskID string, patch map[string]interface{}) error {
	allowed := map[string]bool{
		"title": true, "description": true, "status_id": true, "client_id": true,
		"assigned_to": true, "priority": true, "type": true, "service": true,
		"due_date": true, "is_archived": true,
	}
	payload := map[string]interface{}{
		"updated_at": time.Now().Format(time.RFC3339),
	}
	for key, value := range patch {
		if allowed[key] {
			payload[key] = value
		}
	}
	_, err := db.makeRequest("PATCH", "/tasks?id=eq."+url.QueryEscape(taskID), payload)
	return err
}

// DeleteTask removes a task; comments and attachments cascade
func (db *SupabaseDatabase) DeleteTask(id string) error {
	_, err := db.makeRequest("DELETE", "/tasks?id=eq."+url.QueryEscape(id), nil)
	return err
}

// ================= Comments =================

// CreateComment inserts a new comment
func (db *SupabaseDatabase) CreateComment(comment *models.Comment) error {
	payload := map[string]interface{}{
		"task_id":     comment.TaskID,
		"author_id":   comment.AuthorID,
		"content":     comment.Content,
		"is_internal": comment.IsInternal,
	}
	data, err := db.makeRequest("POST", "/comments", payload)
	if err != nil {
		return err
	}
	var rows []models.Comment
	if err := decodeRows(data, &rows); err == nil && len(rows) > 0 {
		comment.ID = rows[0].ID
		comment.CreatedAt = rows[0].CreatedAt
		comment.UpdatedAt = rows[0].UpdatedAt
	}
	return nil
}

// ListCommentsByTask lists a task's comments oldest first with authors embedded
func (db *SupabaseDatabase) ListCommentsByTask(taskID string) ([]models.Comment, error) {
	endpoint := "/comments?task_id=eq." + url.QueryEscape(taskID) +
		"&select=" + url.QueryEscape("*,author:users(*)") + "&order=created_at.asc"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var comments []models.Comment
	if err := decodeRows(data, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// GetComment fetches a comment by ID
func (db *SupabaseDatabase) GetComment(id string) (*models.Comment, error) {
	data, err := db.makeRequest("GET", "/comments?id=eq."+url.QueryEscape(id)+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var comments []models.Comment
	if err := decodeRows(data, &comments); err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, fmt.Errorf("comment not found")
	}
	return &comments[0], nil
}

// DeleteComment removes a comment
func (db *SupabaseDatabase) DeleteComment(id string) error {
	_, err := db.makeRequest("DELETE", "/comments?id=eq."+url.QueryEscape(id), nil)
	return err
}

// ================= Attachments =================

// CreateAttachment inserts a new attachment row
func (db *SupabaseDatabase) CreateAttachment(attachment *models.Attachment) error {
	payload := map[string]interface{}{
		"task_id":      attachment.TaskID,
		"uploaded_by":  attachment.UploadedBy,
		"file_name":    attachment.FileName,
		"file_size":    attachment.FileSize,
		"file_type":    attachment.FileType,
		"storage_path": attachment.StoragePath,
	}
	data, err := db.makeRequest("POST", "/attachments", payload)
	if err != nil {
		return err
	}
	var rows []models.Attachment
	if err := decodeRows(data, &rows); err == nil && len(rows) > 0 {
		attachment.ID = rows[0].ID
		attachment.CreatedAt = rows[0].CreatedAt
	}
	return nil
}

// ListAttachmentsByTask lists a task's attachment rows, newest first
func (db *SupabaseDatabase) ListAttachmentsByTask(taskID string) ([]models.Attachment, error) {
	endpoint := "/attachments?task_id=eq." + url.QueryEscape(taskID) + "&select=*&order=created_at.desc"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var attachments []models.Attachment
	if err := decodeRows(data, &attachments); err != nil {
		return nil, err
	}
	return attachments, nil
}

// GetAttachment fetches an attachment row by ID
func (db *SupabaseDatabase) GetAttachment(id string) (*models.Attachment, error) {
	data, err := db.makeRequest("GET", "/attachments?id=eq."+url.QueryEscape(id)+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var attachments []models.Attachment
	if err := decodeRows(data, &attachments); err != nil {
		return nil, err
	}
	if len(attachments) == 0 {
		return nil, fmt.Errorf("attachment not found")
	}
	return &attachments[0], nil
}

// DeleteAttachment removes an attachment row
func (db *SupabaseDatabase) DeleteAttachment(id string) error {
	_, err := db.makeRequest("DELETE", "/attachments?id=eq."+url.QueryEscape(id), nil)
	return err
}

// HealthCheck issues a minimal query against the REST endpoint
func (db *SupabaseDatabase) HealthCheck() error {
	_, err := db.makeRequest("GET", "/organizations?select=id&limit=1", nil)
	return err
}

// Close is a no-op; the HTTP client needs no teardown
func (db *SupabaseDatabase) Close() error {
	return nil
}
