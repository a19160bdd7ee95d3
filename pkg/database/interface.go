package database

import (
	"fmt"
	"os"

	"github.com/TheWonderFran/wonder-tasks/pkg/models"
)

// DatabaseInterface defines the persistence operations used by the handlers
type DatabaseInterface interface {
	// Users
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	UpdateUser(user *models.User) error
	DeleteUser(id string) error
	ListUsersByOrganization(orgID string) ([]models.User, error)

	// Organizations
	CreateOrganization(org *models.Organization) error
	GetOrganization(orgID string) (*models.Organization, error)
	GetOrganizationBySlug(slug string) (*models.Organization, error)
	UpdateOrganization(org *models.Organization) error

	// Statuses
	CreateStatus(status *models.Status) error
	ListStatusesByOrganization(orgID string) ([]models.Status, error)
	GetStatus(id string) (*models.Status, error)
	UpdateStatus(status *models.Status) error
	DeleteStatus(id string) error

	// Plans
	CreatePlan(plan *models.Plan) error
	ListPlansByOrganization(orgID string) ([]models.Plan, error)
	GetPlan(id string) (*models.Plan, error)
	UpdatePlan(plan *models.Plan) error
	DeletePlan(id string) error

	// Clients
	CreateClient(client *models.Client) error
	ListClientsByOrganization(orgID string) ([]models.Client, error)
	GetClient(id string) (*models.Client, error)
	UpdateClient(client *models.Client) error
	// UpdateClientPartial performs a partial update using the provided patch map.
	// Allowed keys: "name","slug","logo_url","plan_id","is_active".
	UpdateClientPartial(clientID string, patch map[string]interface{}) error
	DeleteClient(id string) error

	// Tasks
	CreateTask(task *models.Task) error
	ListTasksByOrganization(orgID string, includeArchived bool) ([]models.Task, error)
	GetTask(id string) (*models.Task, error)
	UpdateTask(task *models.Task) error
	// UpdateTaskPartial performs a partial update using the provided patch map.
	// Allowed keys: "title","description","status_id","client_id","assigned_to",
	// "priority","type","service","due_date","is_archived".
	UpdateTaskPartial(taskID string, patch map[string]interface{}) error
	DeleteTask(id string) error

	// Comments
	CreateComment(comment *models.Comment) error
	ListCommentsByTask(taskID string) ([]models.Comment, error)
	GetComment(id string) (*models.Comment, error)
	DeleteComment(id string) error

	// Attachments
	CreateAttachment(attachment *models.Attachment) error
	ListAttachmentsByTask(taskID string) ([]models.Attachment, error)
	GetAttachment(id string) (*models.Attachment, error)
	DeleteAttachment(id string) error

	// Health check
	HealthCheck() error

	// Close releases the underlying connection
	Close() error
}

// DatabaseConfig selects and configures the database implementation
type DatabaseConfig struct {
	PostgresDSN string
	SupabaseURL string
	SupabaseKey string
	UseMemoryDB bool
	Debug       bool
}

// NewDatabase picks a database implementation from the environment and config
func NewDatabase(config DatabaseConfig) DatabaseInterface {
	isServerless := isServerlessEnvironment()

	if isServerless {
		// Serverless prefers the Supabase REST API (avoids direct IPv6 sockets)
		if config.SupabaseURL != "" && config.SupabaseKey != "" {
			fmt.Println("Using Supabase REST API (serverless optimized)")
			return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey)
		}

		if config.PostgresDSN != "" {
			fmt.Println("Using PostgreSQL in serverless environment")
			return NewPostgresDatabase(config.PostgresDSN)
		}

		panic("No valid database configured for serverless environment. Please set SUPABASE_URL+SUPABASE_SERVICE_KEY or POSTGRES_DSN")
	}

	// Local environments: PostgreSQL > Supabase > in-memory
	if config.PostgresDSN != "" {
		fmt.Println("Using PostgreSQL database")
		return NewPostgresDatabase(config.PostgresDSN)
	}

	if config.SupabaseURL != "" && config.SupabaseKey != "" {
		fmt.Println("Using Supabase REST API")
		return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey)
	}

	if config.UseMemoryDB {
		fmt.Println("Using in-memory database (development only)")
		return NewMemoryDatabase()
	}

	panic("No valid database configuration found. Please configure POSTGRES_DSN or SUPABASE_URL+SUPABASE_SERVICE_KEY")
}

// isServerlessEnvironment detects Vercel/Lambda-style execution
func isServerlessEnvironment() bool {
	vercelEnv := os.Getenv("VERCEL_ENV")
	vercelURL := os.Getenv("VERCEL_URL")
	awsLambda := os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	return vercelEnv != "" || vercelURL != "" || awsLambda != ""
}
