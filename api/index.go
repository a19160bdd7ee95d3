package handler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/TheWonderFran/wonder-tasks/pkg/board"
	"github.com/TheWonderFran/wonder-tasks/pkg/config"
	"github.com/TheWonderFran/wonder-tasks/pkg/database"
	"github.com/TheWonderFran/wonder-tasks/pkg/handlers"
	customMiddleware "github.com/TheWonderFran/wonder-tasks/pkg/middleware"
	"github.com/TheWonderFran/wonder-tasks/pkg/utils"
)

// Shared process state: board sessions and the blob store survive warm
// serverless invocations alongside the pooled database connection.
var (
	sessions    = board.NewRegistry()
	storageOnce sync.Once
	objectStore database.ObjectStore
)

// Handler is the serverless function entrypoint. All API endpoints are
// managed by a single chi router.
func Handler(w http.ResponseWriter, r *http.Request) {
	cfg := config.GetCached()

	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	// pooled connection, reused across warm invocations
	db := database.GetDatabase(database.DatabaseConfig{
		UseMemoryDB: cfg.UseMemoryDB,
		PostgresDSN: cfg.PostgresDSN,
		SupabaseURL: cfg.SupabaseURL,
		SupabaseKey: cfg.SupabaseKey,
		Debug:       cfg.Debug,
	})

	storageOnce.Do(func() {
		if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
			objectStore = database.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
		} else {
			objectStore = database.NewMemoryStorage()
		}
	})

	router := chi.NewRouter()

	setupMiddleware(router, cfg, db)
	setupRoutes(router, cfg, db, objectStore)

	router.ServeHTTP(w, r)
}

// setupMiddleware installs the global middleware stack
func setupMiddleware(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(customMiddleware.Recovery(cfg))

	router.Use(customMiddleware.CORS(cfg))

	// serverless functions are time limited; leave a few seconds of buffer
	router.Use(middleware.Timeout(25 * time.Second))

	router.Use(middleware.Compress(5))
	router.Use(customMiddleware.MaxBodySize(32 << 20))
	router.Use(customMiddleware.ContentTypeJSON)

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes wires every API route
func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface, storage database.ObjectStore) {
	authHandler := handlers.NewAuthHandler(cfg, db)
	orgsHandler := handlers.NewOrgsHandler(cfg, db)
	tasksHandler := handlers.NewTasksHandler(cfg, db, sessions)
	clientsHandler := handlers.NewClientsHandler(cfg, db, sessions)
	statusesHandler := handlers.NewStatusesHandler(cfg, db, sessions)
	plansHandler := handlers.NewPlansHandler(cfg, db, sessions)
	commentsHandler := handlers.NewCommentsHandler(cfg, db, sessions)
	attachmentsHandler := handlers.NewAttachmentsHandler(cfg, db, storage, sessions)
	boardHandler := handlers.NewBoardHandler(cfg, db, sessions)

	// Health check
	router.Get("/", authHandler.HealthCheck)

	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})
	}

	router.Route("/api", func(r chi.Router) {
		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg, db))

			r.Route("/org", func(r chi.Router) {
				r.Get("/", orgsHandler.GetOrganization)
				r.Put("/", orgsHandler.UpdateOrganization)
				r.Get("/members", orgsHandler.ListMembers)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", tasksHandler.ListTasks)
				r.Post("/", tasksHandler.CreateTask)
				r.Get("/{id}", tasksHandler.GetTask)
				r.Put("/{id}", tasksHandler.UpdateTask)
				r.Delete("/{id}", tasksHandler.DeleteTask)
				r.Post("/{id}/archive", tasksHandler.ArchiveTask)
				r.Post("/{id}/unarchive", tasksHandler.UnarchiveTask)
				r.Post("/{id}/move", tasksHandler.MoveTask)

				r.Get("/{id}/comments", commentsHandler.ListComments)
				r.Post("/{id}/comments", commentsHandler.CreateComment)
				r.Get("/{id}/attachments", attachmentsHandler.ListAttachments)
				r.Post("/{id}/attachments", attachmentsHandler.UploadAttachment)
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", clientsHandler.ListClients)
				r.Post("/", clientsHandler.CreateClient)
				r.Get("/grouped", clientsHandler.ListClientsGrouped)
				r.Put("/{id}", clientsHandler.UpdateClient)
				r.Delete("/{id}", clientsHandler.DeleteClient)
				r.Post("/{id}/move", clientsHandler.MoveClient)
			})

			r.Route("/statuses", func(r chi.Router) {
				r.Get("/", statusesHandler.ListStatuses)
				r.Post("/", statusesHandler.CreateStatus)
				r.Put("/{id}", statusesHandler.UpdateStatus)
				r.Delete("/{id}", statusesHandler.DeleteStatus)
			})

			r.Route("/plans", func(r chi.Router) {
				r.Get("/", plansHandler.ListPlans)
				r.Post("/", plansHandler.CreatePlan)
				r.Put("/{id}", plansHandler.UpdatePlan)
				r.Delete("/{id}", plansHandler.DeletePlan)
			})

			r.Delete("/comments/{id}", commentsHandler.DeleteComment)
			r.Get("/attachments/{id}/download", attachmentsHandler.DownloadAttachment)
			r.Delete("/attachments/{id}", attachmentsHandler.DeleteAttachment)

			r.Route("/board", func(r chi.Router) {
				r.Post("/load", boardHandler.LoadBoard)
				r.Get("/", boardHandler.GetBoard)
				r.Put("/filters", boardHandler.SetFilters)
				r.Post("/select", boardHandler.SelectTask)
				r.Post("/drag", boardHandler.Drag)
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
