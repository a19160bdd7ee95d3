package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string

	// Database
	UseMemoryDB bool
	PostgresDSN string
	SupabaseURL string
	SupabaseKey string

	// Storage bucket for task attachments
	SupabaseBucket string

	// JWT
	JWTSecret string

	// CORS
	AllowedOrigins []string

	// Base URL used when building absolute links
	BaseURL string

	// Debug
	Debug bool
}

// LoadConfig loads configuration from the environment (local and serverless)
func LoadConfig() *Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	switch env {
	case "production":
		loadEnvFile(".env.production")
	default:
		loadEnvFile(".env.local")
	}

	config := &Config{
		Environment:    getEnvWithDefault("ENVIRONMENT", "development"),
		Port:           getEnvWithDefault("PORT", "3000"),
		UseMemoryDB:    getEnvBool("USE_MEMORY_DB", true),
		SupabaseBucket: getEnvWithDefault("SUPABASE_BUCKET", "task-attachments"),
		JWTSecret:      getEnvWithDefault("JWT_SECRET", "your-secret-key-change-in-production"),
		Debug:          getEnvBool("DEBUG", false),
	}

	// Trim whitespace to avoid trailing spaces/newlines from env sources
	config.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	config.SupabaseURL = strings.TrimSpace(os.Getenv("SUPABASE_URL"))
	config.SupabaseKey = strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_KEY"))
	config.BaseURL = strings.TrimSpace(os.Getenv("BASE_URL"))

	allowedOrigins := getEnvWithDefault("ALLOWED_ORIGINS", "*")
	if allowedOrigins == "*" {
		config.AllowedOrigins = []string{"*"}
	} else {
		config.AllowedOrigins = strings.Split(allowedOrigins, ",")
	}

	if config.Environment == "production" {
		// Production must run against an external database
		if config.PostgresDSN != "" || (config.SupabaseURL != "" && config.SupabaseKey != "") {
			config.UseMemoryDB = false
		} else {
			fmt.Println("WARNING: production environment without POSTGRES_DSN or SUPABASE_URL+SUPABASE_SERVICE_KEY, falling back to in-memory database")
		}
		config.Debug = false
	}

	return config
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless it initializes once per cold start and reuses it
// across warm invocations, avoiding per-request parsing.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate checks the configuration for obvious misconfiguration
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.JWTSecret == "" || c.JWTSecret == "your-secret-key-change-in-production" {
		if c.Environment == "production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Environment == "development" {
			fmt.Println("WARNING: using default JWT secret (not recommended for production)")
		}
	}

	if c.UseMemoryDB {
		// In-memory database needs no further configuration
	} else if c.PostgresDSN != "" {
		// Direct PostgreSQL
	} else if c.SupabaseURL != "" && c.SupabaseKey != "" {
		// Supabase REST
	} else {
		return fmt.Errorf("incomplete database configuration: set POSTGRES_DSN or SUPABASE_URL+SUPABASE_SERVICE_KEY")
	}

	return nil
}

// IsProduction reports whether the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment reports whether the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// getEnvWithDefault returns the env var value or a default when unset
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool parses a boolean env var with a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// loadEnvFile loads KEY=VALUE pairs from a .env file into the environment.
// Existing environment variables take precedence.
func loadEnvFile(filename string) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return
	}

	file, err := os.Open(filename)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if len(value) >= 2 {
			if (strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"")) ||
				(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
				value = value[1 : len(value)-1]
			}
		}

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
