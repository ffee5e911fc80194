package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Catalog
		Database
		Auth
		UI
		Shelves
		Tasks
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Catalog struct {
		BaseURL string
		APIKey  string
		Timeout time.Duration // deadline for a single outbound catalog call
	}
	Database struct {
		Path        string
		BusyTimeout time.Duration // SQLite busy timeout, bounds store operations
	}
	Auth struct {
		SecretKey       string // signs CSRF tokens; generated when empty
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // set to false for local dev without HTTPS

		// Login rate limiting
		MaxLoginAttempts int
		RateLimitWindow  time.Duration
		LockoutDuration  time.Duration
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Shelves struct {
		RefreshSchedule string // cron format: "0 * * * *" = hourly
		Size            int    // books fetched per shelf
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("db_busy_timeout", "5s")
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	// Catalog defaults
	v.SetDefault("catalog_base_url", DefaultCatalogBaseURL)
	v.SetDefault("api_key", "")
	v.SetDefault("catalog_timeout", "10s")

	// Auth defaults
	v.SetDefault("secret_key", "")
	v.SetDefault("session_lifetime", "24h")
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("secure_cookies", true)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	// Homepage shelf refresh defaults
	v.SetDefault("shelf_refresh_schedule", "0 * * * *") // Hourly at :00
	v.SetDefault("shelf_size", 8)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Catalog: Catalog{
			BaseURL: v.GetString("CATALOG_BASE_URL"),
			APIKey:  v.GetString("API_KEY"),
			Timeout: v.GetDuration("CATALOG_TIMEOUT"),
		},
		Database: Database{
			Path:        v.GetString("DATABASE_PATH"),
			BusyTimeout: v.GetDuration("DB_BUSY_TIMEOUT"),
		},
		Auth: Auth{
			SecretKey:        v.GetString("SECRET_KEY"),
			SessionLifetime:  v.GetDuration("SESSION_LIFETIME"),
			BcryptCost:       v.GetInt("BCRYPT_COST"),
			SecureCookies:    v.GetBool("SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Shelves: Shelves{
			RefreshSchedule: v.GetString("SHELF_REFRESH_SCHEDULE"),
			Size:            v.GetInt("SHELF_SIZE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}
