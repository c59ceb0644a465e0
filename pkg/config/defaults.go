// Package config provides centralized default values for the page builder
package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

// loadEnvFile reads .env without overriding variables already set
func loadEnvFile() {
	envLoaded.Do(func() {
		if _, err := os.Stat(".env"); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Failed to load .env: %v", err)
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

// getEnvSecret is getEnvString without echoing the value
func getEnvSecret(key string) string {
	val := os.Getenv(key)
	if val != "" {
		log.Printf("Config override: %s=****", key)
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	GinMode            string
	CORSAllowOrigins   string

	// Database
	DBDriver                 string
	DBDSN                    string
	TursoDatabaseURL         string
	TursoAuthToken           string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int

	// Editor Sessions
	HistoryLimit        int
	AutosaveDelay       time.Duration
	SessionIdleTimeout  time.Duration
	SessionReapSchedule string
	CleanupVerbose      bool

	// Render Surface
	SurfaceTokenSecret  string
	SurfaceTokenTTL     time.Duration
	SurfaceSendBuffer   int
	BoundaryErrorBuffer int

	// Content
	CMSCacheTTL        time.Duration
	TemplateLibraryDir string
	MediaDir           string

	// Logging
	LogDir    string
	LogLevel  string
	LogJSON   bool
	LogToFile bool

	// Publish Notices
	ResendAPIKey       string
	PublishNotifyEmail string
	EmailFrom          string
	PublicURL          string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	GinMode = getEnvString("GIN_MODE", "")
	CORSAllowOrigins = getEnvString("CORS_ALLOW_ORIGINS", "*")

	// Database
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBDSN = getEnvString("DB_DSN", "data/pagebuilder.db")
	TursoDatabaseURL = getEnvString("TURSO_DATABASE_URL", "")
	TursoAuthToken = getEnvSecret("TURSO_AUTH_TOKEN")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)

	// Editor Sessions
	HistoryLimit = getEnvInt("HISTORY_LIMIT", 50)
	AutosaveDelay = getEnvDuration("AUTOSAVE_DELAY", 2*time.Second)
	SessionIdleTimeout = getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute)
	SessionReapSchedule = getEnvString("SESSION_REAP_SCHEDULE", "@every 5m")
	CleanupVerbose = getEnvBool("CLEANUP_VERBOSE", false)

	// Render Surface
	SurfaceTokenSecret = getEnvSecret("SURFACE_TOKEN_SECRET")
	SurfaceTokenTTL = getEnvDuration("SURFACE_TOKEN_TTL", 12*time.Hour)
	SurfaceSendBuffer = getEnvInt("SURFACE_SEND_BUFFER", 64)
	BoundaryErrorBuffer = getEnvInt("BOUNDARY_ERROR_BUFFER", 100)

	// Content
	CMSCacheTTL = getEnvDuration("CMS_CACHE_TTL", 10*time.Minute)
	TemplateLibraryDir = getEnvString("TEMPLATE_LIBRARY_DIR", "config/templates")
	MediaDir = getEnvString("MEDIA_DIR", "media")

	// Logging
	LogDir = getEnvString("LOG_DIR", "logs")
	LogLevel = getEnvString("LOG_LEVEL", "INFO")
	LogJSON = getEnvBool("LOG_JSON", true)
	LogToFile = getEnvBool("LOG_TO_FILE", false)

	// Publish Notices
	ResendAPIKey = getEnvSecret("RESEND_API_KEY")
	PublishNotifyEmail = getEnvString("PUBLISH_NOTIFY_EMAIL", "")
	EmailFrom = getEnvString("EMAIL_FROM", "")
	PublicURL = getEnvString("PUBLIC_URL", "")
}
