package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Tracker      TrackerConfig
	Storage      StorageConfig
	Sync         SyncConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// TrackerConfig holds credentials and endpoints for the external issue
// tracker. The tracker is not owned by this service and can be slow, so
// every call is bounded by TimeoutSeconds.
type TrackerConfig struct {
	BaseURL        string
	Email          string
	APIToken       string
	ProjectKey     string
	TicketIDField  string
	TimeoutSeconds int
}

// StorageConfig points at the internal object store holding attachment bytes.
type StorageConfig struct {
	BaseURL        string
	Bucket         string
	TimeoutSeconds int
}

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	RefreshAllDelayMillis int
	RefreshAllLimit       int
	StatsCacheTTLSeconds  int
}

// NotificationConfig enables the notification stubs when set.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-bridge"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Tracker: TrackerConfig{
			BaseURL:        strings.TrimRight(getEnv("TRACKER_BASE_URL", ""), "/"),
			Email:          strings.TrimSpace(getEnv("TRACKER_EMAIL", "")),
			APIToken:       strings.TrimSpace(getEnv("TRACKER_API_TOKEN", "")),
			ProjectKey:     getEnv("TRACKER_PROJECT_KEY", "OD"),
			TicketIDField:  getEnv("TRACKER_TICKET_ID_FIELD", "customfield_10001"),
			TimeoutSeconds: getEnvAsInt("TRACKER_TIMEOUT_SECONDS", 15),
		},
		Storage: StorageConfig{
			BaseURL:        strings.TrimRight(getEnv("STORAGE_BASE_URL", ""), "/"),
			Bucket:         getEnv("STORAGE_BUCKET", "ticket-attachments"),
			TimeoutSeconds: getEnvAsInt("STORAGE_TIMEOUT_SECONDS", 30),
		},
		Sync: SyncConfig{
			RefreshAllDelayMillis: getEnvAsInt("SYNC_REFRESH_ALL_DELAY_MILLIS", 500),
			RefreshAllLimit:       getEnvAsInt("SYNC_REFRESH_ALL_LIMIT", 50),
			StatsCacheTTLSeconds:  getEnvAsInt("SYNC_STATS_CACHE_TTL_SECONDS", 60),
		},
		Notification: NotificationConfig{
			WebhookURL: os.Getenv("NOTIFICATION_WEBHOOK_URL"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call timeout for tracker requests.
func (t TrackerConfig) Timeout() time.Duration {
	if t.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// Timeout returns the per-call timeout for object store requests.
func (s StorageConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RefreshAllDelay returns the pause between tickets during a bulk refresh.
func (s SyncConfig) RefreshAllDelay() time.Duration {
	if s.RefreshAllDelayMillis <= 0 {
		return 0
	}
	return time.Duration(s.RefreshAllDelayMillis) * time.Millisecond
}

// StatsCacheTTL returns how long dashboard aggregations stay cached.
func (s SyncConfig) StatsCacheTTL() time.Duration {
	if s.StatsCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(s.StatsCacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
