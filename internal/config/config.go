package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Remote  RemoteConfig
	Index   IndexConfig
	Device  DeviceConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
	EventTopic         string
	ScopeIdleTTL       time.Duration
}

// RemoteConfig points at the service that owns chat sessions.
type RemoteConfig struct {
	BaseURL       string
	VerifyTimeout time.Duration
}

type IndexConfig struct {
	Driver     string // "file" | "memory" | "redis" | "postgres" | "sqlite" | "badger"
	Dir        string
	DSN        string
	KeyPrefix  string
	MemoryTTL  time.Duration
	SqlitePath string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

// DeviceConfig is only read by the terminal client.
type DeviceConfig struct {
	ID    string
	Token string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/paperchat.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			EventTopic:         getEnv("SESSION_EVENT_TOPIC", "SESSION_LIST"),
			ScopeIdleTTL:       getEnvAsDuration("SCOPE_IDLE_TTL", 30*time.Minute),
		},
		Remote: RemoteConfig{
			BaseURL:       getEnv("REMOTE_BASE_URL", "http://localhost:8000"),
			VerifyTimeout: getEnvAsDuration("REMOTE_VERIFY_TIMEOUT", 3*time.Second),
		},
		Index: IndexConfig{
			Driver:     getEnv("INDEX_DRIVER", "file"),
			Dir:        getEnv("INDEX_DIR", ".paperchat"),
			DSN:        getEnv("DB_CONNECTION_STRING", ""),
			KeyPrefix:  getEnv("INDEX_KEY_PREFIX", "paperchat:index:"),
			MemoryTTL:  getEnvAsDuration("INDEX_MEMORY_TTL", 0),
			SqlitePath: getEnv("INDEX_SQLITE_PATH", ".paperchat/index.db"),
		},
		Device: DeviceConfig{
			ID:    getEnv("DEVICE_ID", ""),
			Token: getEnv("REMOTE_TOKEN", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("1500ms", "3s") or a bare number of
// milliseconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if ms := getEnvAsInt(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
