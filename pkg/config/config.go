package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Log       LogConfig
	Solver    SolverConfig
	Poller    PollerConfig
	Cache     CacheConfig
	Snapshots SnapshotConfig
	Upload    UploadConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig gates bearer-token verification on submission routes.
type AuthConfig struct {
	Enabled bool
	Secret  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SolverConfig points at the external timetable solving service.
type SolverConfig struct {
	BaseURL            string
	Timeout            time.Duration
	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration
}

// PollerConfig tunes the solution poll loop.
type PollerConfig struct {
	RetryDelay      time.Duration
	NamespacePrefix string
}

// CacheConfig governs the Redis copy of loaded solution payloads.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// SnapshotConfig governs Postgres persistence of loaded solutions.
type SnapshotConfig struct {
	Enabled bool
	Workers int
	Retries int
}

// UploadConfig bounds multipart CSV submissions.
type UploadConfig struct {
	MaxSizeBytes int64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Auth = AuthConfig{
		Enabled: v.GetBool("ENABLE_AUTH"),
		Secret:  v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	failures := v.GetInt("SOLVER_BREAKER_FAILURES")
	if failures <= 0 {
		failures = 5
	}
	cfg.Solver = SolverConfig{
		BaseURL:            strings.TrimRight(v.GetString("SOLVER_BASE_URL"), "/"),
		Timeout:            parseDuration(v.GetString("SOLVER_TIMEOUT"), 10*time.Second),
		BreakerFailures:    uint32(failures),
		BreakerOpenTimeout: parseDuration(v.GetString("SOLVER_BREAKER_OPEN_TIMEOUT"), 30*time.Second),
	}

	cfg.Poller = PollerConfig{
		RetryDelay:      parseDuration(v.GetString("POLL_RETRY_DELAY"), 500*time.Millisecond),
		NamespacePrefix: v.GetString("CONSTRAINT_NAMESPACE_PREFIX"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_SOLUTION_CACHE"),
		TTL:     parseDuration(v.GetString("SOLUTION_CACHE_TTL"), 24*time.Hour),
	}

	cfg.Snapshots = SnapshotConfig{
		Enabled: v.GetBool("ENABLE_SNAPSHOTS"),
		Workers: v.GetInt("SNAPSHOT_WORKERS"),
		Retries: v.GetInt("SNAPSHOT_RETRIES"),
	}

	maxUpload := v.GetInt64("MAX_UPLOAD_SIZE")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Upload = UploadConfig{MaxSizeBytes: maxUpload}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable_viewer")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ENABLE_AUTH", false)
	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SOLVER_BASE_URL", "http://localhost:8081/api/timetable")
	v.SetDefault("SOLVER_TIMEOUT", "10s")
	v.SetDefault("SOLVER_BREAKER_FAILURES", 5)
	v.SetDefault("SOLVER_BREAKER_OPEN_TIMEOUT", "30s")

	v.SetDefault("POLL_RETRY_DELAY", "500ms")
	v.SetDefault("CONSTRAINT_NAMESPACE_PREFIX", "com.schoolplanner.timetable.domain.")

	v.SetDefault("ENABLE_SOLUTION_CACHE", false)
	v.SetDefault("SOLUTION_CACHE_TTL", "24h")

	v.SetDefault("ENABLE_SNAPSHOTS", false)
	v.SetDefault("SNAPSHOT_WORKERS", 1)
	v.SetDefault("SNAPSHOT_RETRIES", 3)

	v.SetDefault("MAX_UPLOAD_SIZE", 10*1024*1024)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
