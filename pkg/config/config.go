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

// Cache drivers.
const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	TimeGrid      TimeGridConfig
	Enrollment    EnrollmentConfig
	SemesterClose SemesterCloseConfig
	Cache         CacheConfig
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
	AutoMigrate  bool
}

// RedisConfig locates the catalog cache. URL, when set, wins over the
// discrete fields.
type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TimeGridConfig carries the raw grid constants. Clock values stay as HH:MM
// strings here and are parsed by the timegrid package at startup.
type TimeGridConfig struct {
	WindowStart     string
	WindowEnd       string
	MeetingDuration time.Duration
	SlotGap         time.Duration
	BlockedStart    string
	BlockedEnd      string
}

// EnrollmentConfig toggles enrollment policies layered on top of the gate.
type EnrollmentConfig struct {
	EnforceWindow   bool
	EnforceCapacity bool
}

// SemesterCloseConfig configures the asynchronous close runner and its report artifacts.
type SemesterCloseConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	ReportFormat      string
	WorkerConcurrency int
	WorkerRetries     int
}

// CacheConfig selects the catalog cache backend.
type CacheConfig struct {
	Driver     string
	CatalogTTL time.Duration
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		URL:      v.GetString("REDIS_URL"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.TimeGrid = TimeGridConfig{
		WindowStart:     v.GetString("TIMEGRID_WINDOW_START"),
		WindowEnd:       v.GetString("TIMEGRID_WINDOW_END"),
		MeetingDuration: parseDuration(v.GetString("TIMEGRID_MEETING_DURATION"), 50*time.Minute),
		SlotGap:         parseDuration(v.GetString("TIMEGRID_SLOT_GAP"), 10*time.Minute),
		BlockedStart:    v.GetString("TIMEGRID_BLOCKED_START"),
		BlockedEnd:      v.GetString("TIMEGRID_BLOCKED_END"),
	}

	cfg.Enrollment = EnrollmentConfig{
		EnforceWindow:   v.GetBool("ENROLLMENT_ENFORCE_WINDOW"),
		EnforceCapacity: v.GetBool("ENROLLMENT_ENFORCE_CAPACITY"),
	}

	cfg.SemesterClose = SemesterCloseConfig{
		StorageDir:        v.GetString("SEMESTER_CLOSE_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("SEMESTER_CLOSE_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("SEMESTER_CLOSE_SIGNED_URL_TTL"), 24*time.Hour),
		ReportFormat:      strings.ToLower(v.GetString("SEMESTER_CLOSE_REPORT_FORMAT")),
		WorkerConcurrency: v.GetInt("SEMESTER_CLOSE_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("SEMESTER_CLOSE_WORKER_RETRIES"),
	}

	cfg.Cache = CacheConfig{
		Driver:     strings.ToLower(v.GetString("CACHE_DRIVER")),
		CatalogTTL: parseDuration(v.GetString("CACHE_CATALOG_TTL"), 10*time.Minute),
	}

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
	v.SetDefault("DB_NAME", "course_scheduling")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMEGRID_WINDOW_START", "08:00")
	v.SetDefault("TIMEGRID_WINDOW_END", "20:00")
	v.SetDefault("TIMEGRID_MEETING_DURATION", "50m")
	v.SetDefault("TIMEGRID_SLOT_GAP", "10m")
	v.SetDefault("TIMEGRID_BLOCKED_START", "11:50")
	v.SetDefault("TIMEGRID_BLOCKED_END", "13:00")

	v.SetDefault("ENROLLMENT_ENFORCE_WINDOW", true)
	v.SetDefault("ENROLLMENT_ENFORCE_CAPACITY", true)

	v.SetDefault("SEMESTER_CLOSE_STORAGE_DIR", "./close-reports")
	v.SetDefault("SEMESTER_CLOSE_SIGNED_URL_SECRET", "dev_close_reports_secret")
	v.SetDefault("SEMESTER_CLOSE_SIGNED_URL_TTL", "24h")
	v.SetDefault("SEMESTER_CLOSE_REPORT_FORMAT", "csv")
	v.SetDefault("SEMESTER_CLOSE_WORKER_CONCURRENCY", 1)
	v.SetDefault("SEMESTER_CLOSE_WORKER_RETRIES", 3)

	v.SetDefault("CACHE_DRIVER", CacheDriverRedis)
	v.SetDefault("CACHE_CATALOG_TTL", "10m")
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
