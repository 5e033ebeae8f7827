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

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Log         LogConfig
	Progression ProgressionConfig
	Realtime    RealtimeConfig
	Metrics     MetricsConfig
	CORS        CORSConfig
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

	// ConnectRetries is how many extra pings are attempted at startup.
	ConnectRetries int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ProgressionConfig tunes the reward propagation engine.
type ProgressionConfig struct {
	DefaultXPPerLevel  int
	ClassroomCache     bool
	ClassroomCacheTTL  time.Duration
	Timezone           string
	MaxStudentsPerCall int
}

// Location resolves the configured calendar-day timezone, falling back to UTC.
func (p ProgressionConfig) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RealtimeConfig controls hand-off of stored notifications to the push transport.
type RealtimeConfig struct {
	Enabled       bool
	ChannelPrefix string
	Workers       int
	Retries       int
	RetryDelay    time.Duration
}

// CORSConfig lists the browser origins allowed to call the API. Empty allows any.
type CORSConfig struct {
	AllowedOrigins []string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
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

		ConnectRetries: v.GetInt("DB_CONNECT_RETRIES"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		PoolSize: v.GetInt("REDIS_POOL_SIZE"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	xpPerLevel := v.GetInt("PROGRESSION_DEFAULT_XP_PER_LEVEL")
	if xpPerLevel <= 0 {
		xpPerLevel = 100
	}
	cfg.Progression = ProgressionConfig{
		DefaultXPPerLevel:  xpPerLevel,
		ClassroomCache:     v.GetBool("ENABLE_CLASSROOM_CACHE"),
		ClassroomCacheTTL:  parseDuration(v.GetString("PROGRESSION_CLASSROOM_CACHE_TTL"), 5*time.Minute),
		Timezone:           v.GetString("PROGRESSION_TIMEZONE"),
		MaxStudentsPerCall: v.GetInt("PROGRESSION_MAX_STUDENTS_PER_CALL"),
	}

	cfg.Realtime = RealtimeConfig{
		Enabled:       v.GetBool("ENABLE_REALTIME_NOTIFICATIONS"),
		ChannelPrefix: v.GetString("REALTIME_CHANNEL_PREFIX"),
		Workers:       v.GetInt("REALTIME_WORKERS"),
		Retries:       v.GetInt("REALTIME_RETRIES"),
		RetryDelay:    parseDuration(v.GetString("REALTIME_RETRY_DELAY"), time.Second),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
		Path:    v.GetString("METRICS_PATH"),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "classroom_quest")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONNECT_RETRIES", 3)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 20)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PROGRESSION_DEFAULT_XP_PER_LEVEL", 100)
	v.SetDefault("ENABLE_CLASSROOM_CACHE", false)
	v.SetDefault("PROGRESSION_CLASSROOM_CACHE_TTL", "5m")
	v.SetDefault("PROGRESSION_TIMEZONE", "UTC")
	v.SetDefault("PROGRESSION_MAX_STUDENTS_PER_CALL", 200)

	v.SetDefault("ENABLE_REALTIME_NOTIFICATIONS", false)
	v.SetDefault("REALTIME_CHANNEL_PREFIX", "notifications")
	v.SetDefault("REALTIME_WORKERS", 2)
	v.SetDefault("REALTIME_RETRIES", 3)
	v.SetDefault("REALTIME_RETRY_DELAY", "1s")

	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("METRICS_PATH", "/metrics")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
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
