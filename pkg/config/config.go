package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env         string
	MetricsPort int

	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Analytics AnalyticsConfig
	Reports   ReportsConfig
	Job       JobConfig
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

type LogConfig struct {
	Level  string
	Format string
}

// AnalyticsConfig carries every tunable threshold the metrics and alert
// engines recognise. Defaults match the agreed institutional policy; all
// values are validated once at load so calculators never re-check them.
type AnalyticsConfig struct {
	WeeklyPaceTarget     float64 `validate:"gt=0"`
	StagnationDays       int     `validate:"gt=0"`
	AtRiskScore          float64 `validate:"gte=0,lte=100"`
	OvercapacityPct      float64 `validate:"gt=0,lte=100"`
	MissedSessions       int     `validate:"gt=0"`
	AtRiskConcentration  int     `validate:"gt=0"`
	CancellationsPerWeek float64 `validate:"gt=0"`
	PaceDropPct          float64 `validate:"gt=0,lte=100"`
	CacheEnabled         bool
	CacheTTL             time.Duration
}

// ReportsConfig controls the daily report export supplement. RetentionDays
// bounds how long written artifacts are kept; zero disables pruning.
type ReportsConfig struct {
	Enabled       bool
	StorageDir    string
	RetentionDays int
}

// JobConfig tunes the retry behaviour of the aggregation runner.
type JobConfig struct {
	MaxRetries int
	RetryDelay time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.MetricsPort = v.GetInt("METRICS_PORT")

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

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Analytics = AnalyticsConfig{
		WeeklyPaceTarget:     v.GetFloat64("ANALYTICS_WEEKLY_PACE_TARGET"),
		StagnationDays:       v.GetInt("ANALYTICS_STAGNATION_DAYS"),
		AtRiskScore:          v.GetFloat64("ANALYTICS_AT_RISK_SCORE"),
		OvercapacityPct:      v.GetFloat64("ANALYTICS_OVERCAPACITY_PCT"),
		MissedSessions:       v.GetInt("ANALYTICS_MISSED_SESSIONS"),
		AtRiskConcentration:  v.GetInt("ANALYTICS_AT_RISK_CONCENTRATION"),
		CancellationsPerWeek: v.GetFloat64("ANALYTICS_CANCELLATIONS_PER_WEEK"),
		PaceDropPct:          v.GetFloat64("ANALYTICS_PACE_DROP_PCT"),
		CacheEnabled:         v.GetBool("ANALYTICS_CACHE_ENABLED"),
		CacheTTL:             parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Reports = ReportsConfig{
		Enabled:       v.GetBool("ENABLE_REPORTS"),
		StorageDir:    v.GetString("REPORTS_STORAGE_DIR"),
		RetentionDays: v.GetInt("REPORTS_RETENTION_DAYS"),
	}

	cfg.Job = JobConfig{
		MaxRetries: v.GetInt("JOB_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOB_RETRY_DELAY"), 30*time.Second),
	}

	if err := validator.New().Struct(cfg.Analytics); err != nil {
		return nil, fmt.Errorf("invalid analytics thresholds: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("METRICS_PORT", 9091)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tahfiz_analytics")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ANALYTICS_WEEKLY_PACE_TARGET", 5.0)
	v.SetDefault("ANALYTICS_STAGNATION_DAYS", 7)
	v.SetDefault("ANALYTICS_AT_RISK_SCORE", 50.0)
	v.SetDefault("ANALYTICS_OVERCAPACITY_PCT", 95.0)
	v.SetDefault("ANALYTICS_MISSED_SESSIONS", 3)
	v.SetDefault("ANALYTICS_AT_RISK_CONCENTRATION", 5)
	v.SetDefault("ANALYTICS_CANCELLATIONS_PER_WEEK", 3.0)
	v.SetDefault("ANALYTICS_PACE_DROP_PCT", 30.0)
	v.SetDefault("ANALYTICS_CACHE_ENABLED", false)
	v.SetDefault("ANALYTICS_CACHE_TTL", "10m")

	v.SetDefault("ENABLE_REPORTS", false)
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_RETENTION_DAYS", 90)

	v.SetDefault("JOB_MAX_RETRIES", 3)
	v.SetDefault("JOB_RETRY_DELAY", "30s")
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
