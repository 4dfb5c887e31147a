package config

import (
	"errors"
	"fmt"
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
	CORS      CORSConfig
	Log       LogConfig
	Timetable TimetableConfig
	MassEvent MassEventConfig
	GridCache GridCacheConfig
	Exports   ExportsConfig
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TimetableConfig shapes the weekly grid every class timetable is drawn on.
type TimetableConfig struct {
	GridStart   string
	GridEnd     string
	SlotMinutes int
	Days        []string
}

// MassEventConfig overrides the day parts used by bulk mass events.
type MassEventConfig struct {
	WholeDay    Window
	AM          Window
	PM          Window
	SlotMinutes int
}

// Window is a "HH:MM-HH:MM" range split into its bounds.
type Window struct {
	Start string
	End   string
}

// GridCacheConfig governs Redis caching of rendered class grids.
type GridCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ExportsConfig configures asynchronous timetable exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupSchedule   string
	WorkerConcurrency int
	WorkerRetries     int
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
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Timetable = TimetableConfig{
		GridStart:   v.GetString("TIMETABLE_GRID_START"),
		GridEnd:     v.GetString("TIMETABLE_GRID_END"),
		SlotMinutes: v.GetInt("TIMETABLE_SLOT_MINUTES"),
		Days:        splitAndTrim(v.GetString("TIMETABLE_DAYS")),
	}

	massEvent, err := loadMassEvent(v)
	if err != nil {
		return nil, err
	}
	cfg.MassEvent = massEvent

	cfg.GridCache = GridCacheConfig{
		Enabled: v.GetBool("ENABLE_GRID_CACHE"),
		TTL:     parseDuration(v.GetString("GRID_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupSchedule:   v.GetString("EXPORTS_CLEANUP_SCHEDULE"),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
	}

	return cfg, nil
}

func loadMassEvent(v *viper.Viper) (MassEventConfig, error) {
	whole, err := parseWindow(v.GetString("MASS_EVENT_WHOLE_DAY"))
	if err != nil {
		return MassEventConfig{}, fmt.Errorf("MASS_EVENT_WHOLE_DAY: %w", err)
	}
	am, err := parseWindow(v.GetString("MASS_EVENT_AM"))
	if err != nil {
		return MassEventConfig{}, fmt.Errorf("MASS_EVENT_AM: %w", err)
	}
	pm, err := parseWindow(v.GetString("MASS_EVENT_PM"))
	if err != nil {
		return MassEventConfig{}, fmt.Errorf("MASS_EVENT_PM: %w", err)
	}
	return MassEventConfig{
		WholeDay:    whole,
		AM:          am,
		PM:          pm,
		SlotMinutes: v.GetInt("MASS_EVENT_SLOT_MINUTES"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMETABLE_GRID_START", "07:00")
	v.SetDefault("TIMETABLE_GRID_END", "17:00")
	v.SetDefault("TIMETABLE_SLOT_MINUTES", 60)
	v.SetDefault("TIMETABLE_DAYS", "Monday,Tuesday,Wednesday,Thursday,Friday")

	v.SetDefault("MASS_EVENT_WHOLE_DAY", "07:00-17:00")
	v.SetDefault("MASS_EVENT_AM", "07:00-12:00")
	v.SetDefault("MASS_EVENT_PM", "12:00-17:00")
	v.SetDefault("MASS_EVENT_SLOT_MINUTES", 60)

	v.SetDefault("ENABLE_GRID_CACHE", false)
	v.SetDefault("GRID_CACHE_TTL", "10m")

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_SCHEDULE", "@every 1h")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)
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

func parseWindow(raw string) (Window, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "-", 2)
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("expected HH:MM-HH:MM, got %q", raw)
	}
	return Window{Start: strings.TrimSpace(parts[0]), End: strings.TrimSpace(parts[1])}, nil
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
