package config

import (
	"errors"
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
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Academic  AcademicConfig
	Campaigns CampaignConfig
	Stats     StatsConfig
	Assigner  AssignerConfig
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

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AcademicConfig holds the institutional calendar parameters. The legacy
// system hardcoded these as module-level tables; here they are configuration
// so a different campus calendar needs no code change.
type AcademicConfig struct {
	// DayStart / DayEnd bound the institutional operating hours used by the
	// reservation validator.
	DayStart string
	DayEnd   string
	// MinReservation is the minimum classroom reservation duration.
	MinReservation time.Duration
	// LabStartOffsetDays is how many days after the semester start laboratory
	// sessions begin.
	LabStartOffsetDays int
	// AttendanceApprovedPct / AttendanceRiskPct classify an enrollment's
	// attendance standing.
	AttendanceApprovedPct float64
	AttendanceRiskPct     float64
}

// CampaignConfig tunes lab enrollment campaigns.
type CampaignConfig struct {
	// DefaultDurationDays is used when an enable request omits a duration.
	DefaultDurationDays int
	// StatusCacheTTL bounds staleness of the campaign status dashboard.
	StatusCacheTTL time.Duration
}

// StatsConfig governs the registrar statistics endpoints.
type StatsConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// AssignerConfig tunes the background direct lab-assignment worker.
type AssignerConfig struct {
	Workers    int
	MaxRetries int
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

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Academic = AcademicConfig{
		DayStart:              v.GetString("ACADEMIC_DAY_START"),
		DayEnd:                v.GetString("ACADEMIC_DAY_END"),
		MinReservation:        parseDuration(v.GetString("ACADEMIC_MIN_RESERVATION"), 60*time.Minute),
		LabStartOffsetDays:    v.GetInt("ACADEMIC_LAB_START_OFFSET_DAYS"),
		AttendanceApprovedPct: v.GetFloat64("ACADEMIC_ATTENDANCE_APPROVED_PCT"),
		AttendanceRiskPct:     v.GetFloat64("ACADEMIC_ATTENDANCE_RISK_PCT"),
	}

	cfg.Campaigns = CampaignConfig{
		DefaultDurationDays: v.GetInt("CAMPAIGN_DEFAULT_DURATION_DAYS"),
		StatusCacheTTL:      parseDuration(v.GetString("CAMPAIGN_STATUS_CACHE_TTL"), time.Minute),
	}

	cfg.Stats = StatsConfig{
		Enabled:  v.GetBool("ENABLE_STATS"),
		CacheTTL: parseDuration(v.GetString("STATS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Assigner = AssignerConfig{
		Workers:    v.GetInt("ASSIGNER_WORKERS"),
		MaxRetries: v.GetInt("ASSIGNER_MAX_RETRIES"),
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
	v.SetDefault("DB_NAME", "sgac")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ACADEMIC_DAY_START", "07:00")
	v.SetDefault("ACADEMIC_DAY_END", "20:10")
	v.SetDefault("ACADEMIC_MIN_RESERVATION", "1h")
	v.SetDefault("ACADEMIC_LAB_START_OFFSET_DAYS", 7)
	v.SetDefault("ACADEMIC_ATTENDANCE_APPROVED_PCT", 70)
	v.SetDefault("ACADEMIC_ATTENDANCE_RISK_PCT", 30)

	v.SetDefault("CAMPAIGN_DEFAULT_DURATION_DAYS", 7)
	v.SetDefault("CAMPAIGN_STATUS_CACHE_TTL", "1m")

	v.SetDefault("ENABLE_STATS", true)
	v.SetDefault("STATS_CACHE_TTL", "10m")

	v.SetDefault("ASSIGNER_WORKERS", 1)
	v.SetDefault("ASSIGNER_MAX_RETRIES", 3)
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
