package config

import (
	"errors"
	"fmt"
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
	Access    AccessConfig
	Results   ResultsConfig
	Narrative NarrativeConfig
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
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AccessConfig governs session classification: the shared teacher
// management pin and the partition the teacher's grade records live in.
type AccessConfig struct {
	TeacherPin       string
	GradePartitionID string
}

// ResultsConfig tunes caching of derived exam views.
type ResultsConfig struct {
	CacheTTL time.Duration
}

// NarrativeConfig points at the external commentary generator.
type NarrativeConfig struct {
	Enabled     bool
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
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
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Access = AccessConfig{
		TeacherPin:       v.GetString("TEACHER_PIN"),
		GradePartitionID: v.GetString("GRADE_PARTITION_ID"),
	}

	cfg.Results = ResultsConfig{
		CacheTTL: parseDuration(v.GetString("RESULTS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Narrative = NarrativeConfig{
		Enabled:     v.GetBool("NARRATIVE_ENABLED"),
		BaseURL:     v.GetString("NARRATIVE_BASE_URL"),
		Timeout:     parseDuration(v.GetString("NARRATIVE_TIMEOUT"), 30*time.Second),
		MaxAttempts: v.GetInt("NARRATIVE_MAX_ATTEMPTS"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces startup-fatal requirements: store credentials and the
// teacher management pin must be present before any session can start.
func (c *Config) validate() error {
	if c.Database.User == "" || c.Database.Name == "" {
		return fmt.Errorf("database credentials missing (DB_USER, DB_NAME)")
	}
	if len(c.Access.TeacherPin) != 6 {
		return fmt.Errorf("TEACHER_PIN must be exactly 6 digits")
	}
	for _, r := range c.Access.TeacherPin {
		if r < '0' || r > '9' {
			return fmt.Errorf("TEACHER_PIN must be exactly 6 digits")
		}
	}
	if c.Access.GradePartitionID == "" {
		return fmt.Errorf("GRADE_PARTITION_ID missing")
	}
	if c.Env == EnvProduction && c.JWT.Secret == "dev_secret" {
		return fmt.Errorf("JWT_SECRET must be overridden in production")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "classmark")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TEACHER_PIN", "000000")
	v.SetDefault("GRADE_PARTITION_ID", "default")

	v.SetDefault("RESULTS_CACHE_TTL", "5m")

	v.SetDefault("NARRATIVE_ENABLED", false)
	v.SetDefault("NARRATIVE_BASE_URL", "")
	v.SetDefault("NARRATIVE_TIMEOUT", "30s")
	v.SetDefault("NARRATIVE_MAX_ATTEMPTS", 5)
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
