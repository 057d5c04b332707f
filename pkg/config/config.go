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

	CredentialDB DatabaseConfig
	DomainDB     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Password     PasswordConfig
	Grading      GradingConfig
	Catalog      CatalogConfig
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
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PasswordConfig defines the account password policy.
type PasswordConfig struct {
	MinLength  int
	BcryptCost int
}

// GradingConfig carries process-wide component weights, the valid score
// range and the rounding precision for final scores.
type GradingConfig struct {
	MidtermWeight   float64
	FinalExamWeight float64
	ProjectWeight   float64
	MinScore        float64
	MaxScore        float64
	Precision       int
}

// CatalogConfig tunes the section catalog read cache.
type CatalogConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
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

	cfg.CredentialDB = DatabaseConfig{
		Host:         v.GetString("CRED_DB_HOST"),
		Port:         v.GetInt("CRED_DB_PORT"),
		User:         v.GetString("CRED_DB_USER"),
		Password:     v.GetString("CRED_DB_PASSWORD"),
		Name:         v.GetString("CRED_DB_NAME"),
		SSLMode:      v.GetString("CRED_DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("CRED_DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("CRED_DB_MAX_IDLE_CONNS"),
	}

	cfg.DomainDB = DatabaseConfig{
		Host:         v.GetString("DOMAIN_DB_HOST"),
		Port:         v.GetInt("DOMAIN_DB_PORT"),
		User:         v.GetString("DOMAIN_DB_USER"),
		Password:     v.GetString("DOMAIN_DB_PASSWORD"),
		Name:         v.GetString("DOMAIN_DB_NAME"),
		SSLMode:      v.GetString("DOMAIN_DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DOMAIN_DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DOMAIN_DB_MAX_IDLE_CONNS"),
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
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Password = PasswordConfig{
		MinLength:  v.GetInt("PASSWORD_MIN_LENGTH"),
		BcryptCost: v.GetInt("PASSWORD_BCRYPT_COST"),
	}

	cfg.Grading = GradingConfig{
		MidtermWeight:   v.GetFloat64("GRADE_WEIGHT_MIDTERM"),
		FinalExamWeight: v.GetFloat64("GRADE_WEIGHT_FINAL_EXAM"),
		ProjectWeight:   v.GetFloat64("GRADE_WEIGHT_PROJECT"),
		MinScore:        v.GetFloat64("GRADE_MIN_SCORE"),
		MaxScore:        v.GetFloat64("GRADE_MAX_SCORE"),
		Precision:       v.GetInt("GRADE_PRECISION"),
	}

	cfg.Catalog = CatalogConfig{
		CacheEnabled: v.GetBool("ENABLE_CATALOG_CACHE"),
		CacheTTL:     parseDuration(v.GetString("CATALOG_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("CRED_DB_HOST", "localhost")
	v.SetDefault("CRED_DB_PORT", 5432)
	v.SetDefault("CRED_DB_USER", "postgres")
	v.SetDefault("CRED_DB_PASSWORD", "postgres")
	v.SetDefault("CRED_DB_NAME", "uni_credentials")
	v.SetDefault("CRED_DB_SSL_MODE", "disable")
	v.SetDefault("CRED_DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("CRED_DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("DOMAIN_DB_HOST", "localhost")
	v.SetDefault("DOMAIN_DB_PORT", 5432)
	v.SetDefault("DOMAIN_DB_USER", "postgres")
	v.SetDefault("DOMAIN_DB_PASSWORD", "postgres")
	v.SetDefault("DOMAIN_DB_NAME", "uni_records")
	v.SetDefault("DOMAIN_DB_SSL_MODE", "disable")
	v.SetDefault("DOMAIN_DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DOMAIN_DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "uni-records-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PASSWORD_MIN_LENGTH", 8)
	v.SetDefault("PASSWORD_BCRYPT_COST", 0)

	v.SetDefault("GRADE_WEIGHT_MIDTERM", 0.3)
	v.SetDefault("GRADE_WEIGHT_FINAL_EXAM", 0.4)
	v.SetDefault("GRADE_WEIGHT_PROJECT", 0.3)
	v.SetDefault("GRADE_MIN_SCORE", 0)
	v.SetDefault("GRADE_MAX_SCORE", 100)
	v.SetDefault("GRADE_PRECISION", 2)

	v.SetDefault("ENABLE_CATALOG_CACHE", false)
	v.SetDefault("CATALOG_CACHE_TTL", "5m")
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
