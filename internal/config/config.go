// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported directory backends.
const (
	DirectoryStatic   = "static"
	DirectorySQLite   = "sqlite"
	DirectoryPostgres = "postgres"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`
	RedisURL       string `mapstructure:"REDIS_URL"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBDSN      string `mapstructure:"DB_DSN"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	AIBaseURL        string `mapstructure:"AI_BASE_URL"`
	AIAPIKey         string `mapstructure:"AI_API_KEY"`
	AITimeoutSeconds int    `mapstructure:"AI_TIMEOUT_SECONDS"`

	MatchReviewSize         int    `mapstructure:"MATCH_REVIEW_SIZE"`
	AutoReplyDelayMS        int    `mapstructure:"AUTO_REPLY_DELAY_MS"`
	AutoReplyText           string `mapstructure:"AUTO_REPLY_TEXT"`
	AnalysisCacheTTLMinutes int    `mapstructure:"ANALYSIS_CACHE_TTL_MINUTES"`
	SessionRateLimit        int    `mapstructure:"SESSION_RATE_LIMIT"`
	SessionIdleTTLMinutes   int    `mapstructure:"SESSION_IDLE_TTL_MINUTES"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("DB_DRIVER", DirectoryStatic)
	viper.SetDefault("DB_DSN", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "silverlink")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("AI_BASE_URL", "")
	viper.SetDefault("AI_API_KEY", "")
	viper.SetDefault("AI_TIMEOUT_SECONDS", 15)
	viper.SetDefault("MATCH_REVIEW_SIZE", 3)
	viper.SetDefault("AUTO_REPLY_DELAY_MS", 2000)
	viper.SetDefault("AUTO_REPLY_TEXT", "很高兴收到你的消息！我们确实有很多共同话题。")
	viper.SetDefault("ANALYSIS_CACHE_TTL_MINUTES", 60)
	viper.SetDefault("SESSION_RATE_LIMIT", 120)
	viper.SetDefault("SESSION_IDLE_TTL_MINUTES", 120)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.DBDriver = strings.ToLower(strings.TrimSpace(config.DBDriver))
	if config.DBDriver == "" {
		config.DBDriver = DirectoryStatic
	}
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and consistent.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	switch c.DBDriver {
	case DirectoryStatic, DirectorySQLite, DirectoryPostgres:
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported", c.DBDriver)
	}
	if c.DBDriver == DirectorySQLite && c.DBDSN == "" {
		return errors.New("DB_DSN is required for the sqlite directory")
	}
	if c.MatchReviewSize <= 0 {
		return errors.New("MATCH_REVIEW_SIZE must be positive")
	}
	if c.AutoReplyDelayMS < 0 {
		return errors.New("AUTO_REPLY_DELAY_MS must not be negative")
	}
	if c.SessionIdleTTLMinutes < 0 {
		return errors.New("SESSION_IDLE_TTL_MINUTES must not be negative")
	}
	if c.AITimeoutSeconds <= 0 {
		return errors.New("AI_TIMEOUT_SECONDS must be positive")
	}
	if c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1 {
		return errors.New("TRACING_SAMPLER_RATIO must be between 0 and 1")
	}

	isProduction := c.Env == "production" || c.Env == "prod"
	if isProduction && c.DBDriver == DirectoryPostgres {
		if c.DBDSN == "" && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable SSL in production")
		}
	}
	if isProduction && c.AllowedOrigins == "*" {
		log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
	}

	return nil
}

// AutoReplyDelay returns the configured auto-reply delay.
func (c *Config) AutoReplyDelay() time.Duration {
	return time.Duration(c.AutoReplyDelayMS) * time.Millisecond
}

// AITimeout returns the per-call timeout for the assistant gateway.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

// AnalysisCacheTTL returns how long assistant responses are cached.
func (c *Config) AnalysisCacheTTL() time.Duration {
	return time.Duration(c.AnalysisCacheTTLMinutes) * time.Minute
}

// SessionIdleTTL returns how long an untouched session is kept. Zero keeps
// sessions until they are deleted.
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleTTLMinutes) * time.Minute
}

// PostgresDSN builds a DSN from the discrete DB_* settings unless DB_DSN is set.
func (c *Config) PostgresDSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
