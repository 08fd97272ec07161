package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/yigit/classroom/internal/pkg/helpers"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port    string `yaml:"port" toml:"port" env:"SERVER_PORT"`
		Mode    string `yaml:"mode" toml:"mode" env:"SERVER_MODE"`
		BaseURL string `yaml:"base_url" toml:"base_url" env:"SERVER_BASE_URL"`
	} `yaml:"server" toml:"server"`

	Database struct {
		Host            string `yaml:"host" toml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" toml:"port" env:"DB_PORT"`
		User            string `yaml:"user" toml:"user" env:"DB_USER"`
		Password        string `yaml:"password" toml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" toml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" toml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" toml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" toml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" toml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" toml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`

		// SlowQueryThreshold logs queries running longer at warn level
		SlowQueryThreshold string `yaml:"slow_query_threshold" toml:"slow_query_threshold" env:"DB_SLOW_QUERY_THRESHOLD"`
	} `yaml:"database" toml:"database"`

	Redis struct {
		Addr     string `yaml:"addr" toml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" toml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" toml:"db" env:"REDIS_DB"`
	} `yaml:"redis" toml:"redis"`

	JWT struct {
		Secret                string `yaml:"secret" toml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" toml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" toml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt" toml:"jwt"`

	Google struct {
		ClientID        string `yaml:"client_id" toml:"client_id" env:"GOOGLE_CLIENT_ID"`
		ClientSecret    string `yaml:"client_secret" toml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
		RedirectURL     string `yaml:"redirect_url" toml:"redirect_url" env:"GOOGLE_REDIRECT_URL"`
		ApplicationName string `yaml:"application_name" toml:"application_name" env:"GOOGLE_APPLICATION_NAME"`
		CourseCacheTTL  string `yaml:"course_cache_ttl" toml:"course_cache_ttl" env:"GOOGLE_COURSE_CACHE_TTL"`
	} `yaml:"google" toml:"google"`

	Rollbar struct {
		Token       string `yaml:"token" toml:"token" env:"ROLLBAR_TOKEN"`
		Environment string `yaml:"environment" toml:"environment" env:"ROLLBAR_ENVIRONMENT"`
		CodeVersion string `yaml:"code_version" toml:"code_version" env:"ROLLBAR_CODE_VERSION"`
	} `yaml:"rollbar" toml:"rollbar"`

	Features struct {
		StudentIdentifiers bool `yaml:"student_identifiers" toml:"student_identifiers" env:"FEATURE_STUDENT_IDENTIFIERS"`
		GoogleClassroom    bool `yaml:"google_classroom" toml:"google_classroom" env:"FEATURE_GOOGLE_CLASSROOM"`
	} `yaml:"features" toml:"features"`

	Seed struct {
		Demo bool `yaml:"demo" toml:"demo" env:"SEED_DEMO"`
	} `yaml:"seed" toml:"seed"`

	Logging struct {
		Level  string `yaml:"level" toml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" toml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging" toml:"logging"`
}

// LoadConfig loads configuration from a file, a .env file next to the working
// directory and environment variables, in that order of precedence (lowest first).
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := decodeConfigFile(configPath, file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env is optional; values already exported in the environment win
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// decodeConfigFile picks the decoder from the file extension
func decodeConfigFile(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, config)
	default:
		return yaml.Unmarshal(data, config)
	}
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.BaseURL = "http://localhost:8080"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "classroom"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"
	config.Database.SlowQueryThreshold = "500ms"

	config.JWT.AccessTokenExpiration = "12h"
	config.JWT.Issuer = "classroom.app"

	config.Google.ApplicationName = "GitHub Classroom"
	config.Google.CourseCacheTTL = "5m"

	config.Rollbar.Environment = "development"

	config.Features.StudentIdentifiers = true

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := helpers.ParsePositiveDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if _, err := helpers.ParsePositiveDuration(config.Database.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid database connection max lifetime: %w", err)
	}

	if config.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database max_open_conns must be at least 1")
	}

	if config.Features.GoogleClassroom && (config.Google.ClientID == "" || config.Google.ClientSecret == "") {
		return fmt.Errorf("google client id and secret are required when google classroom is enabled")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Server.Mode) == "production"
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
