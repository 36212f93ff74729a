package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port"`
	AppEnv      string `yaml:"app_env"`
	BaseURL     string `yaml:"base_url"`
	FrontendURL string `yaml:"frontend_url"`

	// StoreBackend selects the primitive store: redis, sqlite or memory
	StoreBackend  string `yaml:"store_backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	DatabaseURL   string `yaml:"database_url"`

	GoogleClientID     string   `yaml:"google_client_id"`
	GoogleClientSecret string   `yaml:"google_client_secret"`
	GoogleRedirectURL  string   `yaml:"google_redirect_url"`
	JWTSecret          string   `yaml:"jwt_secret"`
	AllowedEmails      []string `yaml:"allowed_emails"`
	AuthTestMode       bool     `yaml:"auth_test_mode"` // enables the password-less test login

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	CompleteMinLength  int   `yaml:"complete_min_length"`
	CompleteMaxResults int   `yaml:"complete_max_results"`
	CompletePageSize   int64 `yaml:"complete_page_size"`
}

func defaults() *Config {
	return &Config{
		Port:               "8080",
		AppEnv:             "local",
		BaseURL:            "http://localhost:8080",
		FrontendURL:        "http://localhost:8080/",
		StoreBackend:       "sqlite",
		RedisAddr:          "localhost:6379",
		DatabaseURL:        "file:db.sqlite",
		GoogleRedirectURL:  "http://localhost:8080/auth/google/callback",
		JWTSecret:          "secret",
		LogLevel:           "info",
		LogFormat:          "text",
		CompleteMinLength:  2,
		CompleteMaxResults: 10,
		CompletePageSize:   25,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.BaseURL = getEnv("BASE_URL", c.BaseURL)
	c.FrontendURL = getEnv("FRONTEND_URL", c.FrontendURL)
	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", c.GoogleClientID)
	c.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.GoogleClientSecret)
	c.GoogleRedirectURL = getEnv("GOOGLE_REDIRECT_URL", c.GoogleRedirectURL)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	if v, ok := os.LookupEnv("ALLOWED_EMAILS"); ok {
		c.AllowedEmails = splitList(v)
	}

	var err error
	if c.RedisDB, err = getEnvInt("REDIS_DB", c.RedisDB); err != nil {
		return err
	}
	if c.AuthTestMode, err = getEnvBool("AUTH_TEST_MODE", c.AuthTestMode); err != nil {
		return err
	}
	if c.CompleteMinLength, err = getEnvInt("COMPLETE_MIN_LENGTH", c.CompleteMinLength); err != nil {
		return err
	}
	if c.CompleteMaxResults, err = getEnvInt("COMPLETE_MAX_RESULTS", c.CompleteMaxResults); err != nil {
		return err
	}
	pageSize, err := getEnvInt("COMPLETE_PAGE_SIZE", int(c.CompletePageSize))
	if err != nil {
		return err
	}
	c.CompletePageSize = int64(pageSize)
	return nil
}

// IsProduction reports whether cookies must be marked secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
