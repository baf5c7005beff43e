package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, read from the environment.
// Call godotenv.Load before Load so that a local .env file is honoured.
type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	Audit    AuditConfig
	Seed     SeedConfig
}

type ServerConfig struct {
	AppEnv         string
	Port           string
	AllowedOrigins string
}

type LoggerConfig struct {
	Level string
}

type PostgresConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// AuditConfig controls delivery of audit events. An empty broker list
// means events are written to the application log only.
type AuditConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
	BufferSize   int
}

// SeedConfig holds the credentials used by cmd/seed-users.
type SeedConfig struct {
	AdminUsername  string
	AdminPassword  string
	SellerUsername string
	SellerPassword string
}

// IsDevelopment reports whether the process runs with APP_ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development"
}

// Load reads the configuration and checks the values the server cannot start without.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			AppEnv:         getEnv("APP_ENV", "production"),
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Postgres: PostgresConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvInt("DB_MIN_CONNS", 0),
			MaxConnLifetime: time.Duration(getEnvInt("DB_MAX_CONN_LIFETIME", 1800)) * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  time.Duration(getEnvInt("TOKEN_TTL_MINUTES", 60)) * time.Minute,
		},
		Audit: AuditConfig{
			KafkaBrokers: getEnvSlice("KAFKA_BROKERS", nil),
			KafkaTopic:   getEnv("KAFKA_AUDIT_TOPIC", "pos.audit"),
			BufferSize:   getEnvInt("AUDIT_BUFFER", 256),
		},
		Seed: SeedConfig{
			AdminUsername:  getEnv("DEFAULT_ADMIN_USERNAME", "admin"),
			AdminPassword:  getEnv("DEFAULT_ADMIN_PASSWORD", "admin123"),
			SellerUsername: getEnv("DEFAULT_SELLER_USERNAME", "seller"),
			SellerPassword: getEnv("DEFAULT_SELLER_PASSWORD", "seller123"),
		},
	}

	if cfg.Postgres.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.Auth.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET environment variable not set")
		}
		cfg.Auth.JWTSecret = "dev-only-secret"
	}
	if cfg.Audit.BufferSize <= 0 {
		cfg.Audit.BufferSize = 1
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
