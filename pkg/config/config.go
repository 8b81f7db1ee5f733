// Package config loads the portal's configuration from environment
// variables. Static access tables are compiled in; everything tunable at
// deploy time lives here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/qrmfg/portal/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	Authz         AuthzConfig
	Cache         CacheConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig holds authentication collaborator settings
type AuthConfig struct {
	IssuerURL string
	ClientID  string

	// Claim keys carrying role and plant assignments
	RolesClaim        string
	PlantsClaim       string
	PrimaryPlantClaim string
	PrimaryRoleClaim  string
}

// AuthzConfig holds remote authorization endpoint settings
type AuthzConfig struct {
	Endpoint          string
	RemoteTimeout     time.Duration
	DecisionTTL       time.Duration
	DecisionCacheSize int
}

// CacheConfig holds response cache settings
type CacheConfig struct {
	RedisAddr string
	RedisDB   int
	Prefix    string
	TTL       time.Duration
}

// AuditConfig holds decision audit trail settings
type AuditConfig struct {
	DatabasePath string
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("QRMFG_HOST", "0.0.0.0"),
			Port:            getEnv("QRMFG_PORT", "8080"),
			ReadTimeout:     getEnvDuration("QRMFG_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("QRMFG_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("QRMFG_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("QRMFG_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			IssuerURL:         getEnv("QRMFG_OIDC_ISSUER", ""),
			ClientID:          getEnv("QRMFG_OIDC_CLIENT_ID", "qrmfg-portal"),
			RolesClaim:        getEnv("QRMFG_CLAIM_ROLES", "roles"),
			PlantsClaim:       getEnv("QRMFG_CLAIM_PLANTS", "plants"),
			PrimaryPlantClaim: getEnv("QRMFG_CLAIM_PRIMARY_PLANT", "primary_plant"),
			PrimaryRoleClaim:  getEnv("QRMFG_CLAIM_PRIMARY_ROLE", "primary_role"),
		},
		Authz: AuthzConfig{
			Endpoint:          getEnv("QRMFG_AUTHZ_ENDPOINT", ""),
			RemoteTimeout:     getEnvDuration("QRMFG_AUTHZ_TIMEOUT", 10*time.Second),
			DecisionTTL:       getEnvDuration("QRMFG_DECISION_TTL", 5*time.Minute),
			DecisionCacheSize: getEnvInt("QRMFG_DECISION_CACHE_SIZE", 256),
		},
		Cache: CacheConfig{
			RedisAddr: getEnv("QRMFG_REDIS_ADDR", "localhost:6379"),
			RedisDB:   getEnvInt("QRMFG_REDIS_DB", 0),
			Prefix:    getEnv("QRMFG_CACHE_PREFIX", "qrmfg"),
			TTL:       getEnvDuration("QRMFG_CACHE_TTL", time.Minute),
		},
		Audit: AuditConfig{
			DatabasePath: getEnv("QRMFG_AUDIT_DB", "qrmfg-audit.db"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("QRMFG_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("QRMFG_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Authz.DecisionTTL <= 0 {
		return fmt.Errorf("decision TTL must be positive")
	}
	if c.Authz.RemoteTimeout <= 0 {
		return fmt.Errorf("remote authorization timeout must be positive")
	}
	if c.Authz.DecisionCacheSize <= 0 {
		return fmt.Errorf("decision cache size must be positive")
	}
	return nil
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration returns an environment variable parsed as a duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvInt returns an environment variable parsed as an integer
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool returns an environment variable parsed as a boolean
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
