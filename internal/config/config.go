// Package config provides centralized configuration management for the
// discrepancy finder. It loads configuration from environment variables
// (optionally seeded from a .env file) with sensible defaults and validates
// all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Pipeline PipelineConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// DATABASE_URL is accepted as a fallback
	URL string `env:"DF_DATABASE_URL" envAlt:"DATABASE_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DF_DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DF_DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DF_DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DF_DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ConnectTimeout bounds the initial connect and ping (default: 5s)
	ConnectTimeout time.Duration `env:"DF_DB_CONNECT_TIMEOUT" default:"5s"`
}

// PipelineConfig holds settings for a detection run.
type PipelineConfig struct {
	// BatchSize is the number of documents persisted per store round-trip (default: 100)
	BatchSize int `env:"DF_BATCH_SIZE" default:"100"`

	// RulesFile is a YAML rule set; empty selects the default rules
	RulesFile string `env:"DF_RULES_FILE"`

	// FilePattern selects the input files in the directory (default: *.html)
	FilePattern string `env:"DF_FILE_PATTERN" default:"*.html"`

	// RunTimeout bounds a whole run (default: 10m)
	RunTimeout time.Duration `env:"DF_RUN_TIMEOUT" default:"10m"`
}

// ServerConfig holds settings for the inspection API.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"DF_SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"DF_SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"DF_SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"DF_SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"DF_SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"DF_SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"DF_SERVER_REQUEST_TIMEOUT" default:"30s"`

	// TrustedProxies is a comma-separated list of CIDRs or IPs whose
	// X-Real-IP / X-Forwarded-For headers are believed (default: none)
	TrustedProxies string `env:"DF_TRUSTED_PROXIES"`

	// APIKeys is a comma-separated list of keys accepted in X-API-Key on
	// /api routes; empty leaves the API open (default: none)
	APIKeys string `env:"DF_API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"DF_LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"DF_LOG_FORMAT" default:"text"`
}

// TrustedProxyList splits TrustedProxies into its entries.
func (c *ServerConfig) TrustedProxyList() []string {
	return splitList(c.TrustedProxies)
}

// APIKeyList splits APIKeys into its entries.
func (c *ServerConfig) APIKeyList() []string {
	return splitList(c.APIKeys)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
