package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the configuration for the changelog service.
// Keys are read without a prefix and use "__" between sections,
// e.g. DB__URL, HTTP__PORT, CHANGELOG__EMPTY_AS_NOT_FOUND.
type Config struct {
	Debug       bool        `envconfig:"DEBUG" default:"false"`
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// Build target selects the default driver: local, cloud
	BuildTarget string `envconfig:"BUILD_TARGET" default:"cloud"`

	// HTTP Configuration
	HTTPHost  string `envconfig:"HTTP__HOST" default:"0.0.0.0"`
	HTTPPort  int    `envconfig:"HTTP__PORT" default:"8080"`
	APIPrefix string `envconfig:"API__PREFIX" default:"/v1"`

	// Database Configuration
	DBDriver         string        `envconfig:"DB__DRIVER" default:"auto"`
	DBURL            string        `envconfig:"DB__URL" default:""`
	DBHost           string        `envconfig:"DB__HOST" default:"localhost"`
	DBPort           int           `envconfig:"DB__PORT" default:"5432"`
	DBUser           string        `envconfig:"DB__USER" default:"postgres"`
	DBPassword       string        `envconfig:"DB__PASSWORD" default:""`
	DBName           string        `envconfig:"DB__NAME" default:"changelog"`
	DBMaxConns       int32         `envconfig:"DB__MAX_CONNS" default:"10"`
	DBAcquireTimeout time.Duration `envconfig:"DB__ACQUIRE_TIMEOUT" default:"5s"`
	DBQueryTimeout   time.Duration `envconfig:"DB__QUERY_TIMEOUT" default:"5s"`
	DBMigrate        bool          `envconfig:"DB__MIGRATE" default:"true"`
	SQLitePath       string        `envconfig:"SQLITE__PATH" default:"changelog.db"`

	IDStrategy      string `envconfig:"ID__STRATEGY" default:"ulid"`
	EmptyAsNotFound bool   `envconfig:"CHANGELOG__EMPTY_AS_NOT_FOUND" default:"true"`

	HealthInterval     time.Duration `envconfig:"HEALTH__INTERVAL" default:"30s"`
	HealthProbeTimeout time.Duration `envconfig:"HEALTH__PROBE_TIMEOUT" default:"2s"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN__TIMEOUT" default:"10s"`
}

// ResolveDefaults validates BuildTarget and derives DBDriver when set to "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var defaultDB string

	switch c.BuildTarget {
	case "cloud":
		defaultDB = DriverPostgres
	case "local":
		defaultDB = DriverSQLite
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}

	allowedDB := map[string]bool{DriverPostgres: true, DriverSQLite: true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB__DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == DriverSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE__PATH is required for the sqlite driver")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB__MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
func New() (*Config, error) {
	return Load("")
}

// Load is New with an optional BUILD_TARGET override, applied before the
// driver is derived.
func Load(buildTarget string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if buildTarget != "" {
		cfg.BuildTarget = buildTarget
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:        EnvTesting,
		BuildTarget:        "local",
		HTTPHost:           "127.0.0.1",
		HTTPPort:           0,
		APIPrefix:          "/v1",
		DBDriver:           DriverSQLite,
		DBHost:             "localhost",
		DBPort:             5432,
		DBUser:             "postgres",
		DBName:             "changelog",
		DBMaxConns:         4,
		DBAcquireTimeout:   time.Second,
		DBQueryTimeout:     time.Second,
		DBMigrate:          true,
		SQLitePath:         "changelog-test.db",
		IDStrategy:         "ulid",
		EmptyAsNotFound:    true,
		HealthInterval:     time.Second,
		HealthProbeTimeout: time.Second,
		ShutdownTimeout:    5 * time.Second,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// PostgresDSN returns DB__URL when set, otherwise a URL assembled from the
// DB__* parts.
func (c *Config) PostgresDSN() string {
	if c.DBURL != "" {
		return c.DBURL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:   "/" + c.DBName,
	}
	if c.DBPassword != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	} else {
		u.User = url.User(c.DBUser)
	}
	return u.String()
}

// RedactedDSN is PostgresDSN with the password masked, safe for logs.
func (c *Config) RedactedDSN() string {
	u, err := url.Parse(c.PostgresDSN())
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
