package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Supported source dialects
const (
	DialectPostgres = "postgres"
	DialectOracle   = "oracle"
)

// ErrUnknownDialect is returned for a dialect other than postgres or oracle
var ErrUnknownDialect = errors.New("unknown SQL dialect")

// DatabaseConfig source billing database settings
type DatabaseConfig struct {
	// Dialect is "postgres" or "oracle"
	Dialect string
	// URI is the SQLAlchemy-style part after the scheme: user:password@host:port/dbname
	URI      string
	MaxConns int
	MaxIdle  int
}

// RedisConfig Redis settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DriverName returns the database/sql driver registered for the dialect
func (c *DatabaseConfig) DriverName() (string, error) {
	switch c.Dialect {
	case DialectPostgres:
		return "postgres", nil
	case DialectOracle:
		return "oracle", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, c.Dialect)
	}
}

// GetDSN builds the connection string for the dialect
func (c *DatabaseConfig) GetDSN() (string, error) {
	uri := strings.TrimPrefix(c.URI, "//")
	switch c.Dialect {
	case DialectPostgres:
		return "postgres://" + uri, nil
	case DialectOracle:
		return "oracle://" + uri, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, c.Dialect)
	}
}

// LoadFromEnv overrides Redis settings from environment variables
func (c *RedisConfig) LoadFromEnv(prefix string) {
	if addr := os.Getenv(prefix + "_ADDR"); addr != "" {
		c.Addr = addr
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if db := os.Getenv(prefix + "_DB"); db != "" {
		fmt.Sscanf(db, "%d", &c.DB)
	}
}

// Enabled reports whether a Redis address is configured
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}
