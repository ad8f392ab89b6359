// Package config provides the unified configuration for clickwire clients.
// A single ClientConfig structure covers the connection endpoint, timeouts,
// HTTP pooling, body compression and logging, with sensible defaults
// applied by Validate.
package config

import (
	"fmt"
	"time"
)

// ClientConfig configures one client and the transport pool behind it.
type ClientConfig struct {
	// Name identifies the client instance in logs and metrics
	Name string `yaml:"name" json:"name"`

	// Connection describes the store endpoint
	Connection ConnectionConfig `yaml:"connection" json:"connection"`

	// Timeouts define the request timeout budget
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Pool tunes the HTTP connection pool
	Pool PoolConfig `yaml:"pool" json:"pool"`

	// Compression selects the request-body encoding (none, gzip, zstd)
	Compression string `yaml:"compression" json:"compression"`

	// Logging configures the structured logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ConnectionConfig describes the store endpoint and credentials.
type ConnectionConfig struct {
	// Host is the hostname or address, optionally carrying a ":port" suffix
	Host string `yaml:"host" json:"host"`
	// Port of the HTTP interface; ignored when Host carries a port
	Port int `yaml:"port" json:"port"`
	// Username for authentication
	Username string `yaml:"username" json:"username"`
	// Password for authentication
	Password string `yaml:"password" json:"password"`
	// Database is the default database for unqualified table names
	Database string `yaml:"database" json:"database"`
	// Secure switches the scheme to https
	Secure bool `yaml:"secure" json:"secure"`
	// Settings are forwarded verbatim as URL query parameters
	Settings map[string]string `yaml:"settings" json:"settings"`
}

// TimeoutConfig contains the timeout durations for remote calls.
type TimeoutConfig struct {
	// Request bounds one whole round trip
	Request time.Duration `yaml:"request" json:"request"`
	// Connection bounds dialing
	Connection time.Duration `yaml:"connection" json:"connection"`
	// Idle closes pooled connections after inactivity
	Idle time.Duration `yaml:"idle" json:"idle"`
}

// PoolConfig tunes the HTTP connection pool.
type PoolConfig struct {
	// MaxIdleConns caps idle connections across all hosts
	MaxIdleConns int `yaml:"max_idle_conns" json:"max_idle_conns"`
	// MaxConnsPerHost caps connections to the endpoint
	MaxConnsPerHost int `yaml:"max_conns_per_host" json:"max_conns_per_host"`
	// EnableHTTP2 negotiates HTTP/2 where the server supports it
	EnableHTTP2 bool `yaml:"enable_http2" json:"enable_http2"`
	// InsecureSkipVerify disables TLS certificate checks
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
	Encoding    string `yaml:"encoding" json:"encoding"`
}

// NewClientConfig returns a configuration with defaults for the given
// endpoint.
func NewClientConfig(name, host string) *ClientConfig {
	cfg := &ClientConfig{
		Name: name,
		Connection: ConnectionConfig{
			Host:     host,
			Username: "default",
			Database: "default",
		},
	}
	// Defaults are filled by Validate so loaded files get them too.
	_ = cfg.Validate()
	return cfg
}

// Validate fills defaults and rejects inconsistent settings.
func (c *ClientConfig) Validate() error {
	if c.Connection.Host == "" {
		return fmt.Errorf("connection.host is required")
	}
	if c.Connection.Port == 0 {
		c.Connection.Port = 8123
	}
	if c.Connection.Port < 0 || c.Connection.Port > 65535 {
		return fmt.Errorf("connection.port %d out of range", c.Connection.Port)
	}
	if c.Connection.Username == "" {
		c.Connection.Username = "default"
	}
	if c.Connection.Database == "" {
		c.Connection.Database = "default"
	}

	if c.Timeouts.Request == 0 {
		c.Timeouts.Request = 30 * time.Second
	}
	if c.Timeouts.Connection == 0 {
		c.Timeouts.Connection = 10 * time.Second
	}
	if c.Timeouts.Idle == 0 {
		c.Timeouts.Idle = 90 * time.Second
	}

	if c.Pool.MaxIdleConns == 0 {
		c.Pool.MaxIdleConns = 10
	}
	if c.Pool.MaxConnsPerHost == 0 {
		c.Pool.MaxConnsPerHost = 10
	}

	switch c.Compression {
	case "", "none":
		c.Compression = "none"
	case "gzip", "zstd":
	default:
		return fmt.Errorf("unsupported compression %q", c.Compression)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = "json"
	}
	return nil
}
