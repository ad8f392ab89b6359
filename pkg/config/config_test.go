package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFillsDefaults(t *testing.T) {
	cfg := &ClientConfig{
		Connection: ConnectionConfig{Host: "db.internal"},
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8123, cfg.Connection.Port)
	assert.Equal(t, "default", cfg.Connection.Username)
	assert.Equal(t, "default", cfg.Connection.Database)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Request)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Connection)
	assert.Equal(t, 90*time.Second, cfg.Timeouts.Idle)
	assert.Equal(t, 10, cfg.Pool.MaxIdleConns)
	assert.Equal(t, 10, cfg.Pool.MaxConnsPerHost)
	assert.Equal(t, "none", cfg.Compression)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Encoding)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := &ClientConfig{}
	assert.Error(t, cfg.Validate(), "missing host")

	cfg = &ClientConfig{Connection: ConnectionConfig{Host: "h", Port: 70000}}
	assert.Error(t, cfg.Validate(), "port out of range")

	cfg = &ClientConfig{
		Connection:  ConnectionConfig{Host: "h"},
		Compression: "lz4",
	}
	assert.Error(t, cfg.Validate(), "unsupported compression")
}

func TestNewClientConfig(t *testing.T) {
	cfg := NewClientConfig("analytics", "db.internal:9000")
	assert.Equal(t, "analytics", cfg.Name)
	assert.Equal(t, "db.internal:9000", cfg.Connection.Host)
	assert.Equal(t, "default", cfg.Connection.Username)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Request)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("CW_TEST_PASSWORD", "hunter2")

	path := filepath.Join(t.TempDir(), "client.yaml")
	doc := `
name: analytics
connection:
  host: db.internal
  username: reader
  password: ${CW_TEST_PASSWORD}
  database: events
compression: zstd
timeouts:
  request: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "analytics", cfg.Name)
	assert.Equal(t, "hunter2", cfg.Connection.Password)
	assert.Equal(t, "events", cfg.Connection.Database)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Request)
	assert.Equal(t, 8123, cfg.Connection.Port, "defaults still apply to loaded files")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := NewClientConfig("analytics", "db.internal")
	cfg.Connection.Database = "events"

	require.NoError(t, Save(cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, got.Name)
	assert.Equal(t, cfg.Connection.Database, got.Connection.Database)
}
