package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "omnidb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 4411, cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Backend.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
server:
  host: 0.0.0.0
  port: 8080
backend:
  driver: postgres
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Backend.Driver)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Backend.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not: a: mapping")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Backend.Driver = "mysql"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Server.Port = -1
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Backend.Driver = "postgres"
	assert.NoError(t, cfg.Validate())
}
