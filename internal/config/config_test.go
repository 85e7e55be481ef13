package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
server:
  port: 50052
  host: "127.0.0.1"
  cache_size: 128

logging_service:
  url: "http://nxcals.example:8080/api"
  timeout: 10

settings_service:
  url: "http://lsa.example:8080/api"

database:
  enabled: true
  host: "localhost"
  port: 5432
  name: "logging"
  user: "testuser"
  password: "testpass"

storage:
  s3:
    enabled: true
    endpoint: "http://minio:9000"
    path_style: true

logging:
  level: "debug"
  format: "text"
  file: "/var/log/cl2pd/cl2pd.log"
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, 50052, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 128, config.Server.CacheSize)
	assert.Equal(t, 64, config.Server.MaxSplit)
	assert.Equal(t, float64(100), config.Server.RateLimit)

	assert.Equal(t, "http://nxcals.example:8080/api", config.LoggingService.URL)
	assert.Equal(t, 10, config.LoggingService.Timeout)
	assert.Equal(t, "CET", config.LoggingService.TimeZone)
	assert.Equal(t, 30, config.SettingsService.Timeout)

	assert.True(t, config.Database.Enabled)
	assert.Equal(t, "disable", config.Database.SSLMode)
	assert.Contains(t, config.Database.DSN(), "dbname=logging")
	assert.Contains(t, config.Database.DSN(), "connect_timeout=5")

	assert.True(t, config.Storage.S3.Enabled)
	assert.True(t, config.Storage.S3.PathStyle)
	assert.Equal(t, "us-east-1", config.Storage.S3.Region)
	assert.Empty(t, config.Storage.LocalRoot)

	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.Equal(t, 100, config.Logging.MaxSizeMB)
}

func TestLoadWithEnvExpansion(t *testing.T) {
	t.Setenv("APP_DATABASE_HOST", "envhost")
	t.Setenv("APP_DATABASE_PORT", "5433")

	configPath := writeConfig(t, `
database:
  enabled: true
  host: $APP_DATABASE_HOST
  port: $APP_DATABASE_PORT
  name: "logging"
`)

	config, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "envhost", config.Database.Host)
	assert.Equal(t, 5433, config.Database.Port)
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("CL2PD_SERVER_PORT", "6000")
	t.Setenv("CL2PD_LOGGING_LEVEL", "warn")

	configPath := writeConfig(t, `
server:
  port: 50051
logging_service:
  url: "http://nxcals.example"
`)

	config, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 6000, config.Server.Port)
	assert.Equal(t, "warn", config.Logging.Level)
}

func TestLoadLocalRoot(t *testing.T) {
	root := t.TempDir()
	t.Setenv("CL2PD_STORAGE_LOCAL_ROOT", root)

	config, err := Load(writeConfig(t, "logging_service:\n  url: http://x\n"))
	require.NoError(t, err)
	assert.Equal(t, root, config.Storage.LocalRoot)
}

func TestLoadErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "no backend",
			content: "server:\n  port: 1\n",
			errMsg:  "logging_service.url",
		},
		{
			name:    "negative cache",
			content: "logging_service:\n  url: http://x\nserver:\n  cache_size: -1\n",
			errMsg:  "cache_size",
		},
		{
			name:    "zero split",
			content: "logging_service:\n  url: http://x\nserver:\n  max_split: 0\n",
			errMsg:  "max_split",
		},
		{
			name:    "unknown zone",
			content: "logging_service:\n  url: http://x\n  time_zone: Mars/Olympus\n",
			errMsg:  "time_zone",
		},
		{
			name:    "missing local root",
			content: "logging_service:\n  url: http://x\nstorage:\n  local_root: " + filepath.Join(file, "..", "nowhere") + "\n",
			errMsg:  "storage.local_root",
		},
		{
			name:    "local root is a file",
			content: "logging_service:\n  url: http://x\nstorage:\n  local_root: " + file + "\n",
			errMsg:  "not a directory",
		},
		{
			name:    "invalid yaml",
			content: "server: [\n",
			errMsg:  "failed to unmarshal raw config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
