package cabinetclient_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinetclient"
)

const sampleConfig = `base_url: https://cabinet.example.com/api
username: svc-user
password: from-file
search_path: _find
retry_interval: 250ms
max_request_attempts: 5
expiration_buffer: 2m
http_timeout: 10s
user_agent: plate-loader/1.0
debug: true
log_level: debug
token_cache:
  url: nats://localhost:4222
  bucket: tokens
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), constants.ConfigFilePerm))

	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	config, err := cabinetclient.LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://cabinet.example.com/api", config.BaseURL)
	assert.Equal(t, "svc-user", config.Username)
	assert.Equal(t, "from-file", config.Password)
	assert.Equal(t, "_find", config.SearchPathComponent)
	assert.Equal(t, 250*time.Millisecond, config.RetryInterval)
	assert.Equal(t, 5, config.MaxRequestAttempts)
	assert.Equal(t, 2*time.Minute, config.ExpirationBuffer)
	assert.Equal(t, 10*time.Second, config.HTTPTimeout)
	assert.Equal(t, "plate-loader/1.0", config.UserAgent)
	assert.True(t, config.Debug)
	assert.NotNil(t, config.Logger)

	require.NotNil(t, config.TokenCache)
	assert.Equal(t, "nats://localhost:4222", config.TokenCache.URL)
	assert.Equal(t, "tokens", config.TokenCache.Bucket)
	assert.Empty(t, config.TokenCache.KeyPrefix)

	defaults := config.WithDefaults()
	assert.Equal(t, "https://cabinet.example.com/api/", defaults.BaseURL)
	assert.Equal(t, constants.DefaultTokenKeyPrefix, defaults.TokenCache.KeyPrefix)
	require.NoError(t, defaults.Validate())
}

func TestLoadConfig_Minimal(t *testing.T) {
	t.Parallel()

	config, err := cabinetclient.LoadConfig(writeConfig(t, "base_url: http://localhost:8080/api/\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api/", config.BaseURL)
	assert.Zero(t, config.MaxRequestAttempts)
	assert.Nil(t, config.Logger)
	assert.Nil(t, config.TokenCache)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := cabinetclient.LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.ErrorIs(t, err, constants.ErrConfigFileNotFound)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := cabinetclient.LoadConfig(writeConfig(t, "base_url: [unterminated\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, constants.ErrConfigFileNotFound)
}

//nolint:paralleltest // t.Setenv
func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CABINET_PASSWORD", "from-env")
	t.Setenv("CABINET_MAX_REQUEST_ATTEMPTS", "7")
	t.Setenv("CABINET_TOKEN_CACHE_KEY_PREFIX", "shared")

	config, err := cabinetclient.LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-env", config.Password)
	assert.Equal(t, 7, config.MaxRequestAttempts)
	require.NotNil(t, config.TokenCache)
	assert.Equal(t, "shared", config.TokenCache.KeyPrefix)
}

//nolint:paralleltest // t.Setenv
func TestLoadConfig_EnvironmentOnly(t *testing.T) {
	t.Setenv("CABINET_BASE_URL", "http://cabinet.internal/api/")
	t.Setenv("CABINET_USERNAME", "env-user")

	config, err := cabinetclient.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "http://cabinet.internal/api/", config.BaseURL)
	assert.Equal(t, "env-user", config.Username)
}
