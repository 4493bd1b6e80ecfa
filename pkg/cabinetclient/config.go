package cabinetclient

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

// EnvPrefix prefixes every environment variable read by LoadConfig, e.g.
// CABINET_BASE_URL or CABINET_TOKEN_CACHE_URL.
const EnvPrefix = "CABINET"

// Configuration keys understood by LoadConfig.
const (
	KeyBaseURL            = "base_url"
	KeyUsername           = "username"
	KeyPassword           = "password"
	KeySearchPath         = "search_path"
	KeyRetryInterval      = "retry_interval"
	KeyMaxRequestAttempts = "max_request_attempts"
	KeyExpirationBuffer   = "expiration_buffer"
	KeyHTTPTimeout        = "http_timeout"
	KeyUserAgent          = "user_agent"
	KeyDebug              = "debug"
	KeyLogLevel           = "log_level"
	KeyTokenCacheURL      = "token_cache.url"
	KeyTokenCacheBucket   = "token_cache.bucket"
	KeyTokenCachePrefix   = "token_cache.key_prefix"
)

// NewViper returns a viper instance reading CABINET_* environment
// variables, with nested keys mapped through underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

// LoadConfig reads a YAML configuration file and overlays CABINET_*
// environment variables. An empty path reads the environment only.
func LoadConfig(path string) (*cabinet.Config, error) {
	v := NewViper()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		err := v.ReadInConfig()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", constants.ErrConfigFileNotFound, path)
			}

			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	return ConfigFromViper(v), nil
}

// ConfigFromViper builds a Config from the keys set on v. Unset durations
// and counts stay zero so that Config.WithDefaults fills them in.
func ConfigFromViper(v *viper.Viper) *cabinet.Config {
	config := &cabinet.Config{
		BaseURL:             v.GetString(KeyBaseURL),
		Username:            v.GetString(KeyUsername),
		Password:            v.GetString(KeyPassword),
		SearchPathComponent: v.GetString(KeySearchPath),
		RetryInterval:       v.GetDuration(KeyRetryInterval),
		MaxRequestAttempts:  v.GetInt(KeyMaxRequestAttempts),
		ExpirationBuffer:    v.GetDuration(KeyExpirationBuffer),
		HTTPTimeout:         v.GetDuration(KeyHTTPTimeout),
		UserAgent:           v.GetString(KeyUserAgent),
		Debug:               v.GetBool(KeyDebug),
	}

	if level := v.GetString(KeyLogLevel); level != "" {
		config.Logger = cabinet.NewZerologLogger(os.Stderr, level)
	}

	if natsURL := v.GetString(KeyTokenCacheURL); natsURL != "" {
		config.TokenCache = &cabinet.TokenCacheConfig{
			URL:       natsURL,
			Bucket:    v.GetString(KeyTokenCacheBucket),
			KeyPrefix: v.GetString(KeyTokenCachePrefix),
		}
	}

	return config
}
