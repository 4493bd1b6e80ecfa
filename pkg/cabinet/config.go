package cabinet

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
)

// Config represents client configuration for building a Cabinet client.
//
// # Authentication
//
// Every request whose URL lies under BaseURL carries a bearer token obtained
// by posting Username and Password to {BaseURL}authenticate. The token is
// refreshed once it is within ExpirationBuffer of its expiry claim. Requests
// to other hosts or paths are sent without credentials.
//
// # Retries
//
// Responses with status 502 or 504 are retried after RetryInterval, up to
// MaxRequestAttempts transport calls in total. Every other failure is
// returned immediately.
type Config struct {
	// BaseURL: root of the Cabinet API (e.g., "https://cabinet.example.com/api/").
	// A trailing slash is added when missing.
	BaseURL string

	// Username and Password are exchanged for a bearer token.
	Username string
	Password string

	// SearchPathComponent: path segment of the free-text search endpoint.
	// Defaults to "_search".
	SearchPathComponent string

	// RetryInterval: fixed wait between attempts. Zero means the default.
	RetryInterval time.Duration
	// MaxRequestAttempts: total transport calls for one logical request,
	// including the first. Zero means the default of 3.
	MaxRequestAttempts int
	// ExpirationBuffer: how long before expiry a token is already treated as
	// expired. Zero means the default of 5 minutes.
	ExpirationBuffer time.Duration

	// HTTPTimeout: per-attempt timeout. Zero means the default.
	HTTPTimeout time.Duration
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string
	// Debug: enables request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP and auth layers.
	Logger Logger
	// Codec: entity serialization. Defaults to JSONCodec.
	Codec Codec

	// TokenCache: optional NATS JetStream KV bucket shared by processes that
	// authenticate as the same user.
	TokenCache *TokenCacheConfig
}

// TokenCacheConfig locates shared bearer tokens in NATS JetStream KV. Each
// user and base URL gets its own key below KeyPrefix.
type TokenCacheConfig struct {
	URL       string
	Bucket    string
	KeyPrefix string
}

// WithDefaults returns a copy of c with every unset optional field filled in
// and BaseURL normalized.
func (c Config) WithDefaults() Config {
	if c.BaseURL != "" {
		c.BaseURL = NormalizeBaseURI(c.BaseURL)
	}

	if c.SearchPathComponent == "" {
		c.SearchPathComponent = constants.DefaultSearchPathComponent
	}

	if c.RetryInterval == 0 {
		c.RetryInterval = constants.DefaultRetryInterval
	}

	if c.MaxRequestAttempts == 0 {
		c.MaxRequestAttempts = constants.DefaultMaxRequestAttempts
	}

	if c.ExpirationBuffer == 0 {
		c.ExpirationBuffer = constants.DefaultExpirationBuffer
	}

	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = constants.DefaultHTTPTimeout
	}

	if c.Codec == nil {
		c.Codec = JSONCodec{}
	}

	if c.TokenCache != nil {
		cache := *c.TokenCache
		if cache.Bucket == "" {
			cache.Bucket = constants.DefaultTokenBucket
		}

		if cache.KeyPrefix == "" {
			cache.KeyPrefix = constants.DefaultTokenKeyPrefix
		}

		c.TokenCache = &cache
	}

	return c
}

// Validate checks that c can build a working client.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return ErrBaseURLRequired
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", constants.ErrInvalidBaseURL, c.BaseURL)
	}

	if c.MaxRequestAttempts < 0 {
		return fmt.Errorf("%w: %d", constants.ErrInvalidMaxAttempts, c.MaxRequestAttempts)
	}

	if c.RetryInterval < 0 || c.ExpirationBuffer < 0 {
		return constants.ErrNegativeInterval
	}

	if c.TokenCache != nil && c.TokenCache.URL == "" {
		return constants.ErrNATSURLRequired
	}

	return nil
}
