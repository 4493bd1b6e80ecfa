package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

const refreshKey = "refresh"

// SharedCache persists tokens outside the process so that several clients
// logged in as the same user against the same API can reuse one. Keys come
// from TokenKey. Load returns nil, nil when no token is stored under key.
type SharedCache interface {
	Load(ctx context.Context, key string) (*Token, error)
	Save(ctx context.Context, key string, token *Token) error
	Delete(ctx context.Context, key string) error
}

// TokenKey derives the shared cache key for username at baseURL. The result
// is hex so it is valid in any key-value store.
func TokenKey(baseURL, username string) string {
	sum := sha256.Sum256([]byte(cabinet.NormalizeBaseURI(baseURL) + "\x00" + username))

	return hex.EncodeToString(sum[:])
}

// Credentials owns the bearer token for one user and refreshes it when it
// is within the expiration buffer of its expiry.
type Credentials struct {
	authenticator Authenticator
	baseURL       string
	username      string
	password      string
	buffer        time.Duration
	store         *TokenStore
	shared        SharedCache
	group         singleflight.Group
	now           func() time.Time
	logger        cabinet.Logger
}

// CredentialsOption configures Credentials.
type CredentialsOption func(*Credentials)

// WithExpirationBuffer sets how early a token counts as expired.
func WithExpirationBuffer(buffer time.Duration) CredentialsOption {
	return func(c *Credentials) {
		c.buffer = buffer
	}
}

// WithBaseURL names the API the credentials are for. Tokens are shared
// only between credentials with the same base URL and username.
func WithBaseURL(baseURL string) CredentialsOption {
	return func(c *Credentials) {
		c.baseURL = baseURL
	}
}

// WithSharedCache consults cache before authenticating and writes every
// fresh token back to it.
func WithSharedCache(cache SharedCache) CredentialsOption {
	return func(c *Credentials) {
		c.shared = cache
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CredentialsOption {
	return func(c *Credentials) {
		c.now = now
	}
}

// WithCredentialsLogger sets the logger.
func WithCredentialsLogger(logger cabinet.Logger) CredentialsOption {
	return func(c *Credentials) {
		c.logger = logger
	}
}

// NewCredentials creates credentials with no token; the first GetToken
// authenticates.
func NewCredentials(authenticator Authenticator, username, password string, opts ...CredentialsOption) *Credentials {
	c := &Credentials{
		authenticator: authenticator,
		username:      username,
		password:      password,
		buffer:        constants.DefaultExpirationBuffer,
		store:         NewTokenStore(),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetToken returns a token that is not expired, authenticating first when
// needed. Concurrent callers that find the token expired share one
// authentication call. Each caller stops waiting when its own ctx ends; the
// shared call runs on until it completes.
func (c *Credentials) GetToken(ctx context.Context) (string, error) {
	token := c.store.Get()
	if !c.expired(token) {
		return token.AccessToken, nil
	}

	token, err := c.refresh(ctx, func(ctx context.Context) (*Token, error) {
		current := c.store.Get()
		if !c.expired(current) {
			return current, nil
		}

		return c.obtain(ctx, true)
	})
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// RefreshToken forces a new authentication, ignoring any cached token.
func (c *Credentials) RefreshToken(ctx context.Context) error {
	_, err := c.refresh(ctx, func(ctx context.Context) (*Token, error) {
		return c.obtain(ctx, false)
	})

	return err
}

func (c *Credentials) refresh(ctx context.Context, fn func(context.Context) (*Token, error)) (*Token, error) {
	detached := context.WithoutCancel(ctx)

	ch := c.group.DoChan(refreshKey, func() (interface{}, error) {
		return fn(detached)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		if res.Shared && c.logger != nil {
			c.logger.Debug("Joined in-flight token refresh", nil)
		}

		return res.Val.(*Token), nil //nolint:forcetypeassert // only *Token is returned by fn
	}
}

// IsExpired reports whether the current token needs a refresh. It never
// makes a network call.
func (c *Credentials) IsExpired() bool {
	return c.expired(c.store.Get())
}

// Token returns the current token, or nil.
func (c *Credentials) Token() *Token {
	return c.store.Get()
}

// SetToken installs a token and its expiry together.
func (c *Credentials) SetToken(accessToken string, expiresAt time.Time) {
	token := &Token{AccessToken: accessToken, ExpiresAt: expiresAt}
	c.store.Set(token.scoped(c.baseURL, c.username))
}

// SetExpiry replaces the expiry of the current token.
func (c *Credentials) SetExpiry(expiresAt time.Time) {
	token := &Token{ExpiresAt: expiresAt}
	if current := c.store.Get(); current != nil {
		token.AccessToken = current.AccessToken
	}

	c.store.Set(token.scoped(c.baseURL, c.username))
}

// Clear drops the token here and in the shared cache.
func (c *Credentials) Clear(ctx context.Context) error {
	c.store.Clear()

	if c.shared == nil {
		return nil
	}

	return c.shared.Delete(ctx, c.cacheKey())
}

func (c *Credentials) expired(token *Token) bool {
	return token.Expired(c.now(), c.buffer)
}

func (c *Credentials) obtain(ctx context.Context, useShared bool) (*Token, error) {
	if useShared && c.shared != nil {
		token, err := c.shared.Load(ctx, c.cacheKey())

		switch {
		case err != nil:
			c.warn("Failed to load shared token", err)
		case token != nil && !token.BelongsTo(c.baseURL, c.username):
			c.warn("Ignoring shared token issued to another user or API", nil)
		case !c.expired(token):
			c.store.Set(token)

			return token, nil
		}
	}

	if c.authenticator == nil {
		return nil, &cabinet.AuthenticationError{Err: constants.ErrNoAuthenticator}
	}

	if c.username == "" || c.password == "" {
		return nil, &cabinet.AuthenticationError{Err: constants.ErrCredentialsRequired}
	}

	if c.logger != nil {
		c.logger.Debug("Authenticating", map[string]interface{}{"username": c.username})
	}

	issued, err := c.authenticator.Authenticate(ctx, c.username, c.password)
	if err != nil {
		return nil, err
	}

	token := issued.scoped(c.baseURL, c.username)
	c.store.Set(token)

	if c.shared != nil {
		err = c.shared.Save(ctx, c.cacheKey(), token)
		if err != nil {
			c.warn("Failed to save shared token", err)
		}
	}

	return token, nil
}

func (c *Credentials) cacheKey() string {
	return TokenKey(c.baseURL, c.username)
}

func (c *Credentials) warn(msg string, err error) {
	if c.logger == nil {
		return
	}

	var fields map[string]interface{}
	if err != nil {
		fields = map[string]interface{}{"error": err.Error()}
	}

	c.logger.Warn(msg, fields)
}
