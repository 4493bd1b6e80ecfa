// Package client wires credentials, the retrying HTTP executor and the
// entity codec into the Cabinet client returned by cabinetclient.New.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/kaleido-biosciences/cabinet-client/internal/auth"
	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
	"github.com/kaleido-biosciences/cabinet-client/internal/http"
	"github.com/kaleido-biosciences/cabinet-client/internal/retry"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

// Client implements the cabinet.Client interface.
type Client struct {
	httpClient  *http.Client
	credentials *auth.Credentials
	tokenCache  *auth.NATSTokenStore
	baseURL     string
	searchPath  string
	codec       cabinet.Codec
}

// createCredentials builds the credential holder, attaching the shared NATS
// token cache when one is configured.
func createCredentials(config *cabinet.Config) (*auth.Credentials, *auth.NATSTokenStore, error) {
	var authOpts []auth.AuthClientOption
	if config.UserAgent != "" {
		authOpts = append(authOpts, auth.WithAuthUserAgent(config.UserAgent))
	}

	authenticator := auth.NewAuthClient(config.BaseURL, authOpts...)

	credOpts := []auth.CredentialsOption{
		auth.WithBaseURL(config.BaseURL),
		auth.WithExpirationBuffer(config.ExpirationBuffer),
	}

	if config.Logger != nil {
		credOpts = append(credOpts, auth.WithCredentialsLogger(config.Logger))
	}

	var store *auth.NATSTokenStore

	if config.TokenCache != nil {
		var err error

		store, err = auth.ConnectNATSTokenStore(config.TokenCache.URL, config.TokenCache.Bucket, config.TokenCache.KeyPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting token cache: %w", err)
		}

		credOpts = append(credOpts, auth.WithSharedCache(store))
	}

	return auth.NewCredentials(authenticator, config.Username, config.Password, credOpts...), store, nil
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *cabinet.Config) []http.Option {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = config.MaxRequestAttempts
	policy.Interval = config.RetryInterval

	httpOpts := []http.Option{
		http.WithRetryPolicy(policy),
		http.WithTimeout(config.HTTPTimeout),
	}

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	return httpOpts
}

// New creates a Cabinet client. No request is made until the first call;
// authentication happens lazily.
func New(_ context.Context, config *cabinet.Config) (*Client, error) {
	if config == nil {
		return nil, cabinet.ErrConfigRequired
	}

	cfg := config.WithDefaults()

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	credentials, store, err := createCredentials(&cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient:  http.NewClient(cfg.BaseURL, credentials, createHTTPClientOptions(&cfg)...),
		credentials: credentials,
		tokenCache:  store,
		baseURL:     cfg.BaseURL,
		searchPath:  cfg.SearchPathComponent,
		codec:       cfg.Codec,
	}, nil
}

// BaseURL implements cabinet.Client.BaseURL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login implements cabinet.Client.Login.
func (c *Client) Login(ctx context.Context) (time.Time, error) {
	if c.credentials == nil {
		return time.Time{}, &cabinet.AuthenticationError{Err: constants.ErrNoAuthenticator}
	}

	err := c.credentials.RefreshToken(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("logging in: %w", err)
	}

	token := c.credentials.Token()
	if token == nil {
		return time.Time{}, nil
	}

	return token.ExpiresAt, nil
}

// Logout implements cabinet.Client.Logout.
func (c *Client) Logout(ctx context.Context) error {
	if c.credentials == nil {
		return nil
	}

	err := c.credentials.Clear(ctx)
	if err != nil {
		return fmt.Errorf("logging out: %w", err)
	}

	return nil
}

// Close implements cabinet.Client.Close.
func (c *Client) Close() error {
	if c.tokenCache != nil {
		c.tokenCache.Close()
		c.tokenCache = nil
	}

	return nil
}

// HTTP returns the request executor.
func (c *Client) HTTP() *http.Client {
	return c.httpClient
}

// Credentials returns the credential holder, or nil for unauthenticated
// clients.
func (c *Client) Credentials() *auth.Credentials {
	return c.credentials
}

// Codec returns the entity codec.
func (c *Client) Codec() cabinet.Codec {
	return c.codec
}

// Endpoint returns the URI builder for resource.
func (c *Client) Endpoint(resource string) cabinet.Endpoint {
	return cabinet.NewEndpoint(c.baseURL, resource, c.searchPath)
}

var _ cabinet.Client = (*Client)(nil)
