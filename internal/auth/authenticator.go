package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

// Authenticator exchanges credentials for a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*Token, error)
}

// AuthClient posts credentials to the Cabinet authenticate endpoint. It
// never retries and never passes through the authenticating transport.
type AuthClient struct {
	url        string
	httpClient *http.Client
	userAgent  string
}

// AuthClientOption configures an AuthClient.
type AuthClientOption func(*AuthClient)

// WithAuthHTTPClient overrides the plain HTTP client used for authentication.
func WithAuthHTTPClient(client *http.Client) AuthClientOption {
	return func(c *AuthClient) {
		c.httpClient = client
	}
}

// WithAuthUserAgent sets the User-Agent header on authentication requests.
func WithAuthUserAgent(userAgent string) AuthClientOption {
	return func(c *AuthClient) {
		c.userAgent = userAgent
	}
}

// NewAuthClient creates an AuthClient for the API rooted at baseURL.
func NewAuthClient(baseURL string, opts ...AuthClientOption) *AuthClient {
	client := &AuthClient{
		url:        AuthenticateURL(baseURL),
		httpClient: &http.Client{Timeout: constants.AuthHTTPTimeout},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// AuthenticateURL returns {baseURL}authenticate.
func AuthenticateURL(baseURL string) string {
	return cabinet.NormalizeBaseURI(baseURL) + constants.AuthenticatePath
}

// URL returns the authentication endpoint.
func (c *AuthClient) URL() string {
	return c.url
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type loginResponse struct {
	IDToken string `json:"id_token"`
}

// Authenticate performs one authentication call.
func (c *AuthClient) Authenticate(ctx context.Context, username, password string) (*Token, error) {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return nil, &cabinet.AuthenticationError{URL: c.url, Reason: "encoding credentials", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &cabinet.AuthenticationError{URL: c.url, Reason: "creating request", Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &cabinet.AuthenticationError{URL: c.url, Err: err}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &cabinet.AuthenticationError{URL: c.url, StatusCode: resp.StatusCode, Reason: "reading response", Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &cabinet.AuthenticationError{
			URL:        c.url,
			StatusCode: resp.StatusCode,
			Reason:     problemReason(respBody),
		}
	}

	var login loginResponse

	err = json.Unmarshal(respBody, &login)
	if err != nil {
		return nil, &cabinet.AuthenticationError{URL: c.url, StatusCode: resp.StatusCode, Reason: "decoding response", Err: err}
	}

	if login.IDToken == "" {
		return nil, &cabinet.AuthenticationError{
			URL:        c.url,
			StatusCode: resp.StatusCode,
			Reason:     "response has no " + constants.IDTokenField,
		}
	}

	token, err := NewToken(login.IDToken)
	if err != nil {
		return nil, fmt.Errorf("reading token from %s: %w", c.url, err)
	}

	return token, nil
}

func problemReason(body []byte) string {
	if problem := cabinet.ParseProblem(body); problem != nil {
		return problem.String()
	}

	return ""
}
