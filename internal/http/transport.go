package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

// TokenProvider supplies a bearer token that is valid for at least the
// next request.
type TokenProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// AuthTransport adds the bearer token to requests addressed to the Cabinet
// API. Requests to other hosts, to paths outside the base path, and to the
// authentication endpoint itself pass through untouched.
type AuthTransport struct {
	base     *url.URL
	authPath string
	tokens   TokenProvider
	next     http.RoundTripper
}

// NewAuthTransport wraps next. A nil next uses http.DefaultTransport and a
// nil tokens disables authentication.
func NewAuthTransport(baseURL string, tokens TokenProvider, next http.RoundTripper) *AuthTransport {
	if next == nil {
		next = http.DefaultTransport
	}

	transport := &AuthTransport{tokens: tokens, next: next}

	base, err := url.Parse(cabinet.NormalizeBaseURI(baseURL))
	if err == nil && base.Host != "" {
		transport.base = base
		transport.authPath = base.Path + constants.AuthenticatePath
	}

	return transport
}

// ShouldAuthorize reports whether u is a Cabinet resource URL that needs
// the bearer token.
func (t *AuthTransport) ShouldAuthorize(u *url.URL) bool {
	if t.base == nil || u == nil {
		return false
	}

	if !strings.EqualFold(u.Scheme, t.base.Scheme) || !strings.EqualFold(u.Host, t.base.Host) {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	if !strings.HasPrefix(path, t.base.Path) {
		return false
	}

	return strings.TrimSuffix(path, "/") != t.authPath
}

// RoundTrip implements http.RoundTripper. A failure to obtain a token ends
// the round trip with that failure.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tokens == nil || !t.ShouldAuthorize(req.URL) {
		return t.next.RoundTrip(req)
	}

	token, err := t.tokens.GetToken(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}

		return nil, err
	}

	authorized := req.Clone(req.Context())
	authorized.Header.Set("Authorization", constants.BearerPrefix+token)

	return t.next.RoundTrip(authorized)
}
