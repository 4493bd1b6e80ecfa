package auth

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

// Token is a bearer token together with the expiry read from its claims.
// A Token is never modified after creation; refreshes replace it.
// BaseURL and Username record whose token it is once it has been through
// Credentials.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	BaseURL     string    `json:"base_url,omitempty"`
	Username    string    `json:"username,omitempty"`
}

// NewToken builds a Token from a raw JWT, reading its exp claim.
func NewToken(raw string) (*Token, error) {
	expiresAt, err := ExpiryFromToken(raw)
	if err != nil {
		return nil, err
	}

	return &Token{AccessToken: raw, ExpiresAt: expiresAt}, nil
}

// Expired reports whether the token is missing, has no expiry, or expires
// within buffer of now.
func (t *Token) Expired(now time.Time, buffer time.Duration) bool {
	if t == nil || t.AccessToken == "" || t.ExpiresAt.IsZero() {
		return true
	}

	return !now.Add(buffer).Before(t.ExpiresAt)
}

// BelongsTo reports whether the token was issued to username by the API at
// baseURL.
func (t *Token) BelongsTo(baseURL, username string) bool {
	return t != nil && t.BaseURL == cabinet.NormalizeBaseURI(baseURL) && t.Username == username
}

// scoped returns a copy of t owned by username at baseURL.
func (t *Token) scoped(baseURL, username string) *Token {
	owned := *t
	owned.BaseURL = cabinet.NormalizeBaseURI(baseURL)
	owned.Username = username

	return &owned
}

// TokenStore provides thread-safe in-memory token storage.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the current token, or nil.
func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set replaces the current token.
func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// Clear removes the current token.
func (s *TokenStore) Clear() {
	s.Set(nil)
}

// ExpiryFromToken reads the exp claim from the payload segment of a JWT.
// The signature is not verified. Both base64 alphabets are accepted, with
// or without padding.
func ExpiryFromToken(raw string) (time.Time, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != constants.TokenPartsCount {
		return time.Time{}, &cabinet.TokenFormatError{Reason: "expected three dot-separated segments"}
	}

	segment := strings.NewReplacer("+", "-", "/", "_").Replace(parts[1])

	payload, err := jwt.NewParser(jwt.WithPaddingAllowed()).DecodeSegment(segment)
	if err != nil {
		return time.Time{}, &cabinet.TokenFormatError{Reason: "payload is not base64", Err: err}
	}

	var claims jwt.MapClaims

	err = json.Unmarshal(payload, &claims)
	if err != nil {
		return time.Time{}, &cabinet.TokenFormatError{Reason: "payload is not a JSON object", Err: err}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, &cabinet.TokenFormatError{Reason: "invalid " + constants.ExpiryClaim + " claim", Err: err}
	}

	if exp == nil {
		return time.Time{}, &cabinet.TokenFormatError{Reason: "missing " + constants.ExpiryClaim + " claim"}
	}

	return exp.Time, nil
}
