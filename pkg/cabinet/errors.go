package cabinet

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
)

// Sentinel errors. Typed errors below match them through errors.Is.
var (
	ErrAuthentication    = errors.New("authentication failed")
	ErrTokenFormat       = errors.New("malformed bearer token")
	ErrRetriesExhausted  = errors.New("retries exhausted")
	ErrNotFound          = errors.New("resource not found")
	ErrEmptyResponse     = errors.New("empty response body")
	ErrConfigRequired    = errors.New("config is required")
	ErrBaseURLRequired   = errors.New("base URL is required")
	ErrResourceRequired  = errors.New("resource endpoint is required")
	ErrUnsupportedClient = errors.New("client was not created by cabinetclient.New")
)

// Problem is the RFC 7807 body the Cabinet API returns on errors.
type Problem struct {
	Type    string `json:"type,omitempty"    yaml:"type,omitempty"`
	Title   string `json:"title,omitempty"   yaml:"title,omitempty"`
	Status  int    `json:"status,omitempty"  yaml:"status,omitempty"`
	Detail  string `json:"detail,omitempty"  yaml:"detail,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// ParseProblem decodes a problem body. It returns nil when data is not a
// JSON object carrying at least a title, detail or message.
func ParseProblem(data []byte) *Problem {
	var problem Problem

	err := json.Unmarshal(data, &problem)
	if err != nil {
		return nil
	}

	if problem.Title == "" && problem.Detail == "" && problem.Message == "" {
		return nil
	}

	return &problem
}

// String renders the most specific text available.
func (p *Problem) String() string {
	parts := make([]string, 0, 2)

	if p.Title != "" {
		parts = append(parts, p.Title)
	}

	switch {
	case p.Detail != "":
		parts = append(parts, p.Detail)
	case p.Message != "":
		parts = append(parts, p.Message)
	}

	return strings.Join(parts, ": ")
}

// HTTPError is a non-2xx response that was not retried.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Problem    *Problem
}

// NewHTTPError builds an HTTPError, parsing the body as a problem document
// when possible.
func NewHTTPError(method, url string, statusCode int, body []byte) *HTTPError {
	return &HTTPError{
		Method:     method,
		URL:        url,
		StatusCode: statusCode,
		Body:       body,
		Problem:    ParseProblem(body),
	}
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))

	switch {
	case e.Problem != nil:
		msg += " (" + e.Problem.String() + ")"
	case len(e.Body) > constants.ErrorBodyLogLimit:
		msg += ": " + string(truncateUTF8(e.Body, constants.ErrorBodyLogLimit)) + "..."
	case len(e.Body) > 0:
		msg += ": " + string(e.Body)
	}

	return msg
}

// truncateUTF8 cuts b to at most limit bytes without splitting a rune.
func truncateUTF8(b []byte, limit int) []byte {
	if len(b) <= limit {
		return b
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}

	return b[:cut]
}

// Is reports ErrNotFound for 404 responses.
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// RetriesExhaustedError is returned once every allowed attempt ended with a
// retryable status.
type RetriesExhaustedError struct {
	Method     string
	URL        string
	Attempts   int
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%s %s: giving up after %d attempt(s), last status %d %s",
		e.Method, e.URL, e.Attempts, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is matches ErrRetriesExhausted.
func (e *RetriesExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// AuthenticationError means the authentication endpoint rejected the
// credentials or returned something that is not a usable token.
type AuthenticationError struct {
	URL        string
	StatusCode int
	Reason     string
	Err        error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	msg := "authentication failed"
	if e.URL != "" {
		msg += " against " + e.URL
	}

	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}

	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is matches ErrAuthentication.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// TokenFormatError means a bearer token could not be parsed for its expiry.
// It is a kind of authentication failure.
type TokenFormatError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *TokenFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed bearer token: %s: %v", e.Reason, e.Err)
	}

	return "malformed bearer token: " + e.Reason
}

// Unwrap returns the underlying cause.
func (e *TokenFormatError) Unwrap() error {
	return e.Err
}

// Is matches both ErrTokenFormat and ErrAuthentication.
func (e *TokenFormatError) Is(target error) bool {
	return target == ErrTokenFormat || target == ErrAuthentication
}

// IsNotFound checks if the error is a 404 from the API.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthenticationFailure checks if the error came from obtaining a token.
func IsAuthenticationFailure(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsRetriesExhausted checks if the error is a RetriesExhaustedError.
func IsRetriesExhausted(err error) bool {
	return errors.Is(err, ErrRetriesExhausted)
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	httpErr := &HTTPError{}
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	exhausted := &RetriesExhaustedError{}
	if errors.As(err, &exhausted) {
		return exhausted.StatusCode
	}

	authErr := &AuthenticationError{}
	if errors.As(err, &authErr) {
		return authErr.StatusCode
	}

	return 0
}
