package constants

import "errors"

// Configuration errors.
var (
	ErrInvalidBaseURL       = errors.New("base URL must be an absolute http(s) URL")
	ErrInvalidMaxAttempts   = errors.New("max request attempts must be at least 1")
	ErrNegativeInterval     = errors.New("retry interval must not be negative")
	ErrCredentialsRequired  = errors.New("username and password are required")
	ErrNoAuthenticator      = errors.New("no authenticator configured")
	ErrNATSURLRequired      = errors.New("NATS URL is required for the token cache")
	ErrConfigFileNotFound   = errors.New("config file not found")
	ErrInvalidFilter        = errors.New("filter must be field=value or field.operator=value")
	ErrInvalidOutputFormat  = errors.New("output format must be table, json or yaml")
	ErrResourceArgRequired  = errors.New("resource argument is required")
	ErrInvalidIdentifier    = errors.New("identifier must be an integer")
	ErrPasswordPromptFailed = errors.New("failed to read password")
)
