package constants

import (
	"math"
	"time"
)

// ConfigFilePerm is the permission for configuration files.
const ConfigFilePerm = 0600

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// AuthHTTPTimeout bounds a single call to the authentication endpoint.
	AuthHTTPTimeout = 10 * time.Second
)

// Retry defaults.
const (
	// DefaultMaxRequestAttempts is the total number of transport calls allowed
	// for one logical request, including the first.
	DefaultMaxRequestAttempts = 3

	// DefaultRetryInterval is the fixed wait between attempts.
	DefaultRetryInterval = 500 * time.Millisecond
)

// Retryable HTTP status codes.
const (
	// HTTPStatusBadGateway is retried.
	HTTPStatusBadGateway = 502

	// HTTPStatusGatewayTimeout is retried.
	HTTPStatusGatewayTimeout = 504
)

// Credential lifecycle.
const (
	// DefaultExpirationBuffer is how long before the real expiry a token is
	// already treated as expired.
	DefaultExpirationBuffer = 5 * time.Minute

	// TokenPartsCount is the expected number of parts in a JWT token.
	TokenPartsCount = 3

	// ExpiryClaim is the payload field holding the epoch-seconds expiry.
	ExpiryClaim = "exp"

	// IDTokenField is the authentication response field carrying the token.
	IDTokenField = "id_token"

	// BearerPrefix precedes the token in the Authorization header.
	BearerPrefix = "Bearer "
)

// API path constants.
const (
	// AuthenticatePath is appended to the base URI for token exchange.
	AuthenticatePath = "authenticate"

	// DefaultSearchPathComponent is the path segment for free-text search.
	DefaultSearchPathComponent = "_search"

	// SaveAllPath is the bulk save sub-path of a resource endpoint.
	SaveAllPath = "save-all"
)

// Pagination.
const (
	// DefaultPage is the first page.
	DefaultPage = 0

	// UnboundedPageSize requests every result in one page.
	UnboundedPageSize = math.MaxInt32

	// FirstResultPageSize is used by the find-first helpers.
	FirstResultPageSize = 1
)

// Query string parameter names.
const (
	// QueryParamPage is the page index parameter.
	QueryParamPage = "page"

	// QueryParamSize is the page size parameter.
	QueryParamSize = "size"

	// QueryParamQuery is the free-text search parameter.
	QueryParamQuery = "query"
)

// Well-known entity fields.
const (
	// FieldName is the conventional name field.
	FieldName = "name"

	// FieldLabel is the conventional label field.
	FieldLabel = "label"

	// FieldID is the identifier field.
	FieldID = "id"
)

// NATS token cache.
const (
	// DefaultTokenBucket is the JetStream KV bucket holding shared tokens.
	DefaultTokenBucket = "cabinet_tokens"

	// DefaultTokenKeyPrefix starts every KV key holding a shared token.
	DefaultTokenKeyPrefix = "bearer"
)

// Display.
const (
	// JSONIndentSize is the number of spaces for JSON and YAML indentation.
	JSONIndentSize = 2

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// KeyValueSplitParts is the number of parts when splitting key=value strings.
	KeyValueSplitParts = 2

	// ErrorBodyLogLimit caps the number of body bytes kept in error messages.
	ErrorBodyLogLimit = 512
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)
