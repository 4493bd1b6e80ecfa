package cabinet

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
)

// Entity is any resource the Cabinet API stores. EntityID reports the
// server-assigned identifier, or false when the entity has not been saved.
type Entity interface {
	EntityID() (int64, bool)
}

// Codec turns entities into request bodies and response bodies back into
// entities.
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
	ContentType() string
}

// JSONCodec is the default Codec.
type JSONCodec struct{}

// Marshal encodes v as JSON.
func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}

	return data, nil
}

// Unmarshal decodes JSON data into v.
func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	err := json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("decoding JSON: %w", err)
	}

	return nil
}

// ContentType returns application/json.
func (JSONCodec) ContentType() string {
	return "application/json"
}

// Document is a schemaless entity: any JSON object with an optional "id".
type Document map[string]interface{}

// EntityID reads the "id" member. JSON numbers, integers and numeric
// strings are accepted.
func (d Document) EntityID() (int64, bool) {
	raw, ok := d[constants.FieldID]
	if !ok || raw == nil {
		return 0, false
	}

	switch id := raw.(type) {
	case float64:
		return int64(id), true
	case int64:
		return id, true
	case int:
		return int64(id), true
	case json.Number:
		n, err := id.Int64()

		return n, err == nil
	case string:
		n, err := strconv.ParseInt(id, 10, 64)

		return n, err == nil
	default:
		return 0, false
	}
}

// String returns a field as text, or "" when absent.
func (d Document) String(field string) string {
	v, ok := d[field]
	if !ok || v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}

// PlateMap describes the layout of samples on an assay plate.
type PlateMap struct {
	ID           *int64     `json:"id,omitempty"           yaml:"id,omitempty"`
	Name         string     `json:"name,omitempty"         yaml:"name,omitempty"`
	Label        string     `json:"label,omitempty"        yaml:"label,omitempty"`
	ActivityName string     `json:"activityName,omitempty" yaml:"activityName,omitempty"`
	Status       string     `json:"status,omitempty"       yaml:"status,omitempty"`
	Data         string     `json:"data,omitempty"         yaml:"data,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty" yaml:"lastModified,omitempty"`
}

// EntityID implements Entity.
func (p PlateMap) EntityID() (int64, bool) {
	if p.ID == nil {
		return 0, false
	}

	return *p.ID, true
}

// Client is a configured connection to one Cabinet API. Resource clients are
// created from it with cabinetclient.NewResourceClient.
type Client interface {
	// BaseURL returns the normalized API root.
	BaseURL() string
	// Login authenticates now, replacing any cached token, and returns the
	// new token's expiry.
	Login(ctx context.Context) (time.Time, error)
	// Logout drops the cached token, including any shared copy.
	Logout(ctx context.Context) error
	// Close releases connections held by the client.
	Close() error
}

// ResourceClient performs CRUD and criteria lookups for one resource type.
// Single-entity lookups that match nothing fail with an error satisfying
// errors.Is(err, ErrNotFound).
type ResourceClient[T Entity] interface {
	Find(ctx context.Context, id int64) (T, error)
	FindOneByMethod(ctx context.Context, method, value string) (T, error)

	FindAll(ctx context.Context, page PageRequest) ([]T, error)
	FindByFieldEquals(ctx context.Context, field, value string, page PageRequest) ([]T, error)
	FindByFieldsEqual(ctx context.Context, spec FilterSpec, page PageRequest) ([]T, error)
	FindByFieldWithOperator(ctx context.Context, field, value string, op Operator, page PageRequest) ([]T, error)
	FindByFieldsWithOperators(ctx context.Context, spec FilterSpec, page PageRequest) ([]T, error)
	FindByName(ctx context.Context, name string, page PageRequest) ([]T, error)
	FindByLabel(ctx context.Context, label string, page PageRequest) ([]T, error)

	FindFirstByFieldEquals(ctx context.Context, field, value string) (T, error)
	FindFirstByFieldsWithOperators(ctx context.Context, spec FilterSpec) (T, error)
	FindFirstByName(ctx context.Context, name string) (T, error)
	FindFirstByLabel(ctx context.Context, label string) (T, error)

	Search(ctx context.Context, term string, page PageRequest) ([]T, error)

	Save(ctx context.Context, entity T) (T, error)
	SaveAll(ctx context.Context, entities []T) ([]T, error)
	Delete(ctx context.Context, id int64) error

	Endpoint() Endpoint
	EntityName() string
}
