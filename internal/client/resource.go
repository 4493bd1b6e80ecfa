package client

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
	"github.com/kaleido-biosciences/cabinet-client/internal/http"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

// ResourceClient implements cabinet.ResourceClient for one entity type.
type ResourceClient[T cabinet.Entity] struct {
	httpClient *http.Client
	endpoint   cabinet.Endpoint
	codec      cabinet.Codec
	name       string
}

// NewResourceClient creates a resource client for the endpoint named
// resource, e.g. "plate-maps".
func NewResourceClient[T cabinet.Entity](c *Client, resource string) (*ResourceClient[T], error) {
	if strings.Trim(resource, "/") == "" {
		return nil, cabinet.ErrResourceRequired
	}

	return &ResourceClient[T]{
		httpClient: c.httpClient,
		endpoint:   c.Endpoint(resource),
		codec:      c.codec,
		name:       entityName[T](),
	}, nil
}

func entityName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t.Name()
}

// Endpoint implements cabinet.ResourceClient.Endpoint.
func (r *ResourceClient[T]) Endpoint() cabinet.Endpoint {
	return r.endpoint
}

// EntityName implements cabinet.ResourceClient.EntityName.
func (r *ResourceClient[T]) EntityName() string {
	return r.name
}

// Find implements cabinet.ResourceClient.Find.
func (r *ResourceClient[T]) Find(ctx context.Context, id int64) (T, error) {
	return r.getOne(ctx, r.endpoint.ItemURI(id), fmt.Sprintf("finding %s %d", r.endpoint.Resource, id))
}

// FindOneByMethod implements cabinet.ResourceClient.FindOneByMethod.
func (r *ResourceClient[T]) FindOneByMethod(ctx context.Context, method, value string) (T, error) {
	return r.getOne(ctx, r.endpoint.MethodURI(method, value),
		fmt.Sprintf("finding %s by %s %q", r.endpoint.Resource, strings.Trim(method, "/"), value))
}

// FindAll implements cabinet.ResourceClient.FindAll.
func (r *ResourceClient[T]) FindAll(ctx context.Context, page cabinet.PageRequest) ([]T, error) {
	return r.FindByFieldsWithOperators(ctx, nil, page)
}

// FindByFieldEquals implements cabinet.ResourceClient.FindByFieldEquals.
func (r *ResourceClient[T]) FindByFieldEquals(ctx context.Context, field, value string, page cabinet.PageRequest) ([]T, error) {
	return r.getList(ctx, r.endpoint.EqualsURI(field, value, page))
}

// FindByFieldsEqual implements cabinet.ResourceClient.FindByFieldsEqual.
// Operators already present on spec are replaced by equals.
func (r *ResourceClient[T]) FindByFieldsEqual(ctx context.Context, spec cabinet.FilterSpec, page cabinet.PageRequest) ([]T, error) {
	return r.getList(ctx, r.endpoint.FilterURI(spec.AsEquals(), page))
}

// FindByFieldWithOperator implements cabinet.ResourceClient.FindByFieldWithOperator.
func (r *ResourceClient[T]) FindByFieldWithOperator(ctx context.Context, field, value string, op cabinet.Operator, page cabinet.PageRequest) ([]T, error) {
	return r.getList(ctx, r.endpoint.OperatorURI(field, value, op, page))
}

// FindByFieldsWithOperators implements cabinet.ResourceClient.FindByFieldsWithOperators.
func (r *ResourceClient[T]) FindByFieldsWithOperators(ctx context.Context, spec cabinet.FilterSpec, page cabinet.PageRequest) ([]T, error) {
	return r.getList(ctx, r.endpoint.FilterURI(spec, page))
}

// FindByName implements cabinet.ResourceClient.FindByName.
func (r *ResourceClient[T]) FindByName(ctx context.Context, name string, page cabinet.PageRequest) ([]T, error) {
	return r.FindByFieldEquals(ctx, constants.FieldName, name, page)
}

// FindByLabel implements cabinet.ResourceClient.FindByLabel.
func (r *ResourceClient[T]) FindByLabel(ctx context.Context, label string, page cabinet.PageRequest) ([]T, error) {
	return r.FindByFieldEquals(ctx, constants.FieldLabel, label, page)
}

// FindFirstByFieldEquals implements cabinet.ResourceClient.FindFirstByFieldEquals.
func (r *ResourceClient[T]) FindFirstByFieldEquals(ctx context.Context, field, value string) (T, error) {
	return r.first(r.FindByFieldEquals(ctx, field, value, cabinet.FirstResult()))
}

// FindFirstByFieldsWithOperators implements cabinet.ResourceClient.FindFirstByFieldsWithOperators.
func (r *ResourceClient[T]) FindFirstByFieldsWithOperators(ctx context.Context, spec cabinet.FilterSpec) (T, error) {
	return r.first(r.FindByFieldsWithOperators(ctx, spec, cabinet.FirstResult()))
}

// FindFirstByName implements cabinet.ResourceClient.FindFirstByName.
func (r *ResourceClient[T]) FindFirstByName(ctx context.Context, name string) (T, error) {
	return r.FindFirstByFieldEquals(ctx, constants.FieldName, name)
}

// FindFirstByLabel implements cabinet.ResourceClient.FindFirstByLabel.
func (r *ResourceClient[T]) FindFirstByLabel(ctx context.Context, label string) (T, error) {
	return r.FindFirstByFieldEquals(ctx, constants.FieldLabel, label)
}

// Search implements cabinet.ResourceClient.Search.
func (r *ResourceClient[T]) Search(ctx context.Context, term string, page cabinet.PageRequest) ([]T, error) {
	return r.getList(ctx, r.endpoint.SearchURI(term, page))
}

// Save implements cabinet.ResourceClient.Save. Entities without an
// identifier are created with POST, others are updated with PUT. When the
// server answers without a body the input entity is returned.
func (r *ResourceClient[T]) Save(ctx context.Context, entity T) (T, error) {
	method := "POST"
	if _, ok := entity.EntityID(); ok {
		method = "PUT"
	}

	body, err := r.codec.Marshal(entity)
	if err != nil {
		return entity, fmt.Errorf("saving %s: %w", r.endpoint.Resource, err)
	}

	resp, err := r.httpClient.Do(ctx, &http.Request{
		Method:  method,
		Path:    r.endpoint.CollectionURI(),
		Body:    body,
		Headers: r.contentHeaders(),
	})
	if err != nil {
		return entity, fmt.Errorf("saving %s: %w", r.endpoint.Resource, err)
	}

	if len(resp.Body) == 0 {
		return entity, nil
	}

	var saved T

	err = r.codec.Unmarshal(resp.Body, &saved)
	if err != nil {
		return entity, fmt.Errorf("parsing saved %s: %w", r.endpoint.Resource, err)
	}

	return saved, nil
}

// SaveAll implements cabinet.ResourceClient.SaveAll.
func (r *ResourceClient[T]) SaveAll(ctx context.Context, entities []T) ([]T, error) {
	if entities == nil {
		entities = []T{}
	}

	body, err := r.codec.Marshal(entities)
	if err != nil {
		return nil, fmt.Errorf("saving %s: %w", r.endpoint.Resource, err)
	}

	resp, err := r.httpClient.Do(ctx, &http.Request{
		Method:  "POST",
		Path:    r.endpoint.SaveAllURI(),
		Body:    body,
		Headers: r.contentHeaders(),
	})
	if err != nil {
		return nil, fmt.Errorf("saving %s: %w", r.endpoint.Resource, err)
	}

	return r.decodeList(resp.Body)
}

// Delete implements cabinet.ResourceClient.Delete.
func (r *ResourceClient[T]) Delete(ctx context.Context, id int64) error {
	_, err := r.httpClient.Delete(ctx, r.endpoint.ItemURI(id))
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", r.endpoint.Resource, id, err)
	}

	return nil
}

func (r *ResourceClient[T]) getOne(ctx context.Context, uri, action string) (T, error) {
	var entity T

	resp, err := r.httpClient.Get(ctx, uri)
	if err != nil {
		return entity, fmt.Errorf("%s: %w", action, err)
	}

	if len(resp.Body) == 0 {
		return entity, fmt.Errorf("%s: %w", action, cabinet.ErrEmptyResponse)
	}

	err = r.codec.Unmarshal(resp.Body, &entity)
	if err != nil {
		return entity, fmt.Errorf("parsing %s response: %w", r.endpoint.Resource, err)
	}

	return entity, nil
}

func (r *ResourceClient[T]) getList(ctx context.Context, uri string) ([]T, error) {
	resp, err := r.httpClient.Get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("finding %s: %w", r.endpoint.Resource, err)
	}

	return r.decodeList(resp.Body)
}

func (r *ResourceClient[T]) decodeList(body []byte) ([]T, error) {
	if len(body) == 0 {
		return nil, nil
	}

	var entities []T

	err := r.codec.Unmarshal(body, &entities)
	if err != nil {
		return nil, fmt.Errorf("parsing %s list response: %w", r.endpoint.Resource, err)
	}

	return entities, nil
}

func (r *ResourceClient[T]) first(entities []T, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}

	if len(entities) == 0 {
		return zero, fmt.Errorf("%s: %w", r.endpoint.Resource, cabinet.ErrNotFound)
	}

	return entities[0], nil
}

func (r *ResourceClient[T]) contentHeaders() map[string]string {
	return map[string]string{"Content-Type": r.codec.ContentType()}
}

var _ cabinet.ResourceClient[cabinet.PlateMap] = (*ResourceClient[cabinet.PlateMap])(nil)
