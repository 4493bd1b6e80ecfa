package cabinetclient

import (
	"context"
	"fmt"

	"github.com/kaleido-biosciences/cabinet-client/internal/client"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

// New creates a Cabinet API client. Authentication is deferred until the
// first request or an explicit Login.
func New(ctx context.Context, config *cabinet.Config) (cabinet.Client, error) {
	if config == nil {
		return nil, cabinet.ErrConfigRequired
	}

	c, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithPassword creates a client for baseURL that authenticates as
// username.
func NewWithPassword(ctx context.Context, baseURL, username, password string) (cabinet.Client, error) {
	return New(ctx, &cabinet.Config{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
	})
}

// NewResourceClient returns a typed client for one resource endpoint, e.g.
// "plate-maps". cli must have been created by New.
func NewResourceClient[T cabinet.Entity](cli cabinet.Client, resource string) (cabinet.ResourceClient[T], error) {
	c, ok := cli.(*client.Client)
	if !ok || c == nil {
		return nil, cabinet.ErrUnsupportedClient
	}

	rc, err := client.NewResourceClient[T](c, resource)
	if err != nil {
		return nil, err
	}

	return rc, nil
}
