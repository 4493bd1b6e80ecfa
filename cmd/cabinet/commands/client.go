package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinetclient"
)

// loadClientConfig builds the client configuration from flags, the config
// file and CABINET_* variables, in that order of precedence.
func loadClientConfig() (*cabinet.Config, error) {
	config := cabinetclient.ConfigFromViper(viper.GetViper())

	if config.BaseURL == "" {
		return nil, cabinet.ErrBaseURLRequired
	}

	if viper.GetBool("verbose") {
		config.Debug = true
		config.Logger = cabinet.NewConsoleLogger(os.Stderr, "debug")
	}

	return config, nil
}

func createClient(ctx context.Context) (cabinet.Client, error) {
	config, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	return createClientFromConfig(ctx, config)
}

func createClientFromConfig(ctx context.Context, config *cabinet.Config) (cabinet.Client, error) {
	cli, err := cabinetclient.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return cli, nil
}

// withDocuments opens a client, hands a schemaless resource client for
// resource to fn and closes the client afterwards.
func withDocuments(ctx context.Context, resource string, fn func(cabinet.ResourceClient[cabinet.Document]) error) error {
	if resource == "" {
		return constants.ErrResourceArgRequired
	}

	cli, err := createClient(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = cli.Close()
	}()

	docs, err := cabinetclient.NewResourceClient[cabinet.Document](cli, resource)
	if err != nil {
		return err
	}

	return fn(docs)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", constants.ErrInvalidIdentifier, arg)
	}

	return id, nil
}
