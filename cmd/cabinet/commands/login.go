package commands

import (
	"fmt"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
)

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the Cabinet API",
		Long:  "Exchange username and password for a bearer token and report when it expires",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadClientConfig()
			if err != nil {
				return err
			}

			if config.Username == "" {
				return constants.ErrCredentialsRequired
			}

			if config.Password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")

				bytePassword, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Fprintln(cmd.ErrOrStderr())

				if err != nil {
					return fmt.Errorf("%w: %w", constants.ErrPasswordPromptFailed, err)
				}

				config.Password = string(bytePassword)
			}

			ctx := cmd.Context()

			cli, err := createClientFromConfig(ctx, config)
			if err != nil {
				return err
			}

			defer func() {
				_ = cli.Close()
			}()

			expiresAt, err := cli.Login(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s\n", cli.BaseURL(), config.Username)
			fmt.Fprintf(cmd.OutOrStdout(), "Token expires at %s\n", expiresAt.Local().Format(time.RFC3339))

			return nil
		},
	}
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the cached bearer token",
		Long:  "Discard the cached bearer token, including the copy in the shared NATS token cache when one is configured",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cli, err := createClient(ctx)
			if err != nil {
				return err
			}

			defer func() {
				_ = cli.Close()
			}()

			err = cli.Logout(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")

			return nil
		},
	}
}
