package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aussiebroadwan/devhub/internal/auth/app"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "identity",
		Short:         "DevHub identity service",
		Long:          "Accounts, password and GitHub/Google login, TOTP two-factor and session issuance for DevHub.",
		SilenceUsage:  true,
		SilenceErrors: false,
		// Running the bare binary serves, so container images need no args.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE: func(*cobra.Command, []string) error {
				cfg, err := app.LoadConfig()
				if err != nil {
					return err
				}
				return app.Migrate(cfg)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the build version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), app.BuildVersion)
			},
		},
	)
	return cmd
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run()
}
