// Package cli implements the ordersync command line.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/betminds/linx-orders/internal/bootstrap"
)

// AppFactory builds the wired application for a command.
type AppFactory func(ctx context.Context, opts bootstrap.Options) (*bootstrap.App, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Format     string // "json" | "text"

	NewApp AppFactory
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{NewApp: bootstrap.New})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ordersync",
		Short:         "LINX order sync",
		Long:          "Imports LINX Commerce orders into the analytic sink, drains the integration queue and removes duplicate rows.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: ./config.yaml, ./config, /app)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newDrainCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newReconcileCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}

// withApp builds the application, runs fn and releases it.
func withApp(cmd *cobra.Command, opts *RootOptions, bopts bootstrap.Options, fn func(*bootstrap.App) error) error {
	bopts.ConfigFile = opts.ConfigFile
	app, err := opts.NewApp(cmd.Context(), bopts)
	if err != nil {
		return WrapExitError(ExitCommandError, "startup failed", err)
	}
	defer func() {
		_ = app.Close(context.WithoutCancel(cmd.Context()))
	}()
	return fn(app)
}
