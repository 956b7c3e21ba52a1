package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/betminds/linx-orders/internal/application/ordersync"
	"github.com/betminds/linx-orders/internal/bootstrap"
)

func newImportCommand(opts *RootOptions) *cobra.Command {
	var maxOrders int

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import every order created after the newest row in the sink",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if maxOrders < 0 {
				return NewExitError(ExitCommandError, "--max-orders cannot be negative")
			}
			return withApp(cmd, opts, bootstrap.Options{RequireSource: true}, func(app *bootstrap.App) error {
				if !cmd.Flags().Changed("max-orders") {
					maxOrders = app.Config.Import.MaxOrders
				}
				summary, err := app.Importer.Run(cmd.Context(), ordersync.RunOptions{MaxOrders: maxOrders})
				return newPrinter(opts, cmd.OutOrStdout()).result("Import", summary, err)
			})
		},
	}

	cmd.Flags().IntVarP(&maxOrders, "max-orders", "n", 0, "stop after this many orders (0 = unlimited)")
	return cmd
}

func newDrainCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Run one queue consumer cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, bootstrap.Options{RequireSource: true}, func(app *bootstrap.App) error {
				result, err := app.Queue.Drain(cmd.Context())
				return newPrinter(opts, cmd.OutOrStdout()).result("Queue drain", result, err)
			})
		},
	}
}

func newWatchCommand(opts *RootOptions) *cobra.Command {
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Consume the queue until interrupted",
		Long: `Polls the integration queue, sleeping --poll-interval between empty polls,
and processes each non-empty batch. A failed cycle is logged and retried after
the poll interval. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("poll-interval") && pollInterval <= 0 {
				return NewExitError(ExitCommandError, "--poll-interval must be positive")
			}
			return withApp(cmd, opts, bootstrap.Options{RequireSource: true}, func(app *bootstrap.App) error {
				if !cmd.Flags().Changed("poll-interval") {
					pollInterval = app.Config.Queue.PollInterval
				}
				return watchQueue(cmd.Context(), app.Queue, pollInterval, app.Logger)
			})
		},
	}

	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 30*time.Second, "pause between empty polls")
	return cmd
}

type queueWaiter interface {
	WaitAndDrain(ctx context.Context, pollInterval time.Duration) (*ordersync.DrainResult, error)
}

func watchQueue(ctx context.Context, queue queueWaiter, pollInterval time.Duration, log *zap.Logger) error {
	if pollInterval <= 0 {
		pollInterval = ordersync.DefaultPollInterval
	}
	log.Info("Watching queue", zap.Duration("poll_interval", pollInterval))
	for {
		_, err := queue.WaitAndDrain(ctx, pollInterval)
		if ctx.Err() != nil {
			log.Info("Queue watch stopped")
			return nil
		}
		if err == nil {
			continue
		}
		// the consumer already logged the failed cycle
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(pollInterval):
		}
	}
}

func newReconcileCommand(opts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Delete duplicate rows, keeping the newest per order_id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, bootstrap.Options{}, func(app *bootstrap.App) error {
				result, err := app.Reconciler.Reconcile(cmd.Context(), ordersync.ReconcileOptions{DryRun: dryRun})
				return newPrinter(opts, cmd.OutOrStdout()).result("Reconcile", result, err)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only count duplicates")
	return cmd
}

// CheckReport is the output of the check command.
type CheckReport struct {
	Source string `json:"source"`
	Sink   string `json:"sink"`
	Table  string `json:"table"`
}

func newCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify source and sink connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, bootstrap.Options{}, func(app *bootstrap.App) error {
				var source pinger
				if app.Source != nil {
					source = app.Source
				}
				report, err := runCheck(cmd.Context(), source, app.Orders)
				report.Table = app.Config.Sink.Table
				return newPrinter(opts, cmd.OutOrStdout()).result("Check", report, err)
			})
		},
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

type sinkChecker interface {
	pinger
	EnsureTable(ctx context.Context) error
}

// errSourceNotConfigured is reported when LINX credentials are absent.
var errSourceNotConfigured = errors.New("linx credentials not configured")

func runCheck(ctx context.Context, source pinger, sink sinkChecker) (*CheckReport, error) {
	report := &CheckReport{Source: "ok", Sink: "ok"}
	var errs []error

	if source == nil {
		report.Source = errSourceNotConfigured.Error()
		errs = append(errs, errSourceNotConfigured)
	} else if err := source.Ping(ctx); err != nil {
		report.Source = err.Error()
		errs = append(errs, err)
	}

	if err := sink.Ping(ctx); err != nil {
		report.Sink = err.Error()
		errs = append(errs, err)
	} else if err := sink.EnsureTable(ctx); err != nil {
		report.Sink = err.Error()
		errs = append(errs, err)
	}

	return report, errors.Join(errs...)
}
