// Command govgen serves the governed code generation API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/govgen-backend/internal/app"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "govgen",
	Short: "Governed code generation backend",
	Long: `govgen turns a requirement and a library of governance documents into
reasoning, code, tests and a self-assessed compliance verdict.

Running without a subcommand starts the HTTP API.`,
	Version:       app.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("GOVGEN_CONFIG"), "YAML config file (env: GOVGEN_CONFIG)")
	rootCmd.Flags().BoolVar(&serveWorker, "with-worker", false, "also run the Temporal worker in this process")
	serveCmd.Flags().BoolVar(&serveWorker, "with-worker", false, "also run the Temporal worker in this process")
	rootCmd.AddCommand(serveCmd, migrateCmd, workerCmd, runCmd)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadApp(ctx context.Context, opts app.Options) (*app.App, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("init app: %w", err)
	}
	return a, nil
}

var serveWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	a, err := loadApp(ctx, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return a.Serve(ctx, serveWorker)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := loadApp(ctx, app.Options{SkipModel: true, SkipTemporal: true})
		if err != nil {
			return err
		}
		defer a.Close(context.Background())
		return a.Migrate()
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker for queued generation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := loadApp(ctx, app.Options{})
		if err != nil {
			return err
		}
		defer a.Close(context.Background())
		return a.Worker(ctx)
	},
}
