package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vaayushanti/bagspec/cmd/bagspec/container"
	"github.com/vaayushanti/bagspec/cmd/bagspec/routes"
	"github.com/vaayushanti/bagspec/common/bootstrap"
	"github.com/vaayushanti/bagspec/common/metrics"
	"github.com/vaayushanti/bagspec/common/server"
)

const serviceName = "bagspec"

// configFile is set by the --config flag
var configFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Filter bag specification service",
	Long: `bagspec sends clients a tokenised link to a filter bag specification
form, stores their submissions and keeps the history of resubmissions.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./bagspec.yaml if present)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func bootstrapOptions(opts ...bootstrap.Option) []bootstrap.Option {
	if configFile != "" {
		opts = append(opts, bootstrap.WithConfigFile(configFile))
	}
	return opts
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bootstrap common components (DB, logger, queue, cache, telemetry)
	components, err := bootstrap.Setup(ctx, serviceName, bootstrapOptions()...)
	if err != nil {
		return fmt.Errorf("failed to bootstrap %s: %w", serviceName, err)
	}
	defer components.Shutdown(context.Background())

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(ctx, components)
	if err != nil {
		return fmt.Errorf("failed to initialize service container: %w", err)
	}

	if err := serviceContainer.Start(ctx); err != nil {
		return err
	}

	e := routes.NewEcho(serviceContainer)

	components.Logger.Info("runtime", metrics.Capture().LogArgs()...)

	cfg := components.Config
	components.Logger.Info("starting "+serviceName,
		"port", cfg.Service.Port,
		"base_url", cfg.Service.BaseURL,
		"db_driver", cfg.Database.Driver,
		"mail_enabled", cfg.MailEnabled(),
		"rate_limited", serviceContainer.RateLimiter != nil,
	)

	// Start with graceful shutdown
	srv := server.New(serviceName, cfg.Service.Port, e, components.Logger)
	return srv.Start(ctx)
}
