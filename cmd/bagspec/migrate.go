package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vaayushanti/bagspec/cmd/bagspec/container"
	"github.com/vaayushanti/bagspec/common/bootstrap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		components, err := bootstrap.Setup(ctx, serviceName, bootstrapOptions(
			bootstrap.WithoutRedis(),
			bootstrap.WithoutQueue(),
			bootstrap.WithoutCache(),
			bootstrap.WithoutTelemetry(),
			bootstrap.WithDBInitHook(migrateSchema),
		)...)
		if err != nil {
			return fmt.Errorf("failed to bootstrap %s: %w", serviceName, err)
		}
		defer components.Shutdown(ctx)

		components.Logger.Info("schema applied", "driver", components.Config.Database.Driver)
		return nil
	},
}

func migrateSchema(ctx context.Context, components *bootstrap.Components) error {
	store, err := container.NewStore(components)
	if err != nil {
		return err
	}
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
