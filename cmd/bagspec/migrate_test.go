package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaayushanti/bagspec/common/bootstrap"
	"github.com/vaayushanti/bagspec/common/config"
	"github.com/vaayushanti/bagspec/common/logger"
)

func TestMigrateSchemaHook(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		Service:  config.ServiceConfig{Name: serviceName, Environment: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "bagspec.db")},
	}

	components, err := bootstrap.Setup(ctx, serviceName,
		bootstrap.WithCustomConfig(cfg),
		bootstrap.WithCustomLogger(logger.Discard()),
		bootstrap.WithoutRedis(),
		bootstrap.WithoutQueue(),
		bootstrap.WithoutCache(),
		bootstrap.WithoutTelemetry(),
		bootstrap.WithDBInitHook(migrateSchema),
	)
	require.NoError(t, err)
	defer components.Shutdown(ctx)

	for _, table := range []string{"filter_bag_submissions", "bag_sizes"} {
		var name string
		err := components.SQLite.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}
