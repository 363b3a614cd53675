package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaayushanti/bagspec/common/config"
	"github.com/vaayushanti/bagspec/common/logger"
)

func sqliteConfig(path string) *config.Config {
	return &config.Config{
		Service:  config.ServiceConfig{Name: "bagspec", Environment: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite", SQLitePath: path},
		Queue:    config.QueueConfig{Type: "memory", BufferSize: 4},
	}
}

func TestSetup_RunsDBInitHook(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hook.db")

	called := false
	components, err := Setup(ctx, "bagspec",
		WithCustomConfig(sqliteConfig(path)),
		WithCustomLogger(logger.Discard()),
		WithoutRedis(),
		WithoutCache(),
		WithoutTelemetry(),
		WithDBInitHook(func(ctx context.Context, c *Components) error {
			called = true
			require.NotNil(t, c.SQLite)
			_, err := c.SQLite.ExecContext(ctx, `CREATE TABLE marker (id INTEGER PRIMARY KEY)`)
			return err
		}),
	)
	require.NoError(t, err)
	defer components.Shutdown(ctx)

	assert.True(t, called)
	assert.NotNil(t, components.Queue)
	assert.Nil(t, components.Cache)
	assert.NoError(t, components.Health(ctx))

	var name string
	require.NoError(t, components.SQLite.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'marker'`).Scan(&name))
	assert.Equal(t, "marker", name)
}

func TestSetup_DBInitHookFailure(t *testing.T) {
	hookErr := errors.New("schema broken")

	_, err := Setup(context.Background(), "bagspec",
		WithCustomConfig(sqliteConfig(":memory:")),
		WithCustomLogger(logger.Discard()),
		WithoutRedis(),
		WithoutQueue(),
		WithoutCache(),
		WithoutTelemetry(),
		WithDBInitHook(func(context.Context, *Components) error { return hookErr }),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, hookErr)
	assert.Contains(t, err.Error(), "database init hook failed")
}

func TestSetup_UnknownDriver(t *testing.T) {
	cfg := sqliteConfig("")
	cfg.Database.Driver = "mysql"

	_, err := Setup(context.Background(), "bagspec",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
	)
	assert.ErrorContains(t, err, "unknown database driver")
}
