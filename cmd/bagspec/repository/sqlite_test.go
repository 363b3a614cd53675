package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vaayushanti/bagspec/common/db"
	"github.com/vaayushanti/bagspec/common/logger"
)

func newSQLiteTestStore(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()

	lite, err := db.OpenSQLite(ctx, ":memory:", logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })

	store := NewSQLiteStore(lite)
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, newSQLiteTestStore)
}
