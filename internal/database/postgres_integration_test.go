//go:build integration

package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/addressmap/internal/database"
	"github.com/stwalsh4118/addressmap/internal/database/databasetest"
)

func TestMigrate_CreatesSchema(t *testing.T) {
	db := databasetest.StartPostGIS(t)
	ctx := context.Background()

	for _, table := range []string{
		"addresses", "address_batches", "address_batch_members",
		"address_snapshots", "address_changes", "parcels",
	} {
		var exists bool
		err := db.Pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}

	// Running again is a no-op.
	require.NoError(t, database.Migrate(ctx, db.Pool))
}

func TestPool_StatsAndPing(t *testing.T) {
	db := databasetest.StartPostGIS(t)

	require.NoError(t, db.Ping(context.Background()))
	stats := db.Stats()
	require.NotNil(t, stats)
	assert.Equal(t, int32(5), stats.MaxConns())
}
