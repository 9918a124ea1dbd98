package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/storage"
	"ledger/internal/storage/storagetest"
)

func newSQLite(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		return newSQLite(t)
	})
}

func TestSQLiteRepository_NestedTxReusesOuter(t *testing.T) {
	repo := newSQLite(t)
	ctx := context.Background()

	err := repo.InTx(ctx, func(tx storage.Repository) error {
		row := storagetest.Row(1, "outer", core.Expense, "5.00", core.NewDate(2024, 6, 1))
		if err := tx.Create(ctx, &row); err != nil {
			return err
		}
		return tx.InTx(ctx, func(inner storage.Repository) error {
			_, err := inner.FindByID(ctx, 1, row.ID)
			return err
		})
	})
	require.NoError(t, err)

	n, err := repo.Count(ctx, storage.Filter{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMigrate_UpAndDown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")

	version, err := storage.Migrate(path, storage.MigrateUp)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	// Up again is a no-op
	version, err = storage.Migrate(path, storage.MigrateUp)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	version, err = storage.Migrate(path, storage.MigrateDown)
	require.NoError(t, err)
	assert.Zero(t, version)

	_, err = storage.Migrate(path, "sideways")
	assert.Error(t, err)
}
