package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/storage"
	"ledger/internal/storage/storagetest"
)

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		return New()
	})
}

func TestStore_ReturnedRowsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	parentID := int64(42)
	row := storagetest.Row(1, "child", core.Expense, "10.00", core.NewDate(2024, 1, 1))
	row.Kind = core.KindInstallmentChild
	row.ParentID = &parentID
	row.InstallmentIndex, row.InstallmentTotal = 1, 2
	require.NoError(t, s.Create(ctx, &row))

	got, err := s.FindByID(ctx, 1, row.ID)
	require.NoError(t, err)
	*got.ParentID = 7

	again, err := s.FindByID(ctx, 1, row.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), *again.ParentID)
}

func TestStore_CreateHookAbortsBatch(t *testing.T) {
	ctx := context.Background()
	s := New()
	calls := 0
	s.OnCreate(func(core.Transaction) error {
		calls++
		if calls == 3 {
			return errors.New("disk full")
		}
		return nil
	})

	rows := make([]*core.Transaction, 4)
	for i := range rows {
		r := storagetest.Row(1, "r", core.Expense, "1.00", core.NewDate(2024, 1, 1))
		rows[i] = &r
	}
	err := s.CreateBatch(ctx, rows)
	assert.EqualError(t, err, "disk full")
	assert.Zero(t, s.Len())

	// IDs are reused after rollback
	s.OnCreate(nil)
	next := storagetest.Row(1, "next", core.Expense, "1.00", core.NewDate(2024, 1, 1))
	require.NoError(t, s.Create(ctx, &next))
	assert.Equal(t, int64(1), next.ID)
}

func TestNewWithRows(t *testing.T) {
	seed := storagetest.Row(3, "seed", core.Income, "9.00", core.NewDate(2024, 1, 1))
	seed.ID = 10
	s := NewWithRows(seed)

	row := storagetest.Row(3, "new", core.Income, "1.00", core.NewDate(2024, 1, 1))
	require.NoError(t, s.Create(context.Background(), &row))
	assert.Equal(t, int64(11), row.ID)
	assert.Equal(t, 2, s.Len())
}

func TestStore_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r := storagetest.Row(1, "single", core.Expense, "1.00", core.NewDate(2024, 1, 1))
				_ = s.Create(ctx, &r)
				return
			}
			_ = s.InTx(ctx, func(tx storage.Repository) error {
				r := storagetest.Row(1, "tx", core.Expense, "1.00", core.NewDate(2024, 1, 1))
				if err := tx.Create(ctx, &r); err != nil {
					return err
				}
				return errors.New("rollback")
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, s.Len())
}
