// Package storagetest holds the behavioural contract every
// storage.Repository implementation must satisfy.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// Row builds a simple row for userID.
func Row(userID int64, title string, typ core.TxType, value string, date core.Date) core.Transaction {
	return core.Transaction{
		UserID:   userID,
		Title:    title,
		Value:    decimal.RequireFromString(value),
		Type:     typ,
		Category: "General",
		Date:     date,
		Kind:     core.KindSimple,
	}
}

// Run exercises repo against the repository contract. newRepo must return an
// empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) storage.Repository) {
	ctx := context.Background()

	t.Run("create assigns ids and find by id is owner scoped", func(t *testing.T) {
		repo := newRepo(t)
		a := Row(1, "Salary", core.Income, "2500.75", core.NewDate(2024, 1, 5))
		b := Row(1, "Coffee", core.Expense, "3.50", core.NewDate(2024, 1, 6))
		require.NoError(t, repo.Create(ctx, &a))
		require.NoError(t, repo.Create(ctx, &b))
		assert.NotZero(t, a.ID)
		assert.Greater(t, b.ID, a.ID)

		got, err := repo.FindByID(ctx, 1, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "Salary", got.Title)
		assert.Equal(t, "2500.75", core.FormatAmount(got.Value))
		assert.Equal(t, "2024-01-05", got.Date.String())
		assert.Equal(t, core.KindSimple, got.Kind)

		_, err = repo.FindByID(ctx, 2, a.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
		_, err = repo.FindByID(ctx, 1, 9999)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("relations round trip", func(t *testing.T) {
		repo := newRepo(t)
		origin := Row(1, "Rent", core.Expense, "850.00", core.NewDate(2024, 3, 1))
		origin.Kind = core.KindFixedOrigin
		require.NoError(t, repo.Create(ctx, &origin))

		occ := Row(1, "Rent", core.Expense, "850.00", core.NewDate(2024, 4, 1))
		occ.Kind = core.KindFixedOccurrence
		occ.OriginID = &origin.ID
		require.NoError(t, repo.Create(ctx, &occ))

		parent := Row(1, "Laptop", core.Expense, "1000.00", core.NewDate(2024, 1, 31))
		parent.Kind = core.KindInstallmentParent
		require.NoError(t, repo.Create(ctx, &parent))

		child := Row(1, "Laptop (2/3)", core.Expense, "333.33", core.NewDate(2024, 2, 29))
		child.Kind = core.KindInstallmentChild
		child.ParentID = &parent.ID
		child.InstallmentIndex = 2
		child.InstallmentTotal = 3
		require.NoError(t, repo.Create(ctx, &child))

		got, err := repo.FindByID(ctx, 1, occ.ID)
		require.NoError(t, err)
		assert.Equal(t, core.KindFixedOccurrence, got.Kind)
		require.NotNil(t, got.OriginID)
		assert.Equal(t, origin.ID, *got.OriginID)

		got, err = repo.FindByID(ctx, 1, child.ID)
		require.NoError(t, err)
		assert.Equal(t, core.KindInstallmentChild, got.Kind)
		require.NotNil(t, got.ParentID)
		assert.Equal(t, parent.ID, *got.ParentID)
		assert.Equal(t, 2, got.InstallmentIndex)
		assert.Equal(t, 3, got.InstallmentTotal)
		assert.Nil(t, got.OriginID)

		got, err = repo.FindByID(ctx, 1, parent.ID)
		require.NoError(t, err)
		assert.True(t, got.IsHidden())
		assert.Zero(t, got.InstallmentTotal)

		siblings, err := repo.Find(ctx, storage.Filter{UserID: 1, ParentID: &parent.ID}, storage.Paging{Order: storage.OrderIDAsc})
		require.NoError(t, err)
		require.Len(t, siblings, 1)
		assert.Equal(t, child.ID, siblings[0].ID)

		none, err := repo.Find(ctx, storage.Filter{UserID: 1, ParentID: &origin.ID}, storage.Paging{})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("find filters orders and pages", func(t *testing.T) {
		repo := newRepo(t)
		rows := []core.Transaction{
			Row(1, "a", core.Income, "10.00", core.NewDate(2024, 1, 10)),
			Row(1, "b", core.Expense, "20.00", core.NewDate(2024, 1, 20)),
			Row(1, "c", core.Expense, "30.00", core.NewDate(2024, 2, 1)),
			Row(1, "d", core.Expense, "40.00", core.NewDate(2024, 1, 20)),
			Row(2, "other", core.Expense, "50.00", core.NewDate(2024, 1, 15)),
		}
		for i := range rows {
			require.NoError(t, repo.Create(ctx, &rows[i]))
		}

		all, err := repo.Find(ctx, storage.Filter{UserID: 1}, storage.Paging{Order: storage.OrderDateDesc})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "d", "b", "a"}, titles(all))

		byID, err := repo.Find(ctx, storage.Filter{UserID: 1}, storage.Paging{Order: storage.OrderIDAsc})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, titles(byID))

		first, last := core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31)
		jan, err := repo.Find(ctx, storage.Filter{UserID: 1}.InMonth(first, last), storage.Paging{Order: storage.OrderIDAsc})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "d"}, titles(jan))

		exp, err := repo.Find(ctx, storage.Filter{UserID: 1, Type: core.Expense}, storage.Paging{Order: storage.OrderIDAsc})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "d"}, titles(exp))

		page, total, err := repo.FindAndCount(ctx, storage.Filter{UserID: 1}, storage.Paging{Offset: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Equal(t, []string{"d", "b"}, titles(page))

		tail, total, err := repo.FindAndCount(ctx, storage.Filter{UserID: 1}, storage.Paging{Offset: 10, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Empty(t, tail)

		n, err := repo.Count(ctx, storage.Filter{UserID: 1, Kinds: []core.Kind{core.KindFixedOrigin}})
		require.NoError(t, err)
		assert.Zero(t, n)
		n, err = repo.Count(ctx, storage.Filter{UserID: 2})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("save and remove are owner scoped", func(t *testing.T) {
		repo := newRepo(t)
		row := Row(1, "Gym", core.Expense, "30.00", core.NewDate(2024, 5, 1))
		require.NoError(t, repo.Create(ctx, &row))

		row.Title = "Gym membership"
		row.Value = decimal.RequireFromString("35.00")
		require.NoError(t, repo.Save(ctx, row))
		got, err := repo.FindByID(ctx, 1, row.ID)
		require.NoError(t, err)
		assert.Equal(t, "Gym membership", got.Title)
		assert.Equal(t, "35.00", core.FormatAmount(got.Value))

		foreign := row
		foreign.UserID = 2
		assert.ErrorIs(t, repo.Save(ctx, foreign), core.ErrNotFound)
		assert.ErrorIs(t, repo.Remove(ctx, 2, row.ID), core.ErrNotFound)

		require.NoError(t, repo.Remove(ctx, 1, row.ID))
		assert.ErrorIs(t, repo.Remove(ctx, 1, row.ID), core.ErrNotFound)
		_, err = repo.FindByID(ctx, 1, row.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		repo := newRepo(t)
		boom := errors.New("boom")
		err := repo.InTx(ctx, func(tx storage.Repository) error {
			a := Row(1, "a", core.Income, "1.00", core.NewDate(2024, 1, 1))
			if err := tx.Create(ctx, &a); err != nil {
				return err
			}
			b := Row(1, "b", core.Income, "1.00", core.NewDate(2024, 1, 1))
			if err := tx.Create(ctx, &b); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		n, err := repo.Count(ctx, storage.Filter{UserID: 1})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("transaction commits on success", func(t *testing.T) {
		repo := newRepo(t)
		rows := []*core.Transaction{
			ptr(Row(1, "a", core.Income, "1.00", core.NewDate(2024, 1, 1))),
			ptr(Row(1, "b", core.Income, "2.00", core.NewDate(2024, 1, 2))),
		}
		require.NoError(t, repo.CreateBatch(ctx, rows))
		assert.NotZero(t, rows[0].ID)
		assert.NotZero(t, rows[1].ID)
		n, err := repo.Count(ctx, storage.Filter{UserID: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func titles(rows []core.Transaction) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Title
	}
	return out
}

func ptr(t core.Transaction) *core.Transaction { return &t }
