package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func TestNormalizePaging(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, DefaultPageLimit},
		{-3, 5, 1, 5},
		{2, 50, 2, 50},
		{1, 100, 1, MaxPageLimit},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page=%d,limit=%d", tt.page, tt.limit), func(t *testing.T) {
			page, limit := NormalizePaging(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 3, TotalPages(12, 5))
}

func TestListPaged(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	for day := 1; day <= 12; day++ {
		mustCreate(t, svc, simpleReq(fmt.Sprintf("Row %d", day), core.Expense, "1", "Misc", core.NewDate(2024, 6, day)), 1)
	}
	mustCreate(t, svc, simpleReq("Other user", core.Expense, "1", "Misc", core.NewDate(2024, 6, 1)), 2)

	t.Run("limit is capped", func(t *testing.T) {
		page, err := svc.ListPaged(ctx, 1, 1, 100)
		require.NoError(t, err)
		assert.Equal(t, MaxPageLimit, page.Limit)
		assert.Equal(t, 12, page.Total)
		assert.Equal(t, 1, page.TotalPages)
		assert.Len(t, page.Data, 12)
	})

	t.Run("pages are newest first", func(t *testing.T) {
		first, err := svc.ListPaged(ctx, 1, 1, 5)
		require.NoError(t, err)
		assert.Equal(t, 3, first.TotalPages)
		require.Len(t, first.Data, 5)
		assert.Equal(t, "Row 12", first.Data[0].Title)

		last, err := svc.ListPaged(ctx, 1, 3, 5)
		require.NoError(t, err)
		require.Len(t, last.Data, 2)
		assert.Equal(t, "Row 1", last.Data[1].Title)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		page, err := svc.ListPaged(ctx, 1, 9, 5)
		require.NoError(t, err)
		assert.NotNil(t, page.Data)
		assert.Empty(t, page.Data)
		assert.Equal(t, 12, page.Total)
	})
}

func TestList_HidesPlanParents(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	res, err := svc.Create(ctx, core.CreateRequest{
		Title: "Bike", Value: dec("900"), Type: core.Expense, Category: "Sport",
		Date: core.NewDate(2024, 2, 1), IsInstallment: true, InstallmentTotal: intPtr(3),
	}, 1)
	require.NoError(t, err)

	rows, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.NotEqual(t, res.Transaction.ID, r.ID)
		assert.Equal(t, core.KindInstallmentChild, r.Kind)
	}

	// still reachable by id
	parent, err := svc.Get(ctx, 1, res.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, parent.IsHidden())
}

func TestDashboardAndProjection(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	mustCreate(t, svc, simpleReq("Salary", core.Income, "100", "Work", core.NewDate(2024, 1, 10)), 1)
	mustCreate(t, svc, core.CreateRequest{
		Title: "Netflix", Value: dec("50"), Type: core.Expense, Category: "Fun",
		Date: core.NewDate(2024, 3, 1), IsFixed: true,
	}, 1)
	mustCreate(t, svc, simpleReq("Foreign", core.Expense, "999", "Misc", core.NewDate(2024, 1, 11)), 2)

	t.Run("projection adds every fixed definition", func(t *testing.T) {
		got, err := svc.Projection(ctx, 1, 1, 2024)
		require.NoError(t, err)
		assert.Equal(t, "100.00", got.Income.StringFixed(2))
		assert.Equal(t, "50.00", got.Expense.StringFixed(2))
		assert.Equal(t, "50.00", got.Balance.StringFixed(2))
	})

	t.Run("dashboard excludes fixed definitions", func(t *testing.T) {
		got, err := svc.Dashboard(ctx, 1, 1, 2024)
		require.NoError(t, err)
		assert.Equal(t, "100.00", got.Income.StringFixed(2))
		assert.True(t, got.Expense.IsZero())
		assert.Equal(t, "100.00", got.Balance.StringFixed(2))

		march, err := svc.Dashboard(ctx, 1, 3, 2024)
		require.NoError(t, err)
		assert.True(t, march.Expense.IsZero())
	})

	t.Run("definition dated in the month counts once", func(t *testing.T) {
		got, err := svc.Projection(ctx, 1, 3, 2024)
		require.NoError(t, err)
		assert.Equal(t, "50.00", got.Expense.StringFixed(2))
		assert.True(t, got.Income.IsZero())
	})

	t.Run("invalid month", func(t *testing.T) {
		_, err := svc.Dashboard(ctx, 1, 13, 2024)
		assert.True(t, core.IsValidation(err))
		_, err = svc.Projection(ctx, 1, 0, 2024)
		assert.True(t, core.IsValidation(err))
	})
}

func TestDashboard_CountsOccurrencesAndInstallments(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	origin := mustCreate(t, svc, core.CreateRequest{
		Title: "Rent", Value: dec("700"), Type: core.Expense, Category: "Home",
		Date: core.NewDate(2024, 1, 1), IsFixed: true,
	}, 1)
	mustCreate(t, svc, core.CreateRequest{
		Title: "Rent April", Value: dec("700"), Type: core.Expense, Category: "Home",
		Date: core.NewDate(2024, 4, 1), IsFixed: true, OriginID: idPtr(origin.ID),
	}, 1)
	_, err := svc.Create(ctx, core.CreateRequest{
		Title: "Fridge", Value: dec("300"), Type: core.Expense, Category: "Home",
		Date: core.NewDate(2024, 3, 15), IsInstallment: true, InstallmentTotal: intPtr(3),
	}, 1)
	require.NoError(t, err)

	got, err := svc.Dashboard(ctx, 1, 4, 2024)
	require.NoError(t, err)
	// occurrence 700 plus installment 2/3 of 100; the plan parent is left out
	assert.Equal(t, "800.00", got.Expense.StringFixed(2))

	proj, err := svc.Projection(ctx, 1, 4, 2024)
	require.NoError(t, err)
	assert.Equal(t, "1500.00", proj.Expense.StringFixed(2))
}

func TestTopExpenseCategory(t *testing.T) {
	ctx := context.Background()
	date := core.NewDate(2024, 5, 5)

	t.Run("sums per category", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		mustCreate(t, svc, simpleReq("Groceries", core.Expense, "30", "Food", date), 1)
		mustCreate(t, svc, simpleReq("Dinner", core.Expense, "20", "Food", date), 1)
		mustCreate(t, svc, simpleReq("Rent", core.Expense, "45", "Rent", date), 1)
		mustCreate(t, svc, simpleReq("Salary", core.Income, "5000", "Work", date), 1)

		top, err := svc.TopExpenseCategory(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, top)
		assert.Equal(t, "Food", top.Category)
		assert.Equal(t, "50.00", top.Total.StringFixed(2))
	})

	t.Run("tie keeps the first category seen", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		mustCreate(t, svc, simpleReq("Rent", core.Expense, "50", "Rent", date), 1)
		mustCreate(t, svc, simpleReq("Food", core.Expense, "50", "Food", date), 1)

		top, err := svc.TopExpenseCategory(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, top)
		assert.Equal(t, "Rent", top.Category)
	})

	t.Run("no expenses", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		mustCreate(t, svc, simpleReq("Salary", core.Income, "5000", "Work", date), 1)

		top, err := svc.TopExpenseCategory(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, top)
	})

	t.Run("plan parent is not double counted", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Create(ctx, core.CreateRequest{
			Title: "Camera", Value: dec("90"), Type: core.Expense, Category: "Tech",
			Date: date, IsInstallment: true, InstallmentTotal: intPtr(3),
		}, 1)
		require.NoError(t, err)
		mustCreate(t, svc, simpleReq("Market", core.Expense, "100", "Food", date), 1)

		top, err := svc.TopExpenseCategory(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, top)
		assert.Equal(t, "Food", top.Category)
	})
}

func TestMergeByID(t *testing.T) {
	a := []core.Transaction{{ID: 1}, {ID: 2}}
	b := []core.Transaction{{ID: 2, Title: "dup"}, {ID: 3}}

	got := mergeByID(a, b)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Empty(t, got[1].Title, "first occurrence wins")
	assert.Equal(t, int64(3), got[2].ID)
	assert.Nil(t, mergeByID())
}
