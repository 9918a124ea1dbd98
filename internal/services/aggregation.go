package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/storage"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 50
)

// Aggregator computes listings and derived views over a user's rows.
type Aggregator struct {
	repo      storage.Repository
	projector *Projector
}

func NewAggregator(repo storage.Repository, projector *Projector) *Aggregator {
	return &Aggregator{repo: repo, projector: projector}
}

// List returns every visible row of the user, newest first.
func (a *Aggregator) List(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := a.repo.Find(ctx,
		storage.Filter{UserID: userID, Kinds: visibleKinds},
		storage.Paging{Order: storage.OrderDateDesc})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rows, nil
}

// ListPaged returns one page of the visible rows, newest first.
func (a *Aggregator) ListPaged(ctx context.Context, userID int64, page, limit int) (core.Page, error) {
	page, limit = NormalizePaging(page, limit)
	rows, total, err := a.repo.FindAndCount(ctx,
		storage.Filter{UserID: userID, Kinds: visibleKinds},
		storage.Paging{Order: storage.OrderDateDesc, Offset: (page - 1) * limit, Limit: limit})
	if err != nil {
		return core.Page{}, fmt.Errorf("list transactions page %d: %w", page, err)
	}
	if rows == nil {
		rows = []core.Transaction{}
	}
	return core.Page{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: TotalPages(total, limit),
		Data:       rows,
	}, nil
}

// Dashboard sums the realized rows of the month. Fixed definitions and
// hidden plan parents are left out.
func (a *Aggregator) Dashboard(ctx context.Context, userID int64, month, year int) (core.MonthTotals, error) {
	first, last, err := core.MonthRange(year, month)
	if err != nil {
		return core.MonthTotals{}, err
	}
	rows, err := a.repo.Find(ctx,
		storage.Filter{UserID: userID, Kinds: realizedKinds}.InMonth(first, last),
		storage.Paging{Order: storage.OrderIDAsc})
	if err != nil {
		return core.MonthTotals{}, fmt.Errorf("find month rows: %w", err)
	}
	return core.SumByType(rows), nil
}

// Projection sums the projector's set for the month.
func (a *Aggregator) Projection(ctx context.Context, userID int64, month, year int) (core.MonthTotals, error) {
	rows, err := a.projector.Project(ctx, userID, month, year)
	if err != nil {
		return core.MonthTotals{}, err
	}
	return core.SumByType(rows), nil
}

// TopExpenseCategory returns the category with the highest expense total, or
// nil when the user has no expenses.
func (a *Aggregator) TopExpenseCategory(ctx context.Context, userID int64) (*core.CategoryTotal, error) {
	rows, err := a.repo.Find(ctx,
		storage.Filter{UserID: userID, Type: core.Expense, Kinds: visibleKinds},
		storage.Paging{Order: storage.OrderIDAsc})
	if err != nil {
		return nil, fmt.Errorf("find expenses: %w", err)
	}
	return TopCategory(rows), nil
}

// TopCategory sums value per category in row order. A tie keeps the category
// encountered first.
func TopCategory(rows []core.Transaction) *core.CategoryTotal {
	if len(rows) == 0 {
		return nil
	}
	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, t := range rows {
		if _, ok := totals[t.Category]; !ok {
			order = append(order, t.Category)
		}
		totals[t.Category] = totals[t.Category].Add(t.Value)
	}

	best := core.CategoryTotal{Category: order[0], Total: totals[order[0]]}
	for _, c := range order[1:] {
		if totals[c].GreaterThan(best.Total) {
			best = core.CategoryTotal{Category: c, Total: totals[c]}
		}
	}
	return &best
}

// NormalizePaging defaults page to 1 and limit to DefaultPageLimit, and caps
// limit at MaxPageLimit.
func NormalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// TotalPages is ceil(total/limit).
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
