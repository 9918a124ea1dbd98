package storage

import (
	"context"
	"slices"

	"ledger/internal/core"
)

// Order selects the sort applied by Find.
type Order int

const (
	// OrderDateDesc sorts newest first, ties broken by id descending.
	OrderDateDesc Order = iota
	// OrderIDAsc sorts by insertion order.
	OrderIDAsc
)

// Filter is the predicate of a Find. Zero fields do not constrain.
type Filter struct {
	UserID int64
	From   *core.Date // inclusive
	To     *core.Date // inclusive
	Type   core.TxType
	Kinds  []core.Kind

	// ParentID selects the installments of one plan.
	ParentID *int64
}

// Paging carries order, offset and limit. A zero Limit means no limit.
type Paging struct {
	Order  Order
	Offset int
	Limit  int
}

// Repository is the persistence gateway. Every lookup is owner-scoped:
// a row of another user is reported as core.ErrNotFound.
type Repository interface {
	FindByID(ctx context.Context, userID, id int64) (core.Transaction, error)
	Find(ctx context.Context, f Filter, p Paging) ([]core.Transaction, error)
	FindAndCount(ctx context.Context, f Filter, p Paging) ([]core.Transaction, int, error)
	Count(ctx context.Context, f Filter) (int, error)

	// Create inserts t and assigns its ID.
	Create(ctx context.Context, t *core.Transaction) error
	// CreateBatch inserts every row in order, assigning IDs.
	CreateBatch(ctx context.Context, ts []*core.Transaction) error
	Save(ctx context.Context, t core.Transaction) error
	Remove(ctx context.Context, userID, id int64) error

	// InTx runs fn against a repository bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Repository) error) error
}

// Match reports whether t satisfies the filter.
func (f Filter) Match(t core.Transaction) bool {
	if f.UserID != 0 && t.UserID != f.UserID {
		return false
	}
	if f.From != nil && t.Date.Before(f.From.Time) {
		return false
	}
	if f.To != nil && t.Date.After(f.To.Time) {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, t.Kind) {
		return false
	}
	if f.ParentID != nil && (t.ParentID == nil || *t.ParentID != *f.ParentID) {
		return false
	}
	return true
}

// InMonth narrows the filter to [first, last] of a month.
func (f Filter) InMonth(first, last core.Date) Filter {
	f.From = &first
	f.To = &last
	return f
}
