package services

import (
	"context"
	"fmt"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// visibleKinds are the kinds shown in user-facing views.
var visibleKinds = []core.Kind{
	core.KindSimple,
	core.KindFixedOrigin,
	core.KindFixedOccurrence,
	core.KindInstallmentChild,
}

// realizedKinds count towards the monthly dashboard.
var realizedKinds = []core.Kind{
	core.KindSimple,
	core.KindFixedOccurrence,
	core.KindInstallmentChild,
}

// Projector merges a month's concrete rows with every standing fixed
// definition. It never writes.
type Projector struct {
	repo storage.Repository
}

func NewProjector(repo storage.Repository) *Projector {
	return &Projector{repo: repo}
}

// Project returns the rows active for the month: visible rows dated inside
// it, followed by every fixed origin of the user not already included.
func (p *Projector) Project(ctx context.Context, userID int64, month, year int) ([]core.Transaction, error) {
	first, last, err := core.MonthRange(year, month)
	if err != nil {
		return nil, err
	}

	inMonth, err := p.repo.Find(ctx,
		storage.Filter{UserID: userID, Kinds: visibleKinds}.InMonth(first, last),
		storage.Paging{Order: storage.OrderIDAsc})
	if err != nil {
		return nil, fmt.Errorf("find month rows: %w", err)
	}
	origins, err := p.repo.Find(ctx,
		storage.Filter{UserID: userID, Kinds: []core.Kind{core.KindFixedOrigin}},
		storage.Paging{Order: storage.OrderIDAsc})
	if err != nil {
		return nil, fmt.Errorf("find fixed definitions: %w", err)
	}

	return mergeByID(inMonth, origins), nil
}

// mergeByID concatenates the slices keeping the first row seen for each ID.
func mergeByID(sets ...[]core.Transaction) []core.Transaction {
	seen := make(map[int64]struct{})
	var out []core.Transaction
	for _, set := range sets {
		for _, t := range set {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
