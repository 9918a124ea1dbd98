package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// MaxInstallments bounds the size of a single plan.
const MaxInstallments = 360

// Plan is a hidden parent and its children, in installment order.
type Plan struct {
	Parent       core.Transaction
	Installments []core.Transaction
}

// SplitInstallments divides value into n parts of round(value/n, 2). The last
// part absorbs the rounding remainder so the parts sum to value exactly.
func SplitInstallments(value decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n < 2 {
		return nil, core.NewValidationError("installmentTotal", "must be at least 2")
	}
	count := decimal.NewFromInt(int64(n))
	per := value.Div(count).Round(core.AmountPlaces)
	last := value.Sub(per.Mul(count.Sub(decimal.NewFromInt(1))))
	if !per.IsPositive() || !last.IsPositive() {
		return nil, core.NewValidationError("value", fmt.Sprintf("%s cannot be split into %d positive installments", core.FormatAmount(value), n))
	}

	parts := make([]decimal.Decimal, n)
	for i := range n - 1 {
		parts[i] = per
	}
	parts[n-1] = last
	return parts, nil
}

// BuildPlan expands a parent template into the parent and its n children.
// Nothing is persisted.
func BuildPlan(parent core.Transaction, n int) (Plan, error) {
	parts, err := SplitInstallments(parent.Value, n)
	if err != nil {
		return Plan{}, err
	}

	parent.Kind = core.KindInstallmentParent
	children := make([]core.Transaction, n)
	for i := range n {
		index := i + 1
		children[i] = core.Transaction{
			UserID:           parent.UserID,
			Title:            fmt.Sprintf("%s (%d/%d)", parent.Title, index, n),
			Value:            parts[i],
			Type:             parent.Type,
			Category:         parent.Category,
			Date:             parent.Date.AddMonthsClipped(i),
			Kind:             core.KindInstallmentChild,
			InstallmentIndex: index,
			InstallmentTotal: n,
		}
	}
	return Plan{Parent: parent, Installments: children}, nil
}

// PlanGenerator persists installment plans atomically.
type PlanGenerator struct {
	repo storage.Repository
}

func NewPlanGenerator(repo storage.Repository) *PlanGenerator {
	return &PlanGenerator{repo: repo}
}

// Generate builds and writes the plan in one transaction. On any failure no
// row of the plan remains.
func (g *PlanGenerator) Generate(ctx context.Context, parent core.Transaction, n int) (Plan, error) {
	plan, err := BuildPlan(parent, n)
	if err != nil {
		return Plan{}, err
	}

	err = g.repo.InTx(ctx, func(tx storage.Repository) error {
		if err := tx.Create(ctx, &plan.Parent); err != nil {
			return fmt.Errorf("create plan parent: %w", err)
		}
		batch := make([]*core.Transaction, len(plan.Installments))
		for i := range plan.Installments {
			plan.Installments[i].ParentID = &plan.Parent.ID
			if err := plan.Installments[i].Validate(); err != nil {
				return err
			}
			batch[i] = &plan.Installments[i]
		}
		if err := tx.CreateBatch(ctx, batch); err != nil {
			return fmt.Errorf("create installments: %w", err)
		}
		return nil
	})
	if err != nil {
		return Plan{}, err
	}
	return plan, nil
}
