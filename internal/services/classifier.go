package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// Classification is the outcome of classifying a creation request. For a
// plan request Row holds the parent template and PlanTotal the number of
// installments; otherwise Row is the single row to insert.
type Classification struct {
	Kind      core.Kind
	Row       core.Transaction
	PlanTotal int
}

// IsPlan reports whether the request expands into an installment plan.
func (c Classification) IsPlan() bool {
	return c.PlanTotal > 0
}

// Classifier decides the kind of a creation request and enforces the
// mutual-exclusion and referential rules. It only reads from the repository.
type Classifier struct {
	repo storage.Repository
}

func NewClassifier(repo storage.Repository) *Classifier {
	return &Classifier{repo: repo}
}

// Classify validates req for userID and returns what to persist.
func (c *Classifier) Classify(ctx context.Context, req core.CreateRequest, userID int64) (Classification, error) {
	row := core.Transaction{
		UserID:   userID,
		Title:    strings.TrimSpace(req.Title),
		Value:    core.RoundAmount(req.Value),
		Type:     req.Type,
		Category: strings.TrimSpace(req.Category),
		Date:     req.Date,
	}
	if err := core.ValidateBase(row.Title, row.Value, row.Type, row.Category, row.Date); err != nil {
		return Classification{}, err
	}

	switch {
	case req.IsFixed && req.IsInstallment:
		return Classification{}, core.NewValidationError("isFixed", "a transaction cannot be both fixed and installment")
	case req.IsInstallment && req.ParentID == nil:
		return c.classifyPlan(req, row)
	case req.IsInstallment:
		return c.classifyChild(ctx, req, row)
	case req.IsFixed:
		return c.classifyFixed(ctx, req, row)
	default:
		return c.classifySimple(req, row)
	}
}

func (c *Classifier) classifyPlan(req core.CreateRequest, row core.Transaction) (Classification, error) {
	if req.OriginID != nil {
		return Classification{}, core.NewValidationError("originId", "not allowed on an installment")
	}
	if req.InstallmentIndex != nil {
		return Classification{}, core.NewValidationError("installmentIndex", "not allowed when creating an installment plan")
	}
	if req.InstallmentTotal == nil {
		return Classification{}, core.NewValidationError("installmentTotal", "required for an installment plan")
	}
	total := *req.InstallmentTotal
	if total < 2 {
		return Classification{}, core.NewValidationError("installmentTotal", "must be at least 2")
	}
	if total > MaxInstallments {
		return Classification{}, core.NewValidationError("installmentTotal", fmt.Sprintf("must be at most %d", MaxInstallments))
	}
	row.Kind = core.KindInstallmentParent
	return Classification{Kind: core.KindInstallmentParent, Row: row, PlanTotal: total}, nil
}

func (c *Classifier) classifyChild(ctx context.Context, req core.CreateRequest, row core.Transaction) (Classification, error) {
	if req.OriginID != nil {
		return Classification{}, core.NewValidationError("originId", "not allowed on an installment")
	}
	if req.InstallmentIndex == nil || req.InstallmentTotal == nil {
		return Classification{}, core.NewValidationError("installmentIndex", "installmentIndex and installmentTotal are required on an installment")
	}
	index, total := *req.InstallmentIndex, *req.InstallmentTotal
	if total < 2 {
		return Classification{}, core.NewValidationError("installmentTotal", "must be at least 2")
	}
	if index < 1 || index > total {
		return Classification{}, core.NewValidationError("installmentIndex", fmt.Sprintf("must be between 1 and %d", total))
	}

	parent, err := c.lookup(ctx, row.UserID, *req.ParentID, "parentId")
	if err != nil {
		return Classification{}, err
	}
	if !parent.IsHidden() {
		return Classification{}, core.NewValidationError("parentId", "does not reference an installment plan")
	}
	if err := c.checkSiblings(ctx, row.UserID, parent.ID, index, total); err != nil {
		return Classification{}, err
	}

	row.Kind = core.KindInstallmentChild
	row.ParentID = &parent.ID
	row.InstallmentIndex = index
	row.InstallmentTotal = total
	return Classification{Kind: row.Kind, Row: row}, nil
}

func (c *Classifier) classifyFixed(ctx context.Context, req core.CreateRequest, row core.Transaction) (Classification, error) {
	if req.ParentID != nil || req.InstallmentIndex != nil || req.InstallmentTotal != nil {
		return Classification{}, core.NewValidationError("isFixed", "a fixed transaction cannot carry installment fields")
	}
	if req.OriginID == nil {
		row.Kind = core.KindFixedOrigin
		return Classification{Kind: row.Kind, Row: row}, nil
	}

	origin, err := c.lookup(ctx, row.UserID, *req.OriginID, "originId")
	if err != nil {
		return Classification{}, err
	}
	if origin.Kind != core.KindFixedOrigin {
		return Classification{}, core.NewValidationError("originId", "does not reference a fixed transaction")
	}

	row.Kind = core.KindFixedOccurrence
	row.OriginID = &origin.ID
	return Classification{Kind: row.Kind, Row: row}, nil
}

func (c *Classifier) classifySimple(req core.CreateRequest, row core.Transaction) (Classification, error) {
	switch {
	case req.OriginID != nil:
		return Classification{}, core.NewValidationError("originId", "only allowed on a fixed transaction")
	case req.ParentID != nil:
		return Classification{}, core.NewValidationError("parentId", "only allowed on an installment")
	case req.InstallmentIndex != nil:
		return Classification{}, core.NewValidationError("installmentIndex", "only allowed on an installment")
	case req.InstallmentTotal != nil:
		return Classification{}, core.NewValidationError("installmentTotal", "only allowed on an installment")
	}
	row.Kind = core.KindSimple
	return Classification{Kind: row.Kind, Row: row}, nil
}

// lookup resolves a referenced row. A missing or foreign reference is a
// validation failure of the request, not a NotFound of the request itself.
// checkSiblings keeps a new installment consistent with the rest of its plan:
// same installment count, and an index not already present.
func (c *Classifier) checkSiblings(ctx context.Context, userID, parentID int64, index, total int) error {
	siblings, err := c.repo.Find(ctx, storage.Filter{UserID: userID, ParentID: &parentID}, storage.Paging{Order: storage.OrderIDAsc})
	if err != nil {
		return fmt.Errorf("load installments of plan %d: %w", parentID, err)
	}
	for _, s := range siblings {
		if s.InstallmentTotal != total {
			return core.NewValidationError("installmentTotal", fmt.Sprintf("must match the plan's %d installments", s.InstallmentTotal))
		}
		if s.InstallmentIndex == index {
			return core.NewValidationError("installmentIndex", fmt.Sprintf("installment %d already exists", index))
		}
	}
	return nil
}

func (c *Classifier) lookup(ctx context.Context, userID, id int64, field string) (core.Transaction, error) {
	ref, err := c.repo.FindByID(ctx, userID, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Transaction{}, core.NewValidationError(field, fmt.Sprintf("transaction %d does not exist", id))
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("resolve %s: %w", field, err)
	}
	return ref, nil
}
