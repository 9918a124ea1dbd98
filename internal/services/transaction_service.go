package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/storage"
)

// EventPublisher announces committed changes. Implementations must be safe
// for concurrent use.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event amqp.EventType, userID, id int64) error
	Close() error
}

// CreateResult is the outcome of Create. Plan is set only for an installment
// plan request, in which case Transaction is the hidden parent.
type CreateResult struct {
	Transaction core.Transaction
	Plan        *Plan
}

// Rows returns every row written by the creation.
func (r CreateResult) Rows() []core.Transaction {
	if r.Plan == nil {
		return []core.Transaction{r.Transaction}
	}
	return append([]core.Transaction{r.Plan.Parent}, r.Plan.Installments...)
}

// TransactionService orchestrates the ledger operations over a repository
// and optionally announces writes on a message bus.
type TransactionService struct {
	repo       storage.Repository
	classifier *Classifier
	generator  *PlanGenerator
	aggregator *Aggregator
	publisher  EventPublisher
}

// NewTransactionService wires the engine components. publisher may be nil.
func NewTransactionService(repo storage.Repository, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		repo:       repo,
		classifier: NewClassifier(repo),
		generator:  NewPlanGenerator(repo),
		aggregator: NewAggregator(repo, NewProjector(repo)),
		publisher:  publisher,
	}
}

// Create classifies req and persists the resulting row, or the whole
// installment plan atomically.
func (s *TransactionService) Create(ctx context.Context, req core.CreateRequest, userID int64) (CreateResult, error) {
	class, err := s.classifier.Classify(ctx, req, userID)
	if err != nil {
		return CreateResult{}, err
	}

	if class.IsPlan() {
		plan, err := s.generator.Generate(ctx, class.Row, class.PlanTotal)
		if err != nil {
			return CreateResult{}, err
		}
		slog.InfoContext(ctx, "Created installment plan",
			"user_id", userID,
			"parent_id", plan.Parent.ID,
			"installments", len(plan.Installments),
			"value", core.FormatAmount(plan.Parent.Value))
		for _, child := range plan.Installments {
			s.publish(ctx, amqp.EventCreated, child)
		}
		return CreateResult{Transaction: plan.Parent, Plan: &plan}, nil
	}

	row := class.Row
	if err := row.Validate(); err != nil {
		return CreateResult{}, err
	}
	if err := s.repo.Create(ctx, &row); err != nil {
		return CreateResult{}, fmt.Errorf("create transaction: %w", err)
	}
	slog.DebugContext(ctx, "Created transaction",
		"user_id", userID,
		"id", row.ID,
		"kind", row.Kind,
		"type", row.Type,
		"value", core.FormatAmount(row.Value))
	s.publish(ctx, amqp.EventCreated, row)
	return CreateResult{Transaction: row}, nil
}

// List returns every visible row of the user, newest first.
func (s *TransactionService) List(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return s.aggregator.List(ctx, userID)
}

// ListPaged returns one page of visible rows, newest first.
func (s *TransactionService) ListPaged(ctx context.Context, userID int64, page, limit int) (core.Page, error) {
	return s.aggregator.ListPaged(ctx, userID, page, limit)
}

// Get returns a row owned by the user.
func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.repo.FindByID(ctx, userID, id)
}

// Update applies patch to a row owned by the user and returns the stored result.
func (s *TransactionService) Update(ctx context.Context, userID, id int64, patch core.Patch) (core.Transaction, error) {
	current, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if patch.IsEmpty() {
		return current, nil
	}
	if err := patch.CheckAllowed(current); err != nil {
		return core.Transaction{}, err
	}

	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.repo.Save(ctx, updated); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	slog.DebugContext(ctx, "Updated transaction", "user_id", userID, "id", id)
	s.publish(ctx, amqp.EventUpdated, updated)
	return updated, nil
}

// Delete removes a single row owned by the user. Related rows are left untouched.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Remove(ctx, userID, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Deleted transaction", "user_id", userID, "id", id)
	s.publish(ctx, amqp.EventDeleted, core.Transaction{ID: id, UserID: userID})
	return nil
}

// Dashboard returns the realized totals of the month.
func (s *TransactionService) Dashboard(ctx context.Context, userID int64, month, year int) (core.MonthTotals, error) {
	return s.aggregator.Dashboard(ctx, userID, month, year)
}

// Projection returns the totals of the month including standing fixed definitions.
func (s *TransactionService) Projection(ctx context.Context, userID int64, month, year int) (core.MonthTotals, error) {
	return s.aggregator.Projection(ctx, userID, month, year)
}

// TopExpenseCategory returns the most expensive category, or nil.
func (s *TransactionService) TopExpenseCategory(ctx context.Context, userID int64) (*core.CategoryTotal, error) {
	return s.aggregator.TopExpenseCategory(ctx, userID)
}

// publish is fire-and-forget: the write is already committed.
func (s *TransactionService) publish(ctx context.Context, event amqp.EventType, t core.Transaction) {
	if s.publisher == nil {
		return
	}
	if event != amqp.EventDeleted && t.IsHidden() {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, event, t.UserID, t.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"event", event,
			"id", t.ID,
			"error", err)
	}
}

// Close releases the publisher. The repository is owned by the caller.
func (s *TransactionService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}
