package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/sheets"
	"ledger/internal/storage"
)

// MirrorWorker replays transaction events onto an external mirror. Events
// carry identity only, so the current row is always read from storage.
type MirrorWorker struct {
	repo   storage.Repository
	mirror sheets.TransactionMirror
}

func NewMirrorWorker(repo storage.Repository, mirror sheets.TransactionMirror) *MirrorWorker {
	return &MirrorWorker{repo: repo, mirror: mirror}
}

// HandleEvent processes a single transaction event from AMQP
func (w *MirrorWorker) HandleEvent(ctx context.Context, e *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"event", e.Event,
		"id", e.ID,
		"user_id", e.UserID)

	switch e.Event {
	case amqp.EventCreated, amqp.EventUpdated:
		return w.sync(ctx, e)
	case amqp.EventDeleted:
		if err := w.mirror.Delete(ctx, e.ID); err != nil {
			return fmt.Errorf("delete mirrored transaction %d: %w", e.ID, err)
		}
		slog.InfoContext(ctx, "Removed transaction from mirror", "id", e.ID)
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring unknown event", "event", e.Event, "id", e.ID)
		return nil
	}
}

func (w *MirrorWorker) sync(ctx context.Context, e *amqp.TransactionEvent) error {
	t, err := w.repo.FindByID(ctx, e.UserID, e.ID)
	if errors.Is(err, core.ErrNotFound) {
		// deleted after the event was published; the delete event may have
		// been processed first
		slog.InfoContext(ctx, "Transaction no longer exists, clearing mirror", "id", e.ID)
		if err := w.mirror.Delete(ctx, e.ID); err != nil {
			return fmt.Errorf("delete mirrored transaction %d: %w", e.ID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	if t.IsHidden() {
		slog.DebugContext(ctx, "Skipping hidden transaction", "id", t.ID)
		return nil
	}

	ref, err := w.mirror.Upsert(ctx, t)
	if err != nil {
		return fmt.Errorf("mirror transaction %d: %w", t.ID, err)
	}

	slog.InfoContext(ctx, "Successfully mirrored transaction",
		"id", t.ID,
		"ref", ref,
		"kind", t.Kind,
		"value", core.FormatAmount(t.Value))
	return nil
}
