package sheets

import (
	"context"

	"ledger/internal/core"
)

// Header is the column layout of a mirrored transaction row.
var Header = []string{"ID", "UserID", "Date", "Title", "Type", "Category", "Value", "Kind"}

// Ports for outbound adapters.
type (
	// TransactionMirror keeps an external copy of visible transactions keyed by ID.
	TransactionMirror interface {
		// Upsert writes t, replacing any row already mirrored under t.ID.
		Upsert(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// Delete removes the row mirrored under id. A missing row is not an error.
		Delete(ctx context.Context, id int64) error
	}
)
