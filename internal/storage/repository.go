package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	tx      *sql.Tx
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil && r.tx == nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) FindByID(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return toCore(row)
}

func (r *SQLiteRepository) Find(ctx context.Context, f Filter, p Paging) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, f, p)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) FindAndCount(ctx context.Context, f Filter, p Paging) ([]core.Transaction, int, error) {
	total, err := r.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.Find(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, f Filter) (int, error) {
	n, err := r.queries.CountTransactions(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) Create(ctx context.Context, t *core.Transaction) error {
	id, err := r.queries.CreateTransaction(ctx, fromCore(*t))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	t.ID = id

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"user_id", t.UserID,
		"kind", t.Kind,
		"value", core.FormatAmount(t.Value),
		"date", t.Date.String())
	return nil
}

func (r *SQLiteRepository) CreateBatch(ctx context.Context, ts []*core.Transaction) error {
	return r.InTx(ctx, func(tx Repository) error {
		for _, t := range ts {
			if err := tx.Create(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Save(ctx context.Context, t core.Transaction) error {
	n, err := r.queries.UpdateTransaction(ctx, fromCore(t))
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, userID, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// InTx reuses the current transaction when called on a repository that is
// already bound to one.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	bound := &SQLiteRepository{db: r.db, queries: r.queries.WithTx(tx), tx: tx}
	if err := fn(bound); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func toCore(row TransactionRow) (core.Transaction, error) {
	value, err := decimal.NewFromString(row.Value)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: bad value %q: %w", row.ID, row.Value, err)
	}
	parsed, err := time.Parse(core.DateLayout, row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: bad date %q: %w", row.ID, row.Date, err)
	}
	kind := core.Kind(row.Kind)
	derived, err := core.KindFromFlags(row.IsFixed, row.IsInstallment, row.IsHidden, row.OriginID.Valid)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", row.ID, err)
	}
	if derived != kind {
		return core.Transaction{}, fmt.Errorf("transaction %d: kind %q disagrees with flags (%q)", row.ID, kind, derived)
	}

	t := core.Transaction{
		ID:               row.ID,
		UserID:           row.UserID,
		Title:            row.Title,
		Value:            value,
		Type:             core.TxType(row.Type),
		Category:         row.Category,
		Date:             core.DateOf(parsed),
		Kind:             kind,
		InstallmentIndex: int(row.InstallmentIndex.Int64),
		InstallmentTotal: int(row.InstallmentTotal.Int64),
	}
	if row.OriginID.Valid {
		v := row.OriginID.Int64
		t.OriginID = &v
	}
	if row.ParentID.Valid {
		v := row.ParentID.Int64
		t.ParentID = &v
	}
	return t, nil
}

func fromCore(t core.Transaction) TransactionRow {
	row := TransactionRow{
		ID:            t.ID,
		UserID:        t.UserID,
		Title:         t.Title,
		Value:         core.FormatAmount(t.Value),
		Type:          string(t.Type),
		Category:      t.Category,
		Date:          t.Date.String(),
		Kind:          string(t.Kind),
		IsFixed:       t.IsFixed(),
		IsInstallment: t.IsInstallment(),
		IsHidden:      t.IsHidden(),
	}
	if t.OriginID != nil {
		row.OriginID = sql.NullInt64{Int64: *t.OriginID, Valid: true}
	}
	if t.ParentID != nil {
		row.ParentID = sql.NullInt64{Int64: *t.ParentID, Valid: true}
	}
	if t.InstallmentIndex != 0 {
		row.InstallmentIndex = sql.NullInt64{Int64: int64(t.InstallmentIndex), Valid: true}
	}
	if t.InstallmentTotal != 0 {
		row.InstallmentTotal = sql.NullInt64{Int64: int64(t.InstallmentTotal), Valid: true}
	}
	return row
}
