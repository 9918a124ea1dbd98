package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// TransactionRow mirrors the transactions table.
type TransactionRow struct {
	ID               int64
	UserID           int64
	Title            string
	Value            string
	Type             string
	Category         string
	Date             string
	Kind             string
	IsFixed          bool
	IsInstallment    bool
	IsHidden         bool
	OriginID         sql.NullInt64
	ParentID         sql.NullInt64
	InstallmentIndex sql.NullInt64
	InstallmentTotal sql.NullInt64
}

const transactionColumns = `id, user_id, title, value, type, category, date, kind,
	is_fixed, is_installment, is_hidden, origin_id, parent_id, installment_index, installment_total`

func scanTransaction(s interface{ Scan(...any) error }) (TransactionRow, error) {
	var i TransactionRow
	err := s.Scan(
		&i.ID,
		&i.UserID,
		&i.Title,
		&i.Value,
		&i.Type,
		&i.Category,
		&i.Date,
		&i.Kind,
		&i.IsFixed,
		&i.IsInstallment,
		&i.IsHidden,
		&i.OriginID,
		&i.ParentID,
		&i.InstallmentIndex,
		&i.InstallmentTotal,
	)
	return i, err
}

const getTransaction = `SELECT ` + transactionColumns + `
FROM transactions
WHERE id = ? AND user_id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id, userID int64) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id, userID)
	return scanTransaction(row)
}

const createTransaction = `INSERT INTO transactions (
	user_id, title, value, type, category, date, kind,
	is_fixed, is_installment, is_hidden, origin_id, parent_id, installment_index, installment_total
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg TransactionRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTransaction,
		arg.UserID,
		arg.Title,
		arg.Value,
		arg.Type,
		arg.Category,
		arg.Date,
		arg.Kind,
		arg.IsFixed,
		arg.IsInstallment,
		arg.IsHidden,
		arg.OriginID,
		arg.ParentID,
		arg.InstallmentIndex,
		arg.InstallmentTotal,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const updateTransaction = `UPDATE transactions SET
	title = ?, value = ?, type = ?, category = ?, date = ?, kind = ?,
	is_fixed = ?, is_installment = ?, is_hidden = ?,
	origin_id = ?, parent_id = ?, installment_index = ?, installment_total = ?,
	updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND user_id = ?`

// UpdateTransaction returns the number of rows affected.
func (q *Queries) UpdateTransaction(ctx context.Context, arg TransactionRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Title,
		arg.Value,
		arg.Type,
		arg.Category,
		arg.Date,
		arg.Kind,
		arg.IsFixed,
		arg.IsInstallment,
		arg.IsHidden,
		arg.OriginID,
		arg.ParentID,
		arg.InstallmentIndex,
		arg.InstallmentTotal,
		arg.ID,
		arg.UserID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND user_id = ?`

// DeleteTransaction returns the number of rows affected.
func (q *Queries) DeleteTransaction(ctx context.Context, id, userID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListTransactions(ctx context.Context, f Filter, p Paging) ([]TransactionRow, error) {
	where, args := whereClause(f)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + orderClause(p.Order)
	if p.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, p.Limit, p.Offset)
	} else if p.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, p.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionRow
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) CountTransactions(ctx context.Context, f Filter) (int64, error) {
	where, args := whereClause(f)
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&count)
	return count, err
}

func whereClause(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != 0 {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.From != nil {
		conds = append(conds, "date >= ?")
		args = append(args, f.From.String())
	}
	if f.To != nil {
		conds = append(conds, "date <= ?")
		args = append(args, f.To.String())
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if len(f.Kinds) > 0 {
		marks := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			marks[i] = "?"
			args = append(args, string(k))
		}
		conds = append(conds, fmt.Sprintf("kind IN (%s)", strings.Join(marks, ", ")))
	}
	if f.ParentID != nil {
		conds = append(conds, "parent_id = ?")
		args = append(args, *f.ParentID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(o Order) string {
	switch o {
	case OrderIDAsc:
		return " ORDER BY id ASC"
	default:
		return " ORDER BY date DESC, id DESC"
	}
}
