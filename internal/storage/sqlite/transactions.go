package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupledger/internal/calendar"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

const transactionColumns = `id, group_id, kind, amount, category, category_icon, date,
	member_label, note, created_at, updated_at, creator_id, rule_id`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateTransaction persists a new transaction.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return insertTransaction(ctx, s.db, txn)
}

func insertTransaction(ctx context.Context, db execer, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.CreatedAt == 0 {
		txn.CreatedAt = time.Now().Unix()
	}

	var ruleID any
	if txn.RuleID != "" {
		ruleID = txn.RuleID
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.GroupID, string(txn.Kind), txn.Amount.String(), txn.Category, txn.CategoryIcon,
		txn.Date.String(), txn.MemberLabel, txn.Note, txn.CreatedAt, txn.UpdatedAt, txn.CreatorID, ruleID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// GetTransaction retrieves a transaction by ID within a group.
func (s *SQLiteStore) GetTransaction(ctx context.Context, groupID, txnID string) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND group_id = ?`,
		txnID, groupID,
	)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", txnID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// ListTransactions returns a page of the group's transactions, newest first.
func (s *SQLiteStore) ListTransactions(ctx context.Context, groupID string, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	var (
		where = []string{"group_id = ?"}
		args  = []any{groupID}
	)
	if filter.DatePrefix != "" {
		where = append(where, "substr(date, 1, ?) = ?")
		args = append(args, len(filter.DatePrefix), filter.DatePrefix)
	}
	if filter.Keyword != "" {
		where = append(where, "(instr(lower(category), lower(?)) > 0 OR instr(lower(note), lower(?)) > 0)")
		args = append(args, filter.Keyword, filter.Keyword)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY date DESC, created_at DESC, id
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}

// UpdateTransaction rewrites the editable fields of a transaction. ID,
// group, creator, rule and creation time are kept.
func (s *SQLiteStore) UpdateTransaction(ctx context.Context, txn *models.Transaction) error {
	txn.UpdatedAt = time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET kind = ?, amount = ?, category = ?, category_icon = ?, date = ?,
		 member_label = ?, note = ?, updated_at = ?
		 WHERE id = ? AND group_id = ?`,
		string(txn.Kind), txn.Amount.String(), txn.Category, txn.CategoryIcon, txn.Date.String(),
		txn.MemberLabel, txn.Note, txn.UpdatedAt, txn.ID, txn.GroupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return expectOneRow(res, "transaction", txn.ID)
}

// DeleteTransaction removes a transaction from a group.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, groupID, txnID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = ? AND group_id = ?", txnID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectOneRow(res, "transaction", txnID)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		txn    models.Transaction
		kind   string
		date   string
		ruleID sql.NullString
	)
	if err := row.Scan(&txn.ID, &txn.GroupID, &kind, &txn.Amount, &txn.Category, &txn.CategoryIcon, &date,
		&txn.MemberLabel, &txn.Note, &txn.CreatedAt, &txn.UpdatedAt, &txn.CreatorID, &ruleID); err != nil {
		return nil, err
	}
	d, err := calendar.Parse(date)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txn.ID, err)
	}
	txn.Kind = models.Kind(kind)
	txn.Date = d
	txn.RuleID = ruleID.String
	return &txn, nil
}
