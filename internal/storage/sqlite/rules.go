package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupledger/internal/calendar"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

const ruleColumns = `id, group_id, kind, amount, category, category_icon, member_label, note,
	cadence, last_generated_date, is_active, owner_id, created_at`

// CreateRule persists a new recurring rule.
func (s *SQLiteStore) CreateRule(ctx context.Context, rule *models.RecurringRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.CreatedAt == 0 {
		rule.CreatedAt = time.Now().Unix()
	}

	var amount any
	if rule.Amount.Valid {
		amount = rule.Amount.Decimal.String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recurring_rules (`+ruleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.GroupID, string(rule.Kind), amount, rule.Category, rule.CategoryIcon,
		rule.MemberLabel, rule.Note, rule.Cadence, rule.LastGeneratedDate.String(),
		rule.IsActive, rule.OwnerID, rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recurring rule: %w", err)
	}
	return nil
}

// ListRules returns all rules of a group, newest first.
func (s *SQLiteStore) ListRules(ctx context.Context, groupID string) ([]*models.RecurringRule, error) {
	return s.queryRules(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules WHERE group_id = ? ORDER BY created_at DESC, id`,
		groupID,
	)
}

// DeleteRule removes a rule. Transactions it already emitted are kept.
func (s *SQLiteStore) DeleteRule(ctx context.Context, groupID, ruleID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM recurring_rules WHERE id = ? AND group_id = ?", ruleID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete recurring rule: %w", err)
	}
	return expectOneRow(res, "recurring rule", ruleID)
}

// ListDueRules returns active rules whose cursor is strictly before today.
func (s *SQLiteStore) ListDueRules(ctx context.Context, groupID string, today calendar.Date) ([]*models.RecurringRule, error) {
	return s.queryRules(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules
		 WHERE group_id = ? AND is_active = 1 AND last_generated_date < ?
		 ORDER BY created_at, id`,
		groupID, today.String(),
	)
}

// RecordOccurrence advances the cursor with a compare-and-set on the previous
// value and inserts the occurrence's transaction in the same SQLite
// transaction, so an occurrence is either fully recorded or not at all.
func (s *SQLiteStore) RecordOccurrence(ctx context.Context, ruleID string, prev calendar.Date, txn *models.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE recurring_rules SET last_generated_date = ?
		 WHERE id = ? AND last_generated_date = ?`,
		txn.Date.String(), ruleID, prev.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to advance rule cursor: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("rule %s at %s: %w", ruleID, prev, storage.ErrCursorMoved)
	}

	txn.RuleID = ruleID
	if err := insertTransaction(ctx, tx, txn); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) queryRules(ctx context.Context, query string, args ...any) ([]*models.RecurringRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.RecurringRule
	for rows.Next() {
		var (
			rule models.RecurringRule
			kind string
			last string
		)
		if err := rows.Scan(&rule.ID, &rule.GroupID, &kind, &rule.Amount, &rule.Category, &rule.CategoryIcon,
			&rule.MemberLabel, &rule.Note, &rule.Cadence, &last, &rule.IsActive, &rule.OwnerID, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recurring rule: %w", err)
		}
		rule.Kind = models.Kind(kind)
		// An unparsable cursor is left zero; the engine reports it as malformed.
		if d, err := calendar.Parse(last); err == nil {
			rule.LastGeneratedDate = d
		}
		rules = append(rules, &rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recurring rules: %w", err)
	}
	return rules, nil
}
