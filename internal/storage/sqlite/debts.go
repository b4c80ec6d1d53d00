package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

const debtColumns = `id, group_id, type, person_name, amount, note, status,
	settled_at, creator_id, created_at, updated_at`

// ListDebts returns the group's debts, newest first.
func (s *SQLiteStore) ListDebts(ctx context.Context, groupID string) ([]*models.Debt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE group_id = ? ORDER BY created_at DESC, rowid DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var debts []*models.Debt
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, debt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debts: %w", err)
	}
	return debts, nil
}

// CreateDebt persists a new debt.
func (s *SQLiteStore) CreateDebt(ctx context.Context, debt *models.Debt) error {
	if debt.ID == "" {
		debt.ID = uuid.New().String()
	}
	if debt.CreatedAt == 0 {
		debt.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO debts (`+debtColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		debt.ID, debt.GroupID, string(debt.Type), debt.PersonName, debt.Amount.String(), debt.Note,
		string(debt.Status), debt.SettledAt, debt.CreatorID, debt.CreatedAt, debt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert debt: %w", err)
	}
	return nil
}

// GetDebt retrieves a debt by ID within a group.
func (s *SQLiteStore) GetDebt(ctx context.Context, groupID, debtID string) (*models.Debt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE id = ? AND group_id = ?`,
		debtID, groupID,
	)
	debt, err := scanDebt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("debt %s: %w", debtID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	return debt, nil
}

// UpdateDebt replaces the editable fields of a debt and stamps UpdatedAt.
func (s *SQLiteStore) UpdateDebt(ctx context.Context, debt *models.Debt) error {
	debt.UpdatedAt = time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		`UPDATE debts SET type = ?, person_name = ?, amount = ?, note = ?, status = ?, settled_at = ?, updated_at = ?
		 WHERE id = ? AND group_id = ?`,
		string(debt.Type), debt.PersonName, debt.Amount.String(), debt.Note, string(debt.Status),
		debt.SettledAt, debt.UpdatedAt, debt.ID, debt.GroupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}
	return expectOneRow(res, "debt", debt.ID)
}

// DeleteDebt removes a debt from the group.
func (s *SQLiteStore) DeleteDebt(ctx context.Context, groupID, debtID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM debts WHERE id = ? AND group_id = ?", debtID, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete debt: %w", err)
	}
	return expectOneRow(res, "debt", debtID)
}

func scanDebt(row rowScanner) (*models.Debt, error) {
	debt := &models.Debt{}
	var debtType, status string
	if err := row.Scan(&debt.ID, &debt.GroupID, &debtType, &debt.PersonName, &debt.Amount, &debt.Note,
		&status, &debt.SettledAt, &debt.CreatorID, &debt.CreatedAt, &debt.UpdatedAt); err != nil {
		return nil, err
	}
	debt.Type = models.DebtType(debtType)
	debt.Status = models.DebtStatus(status)
	return debt, nil
}
