package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupledger/internal/models"
)

// ListBudgets returns the group's budgets for a month (YYYY-MM).
func (s *SQLiteStore) ListBudgets(ctx context.Context, groupID, month string) ([]*models.Budget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, month, amount, created_at, updated_at
		 FROM budgets WHERE group_id = ? AND month = ? ORDER BY created_at`,
		groupID, month,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []*models.Budget
	for rows.Next() {
		b := &models.Budget{}
		if err := rows.Scan(&b.ID, &b.GroupID, &b.Month, &b.Amount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate budgets: %w", err)
	}
	return budgets, nil
}

// CreateBudget persists a new budget.
func (s *SQLiteStore) CreateBudget(ctx context.Context, budget *models.Budget) error {
	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}
	if budget.CreatedAt == 0 {
		budget.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (id, group_id, month, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
		budget.ID, budget.GroupID, budget.Month, budget.Amount.String(), budget.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert budget: %w", err)
	}
	return nil
}

// UpdateBudgetAmount changes the amount of an existing budget.
func (s *SQLiteStore) UpdateBudgetAmount(ctx context.Context, groupID, budgetID string, amount decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE budgets SET amount = ?, updated_at = ? WHERE id = ? AND group_id = ?",
		amount.String(), time.Now().Unix(), budgetID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	return expectOneRow(res, "budget", budgetID)
}
