package ledger

import (
	"context"
	"strings"

	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/calendar"
	"github.com/mmynk/groupledger/internal/models"
)

// BudgetListResult is returned by getBudget.
type BudgetListResult struct {
	List []*models.Budget `json:"list"`
}

func (d *Dispatcher) getBudget(ctx context.Context, tc *tenant, req *GetBudgetRequest) (*BudgetListResult, error) {
	month := strings.TrimSpace(req.Month)
	if month == "" {
		month = calendar.Today(d.now()).MonthKey()
	}
	if _, err := calendar.ParseMonth(month); err != nil {
		return nil, apperr.InvalidArgument("month: %v", err)
	}

	budgets, err := d.store.ListBudgets(ctx, tc.groupID, month)
	if err != nil {
		return nil, apperr.Storage(err, "failed to read budget")
	}
	if budgets == nil {
		budgets = []*models.Budget{}
	}
	return &BudgetListResult{List: budgets}, nil
}

func (d *Dispatcher) saveBudget(ctx context.Context, tc *tenant, req *SaveBudgetRequest) (*IDResult, error) {
	in := req.Budget
	if !in.Amount.Valid {
		return nil, apperr.InvalidArgument("budget.amount is required")
	}
	if in.Amount.Decimal.IsNegative() {
		return nil, apperr.InvalidArgument("budget.amount must not be negative")
	}

	if in.ID != "" {
		if err := d.store.UpdateBudgetAmount(ctx, tc.groupID, in.ID, in.Amount.Decimal); err != nil {
			return nil, storeError(err, "budget")
		}
		return &IDResult{ID: in.ID}, nil
	}

	month, err := calendar.ParseMonth(strings.TrimSpace(in.Month))
	if err != nil {
		return nil, apperr.InvalidArgument("budget.month: %v", err)
	}
	budget := &models.Budget{GroupID: tc.groupID, Month: month, Amount: in.Amount.Decimal}
	if err := d.store.CreateBudget(ctx, budget); err != nil {
		return nil, apperr.Storage(err, "failed to save budget")
	}
	return &IDResult{ID: budget.ID}, nil
}
