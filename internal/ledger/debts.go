package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/models"
)

// DebtListResult is returned by getDebts.
type DebtListResult struct {
	List []*models.Debt `json:"list"`
}

// DebtResult carries a single debt.
type DebtResult struct {
	Data *models.Debt `json:"data"`
}

func (d *Dispatcher) getDebts(ctx context.Context, tc *tenant) (*DebtListResult, error) {
	debts, err := d.store.ListDebts(ctx, tc.groupID)
	if err != nil {
		return nil, apperr.Storage(err, "failed to list debts")
	}
	if debts == nil {
		debts = []*models.Debt{}
	}
	return &DebtListResult{List: debts}, nil
}

func (d *Dispatcher) addDebt(ctx context.Context, tc *tenant, req *AddDebtRequest) (*IDResult, error) {
	in := req.Debt
	if !in.Amount.Valid {
		return nil, apperr.InvalidArgument("debt.amount is required")
	}

	status := models.DebtPending
	if in.Status != "" {
		status = models.DebtStatus(in.Status)
	}
	debt := &models.Debt{
		GroupID:    tc.groupID,
		Type:       models.DebtType(in.Type),
		PersonName: strings.TrimSpace(in.PersonName),
		Amount:     in.Amount.Decimal,
		Note:       in.Note,
		Status:     status,
		CreatorID:  tc.callerID,
	}
	if debt.Status == models.DebtRepaid {
		debt.SettledAt = d.now().Unix()
	}
	if err := validateDebt(debt); err != nil {
		return nil, err
	}

	if err := d.store.CreateDebt(ctx, debt); err != nil {
		return nil, apperr.Storage(err, "failed to add debt")
	}
	return &IDResult{ID: debt.ID}, nil
}

func (d *Dispatcher) updateDebt(ctx context.Context, tc *tenant, req *UpdateDebtRequest) (*DebtResult, error) {
	if req.ID == "" {
		return nil, apperr.InvalidArgument("id is required")
	}

	debt, err := d.store.GetDebt(ctx, tc.groupID, req.ID)
	if err != nil {
		return nil, storeError(err, "debt")
	}
	d.applyDebtPatch(debt, req.Debt)
	if err := validateDebt(debt); err != nil {
		return nil, err
	}

	if err := d.store.UpdateDebt(ctx, debt); err != nil {
		return nil, storeError(err, "debt")
	}
	return &DebtResult{Data: debt}, nil
}

// applyDebtPatch copies the present fields of p onto debt. Marking a debt
// repaid stamps SettledAt; moving it back to pending clears it.
func (d *Dispatcher) applyDebtPatch(debt *models.Debt, p DebtPatch) {
	if p.Type != nil {
		debt.Type = models.DebtType(*p.Type)
	}
	if p.PersonName != nil {
		debt.PersonName = strings.TrimSpace(*p.PersonName)
	}
	if p.Amount.Valid {
		debt.Amount = p.Amount.Decimal
	}
	if p.Note != nil {
		debt.Note = *p.Note
	}
	if p.Status != nil {
		debt.Status = models.DebtStatus(*p.Status)
	}

	switch {
	case debt.Status != models.DebtRepaid:
		debt.SettledAt = 0
	case p.SettleTime != nil:
		debt.SettledAt = *p.SettleTime
	case debt.SettledAt == 0:
		debt.SettledAt = d.now().Unix()
	}
}

func validateDebt(debt *models.Debt) error {
	if !debt.Type.Valid() {
		return apperr.InvalidArgument("debt.type must be %q or %q", models.DebtLent, models.DebtBorrowed)
	}
	if debt.PersonName == "" {
		return apperr.InvalidArgument("debt.personName is required")
	}
	if !debt.Amount.GreaterThan(decimal.Zero) {
		return apperr.InvalidArgument("debt.amount must be positive")
	}
	if !debt.Status.Valid() {
		return apperr.InvalidArgument("debt.status must be %q or %q", models.DebtPending, models.DebtRepaid)
	}
	if debt.SettledAt < 0 {
		return apperr.InvalidArgument("debt.settleTime must not be negative")
	}
	return nil
}

func (d *Dispatcher) deleteDebt(ctx context.Context, tc *tenant, req *DeleteDebtRequest) (*SuccessResult, error) {
	if req.ID == "" {
		return nil, apperr.InvalidArgument("id is required")
	}
	if err := d.store.DeleteDebt(ctx, tc.groupID, req.ID); err != nil {
		return nil, storeError(err, "debt")
	}
	return &SuccessResult{Success: true}, nil
}
