package ledger

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/calendar"
	"github.com/mmynk/groupledger/internal/models"
)

// RuleListResult is returned by getRecurringRules.
type RuleListResult struct {
	List []*models.RecurringRule `json:"list"`
}

func (d *Dispatcher) getRecurringRules(ctx context.Context, tc *tenant) (*RuleListResult, error) {
	rules, err := d.store.ListRules(ctx, tc.groupID)
	if err != nil {
		return nil, apperr.Storage(err, "failed to list recurring rules")
	}
	if rules == nil {
		rules = []*models.RecurringRule{}
	}
	return &RuleListResult{List: rules}, nil
}

// addRecurringRule stores a rule owned by the caller. The cadence label is
// normalized, so aliases such as "month" are stored as "monthly".
func (d *Dispatcher) addRecurringRule(ctx context.Context, tc *tenant, req *AddRecurringRuleRequest) (*IDResult, error) {
	in := req.Rule

	kind := models.Kind(strings.ToLower(strings.TrimSpace(in.Kind)))
	if !kind.Valid() {
		return nil, apperr.InvalidArgument("rule.kind must be %q or %q", models.KindExpense, models.KindIncome)
	}
	if !in.Amount.Valid {
		return nil, apperr.InvalidArgument("rule.amount is required")
	}
	if in.Amount.Decimal.IsNegative() {
		return nil, apperr.InvalidArgument("rule.amount must not be negative")
	}
	cadence, err := calendar.ParseCadence(in.Cadence)
	if err != nil {
		return nil, apperr.InvalidArgument("rule.cadence: %v", err)
	}
	cursor, err := calendar.Parse(strings.TrimSpace(in.LastGeneratedDate))
	if err != nil {
		return nil, apperr.InvalidArgument("rule.lastGeneratedDate: %v", err)
	}
	if today := calendar.Today(d.now()); cursor.After(today) {
		return nil, apperr.InvalidArgument("rule.lastGeneratedDate %s is after today %s", cursor, today)
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	rule := &models.RecurringRule{
		GroupID:           tc.groupID,
		Kind:              kind,
		Amount:            in.Amount,
		Category:          in.Category,
		CategoryIcon:      in.CategoryIcon,
		MemberLabel:       in.MemberLabel,
		Note:              in.Note,
		Cadence:           cadence.String(),
		LastGeneratedDate: cursor,
		IsActive:          active,
		OwnerID:           tc.callerID,
	}
	if err := d.store.CreateRule(ctx, rule); err != nil {
		return nil, apperr.Storage(err, "failed to add recurring rule")
	}

	slog.Info("Recurring rule added",
		"group_id", tc.groupID,
		"rule_id", rule.ID,
		"cadence", rule.Cadence,
		"cursor", cursor.String(),
	)
	return &IDResult{ID: rule.ID}, nil
}

func (d *Dispatcher) deleteRecurringRule(ctx context.Context, tc *tenant, req *DeleteRecurringRuleRequest) (*SuccessResult, error) {
	if req.ID == "" {
		return nil, apperr.InvalidArgument("id is required")
	}
	if err := d.store.DeleteRule(ctx, tc.groupID, req.ID); err != nil {
		return nil, storeError(err, "recurring rule")
	}
	return &SuccessResult{Success: true}, nil
}
