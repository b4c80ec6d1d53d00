package models

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupledger/internal/calendar"
)

// Kind tells expenses from income.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

// Transaction is a single ledger entry, entered by a member or materialized
// from a RecurringRule.
type Transaction struct {
	ID           string          `json:"id"`
	GroupID      string          `json:"groupId"`
	Kind         Kind            `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Category     string          `json:"category"`
	CategoryIcon string          `json:"categoryIcon"`
	Date         calendar.Date   `json:"date"`
	MemberLabel  string          `json:"memberLabel"`
	Note         string          `json:"note"`
	CreatedAt    int64           `json:"createdAt"`
	UpdatedAt    int64           `json:"updatedAt,omitempty"`
	CreatorID    string          `json:"creatorId"`

	// RuleID is set on transactions emitted by the catch-up engine.
	RuleID string `json:"ruleId,omitempty"`
}
