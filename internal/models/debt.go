package models

import "github.com/shopspring/decimal"

// DebtType tells money lent out from money borrowed.
type DebtType string

const (
	DebtLent     DebtType = "lent"
	DebtBorrowed DebtType = "borrowed"
)

// Valid reports whether t is one of the known debt types.
func (t DebtType) Valid() bool {
	return t == DebtLent || t == DebtBorrowed
}

// DebtStatus is the settlement state of a debt.
type DebtStatus string

const (
	DebtPending DebtStatus = "pending"
	DebtRepaid  DebtStatus = "repaid"
)

// Valid reports whether s is one of the known statuses.
func (s DebtStatus) Valid() bool {
	return s == DebtPending || s == DebtRepaid
}

// Debt records money owed between the group and someone outside it.
type Debt struct {
	ID         string          `json:"id"`
	GroupID    string          `json:"groupId"`
	Type       DebtType        `json:"type"`
	PersonName string          `json:"personName"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note"`
	Status     DebtStatus      `json:"status"`

	// SettledAt is the Unix timestamp the debt was repaid, 0 while pending.
	SettledAt int64 `json:"settleTime,omitempty"`

	CreatorID string `json:"creatorId"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}
