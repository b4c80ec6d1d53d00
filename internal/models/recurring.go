package models

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupledger/internal/calendar"
)

// RecurringRule is a template that the catch-up engine materializes into one
// Transaction per occurrence.
type RecurringRule struct {
	ID           string              `json:"id"`
	GroupID      string              `json:"groupId"`
	Kind         Kind                `json:"kind"`
	Amount       decimal.NullDecimal `json:"amount"`
	Category     string              `json:"category"`
	CategoryIcon string              `json:"categoryIcon"`
	MemberLabel  string              `json:"memberLabel"`
	Note         string              `json:"note"`

	// Cadence is the persisted label ("daily", "weekly", "monthly"). It is
	// kept raw so a rule with an unknown label can still be loaded and skipped.
	Cadence string `json:"cadence"`

	// LastGeneratedDate is the cursor: the latest occurrence already
	// materialized. It only moves forward.
	LastGeneratedDate calendar.Date `json:"lastGeneratedDate"`

	IsActive  bool   `json:"isActive"`
	OwnerID   string `json:"ownerId"`
	CreatedAt int64  `json:"createTime"`
}
