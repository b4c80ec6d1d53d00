package models

import "github.com/shopspring/decimal"

// Budget is a spending limit for one month of a group.
type Budget struct {
	ID        string          `json:"id"`
	GroupID   string          `json:"groupId"`
	Month     string          `json:"month"` // YYYY-MM
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt int64           `json:"createTime"`
	UpdatedAt int64           `json:"updateTime,omitempty"`
}
