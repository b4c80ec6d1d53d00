package models

import "github.com/shopspring/decimal"

// Category is a label transactions and rules are filed under.
type Category struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// CategorySet holds a group's expense and income categories. A group has at
// most one set; saving replaces it whole.
type CategorySet struct {
	ID        string     `json:"id"`
	GroupID   string     `json:"groupId"`
	Expense   []Category `json:"expense"`
	Income    []Category `json:"income"`
	CreatedAt int64      `json:"createdAt"`
	UpdatedAt int64      `json:"updatedAt,omitempty"`
}

// Member is a label for who a transaction belongs to within a group. It is
// not a user account; any member of the group may manage labels.
type Member struct {
	ID        string `json:"id"`
	GroupID   string `json:"groupId"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

// Account is a place money is kept, such as cash or a bank card.
type Account struct {
	ID             string          `json:"id"`
	GroupID        string          `json:"groupId"`
	Name           string          `json:"name"`
	Icon           string          `json:"icon"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	CreatedAt      int64           `json:"createdAt"`
}
