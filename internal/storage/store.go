// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupledger/internal/calendar"
	"github.com/mmynk/groupledger/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist (in the given group).
	ErrNotFound = errors.New("record not found")

	// ErrGroupExists is returned by CreateGroup when the ID is already taken.
	ErrGroupExists = errors.New("group already exists")

	// ErrCursorMoved is returned by RecordOccurrence when the rule's cursor no
	// longer matches the expected previous value.
	ErrCursorMoved = errors.New("rule cursor moved concurrently")

	// ErrEmailExists is returned by CreateUser for a duplicate email.
	ErrEmailExists = errors.New("email already registered")
)

// GroupStore persists groups and their membership.
type GroupStore interface {
	// GetGroup returns the group with its members, or ErrNotFound.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// CreateGroup inserts the group and its members. It fails with
	// ErrGroupExists if the ID is already taken, leaving the existing record
	// untouched. CreatedAt is populated when zero.
	CreateGroup(ctx context.Context, group *models.Group) error

	// AddGroupMember set-inserts userID into the group's members.
	AddGroupMember(ctx context.Context, groupID, userID string) error

	// RenameGroup updates the display name.
	RenameGroup(ctx context.Context, groupID, name string) error
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	// DatePrefix matches transactions whose date starts with it ("2024-01"
	// for a month, "2024-01-08" for a day). Empty matches all.
	DatePrefix string

	// Keyword matches category or note, case-insensitively.
	Keyword string

	Offset int
	Limit  int
}

// TransactionStore persists ledger transactions.
type TransactionStore interface {
	// CreateTransaction inserts txn, generating ID and CreatedAt when unset.
	CreateTransaction(ctx context.Context, txn *models.Transaction) error

	GetTransaction(ctx context.Context, groupID, txnID string) (*models.Transaction, error)

	// ListTransactions returns the group's transactions, newest date first.
	ListTransactions(ctx context.Context, groupID string, filter TransactionFilter) ([]*models.Transaction, error)

	// UpdateTransaction replaces the editable fields of an existing transaction.
	UpdateTransaction(ctx context.Context, txn *models.Transaction) error

	DeleteTransaction(ctx context.Context, groupID, txnID string) error
}

// BudgetStore persists monthly budgets.
type BudgetStore interface {
	ListBudgets(ctx context.Context, groupID, month string) ([]*models.Budget, error)
	CreateBudget(ctx context.Context, budget *models.Budget) error
	UpdateBudgetAmount(ctx context.Context, groupID, budgetID string, amount decimal.Decimal) error
}

// RuleStore persists recurring rules and their cursors.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *models.RecurringRule) error

	// ListRules returns all rules of a group, newest first.
	ListRules(ctx context.Context, groupID string) ([]*models.RecurringRule, error)

	DeleteRule(ctx context.Context, groupID, ruleID string) error

	// ListDueRules returns the active rules of a group whose cursor is before today.
	ListDueRules(ctx context.Context, groupID string, today calendar.Date) ([]*models.RecurringRule, error)

	// RecordOccurrence atomically inserts txn and advances the rule's cursor
	// from prev to txn.Date. If the cursor is no longer prev nothing is
	// written and ErrCursorMoved is returned.
	RecordOccurrence(ctx context.Context, ruleID string, prev calendar.Date, txn *models.Transaction) error
}

// MetadataStore persists the labels a group files its entries under:
// categories, member labels and accounts.
type MetadataStore interface {
	// GetCategories returns the group's category set, or ErrNotFound.
	GetCategories(ctx context.Context, groupID string) (*models.CategorySet, error)

	// SaveCategories replaces the group's category set, creating it if absent.
	SaveCategories(ctx context.Context, set *models.CategorySet) error

	ListMembers(ctx context.Context, groupID string) ([]*models.Member, error)
	CreateMember(ctx context.Context, member *models.Member) error
	DeleteMember(ctx context.Context, groupID, memberID string) error

	ListAccounts(ctx context.Context, groupID string) ([]*models.Account, error)
	CreateAccount(ctx context.Context, account *models.Account) error
	DeleteAccount(ctx context.Context, groupID, accountID string) error

	// SeedMetadata writes each default only if the group has no record of
	// that kind yet. Concurrent callers seed at most once.
	SeedMetadata(ctx context.Context, groupID string, categories *models.CategorySet, member *models.Member, account *models.Account) error
}

// DebtStore persists debts.
type DebtStore interface {
	// ListDebts returns the group's debts, newest first.
	ListDebts(ctx context.Context, groupID string) ([]*models.Debt, error)

	CreateDebt(ctx context.Context, debt *models.Debt) error
	GetDebt(ctx context.Context, groupID, debtID string) (*models.Debt, error)

	// UpdateDebt replaces the editable fields of an existing debt.
	UpdateDebt(ctx context.Context, debt *models.Debt) error

	DeleteDebt(ctx context.Context, groupID, debtID string) error
}

// UserStore persists registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store is the full storage backend used by the server.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	GroupStore
	TransactionStore
	BudgetStore
	RuleStore
	MetadataStore
	DebtStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}
