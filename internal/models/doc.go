// Package models defines the persisted records of a shared ledger.
//
// A Group is the tenant scope: it owns Transactions, Budgets and
// RecurringRules, and its Members set is the only authorization data the
// server keeps. Every other record carries the GroupID it belongs to and is
// never visible outside that group.
//
// Records reference each other by ID strings, never by pointer. Calendar
// fields (Transaction.Date, RecurringRule.LastGeneratedDate) are
// calendar.Date values persisted as YYYY-MM-DD text; CreatedAt/UpdatedAt are
// Unix seconds.
package models
