package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/storage"
)

func addTxn(t *testing.T, f *fixture, caller, group, date, category, note string) string {
	t.Helper()
	var res IDResult
	f.mustInvoke(t, caller, ActionAddTransaction, fmt.Sprintf(
		`{"groupId":%q,"transaction":{"kind":"expense","amount":"10","category":%q,"date":%q,"note":%q}}`,
		group, category, date, note), &res)
	require.NotEmpty(t, res.ID)
	return res.ID
}

func listDates(t *testing.T, f *fixture, data string) []string {
	t.Helper()
	var list TransactionListResult
	f.mustInvoke(t, "alice", ActionGetTransactions, data, &list)
	dates := make([]string, len(list.List))
	for i, txn := range list.List {
		dates[i] = txn.Date.String()
	}
	return dates
}

func TestTransactions_ListAndFilter(t *testing.T) {
	f := newFixture(t)
	addTxn(t, f, "alice", "g1", "2024-01-05", "Rent", "january")
	addTxn(t, f, "alice", "g1", "2024-02-01", "Groceries", "weekly shop")
	addTxn(t, f, "alice", "g1", "2024-02-14", "Dinner", "")
	addTxn(t, f, "alice", "g1", "2024-03-02", "groceries", "")

	tests := []struct {
		name string
		data string
		want []string
	}{
		{"all newest first", `{"groupId":"g1"}`, []string{"2024-03-02", "2024-02-14", "2024-02-01", "2024-01-05"}},
		{"month", `{"groupId":"g1","filter":{"date":"2024-02","type":"month"}}`, []string{"2024-02-14", "2024-02-01"}},
		{"day", `{"groupId":"g1","filter":{"date":"2024-02-01","type":"day"}}`, []string{"2024-02-01"}},
		{"keyword in category", `{"groupId":"g1","filter":{"keyword":"GROCER"}}`, []string{"2024-03-02", "2024-02-01"}},
		{"keyword in note", `{"groupId":"g1","filter":{"keyword":"janu"}}`, []string{"2024-01-05"}},
		{"first page", `{"groupId":"g1","page":1,"limit":3}`, []string{"2024-03-02", "2024-02-14", "2024-02-01"}},
		{"second page", `{"groupId":"g1","page":2,"limit":3}`, []string{"2024-01-05"}},
		{"past the end", `{"groupId":"g1","page":5,"limit":3}`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, listDates(t, f, tt.data))
		})
	}

	t.Run("invalid arguments", func(t *testing.T) {
		assert.Equal(t, apperr.CodeInvalidArgument, f.invoke(t, "alice", ActionGetTransactions, `{"groupId":"g1","page":-1}`).Code)
		assert.Equal(t, apperr.CodeInvalidArgument,
			f.invoke(t, "alice", ActionGetTransactions, `{"groupId":"g1","filter":{"date":"2024-02","type":"day"}}`).Code)
	})
}

func TestTransactions_CRUD(t *testing.T) {
	f := newFixture(t)
	id := addTxn(t, f, "alice", "g1", "2024-03-01", "Coffee", "")

	var got TransactionResult
	f.mustInvoke(t, "alice", ActionGetTransaction, fmt.Sprintf(`{"groupId":"g1","id":%q}`, id), &got)
	assert.Equal(t, "Coffee", got.Data.Category)
	assert.True(t, decimal.NewFromInt(10).Equal(got.Data.Amount))

	f.mustInvoke(t, "alice", ActionUpdateTransaction, fmt.Sprintf(
		`{"groupId":"g1","id":%q,"transaction":{"kind":"income","amount":"4.20","category":"Refund","date":"2024-03-03"}}`, id), &got)
	assert.Equal(t, "income", string(got.Data.Kind))
	assert.Equal(t, "2024-03-03", got.Data.Date.String())
	assert.Equal(t, "alice", got.Data.CreatorID)
	assert.NotZero(t, got.Data.UpdatedAt)

	f.mustInvoke(t, "alice", ActionDeleteTransaction, fmt.Sprintf(`{"groupId":"g1","id":%q}`, id), nil)
	env := f.invoke(t, "alice", ActionGetTransaction, fmt.Sprintf(`{"groupId":"g1","id":%q}`, id))
	assert.Equal(t, apperr.CodeNotFound, env.Code)
	assert.Equal(t, "transaction not found", env.Err)

	env = f.invoke(t, "alice", ActionDeleteTransaction, fmt.Sprintf(`{"groupId":"g1","id":%q}`, id))
	assert.Equal(t, apperr.CodeNotFound, env.Code)
}

func TestTransactions_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		txn  string
	}{
		{"bad kind", `{"kind":"transfer","amount":"1","date":"2024-03-01"}`},
		{"missing amount", `{"kind":"expense","date":"2024-03-01"}`},
		{"negative amount", `{"kind":"expense","amount":"-1","date":"2024-03-01"}`},
		{"missing date", `{"kind":"expense","amount":"1"}`},
		{"bad date", `{"kind":"expense","amount":"1","date":"2024-02-30"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := f.invoke(t, "alice", ActionAddTransaction, `{"groupId":"g1","transaction":`+tt.txn+`}`)
			assert.Equal(t, apperr.CodeInvalidArgument, env.Code, env.Err)
		})
	}
}

func TestTransactions_ScopedToGroup(t *testing.T) {
	f := newFixture(t)
	id := addTxn(t, f, "alice", "g1", "2024-03-01", "Coffee", "")

	// alice also owns g2, but the transaction belongs to g1.
	env := f.invoke(t, "alice", ActionGetTransaction, fmt.Sprintf(`{"groupId":"g2","id":%q}`, id))
	assert.Equal(t, apperr.CodeNotFound, env.Code)
	env = f.invoke(t, "alice", ActionDeleteTransaction, fmt.Sprintf(`{"groupId":"g2","id":%q}`, id))
	assert.Equal(t, apperr.CodeNotFound, env.Code)

	// bob cannot reach it at all.
	env = f.invoke(t, "bob", ActionGetTransaction, fmt.Sprintf(`{"groupId":"g1","id":%q}`, id))
	assert.Equal(t, apperr.CodePermissionDenied, env.Code)
}

func TestBudgets(t *testing.T) {
	f := newFixture(t)

	var saved IDResult
	f.mustInvoke(t, "alice", ActionSaveBudget, `{"groupId":"g1","budget":{"month":"2024-03","amount":"1500"}}`, &saved)
	require.NotEmpty(t, saved.ID)

	var list BudgetListResult
	f.mustInvoke(t, "alice", ActionGetBudget, `{"groupId":"g1","month":"2024-03"}`, &list)
	require.Len(t, list.List, 1)
	assert.Equal(t, "1500", list.List[0].Amount.String())

	f.mustInvoke(t, "alice", ActionSaveBudget,
		fmt.Sprintf(`{"groupId":"g1","budget":{"id":%q,"amount":"1800.5"}}`, saved.ID), nil)

	// An empty month means the current one.
	f.mustInvoke(t, "alice", ActionGetBudget, `{"groupId":"g1"}`, &list)
	require.Len(t, list.List, 1)
	assert.Equal(t, "1800.5", list.List[0].Amount.String())

	f.mustInvoke(t, "alice", ActionGetBudget, `{"groupId":"g1","month":"2024-04"}`, &list)
	assert.Empty(t, list.List)

	assert.Equal(t, apperr.CodeInvalidArgument,
		f.invoke(t, "alice", ActionGetBudget, `{"groupId":"g1","month":"March"}`).Code)
	assert.Equal(t, apperr.CodeInvalidArgument,
		f.invoke(t, "alice", ActionSaveBudget, `{"groupId":"g1","budget":{"month":"2024-03"}}`).Code)
	assert.Equal(t, apperr.CodeNotFound,
		f.invoke(t, "alice", ActionSaveBudget, `{"groupId":"g1","budget":{"id":"missing","amount":"1"}}`).Code)
}

func TestRecurringRules(t *testing.T) {
	f := newFixture(t)

	var added IDResult
	f.mustInvoke(t, "alice", ActionAddRecurringRule, `{"groupId":"g1","rule":{
		"kind":"expense","amount":"9.99","category":"Streaming","cadence":" Month ",
		"lastGeneratedDate":"2024-01-31"}}`, &added)
	require.NotEmpty(t, added.ID)

	var rules RuleListResult
	f.mustInvoke(t, "alice", ActionGetRecurringRules, `{"groupId":"g1"}`, &rules)
	require.Len(t, rules.List, 1)
	rule := rules.List[0]
	assert.Equal(t, "monthly", rule.Cadence)
	assert.Equal(t, "alice", rule.OwnerID)
	assert.True(t, rule.IsActive)

	// Today is 2024-03-10: 02-29 is owed, 03-29 is not yet.
	var result struct {
		Generated int    `json:"generatedCount"`
		Today     string `json:"today"`
	}
	f.mustInvoke(t, "alice", ActionCheckAndGenerateRecurring, `{"groupId":"g1"}`, &result)
	assert.Equal(t, 1, result.Generated)
	assert.Equal(t, "2024-03-10", result.Today)

	var list TransactionListResult
	f.mustInvoke(t, "alice", ActionGetTransactions, `{"groupId":"g1"}`, &list)
	require.Len(t, list.List, 1)
	assert.Equal(t, "2024-02-29", list.List[0].Date.String())
	assert.Equal(t, added.ID, list.List[0].RuleID)

	f.mustInvoke(t, "alice", ActionCheckAndGenerateRecurring, `{"groupId":"g1"}`, &result)
	assert.Equal(t, 0, result.Generated)

	f.mustInvoke(t, "alice", ActionDeleteRecurringRule, fmt.Sprintf(`{"groupId":"g1","id":%q}`, added.ID), nil)
	f.mustInvoke(t, "alice", ActionGetRecurringRules, `{"groupId":"g1"}`, &rules)
	assert.Empty(t, rules.List)

	// Emitted transactions outlive their rule.
	f.mustInvoke(t, "alice", ActionGetTransactions, `{"groupId":"g1"}`, &list)
	assert.Len(t, list.List, 1)
}

func TestRecurringRules_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		rule string
	}{
		{"unknown cadence", `{"kind":"expense","amount":"1","cadence":"fortnightly","lastGeneratedDate":"2024-03-01"}`},
		{"missing amount", `{"kind":"expense","cadence":"daily","lastGeneratedDate":"2024-03-01"}`},
		{"missing cursor", `{"kind":"expense","amount":"1","cadence":"daily"}`},
		{"cursor after today", `{"kind":"expense","amount":"1","cadence":"daily","lastGeneratedDate":"2024-03-11"}`},
		{"bad kind", `{"kind":"gift","amount":"1","cadence":"daily","lastGeneratedDate":"2024-03-01"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := f.invoke(t, "alice", ActionAddRecurringRule, `{"groupId":"g1","rule":`+tt.rule+`}`)
			assert.Equal(t, apperr.CodeInvalidArgument, env.Code, env.Err)
		})
	}

	// A cursor of today is accepted.
	f.mustInvoke(t, "alice", ActionAddRecurringRule,
		`{"groupId":"g1","rule":{"kind":"income","amount":"1","cadence":"weekly","lastGeneratedDate":"2024-03-10"}}`, nil)
}

func TestCatchUp_AttributesToOwnerNotCaller(t *testing.T) {
	f := newFixture(t)
	f.mustInvoke(t, "alice", ActionAddRecurringRule,
		`{"groupId":"g1","rule":{"kind":"expense","amount":"3","cadence":"daily","lastGeneratedDate":"2024-03-08"}}`, nil)
	f.mustInvoke(t, "bob", ActionJoinGroup, `{"groupId":"g1"}`, nil)

	var result struct {
		Generated int `json:"generatedCount"`
	}
	f.mustInvoke(t, "bob", ActionCheckAndGenerateRecurring, `{"groupId":"g1"}`, &result)
	assert.Equal(t, 2, result.Generated)

	var list TransactionListResult
	f.mustInvoke(t, "bob", ActionGetTransactions, `{"groupId":"g1"}`, &list)
	require.Len(t, list.List, 2)
	for _, txn := range list.List {
		assert.Equal(t, "alice", txn.CreatorID)
	}
}

func TestTransactions_TimestampWireNames(t *testing.T) {
	f := newFixture(t)
	id := addTxn(t, f, "alice", "g1", "2024-03-01", "food", "")

	env := f.invoke(t, "alice", ActionGetTransaction, fmt.Sprintf(`{"groupId":"g1","id":%q}`, id))
	require.True(t, env.OK(), env.Err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"createdAt":`)
	assert.NotContains(t, string(raw), `"createTime"`)
}

func TestGroupID_SurroundingWhitespace(t *testing.T) {
	f := newFixture(t)
	f.mustInvoke(t, "alice", ActionGetGroupInfo, `{"groupId":"g1"}`, nil)

	for _, action := range []Action{ActionGetGroupInfo, ActionJoinGroup, ActionGetTransactions} {
		env := f.invoke(t, "alice", action, `{"groupId":" g1 "}`)
		assert.Equal(t, apperr.CodeInvalidArgument, env.Code, action)
	}
	_, err := f.store.GetGroup(context.Background(), " g1 ")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
