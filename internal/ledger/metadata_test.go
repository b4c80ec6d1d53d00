package ledger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/models"
)

func TestMetadata_SeedsDefaultsOnce(t *testing.T) {
	f := newFixture(t)

	var first MetadataResult
	f.mustInvoke(t, "alice", ActionGetMetadata, `{"groupId":"g1"}`, &first)

	expense, income := DefaultCategories()
	require.NotNil(t, first.Categories)
	assert.Equal(t, expense, first.Categories.Expense)
	assert.Equal(t, income, first.Categories.Income)

	require.Len(t, first.Members, 1)
	assert.Equal(t, DefaultMemberName, first.Members[0].Name)

	require.Len(t, first.Accounts, 1)
	assert.Equal(t, DefaultAccountName, first.Accounts[0].Name)
	assert.Equal(t, DefaultAccountIcon, first.Accounts[0].Icon)
	assert.True(t, first.Accounts[0].InitialBalance.IsZero())

	var second MetadataResult
	f.mustInvoke(t, "alice", ActionGetMetadata, `{"groupId":"g1"}`, &second)
	assert.Equal(t, first.Categories.ID, second.Categories.ID)
	assert.Equal(t, first.Members[0].ID, second.Members[0].ID)
	require.Len(t, second.Accounts, 1)
	assert.Equal(t, first.Accounts[0].ID, second.Accounts[0].ID)
}

func TestMetadata_Categories(t *testing.T) {
	f := newFixture(t)

	// Saving before any read creates the set.
	f.mustInvoke(t, "alice", ActionAddCategory,
		`{"groupId":"g1","category":{"expense":[{"name":" Rent ","icon":"🏠"}],"income":[]}}`, nil)

	var meta MetadataResult
	f.mustInvoke(t, "alice", ActionGetMetadata, `{"groupId":"g1"}`, &meta)
	assert.Equal(t, []models.Category{{Name: "Rent", Icon: "🏠"}}, meta.Categories.Expense)
	assert.Empty(t, meta.Categories.Income)
	id := meta.Categories.ID

	f.mustInvoke(t, "alice", ActionAddCategory,
		`{"groupId":"g1","category":{"expense":[{"name":"Food"}],"income":[{"name":"Salary","icon":"💰"}]}}`, nil)
	f.mustInvoke(t, "alice", ActionGetMetadata, `{"groupId":"g1"}`, &meta)
	assert.Equal(t, id, meta.Categories.ID, "the set is replaced in place")
	assert.Equal(t, []models.Category{{Name: "Food"}}, meta.Categories.Expense)
	assert.Equal(t, []models.Category{{Name: "Salary", Icon: "💰"}}, meta.Categories.Income)
	assert.NotZero(t, meta.Categories.UpdatedAt)

	env := f.invoke(t, "alice", ActionAddCategory, `{"groupId":"g1","category":{"expense":[{"name":"  "}]}}`)
	assert.Equal(t, apperr.CodeInvalidArgument, env.Code)
}

func TestMetadata_MembersAndAccounts(t *testing.T) {
	f := newFixture(t)

	var member, account IDResult
	f.mustInvoke(t, "alice", ActionAddMember, `{"groupId":"g1","member":{"name":"Partner"}}`, &member)
	f.mustInvoke(t, "alice", ActionAddAccount,
		`{"groupId":"g1","account":{"name":"Card","icon":"💳","initialBalance":"-120.50"}}`, &account)

	// Existing records are kept; only the missing category set is seeded.
	var meta MetadataResult
	f.mustInvoke(t, "alice", ActionGetMetadata, `{"groupId":"g1"}`, &meta)
	require.Len(t, meta.Members, 1)
	assert.Equal(t, "Partner", meta.Members[0].Name)
	require.Len(t, meta.Accounts, 1)
	assert.Equal(t, "-120.5", meta.Accounts[0].InitialBalance.String())
	assert.NotNil(t, meta.Categories)

	f.mustInvoke(t, "alice", ActionDeleteMember, fmt.Sprintf(`{"groupId":"g1","id":%q}`, member.ID), nil)
	f.mustInvoke(t, "alice", ActionDeleteAccount, fmt.Sprintf(`{"groupId":"g1","id":%q}`, account.ID), nil)

	assert.Equal(t, apperr.CodeNotFound,
		f.invoke(t, "alice", ActionDeleteMember, fmt.Sprintf(`{"groupId":"g1","id":%q}`, member.ID)).Code)
	assert.Equal(t, apperr.CodeNotFound,
		f.invoke(t, "alice", ActionDeleteAccount, fmt.Sprintf(`{"groupId":"g1","id":%q}`, account.ID)).Code)

	tests := []struct {
		name   string
		action Action
		data   string
	}{
		{"member without name", ActionAddMember, `{"groupId":"g1","member":{"name":" "}}`},
		{"account without name", ActionAddAccount, `{"groupId":"g1","account":{"initialBalance":"5"}}`},
		{"delete member without id", ActionDeleteMember, `{"groupId":"g1"}`},
		{"delete account without id", ActionDeleteAccount, `{"groupId":"g1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, apperr.CodeInvalidArgument, f.invoke(t, "alice", tt.action, tt.data).Code)
		})
	}
}

func TestMetadata_ScopedToGroup(t *testing.T) {
	f := newFixture(t)

	var member IDResult
	f.mustInvoke(t, "alice", ActionAddMember, `{"groupId":"g1","member":{"name":"Partner"}}`, &member)

	// A label from g1 cannot be deleted through g2.
	f.mustInvoke(t, "alice", ActionGetMetadata, `{"groupId":"g2"}`, nil)
	env := f.invoke(t, "alice", ActionDeleteMember, fmt.Sprintf(`{"groupId":"g2","id":%q}`, member.ID))
	assert.Equal(t, apperr.CodeNotFound, env.Code)

	for _, action := range []Action{ActionGetMetadata, ActionAddCategory, ActionAddMember, ActionAddAccount, ActionGetDebts, ActionAddDebt} {
		env := f.invoke(t, "bob", action, `{"groupId":"g1"}`)
		assert.Equal(t, apperr.CodePermissionDenied, env.Code, action)
	}
}

func TestDebts(t *testing.T) {
	f := newFixture(t)

	var lent, borrowed IDResult
	f.mustInvoke(t, "alice", ActionAddDebt,
		`{"groupId":"g1","debt":{"type":"lent","personName":" Sam ","amount":"50","note":"concert"}}`, &lent)
	f.mustInvoke(t, "alice", ActionAddDebt,
		`{"groupId":"g1","debt":{"type":"borrowed","personName":"Kim","amount":"12.30"}}`, &borrowed)

	var list DebtListResult
	f.mustInvoke(t, "alice", ActionGetDebts, `{"groupId":"g1"}`, &list)
	require.Len(t, list.List, 2)
	assert.Equal(t, borrowed.ID, list.List[0].ID, "newest first")
	assert.Equal(t, lent.ID, list.List[1].ID)
	assert.Equal(t, "Sam", list.List[1].PersonName)
	assert.Equal(t, models.DebtPending, list.List[1].Status)
	assert.Equal(t, "alice", list.List[1].CreatorID)

	var updated DebtResult
	f.mustInvoke(t, "alice", ActionUpdateDebt,
		fmt.Sprintf(`{"groupId":"g1","id":%q,"debt":{"status":"repaid"}}`, lent.ID), &updated)
	assert.Equal(t, models.DebtRepaid, updated.Data.Status)
	assert.Equal(t, fixedNow.Unix(), updated.Data.SettledAt)
	assert.Equal(t, "concert", updated.Data.Note, "absent fields are kept")
	assert.Equal(t, "50", updated.Data.Amount.String())

	f.mustInvoke(t, "alice", ActionUpdateDebt,
		fmt.Sprintf(`{"groupId":"g1","id":%q,"debt":{"status":"repaid","settleTime":1700000000}}`, lent.ID), &updated)
	assert.Equal(t, int64(1700000000), updated.Data.SettledAt)

	f.mustInvoke(t, "alice", ActionUpdateDebt,
		fmt.Sprintf(`{"groupId":"g1","id":%q,"debt":{"status":"pending","amount":"45"}}`, lent.ID), &updated)
	assert.Zero(t, updated.Data.SettledAt)
	assert.Equal(t, "45", updated.Data.Amount.String())
	assert.NotZero(t, updated.Data.UpdatedAt)

	f.mustInvoke(t, "alice", ActionDeleteDebt, fmt.Sprintf(`{"groupId":"g1","id":%q}`, borrowed.ID), nil)
	f.mustInvoke(t, "alice", ActionGetDebts, `{"groupId":"g1"}`, &list)
	require.Len(t, list.List, 1)
	assert.Equal(t, lent.ID, list.List[0].ID)

	assert.Equal(t, apperr.CodeNotFound,
		f.invoke(t, "alice", ActionDeleteDebt, fmt.Sprintf(`{"groupId":"g1","id":%q}`, borrowed.ID)).Code)
	assert.Equal(t, apperr.CodeNotFound,
		f.invoke(t, "alice", ActionUpdateDebt, `{"groupId":"g1","id":"missing","debt":{"note":"x"}}`).Code)
}

func TestDebts_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		debt string
	}{
		{"bad type", `{"type":"gift","personName":"Sam","amount":"1"}`},
		{"missing person", `{"type":"lent","amount":"1"}`},
		{"missing amount", `{"type":"lent","personName":"Sam"}`},
		{"zero amount", `{"type":"lent","personName":"Sam","amount":"0"}`},
		{"bad status", `{"type":"lent","personName":"Sam","amount":"1","status":"forgiven"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := f.invoke(t, "alice", ActionAddDebt, `{"groupId":"g1","debt":`+tt.debt+`}`)
			assert.Equal(t, apperr.CodeInvalidArgument, env.Code, env.Err)
		})
	}

	var added IDResult
	f.mustInvoke(t, "alice", ActionAddDebt, `{"groupId":"g1","debt":{"type":"lent","personName":"Sam","amount":"1"}}`, &added)
	env := f.invoke(t, "alice", ActionUpdateDebt,
		fmt.Sprintf(`{"groupId":"g1","id":%q,"debt":{"personName":""}}`, added.ID))
	assert.Equal(t, apperr.CodeInvalidArgument, env.Code)
	env = f.invoke(t, "alice", ActionUpdateDebt, `{"groupId":"g1","debt":{"note":"x"}}`)
	assert.Equal(t, apperr.CodeInvalidArgument, env.Code)
}
