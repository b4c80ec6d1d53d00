package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/models"
)

// Action names a request variant on the wire.
type Action string

const (
	ActionCreateGroup               Action = "createGroup"
	ActionJoinGroup                 Action = "joinGroup"
	ActionGetGroupInfo              Action = "getGroupInfo"
	ActionUpdateGroupInfo           Action = "updateGroupInfo"
	ActionGetTransactions           Action = "getTransactions"
	ActionGetTransaction            Action = "getTransaction"
	ActionAddTransaction            Action = "addTransaction"
	ActionUpdateTransaction         Action = "updateTransaction"
	ActionDeleteTransaction         Action = "deleteTransaction"
	ActionGetBudget                 Action = "getBudget"
	ActionSaveBudget                Action = "saveBudget"
	ActionGetRecurringRules         Action = "getRecurringRules"
	ActionAddRecurringRule          Action = "addRecurringRule"
	ActionDeleteRecurringRule       Action = "deleteRecurringRule"
	ActionCheckAndGenerateRecurring Action = "checkAndGenerateRecurring"
	ActionGetMetadata               Action = "getMetadata"
	ActionAddCategory               Action = "addCategory"
	ActionAddMember                 Action = "addMember"
	ActionDeleteMember              Action = "deleteMember"
	ActionAddAccount                Action = "addAccount"
	ActionDeleteAccount             Action = "deleteAccount"
	ActionGetDebts                  Action = "getDebts"
	ActionAddDebt                   Action = "addDebt"
	ActionUpdateDebt                Action = "updateDebt"
	ActionDeleteDebt                Action = "deleteDebt"
)

// Request is one of the request variants declared in this file. The set is
// closed: only types in this package implement it.
type Request interface {
	Action() Action
	isRequest()
}

// groupScoped requests pass the access gate before they are handled.
type groupScoped interface {
	Request
	scope() string
}

// GroupRef is embedded by every group-scoped request.
type GroupRef struct {
	GroupID string `json:"groupId"`
}

func (g GroupRef) scope() string { return g.GroupID }

type CreateGroupRequest struct {
	Name string `json:"name"`
}

// JoinGroupRequest is not gated: joining is how a non-member becomes one.
type JoinGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupInfoRequest struct {
	GroupRef
}

type UpdateGroupInfoRequest struct {
	GroupRef
	Name string `json:"name"`
}

// TransactionFilter narrows GetTransactionsRequest. Type "day" matches
// Date exactly; any other type matches Date as a prefix (usually YYYY-MM).
type TransactionFilter struct {
	Date    string `json:"date"`
	Type    string `json:"type"`
	Keyword string `json:"keyword"`
}

type GetTransactionsRequest struct {
	GroupRef
	Page   int                `json:"page"`
	Limit  int                `json:"limit"`
	Filter *TransactionFilter `json:"filter"`
}

type GetTransactionRequest struct {
	GroupRef
	ID string `json:"id"`
}

// TransactionInput carries the member-editable fields of a transaction.
type TransactionInput struct {
	Kind         string              `json:"kind"`
	Amount       decimal.NullDecimal `json:"amount"`
	Category     string              `json:"category"`
	CategoryIcon string              `json:"categoryIcon"`
	Date         string              `json:"date"`
	MemberLabel  string              `json:"memberLabel"`
	Note         string              `json:"note"`
}

type AddTransactionRequest struct {
	GroupRef
	Transaction TransactionInput `json:"transaction"`
}

type UpdateTransactionRequest struct {
	GroupRef
	ID          string           `json:"id"`
	Transaction TransactionInput `json:"transaction"`
}

type DeleteTransactionRequest struct {
	GroupRef
	ID string `json:"id"`
}

type GetBudgetRequest struct {
	GroupRef
	Month string `json:"month"`
}

// BudgetInput updates the budget's amount when ID is set, or creates a
// budget for Month otherwise.
type BudgetInput struct {
	ID     string              `json:"id"`
	Month  string              `json:"month"`
	Amount decimal.NullDecimal `json:"amount"`
}

type SaveBudgetRequest struct {
	GroupRef
	Budget BudgetInput `json:"budget"`
}

type GetRecurringRulesRequest struct {
	GroupRef
}

// RuleInput describes a new recurring rule. LastGeneratedDate is the date
// of the transaction the rule was created from; the first generated
// occurrence is one cadence step after it.
type RuleInput struct {
	Kind              string              `json:"kind"`
	Amount            decimal.NullDecimal `json:"amount"`
	Category          string              `json:"category"`
	CategoryIcon      string              `json:"categoryIcon"`
	MemberLabel       string              `json:"memberLabel"`
	Note              string              `json:"note"`
	Cadence           string              `json:"cadence"`
	LastGeneratedDate string              `json:"lastGeneratedDate"`
	IsActive          *bool               `json:"isActive"`
}

type AddRecurringRuleRequest struct {
	GroupRef
	Rule RuleInput `json:"rule"`
}

type DeleteRecurringRuleRequest struct {
	GroupRef
	ID string `json:"id"`
}

type CheckAndGenerateRecurringRequest struct {
	GroupRef
}

// GetMetadataRequest reads the group's categories, member labels and
// accounts, seeding defaults for whichever the group has none of.
type GetMetadataRequest struct {
	GroupRef
}

// CategoryInput replaces the group's whole category set.
type CategoryInput struct {
	Expense []models.Category `json:"expense"`
	Income  []models.Category `json:"income"`
}

type AddCategoryRequest struct {
	GroupRef
	Category CategoryInput `json:"category"`
}

type MemberInput struct {
	Name string `json:"name"`
}

type AddMemberRequest struct {
	GroupRef
	Member MemberInput `json:"member"`
}

type DeleteMemberRequest struct {
	GroupRef
	ID string `json:"id"`
}

type AccountInput struct {
	Name           string              `json:"name"`
	Icon           string              `json:"icon"`
	InitialBalance decimal.NullDecimal `json:"initialBalance"`
}

type AddAccountRequest struct {
	GroupRef
	Account AccountInput `json:"account"`
}

type DeleteAccountRequest struct {
	GroupRef
	ID string `json:"id"`
}

type GetDebtsRequest struct {
	GroupRef
}

// DebtInput describes a new debt. Status defaults to pending.
type DebtInput struct {
	Type       string              `json:"type"`
	PersonName string              `json:"personName"`
	Amount     decimal.NullDecimal `json:"amount"`
	Note       string              `json:"note"`
	Status     string              `json:"status"`
}

type AddDebtRequest struct {
	GroupRef
	Debt DebtInput `json:"debt"`
}

// DebtPatch changes only the fields that are present. SettleTime is a Unix
// timestamp in seconds; when a debt is marked repaid without one, the
// current time is used.
type DebtPatch struct {
	Type       *string             `json:"type"`
	PersonName *string             `json:"personName"`
	Amount     decimal.NullDecimal `json:"amount"`
	Note       *string             `json:"note"`
	Status     *string             `json:"status"`
	SettleTime *int64              `json:"settleTime"`
}

type UpdateDebtRequest struct {
	GroupRef
	ID   string    `json:"id"`
	Debt DebtPatch `json:"debt"`
}

type DeleteDebtRequest struct {
	GroupRef
	ID string `json:"id"`
}

func (*CreateGroupRequest) Action() Action               { return ActionCreateGroup }
func (*JoinGroupRequest) Action() Action                 { return ActionJoinGroup }
func (*GetGroupInfoRequest) Action() Action              { return ActionGetGroupInfo }
func (*UpdateGroupInfoRequest) Action() Action           { return ActionUpdateGroupInfo }
func (*GetTransactionsRequest) Action() Action           { return ActionGetTransactions }
func (*GetTransactionRequest) Action() Action            { return ActionGetTransaction }
func (*AddTransactionRequest) Action() Action            { return ActionAddTransaction }
func (*UpdateTransactionRequest) Action() Action         { return ActionUpdateTransaction }
func (*DeleteTransactionRequest) Action() Action         { return ActionDeleteTransaction }
func (*GetBudgetRequest) Action() Action                 { return ActionGetBudget }
func (*SaveBudgetRequest) Action() Action                { return ActionSaveBudget }
func (*GetRecurringRulesRequest) Action() Action         { return ActionGetRecurringRules }
func (*AddRecurringRuleRequest) Action() Action          { return ActionAddRecurringRule }
func (*DeleteRecurringRuleRequest) Action() Action       { return ActionDeleteRecurringRule }
func (*CheckAndGenerateRecurringRequest) Action() Action { return ActionCheckAndGenerateRecurring }
func (*GetMetadataRequest) Action() Action               { return ActionGetMetadata }
func (*AddCategoryRequest) Action() Action               { return ActionAddCategory }
func (*AddMemberRequest) Action() Action                 { return ActionAddMember }
func (*DeleteMemberRequest) Action() Action              { return ActionDeleteMember }
func (*AddAccountRequest) Action() Action                { return ActionAddAccount }
func (*DeleteAccountRequest) Action() Action             { return ActionDeleteAccount }
func (*GetDebtsRequest) Action() Action                  { return ActionGetDebts }
func (*AddDebtRequest) Action() Action                   { return ActionAddDebt }
func (*UpdateDebtRequest) Action() Action                { return ActionUpdateDebt }
func (*DeleteDebtRequest) Action() Action                { return ActionDeleteDebt }

func (*CreateGroupRequest) isRequest()               {}
func (*JoinGroupRequest) isRequest()                 {}
func (*GetGroupInfoRequest) isRequest()              {}
func (*UpdateGroupInfoRequest) isRequest()           {}
func (*GetTransactionsRequest) isRequest()           {}
func (*GetTransactionRequest) isRequest()            {}
func (*AddTransactionRequest) isRequest()            {}
func (*UpdateTransactionRequest) isRequest()         {}
func (*DeleteTransactionRequest) isRequest()         {}
func (*GetBudgetRequest) isRequest()                 {}
func (*SaveBudgetRequest) isRequest()                {}
func (*GetRecurringRulesRequest) isRequest()         {}
func (*AddRecurringRuleRequest) isRequest()          {}
func (*DeleteRecurringRuleRequest) isRequest()       {}
func (*CheckAndGenerateRecurringRequest) isRequest() {}
func (*GetMetadataRequest) isRequest()               {}
func (*AddCategoryRequest) isRequest()               {}
func (*AddMemberRequest) isRequest()                 {}
func (*DeleteMemberRequest) isRequest()              {}
func (*AddAccountRequest) isRequest()                {}
func (*DeleteAccountRequest) isRequest()             {}
func (*GetDebtsRequest) isRequest()                  {}
func (*AddDebtRequest) isRequest()                   {}
func (*UpdateDebtRequest) isRequest()                {}
func (*DeleteDebtRequest) isRequest()                {}

// variants maps each action to a constructor of its request type.
var variants = map[Action]func() Request{
	ActionCreateGroup:               func() Request { return &CreateGroupRequest{} },
	ActionJoinGroup:                 func() Request { return &JoinGroupRequest{} },
	ActionGetGroupInfo:              func() Request { return &GetGroupInfoRequest{} },
	ActionUpdateGroupInfo:           func() Request { return &UpdateGroupInfoRequest{} },
	ActionGetTransactions:           func() Request { return &GetTransactionsRequest{} },
	ActionGetTransaction:            func() Request { return &GetTransactionRequest{} },
	ActionAddTransaction:            func() Request { return &AddTransactionRequest{} },
	ActionUpdateTransaction:         func() Request { return &UpdateTransactionRequest{} },
	ActionDeleteTransaction:         func() Request { return &DeleteTransactionRequest{} },
	ActionGetBudget:                 func() Request { return &GetBudgetRequest{} },
	ActionSaveBudget:                func() Request { return &SaveBudgetRequest{} },
	ActionGetRecurringRules:         func() Request { return &GetRecurringRulesRequest{} },
	ActionAddRecurringRule:          func() Request { return &AddRecurringRuleRequest{} },
	ActionDeleteRecurringRule:       func() Request { return &DeleteRecurringRuleRequest{} },
	ActionCheckAndGenerateRecurring: func() Request { return &CheckAndGenerateRecurringRequest{} },
	ActionGetMetadata:               func() Request { return &GetMetadataRequest{} },
	ActionAddCategory:               func() Request { return &AddCategoryRequest{} },
	ActionAddMember:                 func() Request { return &AddMemberRequest{} },
	ActionDeleteMember:              func() Request { return &DeleteMemberRequest{} },
	ActionAddAccount:                func() Request { return &AddAccountRequest{} },
	ActionDeleteAccount:             func() Request { return &DeleteAccountRequest{} },
	ActionGetDebts:                  func() Request { return &GetDebtsRequest{} },
	ActionAddDebt:                   func() Request { return &AddDebtRequest{} },
	ActionUpdateDebt:                func() Request { return &UpdateDebtRequest{} },
	ActionDeleteDebt:                func() Request { return &DeleteDebtRequest{} },
}

// Actions lists every known action name.
func Actions() []Action {
	actions := make([]Action, 0, len(variants))
	for a := range variants {
		actions = append(actions, a)
	}
	return actions
}

// Decode turns the wire form {action, data} into a typed request.
func Decode(action string, data json.RawMessage) (Request, error) {
	newRequest, ok := variants[Action(action)]
	if !ok {
		return nil, apperr.New(apperr.CodeUnknownAction, "Unknown action")
	}
	req := newRequest()

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return req, nil
	}
	if err := json.Unmarshal(data, req); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidArgument, err, fmt.Sprintf("malformed payload for %s", action))
	}
	return req, nil
}
