package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

// Defaults seeded by getMetadata into a group that has none.
const (
	DefaultMemberName  = "Me"
	DefaultAccountName = "Cash"
	DefaultAccountIcon = "💵"
)

// DefaultCategories returns the category set a new group starts with.
func DefaultCategories() ([]models.Category, []models.Category) {
	expense := []models.Category{
		{Name: "Dining", Icon: "🍚"},
		{Name: "Transport", Icon: "🚗"},
		{Name: "Shopping", Icon: "🛒"},
		{Name: "Entertainment", Icon: "🎮"},
		{Name: "Housing", Icon: "🏠"},
		{Name: "Medical", Icon: "🏥"},
		{Name: "Education", Icon: "🎓"},
		{Name: "Other", Icon: "📦"},
	}
	income := []models.Category{
		{Name: "Salary", Icon: "💰"},
		{Name: "Bonus", Icon: "🧧"},
		{Name: "Investment", Icon: "📈"},
		{Name: "Part-time", Icon: "🕒"},
		{Name: "Other", Icon: "💵"},
	}
	return expense, income
}

// MetadataResult is returned by getMetadata.
type MetadataResult struct {
	Categories *models.CategorySet `json:"categories"`
	Members    []*models.Member    `json:"members"`
	Accounts   []*models.Account   `json:"accounts"`
}

func (d *Dispatcher) getMetadata(ctx context.Context, tc *tenant) (*MetadataResult, error) {
	result, err := d.readMetadata(ctx, tc.groupID)
	if err != nil {
		return nil, err
	}
	if result.Categories != nil && len(result.Members) > 0 && len(result.Accounts) > 0 {
		return result, nil
	}

	var (
		categories *models.CategorySet
		member     *models.Member
		account    *models.Account
	)
	if result.Categories == nil {
		expense, income := DefaultCategories()
		categories = &models.CategorySet{GroupID: tc.groupID, Expense: expense, Income: income}
	}
	if len(result.Members) == 0 {
		member = &models.Member{GroupID: tc.groupID, Name: DefaultMemberName}
	}
	if len(result.Accounts) == 0 {
		account = &models.Account{GroupID: tc.groupID, Name: DefaultAccountName, Icon: DefaultAccountIcon, InitialBalance: decimal.Zero}
	}
	if err := d.store.SeedMetadata(ctx, tc.groupID, categories, member, account); err != nil {
		return nil, apperr.Storage(err, "failed to seed metadata")
	}

	return d.readMetadata(ctx, tc.groupID)
}

// readMetadata loads the group's metadata. Categories is nil when the group
// has no category set.
func (d *Dispatcher) readMetadata(ctx context.Context, groupID string) (*MetadataResult, error) {
	categories, err := d.store.GetCategories(ctx, groupID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Storage(err, "failed to read categories")
	}
	members, err := d.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, apperr.Storage(err, "failed to read members")
	}
	accounts, err := d.store.ListAccounts(ctx, groupID)
	if err != nil {
		return nil, apperr.Storage(err, "failed to read accounts")
	}
	if members == nil {
		members = []*models.Member{}
	}
	if accounts == nil {
		accounts = []*models.Account{}
	}
	return &MetadataResult{Categories: categories, Members: members, Accounts: accounts}, nil
}

// addCategory replaces the group's category set, creating it if absent.
func (d *Dispatcher) addCategory(ctx context.Context, tc *tenant, req *AddCategoryRequest) (*SuccessResult, error) {
	expense, err := cleanCategories(req.Category.Expense, "expense")
	if err != nil {
		return nil, err
	}
	income, err := cleanCategories(req.Category.Income, "income")
	if err != nil {
		return nil, err
	}

	set := &models.CategorySet{GroupID: tc.groupID, Expense: expense, Income: income}
	if err := d.store.SaveCategories(ctx, set); err != nil {
		return nil, apperr.Storage(err, "failed to save categories")
	}
	return &SuccessResult{Success: true}, nil
}

func cleanCategories(in []models.Category, kind string) ([]models.Category, error) {
	out := make([]models.Category, 0, len(in))
	for i, c := range in {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, apperr.InvalidArgument("category.%s[%d].name is required", kind, i)
		}
		out = append(out, models.Category{Name: name, Icon: strings.TrimSpace(c.Icon)})
	}
	return out, nil
}

func (d *Dispatcher) addMember(ctx context.Context, tc *tenant, req *AddMemberRequest) (*IDResult, error) {
	name := strings.TrimSpace(req.Member.Name)
	if name == "" {
		return nil, apperr.InvalidArgument("member.name is required")
	}

	member := &models.Member{GroupID: tc.groupID, Name: name}
	if err := d.store.CreateMember(ctx, member); err != nil {
		return nil, apperr.Storage(err, "failed to add member")
	}
	return &IDResult{ID: member.ID}, nil
}

func (d *Dispatcher) deleteMember(ctx context.Context, tc *tenant, req *DeleteMemberRequest) (*SuccessResult, error) {
	if req.ID == "" {
		return nil, apperr.InvalidArgument("id is required")
	}
	if err := d.store.DeleteMember(ctx, tc.groupID, req.ID); err != nil {
		return nil, storeError(err, "member")
	}
	return &SuccessResult{Success: true}, nil
}

func (d *Dispatcher) addAccount(ctx context.Context, tc *tenant, req *AddAccountRequest) (*IDResult, error) {
	name := strings.TrimSpace(req.Account.Name)
	if name == "" {
		return nil, apperr.InvalidArgument("account.name is required")
	}

	account := &models.Account{
		GroupID:        tc.groupID,
		Name:           name,
		Icon:           strings.TrimSpace(req.Account.Icon),
		InitialBalance: decimal.Zero,
	}
	if req.Account.InitialBalance.Valid {
		account.InitialBalance = req.Account.InitialBalance.Decimal
	}
	if err := d.store.CreateAccount(ctx, account); err != nil {
		return nil, apperr.Storage(err, "failed to add account")
	}
	return &IDResult{ID: account.ID}, nil
}

func (d *Dispatcher) deleteAccount(ctx context.Context, tc *tenant, req *DeleteAccountRequest) (*SuccessResult, error) {
	if req.ID == "" {
		return nil, apperr.InvalidArgument("id is required")
	}
	if err := d.store.DeleteAccount(ctx, tc.groupID, req.ID); err != nil {
		return nil, storeError(err, "account")
	}
	return &SuccessResult{Success: true}, nil
}
