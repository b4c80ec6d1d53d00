package ledger

import (
	"context"
	"strings"

	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/calendar"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// TransactionListResult is returned by getTransactions.
type TransactionListResult struct {
	List []*models.Transaction `json:"list"`
}

// TransactionResult carries a single transaction.
type TransactionResult struct {
	Data *models.Transaction `json:"data"`
}

// IDResult returns the ID of a created record.
type IDResult struct {
	ID string `json:"id"`
}

func (d *Dispatcher) getTransactions(ctx context.Context, tc *tenant, req *GetTransactionsRequest) (*TransactionListResult, error) {
	page, limit := req.Page, req.Limit
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultPageSize
	}
	if page < 0 || limit < 0 {
		return nil, apperr.InvalidArgument("page and limit must be positive")
	}
	limit = min(limit, maxPageSize)

	filter := storage.TransactionFilter{Offset: (page - 1) * limit, Limit: limit}
	if f := req.Filter; f != nil {
		date := strings.TrimSpace(f.Date)
		if f.Type == "day" && date != "" {
			if _, err := calendar.Parse(date); err != nil {
				return nil, apperr.InvalidArgument("filter.date: %v", err)
			}
		}
		filter.DatePrefix = date
		filter.Keyword = strings.TrimSpace(f.Keyword)
	}

	txns, err := d.store.ListTransactions(ctx, tc.groupID, filter)
	if err != nil {
		return nil, apperr.Storage(err, "failed to list transactions")
	}
	if txns == nil {
		txns = []*models.Transaction{}
	}
	return &TransactionListResult{List: txns}, nil
}

func (d *Dispatcher) getTransaction(ctx context.Context, tc *tenant, req *GetTransactionRequest) (*TransactionResult, error) {
	if req.ID == "" {
		return nil, apperr.InvalidArgument("id is required")
	}
	txn, err := d.store.GetTransaction(ctx, tc.groupID, req.ID)
	if err != nil {
		return nil, storeError(err, "transaction")
	}
	return &TransactionResult{Data: txn}, nil
}

func (d *Dispatcher) addTransaction(ctx context.Context, tc *tenant, req *AddTransactionRequest) (*IDResult, error) {
	txn := &models.Transaction{GroupID: tc.groupID, CreatorID: tc.callerID}
	if err := req.Transaction.applyTo(txn); err != nil {
		return nil, err
	}
	if err := d.store.CreateTransaction(ctx, txn); err != nil {
		return nil, apperr.Storage(err, "failed to add transaction")
	}
	return &IDResult{ID: txn.ID}, nil
}

func (d *Dispatcher) updateTransaction(ctx context.Context, tc *tenant, req *UpdateTransactionRequest) (*TransactionResult, error) {
	if req.ID == "" {
		return nil, apperr.InvalidArgument("id is required")
	}
	txn, err := d.store.GetTransaction(ctx, tc.groupID, req.ID)
	if err != nil {
		return nil, storeError(err, "transaction")
	}
	if err := req.Transaction.applyTo(txn); err != nil {
		return nil, err
	}
	if err := d.store.UpdateTransaction(ctx, txn); err != nil {
		return nil, storeError(err, "transaction")
	}
	return &TransactionResult{Data: txn}, nil
}

func (d *Dispatcher) deleteTransaction(ctx context.Context, tc *tenant, req *DeleteTransactionRequest) (*SuccessResult, error) {
	if req.ID == "" {
		return nil, apperr.InvalidArgument("id is required")
	}
	if err := d.store.DeleteTransaction(ctx, tc.groupID, req.ID); err != nil {
		return nil, storeError(err, "transaction")
	}
	return &SuccessResult{Success: true}, nil
}

// applyTo validates in and copies it onto txn.
func (in TransactionInput) applyTo(txn *models.Transaction) error {
	kind := models.Kind(strings.ToLower(strings.TrimSpace(in.Kind)))
	if !kind.Valid() {
		return apperr.InvalidArgument("kind must be %q or %q", models.KindExpense, models.KindIncome)
	}
	if !in.Amount.Valid {
		return apperr.InvalidArgument("amount is required")
	}
	if in.Amount.Decimal.IsNegative() {
		return apperr.InvalidArgument("amount must not be negative")
	}
	date, err := calendar.Parse(strings.TrimSpace(in.Date))
	if err != nil {
		return apperr.InvalidArgument("date: %v", err)
	}

	txn.Kind = kind
	txn.Amount = in.Amount.Decimal
	txn.Category = in.Category
	txn.CategoryIcon = in.CategoryIcon
	txn.Date = date
	txn.MemberLabel = in.MemberLabel
	txn.Note = in.Note
	return nil
}
