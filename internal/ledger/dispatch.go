// Package ledger is the single entry point of the ledger: it decodes an
// {action, data} invocation into a typed request, passes group-scoped
// requests through the access gate and routes them to their handler.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/groupledger/internal/access"
	"github.com/mmynk/groupledger/internal/apperr"
	"github.com/mmynk/groupledger/internal/metrics"
	"github.com/mmynk/groupledger/internal/recurring"
	"github.com/mmynk/groupledger/internal/storage"
)

// Store is the storage the dispatcher's handlers need.
type Store interface {
	storage.GroupStore
	storage.TransactionStore
	storage.BudgetStore
	storage.RuleStore
	storage.MetadataStore
	storage.DebtStore
}

// Envelope is the response of one invocation: either a result object or an
// error message, never both.
type Envelope struct {
	Result any
	Code   apperr.Code
	Err    string
}

// OK reports whether the invocation succeeded.
func (e Envelope) OK() bool { return e.Code == "" }

// MarshalJSON writes the result object as is, or {"error": ..., "code": ...}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if !e.OK() {
		return json.Marshal(struct {
			Error string      `json:"error"`
			Code  apperr.Code `json:"code"`
		}{e.Err, e.Code})
	}
	if e.Result == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(e.Result)
}

// UnmarshalJSON reads either wire form. A successful result is kept as raw
// JSON; use DecodeResult to read it.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var head struct {
		Error *string     `json:"error"`
		Code  apperr.Code `json:"code"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if head.Error != nil {
		*e = Envelope{Code: head.Code, Err: *head.Error}
		if e.Code == "" {
			e.Code = apperr.CodeInternal
		}
		return nil
	}
	*e = Envelope{Result: json.RawMessage(append([]byte(nil), data...))}
	return nil
}

// ErrorCode returns the failure code, or "" for a successful invocation.
func (e Envelope) ErrorCode() string { return string(e.Code) }

// DecodeResult copies the result into out through its JSON form.
func (e Envelope) DecodeResult(out any) error {
	if !e.OK() {
		return apperr.New(e.Code, "%s", e.Err)
	}
	raw, err := json.Marshal(e.Result)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func failure(err error) Envelope {
	var e *apperr.Error
	if errors.As(err, &e) {
		return Envelope{Code: e.Code, Err: e.Message}
	}
	return Envelope{Code: apperr.CodeInternal, Err: "internal error"}
}

// Dispatcher routes requests to their handlers.
type Dispatcher struct {
	store   Store
	gate    *access.Gate
	engine  *recurring.Engine
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records one observation per invocation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClock overrides the wall clock used to validate dates against today.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithGroupIDs overrides the generator of server-assigned group IDs.
func WithGroupIDs(newID func() string) Option {
	return func(d *Dispatcher) { d.newID = newID }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store Store, gate *access.Gate, engine *recurring.Engine, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		gate:   gate,
		engine: engine,
		now:    time.Now,
		newID:  newGroupID,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Invoke decodes and dispatches one wire invocation.
func (d *Dispatcher) Invoke(ctx context.Context, callerID, action string, data json.RawMessage) Envelope {
	req, err := Decode(action, data)
	if err != nil {
		slog.Warn("Invocation rejected", "action", action, "caller_id", callerID, "error", err)
		label := action
		if apperr.Is(err, apperr.CodeUnknownAction) {
			label = "unknown"
		}
		d.metrics.ObserveInvocation(label, string(apperr.CodeOf(err)), 0)
		return failure(err)
	}
	return d.Dispatch(ctx, callerID, req)
}

// Dispatch handles req on behalf of callerID. It never panics; every
// failure is folded into the returned Envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, callerID string, req Request) (env Envelope) {
	action := string(req.Action())
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Action panicked", "action", action, "caller_id", callerID, "panic", r)
			env = failure(fmt.Errorf("panic: %v", r))
		}
		d.metrics.ObserveInvocation(action, string(env.Code), time.Since(start).Seconds())
	}()

	result, err := d.dispatch(ctx, callerID, req)
	if err != nil {
		logFailure(action, callerID, err)
		return failure(err)
	}
	return Envelope{Result: result}
}

func (d *Dispatcher) dispatch(ctx context.Context, callerID string, req Request) (any, error) {
	if callerID == "" {
		return nil, apperr.InvalidArgument("caller identity is required")
	}

	// tc is the explicit tenant context of a group-scoped request.
	var tc *tenant
	if scoped, ok := req.(groupScoped); ok {
		grant, err := d.gate.Resolve(ctx, scoped.scope(), callerID)
		if err != nil {
			return nil, err
		}
		tc = &tenant{groupID: grant.Group.ID, callerID: callerID, grant: grant}
	}

	switch r := req.(type) {
	case *CreateGroupRequest:
		return d.createGroup(ctx, callerID, r)
	case *JoinGroupRequest:
		return d.joinGroup(ctx, callerID, r)
	case *GetGroupInfoRequest:
		return d.getGroupInfo(tc)
	case *UpdateGroupInfoRequest:
		return d.updateGroupInfo(ctx, tc, r)
	case *GetTransactionsRequest:
		return d.getTransactions(ctx, tc, r)
	case *GetTransactionRequest:
		return d.getTransaction(ctx, tc, r)
	case *AddTransactionRequest:
		return d.addTransaction(ctx, tc, r)
	case *UpdateTransactionRequest:
		return d.updateTransaction(ctx, tc, r)
	case *DeleteTransactionRequest:
		return d.deleteTransaction(ctx, tc, r)
	case *GetBudgetRequest:
		return d.getBudget(ctx, tc, r)
	case *SaveBudgetRequest:
		return d.saveBudget(ctx, tc, r)
	case *GetRecurringRulesRequest:
		return d.getRecurringRules(ctx, tc)
	case *AddRecurringRuleRequest:
		return d.addRecurringRule(ctx, tc, r)
	case *DeleteRecurringRuleRequest:
		return d.deleteRecurringRule(ctx, tc, r)
	case *CheckAndGenerateRecurringRequest:
		return d.engine.CatchUp(ctx, tc.groupID, tc.callerID)
	case *GetMetadataRequest:
		return d.getMetadata(ctx, tc)
	case *AddCategoryRequest:
		return d.addCategory(ctx, tc, r)
	case *AddMemberRequest:
		return d.addMember(ctx, tc, r)
	case *DeleteMemberRequest:
		return d.deleteMember(ctx, tc, r)
	case *AddAccountRequest:
		return d.addAccount(ctx, tc, r)
	case *DeleteAccountRequest:
		return d.deleteAccount(ctx, tc, r)
	case *GetDebtsRequest:
		return d.getDebts(ctx, tc)
	case *AddDebtRequest:
		return d.addDebt(ctx, tc, r)
	case *UpdateDebtRequest:
		return d.updateDebt(ctx, tc, r)
	case *DeleteDebtRequest:
		return d.deleteDebt(ctx, tc, r)
	default:
		return nil, apperr.New(apperr.CodeUnknownAction, "Unknown action")
	}
}

// tenant is the resolved scope of a group-scoped request.
type tenant struct {
	groupID  string
	callerID string
	grant    *access.Grant
}

func logFailure(action, callerID string, err error) {
	switch apperr.CodeOf(err) {
	case apperr.CodeStorage, apperr.CodeInternal:
		slog.Error("Action failed", "action", action, "caller_id", callerID, "error", err)
	default:
		slog.Info("Action rejected", "action", action, "caller_id", callerID, "error", err)
	}
}

// storeError maps a store failure to a coded error.
func storeError(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("%s not found", what)
	}
	return apperr.Storage(err, fmt.Sprintf("failed to access %s", what))
}
