package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/groupledger/internal/auth"
	"github.com/mmynk/groupledger/internal/ledger"
	"github.com/mmynk/groupledger/internal/middleware"
)

const (
	// LedgerServiceName is the fully-qualified name of the LedgerService.
	LedgerServiceName = "groupledger.v1.LedgerService"

	// LedgerServiceInvokeProcedure is the single procedure of the LedgerService.
	LedgerServiceInvokeProcedure = "/" + LedgerServiceName + "/Invoke"
)

// InvokeRequest is the wire form of one ledger invocation.
type InvokeRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// LedgerService exposes the dispatcher over Connect.
type LedgerService struct {
	dispatcher *ledger.Dispatcher
}

// NewLedgerService creates a LedgerService over dispatcher.
func NewLedgerService(dispatcher *ledger.Dispatcher) *LedgerService {
	return &LedgerService{dispatcher: dispatcher}
}

// Invoke runs one action for the authenticated caller. Ledger failures are
// reported inside the envelope, never as RPC errors; only a missing caller
// identity fails the RPC itself.
func (s *LedgerService) Invoke(ctx context.Context, req *connect.Request[InvokeRequest]) (*connect.Response[ledger.Envelope], error) {
	callerID := middleware.GetUserID(ctx)
	if callerID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	slog.Debug("Invoke request received", "action", req.Msg.Action, "caller_id", callerID)

	env := s.dispatcher.Invoke(ctx, callerID, req.Msg.Action, req.Msg.Data)
	return connect.NewResponse(&env), nil
}

// NewLedgerServiceHandler builds an HTTP handler for the LedgerService and
// returns the path to mount it on.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	invoke := connect.NewUnaryHandler(
		LedgerServiceInvokeProcedure,
		svc.Invoke,
		append([]connect.HandlerOption{withJSON}, opts...)...,
	)
	return "/" + LedgerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case LedgerServiceInvokeProcedure:
			invoke.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// LedgerClient calls a remote LedgerService.
type LedgerClient struct {
	invoke *connect.Client[InvokeRequest, ledger.Envelope]
}

// NewLedgerClient creates a client for the LedgerService at baseURL.
func NewLedgerClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerClient {
	return &LedgerClient{
		invoke: connect.NewClient[InvokeRequest, ledger.Envelope](
			httpClient,
			baseURL+LedgerServiceInvokeProcedure,
			append([]connect.ClientOption{withJSON}, opts...)...,
		),
	}
}

// Invoke sends one action. token is the caller's bearer token.
func (c *LedgerClient) Invoke(ctx context.Context, token, action string, data any) (ledger.Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return ledger.Envelope{}, err
	}
	req := connect.NewRequest(&InvokeRequest{Action: action, Data: raw})
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	resp, err := c.invoke.CallUnary(ctx, req)
	if err != nil {
		return ledger.Envelope{}, err
	}
	return *resp.Msg, nil
}
