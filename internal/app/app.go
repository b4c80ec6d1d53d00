// Package app wires the ledger components from a Config. The server and the
// CLI build the same graph through it.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/groupledger/internal/access"
	"github.com/mmynk/groupledger/internal/auth"
	"github.com/mmynk/groupledger/internal/config"
	"github.com/mmynk/groupledger/internal/ledger"
	"github.com/mmynk/groupledger/internal/metrics"
	"github.com/mmynk/groupledger/internal/middleware"
	"github.com/mmynk/groupledger/internal/recurring"
	"github.com/mmynk/groupledger/internal/service"
	"github.com/mmynk/groupledger/internal/storage/sqlite"
)

// App holds the wired components.
type App struct {
	Config     config.Config
	Store      *sqlite.SQLiteStore
	Metrics    *metrics.Metrics
	Gate       *access.Gate
	Engine     *recurring.Engine
	Dispatcher *ledger.Dispatcher
	JWT        *auth.JWTManager
}

// Option customizes the wiring, mostly for tests.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock fixes the clock of the engine and the dispatcher.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New opens the store and builds every component on top of it.
func New(cfg config.Config, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	m := metrics.New()
	gate := access.NewGate(store, m)
	engine := recurring.NewEngine(store,
		recurring.WithClock(o.now),
		recurring.WithMaxOccurrences(cfg.Recurring.MaxOccurrencesPerRule),
		recurring.WithMetrics(m),
	)
	dispatcher := ledger.NewDispatcher(store, gate, engine,
		ledger.WithClock(o.now),
		ledger.WithMetrics(m),
	)

	return &App{
		Config:     cfg,
		Store:      store,
		Metrics:    m,
		Gate:       gate,
		Engine:     engine,
		Dispatcher: dispatcher,
		JWT:        auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.TokenTTL()),
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// Handler returns the HTTP surface: the Connect services, the metrics
// endpoint and a health check, behind request logging and CORS.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	authPath, authHandler := service.NewAuthServiceHandler(
		service.NewAuthService(auth.NewPasswordAuthenticator(a.Store), a.JWT, slog.Default()),
		connect.WithInterceptors(middleware.LoggingInterceptor()),
	)
	mux.Handle(authPath, authHandler)

	ledgerPath, ledgerHandler := service.NewLedgerServiceHandler(
		service.NewLedgerService(a.Dispatcher),
		connect.WithInterceptors(middleware.RequireAuth(a.JWT), middleware.LoggingInterceptor()),
	)
	mux.Handle(ledgerPath, ledgerHandler)

	if path := a.Config.Server.MetricsPath; path != "" {
		mux.Handle(path, a.Metrics.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	return loggingMiddleware(corsMiddleware(mux))
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		level := slog.LevelInfo
		if r.URL.Path == "/healthz" || strings.HasPrefix(r.URL.Path, "/metrics") {
			level = slog.LevelDebug
		}
		slog.Log(r.Context(), level, "Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
