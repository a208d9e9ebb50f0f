// Package http exposes the ledger, the catalog entities and the
// statistics endpoints as a JSON API. Handlers stay thin: they decode,
// authenticate, call the ledger or the store, and map errors to status
// codes in one place (helpers.go).
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/ledger"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/stats"
	"fintrack/internal/store"
)

// EventPublisher pushes transaction lifecycle events to the broker.
// Publishing is best effort: a broker failure never fails the request.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, id, action, userID string) error
}

type Server struct {
	http.Server

	store  store.Store
	ledger *ledger.Ledger
	auth   *auth.Manager
	events EventPublisher

	rateLimiter *rateLimiter

	// Statistics responses cached per user and query shape. Any write
	// that can move a number drops every entry for that user.
	bucketCache   *cache.LRUCache[[]stats.TimeBucket]
	categoryCache *cache.LRUCache[[]stats.CategorySummary]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server. events
// may be nil when no broker is configured.
func NewServer(addr string, st store.Store, ldg *ledger.Ledger, am *auth.Manager, events EventPublisher, cacheSize int, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		store:         st,
		ledger:        ldg,
		auth:          am,
		events:        events,
		rateLimiter:   newRateLimiter(),
		bucketCache:   cache.NewLRUCache[[]stats.TimeBucket](cacheSize, cacheTTL),
		categoryCache: cache.NewLRUCache[[]stats.CategorySummary](cacheSize, cacheTTL),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.bucketCache)
	s.cacheManager.Register(s.categoryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/v1/user", s.handleRegisterUser)
	mux.HandleFunc("POST /api/v1/user/login", s.handleLogin)
	mux.HandleFunc("GET /api/v1/user/me", s.withAuth(s.handleCurrentUser))

	mux.HandleFunc("GET /api/v1/wallet", s.withAuth(s.handleListWallets))
	mux.HandleFunc("POST /api/v1/wallet", s.withAuth(s.handleCreateWallet))
	mux.HandleFunc("GET /api/v1/wallet/total/balance", s.withAuth(s.handleTotalBalance))
	mux.HandleFunc("POST /api/v1/wallet/transfer", s.withAuth(s.handleTransferBalance))
	mux.HandleFunc("GET /api/v1/wallet/{id}", s.withAuth(s.handleGetWallet))
	mux.HandleFunc("PUT /api/v1/wallet/{id}", s.withAuth(s.handleUpdateWallet))
	mux.HandleFunc("DELETE /api/v1/wallet/{id}", s.withAuth(s.handleDeleteWallet))

	mux.HandleFunc("GET /api/v1/transaction", s.withAuth(s.handleListTransactions))
	mux.HandleFunc("POST /api/v1/transaction", s.withAuth(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/v1/transaction/{id}", s.withAuth(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/v1/transaction/{id}", s.withAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/v1/transaction/{id}", s.withAuth(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/v1/category", s.withAuth(s.handleListCategories))
	mux.HandleFunc("POST /api/v1/category", s.withAuth(s.handleCreateCategory))
	mux.HandleFunc("GET /api/v1/category/{id}", s.withAuth(s.handleGetCategory))
	mux.HandleFunc("PUT /api/v1/category/{id}", s.withAuth(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/v1/category/{id}", s.withAuth(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/v1/budget", s.withAuth(s.handleListBudgets))
	mux.HandleFunc("POST /api/v1/budget", s.withAuth(s.handleCreateBudget))
	mux.HandleFunc("GET /api/v1/budget/{id}", s.withAuth(s.handleGetBudget))
	mux.HandleFunc("PUT /api/v1/budget/{id}", s.withAuth(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/v1/budget/{id}", s.withAuth(s.handleDeleteBudget))

	mux.HandleFunc("GET /api/v1/statistics", s.withAuth(s.handleStatistics))
	mux.HandleFunc("GET /api/v1/statistics/timeframe", s.withAuth(s.handleStatisticsTimeframe))
	mux.HandleFunc("GET /api/v1/statistics/category", s.withAuth(s.handleStatisticsCategory))

	traced := trace.NewMiddleware(extractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withSecurity(traced.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// withSecurity adds security headers and rate-limits mutating requests.
func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the HTTP server and the background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidateStatistics drops every cached statistics response for a user.
func (s *Server) invalidateStatistics(userID string) {
	s.bucketCache.DeletePrefix(userID + ":")
	s.categoryCache.DeletePrefix(userID + ":")
}

// publishEvent pushes a lifecycle event to the broker, if one is wired.
func (s *Server) publishEvent(ctx context.Context, id, action, userID string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, id, action, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"transaction_id", id, "action", action, "error", err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
