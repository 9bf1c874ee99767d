package http

import (
	"context"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"pfms/internal/auth"
	"pfms/internal/cache"
	"pfms/internal/core"
	"pfms/internal/middleware/ratelimit"
	"pfms/internal/middleware/security"
	"pfms/internal/middleware/trace"
	"pfms/internal/services"
	"pfms/internal/storage"
	appweb "pfms/web"
)

// Server wires the JSON API, the embedded dashboard client and the
// request middleware around one http.Server.
type Server struct {
	http.Server

	repo      *storage.SQLiteRepository
	authSvc   *auth.Service
	txService *services.TransactionService

	monthlyCache    *cache.LRUCache[core.MonthlyTotals]
	categoriesCache *cache.LRUCache[[]core.CategoryAmount]
	budgetCache     *cache.LRUCache[core.BudgetProgress]
	cacheManager    *cache.Manager

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, repo *storage.SQLiteRepository, authSvc *auth.Service, txService *services.TransactionService, requestsPerMinute int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		repo:      repo,
		authSvc:   authSvc,
		txService: txService,

		monthlyCache:    cache.NewLRUCache[core.MonthlyTotals](10, 5*time.Minute),
		categoriesCache: cache.NewLRUCache[[]core.CategoryAmount](100, 5*time.Minute),
		budgetCache:     cache.NewLRUCache[core.BudgetProgress](100, 5*time.Minute),
		cacheManager:    cache.NewManager(),

		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: requestsPerMinute}),
	}

	s.cacheManager.Register(s.monthlyCache)
	s.cacheManager.Register(s.categoriesCache)
	s.cacheManager.Register(s.budgetCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("GET /api/ping", handlePing)

	mux.HandleFunc("GET /api/transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireAuth(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/budgets", s.requireAuth(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.requireAuth(s.handleSetBudget))

	mux.HandleFunc("GET /api/summary/monthly", s.requireAuth(s.handleSummaryMonthly))
	mux.HandleFunc("GET /api/summary/categories", s.requireAuth(s.handleSummaryCategories))
	mux.HandleFunc("GET /api/summary/budget", s.requireAuth(s.handleSummaryBudget))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// Embedded dashboard client at the root.
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.FileServer(http.FS(sub))
		mux.Handle("GET /", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	traceMW := trace.NewMiddleware(clientIP)
	securityMW := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Server = http.Server{
		Addr:         addr,
		Handler:      traceMW.Middleware(securityMW.Middleware(s.limitMutations(mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// limitMutations rate limits writes per client IP. Reads stay free, the
// dashboard re-fetches everything after every mutation.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			if !s.rateLimiter.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// invalidateSummaries drops every cached derived view. Called after any
// transaction or budget mutation.
func (s *Server) invalidateSummaries() {
	s.monthlyCache.Clear()
	s.categoriesCache.Clear()
	s.budgetCache.Clear()
}

// Shutdown stops the cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handlePing(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]any{"ts": time.Now().UnixMilli()})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Ready means the database answers.
	if _, err := s.repo.ListBudgets(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
