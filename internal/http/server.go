// Package http exposes the budget tracker as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budget/internal/auth"
	"budget/internal/backend"
	"budget/internal/cache"
	"budget/internal/config"
	"budget/internal/core"
	"budget/internal/feed"
	applog "budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/store"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session"

type Server struct {
	http.Server

	gate         *auth.Gate
	items        store.ItemStore
	hub          *feed.Hub
	secureCookie bool

	// itemsCache holds per-user snapshots between mutations so the summary
	// endpoints don't hit the store on every chart refresh.
	itemsCache   *cache.LRU[[]core.BudgetItem]
	cacheManager *cache.Manager
	rateLimiter  *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer wires routes, middleware, and caches into a ready-to-run server.
func NewServer(cfg *config.Config, gate *auth.Gate, be *backend.Result, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		gate:         gate,
		items:        be.Items,
		hub:          be.Hub,
		secureCookie: cfg.SecureCookie,
		itemsCache:   cache.NewLRU[[]core.BudgetItem](cfg.CacheSize, cfg.CacheTTL),
		cacheManager: cache.NewManager(),
		rateLimiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}
	s.cacheManager.Register(s.itemsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("POST /api/signup", s.handleSignup)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/session", s.handleSession)

	mux.HandleFunc("GET /api/items", s.withUser(s.handleListItems))
	mux.HandleFunc("POST /api/items", s.withUser(s.handleAddItem))
	mux.HandleFunc("DELETE /api/items/{id}", s.withUser(s.handleRemoveItem))
	mux.HandleFunc("POST /api/items/import", s.withUser(s.handleImportItems))
	mux.HandleFunc("GET /api/items/stream", s.withUser(s.handleItemStream))

	mux.HandleFunc("GET /api/summary", s.withUser(s.handleSummary))
	mux.HandleFunc("GET /api/summary/categories", s.withUser(s.handleCategorySummary))
	mux.HandleFunc("GET /api/summary/trend", s.withUser(s.handleTrend))

	mux.HandleFunc("GET /api/export/json", s.withUser(s.handleExportJSON))
	mux.HandleFunc("GET /api/export/csv", s.withUser(s.handleExportCSV))

	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(security.ClientIP)

	var handler http.Handler = mux
	handler = s.limitMutations(handler)
	handler = headers.Middleware(handler)
	if logger != nil {
		// Runs after the tracer, so the request id is in the context by
		// the time the per-request logger picks it up.
		handler = applog.RequestIDMiddleware(func(r *http.Request) string {
			return trace.GetRequestID(r.Context())
		})(handler)
	}
	handler = tracer.Middleware(handler)
	if logger != nil {
		handler = applog.Middleware(logger.WithComponent(applog.ComponentHTTP))(handler)
	}

	s.Server = http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// No blanket write timeout: /api/items/stream holds its
		// connection open for the life of the subscription.
		IdleTimeout: 120 * time.Second,
	}
	return s
}

// limitMutations rate-limits state-changing requests per client IP.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(security.ClientIP)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			limited.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// Shutdown stops background goroutines before draining connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// withUser resolves the session cookie and rejects anonymous requests.
func (s *Server) withUser(next func(http.ResponseWriter, *http.Request, core.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.gate.Current(r.Context(), s.sessionToken(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r, user)
	}
}

func (s *Server) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.gate.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// invalidateItems drops the user's cached snapshot after a mutation.
func (s *Server) invalidateItems(userID string) {
	s.itemsCache.Delete("items:" + userID)
}

// loadItems returns the user's snapshot, from cache when warm.
func (s *Server) loadItems(ctx context.Context, userID string) ([]core.BudgetItem, error) {
	key := "items:" + userID
	if items, ok := s.itemsCache.Get(key); ok {
		return items, nil
	}
	items, err := s.items.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.itemsCache.Set(key, items)
	return items, nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
