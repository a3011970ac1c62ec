// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"bolsya/internal/auth"
	"bolsya/internal/log"
	"bolsya/internal/middleware/ratelimit"
	"bolsya/internal/middleware/security"
	"bolsya/internal/middleware/trace"
	"bolsya/internal/services"
)

// Services are the application services behind the API.
type Services struct {
	Auth         *services.AuthService
	Categories   *services.CategoryService
	Transactions *services.TransactionService
	Stats        *services.StatsService
	Chat         *services.ChatService
}

type Options struct {
	Issuer *auth.Issuer
	Logger *log.Logger
	// Ready reports whether dependencies (the store) are usable.
	Ready                 func(ctx context.Context) error
	RecentLimit           int
	ChatRequestsPerMinute int
	RequestTimeout        time.Duration
}

type Server struct {
	http.Server
	svc         Services
	issuer      *auth.Issuer
	ready       func(ctx context.Context) error
	recentLimit int
	now         func() time.Time

	detector    *security.Detector
	tracer      *trace.Middleware
	chatLimiter *ratelimit.Limiter
}

func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 10
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	s := &Server{
		svc:         svc,
		issuer:      opts.Issuer,
		ready:       opts.Ready,
		recentLimit: opts.RecentLimit,
		now:         time.Now,
		detector:    security.NewDetector(),
		chatLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerWindow: opts.ChatRequestsPerMinute,
			Window:            time.Minute,
		}),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(log.Middleware(opts.Logger.WithComponent(log.ComponentHTTP)))
	r.Use(s.tracer.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(chimw.Timeout(opts.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/auth/me", s.handleMe)

			r.Get("/categories", s.handleListCategories)
			r.Post("/categories", s.handleCreateCategory)
			r.Get("/categories/{id}", s.handleGetCategory)
			r.Put("/categories/{id}", s.handleUpdateCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)

			r.Get("/transactions", s.handleListTransactions)
			r.Get("/transactions/recent", s.handleRecentTransactions)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Get("/transactions/{id}", s.handleGetTransaction)
			r.Put("/transactions/{id}", s.handleUpdateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)

			r.Get("/dashboard", s.handleDashboard)

			r.Get("/chat/context", s.handleChatContext)
			r.Get("/chat/history", s.handleChatHistory)
			r.Delete("/chat/history", s.handleChatClear)
			r.With(s.chatLimiter.Middleware(chatLimitKey, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, r, http.StatusTooManyRequests, errorResponse{Error: "too many chat requests, try again in a minute"})
			})).Post("/chat", s.handleChatAsk)
		})
	})

	return r
}

// Shutdown stops accepting requests, waits for in-flight ones and then
// releases the limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	s.chatLimiter.Stop()
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			writeJSON(w, r, http.StatusServiceUnavailable, errorResponse{Error: "not ready"})
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
