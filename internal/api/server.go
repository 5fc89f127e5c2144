package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/iso-assessment/internal/config"
	"github.com/terra-clan/iso-assessment/internal/identity"
	"github.com/terra-clan/iso-assessment/internal/workspace"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	workspaces     workspace.Manager
	identities     identity.Provider
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	manager workspace.Manager,
	provider identity.Provider,
) *Server {
	s := &Server{
		config:         cfg,
		workspaces:     manager,
		identities:     provider,
		authMiddleware: NewAuthMiddleware(provider),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := s.config.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/session", s.handleSignIn)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware.Authenticate)

			r.Get("/catalog", s.handleGetCatalog)
			r.Get("/catalog/domains/{id}", s.handleGetDomain)
			r.Get("/options", s.handleListOptions)

			r.Route("/assessment", func(r chi.Router) {
				r.Get("/answers", s.handleGetAnswers)
				r.Delete("/answers", s.handleResetAnswers)
				r.Put("/answers/{questionId}", s.handleSetAnswer)
				r.Get("/progress", s.handleProgress)
				r.Post("/calculate", s.handleCalculate)
				r.Get("/result", s.handleGetResult)
				r.Post("/save", s.handleSave)
				r.Post("/load", s.handleLoad)
				r.Get("/live", s.handleLiveWS)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
