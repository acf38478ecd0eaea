package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/flaskr-go/flaskr/config"
	"github.com/flaskr-go/flaskr/internal/db"
	"github.com/flaskr-go/flaskr/internal/handlers"
	"github.com/flaskr-go/flaskr/internal/logging"
	"github.com/flaskr-go/flaskr/internal/services"
	"github.com/flaskr-go/flaskr/internal/session"
	"github.com/flaskr-go/flaskr/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     logging.Logger
}

// Option adjusts how the server is assembled.
type Option func(*options)

type options struct {
	logger     logging.Logger
	hashCost   int
	accessLogs bool
}

// WithLogger replaces the default stderr logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHashCost sets the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option {
	return func(o *options) {
		o.hashCost = cost
	}
}

// WithoutAccessLog disables the per-request access log.
func WithoutAccessLog() Option {
	return func(o *options) {
		o.accessLogs = false
	}
}

// New constructs a Server. No database connection is opened here; every
// request opens its own on first use and closes it when it completes.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Server, error) {
	o := options{accessLogs: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.New(cfg.LogLevel, os.Stderr)
	}

	if err := db.EnsureDir(cfg.Database.Path); err != nil {
		return nil, err
	}

	provider := db.NewFileProvider(cfg.Database)
	sessions := session.NewManager(cfg.SecretKey, cfg.Session)

	userRepo := store.NewUserRepository(db.Conn)
	postRepo := store.NewPostRepository(db.Conn)

	userService := services.NewUserService(userRepo)
	if o.hashCost > 0 {
		userService = userService.WithHashCost(o.hashCost)
	}
	postService := services.NewPostService(postRepo)

	renderer, err := handlers.NewRenderer(sessions, o.logger)
	if err != nil {
		return nil, err
	}

	authHandler := handlers.NewAuthHandler(userService, sessions, renderer, o.logger)
	blogHandler := handlers.NewBlogHandler(postService, renderer, o.logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
	)
	if o.accessLogs {
		router.Use(newAccessLog(o.logger))
	}
	router.Use(
		middleware.Recoverer,
		provider.Middleware,
		sessions.Middleware,
		handlers.LoadLoggedInUser(userService, o.logger),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/hello", handlers.Hello)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	handlers.BlogRouter(router, blogHandler)

	port := cfg.ServerPort
	if port == 0 {
		port = 5000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		logger:     o.logger,
	}, nil
}

// Router exposes the chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
