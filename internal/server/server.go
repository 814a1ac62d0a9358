package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/riosinforma/apiserver/config"
	"github.com/riosinforma/apiserver/internal/auth"
	"github.com/riosinforma/apiserver/internal/cache"
	"github.com/riosinforma/apiserver/internal/db"
	"github.com/riosinforma/apiserver/internal/handlers"
	"github.com/riosinforma/apiserver/internal/metrics"
	"github.com/riosinforma/apiserver/internal/services"
	"github.com/riosinforma/apiserver/internal/storage"
	"github.com/riosinforma/apiserver/internal/store"
	"github.com/riosinforma/apiserver/types"
	"github.com/sirupsen/logrus"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	cache      *cache.Client
	log        logrus.FieldLogger
}

// Dependencies are the collaborators the router is built from.
type Dependencies struct {
	DB      *sql.DB
	Cache   *cache.Client
	Storage services.ObjectStore
	Metrics *metrics.Metrics
	Log     logrus.FieldLogger
}

// New opens the database, cache and object storage described by cfg and
// assembles the HTTP server.
func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, driver, err := db.Open(ctx, cfg.DatabaseURL())
	if err != nil {
		return nil, err
	}
	log.WithField("driver", driver).Info("database connected")

	redisClient := cache.New(cfg.Redis)
	if redisClient.Enabled() {
		if err := redisClient.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unreachable, token revocation and rate limiting degrade to no-ops")
		}
	}

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.WithField("bucket", objects.Bucket()).Info("upload storage ready")

	router, err := NewRouter(cfg, Dependencies{
		DB:      dbConn,
		Cache:   redisClient,
		Storage: objects,
		Metrics: metrics.New(),
		Log:     log,
	})
	if err != nil {
		_ = dbConn.Close()
		_ = redisClient.Close()
		return nil, err
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		cache:      redisClient,
		log:        log,
	}, nil
}

// NewRouter wires stores, services and handlers into a chi router.
func NewRouter(cfg config.Config, deps Dependencies) (*chi.Mux, error) {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(deps.DB)
	articleRepo := store.NewArticleRepository(deps.DB)

	authService := services.NewAuthService(
		userRepo,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		tokens,
		auth.NewRedisBlacklist(deps.Cache),
		cfg.Policy.RegisterRole,
	)
	articleService := services.NewArticleService(articleRepo, cfg.Policy.CreateRequiresAdmin, cfg.Policy.DefaultArticlePerPage)
	uploadService := services.NewUploadService(deps.Storage, cfg.PublicBaseURL)

	authn := handlers.NewAuthenticator(authService, log, m)
	authHandler := handlers.NewAuthHandler(authService, log, m)
	articleHandler := handlers.NewArticleHandler(articleService, log)
	uploadHandler := handlers.NewUploadHandler(uploadService, log)

	createRole := ""
	if cfg.Policy.CreateRequiresAdmin {
		createRole = types.RoleAdmin
	}
	var uploadAuth func(http.Handler) http.Handler
	if cfg.Policy.UploadRequiresAuth {
		uploadAuth = authn.Require("")
	}

	router := chi.NewRouter()
	router.Use(
		handlers.PeerAddr,
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(log),
		m.Middleware,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Timeout(60*time.Second),
	)

	router.Get("/", handlers.Root)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/readyz", handlers.Readyz(deps.DB))
	router.Handle("/metrics", m.Handler())
	router.Get("/uploads/{filename}", uploadHandler.ServeFile)

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Healthz)
		r.Route("/auth", func(r chi.Router) {
			var counter handlers.RequestCounter
			if deps.Cache.Enabled() {
				counter = deps.Cache
			}
			limiter := handlers.RateLimit(counter, cfg.Auth.RateLimit, cfg.Auth.RateWindow, log)
			handlers.AuthRouter(r, authHandler, authn, limiter)
		})
		r.Route("/noticias", func(r chi.Router) {
			handlers.ArticleRouter(r, articleHandler, authn, createRole)
		})
		r.Route("/upload", func(r chi.Router) {
			handlers.UploadRouter(r, uploadHandler, uploadAuth)
		})
	})

	return router, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the database and cache.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.db != nil {
		_ = s.db.Close()
	}
	_ = s.cache.Close()
	return err
}
