// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "threadpulse/docs" // swagger docs
	"threadpulse/internal/bootstrap"
	"threadpulse/internal/cache"
	"threadpulse/internal/config"
	"threadpulse/internal/database"
	"threadpulse/internal/featureflags"
	"threadpulse/internal/middleware"
	"threadpulse/internal/models"
	"threadpulse/internal/notifications"
	"threadpulse/internal/repository"
	"threadpulse/internal/service"
	"threadpulse/internal/threads"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	store          *cache.Store
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	notifier       *notifications.Notifier
	featureFlags   *featureflags.Manager
	insightsConfig service.InsightsConfig

	accountService   *service.AccountService
	syncService      *service.SyncService
	insightsService  *service.InsightsService
	analyticsService *service.AnalyticsService
	postService      *service.PostService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	// Redis is optional; a nil client disables caching, locks and live events.
	db, rdb, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		return nil, fmt.Errorf("runtime init failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	api := threads.NewClient(threads.Config{
		BaseURL:       cfg.ThreadsAPIBaseURL,
		Version:       cfg.ThreadsAPIVersion,
		Timeout:       cfg.ThreadsHTTPTimeout(),
		RatePerSecond: cfg.ThreadsRatePerSecond,
		Burst:         cfg.ThreadsRateBurst,
	})
	return newServer(cfg, db, redisClient, api), nil
}

func newServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, api threads.API) *Server {
	middleware.InitMiddleware(cfg)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		store:          cache.NewStore(redisClient),
		promMiddleware: middleware.InitMetrics("threadpulse-api"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		notifier:       notifications.NewNotifier(redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		insightsConfig: service.InsightsConfig{
			ManualLimit:        cfg.InsightsManualLimit,
			BatchSize:          cfg.InsightsBatchSize,
			BatchDelay:         cfg.InsightsBatchDelay(),
			OpportunisticLimit: cfg.InsightsOpportunisticLimit,
			StaleAfter:         time.Duration(cfg.InsightsStaleHours) * time.Hour,
			MaxAge:             time.Duration(cfg.InsightsMaxAgeDays) * 24 * time.Hour,
		},
	}

	creds := service.NewCredentialResolver(service.CredentialConfig{
		Env:              cfg.Env,
		DevFallbackToken: cfg.ThreadsDevAccessToken,
	})

	server.accountService = service.NewAccountService(server.userRepo, server.postRepo, api, creds, server.store, server.notifier)
	server.syncService = service.NewSyncService(server.userRepo, server.postRepo, api, creds, server.store, server.notifier,
		service.SyncConfig{PageSize: cfg.SyncPageSize, MaxPosts: cfg.SyncMaxPosts})
	server.insightsService = service.NewInsightsService(server.userRepo, server.postRepo, api, creds, server.store, server.notifier)
	server.analyticsService = service.NewAnalyticsService(server.userRepo, server.postRepo, server.insightsService, creds,
		server.featureFlags, server.insightsConfig.OpportunisticPolicy())
	server.postService = service.NewPostService(server.userRepo, server.postRepo)

	return server
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Threads calls these without a dashboard session.
	webhooks := app.Group("/webhooks/threads")
	webhooks.Get("/deauthorize", s.VerifyDeauthorizeWebhook)
	webhooks.Post("/deauthorize", s.DeauthorizeWebhook)

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Get("/ws/events", middleware.WebSocketAuthRequired, s.WebSocketEventsHandler())

	protected := api.Group("", middleware.AuthRequired)

	th := protected.Group("/threads")
	th.Post("/connect", middleware.RateLimit(s.redis, 10, 10*time.Minute, "threads_connect"), s.ConnectAccount)
	th.Post("/disconnect", s.DisconnectAccount)
	th.Get("/status", s.ConnectionStatus)
	th.Get("/profile", s.ThreadsProfile)
	th.Get("/posts", s.RecentPosts)
	th.Post("/sync", middleware.RateLimit(s.redis, 5, 10*time.Minute, "threads_sync"), s.SyncAll)
	th.Post("/insights/refresh", middleware.RateLimit(s.redis, 5, 10*time.Minute, "insights_refresh"), s.RefreshInsights)

	protected.Get("/analytics", s.GetAnalytics)
	protected.Get("/profile", s.GetProfile)
	protected.Get("/feature-flags", s.GetFeatureFlags)

	posts := protected.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Post("/", middleware.RateLimit(s.redis, 30, time.Minute, "create_post"), s.CreatePost)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.DeletePost)
}

// LivenessCheck handles liveness checks
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness checks. Redis is optional: a
// disabled client is reported but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.store.Enabled() {
		redisStatus = "healthy"
		if err := s.store.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:     "Threadpulse API",
		BodyLimit:   1 * 1024 * 1024,
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				log.Printf("error closing sql DB: %v", cerr)
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
