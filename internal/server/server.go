// Package server exposes session workflows over HTTP and streams session
// events over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"silverlink/internal/assistant"
	"silverlink/internal/cache"
	"silverlink/internal/config"
	"silverlink/internal/directory"
	"silverlink/internal/featureflags"
	"silverlink/internal/middleware"
	"silverlink/internal/models"
	"silverlink/internal/notifications"
	"silverlink/internal/observability"
	"silverlink/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the already-initialised collaborators of a Server.
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Directory directory.Directory
	Services  assistant.Services
	// Clock drives session timers and idle expiry. Nil uses the wall clock.
	Clock clockwork.Clock
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	directory      directory.Directory
	services       assistant.Services
	generators     assistant.Services
	featureFlags   *featureflags.Manager
	registry       *session.Registry
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	clock          clockwork.Clock
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
}

// NewServer connects the directory and Redis described by cfg and builds
// the assistant services.
func NewServer(cfg *config.Config) (*Server, error) {
	deps := Deps{}
	switch cfg.DBDriver {
	case config.DirectoryStatic:
		fixtures, err := directory.LoadFixtures()
		if err != nil {
			return nil, fmt.Errorf("load fixtures: %w", err)
		}
		deps.Directory = directory.NewStatic(fixtures)
	default:
		db, err := directory.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		deps.DB = db
		deps.Directory = directory.NewDatabase(db)
	}

	cache.InitRedis(cfg.RedisURL)
	deps.Redis = cache.GetClient()

	deps.Services = assistant.NewServices(assistant.Options{
		BaseURL:    cfg.AIBaseURL,
		APIKey:     cfg.AIAPIKey,
		Timeout:    cfg.AITimeout(),
		ReviewSize: cfg.MatchReviewSize,
		Redis:      deps.Redis,
		CacheTTL:   cfg.AnalysisCacheTTL(),
	})

	return NewServerWithDeps(cfg, deps)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
func NewServerWithDeps(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Directory == nil {
		return nil, fmt.Errorf("server: directory is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		directory:      deps.Directory,
		services:       deps.Services,
		generators:     assistant.LocalServices(cfg.MatchReviewSize),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		promMiddleware: middleware.InitMetrics("silverlink-api"),
		clock:          deps.Clock,
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	s.notifier = notifications.NewNotifier(deps.Redis)
	s.hub = notifications.NewHub(s.notifier)
	s.registry = session.NewRegistry(s.sessionOptions, s.clock)
	return s, nil
}

// sessionOptions configures every new session from the server config.
func (s *Server) sessionOptions(id string) session.Options {
	return session.Options{
		ID:             id,
		Services:       s.services,
		Directory:      s.directory,
		Flags:          s.featureFlags,
		Clock:          s.clock,
		Listener:       s.publishEvent,
		ReviewSize:     s.config.MatchReviewSize,
		AutoReplyDelay: s.config.AutoReplyDelay(),
		AutoReplyText:  s.config.AutoReplyText,
	}
}

// publishEvent forwards a session event to the session's WebSocket clients.
func (s *Server) publishEvent(ev session.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		observability.LogAsyncOperationError(s.shutdownCtx, "publish_event", err, map[string]interface{}{"session_id": ev.SessionID})
		return
	}
	s.hub.Publish(s.shutdownCtx, ev.SessionID, payload)
}

// App builds the Fiber application on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName: "Silverlink API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, err)
			}
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	app.Get("/health/live", s.LivenessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Post("/sessions", middleware.RateLimit(s.redis, 30, time.Minute, "create_session"), s.CreateSession)

	// Session-scoped routes carry the :id parameter, so the context and
	// rate limit middleware are attached per route rather than per group.
	limit := s.config.SessionRateLimit
	scoped := func(handlers ...fiber.Handler) []fiber.Handler {
		chain := []fiber.Handler{
			middleware.ContextMiddleware(),
			middleware.RateLimit(s.redis, limit, time.Minute, "session"),
		}
		return append(chain, handlers...)
	}

	sessions := api.Group("/sessions")
	sessions.Post("/:id/onboarding", scoped(s.CompleteOnboarding)...)
	sessions.Post("/:id/navigate", scoped(s.Navigate)...)
	sessions.Post("/:id/logout", scoped(s.Logout)...)
	sessions.Post("/:id/edit-profile", scoped(s.EditProfile)...)

	sessions.Post("/:id/matches/refresh", scoped(s.RefreshMatches)...)
	sessions.Post("/:id/matches/decide", scoped(s.DecideMatch)...)
	sessions.Get("/:id/matches", scoped(s.GetMatches)...)

	// Specific activity routes before the :activityId ones
	sessions.Get("/:id/activities/featured", scoped(s.FeaturedActivities)...)
	sessions.Post("/:id/activities/suggestions", scoped(s.SuggestActivities)...)
	sessions.Get("/:id/activities", scoped(s.ListActivities)...)
	sessions.Post("/:id/activities", scoped(s.CreateActivity)...)
	sessions.Post("/:id/activities/:activityId/join", scoped(s.JoinActivity)...)

	sessions.Post("/:id/chat/open", scoped(s.OpenChat)...)
	sessions.Post("/:id/chat/back", scoped(s.BackFromChat)...)
	sessions.Post("/:id/chat/messages", scoped(s.SendMessage)...)
	sessions.Get("/:id/chat/icebreakers", scoped(s.Icebreakers)...)
	sessions.Get("/:id/chat/:partnerId/messages", scoped(s.GetMessages)...)

	// Generic /:id routes last
	sessions.Get("/:id", scoped(s.GetSession)...)
	sessions.Delete("/:id", scoped(s.DeleteSession)...)

	app.Get("/ws/sessions/:id", s.WebSocketUpgrade(), s.WebSocketSessionHandler())

	ai := app.Group("/ai")
	ai.Post(assistant.AnalyzePath, s.AnalyzeProfile)
	ai.Post(assistant.MatchPath, s.MatchFriends)
	ai.Post(assistant.PlanPath, s.PlanActivities)
}

// HealthCheck is an alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness check requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports directory and Redis health. Both are optional: a
// static directory and a missing Redis are reported but not fatal.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "static"
	if s.db != nil {
		dbStatus = "healthy"
		sqlDB, err := s.db.DB()
		if err != nil {
			dbStatus = "unhealthy"
		} else if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
		}
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"directory": dbStatus,
			"redis":     redisStatus,
		},
		"sessions": s.registry.Count(),
		"time":     time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	if s.notifier.Enabled() {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx); err != nil {
				log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
			}
		}()
	}
	if ttl := s.config.SessionIdleTTL(); ttl > 0 {
		go s.runIdleSweeper(s.shutdownCtx, ttl)
	}
	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// runIdleSweeper expires idle sessions until ctx is cancelled. It checks
// four times per TTL.
func (s *Server) runIdleSweeper(ctx context.Context, ttl time.Duration) {
	ticker := s.clock.NewTicker(ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.sweepIdleSessions(ttl)
		}
	}
}

// sweepIdleSessions closes sessions idle past ttl. Sessions with a
// connected WebSocket client are kept.
func (s *Server) sweepIdleSessions(ttl time.Duration) []string {
	removed := s.registry.Sweep(ttl, func(id string) bool {
		return s.hub.Count(id) > 0
	})
	for _, id := range removed {
		s.hub.CloseSession(id)
	}
	if len(removed) > 0 {
		log.Printf("Expired %d idle sessions", len(removed))
	}
	return removed
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	s.registry.CloseAll()

	if err := s.hub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down %s: %v", s.hub.Name(), err)
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				log.Printf("error closing sql DB: %v", cerr)
			}
		}
	}

	switch {
	case s.redis == nil:
	case s.redis == cache.GetClient():
		cache.Close()
	default:
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
