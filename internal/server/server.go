// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	_ "inkwell/docs" // swagger docs
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/media"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/policy"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// authCookieName is the httpOnly cookie carrying the identity token.
const authCookieName = "token"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	issuer         *token.Issuer
	mediaStore     media.Store
	authService    *service.AuthService
	postService    *service.PostService
	commentService *service.CommentService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	var mediaStore media.Store
	if cfg.CloudinaryURL != "" {
		mediaStore, err = media.NewCloudinaryStore(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			return nil, fmt.Errorf("media store init failed: %w", err)
		}
	}

	return NewServerWithDeps(cfg, db, cache.GetClient(), mediaStore)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, mediaStore media.Store) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	server := &Server{
		config:     cfg,
		db:         db,
		redis:      redisClient,
		mediaStore: mediaStore,
		issuer:     token.NewIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpiresHours)*time.Hour),
	}
	server.authService = service.NewAuthService(userRepo, postRepo, commentRepo)
	server.postService = service.NewPostService(postRepo, mediaStore)
	server.commentService = service.NewCommentService(commentRepo, postRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID and user ID
	app.Use(middleware.ContextMiddleware())

	// Tracing span per request
	app.Use(middleware.TracingMiddleware())

	// Prometheus HTTP metrics + /metrics endpoint
	middleware.RegisterMetrics(app)

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware runs before middlewares that can short-circuit (e.g.
	// limiter) so browser clients still get CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they are handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Message: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Inkwell Backend Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.Logout)
	auth.Post("/forget-password", middleware.RateLimitWithPolicy(
		s.redis, 3, 10*time.Minute, middleware.FailClosed, "forget_password"), s.ForgetPassword)
	auth.Get("/profile", s.AuthRequired(), s.Profile)
	auth.Post("/change-password", s.AuthRequired(), s.ChangePassword)
	auth.Get("/users", s.AuthRequired(), s.AdminRequired(), s.ListUsers)
	auth.Put("/users/:id/role", s.AuthRequired(), s.AdminRequired(), s.UpdateUserRole)
	auth.Delete("/users/:id", s.AuthRequired(), s.AdminRequired(), s.DeleteUser)

	// Public post routes (browse/search); identity is optional and only
	// enriches the liked flag. Only searches are rate limited, plain listing
	// is covered by the global limiter.
	searchLimiter := middleware.RateLimit(s.redis, 30, time.Minute, "search")
	posts := api.Group("/posts")
	posts.Get("/", func(c *fiber.Ctx) error {
		if c.Query("search") != "" {
			return searchLimiter(c)
		}
		return c.Next()
	}, s.GetPosts)

	// Protected post routes. Specific /:id/:resource and /admin routes are
	// defined before the generic /:id routes.
	posts.Get("/admin", s.AuthRequired(), s.AdminRequired(), s.AdminPosts)
	posts.Post("/", s.AuthRequired(), middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Put("/:id/like", s.AuthRequired(), s.LikePost)
	posts.Put("/:id/restore", s.AuthRequired(), s.AdminRequired(), s.RestorePost)
	posts.Delete("/:id/force", s.AuthRequired(), s.AdminRequired(), s.ForceDeletePost)

	// Comment routes under their post
	posts.Get("/:postId/comments/admin", s.AuthRequired(), s.AdminRequired(), s.AdminComments)
	posts.Get("/:postId/comments/:id/history", s.CommentHistory)
	posts.Get("/:postId/comments", s.GetComments)
	posts.Post("/:postId/comments", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Put("/:postId/comments/:id", s.AuthRequired(), s.UpdateComment)
	posts.Delete("/:postId/comments/:id", s.AuthRequired(), s.DeleteComment)

	// Generic /:id routes last
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.AuthRequired(), s.UpdatePost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Cache is optional; readiness only degrades, not fails.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
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

// AuthRequired returns the authentication middleware. The token rides in an
// httpOnly cookie; an Authorization bearer header is accepted as fallback for
// non-browser clients. Any validation failure clears the cookie so a browser
// stuck with a bad token recovers on the next login.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(authCookieName)
		if tokenString == "" {
			if authHeader := c.Get("Authorization"); authHeader != "" {
				parts := strings.Split(authHeader, " ")
				if len(parts) == 2 && parts[0] == "Bearer" {
					tokenString = parts[1]
				}
			}
		}

		if tokenString == "" {
			middleware.AuthFailures.WithLabelValues("missing_token").Inc()
			return s.respondUnauthenticated(c, "Authorization required")
		}

		identity, err := s.issuer.Validate(tokenString)
		if err != nil {
			middleware.AuthFailures.WithLabelValues("invalid_token").Inc()
			return s.respondUnauthenticated(c, "Invalid or expired token")
		}

		c.Locals("identity", identity)
		c.Locals("userID", identity.ID)
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, identity.ID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// respondUnauthenticated writes the 401 envelope and clears the auth cookie.
func (s *Server) respondUnauthenticated(c *fiber.Ctx, message string) error {
	s.clearAuthCookie(c)
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Message: message})
}

// AdminRequired rejects non-admin identities with 403. Must be placed after
// AuthRequired so the identity is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := c.Locals("identity").(policy.Identity)
		if !ok {
			return s.respondUnauthenticated(c, "Authorization required")
		}
		if !policy.IsAdmin(identity) {
			return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{
				Message: "Admin access required",
			})
		}
		return c.Next()
	}
}

// optionalIdentity extracts the identity from the cookie or header without
// enforcing it. Public routes use it to enrich responses.
func (s *Server) optionalIdentity(c *fiber.Ctx) (policy.Identity, bool) {
	tokenString := c.Cookies(authCookieName)
	if tokenString == "" {
		authHeader := c.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
	}
	if tokenString == "" {
		return policy.Identity{}, false
	}
	identity, err := s.issuer.Validate(tokenString)
	if err != nil {
		return policy.Identity{}, false
	}
	return identity, true
}

func (s *Server) setAuthCookie(c *fiber.Ctx, tokenString string) {
	c.Cookie(&fiber.Cookie{
		Name:     authCookieName,
		Value:    tokenString,
		HTTPOnly: true,
		Secure:   s.config.Env == "production" || s.config.Env == "prod",
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		MaxAge:   s.config.JWTExpiresHours * 3600,
	})
}

func (s *Server) clearAuthCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     authCookieName,
		Value:    "",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "Inkwell API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return s.respondError(c, models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := database.Close(s.db); err != nil {
		log.Printf("error closing sql DB: %v", err)
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
