package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rmendes/userhub/internal/auth"
	"github.com/rmendes/userhub/internal/cache"
	"github.com/rmendes/userhub/internal/config"
	"github.com/rmendes/userhub/internal/domain/user"
	"github.com/rmendes/userhub/internal/http/handlers"
	"github.com/rmendes/userhub/internal/http/middlewares"
	"github.com/rmendes/userhub/internal/observability"
	"github.com/rmendes/userhub/internal/service"
	"github.com/rmendes/userhub/internal/storage"
)

// Deps carries everything the router wires together. Users and Jobs accept
// any store implementation so tests can run on the memory repo.
type Deps struct {
	Pool    *pgxpool.Pool // nil in tests; used for readiness ping only
	Users   service.UserStore
	Jobs    service.JobEnqueuer
	Tokens  *auth.Manager
	Files   *storage.Storage
	Redis   *redis.Client         // nil falls back to the in-memory limiter
	Metrics *observability.Prom   // nil disables /metrics
	Reg     prometheus.Gatherer   // gatherer backing /metrics
}

func NewRouter(log *slog.Logger, cfg config.Config, d Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(otelgin.Middleware("userhub-api"))

	if d.Metrics != nil {
		r.Use(d.Metrics.GinHandleMiddleware())
	}

	// health
	ping := func() error {
		if d.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return d.Pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Metrics != nil && d.Reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Reg, promhttp.HandlerOpts{})))
	}

	// auth endpoints get the shared limiter when redis is configured,
	// a per-process window otherwise
	var limit gin.HandlerFunc

	if d.Redis != nil {
		limit = middlewares.NewRedisRateLimiter(d.Redis, cfg.RateLimit, cfg.RateWindow).
			RateLimiterMiddleware(middlewares.KeyByIP)
	} else {
		limit = middlewares.NewRateLimiter(cfg.RateLimit, cfg.RateWindow).
			RateLimiterMiddleware(middlewares.KeyByIP)
	}

	// services
	creds := service.NewCredentialService(d.Users, d.Tokens, d.Jobs, log)
	users := service.NewUsersService(d.Users, log)

	// guards
	authGuard := middlewares.NewAuthMiddleware(d.Tokens)
	roleGuard := middlewares.NewRoleGuard(d.Users)

	// handlers
	authHandler := handlers.NewAuthHandler(creds, d.Files)
	usersHandler := handlers.NewUsersHandler(users, cache.New(cfg.ListCacheTTL))

	authRoutes := r.Group("/auth", limit)
	{
		authRoutes.POST("/login", middlewares.RequireJSON(), authHandler.Login)
		authRoutes.POST("/register", middlewares.RequireJSON(), authHandler.Register)
		authRoutes.POST("/forget", middlewares.RequireJSON(), authHandler.Forget)
		authRoutes.POST("/reset", middlewares.RequireJSON(), authHandler.Reset)
		authRoutes.GET("/me", authGuard.RequireAuth(), authHandler.Me)
		authRoutes.POST("/photo", authGuard.RequireAuth(), authHandler.UploadPhoto)
	}

	userRoutes := r.Group("/users", authGuard.RequireAuth(), roleGuard.RequireRole(user.RoleAdmin))
	{
		userRoutes.POST("", middlewares.RequireJSON(), usersHandler.Create)
		userRoutes.GET("", usersHandler.List)
		userRoutes.GET("/:id", usersHandler.Show)
		userRoutes.PUT("/:id", middlewares.RequireJSON(), usersHandler.Update)
		userRoutes.PATCH("/:id", middlewares.RequireJSON(), usersHandler.UpdatePartial)
		userRoutes.DELETE("/:id", usersHandler.Delete)
	}

	return r
}
