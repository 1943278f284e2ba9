// Package main runs the dashboard API server with WebSocket push and graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/helicone-dashboard/backend/config"
	"github.com/helicone-dashboard/backend/internal/alerts"
	"github.com/helicone-dashboard/backend/internal/auth"
	"github.com/helicone-dashboard/backend/internal/billing"
	"github.com/helicone-dashboard/backend/internal/emaillogs"
	"github.com/helicone-dashboard/backend/internal/keys"
	"github.com/helicone-dashboard/backend/internal/middleware"
	"github.com/helicone-dashboard/backend/internal/onboarding"
	"github.com/helicone-dashboard/backend/internal/organizations"
	"github.com/helicone-dashboard/backend/internal/orgcontext"
	"github.com/helicone-dashboard/backend/internal/providerkeys"
	"github.com/helicone-dashboard/backend/internal/ratelimit"
	"github.com/helicone-dashboard/backend/internal/realtime"
	"github.com/helicone-dashboard/backend/internal/reports"
	"github.com/helicone-dashboard/backend/internal/stats"
	"github.com/helicone-dashboard/backend/internal/usage"
	"github.com/helicone-dashboard/backend/internal/usersettings"
	"github.com/helicone-dashboard/backend/pkg/apperr"
	"github.com/helicone-dashboard/backend/pkg/database"
	"github.com/helicone-dashboard/backend/pkg/queue"
	"github.com/helicone-dashboard/backend/pkg/redis"
	"github.com/helicone-dashboard/backend/pkg/response"
	"github.com/helicone-dashboard/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns: int32(cfg.Database.MaxConns),
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" && cfg.AWS.ReportsBucket != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			Endpoint:             cfg.AWS.Endpoint,
			ReportsBucket:        cfg.AWS.ReportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	sessions := auth.NewSessionService(cfg.Session.Secret, cfg.Session.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, jobQueue, sessions, cfg.App.BaseURL,
		time.Duration(cfg.Session.MagicLinkTTLMin)*time.Minute, logger)
	authHandler := auth.NewHandler(authSvc, auth.CookieOptions{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
	}, logger)

	// Organizations and the per-user org context
	orgRepo := organizations.NewRepository(pool)
	orgSvc := organizations.NewService(orgRepo, authSvc, nil, logger)
	orgContext := orgcontext.NewManager(orgSvc, orgcontext.NewRedisStore(rdb.Client, 30*24*time.Hour), hub, logger)
	orgSvc.SetNotifier(orgContext)
	orgHandler := organizations.NewHandler(orgSvc, logger)
	orgContextHandler := orgcontext.NewHandler(orgContext, logger)
	onboardingHandler := onboarding.NewHandler(orgRepo)

	settingsHandler := usersettings.NewHandler(usersettings.NewRepository(pool), logger)
	keysHandler := keys.NewHandler(keys.NewRepository(pool), logger)

	var providerKeysHandler *providerkeys.Handler
	if vault, err := providerkeys.NewVault(cfg.Vault.Secret); err != nil {
		logger.Warn("provider keys disabled", zap.Error(err))
	} else {
		providerKeysHandler = providerkeys.NewHandler(providerkeys.NewRepository(pool), vault, logger)
	}

	alertsHandler := alerts.NewHandler(alerts.NewRepository(pool), logger)

	usageRepo := usage.NewRepository(pool)
	usageHandler := usage.NewHandler(usageRepo, orgRepo, logger)

	statsHandler := stats.NewHandler(stats.NewService(stats.NewRepository(pool), logger))
	emailLogsHandler := emaillogs.NewHandler(emaillogs.NewRepository(pool))

	var reportGen *reports.Generator
	if s3Client != nil {
		reportGen = reports.NewGenerator(usageRepo, s3Client)
	}
	reportsHandler := reports.NewHandler(reportGen, logger)

	billingSvc := billing.NewService(
		billing.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret),
		orgRepo, orgSvc, cfg.Stripe.PriceIDs,
		billing.URLs{Success: cfg.Stripe.SuccessURL, Cancel: cfg.Stripe.CancelURL, PortalReturn: cfg.Stripe.PortalReturn},
		logger,
	)
	billingHandler := billing.NewHandler(billingSvc, logger)

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Store == "memory" {
		limiter = ratelimit.NewMemoryLimiter()
	} else {
		limiter = ratelimit.NewRedisLimiter(rdb.Client, "ratelimit:")
	}

	metrics := middleware.NewHTTPMetrics("dashboard-api", prometheus.DefaultRegisterer)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(logger))
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(metrics.Middleware())
	router.NoRoute(func(c *gin.Context) { response.NotFound(c, "route not found") })
	router.NoMethod(func(c *gin.Context) { response.MethodNotAllowed(c) })

	router.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		dbOK := pool.Ping(hctx) == nil
		redisOK := rdb.Healthy(hctx)
		if !dbOK || !redisOK {
			c.JSON(http.StatusServiceUnavailable, response.Body{
				Error: &response.ErrorBody{
					Kind:    apperr.KindInternal,
					Message: fmt.Sprintf("unhealthy: database=%t redis=%t", dbOK, redisOK),
				},
			})
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/magic_link", authHandler.SendMagicLink)
		authGroup.POST("/verify", authHandler.Verify)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Webhooks (no session; signature verified in handler)
	router.POST("/webhooks/stripe", billingHandler.Webhook)

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, sessions.ValidateSession, splitOrigins(cfg.Server.CORSAllowedOrigins), logger))

	// Protected API
	api := router.Group("/api")
	api.Use(middleware.Session(sessions, cfg.Session.CookieName))
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(limiter, cfg.RateLimit.RequestsPer,
			time.Duration(cfg.RateLimit.WindowSeconds)*time.Second, logger))
	}
	{
		api.GET("/me", authHandler.Me)
		api.GET("/stats", middleware.RequireAdmin(cfg.App.IsAdmin), statsHandler.Get)
		api.GET("/admin/email_logs", middleware.RequireAdmin(cfg.App.IsAdmin), emailLogsHandler.List)

		orgHandler.RegisterRoutes(api)
		orgContextHandler.RegisterRoutes(api)
		settingsHandler.RegisterRoutes(api)
		billingHandler.RegisterRoutes(api)

		member := api.Group("/organization/:id", organizations.RequireOrgAccess(orgSvc, organizations.AccessMember))
		mutate := api.Group("/organization/:id", organizations.RequireOrgAccess(orgSvc, organizations.AccessMutate))
		onboardingHandler.RegisterRoutes(member, mutate)
		keysHandler.RegisterRoutes(member, mutate)
		if providerKeysHandler != nil {
			providerKeysHandler.RegisterRoutes(member, mutate)
		}
		alertsHandler.RegisterRoutes(member, mutate)
		usageHandler.RegisterRoutes(member)
		reportsHandler.RegisterRoutes(member)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func splitOrigins(v string) []string {
	var out []string
	for _, o := range strings.Split(v, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
