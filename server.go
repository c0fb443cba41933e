package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/middlewares"
	"github.com/mmdatafocus/gem_ledger/models"
	"github.com/mmdatafocus/gem_ledger/rates"
	"github.com/mmdatafocus/gem_ledger/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer(config.ServiceName)

// ready flips once DB, redis and migrations are done.
var ready atomic.Bool

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Password: config.StringFromEnv("REDIS_PASSWORD", ""),
	})
	return client
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// newRouter wires every route. store and fetcher are the two outbound seams.
func newRouter(store utils.ObjectStore, fetcher models.RateFetcher) *gin.Engine {
	logger := config.GetLogger()

	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("x-correlation-id", cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow the liveness probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Until DB/redis are ready, app endpoints return 503.
		if !ready.Load() || config.GetDB() == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service starting"})
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	allowedOrigins := config.StringFromEnv("CORS_ALLOWED_ORIGINS", "")
	if config.IsProduction() {
		corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		if len(corsConfig.AllowOrigins) == 0 {
			// deny all if not configured
			corsConfig.AllowOriginFunc = func(string) bool { return false }
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "x-correlation-id")
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	r.Use(cors.New(corsConfig))

	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if config.RateLimitEnabled() {
		client := getRedisClient(config.StringFromEnv("REDIS_ADDRESS", "localhost:6379"))
		limit := int64(config.IntFromEnv("RATE_LIMIT_MAX_REQUESTS", 600))
		windowSec := config.IntFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.SessionMiddleware())
	r.Use(middlewares.AuthMiddleware())
	r.Use(middlewares.LoaderMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/sign-up", signUpHandler())
	auth.POST("/sign-in", signInHandler())
	auth.POST("/sign-out", middlewares.RequireAuth(), signOutHandler())
	auth.GET("/me", middlewares.RequireAuth(), meHandler())

	viewer := api.Group("", middlewares.RequireAuth())
	admin := api.Group("", middlewares.RequireAdmin())

	viewer.GET("/profiles", listProfilesHandler())
	admin.PUT("/profiles/:id/role", setRoleHandler())

	viewer.GET("/inventory", listInventoryHandler())
	viewer.GET("/inventory/export", exportInventoryHandler())
	viewer.GET("/inventory/:id", getInventoryHandler())
	viewer.GET("/inventory/:id/edit", getInventoryEditHandler())
	viewer.GET("/inventory/:id/logs", entityLogsHandler(models.EntityTypeGem))
	admin.POST("/inventory", createInventoryHandler())
	admin.PUT("/inventory/:id", updateInventoryHandler())
	admin.POST("/inventory/:id/sold", markSoldHandler())
	admin.DELETE("/inventory/:id", deleteInventoryHandler(store))

	admin.POST("/uploads/images", uploadImageHandler(store))

	viewer.GET("/capital", listCapitalHandler())
	viewer.GET("/capital/:id/logs", entityLogsHandler(models.EntityTypeCapital))
	admin.POST("/capital", createCapitalHandler())

	viewer.GET("/transactions", listTransactionsHandler())
	admin.POST("/transactions", createTransactionHandler())
	admin.DELETE("/transactions/:id", deleteTransactionHandler())

	viewer.GET("/logs", listLogsHandler())

	viewer.GET("/dashboard", dashboardHandler())
	viewer.GET("/dashboard/gem-types", gemTypeStatsHandler())
	viewer.GET("/gem-types", gemTypesHandler())

	viewer.POST("/valuation/preview", valuationPreviewHandler())
	viewer.GET("/rates/usd-lkr", getRateHandler(fetcher))
	admin.POST("/rates/usd-lkr", recordRateHandler())

	r.NoRoute(customNotFoundHandler)
	return r
}

func main() {
	port := config.StringFromEnv("API_PORT", "")
	if port == "" {
		// Cloud Run standard env var.
		port = config.StringFromEnv("PORT", defaultPort)
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(utils.GCSStore{}, rates.NewFetcher())

	// Start listening immediately; until DB/Redis are ready we return 503.
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can block tables; run it as a job with SKIP_MIGRATIONS=true.
	if !config.SkipMigrations() {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}
	ready.Store(true)

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
			logger.WithFields(logrus.Fields{
				"path":           c.FullPath(),
				"status":         c.Writer.Status(),
				"correlation_id": cid,
			}).Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "RateLimit:" + c.ClientIP()

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		// limiter unavailable; let the request through
		c.Next()
		return
	}
	if count == 1 {
		rl.client.Expire(c.Request.Context(), key, rl.window)
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
