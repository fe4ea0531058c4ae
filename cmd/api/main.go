package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusevents/internal/auth"
	"campusevents/internal/config"
	"campusevents/internal/handler"
	"campusevents/internal/httpmiddleware"
	"campusevents/internal/profile"
	"campusevents/internal/queue"
	"campusevents/internal/scan"
	"campusevents/internal/store"
	"campusevents/internal/workflow"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	var (
		records  workflow.Store
		profiles profile.Store
		db       *store.DB
	)
	if cfg.StoreBackend == "memory" {
		records = workflow.NewMemStore()
		profiles = profile.NewMemStore()
		log.Println("using in-memory store")
	} else {
		var err error
		db, err = store.NewDB(cfg.DatabaseURL)
		if db == nil {
			return err
		}
		if err != nil {
			log.Printf("warning: db not reachable: %v", err)
		}
		records = workflow.NewSQLStore(db.Client)
		profiles = profile.NewSQLStore(db.Client)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "campus:events")
	}

	svc := workflow.NewService(records)
	svc.SetCounter(redisClient)
	scans := scan.NewManager(func() scan.Camera { return scan.RemoteCamera{} }, profiles, svc, cfg.ScanCooldown)
	h := handler.New(svc, records, profiles, scans, redisClient, q, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil || cfg.StoreBackend == "memory"
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/signup", h.Signup)

	authed := r.Group("/v1", auth.RequireAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	{
		authed.GET("/events", h.ListEvents)
		authed.GET("/events/overview", h.Overview)
		authed.GET("/events/:id", h.GetEvent)
		authed.POST("/events/:id/register", h.Register)
		authed.POST("/events/:id/feedback", h.SubmitFeedback)
		authed.GET("/registrations/mine", h.MyRegistrations)
		authed.GET("/profiles/me", h.MyProfile)
		authed.GET("/profiles/me/qr", h.MyQR)
	}

	admin := authed.Group("", auth.RequireRole(profile.RoleAdmin))
	{
		admin.POST("/events", h.CreateEvent)
		admin.PUT("/events/:id", h.UpdateEvent)
		admin.POST("/events/:id/cancel", h.CancelEvent)
		admin.GET("/events/:id/registrations", h.EventRegistrations)
		admin.GET("/events/:id/attendance", h.EventAttendance)
		admin.GET("/events/:id/feedback", h.EventFeedback)

		admin.POST("/scan/start", h.ScanStart)
		admin.GET("/scan/status", h.ScanStatus)
		admin.POST("/scan/decode", h.ScanDecode)
		admin.POST("/scan/confirm", h.ScanConfirm)
		admin.POST("/scan/cancel", h.ScanCancel)
		admin.POST("/scan/reset", h.ScanReset)
		admin.POST("/scan/stop", h.ScanStop)
		admin.DELETE("/scan", h.ScanRelease)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
