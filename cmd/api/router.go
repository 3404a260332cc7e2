package main

import (
	"net/http"
	"time"

	"despacho_backend/internal/funnel/handler"
	"despacho_backend/platform/config"
	"despacho_backend/platform/db"
	"despacho_backend/platform/httpkit"
	"despacho_backend/platform/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func newRouter(cfg *config.Config, log *logger.Logger, pool *pgxpool.Pool, h *handler.Handler) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(log))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(cfg)))

	health := db.NewPoolAdapter(pool)
	engine.GET("/api/health", func(c *gin.Context) {
		if err := health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	h.RegisterRoutes(v1.Group("/funnel"))

	webhooks := v1.Group("/webhooks")
	webhooks.Use(httpkit.NewWebhookRateLimiter(log).RateLimit())
	h.RegisterWebhookRoutes(webhooks)

	return engine
}

func corsConfig(cfg config.HTTPConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	}
	return corsCfg
}
