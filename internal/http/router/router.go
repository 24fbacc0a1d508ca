// Package router assembles the gin engine from the application modules.
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apphttp "vies_checker/internal/http"
	"vies_checker/platform/httpkit"
	"vies_checker/platform/telemetry"
)

// New builds the engine: global middleware, health and metrics endpoints,
// then every module under /api/v1.
func New(app *apphttp.App) *gin.Engine {
	cfg := app.Config

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(cfg)))

	if cfg.IsMetricsEnabled() && app.Metrics != nil {
		engine.Use(telemetry.NewHTTPMetrics(app.Metrics).Middleware())
		engine.GET("/metrics", gin.WrapH(telemetry.Handler(app.Metrics)))
	}

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := httpkit.NewIPRateLimiter(rate.Limit(cfg.GetRateLimitRPS()), cfg.GetRateLimitBurst(), app.Logger)
	v1 := engine.Group("/api/v1")
	v1.Use(limiter.RateLimit())

	rc := &apphttp.RouterContext{Engine: engine, V1: v1}
	for _, m := range app.Modules {
		m.RegisterRoutes(rc)
		app.Logger.Debug("module routes registered", "module", m.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", httpkit.HeaderRequestID},
		ExposeHeaders: []string{httpkit.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		c.AllowAllOrigins = true
		return c
	}
	origins := cfg.GetCORSOrigins()
	if len(origins) == 0 {
		c.AllowOriginFunc = func(string) bool { return false }
		return c
	}
	c.AllowOrigins = origins
	return c
}
