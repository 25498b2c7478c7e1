package api

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/codyseavey/gameradar/internal/api/handlers"
	"github.com/codyseavey/gameradar/internal/metrics"
	"github.com/codyseavey/gameradar/internal/middleware"
)

// RouterConfig carries what the router needs beyond the handlers
type RouterConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
}

// NewRouter builds the gin engine with middleware and all routes
func NewRouter(cfg RouterConfig, games *handlers.GamesHandler, status *handlers.StatusHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if gin.Mode() == gin.DebugMode {
		router.Use(gin.Logger())
	}
	router.Use(middleware.RequestID(cfg.Logger))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	router.Use(metrics.HTTPMetrics())

	router.GET("/health", status.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiGroup := router.Group("/api")
	if cfg.RateLimiter != nil && cfg.RateLimiter.Enabled() {
		apiGroup.Use(cfg.RateLimiter.Middleware())
	}
	{
		apiGroup.GET("/status", status.GetStatus)

		gameRoutes := apiGroup.Group("/games")
		gameRoutes.GET("/search", games.SearchGames)
		gameRoutes.GET("/:gameId", games.GetGame)
		gameRoutes.GET("/:gameId/history", games.GetPriceHistory)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
			break
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
