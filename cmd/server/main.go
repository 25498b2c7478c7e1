package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/gameradar/internal/api"
	"github.com/codyseavey/gameradar/internal/api/handlers"
	"github.com/codyseavey/gameradar/internal/cache"
	"github.com/codyseavey/gameradar/internal/config"
	"github.com/codyseavey/gameradar/internal/database"
	"github.com/codyseavey/gameradar/internal/logging"
	"github.com/codyseavey/gameradar/internal/middleware"
	"github.com/codyseavey/gameradar/internal/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	gin.SetMode(cfg.GinMode)

	backend, closeBackend, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	priceCache := cache.NewInstrumented(backend)

	steam := services.NewSteamService(services.SteamConfig{
		BaseURL:        cfg.SteamBaseURL,
		Language:       cfg.SteamLanguage,
		DetailsCountry: cfg.SteamDetailsCountry,
		UserAgent:      cfg.UserAgent,
		Timeout:        cfg.UpstreamTimeout,
		CacheTTL:       cfg.CacheTTL,
	}, priceCache)
	location := services.NewLocationService(cfg.GeolocationURL, cfg.GeolocationTimeout, cfg.DefaultCountry, cfg.UserAgent)
	games := services.NewGameService(location, cfg.UpstreamTimeout, steam)

	// The janitor sees the raw backend so it can reach PurgeExpired and DB()
	janitor := services.NewCacheJanitor(backend, cfg.CachePurgeInterval)
	go janitor.Start(ctx)

	router := api.NewRouter(api.RouterConfig{
		Logger:         log,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	},
		handlers.NewGamesHandler(games),
		handlers.NewStatusHandler(janitor, backend.Name()),
	)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", server.Addr, "cache_backend", backend.Name())
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("error starting server: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("server gracefully stopped")
	return nil
}

// openCache picks the cache backend from config. An unreachable Redis falls
// back to memory so the API keeps serving without a cache server.
func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	switch cfg.CacheBackend() {
	case "redis":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		client, err := cache.DialRedis(dialCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Warn("redis unavailable, using in-memory cache", "addr", cfg.RedisAddr, "error", err)
			return cache.NewMemoryCache(), func() {}, nil
		}
		slog.Info("using redis cache", "addr", cfg.RedisAddr)
		return cache.NewRedisCache(client, cache.DefaultKeyPrefix), func() {
			if err := client.Close(); err != nil {
				slog.Warn("closing redis client", "error", err)
			}
		}, nil

	case "sqlite":
		logLevel := logger.Silent
		if logging.ParseLevel(cfg.LogLevel) == slog.LevelDebug {
			logLevel = logger.Info
		}
		db, err := database.Open(cfg.CacheDBPath, logLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache database %s: %w", cfg.CacheDBPath, err)
		}
		return cache.NewSQLCache(db), func() {
			if err := database.Close(db); err != nil {
				slog.Warn("closing cache database", "error", err)
			}
		}, nil

	default:
		slog.Info("using in-memory cache")
		return cache.NewMemoryCache(), func() {}, nil
	}
}
