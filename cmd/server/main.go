package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/config"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/gate"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/handler"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/middleware"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/logger"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/repository"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/service"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/vault"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/venue"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 0. Initialize Logger
	_ = godotenv.Load()
	logger.Init("info")

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Persistence
	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer db.Close()
	logger.Info("✅ Record store ready")

	// Balance Cache (Redis > SQL)
	var cacheRepo gate.Repo
	if cfg.Redis.Addr != "" {
		redisRepo, err := repository.NewRedisCacheRepo(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			cacheRepo = redisRepo
		} else {
			logger.Error("⚠️ Failed to connect to Redis, caching in the record store", "error", err)
		}
	}
	if cacheRepo == nil {
		cacheRepo = repository.NewSQLCacheRepo(db)
	}

	// 3. Initialize Core Services
	cipher, err := vault.NewCipher(cfg.Vault.MasterKey)
	if err != nil {
		log.Fatalf("Failed to initialize credential cipher: %v", err)
	}
	credReader := vault.NewReader(repository.NewSQLCredentialRepo(db), cipher)
	sessionRepo := repository.NewSQLSessionRepo(db)

	adapters := []venue.Adapter{
		venue.NewBinanceAdapter(cfg.Venue(venue.Binance).BaseURL),
		venue.NewKrakenAdapter(cfg.Venue(venue.Kraken).BaseURL),
		venue.NewCoinbaseAdapter(cfg.Venue(venue.Coinbase).BaseURL),
		venue.NewCapitalAdapter(cfg.Venue(venue.Capital).BaseURL),
	}

	cacheGate := gate.New(cacheRepo, cfg)
	aggregator := service.NewAggregator(credReader, cacheGate, adapters, sessionRepo, cfg)

	// 4. Initialize Handlers
	balanceHandler := handler.NewBalanceHandler(aggregator)

	// 5. Setup Router
	r := gin.Default()

	// Global Middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	// Health Check
	r.GET("/health", handler.Health)

	// Metrics Endpoint
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API V1 Routes
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	v1.Use(middleware.RateLimitMiddleware(cfg.Auth.UserQPS, cfg.Auth.UserBurst))
	{
		v1.GET("/balances", balanceHandler.GetBalances)
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 Balance aggregator started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("Server exiting")
}
