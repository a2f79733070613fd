package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourorg/trading-engine/internal/client"
	"github.com/yourorg/trading-engine/internal/config"
	"github.com/yourorg/trading-engine/internal/handler"
	"github.com/yourorg/trading-engine/internal/middleware"
	"github.com/yourorg/trading-engine/internal/repository"
	"github.com/yourorg/trading-engine/internal/service"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Connect to database
	db, err := connectToDB(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	positionRepo := repository.NewPositionRepository(db, logger)
	tradeRepo := repository.NewTradeRepository(db, logger)
	sessionRepo := repository.NewSessionRepository(db, logger)

	// Initialize the venue client (market data + order execution)
	upbitClient := client.NewUpbitClient(
		cfg.Upbit.BaseURL,
		cfg.Upbit.AccessKey,
		cfg.Upbit.SecretKey,
		cfg.Upbit.Timeout,
		logger,
	)

	// Initialize services
	executionService := service.NewExecutionService(upbitClient, positionRepo, logger)
	tradingService := service.NewTradingService(
		upbitClient,
		executionService,
		upbitClient,
		positionRepo,
		tradeRepo,
		sessionRepo,
		service.SchedulerOptions{
			SymbolDelay:     cfg.Trading.SymbolDelay,
			CallTimeout:     cfg.Trading.CallTimeout,
			CandleCount:     cfg.Trading.CandleCount,
			MaxTickFailures: cfg.Trading.MaxTickFailures,
		},
		logger,
	)
	backtestService := service.NewBacktestService(upbitClient, logger)

	// Initialize handlers
	tradingHandler := handler.NewTradingHandler(tradingService, logger)
	backtestHandler := handler.NewBacktestHandler(backtestService, logger)

	// Set up HTTP server with Gin
	router := setupRouter(tradingHandler, backtestHandler, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func createLogger(level string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Create logger config
	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

func connectToDB(dbConfig config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.DBName,
		dbConfig.SSLMode,
	)

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(dbConfig.MaxOpenConns)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	return db, nil
}

func setupRouter(
	tradingHandler *handler.TradingHandler,
	backtestHandler *handler.BacktestHandler,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		trading := v1.Group("/trading")
		trading.Use(middleware.Identify(logger))
		{
			trading.POST("/start", tradingHandler.Start)
			trading.POST("/stop", tradingHandler.Stop)
			trading.GET("/status", tradingHandler.Status)
			trading.GET("/strategies", tradingHandler.Strategies)

			trading.GET("/positions", tradingHandler.Positions)
			trading.POST("/positions/close", tradingHandler.ClosePosition)

			trading.GET("/history", tradingHandler.History)

			trading.POST("/backtest", backtestHandler.Run)
		}
	}
	return router
}
