package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/langextract/backend/internal/api/handlers"
	"github.com/langextract/backend/internal/app"
	"github.com/langextract/backend/internal/metrics"
	"github.com/langextract/backend/internal/middleware/ratelimit"
	"github.com/langextract/backend/internal/middleware/security"
	"github.com/langextract/backend/internal/middleware/validation"
	"github.com/langextract/backend/pkg/config"
	appLogger "github.com/langextract/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(appLogger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting langextract API server",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
	)

	metrics.Init()

	ctx := context.Background()
	stack, err := app.New(ctx, cfg)
	if err != nil {
		appLogger.Fatal("Failed to build extraction stack", zap.Error(err))
	}
	defer stack.Close(ctx)

	checks := map[string]handlers.Check{
		"model": stack.LLM.Ping,
	}
	if stack.Cache != nil {
		checks["redis"] = stack.Cache.Ping
	}
	if stack.History != nil {
		checks["sqlite"] = stack.History.Ping
	}
	if stack.Graph != nil {
		checks["neo4j"] = stack.Graph.Ping
	}

	var runStore handlers.RunStore
	if stack.History != nil {
		runStore = stack.History
	}

	temperature := float64(cfg.LLM.Temperature)
	metaHandler := handlers.NewMetaHandler(stack.LLM.ProviderName(), stack.LLM.DefaultModel(), checks)
	extractHandler := handlers.NewExtractHandler(stack.Processor, temperature)
	analyzeHandler := handlers.NewAnalyzeHandler(stack.Processor, temperature)
	runsHandler := handlers.NewRunsHandler(runStore)
	wsHandler := handlers.NewWebSocketHandler(stack.Processor, temperature)

	rateLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer rateLimiter.Stop()

	validate := validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	})

	server := fiber.New(fiber.Config{
		AppName:      "langextract",
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	server.Use(recover.New())
	server.Use(requestid.New())
	server.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	server.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Client-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	server.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: strings.Split(cfg.Server.AllowOrigins, ","),
		IsDevelopment:  cfg.Logging.Level == "debug",
	}))

	server.Get("/metrics", metrics.MetricsHandler())

	api := server.Group("/api/v1")

	api.Get("/health", metaHandler.Health)
	api.Get("/ready", metaHandler.Ready)
	api.Get("/schemas", metaHandler.Schemas)
	api.Get("/domains", metaHandler.Domains)

	limit := rateLimiter.Middleware()
	api.Post("/extract", limit, validate, extractHandler.Extract)
	api.Post("/analyze", limit, validate, analyzeHandler.Analyze)
	api.Post("/report", limit, validate, extractHandler.Report)

	api.Get("/runs", runsHandler.List)
	api.Get("/runs/stats", runsHandler.Stats)
	api.Get("/runs/:id", runsHandler.Get)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws/analyze", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := server.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := server.ShutdownWithTimeout(30 * time.Second); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
