package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/feedback-insight/backend/internal/api/handlers"
	"github.com/feedback-insight/backend/internal/cache/redis"
	"github.com/feedback-insight/backend/internal/chat"
	"github.com/feedback-insight/backend/internal/feedback"
	"github.com/feedback-insight/backend/internal/metrics"
	"github.com/feedback-insight/backend/internal/middleware/ratelimit"
	"github.com/feedback-insight/backend/internal/middleware/security"
	"github.com/feedback-insight/backend/internal/python"
	"github.com/feedback-insight/backend/internal/storage/sqlite"
	"github.com/feedback-insight/backend/pkg/config"
	appLogger "github.com/feedback-insight/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Feedback Insight API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var cacheClient *redis.Client
	if cfg.Redis.Enabled {
		cacheClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, analysis caching disabled", zap.Error(err))
			cacheClient = nil
		} else {
			defer cacheClient.Close()
		}
	}

	// The Python runtime is probed once; a miss degrades upload and
	// analyze but the server still starts so health can report it.
	runtime, _ := python.Discover(cfg.Python.Candidates)
	runner := python.NewRunner(runtime)

	feedbackSvc := feedback.NewService(runner, sqliteClient, cacheClient, feedback.Config{
		SplitScript:   cfg.Python.SplitScript,
		AnalyzeScript: cfg.Python.AnalyzeScript,
		InstructorDir: cfg.Storage.InstructorDir,
		CacheTTL:      time.Duration(cfg.Redis.CacheTTL) * time.Second,
	})

	var llmClient *chat.Client
	if cfg.LLM.APIKey != "" {
		llmClient = chat.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	} else {
		appLogger.Warn("No LLM API key configured, chat runs on keyword fallback only")
	}
	chatSvc := chat.NewService(llmClient, sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 120,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	authHandler := handlers.NewAuthHandler(cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackSvc, cfg.Storage.UploadDir, cfg.Storage.MaxUploadBytes)
	exportHandler := handlers.NewExportHandler()
	chatHandler := handlers.NewChatHandler(chatSvc)
	wsHandler := handlers.NewWebSocketHandler(chatSvc)

	api := app.Group("/api")

	api.Post("/login", authHandler.Login)
	api.Post("/upload", feedbackHandler.Upload)
	api.Post("/analyze-instructor", feedbackHandler.Analyze)
	api.Get("/health", feedbackHandler.Health)
	api.Get("/history", feedbackHandler.History)
	api.Post("/download-report", exportHandler.DownloadReport)
	api.Post("/download-csv", exportHandler.DownloadCSV)
	api.Post("/chat", chatHandler.Chat)

	api.Use("/chat/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/chat/ws", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
