package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/reelcraft/api/internal/broadcast"
	"github.com/reelcraft/api/internal/client"
	"github.com/reelcraft/api/internal/config"
	"github.com/reelcraft/api/internal/handler"
	"github.com/reelcraft/api/internal/middleware"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/moderation"
	"github.com/reelcraft/api/internal/provider"
	"github.com/reelcraft/api/internal/service"
	"github.com/reelcraft/api/internal/store"
	ws "github.com/reelcraft/api/internal/websocket"
	"github.com/reelcraft/api/internal/worker"
	"github.com/reelcraft/api/internal/workflow"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("Failed to prepare directories: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize event broadcaster
	hub := broadcast.NewBroadcaster()

	// Initialize OpenAI client and pipeline providers. Mocks take over
	// when no API key is configured so local development works offline.
	openaiClient := client.NewOpenAIClient(&cfg.OpenAI)

	var (
		generator provider.SceneGenerator
		critic    provider.SceneCritic
		narrator  provider.Narrator
		assembler provider.Assembler
	)
	if openaiClient.IsConfigured() {
		generator = provider.NewOpenAISceneGenerator(openaiClient, cfg.Video.SceneCount, cfg.Video.TargetDuration)
		critic = provider.NewOpenAISceneCritic(openaiClient)
		narrator = provider.NewOpenAINarrator(openaiClient, cfg.OpenAI.Voice, cfg.Video.TempDir)
	} else {
		log.Println("OpenAI not configured, using mock providers")
		generator = &provider.MockSceneGenerator{SceneCount: cfg.Video.SceneCount, TargetDuration: cfg.Video.TargetDuration}
		critic = &provider.MockSceneCritic{}
		narrator = &provider.MockNarrator{TempDir: cfg.Video.TempDir}
	}

	ffmpeg := provider.NewFFmpegAssembler(cfg.Video.OutputDir, cfg.Video.Resolution)
	if ffmpeg.Available() {
		assembler = ffmpeg
	} else {
		log.Println("ffmpeg not found, using mock assembler")
		assembler = &provider.MockAssembler{OutputDir: cfg.Video.OutputDir}
	}

	engine := workflow.NewEngine(generator, critic, narrator, assembler)

	// Initialize store
	videoStore := store.NewRedisStore(redisClient)

	// Initialize R2 storage (optional artifact mirror)
	var storage client.ArtifactStorage
	if r2, err := client.NewR2Client(&cfg.R2); err != nil {
		log.Printf("Warning: R2 storage disabled: %v", err)
	} else if r2.IsConfigured() {
		storage = r2
	}

	// Initialize moderation
	moderator := moderation.NewChecker(openaiClient, cfg.OpenAI.ModerationMinScore)

	// Initialize services
	enqueuer := worker.NewAsynqEnqueuer(asynqClient)
	videoService := service.NewVideoService(videoStore, enqueuer, moderator, hub, storage, cfg.Video.OutputDir)

	// Initialize handlers
	videoHandler := handler.NewVideoHandler(videoService, validate)
	streamHandler := ws.NewStreamHandler(videoStore, hub)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if cfg.Server.LogLevel == "debug" {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${ip} ${bytesSent}b\n"
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "reelcraft-api",
			"status":  "ok",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := fiber.Map{"redis": "ok", "output_dir": "ok"}
		status := "healthy"
		if err := redisClient.Ping(c.Context()).Err(); err != nil {
			checks["redis"] = err.Error()
			status = "degraded"
		}
		if _, err := os.Stat(cfg.Video.OutputDir); err != nil {
			checks["output_dir"] = err.Error()
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	api.Get("/metrics", func(c *fiber.Ctx) error {
		videos, err := videoStore.List(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		counts := map[model.VideoStatus]int{}
		for _, v := range videos {
			counts[v.Status]++
		}
		return c.JSON(fiber.Map{
			"total":      len(videos),
			"pending":    counts[model.VideoStatusPending],
			"processing": counts[model.VideoStatusProcessing],
			"completed":  counts[model.VideoStatusCompleted],
			"failed":     counts[model.VideoStatusFailed],
		})
	})

	videos := api.Group("/videos")
	videos.Post("/", rateLimiter.SubmitLimit(cfg.RateLimit.SubmitPerHour), videoHandler.Create)
	videos.Get("/", videoHandler.List)
	videos.Get("/:videoId", videoHandler.Get)
	videos.Get("/:videoId/progress", videoHandler.Progress)
	videos.Get("/:videoId/download", videoHandler.Download)
	videos.Delete("/:videoId", videoHandler.Delete)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/videos/:videoId", websocket.New(func(c *websocket.Conn) {
		streamHandler.HandleConnection(c, c.Params("videoId"))
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, videoStore, engine, hub, storage)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, videoStore store.VideoStore, engine *workflow.Engine, hub *broadcast.Broadcaster, storage client.ArtifactStorage) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				worker.QueueVideo: 10,
			},
		},
	)

	videoWorker := worker.NewVideoWorker(videoStore, engine, hub, storage)

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TaskTypeVideoGenerate, videoWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
