package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"sellerops/internal/config"
	"sellerops/internal/crypto"
	"sellerops/internal/database"
	"sellerops/internal/dispatch"
	"sellerops/internal/handlers"
	"sellerops/internal/ids"
	"sellerops/internal/logging"
	"sellerops/internal/middleware"
	"sellerops/internal/services"
	"sellerops/internal/store"
	"sellerops/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting SellerOps Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Printf("📋 Configuration loaded (Port: %s, Environment: %s)", cfg.Port, cfg.Environment)

	// MongoDB is the primary store
	log.Println("🔗 Connecting to MongoDB...")
	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close(context.Background())

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mongoDB.Initialize(initCtx); err != nil {
		log.Printf("⚠️ Failed to initialize MongoDB indexes: %v", err)
	}
	cancel()

	gen := ids.UUID{}
	var st store.Store = store.NewMongo(mongoDB, gen)

	// Optional SQL mirror of execution records
	if cfg.DatabaseURL != "" {
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to audit database: %v", err)
		}
		defer db.Close()
		if err := db.Initialize(); err != nil {
			log.Fatalf("❌ Failed to initialize audit database: %v", err)
		}
		st = store.NewSQLAudit(st, db)
		log.Printf("✅ Execution audit mirror enabled (%s)", db.Driver)
	} else {
		log.Println("⚠️ DATABASE_URL not set - execution audit mirror disabled")
	}

	healthChecks := map[string]handlers.HealthCheck{
		"mongodb": mongoDB.Ping,
	}

	// Optional Redis for task change events
	var publisher services.Publisher = services.NopPublisher{}
	if cfg.RedisURL != "" {
		redisService, err := services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (task events disabled)", err)
		} else {
			defer redisService.Close()
			publisher = services.NewRedisPublisher(redisService, cfg.InstanceID)
			healthChecks["redis"] = redisService.Ping
		}
	} else {
		log.Println("⚠️ REDIS_URL not set - task events disabled")
	}

	var cipher *crypto.CredentialCipher
	if cfg.EncryptionMasterKey != "" {
		cipher, err = crypto.NewCredentialCipher(cfg.EncryptionMasterKey)
		if err != nil {
			log.Fatalf("❌ Failed to initialize credential encryption: %v", err)
		}
		log.Println("✅ Credential encryption initialized")
	}

	tokens, err := auth.NewTokenAuth(cfg.JWTSecret, cfg.AccessTokenExpiry)
	if err != nil {
		log.Fatalf("❌ Failed to initialize token auth: %v", err)
	}

	metrics := services.InitMetrics()
	taskService := services.NewTaskService(st, gen, publisher, metrics)
	configService := services.NewBlockConfigService(st, cipher, services.NewConfigCache(cfg.BlockConfigCacheTTL), metrics)
	dispatcher := dispatch.NewDispatcher(configService, st, dispatch.DefaultTable(),
		dispatch.WithObserver(metrics),
		dispatch.WithPublisher(publisher),
	)
	log.Printf("✅ Block dispatcher ready (%d functional implementations)", len(dispatch.DefaultTable().Keys()))

	app := fiber.New(fiber.Config{
		AppName:      "SellerOps v1.0",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    20 * 1024 * 1024, // uploaded sheets and documents arrive base64 encoded
	})

	app.Use(recover.New())
	app.Use(logger.New())

	if cfg.MetricsEnabled {
		prometheus := fiberprometheus.New("sellerops")
		prometheus.RegisterAt(app, "/metrics")
		app.Use(prometheus.Middleware)
		log.Println("📊 Prometheus metrics endpoint enabled at /metrics")
	}

	rateLimitConfig := middleware.NewRateLimitConfig(cfg.RateLimitGlobal, cfg.RateLimitDispatch, cfg.Environment == "development")
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	log.Printf("🛡️  [RATE-LIMIT] Global=%d/min, Dispatch=%d/min", rateLimitConfig.GlobalAPIMax, rateLimitConfig.DispatchMax)

	handlers.Register(app, handlers.Handlers{
		Flows:  handlers.NewFlowHandler(taskService),
		Tasks:  handlers.NewTaskHandler(taskService),
		Blocks: handlers.NewBlockHandler(configService, dispatcher, st),
		Health: handlers.NewHealthHandler(healthChecks),
	}, tokens, rateLimitConfig)

	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
