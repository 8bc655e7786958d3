package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"shrimp-trace/internal/cache"
	"shrimp-trace/internal/handler"
	"shrimp-trace/internal/middleware"
	"shrimp-trace/internal/model"
	"shrimp-trace/internal/repository"
	"shrimp-trace/internal/service"
	"shrimp-trace/internal/traceability"
	"shrimp-trace/internal/ws"
	"shrimp-trace/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// 2. Setup Database
	db := database.ConnectDB()
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// 3. Seed default operator
	seedOperator(db)

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Trace cache (optional)
	var traceCache service.TraceCache
	if url := os.Getenv("REDIS_URL"); url != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		client, err := cache.Connect(ctx, url)
		cancel()
		if err != nil {
			log.Printf("Warning: trace cache disabled: %v", err)
		} else {
			tc := cache.NewTraceCache(client, cache.DefaultPrefix, envDuration("TRACE_CACHE_TTL", cache.DefaultTTL))
			defer tc.Close()
			traceCache = tc
			log.Println("Trace cache connected")
		}
	}

	// 6. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	requestRepo := repository.NewPurchaseRequestRepo(db)
	packageRepo := repository.NewPackageRepo(db)
	companyRepo := repository.NewCompanyRepo(db)
	operatorRepo := repository.NewOperatorRepo(db)
	statsRepo := repository.NewStatsRepo(db)
	movementRepo := repository.NewMovementRepo(db)

	ledger := service.NewInventoryLedger(productRepo, movementRepo, envDuration("LEDGER_LOCK_TIMEOUT", service.DefaultLockTimeout))

	authService := service.NewAuthService(companyRepo, operatorRepo)
	companyService := service.NewCompanyService(companyRepo)
	productService := service.NewProductService(db, productRepo, ledger, traceCache, wsHub)
	requestService := service.NewPurchaseRequestService(requestRepo, productService, wsHub)
	packageService := service.NewPackageService(service.PackageServiceConfig{
		DB:        db,
		Ledger:    ledger,
		Products:  productRepo,
		Requests:  requestRepo,
		Packages:  packageRepo,
		Companies: companyRepo,
		Renderer:  traceability.NewQREncoder(),
		Cache:     traceCache,
		Hub:       wsHub,
	})
	dashService := service.NewDashboardService(statsRepo)

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Company:   handler.NewCompanyHandler(companyService),
		Product:   handler.NewProductHandler(productService),
		Request:   handler.NewRequestHandler(requestService),
		Package:   handler.NewPackageHandler(packageService),
		Dashboard: handler.NewDashboardHandler(dashService),
	}

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Shrimp Trace v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 8. Routes
	handler.RegisterRoutes(app, handlers, authService)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	}, middleware.RequireAuth(authService))
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 9. Graceful Shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}

// seedOperator creates the default operator account if it doesn't exist
func seedOperator(db *gorm.DB) {
	operatorRepo := repository.NewOperatorRepo(db)

	email := strings.ToLower(os.Getenv("ADMIN_EMAIL"))
	if email == "" {
		email = "admin@example.com"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	if _, err := operatorRepo.FindByEmail(email); err == nil {
		return
	}

	op := &model.Operator{
		Email:    email,
		FullName: "Platform Operator",
		IsActive: true,
	}
	op.CreatedBy = "system"
	op.UpdatedBy = "system"

	if err := op.SetPassword(password); err != nil {
		log.Printf("Warning: Failed to hash operator password: %v", err)
		return
	}

	if err := operatorRepo.Create(op); err != nil {
		log.Printf("Warning: Failed to create operator: %v", err)
	} else {
		log.Printf("Operator created: %s", email)
	}
}
