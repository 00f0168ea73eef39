package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"parkgrid-backend/internal/api"
	"parkgrid-backend/internal/audit"
	"parkgrid-backend/internal/auth"
	"parkgrid-backend/internal/authz"
	"parkgrid-backend/internal/config"
	"parkgrid-backend/internal/groups"
	"parkgrid-backend/internal/store"
	"parkgrid-backend/internal/users"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, db: %s:%d/%s)", cfg.Server.Port, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// 3. Bootstrap system tables
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap system tables: %v", err)
	}
	log.Println("System tables ready")

	// 4. Audit sink
	var recorder audit.Recorder = audit.Noop{}
	if cfg.Audit.Enabled {
		buffer := audit.NewBuffer(db.Pool, cfg.Audit.BufferSize, cfg.Audit.FlushIntervalMs)
		defer buffer.Stop()
		recorder = buffer
	}

	// 5. Services: catalog is built once and handed to the engine
	catalog := authz.NewCatalog()
	userService := users.NewService(db)
	groupService := groups.NewService(groups.NewPGStore(db), recorder)
	engine := authz.NewEngine(catalog, groupService, userService)

	// 6. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 7. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 8. Auth routes (registered before the auth middleware)
	authHandler := auth.NewAuthHandler(db, cfg.JWTSecret)
	auth.RegisterAuthRoutes(app, authHandler)

	// 9. Middleware for protected routes
	authMW := auth.Middleware(cfg.JWTSecret)
	adminOrOperator := auth.RequireUserTypes(authz.UserTypeOperator)

	// 10. Group administration (admin/operator)
	groupHandler := groups.NewHandler(groupService, engine)
	groups.RegisterRoutes(app, groupHandler, authMW, adminOrOperator)

	// 11. Authorization surface (all authenticated users)
	authzHandler := api.NewAuthzHandler(engine, catalog)
	api.RegisterAuthzRoutes(app, authzHandler, authMW)

	// 12. Dashboard reads (admin/operator)
	dashboardHandler := api.NewDashboardHandler(db, catalog)
	api.RegisterDashboardRoutes(app, dashboardHandler, authMW, adminOrOperator)

	usersHandler := api.NewUsersHandler(userService)
	api.RegisterUserRoutes(app, usersHandler, authMW, adminOrOperator)

	// 13. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Listen(addr))
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	var appErr *api.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(api.ErrorResponse{Error: appErr})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(code).JSON(api.ErrorResponse{
		Error: api.NewAppError("INTERNAL_ERROR", code, "Internal server error"),
	})
}
