package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abraxas-365/relay/pkg/config"
	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

func main() {
	// 1. Initialize Logger
	logLevel := os.Getenv("LOG_LEVEL")
	switch logLevel {
	case "debug":
		logx.SetLevel(logx.LevelDebug)
	case "warn":
		logx.SetLevel(logx.LevelWarn)
	case "error":
		logx.SetLevel(logx.LevelError)
	default:
		logx.SetLevel(logx.LevelInfo)
	}

	logx.Info("🚀 Starting Relay API Server...")

	// 2. Configuration and Dependency Container
	cfg := config.Load()
	if cfg.Auth.JWT.SecretKey == "" {
		logx.Fatal("JWT_SECRET is required")
	}

	container := NewContainer(cfg)
	defer container.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	container.StartBackgroundServices(ctx)

	// 3. Create Fiber App with Config
	app := fiber.New(fiber.Config{
		AppName:               "Relay API",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler(cfg.Server.Debug),
		BodyLimit:             1 * 1024 * 1024,
		IdleTimeout:           120 * time.Second,
	})

	// 4. Global Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: cfg.Server.CORSOrigins != "*",
		ExposeHeaders:    "X-Request-ID",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${respHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	// 5. Health Check & Info Endpoints
	app.Get("/health", healthCheckHandler(container))
	app.Get("/", infoHandler(cfg))

	// 6. Register Routes
	// /auth/passwordless/*, /auth/logout, /auth/me, /api/v1/onboarding/company
	container.IAM.AuthHandlers.RegisterRoutes(app)
	logx.Info("✓ Auth routes registered")

	// 7. 404 Handler
	app.Use(notFoundHandler)

	// 8. Print Route Summary
	printRouteSummary()

	// 9. Start Server with Graceful Shutdown
	startServer(app, cfg.Server.Port, cancel)
}

// ============================================================================
// Handler Functions
// ============================================================================

// healthCheckHandler reports database and Redis reachability.
func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		health := fiber.Map{
			"status":  "healthy",
			"service": "relay-api",
			"version": container.Config.Server.AppVersion,
		}

		if err := container.DB.PingContext(ctx); err != nil {
			health["db"] = "unhealthy"
			health["db_error"] = err.Error()
			health["status"] = "degraded"
		} else {
			health["db"] = "healthy"
		}

		if err := container.Redis.Ping(ctx).Err(); err != nil {
			health["redis"] = "unhealthy"
			health["redis_error"] = err.Error()
			health["status"] = "degraded"
		} else {
			health["redis"] = "healthy"
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(health)
	}
}

// infoHandler returns basic API information
func infoHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":     "Relay API",
			"version":     cfg.Server.AppVersion,
			"description": "Passwordless employer signup and login",
			"endpoints": fiber.Map{
				"signup":  "POST /auth/passwordless/signup",
				"login":   "POST /auth/passwordless/login",
				"verify":  "POST /auth/passwordless/verify",
				"resend":  "POST /auth/passwordless/resend",
				"state":   "GET /auth/passwordless/state",
				"logout":  "POST /auth/logout",
				"me":      "GET /auth/me",
				"company": "POST /api/v1/onboarding/company",
				"health":  "GET /health",
			},
		})
	}
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success":    false,
		"message":    "The requested endpoint does not exist",
		"error_code": "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
	})
}

// ============================================================================
// Error Handler
// ============================================================================

// globalErrorHandler converts errors escaping a handler to the response envelope.
func globalErrorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID := c.GetRespHeader(fiber.HeaderXRequestID)

		logx.WithFields(logx.Fields{
			"path":       c.Path(),
			"method":     c.Method(),
			"ip":         c.IP(),
			"request_id": requestID,
			"user_agent": c.Get(fiber.HeaderUserAgent),
		}).Errorf("Request error: %v", err)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"success":    false,
				"message":    fe.Message,
				"error_code": "HTTP_ERROR",
				"request_id": requestID,
			})
		}

		var xe *errx.Error
		if errx.As(err, &xe) {
			response := fiber.Map{
				"success":    false,
				"message":    xe.Message,
				"error_code": xe.Code,
				"request_id": requestID,
			}
			if len(xe.Details) > 0 {
				response["details"] = xe.Details
			}
			if debug && xe.Err != nil {
				response["underlying_error"] = xe.Err.Error()
			}
			return c.Status(xe.HTTPStatus).JSON(response)
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":    false,
			"message":    "An unexpected error occurred",
			"error_code": "INTERNAL_ERROR",
			"request_id": requestID,
		})
	}
}

// ============================================================================
// Utility Functions
// ============================================================================

// printRouteSummary prints a summary of registered routes
func printRouteSummary() {
	logx.Info("📋 Route Summary:")
	logx.Info("   ├─ Auth: /auth/passwordless/*, /auth/logout, /auth/me")
	logx.Info("   ├─ Onboarding: /api/v1/onboarding/company")
	logx.Info("   └─ Health: /health")
}

// startServer starts the server with graceful shutdown
func startServer(app *fiber.App, port string, stopBackground context.CancelFunc) {
	go func() {
		logx.Info("=" + repeatString("=", 60))
		logx.Infof("🚀 Server listening on port %s", port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", port)
		logx.Info("=" + repeatString("=", 60))

		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	gracefulShutdown(app, stopBackground)
}

// gracefulShutdown handles graceful server shutdown
func gracefulShutdown(app *fiber.App, stopBackground context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logx.Infof("🛑 Received signal: %v", sig)
	logx.Info("Shutting down gracefully...")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}
	stopBackground()

	logx.Info("✅ Server exited successfully")
}
