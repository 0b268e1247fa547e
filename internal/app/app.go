package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/apperrors"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/bootstrap"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/config"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/database"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/logging"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/middleware"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/routes"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/utils"
)

// Run initializes and starts the telemetry service.
func Run() {
	initAppStartTime := time.Now()

	// --- 1. Load Configuration ---
	tempConfigLogger, _ := zap.NewProduction(zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	defer tempConfigLogger.Sync()

	cfg, err := config.LoadConfig(tempConfigLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- 2. Initialize Ambient Logger ---
	logger, err := logging.NewAmbientLogger(logging.AmbientConfig{
		Level:               cfg.LogLevel,
		FilePath:            cfg.LogFilePath,
		MaxSizeMB:           cfg.LogMaxSize,
		MaxBackups:          cfg.LogMaxBackups,
		MaxAgeDays:          cfg.LogMaxAge,
		Compress:            cfg.LogCompress,
		RotateIntervalHours: cfg.LogRotateInterval,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// --- 3. Trace Config Details ---
	utils.TraceConfigDetails(logger, cfg)

	// --- 4. Initialize the Remote Log Store Database ---
	var storeDB *sql.DB
	switch cfg.LogStoreDriver {
	case "oracle":
		storeDB, err = database.InitOracle(cfg, logger)
	default:
		storeDB, err = database.InitSQLite(cfg, logger)
	}
	if err != nil {
		logger.Fatal("Failed to initialize log store database",
			zap.String("driver", cfg.LogStoreDriver), zap.Error(err))
	}

	// --- 5. Initialize Application Components (Bootstrap) ---
	components, err := bootstrap.InitializeAppComponents(cfg, logger, storeDB)
	if err != nil {
		logger.Fatal("Failed to initialize application components", zap.Error(err))
	}

	// --- 6. Initialize Fiber App ---
	logger.Info("Initializing Fiber application...")
	appFiber := fiber.New(fiber.Config{
		AppName: cfg.AppName,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Every handler error funnels through the exception recorder;
			// classification decides the family and level of the record.
			components.Recorder.Record(c.UserContext(), err, map[string]interface{}{
				"path":   c.Path(),
				"method": c.Method(),
				"ip":     c.IP(),
			})

			code := fiber.StatusInternalServerError
			var ae *apperrors.AppError
			var fe *fiber.Error
			switch {
			case errors.As(err, &ae):
				code = ae.HTTPStatus
			case errors.As(err, &fe):
				code = fe.Code
			}

			resp := fiber.Map{"error": "An unexpected error occurred"}
			if code < fiber.StatusInternalServerError {
				resp["error"] = err.Error()
			} else if cfg.AppEnv != "production" {
				resp["detail"] = err.Error()
			}
			return c.Status(code).JSON(resp)
		},
	})

	// --- 7. Register Middleware ---
	appFiber.Use(recover.New(recover.Config{
		EnableStackTrace: strings.ToLower(cfg.LogLevel) == "debug",
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			middleware.GetRequestLogger(c).Error("Panic recovered", zap.Any("panic_value", e))
		},
	}))
	logger.Info("Configuring CORS",
		zap.String("origins", cfg.CORSAllowOrigins),
		zap.String("methods", cfg.CORSAllowMethods),
		zap.String("headers", cfg.CORSAllowHeaders))
	appFiber.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: cfg.CORSAllowMethods,
		AllowHeaders: cfg.CORSAllowHeaders,
	}))
	appFiber.Use(middleware.Correlation(components.Manager, logger))
	appFiber.Use(fiberzap.New(fiberzap.Config{
		Logger: logger,
		Fields: []string{"status", "method", "url", "ip", "latency", "error"},
		FieldsFunc: func(c *fiber.Ctx) []zap.Field {
			fields := []zap.Field{zap.String("log_type", "access")}
			if rc := middleware.GetRequestContext(c); rc != nil {
				fields = append(fields,
					zap.String("trace_id", rc.TraceID),
					zap.String("request_id", rc.RequestID))
			}
			return fields
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
	}))
	appFiber.Use(middleware.RequestRecorder(components.Pipeline, cfg.SlowThresholdMS))

	// --- 8. Setup Application Routes ---
	routes.SetupRoutes(appFiber, cfg, logger, components)

	// --- 9. Start Server & Graceful Shutdown ---
	serverCtx, cancelServerCtx := context.WithCancel(context.Background())
	defer cancelServerCtx()
	serverStopped := make(chan struct{})

	initAppDurationMs := time.Since(initAppStartTime).Milliseconds()

	go func() {
		defer close(serverStopped)
		listenAddr := ":" + cfg.Port
		logger.Info(fmt.Sprintf("Completed initialization in %d ms.", initAppDurationMs))
		logger.Info("Starting Fiber server...",
			zap.String("address", listenAddr),
			zap.Int("pid", os.Getpid()),
			zap.String("app_env", cfg.AppEnv),
			zap.String("store_driver", cfg.LogStoreDriver),
		)
		if err := appFiber.Listen(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server listener failed", zap.String("address", listenAddr), zap.Error(err))
			cancelServerCtx()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	select {
	case s := <-sig:
		logger.Info("Shutdown signal received.", zap.String("signal", s.String()))
	case <-serverCtx.Done():
		logger.Info("Server context cancelled, initiating shutdown.")
	}

	// Shutdown order matters: stop accepting requests first, then drain the
	// pipeline's queues, then release the store and the logger.
	logger.Info("Initiating graceful shutdown...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancelShutdown()

	if err := appFiber.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Fiber server shutdown failed", zap.Error(err))
	} else {
		logger.Info("Fiber server gracefully stopped.")
	}
	<-serverStopped

	components.Pipeline.Close()
	stats := components.Pipeline.Remote().Snapshot()
	logger.Info("Telemetry pipeline stopped.",
		zap.Int64("remote_failures", stats.RemoteFailures),
		zap.Int64("discarded_on_shutdown", stats.Discarded))

	if err := components.Store.Close(); err != nil {
		logger.Error("Error closing log store", zap.Error(err))
	} else {
		logger.Info("Log store closed.")
	}

	if errSync := logger.Sync(); errSync != nil {
		errMsg := errSync.Error()
		if !strings.Contains(errMsg, "handle is invalid") && !strings.Contains(errMsg, "sync /dev/stdout") {
			fmt.Fprintf(os.Stderr, "[WARN] Error syncing logger: %v\n", errSync)
		}
	}
	fmt.Println("[INFO] Application shutdown complete.")
}
