package bootstrap

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/apperrors"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/config"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/correlation"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/handlers"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/logging"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/repositories"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/services"
)

// AppComponents holds the constructed pipeline and everything fronting it.
// Components are constructed once at process start and passed by reference;
// nothing here is a package-level singleton.
type AppComponents struct {
	Manager  *correlation.Manager
	Store    repositories.LogStore
	Local    *logging.LocalWriter
	Pipeline *logging.Pipeline
	Recorder *apperrors.Recorder

	AuditService    *services.AuditService
	LogQueryService *services.LogQueryService

	LogAdminHandler *handlers.LogAdminHandler
	AuditHandler    *handlers.AuditHandler
}

// InitializeAppComponents wires the telemetry pipeline bottom-up: store →
// local writer → remote writer → pipeline → recorder → services → handlers.
func InitializeAppComponents(cfg *config.Config, logger *zap.Logger, storeDB *sql.DB) (*AppComponents, error) {
	logger.Info("Initializing telemetry components...")

	var store repositories.LogStore
	switch cfg.LogStoreDriver {
	case "oracle":
		store = repositories.NewOracleStore(storeDB, logger)
	case "sqlite":
		store = repositories.NewSQLiteStore(storeDB, logger)
	default:
		return nil, fmt.Errorf("unsupported log store driver %q", cfg.LogStoreDriver)
	}

	local, err := logging.NewLocalWriter(logging.LocalConfig{
		Dir:          cfg.LogDir,
		MaxSizeBytes: int64(cfg.LocalMaxSizeMB) * 1024 * 1024,
		MaxBackups:   cfg.LocalMaxBackups,
		MinLevel:     cfg.LocalMinLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize local writer: %w", err)
	}

	remote := logging.NewRemoteWriter(logging.RemoteConfig{
		QueueCapacity: cfg.QueueCapacity,
		BatchSize:     cfg.BatchSize,
		BatchInterval: cfg.BatchInterval,
		MinLevel:      cfg.RemoteMinLevel,
		DrainTimeout:  cfg.DrainTimeout,
	}, store, local, logger)

	pipeline := logging.NewPipeline(cfg.Source, local, remote)
	recorder := apperrors.NewRecorder(pipeline, cfg.Source)
	manager := correlation.NewManager()

	auditService := services.NewAuditService(pipeline, store, logger)
	queryService := services.NewLogQueryService(store, logger)

	components := &AppComponents{
		Manager:         manager,
		Store:           store,
		Local:           local,
		Pipeline:        pipeline,
		Recorder:        recorder,
		AuditService:    auditService,
		LogQueryService: queryService,
		LogAdminHandler: handlers.NewLogAdminHandler(queryService, logger),
		AuditHandler:    handlers.NewAuditHandler(auditService, logger),
	}
	logger.Info("Telemetry components initialized.",
		zap.String("store", cfg.LogStoreDriver),
		zap.String("local_min_level", cfg.LocalMinLevel),
		zap.String("remote_min_level", cfg.RemoteMinLevel))
	return components, nil
}
