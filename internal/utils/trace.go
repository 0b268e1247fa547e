package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/config"
)

// TraceConfigDetails dumps the effective configuration at debug level with
// secrets masked.
func TraceConfigDetails(logger *zap.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	fields := []zapcore.Field{
		zap.String("AppEnv", cfg.AppEnv),
		zap.String("AppName", cfg.AppName),
		zap.String("Port", cfg.Port),
		zap.String("Source", cfg.Source),
		zap.String("JWTSecret", MaskSecret(cfg.JWTSecret)),
		zap.String("LogStoreDriver", cfg.LogStoreDriver),
		zap.String("OracleConnString", MaskOracleConnString(cfg.OracleConnString)),
		zap.Int("OracleMaxOpen", cfg.OracleMaxOpen),
		zap.Int("OracleMaxIdle", cfg.OracleMaxIdle),
		zap.String("SQLiteDBPath", cfg.SQLiteDBPath),
		zap.String("LogDir", cfg.LogDir),
		zap.Int("LocalMaxSizeMB", cfg.LocalMaxSizeMB),
		zap.Int("LocalMaxBackups", cfg.LocalMaxBackups),
		zap.String("LocalMinLevel", cfg.LocalMinLevel),
		zap.String("RemoteMinLevel", cfg.RemoteMinLevel),
		zap.Int("QueueCapacity", cfg.QueueCapacity),
		zap.Int("BatchSize", cfg.BatchSize),
		zap.Duration("BatchInterval", cfg.BatchInterval),
		zap.Duration("DrainTimeout", cfg.DrainTimeout),
		zap.String("AmbientLogLevel", cfg.LogLevel),
		zap.String("AmbientLogFile", cfg.LogFilePath),
		zap.String("CORS_AllowOrigins", cfg.CORSAllowOrigins),
	}
	logger.Debug("Loaded telemetry service configuration", fields...)
}
