package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds all configuration for the telemetry service.
type Config struct {
	AppEnv  string
	AppName string
	Port    string
	Source  string // origin-system tag stamped on every record

	CORSAllowOrigins string
	CORSAllowMethods string
	CORSAllowHeaders string
	JWTSecret        string

	// Remote store selection: "oracle" in production, "sqlite" on-box.
	LogStoreDriver   string
	OracleConnString string
	OracleMaxOpen    int
	OracleMaxIdle    int
	OracleLifetime   time.Duration
	OracleIdleTime   time.Duration
	SQLiteDBPath     string

	// Local rotating family files.
	LogDir          string
	LocalMaxSizeMB  int
	LocalMaxBackups int
	LocalMinLevel   string

	// Request recording.
	SlowThresholdMS float64

	// Batched remote writer.
	RemoteMinLevel string
	QueueCapacity  int
	BatchSize      int
	BatchInterval  time.Duration
	DrainTimeout   time.Duration

	// Ambient (process diagnostic) logger.
	LogLevel          string
	LogFilePath       string
	LogMaxSize        int // MB
	LogMaxBackups     int
	LogMaxAge         int // days
	LogCompress       bool
	LogRotateInterval int // hours
}

// LoadConfig reads configuration from environment variables or a .env file
// matching APP_ENV. The logger may be nil during early startup.
func LoadConfig(logger *zap.Logger) (*Config, error) {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "local"
	}

	envFileName := fmt.Sprintf(".env.%s", appEnv)
	if _, err := os.Stat(envFileName); err == nil {
		if err := godotenv.Load(envFileName); err != nil && logger != nil {
			logger.Warn("Error loading .env file, continuing with environment variables",
				zap.String("file", envFileName), zap.Error(err))
		}
	} else if appEnv == "local" {
		if _, err := os.Stat(".env.local"); err == nil {
			if err := godotenv.Load(".env.local"); err != nil && logger != nil {
				logger.Warn("Error loading .env.local file", zap.Error(err))
			}
		}
	}

	cfg := &Config{
		AppEnv:  getEnv("APP_ENV", "local"),
		AppName: getEnv("APP_NAME", "gangwon-portal-telemetry"),
		Port:    getEnv("PORT", "3000"),
		Source:  getEnv("LOG_SOURCE", "gangwon-portal"),

		JWTSecret: getEnv("JWT_SECRET", "default-secret"),

		LogStoreDriver:   strings.ToLower(getEnv("LOG_STORE_DRIVER", "sqlite")),
		OracleConnString: getEnv("ORACLE_CONN_STRING", ""),
		OracleMaxOpen:    getEnvAsInt("ORACLE_MAX_POOL_OPEN_CONNS", 20),
		OracleMaxIdle:    getEnvAsInt("ORACLE_MAX_POOL_IDLE_CONNS", 5),
		OracleLifetime:   time.Duration(getEnvAsInt("ORACLE_MAX_POOL_CONN_LIFETIME_MINUTES", 60)) * time.Minute,
		OracleIdleTime:   time.Duration(getEnvAsInt("ORACLE_MAX_POOL_CONN_IDLE_TIME_MINUTES", 10)) * time.Minute,
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./logs/logs.db"),

		LogDir:          getEnv("LOG_DIR", "./logs"),
		LocalMaxSizeMB:  getEnvAsInt("LOCAL_LOG_MAX_SIZE_MB", 10),
		LocalMaxBackups: getEnvAsInt("LOCAL_LOG_MAX_BACKUPS", 5),
		LocalMinLevel:   strings.ToUpper(getEnv("LOCAL_LOG_MIN_LEVEL", "DEBUG")),

		SlowThresholdMS: float64(getEnvAsInt("SLOW_REQUEST_THRESHOLD_MS", 1000)),

		RemoteMinLevel: strings.ToUpper(getEnv("REMOTE_LOG_MIN_LEVEL", "INFO")),
		QueueCapacity:  getEnvAsInt("REMOTE_QUEUE_CAPACITY", 10000),
		BatchSize:      getEnvAsInt("REMOTE_BATCH_SIZE", 100),
		BatchInterval:  time.Duration(getEnvAsInt("REMOTE_BATCH_INTERVAL_SECONDS", 5)) * time.Second,
		DrainTimeout:   time.Duration(getEnvAsInt("REMOTE_DRAIN_TIMEOUT_SECONDS", 10)) * time.Second,

		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFilePath:       getEnv("LOG_FILE_PATH", "./logs/app.log"),
		LogMaxSize:        getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups:     getEnvAsInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:         getEnvAsInt("LOG_MAX_AGE", 30),
		LogCompress:       getEnvAsBool("LOG_COMPRESS", false),
		LogRotateInterval: getEnvAsInt("LOG_ROTATE_INTERVAL", 24),

		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", func() string {
			if getEnv("APP_ENV", "local") == "local" || getEnv("APP_ENV", "local") == "development" {
				return "*"
			}
			return ""
		}()),
		CORSAllowMethods: getEnv("CORS_ALLOW_METHODS", "GET,POST,HEAD,PUT,DELETE,PATCH"),
		CORSAllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Type,Accept,Authorization,X-Trace-ID"),
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.LogLevel] {
		if logger != nil {
			logger.Warn("Invalid LOG_LEVEL specified, defaulting to 'info'", zap.String("invalidLevel", cfg.LogLevel))
		}
		cfg.LogLevel = "info"
	}

	switch cfg.LogStoreDriver {
	case "sqlite":
	case "oracle":
		if cfg.OracleConnString == "" {
			if logger != nil {
				logger.Error("ORACLE_CONN_STRING is not set but LOG_STORE_DRIVER is oracle")
			}
			return nil, fmt.Errorf("ORACLE_CONN_STRING is required when LOG_STORE_DRIVER=oracle")
		}
	default:
		return nil, fmt.Errorf("unsupported LOG_STORE_DRIVER %q (want sqlite or oracle)", cfg.LogStoreDriver)
	}

	if cfg.JWTSecret == "default-secret" && logger != nil {
		logger.Warn("JWT_SECRET is using the default value. Set a strong secret in production.")
	}
	if cfg.AppEnv != "local" && cfg.AppEnv != "development" && (cfg.CORSAllowOrigins == "*" || cfg.CORSAllowOrigins == "") {
		if logger != nil {
			logger.Warn("CORS_ALLOW_ORIGINS is '*' or empty in a non-local environment.")
		}
		return nil, fmt.Errorf("CORS_ALLOW_ORIGINS must be set explicitly in production environments")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
