package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DeRuina/timberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AmbientConfig configures the process's own diagnostic logger (console +
// rotated file). This logger carries the pipeline's internals; the family
// files written by LocalWriter carry the pipeline's payload.
type AmbientConfig struct {
	Level               string
	FilePath            string
	MaxSizeMB           int
	MaxBackups          int
	MaxAgeDays          int
	Compress            bool
	RotateIntervalHours int
}

func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

func customColorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var prefix, suffix string
	switch level {
	case zapcore.DebugLevel:
		prefix, suffix = "\x1b[35m", "\x1b[0m"
	case zapcore.InfoLevel:
		prefix, suffix = "\x1b[32m", "\x1b[0m"
	case zapcore.WarnLevel:
		prefix, suffix = "\x1b[33m", "\x1b[0m"
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		prefix, suffix = "\x1b[31m", "\x1b[0m"
	}
	enc.AppendString(prefix + "[" + level.CapitalString() + "]" + suffix)
}

// NewAmbientLogger builds the console+file zap logger. The file side rotates
// through timberjack; the console side is human-readable and colored.
func NewAmbientLogger(cfg AmbientConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] invalid ambient log level %q, defaulting to info: %v\n", cfg.Level, err)
		level = zapcore.InfoLevel
	}

	logDir := filepath.Dir(cfg.FilePath)
	if logDir != "." && logDir != "/" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory %s: %w", logDir, err)
		}
	}

	fileSyncer := zapcore.AddSync(&timberjack.Logger{
		Filename:         cfg.FilePath,
		MaxSize:          cfg.MaxSizeMB,
		MaxBackups:       cfg.MaxBackups,
		MaxAge:           cfg.MaxAgeDays,
		Compress:         cfg.Compress,
		LocalTime:        true,
		RotationInterval: time.Duration(cfg.RotateIntervalHours) * time.Hour,
	})

	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.EncodeLevel = customColorLevelEncoder
	consoleEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	fileEncoderCfg := zap.NewProductionEncoderConfig()
	fileEncoderCfg.EncodeLevel = customLevelEncoder
	fileEncoderCfg.TimeKey = "timestamp"
	fileEncoderCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	fileEncoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderCfg), zapcore.Lock(os.Stdout), level)
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderCfg), fileSyncer, level)

	logger := zap.New(zapcore.NewTee(consoleCore, fileCore),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	return logger, nil
}
