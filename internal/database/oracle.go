package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/godror/godror" // Oracle driver
	"go.uber.org/zap"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/config"
)

// InitOracle opens the Oracle connection pool for the remote log store. The
// handle is returned even when the initial ping fails: database/sql
// establishes connections lazily and the remote writer already tolerates an
// unreachable store.
func InitOracle(cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	logger.Info("Initializing Oracle log store connection pool...")

	db, err := sql.Open("godror", cfg.OracleConnString)
	if err != nil {
		logger.Error("Failed to open Oracle connection pool", zap.Error(err))
		return nil, fmt.Errorf("configure oracle connection pool: %w", err)
	}

	db.SetMaxOpenConns(cfg.OracleMaxOpen)
	db.SetMaxIdleConns(cfg.OracleMaxIdle)
	db.SetConnMaxLifetime(cfg.OracleLifetime)
	db.SetConnMaxIdleTime(cfg.OracleIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.PingContext(ctx)
	cancel()
	if err != nil {
		logger.Warn("Initial Oracle ping failed, pool created but connection may establish later", zap.Error(err))
		return db, nil
	}

	logger.Info("Oracle log store pool initialized.")
	return db, nil
}
