package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/config"
)

// One table per record family. The audit table is append-only by policy;
// rows leave it only through the administrative deletion path, and its
// retention is measured in years (no TTL, no auto-expiry).
var createLogTablesSQL = []string{
	`CREATE TABLE IF NOT EXISTS tbl_app_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	source TEXT NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	layer TEXT, module TEXT, function_name TEXT, line_number INTEGER,
	file_path TEXT, trace_id TEXT, request_id TEXT, user_id TEXT,
	duration_ms REAL, extra_data TEXT,
	response_status INTEGER, request_method TEXT, request_path TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS tbl_error_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	source TEXT NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	layer TEXT, module TEXT, function_name TEXT, line_number INTEGER,
	file_path TEXT, trace_id TEXT, request_id TEXT, user_id TEXT,
	duration_ms REAL, extra_data TEXT,
	error_type TEXT, error_code TEXT, status_code INTEGER,
	stack_trace TEXT, error_details TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS tbl_audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	source TEXT NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	layer TEXT, module TEXT, function_name TEXT, line_number INTEGER,
	file_path TEXT, trace_id TEXT, request_id TEXT, user_id TEXT,
	duration_ms REAL, extra_data TEXT,
	action TEXT NOT NULL, resource_type TEXT, resource_id TEXT,
	result TEXT, ip_address TEXT, user_agent TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS tbl_perf_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	source TEXT NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	layer TEXT, module TEXT, function_name TEXT, line_number INTEGER,
	file_path TEXT, trace_id TEXT, request_id TEXT, user_id TEXT,
	duration_ms REAL, extra_data TEXT,
	metric_name TEXT, metric_value REAL, metric_unit TEXT,
	threshold_ms REAL, is_slow INTEGER, component_name TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS tbl_system_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	source TEXT NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	layer TEXT, module TEXT, function_name TEXT, line_number INTEGER,
	file_path TEXT, trace_id TEXT, request_id TEXT, user_id TEXT,
	duration_ms REAL, extra_data TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_app_log_trace ON tbl_app_log (trace_id);`,
	`CREATE INDEX IF NOT EXISTS idx_error_log_trace ON tbl_error_log (trace_id);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_action ON tbl_audit_log (action);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_user ON tbl_audit_log (user_id);`,
}

// InitSQLite opens the on-box log store and ensures the family tables exist,
// creating the directory path if necessary.
func InitSQLite(cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	logger.Info("Initializing SQLite log store...", zap.String("path", cfg.SQLiteDBPath))

	dbDir := filepath.Dir(cfg.SQLiteDBPath)
	if dbDir != "." && dbDir != "/" {
		if _, err := os.Stat(dbDir); os.IsNotExist(err) {
			if err := os.MkdirAll(dbDir, 0o755); err != nil {
				logger.Error("Failed to create SQLite directory", zap.String("path", dbDir), zap.Error(err))
				return nil, fmt.Errorf("create sqlite db directory %s: %w", dbDir, err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("stat sqlite db directory %s: %w", dbDir, err)
		}
	}

	// WAL keeps concurrent reads from the admin surface cheap while the
	// writers append.
	db, err := sql.Open("sqlite3", cfg.SQLiteDBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		logger.Error("Failed to open SQLite log store", zap.Error(err))
		return nil, fmt.Errorf("open sqlite database at %s: %w", cfg.SQLiteDBPath, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	for _, stmt := range createLogTablesSQL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			logger.Error("Failed to create log table", zap.Error(err))
			return nil, fmt.Errorf("create sqlite log tables: %w", err)
		}
	}

	logger.Info("SQLite log store initialized", zap.String("path", cfg.SQLiteDBPath))
	return db, nil
}
