package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
)

// ErrStoreConnection marks failures attributable to the remote store being
// unreachable, as opposed to bad data. The remote writer uses it to decide
// what to count as a delivery failure versus a programming error.
var ErrStoreConnection = errors.New("log store connection error")

// ListFilter narrows the administrative listing. Zero values mean "no filter".
type ListFilter struct {
	Family   models.Family
	Level    string
	TraceID  string
	UserID   string
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// LogStore is the narrow contract this subsystem holds against the remote
// structured store: bulk insert for batched families, single insert for
// immediate families, and the read-only administrative surface plus the
// audit deletion path. Neither insert reports partial-row success.
type LogStore interface {
	Insert(ctx context.Context, family models.Family, rec models.Record) error
	InsertBatch(ctx context.Context, family models.Family, recs []models.Record) error
	List(ctx context.Context, filter ListFilter) ([]models.Record, int64, error)
	GetByID(ctx context.Context, family models.Family, id int64) (*models.Record, error)
	DeleteAuditByID(ctx context.Context, id int64) (int64, error)
	DeleteAuditByAction(ctx context.Context, action string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

var familyTables = map[models.Family]string{
	models.FamilyApplication: "tbl_app_log",
	models.FamilyError:       "tbl_error_log",
	models.FamilyAudit:       "tbl_audit_log",
	models.FamilyPerformance: "tbl_perf_log",
	models.FamilySystem:      "tbl_system_log",
}

var commonColumns = []string{
	"created_at", "source", "level", "message", "layer", "module",
	"function_name", "line_number", "file_path", "trace_id", "request_id",
	"user_id", "duration_ms", "extra_data",
}

var familyColumns = map[models.Family][]string{
	models.FamilyApplication: {"response_status", "request_method", "request_path"},
	models.FamilyError:       {"error_type", "error_code", "status_code", "stack_trace", "error_details"},
	models.FamilyAudit:       {"action", "resource_type", "resource_id", "result", "ip_address", "user_agent"},
	models.FamilyPerformance: {"metric_name", "metric_value", "metric_unit", "threshold_ms", "is_slow", "component_name"},
	models.FamilySystem:      {},
}

// dialect covers the two places Oracle and SQLite SQL diverge here:
// placeholder style and pagination syntax.
type dialect struct {
	name     string
	rebind   func(query string) string
	paginate func(query string) string
}

var sqliteDialect = dialect{
	name:     "sqlite",
	rebind:   func(q string) string { return q },
	paginate: func(q string) string { return q + " LIMIT ? OFFSET ?" },
}

var oracleDialect = dialect{
	name: "oracle",
	rebind: func(q string) string {
		var b strings.Builder
		n := 0
		for _, r := range q {
			if r == '?' {
				n++
				fmt.Fprintf(&b, ":%d", n)
				continue
			}
			b.WriteRune(r)
		}
		return b.String()
	},
	paginate: func(q string) string { return q + " OFFSET ? ROWS FETCH NEXT ? ROWS ONLY" },
}

// sqlLogStore implements LogStore over database/sql. The handle may be
// swapped after a reconnect, so access goes through an RWMutex.
type sqlLogStore struct {
	mu      sync.RWMutex
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

// NewOracleStore wraps an Oracle (godror) handle. The schema is owned by the
// portal's DBA scripts and assumed present.
func NewOracleStore(db *sql.DB, logger *zap.Logger) LogStore {
	return newSQLStore(db, oracleDialect, logger)
}

// NewSQLiteStore wraps a SQLite handle, the on-box store used in local and
// development environments. Table creation is handled by database.InitSQLite.
func NewSQLiteStore(db *sql.DB, logger *zap.Logger) LogStore {
	return newSQLStore(db, sqliteDialect, logger)
}

func newSQLStore(db *sql.DB, d dialect, logger *zap.Logger) *sqlLogStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sqlLogStore{db: db, dialect: d, logger: logger}
}

// SetDB swaps the underlying handle after a reconnect.
func (s *sqlLogStore) SetDB(db *sql.DB) {
	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
	s.logger.Info("log store DB handle updated", zap.String("dialect", s.dialect.name))
}

func (s *sqlLogStore) handle() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

func (s *sqlLogStore) Ping(ctx context.Context) error {
	db := s.handle()
	if db == nil {
		return fmt.Errorf("log store handle is nil: %w", ErrStoreConnection)
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("log store ping: %w: %w", err, ErrStoreConnection)
	}
	return nil
}

func (s *sqlLogStore) Close() error {
	db := s.handle()
	if db == nil {
		return nil
	}
	return db.Close()
}

func insertSQL(family models.Family) string {
	cols := append(append([]string{}, commonColumns...), familyColumns[family]...)
	marks := strings.Repeat("?,", len(cols))
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		familyTables[family], strings.Join(cols, ", "), marks[:len(marks)-1])
}

// insertArgs flattens a record into the column order of insertSQL.
func insertArgs(family models.Family, rec models.Record) []interface{} {
	var duration sql.NullFloat64
	if rec.DurationMS != nil {
		duration = sql.NullFloat64{Float64: *rec.DurationMS, Valid: true}
	}
	args := []interface{}{
		rec.CreatedAt, rec.Source, rec.Level, rec.Message, rec.Layer,
		rec.Module, rec.Function, rec.LineNumber, rec.FilePath, rec.TraceID,
		rec.RequestID, rec.UserID, duration, marshalMap(rec.ExtraData),
	}
	switch family {
	case models.FamilyApplication:
		args = append(args, rec.ResponseStatus, rec.RequestMethod, rec.RequestPath)
	case models.FamilyError:
		args = append(args, rec.ErrorType, rec.ErrorCode, rec.StatusCode,
			rec.StackTrace, marshalMap(rec.ErrorDetails))
	case models.FamilyAudit:
		args = append(args, rec.Action, rec.ResourceType, rec.ResourceID,
			rec.Result, rec.IPAddress, rec.UserAgent)
	case models.FamilyPerformance:
		args = append(args, rec.MetricName, rec.MetricValue, rec.MetricUnit,
			rec.ThresholdMS, boolToInt(rec.IsSlow), rec.ComponentName)
	}
	return args
}

func (s *sqlLogStore) Insert(ctx context.Context, family models.Family, rec models.Record) error {
	db := s.handle()
	if db == nil {
		return fmt.Errorf("log store handle is nil: %w", ErrStoreConnection)
	}
	query := s.dialect.rebind(insertSQL(family))
	if _, err := db.ExecContext(ctx, query, insertArgs(family, rec)...); err != nil {
		if isConnectionError(err) {
			return fmt.Errorf("%s insert into %s: %w: %w", s.dialect.name, familyTables[family], err, ErrStoreConnection)
		}
		return fmt.Errorf("%s insert into %s: %w", s.dialect.name, familyTables[family], err)
	}
	return nil
}

// InsertBatch writes the whole batch inside one transaction via a prepared
// statement, stopping at the first failure. The batch succeeds or fails as a
// unit; there is no per-record recovery.
func (s *sqlLogStore) InsertBatch(ctx context.Context, family models.Family, recs []models.Record) error {
	if len(recs) == 0 {
		return nil
	}
	db := s.handle()
	if db == nil {
		return fmt.Errorf("log store handle is nil: %w", ErrStoreConnection)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	err := db.PingContext(pingCtx)
	cancelPing()
	if err != nil {
		return fmt.Errorf("log store ping before batch: %w: %w", err, ErrStoreConnection)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		if isConnectionError(err) {
			return fmt.Errorf("begin batch tx: %w: %w", err, ErrStoreConnection)
		}
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(insertSQL(family)))
	if err != nil {
		if isConnectionError(err) {
			return fmt.Errorf("prepare batch insert: %w: %w", err, ErrStoreConnection)
		}
		return fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range recs {
		if _, err := stmt.ExecContext(ctx, insertArgs(family, rec)...); err != nil {
			s.logger.Error("batch insert aborted",
				zap.String("table", familyTables[family]),
				zap.Int("failed_index", i),
				zap.Error(err))
			if isConnectionError(err) {
				return fmt.Errorf("batch insert exec: %w: %w", err, ErrStoreConnection)
			}
			return fmt.Errorf("batch insert exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isConnectionError(err) {
			return fmt.Errorf("commit batch: %w: %w", err, ErrStoreConnection)
		}
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *sqlLogStore) List(ctx context.Context, filter ListFilter) ([]models.Record, int64, error) {
	db := s.handle()
	if db == nil {
		return nil, 0, fmt.Errorf("log store handle is nil: %w", ErrStoreConnection)
	}
	table, ok := familyTables[filter.Family]
	if !ok {
		return nil, 0, fmt.Errorf("unknown family %q", filter.Family)
	}

	where, args := buildWhere(filter)

	var total int64
	countQuery := s.dialect.rebind("SELECT COUNT(*) FROM " + table + where)
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", table, err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 50
	}
	offset := (page - 1) * size

	cols := append(append([]string{"id"}, commonColumns...), familyColumns[filter.Family]...)
	query := "SELECT " + strings.Join(cols, ", ") + " FROM " + table + where +
		" ORDER BY created_at DESC, id DESC"
	var pageArgs []interface{}
	if s.dialect.name == "oracle" {
		pageArgs = append(args, offset, size)
	} else {
		pageArgs = append(args, size, offset)
	}
	query = s.dialect.rebind(s.dialect.paginate(query))

	rows, err := db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows, filter.Family)
		if err != nil {
			s.logger.Error("skipping unreadable log row", zap.String("table", table), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate %s rows: %w", table, err)
	}
	return out, total, nil
}

func (s *sqlLogStore) GetByID(ctx context.Context, family models.Family, id int64) (*models.Record, error) {
	db := s.handle()
	if db == nil {
		return nil, fmt.Errorf("log store handle is nil: %w", ErrStoreConnection)
	}
	table, ok := familyTables[family]
	if !ok {
		return nil, fmt.Errorf("unknown family %q", family)
	}
	cols := append(append([]string{"id"}, commonColumns...), familyColumns[family]...)
	query := s.dialect.rebind("SELECT " + strings.Join(cols, ", ") + " FROM " + table + " WHERE id = ?")
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get %s by id: %w", table, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	rec, err := scanRecord(rows, family)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *sqlLogStore) DeleteAuditByID(ctx context.Context, id int64) (int64, error) {
	return s.deleteAudit(ctx, "WHERE id = ?", id)
}

func (s *sqlLogStore) DeleteAuditByAction(ctx context.Context, action string) (int64, error) {
	return s.deleteAudit(ctx, "WHERE action = ?", action)
}

func (s *sqlLogStore) deleteAudit(ctx context.Context, where string, arg interface{}) (int64, error) {
	db := s.handle()
	if db == nil {
		return 0, fmt.Errorf("log store handle is nil: %w", ErrStoreConnection)
	}
	query := s.dialect.rebind("DELETE FROM tbl_audit_log " + where)
	res, err := db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, fmt.Errorf("delete audit records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func buildWhere(filter ListFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if filter.Level != "" {
		clauses = append(clauses, "level = ?")
		args = append(args, filter.Level)
	}
	if filter.TraceID != "" {
		clauses = append(clauses, "trace_id = ?")
		args = append(args, filter.TraceID)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, filter.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanRecord(rows *sql.Rows, family models.Family) (models.Record, error) {
	var rec models.Record
	var createdAt sql.NullTime
	var layer, module, function, filePath, traceID, requestID, userID sql.NullString
	var lineNumber sql.NullInt64
	var duration sql.NullFloat64
	var extraData sql.NullString

	dest := []interface{}{
		&rec.ID, &createdAt, &rec.Source, &rec.Level, &rec.Message, &layer,
		&module, &function, &lineNumber, &filePath, &traceID, &requestID,
		&userID, &duration, &extraData,
	}

	var errorType, errorCode, stackTrace, errorDetails sql.NullString
	var statusCode, responseStatus, isSlow sql.NullInt64
	var action, resourceType, resourceID, result, ipAddress, userAgent sql.NullString
	var metricName, metricUnit, componentName sql.NullString
	var metricValue, thresholdMS sql.NullFloat64
	var requestMethod, requestPath sql.NullString

	switch family {
	case models.FamilyApplication:
		dest = append(dest, &responseStatus, &requestMethod, &requestPath)
	case models.FamilyError:
		dest = append(dest, &errorType, &errorCode, &statusCode, &stackTrace, &errorDetails)
	case models.FamilyAudit:
		dest = append(dest, &action, &resourceType, &resourceID, &result, &ipAddress, &userAgent)
	case models.FamilyPerformance:
		dest = append(dest, &metricName, &metricValue, &metricUnit, &thresholdMS, &isSlow, &componentName)
	}

	if err := rows.Scan(dest...); err != nil {
		return rec, err
	}

	if createdAt.Valid {
		rec.CreatedAt = createdAt.Time.UTC()
	}
	rec.Layer = layer.String
	rec.Module = module.String
	rec.Function = function.String
	rec.LineNumber = int(lineNumber.Int64)
	rec.FilePath = filePath.String
	rec.TraceID = traceID.String
	rec.RequestID = requestID.String
	rec.UserID = userID.String
	if duration.Valid {
		d := duration.Float64
		rec.DurationMS = &d
	}
	rec.ExtraData = unmarshalMap(extraData.String)

	switch family {
	case models.FamilyApplication:
		rec.ResponseStatus = int(responseStatus.Int64)
		rec.RequestMethod = requestMethod.String
		rec.RequestPath = requestPath.String
	case models.FamilyError:
		rec.ErrorType = errorType.String
		rec.ErrorCode = errorCode.String
		rec.StatusCode = int(statusCode.Int64)
		rec.StackTrace = stackTrace.String
		rec.ErrorDetails = unmarshalMap(errorDetails.String)
	case models.FamilyAudit:
		rec.Action = action.String
		rec.ResourceType = resourceType.String
		rec.ResourceID = resourceID.String
		rec.Result = result.String
		rec.IPAddress = ipAddress.String
		rec.UserAgent = userAgent.String
	case models.FamilyPerformance:
		rec.MetricName = metricName.String
		rec.MetricValue = metricValue.Float64
		rec.MetricUnit = metricUnit.String
		rec.ThresholdMS = thresholdMS.Float64
		rec.IsSlow = isSlow.Int64 != 0
		rec.ComponentName = componentName.String
	}
	return rec, nil
}

func marshalMap(m map[string]interface{}) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf(`{"marshal_error": %q}`, err.Error())
	}
	return string(b)
}

func unmarshalMap(s string) map[string]interface{} {
	if s == "" || s == "{}" {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isConnectionError decides whether a driver error should be treated as a
// connectivity failure, using the same string matching the portal has
// relied on against its Oracle installation.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, ErrStoreConnection) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, marker := range []string{
		"ora-03113", "ora-03114", "ora-125", "connection refused",
		"network error", "i/o error", "broken pipe", "reset by peer",
		"timeout", "database is locked",
	} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}
