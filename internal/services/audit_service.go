package services

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/logging"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/repositories"
)

// AuditService owns the audit trail's compliance semantics: every write
// takes the immediate remote path (audit is never batched, keeping the
// window between a sensitive action and its durable record minimal), records
// are never updated in place, and retention is multi-year — rows leave the
// store only through the administrative deletion methods below, which are
// themselves audited.
type AuditService struct {
	pipeline *logging.Pipeline
	store    repositories.LogStore
	logger   *zap.Logger
}

func NewAuditService(pipeline *logging.Pipeline, store repositories.LogStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{pipeline: pipeline, store: store, logger: logger}
}

// Audit records one business action. Never raises, never blocks materially;
// actor identity, ip and user agent come from the ambient correlation
// context on ctx.
func (s *AuditService) Audit(ctx context.Context, action, resourceType, resourceID, result string, extra map[string]interface{}) {
	s.pipeline.Log(ctx, models.Record{
		Level:        logging.LevelInfo,
		Message:      fmt.Sprintf("%s %s/%s: %s", action, resourceType, resourceID, result),
		Layer:        "service",
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Result:       result,
		ExtraData:    extra,
	}, models.FamilyAudit)
}

// DeleteByID removes one audit record by exact identifier. The deletion is
// recorded as its own audit entry regardless of outcome.
func (s *AuditService) DeleteByID(ctx context.Context, id int64) (int64, error) {
	n, err := s.store.DeleteAuditByID(ctx, id)
	s.auditDeletion(ctx, strconv.FormatInt(id, 10), n, err)
	return n, err
}

// DeleteByAction removes every audit record carrying the given action name.
func (s *AuditService) DeleteByAction(ctx context.Context, action string) (int64, error) {
	n, err := s.store.DeleteAuditByAction(ctx, action)
	s.auditDeletion(ctx, action, n, err)
	return n, err
}

func (s *AuditService) auditDeletion(ctx context.Context, target string, deleted int64, err error) {
	result := "success"
	extra := map[string]interface{}{"deleted_count": deleted}
	if err != nil {
		result = "failure"
		extra["error"] = err.Error()
		s.logger.Error("audit deletion failed", zap.String("target", target), zap.Error(err))
	}
	s.Audit(ctx, "audit.delete", "audit_log", target, result, extra)
}
