package handlers

import (
	"database/sql"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/logging"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/middleware"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/pkg/validation"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/repositories"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/services"
)

// LogAdminHandler serves the administrative query surface over the remote
// store. Everything here is read-only; only the audit handler deletes.
type LogAdminHandler struct {
	query  *services.LogQueryService
	logger *zap.Logger
}

func NewLogAdminHandler(query *services.LogQueryService, logger *zap.Logger) *LogAdminHandler {
	return &LogAdminHandler{query: query, logger: logger}
}

type listLogsQuery struct {
	Family   string `query:"family" validate:"required,oneof=application error audit performance system"`
	Level    string `query:"level" validate:"omitempty,oneof=DEBUG INFO WARNING WARN ERROR CRITICAL"`
	TraceID  string `query:"trace_id"`
	UserID   string `query:"user_id"`
	From     string `query:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To       string `query:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=500"`
}

// List handles GET /admin/logs.
func (h *LogAdminHandler) List(c *fiber.Ctx) error {
	var q listLogsQuery
	if !validation.ParseQueryAndValidate(c, &q) {
		return nil
	}

	filter := repositories.ListFilter{
		Family:   models.Family(q.Family),
		Level:    logging.Normalize(q.Level),
		TraceID:  q.TraceID,
		UserID:   q.UserID,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if q.Level == "" {
		filter.Level = ""
	}
	if q.From != "" {
		filter.From, _ = time.Parse(time.RFC3339, q.From)
	}
	if q.To != "" {
		filter.To, _ = time.Parse(time.RFC3339, q.To)
	}

	records, total, err := h.query.List(c.UserContext(), filter)
	if err != nil {
		middleware.GetRequestLogger(c).Error("log listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to query log store",
		})
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 50
	}
	return c.JSON(fiber.Map{
		"items":     records,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}

// Detail handles GET /admin/logs/:family/:id.
func (h *LogAdminHandler) Detail(c *fiber.Ctx) error {
	family := models.Family(c.Params("family"))
	if !family.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown log family",
		})
	}
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid log id",
		})
	}

	rec, err := h.query.Get(c.UserContext(), family, int64(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Log record not found",
			})
		}
		middleware.GetRequestLogger(c).Error("log detail lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to query log store",
		})
	}
	return c.JSON(rec)
}
