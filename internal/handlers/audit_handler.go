package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/middleware"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/pkg/validation"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/services"
)

// AuditHandler fronts the narrow administrative deletion path of the audit
// trail. Both endpoints run behind Protected + RequireAdmin.
type AuditHandler struct {
	audit  *services.AuditService
	logger *zap.Logger
}

func NewAuditHandler(audit *services.AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// DeleteByID handles DELETE /admin/audit/:id.
func (h *AuditHandler) DeleteByID(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid audit record id",
		})
	}

	n, err := h.audit.DeleteByID(c.UserContext(), int64(id))
	if err != nil {
		middleware.GetRequestLogger(c).Error("audit deletion by id failed",
			zap.Int("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete audit record",
		})
	}
	if n == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Audit record not found",
		})
	}
	return c.JSON(fiber.Map{"deleted": n})
}

type bulkDeleteRequest struct {
	Action string `json:"action" validate:"required,min=1,max=200"`
}

// DeleteByAction handles DELETE /admin/audit (bulk by action name).
func (h *AuditHandler) DeleteByAction(c *fiber.Ctx) error {
	var req bulkDeleteRequest
	if !validation.ParseAndValidate(c, &req) {
		return nil
	}

	n, err := h.audit.DeleteByAction(c.UserContext(), req.Action)
	if err != nil {
		middleware.GetRequestLogger(c).Error("bulk audit deletion failed",
			zap.String("action", req.Action), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete audit records",
		})
	}
	return c.JSON(fiber.Map{"deleted": n, "action": req.Action})
}
