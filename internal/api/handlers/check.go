package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// CheckHandler triggers check cycles and toggles the recurring check
type CheckHandler struct {
	checks CheckRunner
	logger *logrus.Logger
}

// NewCheckHandler creates a new check handler
func NewCheckHandler(checks CheckRunner, logger *logrus.Logger) *CheckHandler {
	return &CheckHandler{
		checks: checks,
		logger: logger,
	}
}

// AutoCheckRequest is the body of PUT /api/autocheck
type AutoCheckRequest struct {
	Enabled *bool `json:"enabled"`
}

// Check runs one check cycle. A cycle already in flight is reported as a conflict.
func (h *CheckHandler) Check(c *fiber.Ctx) error {
	result, err := h.checks.CheckNow(c.UserContext())
	if err != nil {
		h.logger.WithError(err).Warn("Manual check did not complete")
		if result != nil {
			return c.Status(errorStatus(err)).JSON(result)
		}
		return respondError(c, err)
	}
	return c.JSON(result)
}

// SetAutoCheck enables or disables the recurring check
func (h *CheckHandler) SetAutoCheck(c *fiber.Ctx) error {
	var req AutoCheckRequest
	if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
		return badRequest(c, "enabled is required")
	}

	if err := h.checks.SetAutoCheck(*req.Enabled); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"auto_check": h.checks.AutoCheck()})
}
