package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/tvarr/internal/models"
)

// StatusHandler handles status requests
type StatusHandler struct {
	db     *models.Database
	checks AutoChecker
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, checks AutoChecker, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		checks: checks,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalShows    int            `json:"total_shows"`
	Active        int            `json:"active"`
	Paused        int            `json:"paused"`
	TotalGrabs    int            `json:"total_grabs"`
	GrabsByStatus map[string]int `json:"grabs_by_status"`
	GrabsBySource map[string]int `json:"grabs_by_source"`
	AutoCheck     bool           `json:"auto_check"`
}

// Get handles the status endpoint
func (h *StatusHandler) Get(c *fiber.Ctx) error {
	shows, err := h.db.GetAllShows()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get shows")
		return fiber.ErrInternalServerError
	}

	grabs, err := h.db.GetAllGrabs()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get grabs")
		return fiber.ErrInternalServerError
	}

	response := StatusResponse{
		TotalShows:    len(shows),
		TotalGrabs:    len(grabs),
		GrabsByStatus: make(map[string]int),
		GrabsBySource: make(map[string]int),
		AutoCheck:     h.checks.AutoCheck(),
	}

	for _, show := range shows {
		switch show.Status {
		case models.ShowStatusActive:
			response.Active++
		case models.ShowStatusPaused:
			response.Paused++
		}
	}

	for _, grab := range grabs {
		response.GrabsByStatus[string(grab.Status)]++
		response.GrabsBySource[string(grab.Source)]++
	}

	return c.JSON(response)
}
