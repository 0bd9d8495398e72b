package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/tvarr/internal/controllers"
	"github.com/amaumene/tvarr/internal/models"
)

// ShowsHandler serves the tracked show catalog and season range acquisitions
type ShowsHandler struct {
	shows  ShowManager
	ranges RangeDownloader
	logger *logrus.Logger
}

// NewShowsHandler creates a new shows handler
func NewShowsHandler(shows ShowManager, ranges RangeDownloader, logger *logrus.Logger) *ShowsHandler {
	return &ShowsHandler{
		shows:  shows,
		ranges: ranges,
		logger: logger,
	}
}

// UpdateShowRequest is the body of PATCH /api/shows/:id
type UpdateShowRequest struct {
	Status models.ShowStatus `json:"status"`
}

// SeasonRangeRequest is the body of a season range download
type SeasonRangeRequest struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// List returns every tracked show
func (h *ShowsHandler) List(c *fiber.Ctx) error {
	shows, err := h.shows.GetTrackedShows()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list shows")
		return respondError(c, err)
	}
	return c.JSON(shows)
}

// Create starts tracking a show
func (h *ShowsHandler) Create(c *fiber.Ctx) error {
	var req controllers.AddShowRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	show, err := h.shows.AddShow(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(show)
}

// Update switches a show between active and paused
func (h *ShowsHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "invalid show id")
	}

	var req UpdateShowRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	show, err := h.shows.SetShowStatus(id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(show)
}

// Delete stops tracking a show
func (h *ShowsHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "invalid show id")
	}

	if err := h.shows.RemoveShow(id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DownloadSeason fetches an episode range of one season. The request blocks until
// the range completes or times out.
func (h *ShowsHandler) DownloadSeason(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "invalid show id")
	}
	season, err := c.ParamsInt("season")
	if err != nil {
		return badRequest(c, "invalid season")
	}

	var req SeasonRangeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	result, err := h.ranges.DownloadSeasonRange(c.UserContext(), id, season, req.Start, req.End)
	if err != nil {
		if result != nil {
			return c.Status(errorStatus(err)).JSON(result)
		}
		return respondError(c, err)
	}
	return c.JSON(result)
}
