// Package handlers implements the HTTP endpoints of the API server.
package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/amaumene/tvarr/internal/controllers"
	"github.com/amaumene/tvarr/internal/models"
)

// ShowManager manages the tracked show catalog
type ShowManager interface {
	AddShow(ctx context.Context, req controllers.AddShowRequest) (*models.TrackedShow, error)
	SetShowStatus(id uint64, status models.ShowStatus) (*models.TrackedShow, error)
	RemoveShow(id uint64) error
	GetTrackedShows() ([]*models.TrackedShow, error)
}

// RangeDownloader runs season range acquisitions
type RangeDownloader interface {
	DownloadSeasonRange(ctx context.Context, showID uint64, season, start, end int) (*controllers.CheckResult, error)
}

// AutoChecker reports whether the recurring check is enabled
type AutoChecker interface {
	AutoCheck() bool
}

// CheckRunner triggers check cycles and toggles the recurring check
type CheckRunner interface {
	AutoChecker
	CheckNow(ctx context.Context) (*controllers.CheckResult, error)
	SetAutoCheck(enabled bool) error
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrShowNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, controllers.ErrInvalidShow), errors.Is(err, controllers.ErrInvalidRange):
		return fiber.StatusBadRequest
	case errors.Is(err, controllers.ErrShowExists),
		errors.Is(err, controllers.ErrCycleInProgress),
		errors.Is(err, controllers.ErrRangeInProgress):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(errorStatus(err)).JSON(ErrorResponse{Error: err.Error()})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: message})
}

func paramID(c *fiber.Ctx, name string) (uint64, error) {
	return strconv.ParseUint(c.Params(name), 10, 64)
}
