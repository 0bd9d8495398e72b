package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/tvarr/internal/models"
)

// ErrShowExists is returned when a show with the same name is already tracked
var ErrShowExists = errors.New("show already tracked")

// ErrInvalidShow is returned for a malformed show request
var ErrInvalidShow = errors.New("invalid show request")

// AddShowRequest describes a show to start tracking. Season and Episode seed the
// watermark explicitly; when nil it is seeded from the catalog.
type AddShowRequest struct {
	Name      string `json:"name"`
	Season    *int   `json:"season,omitempty"`
	Episode   *int   `json:"episode,omitempty"`
	CatalogID int    `json:"catalog_id,omitempty"`
}

// ShowController manages the tracked show catalog
type ShowController struct {
	shows    *ShowCatalog
	catalog  CatalogService
	airDates *AirDateController
	logger   *logrus.Logger
}

// NewShowController creates a new show controller
func NewShowController(shows *ShowCatalog, catalog CatalogService, airDates *AirDateController, logger *logrus.Logger) *ShowController {
	return &ShowController{
		shows:    shows,
		catalog:  catalog,
		airDates: airDates,
		logger:   logger,
	}
}

// AddShow starts tracking a show, caught up to the latest aired episode unless a
// watermark is given. Catalog failures are not fatal: the show is tracked without
// air dates.
func (c *ShowController) AddShow(ctx context.Context, req AddShowRequest) (*models.TrackedShow, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidShow)
	}
	if req.Season != nil && *req.Season < 1 {
		return nil, fmt.Errorf("%w: season must be at least 1", ErrInvalidShow)
	}
	if req.Episode != nil && *req.Episode < 0 {
		return nil, fmt.Errorf("%w: episode must not be negative", ErrInvalidShow)
	}

	// Checked again on create; this only spares the catalog lookups
	if _, err := c.shows.GetByName(name); err == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrShowExists)
	} else if !errors.Is(err, models.ErrShowNotFound) {
		return nil, fmt.Errorf("failed to check existing shows: %w", err)
	}

	show := &models.TrackedShow{
		Name:           name,
		CatalogID:      req.CatalogID,
		CurrentSeason:  1,
		CurrentEpisode: 0,
		Status:         models.ShowStatusActive,
	}

	if show.CatalogID == 0 {
		if found, err := c.catalog.LookupShow(ctx, name); err != nil {
			c.logger.WithError(err).WithField("name", name).Warn("Show not resolved in catalog, air dates unavailable")
		} else {
			show.CatalogID = found.ID
		}
	}

	switch {
	case req.Season != nil:
		show.CurrentSeason = *req.Season
		if req.Episode != nil {
			show.CurrentEpisode = *req.Episode
		}
	case show.CatalogID != 0:
		latest, err := c.catalog.GetLatestAiredEpisode(ctx, show.CatalogID)
		if err != nil {
			c.logger.WithError(err).WithField("catalog_id", show.CatalogID).Debug("No aired episode found, starting from the beginning")
		} else {
			show.CurrentSeason = latest.Season
			show.CurrentEpisode = latest.Number
		}
	}

	c.airDates.Refresh(ctx, show)

	if err := c.shows.CreateUnique(show); err != nil {
		if errors.Is(err, ErrShowExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create show: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"show_id":    show.ID,
		"name":       show.Name,
		"catalog_id": show.CatalogID,
		"watermark":  show.Watermark(),
		"air_date":   show.NextEpisodeAirDate,
	}).Info("Tracking show")

	return show, nil
}

// SetShowStatus switches a show between active and paused
func (c *ShowController) SetShowStatus(id uint64, status models.ShowStatus) (*models.TrackedShow, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidShow, status)
	}

	show, err := c.shows.Update(id, func(show *models.TrackedShow) error {
		show.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"show_id": id,
		"status":  status,
	}).Info("Show status changed")
	return show, nil
}

// RemoveShow stops tracking a show. Its grab records are left to retention.
func (c *ShowController) RemoveShow(id uint64) error {
	if err := c.shows.Delete(id); err != nil {
		return err
	}
	c.logger.WithField("show_id", id).Info("Show removed")
	return nil
}

// GetTrackedShows returns every tracked show in ID order
func (c *ShowController) GetTrackedShows() ([]*models.TrackedShow, error) {
	return c.shows.List()
}
