package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/tvarr/internal/models"
	"github.com/amaumene/tvarr/internal/services/tvmaze"
)

// releaseGrace is how long after midnight UTC of the air date an episode is pursued
const releaseGrace = time.Hour

// IsDue reports whether the show's next episode may be searched for at now.
// A show without a known air date is always due.
func IsDue(show *models.TrackedShow, now time.Time) bool {
	date, ok := show.AirDate()
	if !ok {
		return true
	}
	return !now.UTC().Before(date.Add(releaseGrace))
}

// AirDateController derives the next episode's air date from the catalog
type AirDateController struct {
	catalog CatalogService
	logger  *logrus.Logger
}

// NewAirDateController creates a new air date controller
func NewAirDateController(catalog CatalogService, logger *logrus.Logger) *AirDateController {
	return &AirDateController{
		catalog: catalog,
		logger:  logger,
	}
}

// Refresh sets NextEpisodeAirDate for the episode after the watermark. When the current
// season has no further episode but the next season has a premiere, the watermark rolls
// over to (season+1, 0). Lookup failures leave the date unset. The show is only mutated
// in memory.
func (c *AirDateController) Refresh(ctx context.Context, show *models.TrackedShow) {
	show.NextEpisodeAirDate = ""
	if show.CatalogID == 0 {
		return
	}

	fields := logrus.Fields{
		"show_id":    show.ID,
		"catalog_id": show.CatalogID,
	}

	next, err := c.catalog.GetEpisode(ctx, show.CatalogID, show.CurrentSeason, show.CurrentEpisode+1)
	if err == nil {
		show.NextEpisodeAirDate = next.Airdate
		return
	}
	if !errors.Is(err, tvmaze.ErrNotFound) {
		c.logger.WithError(err).WithFields(fields).Warn("Air date lookup failed")
		return
	}

	premiere, err := c.catalog.GetEpisode(ctx, show.CatalogID, show.CurrentSeason+1, 1)
	if err != nil {
		if !errors.Is(err, tvmaze.ErrNotFound) {
			c.logger.WithError(err).WithFields(fields).Warn("Season premiere lookup failed")
		}
		return
	}

	c.logger.WithFields(fields).WithField("season", show.CurrentSeason+1).Info("Season finished, moving to next season")
	show.CurrentSeason++
	show.CurrentEpisode = 0
	show.NextEpisodeAirDate = premiere.Airdate
}
