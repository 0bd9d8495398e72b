package controllers

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/tvarr/internal/models"
)

// CleanupController prunes grab records past their retention
type CleanupController struct {
	db            *models.Database
	retentionDays int
	logger        *logrus.Logger
	now           func() time.Time
}

// NewCleanupController creates a new cleanup controller
func NewCleanupController(db *models.Database, retentionDays int, logger *logrus.Logger) *CleanupController {
	return &CleanupController{
		db:            db,
		retentionDays: retentionDays,
		logger:        logger,
		now:           time.Now,
	}
}

// PruneGrabs deletes grab records submitted more than retentionDays ago.
// A non-positive retention keeps everything.
func (c *CleanupController) PruneGrabs() (int, error) {
	if c.retentionDays <= 0 {
		return 0, nil
	}

	cutoff := c.now().AddDate(0, 0, -c.retentionDays)
	deleted, err := c.db.DeleteGrabsBefore(cutoff)
	if err != nil {
		return deleted, fmt.Errorf("failed to prune grabs: %w", err)
	}

	if deleted > 0 {
		c.logger.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Pruned old grab records")
	}
	return deleted, nil
}
