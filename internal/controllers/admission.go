package controllers

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/tvarr/internal/metrics"
)

// AdmissionController gates acquisition work on storage headroom
type AdmissionController struct {
	disk    DiskStater
	path    string
	minFree uint64
	logger  *logrus.Logger
}

// NewAdmissionController creates a new admission controller
func NewAdmissionController(disk DiskStater, path string, minFree uint64, logger *logrus.Logger) *AdmissionController {
	return &AdmissionController{
		disk:    disk,
		path:    path,
		minFree: minFree,
		logger:  logger,
	}
}

// HasCapacity reports whether free space is strictly above the threshold.
// A failed free-space query denies admission. The message is human readable.
func (c *AdmissionController) HasCapacity() (bool, string) {
	free, err := c.disk.FreeBytes(c.path)
	if err != nil {
		c.logger.WithError(err).WithField("path", c.path).Warn("Free-space query failed, refusing new downloads")
		return false, "could not determine free storage space"
	}

	metrics.StorageFreeBytes.Set(float64(free))

	if free <= c.minFree {
		c.logger.WithFields(logrus.Fields{
			"path":     c.path,
			"free":     humanize.IBytes(free),
			"required": humanize.IBytes(c.minFree),
		}).Warn("Insufficient storage space")
		return false, fmt.Sprintf("insufficient storage space: %s free, more than %s required", humanize.IBytes(free), humanize.IBytes(c.minFree))
	}

	return true, fmt.Sprintf("%s free", humanize.IBytes(free))
}
