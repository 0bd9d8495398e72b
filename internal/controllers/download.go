package controllers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/tvarr/internal/config"
	"github.com/amaumene/tvarr/internal/metrics"
	"github.com/amaumene/tvarr/internal/models"
	"github.com/amaumene/tvarr/internal/priority"
	"github.com/amaumene/tvarr/internal/services/qbittorrent"
	"github.com/amaumene/tvarr/internal/utils"
)

// metadataTimeout is how long a grab may wait for its file listing before it is given up on
const metadataTimeout = 6 * time.Hour

// DownloadController hands releases to the download client and prioritizes season packs
type DownloadController struct {
	db       *models.Database
	client   DownloadClient
	savePath string
	category string
	logger   *logrus.Logger
	now      func() time.Time
}

// NewDownloadController creates a new download controller
func NewDownloadController(db *models.Database, client DownloadClient, cfg *config.Config, logger *logrus.Logger) *DownloadController {
	return &DownloadController{
		db:       db,
		client:   client,
		savePath: cfg.DownloadPath,
		category: cfg.DownloadCategory,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit registers a candidate with the download client in sequential mode and records the grab.
// An error means the client did not accept the release.
func (c *DownloadController) Submit(ctx context.Context, show *models.TrackedShow, season, episode int, candidate *models.Candidate, source models.GrabSource) (*models.Grab, error) {
	infoHash, ok := utils.InfoHash(candidate.FetchURL)
	if !ok {
		return nil, fmt.Errorf("candidate %q has no usable magnet link", candidate.Title)
	}

	c.logger.WithFields(logrus.Fields{
		"show_id": show.ID,
		"episode": models.FormatEpisode(season, episode),
		"title":   candidate.Title,
		"size":    humanize.IBytes(uint64(max(candidate.Size, 0))),
		"seeders": candidate.Seeders,
	}).Info("Submitting release to download client")

	err := c.client.AddTorrent(ctx, candidate.FetchURL, qbittorrent.AddOptions{
		SavePath:           c.savePath,
		Category:           c.category,
		Sequential:         true,
		FirstLastPiecePrio: true,
	})
	if err != nil {
		if !c.alreadyPresent(ctx, infoHash, err) {
			return nil, fmt.Errorf("failed to submit release: %w", err)
		}
		c.logger.WithFields(logrus.Fields{
			"show_id":   show.ID,
			"info_hash": infoHash,
		}).Info("Release already in download client")
	}

	metrics.DownloadsSubmitted.WithLabelValues(string(source)).Inc()

	grab := &models.Grab{
		ShowID:      show.ID,
		ShowName:    show.Name,
		Season:      season,
		Episode:     episode,
		Title:       candidate.Title,
		FetchURL:    candidate.FetchURL,
		InfoHash:    infoHash,
		Seeders:     candidate.Seeders,
		Size:        candidate.Size,
		Quality:     utils.DetermineQuality(candidate.Title),
		Source:      source,
		Status:      models.GrabStatusSubmitted,
		SubmittedAt: c.now(),
	}
	if err := c.db.CreateGrab(grab); err != nil {
		// The release is already with the client; losing the record only skips prioritization
		c.logger.WithError(err).WithField("title", candidate.Title).Error("Failed to record grab")
	}

	return grab, nil
}

// alreadyPresent reports whether a rejected add was for a torrent the client already holds
func (c *DownloadController) alreadyPresent(ctx context.Context, infoHash string, addErr error) bool {
	if !errors.Is(addErr, qbittorrent.ErrRejected) {
		return false
	}
	present, err := c.client.HasTorrent(ctx, infoHash)
	if err != nil {
		c.logger.WithError(err).WithField("info_hash", infoHash).Warn("Failed to look up rejected release")
		return false
	}
	return present
}

// ApplyPendingPriorities sets file priorities on submitted season packs whose
// metadata has become available. Grabs still waiting are retried on the next run.
func (c *DownloadController) ApplyPendingPriorities(ctx context.Context) error {
	grabs, err := c.db.GetGrabsByStatus(models.GrabStatusSubmitted)
	if err != nil {
		return fmt.Errorf("failed to get submitted grabs: %w", err)
	}

	for _, grab := range grabs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.prioritize(ctx, grab); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"grab_id": grab.ID,
				"title":   grab.Title,
			}).Warn("Failed to apply file priorities")
		}
	}

	return nil
}

func (c *DownloadController) prioritize(ctx context.Context, grab *models.Grab) error {
	files, err := c.client.TorrentFiles(ctx, grab.InfoHash)
	if err != nil && !errors.Is(err, qbittorrent.ErrNotFound) {
		return err
	}

	if len(files) == 0 {
		if c.now().Sub(grab.SubmittedAt) > metadataTimeout {
			c.logger.WithField("title", grab.Title).Warn("Release metadata never became available")
			return c.setGrabStatus(grab, models.GrabStatusExpired)
		}
		return nil
	}

	releaseFiles := make([]priority.ReleaseFile, len(files))
	for i, f := range files {
		releaseFiles[i] = priority.ReleaseFile{
			Name:          f.Name,
			Size:          f.Size,
			OriginalIndex: f.Index,
		}
	}

	if !priority.IsTVShowTorrent(releaseFiles) {
		return c.setGrabStatus(grab, models.GrabStatusSingle)
	}

	groups := priority.GroupByTier(priority.Assign(releaseFiles))
	tiers := make([]priority.Tier, 0, len(groups))
	for tier := range groups {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] > tiers[j] })

	for _, tier := range tiers {
		if err := c.client.SetFilePriority(ctx, grab.InfoHash, groups[tier], tier); err != nil {
			return err
		}
	}

	metrics.PrioritiesApplied.Inc()
	c.logger.WithFields(logrus.Fields{
		"title": grab.Title,
		"files": len(files),
		"tiers": len(tiers),
	}).Info("Applied season pack file priorities")

	now := c.now()
	grab.PrioritizedAt = &now
	return c.setGrabStatus(grab, models.GrabStatusPrioritized)
}

func (c *DownloadController) setGrabStatus(grab *models.Grab, status models.GrabStatus) error {
	grab.Status = status
	if err := c.db.UpdateGrab(grab); err != nil {
		return fmt.Errorf("failed to update grab: %w", err)
	}
	return nil
}
