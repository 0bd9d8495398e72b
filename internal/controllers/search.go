package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amaumene/tvarr/internal/config"
	"github.com/amaumene/tvarr/internal/metrics"
	"github.com/amaumene/tvarr/internal/models"
	"github.com/amaumene/tvarr/internal/services/qbittorrent"
	"github.com/amaumene/tvarr/internal/utils"
)

const searchCleanupTimeout = 10 * time.Second

var errSearchRunning = errors.New("search still running")

// searchAttempt is the state of one ladder tier's search job
type searchAttempt struct {
	query     string
	tier      int
	jobID     int
	polls     int
	lastTotal int
	stable    int // consecutive polls reporting the same non-zero total
}

// SearchController runs the quality ladder against the search service
type SearchController struct {
	search      SearchService
	blacklist   *utils.Blacklist
	plugins     string
	category    string
	resultLimit int
	settleDelay time.Duration
	pollDelay   time.Duration
	maxPolls    int
	stablePolls int
	logger      *logrus.Logger
}

// NewSearchController creates a new search controller
func NewSearchController(search SearchService, blacklist *utils.Blacklist, cfg *config.Config, logger *logrus.Logger) *SearchController {
	stablePolls := cfg.SearchStablePolls
	if stablePolls < 1 {
		stablePolls = 1
	}
	return &SearchController{
		search:      search,
		blacklist:   blacklist,
		plugins:     cfg.SearchPlugins,
		category:    cfg.SearchCategory,
		resultLimit: cfg.SearchResultLimit,
		settleDelay: cfg.SearchSettleDelay,
		pollDelay:   cfg.SearchPollDelay,
		maxPolls:    cfg.SearchMaxPolls,
		stablePolls: stablePolls,
		logger:      logger,
	}
}

// SearchEpisode walks the quality ladder and returns the best candidate of the first
// tier that has one. A nil candidate with a nil error means nothing is available yet.
// Tier failures are logged and the next tier is tried; only cancellation is returned.
func (c *SearchController) SearchEpisode(ctx context.Context, showName string, season, episode int) (*models.Candidate, error) {
	for tier, qualifier := range utils.QualityLadder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempt := &searchAttempt{
			query: utils.BuildQuery(showName, season, episode, qualifier),
			tier:  tier,
		}
		label := utils.TierLabel(qualifier)

		candidate, err := c.searchTier(ctx, attempt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			metrics.SearchTiers.WithLabelValues(label, "error").Inc()
			c.logger.WithError(err).WithFields(logrus.Fields{
				"query": attempt.query,
				"tier":  label,
			}).Warn("Search tier failed, trying next tier")
			continue
		}

		if candidate == nil {
			metrics.SearchTiers.WithLabelValues(label, "empty").Inc()
			c.logger.WithFields(logrus.Fields{
				"query": attempt.query,
				"tier":  label,
				"polls": attempt.polls,
				"total": attempt.lastTotal,
			}).Debug("No eligible candidate at tier")
			continue
		}

		metrics.SearchTiers.WithLabelValues(label, "found").Inc()
		c.logger.WithFields(logrus.Fields{
			"query":   attempt.query,
			"tier":    label,
			"title":   candidate.Title,
			"seeders": candidate.Seeders,
		}).Info("Found candidate")
		return candidate, nil
	}

	return nil, nil
}

func (c *SearchController) searchTier(ctx context.Context, attempt *searchAttempt) (_ *models.Candidate, err error) {
	ctx, span := utils.Tracer().Start(ctx, "search.tier", trace.WithAttributes(
		attribute.String("query", attempt.query),
		attribute.Int("tier", attempt.tier),
	))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	attempt.jobID, err = c.search.StartSearch(ctx, attempt.query, c.plugins, c.category)
	if err != nil {
		return nil, err
	}
	defer c.stopSearch(ctx, attempt.jobID)

	if err := sleepContext(ctx, c.settleDelay); err != nil {
		return nil, err
	}

	c.pollUntilSettled(ctx, attempt)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("polls", attempt.polls), attribute.Int("total", attempt.lastTotal))

	if attempt.lastTotal == 0 {
		return nil, nil
	}

	results, err := c.search.GetSearchResults(ctx, attempt.jobID, c.resultLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}

	return c.selectCandidate(results.Results), nil
}

// pollUntilSettled polls the job status until the job stops, its total holds steady
// for stablePolls polls, or maxPolls is reached. Failed polls count as attempts.
func (c *SearchController) pollUntilSettled(ctx context.Context, attempt *searchAttempt) {
	poll := func() error {
		attempt.polls++
		status, err := c.search.GetSearchStatus(ctx, attempt.jobID)
		if err != nil {
			c.logger.WithError(err).WithField("job_id", attempt.jobID).Debug("Search status poll failed")
			return err
		}

		if status.Total > 0 && status.Total == attempt.lastTotal {
			attempt.stable++
		} else if status.Total > 0 {
			attempt.stable = 1
		} else {
			attempt.stable = 0
		}
		attempt.lastTotal = status.Total

		if status.Status == qbittorrent.SearchStopped || attempt.stable >= c.stablePolls {
			return nil
		}
		return errSearchRunning
	}

	maxRetries := uint64(0)
	if c.maxPolls > 1 {
		maxRetries = uint64(c.maxPolls - 1)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.pollDelay), maxRetries), ctx)

	if err := backoff.Retry(poll, policy); err != nil && ctx.Err() == nil {
		c.logger.WithFields(logrus.Fields{
			"job_id": attempt.jobID,
			"polls":  attempt.polls,
			"total":  attempt.lastTotal,
		}).Debug("Poll limit reached, using last observed total")
	}
}

// selectCandidate keeps magnet results that are not blacklisted and returns the one with
// the most seeders. On equal seeders the earliest result wins.
func (c *SearchController) selectCandidate(results []qbittorrent.SearchResult) *models.Candidate {
	var best *models.Candidate
	for _, result := range results {
		if !utils.IsMagnet(result.FileURL) {
			continue
		}
		if blocked, term := c.blacklist.IsBlacklisted(result.FileName); blocked {
			c.logger.WithFields(logrus.Fields{
				"title": result.FileName,
				"term":  term,
			}).Debug("Result blacklisted")
			continue
		}

		if best == nil || result.NbSeeders > best.Seeders {
			best = &models.Candidate{
				Title:    result.FileName,
				Size:     result.FileSize,
				Seeders:  result.NbSeeders,
				FetchURL: result.FileURL,
				SiteURL:  result.SiteURL,
			}
		}
	}
	return best
}

// stopSearch releases the job even when ctx is already cancelled
func (c *SearchController) stopSearch(ctx context.Context, jobID int) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), searchCleanupTimeout)
	defer cancel()

	if err := c.search.StopSearch(cleanupCtx, jobID); err != nil {
		c.logger.WithError(err).WithField("job_id", jobID).Debug("Failed to stop search job")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
