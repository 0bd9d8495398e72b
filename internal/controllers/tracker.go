package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/amaumene/tvarr/internal/config"
	"github.com/amaumene/tvarr/internal/metrics"
	"github.com/amaumene/tvarr/internal/models"
	"github.com/amaumene/tvarr/internal/utils"
)

var (
	// ErrCycleInProgress is returned when a check cycle is triggered while another runs
	ErrCycleInProgress = errors.New("a check cycle is already in progress")
	// ErrRangeInProgress is returned when a season range is requested while another runs
	ErrRangeInProgress = errors.New("a season range download is already in progress")
	// ErrInvalidRange is returned for an empty or out-of-bounds episode range
	ErrInvalidRange = errors.New("invalid episode range")
)

// Check triggers
const (
	TriggerTimer  = "timer"
	TriggerManual = "manual"
)

// DownloadSummary describes one submitted release
type DownloadSummary struct {
	Show    string `json:"show"`
	Episode string `json:"episode"`
	Title   string `json:"title"`
}

// CheckResult is the outcome of a check cycle or a season range acquisition
type CheckResult struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Downloads []DownloadSummary `json:"downloads"`
}

// Tracker runs check cycles over the tracked shows and season range acquisitions.
// One cycle and one season range may run at a time.
type Tracker struct {
	shows     *ShowCatalog
	admission *AdmissionController
	search    *SearchController
	downloads *DownloadController
	airDates  *AirDateController

	rangeDelay   time.Duration
	rangeTimeout time.Duration

	logger *logrus.Logger
	now    func() time.Time

	cycleMu sync.Mutex
	rangeMu sync.Mutex
}

// NewTracker creates a new tracker
func NewTracker(shows *ShowCatalog, admission *AdmissionController, search *SearchController, downloads *DownloadController, airDates *AirDateController, cfg *config.Config, logger *logrus.Logger) *Tracker {
	return &Tracker{
		shows:        shows,
		admission:    admission,
		search:       search,
		downloads:    downloads,
		airDates:     airDates,
		rangeDelay:   cfg.SeasonRangeDelay,
		rangeTimeout: cfg.SeasonRangeTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// GetTrackedShows returns every tracked show in ID order
func (t *Tracker) GetTrackedShows() ([]*models.TrackedShow, error) {
	return t.shows.List()
}

// CheckAll runs one check cycle over the active shows. A cycle already in flight makes
// it return ErrCycleInProgress. Insufficient capacity skips the cycle without error.
func (t *Tracker) CheckAll(ctx context.Context, trigger string) (*CheckResult, error) {
	if !t.cycleMu.TryLock() {
		metrics.CheckCycles.WithLabelValues(trigger, "rejected").Inc()
		return &CheckResult{Success: false, Message: ErrCycleInProgress.Error()}, ErrCycleInProgress
	}
	defer t.cycleMu.Unlock()

	ctx, span := utils.Tracer().Start(ctx, "check.cycle", trace.WithAttributes(attribute.String("trigger", trigger)))
	defer span.End()

	t.logger.WithField("trigger", trigger).Info("Starting check cycle")

	if ok, message := t.admission.HasCapacity(); !ok {
		metrics.CheckCycles.WithLabelValues(trigger, "no_capacity").Inc()
		return &CheckResult{Success: false, Message: message, Downloads: []DownloadSummary{}}, nil
	}

	shows, err := t.shows.Active()
	if err != nil {
		metrics.CheckCycles.WithLabelValues(trigger, "error").Inc()
		return nil, fmt.Errorf("failed to get active shows: %w", err)
	}

	result := &CheckResult{Downloads: []DownloadSummary{}}
	checked := 0
	for _, show := range shows {
		summary, err := t.checkShow(ctx, show)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				metrics.CheckCycles.WithLabelValues(trigger, "cancelled").Inc()
				result.Message = fmt.Sprintf("cycle cancelled after %d of %d shows", checked, len(shows))
				return result, ctxErr
			}
			t.logger.WithError(err).WithField("show_id", show.ID).Error("Failed to record show check")
		}
		checked++
		if summary != nil {
			result.Downloads = append(result.Downloads, *summary)
		}
	}

	metrics.CheckCycles.WithLabelValues(trigger, "completed").Inc()
	result.Success = true
	result.Message = fmt.Sprintf("checked %d shows, %d new downloads", checked, len(result.Downloads))

	t.logger.WithFields(logrus.Fields{
		"trigger":   trigger,
		"shows":     checked,
		"downloads": len(result.Downloads),
	}).Info("Check cycle completed")

	return result, nil
}

// checkShow evaluates one show on a copy and persists the outcome in a single write.
// On cancellation nothing is written.
func (t *Tracker) checkShow(ctx context.Context, show *models.TrackedShow) (*DownloadSummary, error) {
	ctx, span := utils.Tracer().Start(ctx, "check.show", trace.WithAttributes(
		attribute.Int64("show_id", int64(show.ID)),
		attribute.String("show", show.Name),
	))
	defer span.End()

	working := show.Clone()
	now := t.now()
	target := working.CurrentEpisode + 1
	fields := logrus.Fields{
		"show_id": show.ID,
		"show":    show.Name,
		"episode": models.FormatEpisode(working.CurrentSeason, target),
	}

	if !IsDue(working, now) {
		t.logger.WithFields(fields).WithField("air_date", working.NextEpisodeAirDate).Debug("Next episode has not aired yet")
		return nil, t.commit(show, working, now)
	}

	candidate, err := t.search.SearchEpisode(ctx, working.Name, working.CurrentSeason, target)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		t.logger.WithFields(fields).Info("No release available yet")
		return nil, t.commit(show, working, now)
	}

	if _, err := t.downloads.Submit(ctx, working, working.CurrentSeason, target, candidate, models.GrabSourceCheck); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		t.logger.WithError(err).WithFields(fields).Error("Download submission failed")
		return nil, t.commit(show, working, now)
	}

	working.DownloadHistory = append(working.DownloadHistory, models.DownloadRecord{
		Season:       working.CurrentSeason,
		Episode:      target,
		ReleaseTitle: candidate.Title,
		DownloadedAt: now,
		AirDate:      working.NextEpisodeAirDate,
	})
	working.CurrentEpisode = target
	t.airDates.Refresh(ctx, working)

	summary := &DownloadSummary{
		Show:    show.Name,
		Episode: models.FormatEpisode(show.CurrentSeason, target),
		Title:   candidate.Title,
	}

	t.logger.WithFields(fields).WithFields(logrus.Fields{
		"title":    candidate.Title,
		"air_date": working.NextEpisodeAirDate,
	}).Info("Episode acquired, watermark advanced")

	return summary, t.commit(show, working, now)
}

// commit applies the tracker-owned fields of working to the stored record. When the
// watermark moved since the snapshot was read, only the check time is recorded.
func (t *Tracker) commit(snapshot, working *models.TrackedShow, now time.Time) error {
	_, err := t.shows.Update(snapshot.ID, func(current *models.TrackedShow) error {
		checked := now
		current.LastCheckedAt = &checked

		if current.CurrentSeason != snapshot.CurrentSeason ||
			current.CurrentEpisode != snapshot.CurrentEpisode ||
			len(current.DownloadHistory) != len(snapshot.DownloadHistory) {
			t.logger.WithField("show_id", snapshot.ID).Warn("Show changed during check, keeping stored watermark")
			return nil
		}

		current.CurrentSeason = working.CurrentSeason
		current.CurrentEpisode = working.CurrentEpisode
		current.NextEpisodeAirDate = working.NextEpisodeAirDate
		current.DownloadHistory = working.DownloadHistory
		return nil
	})
	return err
}

// DownloadSeasonRange fetches episodes start..end of a season without touching the
// show's watermark or download history. Capacity is re-checked before each episode.
// It stops at the configured timeout and reports what was submitted so far.
func (t *Tracker) DownloadSeasonRange(ctx context.Context, showID uint64, season, start, end int) (*CheckResult, error) {
	if season < 1 || start < 1 || end < start {
		return nil, fmt.Errorf("%w: season %d, episodes %d-%d", ErrInvalidRange, season, start, end)
	}

	if !t.rangeMu.TryLock() {
		return &CheckResult{Success: false, Message: ErrRangeInProgress.Error()}, ErrRangeInProgress
	}
	defer t.rangeMu.Unlock()

	show, err := t.shows.Get(showID)
	if err != nil {
		return nil, err
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, t.rangeTimeout)
	defer cancel()

	ctx, span := utils.Tracer().Start(ctx, "season.range", trace.WithAttributes(
		attribute.Int64("show_id", int64(show.ID)),
		attribute.Int("season", season),
		attribute.Int("start", start),
		attribute.Int("end", end),
	))
	defer span.End()

	fields := logrus.Fields{
		"show_id": show.ID,
		"show":    show.Name,
		"season":  season,
	}
	t.logger.WithFields(fields).WithFields(logrus.Fields{"start": start, "end": end}).Info("Starting season range download")

	result := &CheckResult{Downloads: []DownloadSummary{}}
	var missing []string
	var stopReason string

	for episode := start; episode <= end; episode++ {
		coordinate := models.FormatEpisode(season, episode)

		if ctx.Err() != nil {
			stopReason = "timed out"
			break
		}

		if ok, message := t.admission.HasCapacity(); !ok {
			stopReason = message
			break
		}

		candidate, err := t.search.SearchEpisode(ctx, show.Name, season, episode)
		if err != nil {
			stopReason = "timed out"
			break
		}
		if candidate == nil {
			missing = append(missing, coordinate)
			continue
		}

		if _, err := t.downloads.Submit(ctx, show, season, episode, candidate, models.GrabSourceRange); err != nil {
			t.logger.WithError(err).WithFields(fields).WithField("episode", coordinate).Error("Download submission failed")
			missing = append(missing, coordinate)
			continue
		}

		result.Downloads = append(result.Downloads, DownloadSummary{
			Show:    show.Name,
			Episode: coordinate,
			Title:   candidate.Title,
		})

		if episode < end {
			if err := sleepContext(ctx, t.rangeDelay); err != nil {
				stopReason = "timed out"
				break
			}
		}
	}

	if parent.Err() != nil {
		stopReason = "cancelled"
	}

	result.Success = len(result.Downloads) > 0
	result.Message = fmt.Sprintf("downloaded %d of %d episodes", len(result.Downloads), end-start+1)
	if len(missing) > 0 {
		result.Message += fmt.Sprintf(", not found: %s", strings.Join(missing, " "))
	}
	if stopReason != "" {
		result.Message += fmt.Sprintf(", stopped: %s", stopReason)
	}

	t.logger.WithFields(fields).WithFields(logrus.Fields{
		"downloads": len(result.Downloads),
		"missing":   len(missing),
		"stopped":   stopReason,
	}).Info("Season range download finished")

	if err := parent.Err(); err != nil {
		return result, err
	}
	return result, nil
}
