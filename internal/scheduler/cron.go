package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/tvarr/internal/controllers"
)

// Checker runs check cycles
type Checker interface {
	CheckAll(ctx context.Context, trigger string) (*controllers.CheckResult, error)
}

// PriorityApplier applies file priorities to newly submitted season packs
type PriorityApplier interface {
	ApplyPendingPriorities(ctx context.Context) error
}

// GrabPruner deletes expired grab records
type GrabPruner interface {
	PruneGrabs() (int, error)
}

const (
	prioritySpec = "@every 1m"
	pruneSpec    = "0 * * * *"
)

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron          *cron.Cron
	checker       Checker
	priorities    PriorityApplier
	pruner        GrabPruner
	checkInterval time.Duration
	logger        *logrus.Logger

	mu         sync.Mutex
	autoCheck  bool
	checkEntry cron.EntryID

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(
	checker Checker,
	priorities PriorityApplier,
	pruner GrabPruner,
	checkInterval time.Duration,
	autoCheck bool,
	logger *logrus.Logger,
) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cronLogger := cron.PrintfLogger(logger)
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		checker:       checker,
		priorities:    priorities,
		pruner:        pruner,
		checkInterval: checkInterval,
		autoCheck:     autoCheck,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.WithFields(logrus.Fields{
		"check_interval": s.checkInterval.String(),
		"auto_check":     s.AutoCheck(),
	}).Info("Starting scheduler")

	// Every minute: apply file priorities to new season packs
	if _, err := s.cron.AddFunc(prioritySpec, s.runPriorities); err != nil {
		return fmt.Errorf("failed to add priorities job: %w", err)
	}

	// Every hour: prune old grab records
	if _, err := s.cron.AddFunc(pruneSpec, s.runPrune); err != nil {
		return fmt.Errorf("failed to add prune job: %w", err)
	}

	s.mu.Lock()
	enabled := s.autoCheck
	s.mu.Unlock()
	if enabled {
		if err := s.SetAutoCheck(true); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	if enabled {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runCheck()
		}()
	}

	return nil
}

// Stop cancels any running job and waits for the scheduler to stop
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// SetAutoCheck adds or removes the recurring check job
func (s *Scheduler) SetAutoCheck(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enabled && s.checkEntry == 0 {
		id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.checkInterval), s.runCheck)
		if err != nil {
			return fmt.Errorf("failed to add check job: %w", err)
		}
		s.checkEntry = id
	} else if !enabled && s.checkEntry != 0 {
		s.cron.Remove(s.checkEntry)
		s.checkEntry = 0
	}

	if s.autoCheck != enabled {
		s.logger.WithField("enabled", enabled).Info("Auto check changed")
	}
	s.autoCheck = enabled
	return nil
}

// AutoCheck reports whether the recurring check job is enabled
func (s *Scheduler) AutoCheck() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoCheck
}

// CheckNow runs one check cycle on demand
func (s *Scheduler) CheckNow(ctx context.Context) (*controllers.CheckResult, error) {
	return s.checker.CheckAll(ctx, controllers.TriggerManual)
}

// runCheck executes the recurring check job
func (s *Scheduler) runCheck() {
	s.logger.Info("Running scheduled check")

	result, err := s.checker.CheckAll(s.ctx, controllers.TriggerTimer)
	switch {
	case errors.Is(err, controllers.ErrCycleInProgress):
		s.logger.Info("Check cycle already running, skipping")
	case err != nil:
		s.logger.WithError(err).Error("Check job failed")
	default:
		s.logger.WithFields(logrus.Fields{
			"success":   result.Success,
			"downloads": len(result.Downloads),
		}).Info(result.Message)
	}
}

func (s *Scheduler) runPriorities() {
	if err := s.priorities.ApplyPendingPriorities(s.ctx); err != nil {
		s.logger.WithError(err).Error("Priorities job failed")
	}
}

func (s *Scheduler) runPrune() {
	if _, err := s.pruner.PruneGrabs(); err != nil {
		s.logger.WithError(err).Error("Prune job failed")
	}
}
