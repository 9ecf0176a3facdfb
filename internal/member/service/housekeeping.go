package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/crewlane/memberd/internal/member/store"
)

// HousekeepingService periodically deletes lapsed invite rows (expired,
// never accepted) so the invites table does not grow without bound. This is
// hygiene only: pendingness is a derived predicate and stays correct whether
// or not the sweeper ever runs.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call after the database
// is ready. Call Stop() to gracefully shut the worker down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker. Blocks until any
// in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run a sweep immediately on startup
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) sweep() {
	ctx := context.Background()

	deleted, err := s.Store.Invites().DeleteLapsedInvites(ctx, time.Now().UTC())
	if err != nil {
		s.Logger.Error("failed to delete lapsed invites", "error", err)
		return
	}

	if deleted > 0 {
		s.Logger.Info("housekeeping sweep completed", "lapsed_invites_deleted", deleted)
	} else {
		s.Logger.Debug("housekeeping sweep completed, nothing to delete")
	}
}
