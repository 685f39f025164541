package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/tripwatch/travel-safety-api/internal/logger"
)

// Refresher is a reference-data cache that can be warm-refreshed.
type Refresher interface {
	Name() string
	Refresh(ctx context.Context) error
}

// Reclaimer reclaims expired rows for store backends without native TTL
// support. Backends with TTL indexes simply don't register one.
type Reclaimer interface {
	ReclaimExpired(ctx context.Context) (int64, error)
}

// Scheduler periodically warm-refreshes reference caches and reclaims
// expired storage. Losing a run is harmless: the read paths refresh on
// demand and records expire by key bucket regardless.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	refreshers []Refresher
	reclaimer  Reclaimer
	interval   time.Duration
	log        *zap.SugaredLogger
}

func New(interval time.Duration, refreshers []Refresher, reclaimer Reclaimer) *Scheduler {
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		refreshers: refreshers,
		reclaimer:  reclaimer,
		interval:   interval,
		log:        logger.GetLogger("scheduler"),
	}
}

// Start schedules the periodic jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.runRefresh); err != nil {
		return err
	}
	if s.reclaimer != nil {
		if _, err := s.scheduler.Every(10 * time.Minute).Do(s.runReclaim); err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) runRefresh() {
	s.log.Info("running reference data refresh")

	var wg sync.WaitGroup
	for _, r := range s.refreshers {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			if err := r.Refresh(ctx); err != nil {
				s.log.Warnw("refresh failed", "cache", r.Name(), "error", err)
			}
		}()
	}
	wg.Wait()

	s.log.Info("reference data refresh completed")
}

func (s *Scheduler) runReclaim() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reclaimed, err := s.reclaimer.ReclaimExpired(ctx)
	if err != nil {
		s.log.Warnw("reclaim failed", "error", err)
		return
	}
	if reclaimed > 0 {
		s.log.Infow("reclaimed expired rows", "count", reclaimed)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
