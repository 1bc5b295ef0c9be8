package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/lazypower/nanobrain/internal/metrics"
)

// Task is a unit of background housekeeping.
type Task interface {
	RunOnce(ctx context.Context) error
}

// Scheduler runs tasks on cron specs until stopped.
type Scheduler struct {
	cron   *cron.Cron
	tasks  []Task
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates an idle scheduler.
func NewScheduler(log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		log:    log.With().Str("component", "housekeeping").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers t to run on spec ("@every 30s", "*/5 * * * *", ...).
func (s *Scheduler) Add(spec string, t Task) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(t) })
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.tasks = append(s.tasks, t)
	return nil
}

// Start runs every task once, then hands them to cron.
func (s *Scheduler) Start() {
	for _, t := range s.tasks {
		s.run(t)
	}
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) run(t Task) {
	if err := t.RunOnce(s.ctx); err != nil {
		s.log.Warn().Err(err).Str("task", fmt.Sprintf("%T", t)).Msg("housekeeping task failed")
	}
}

// tempSweeper is implemented by stores that leave temp files behind on crash.
type tempSweeper interface {
	SweepTemp(olderThan time.Duration) (int, error)
}

// InventoryTask reports how many brains are persisted and removes stale
// temp files. It never loads or writes a brain.
type InventoryTask struct {
	Store      Store
	TempMaxAge time.Duration
	Log        zerolog.Logger
}

func (t *InventoryTask) RunOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	users, err := t.Store.ListUsers()
	if err != nil {
		return fmt.Errorf("inventory: %w", err)
	}
	metrics.PersistedBrains.Set(float64(len(users)))

	sw, ok := t.Store.(tempSweeper)
	if !ok || t.TempMaxAge <= 0 {
		return nil
	}
	removed, err := sw.SweepTemp(t.TempMaxAge)
	if err != nil {
		return fmt.Errorf("sweep temp: %w", err)
	}
	if removed > 0 {
		metrics.TempFilesSwept.Add(float64(removed))
		t.Log.Info().Int("removed", removed).Msg("swept stale temp files")
	}
	return nil
}
