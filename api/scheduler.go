/*
scheduler.go - Automated assignment status scheduler

PURPOSE:
  Periodically advances assignments along their lifecycle as the calendar
  moves, so that site schedules reflect what is actually happening:

    planned      and start <= today  ->  in_progress
    in_progress  and end   <  today  ->  completed

  An assignment whose whole window is in the past moves through both steps
  in one run.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Every move goes through Planner.Transition, so it takes the resource
    lock, is recorded and publishes assignment.status_changed
  - Cancelled and completed assignments are never touched
  - A failed move is logged and the run continues with the next one

CONFIGURATION:
  - Interval: How often to check (default: 1 hour)
  - Enabled:  Whether the scheduler runs (default: false)

USAGE:
  scheduler := NewStatusScheduler(planner, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - planning/lifecycle.go: Allowed transitions
  - config/sections.go: SchedulerConfig
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/site-planner/planning"
)

// StatusScheduler advances assignment statuses as time passes.
type StatusScheduler struct {
	Planner  *planning.Planner
	Interval time.Duration
	Enabled  bool
	Now      func() time.Time
	Log      zerolog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// RunResult counts the moves of one run.
type RunResult struct {
	Started   int
	Completed int
	Failed    int
}

// NewStatusScheduler creates a disabled scheduler with a one hour interval.
func NewStatusScheduler(planner *planning.Planner, log zerolog.Logger) *StatusScheduler {
	return &StatusScheduler{
		Planner:  planner,
		Interval: time.Hour,
		Now:      time.Now,
		Log:      log,
	}
}

// Start begins the scheduler. It runs once immediately, then on every tick.
func (s *StatusScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Log.Info().Msg("status scheduler disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.Log.Info().Dur("interval", s.Interval).Msg("status scheduler started")
}

// Stop stops the scheduler and waits for a running pass to finish.
func (s *StatusScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Log.Info().Msg("status scheduler stopped")
}

func (s *StatusScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-stop:
			return
		}
	}
}

// RunOnce performs a single pass against today's date.
func (s *StatusScheduler) RunOnce(ctx context.Context) RunResult {
	today := planning.DayOf(s.Now())
	var res RunResult

	due, err := s.Planner.Assignments.List(ctx, planning.Filter{
		Statuses: []planning.Status{planning.StatusPlanned, planning.StatusInProgress},
	})
	if err != nil {
		s.Log.Error().Err(err).Msg("status scheduler: list assignments")
		res.Failed++
		return res
	}

	for _, a := range due {
		if ctx.Err() != nil {
			break
		}
		if a.Status == planning.StatusPlanned && a.Window.Start.BeforeOrEqual(today) {
			if !s.move(ctx, a, planning.StatusInProgress, &res) {
				continue
			}
			res.Started++
			a.Status = planning.StatusInProgress
		}
		if a.Status == planning.StatusInProgress && a.Window.End.Before(today) {
			if s.move(ctx, a, planning.StatusCompleted, &res) {
				res.Completed++
			}
		}
	}

	if res.Started+res.Completed+res.Failed > 0 {
		s.Log.Info().
			Int("started", res.Started).
			Int("completed", res.Completed).
			Int("failed", res.Failed).
			Str("today", today.String()).
			Msg("status scheduler run")
	}
	return res
}

func (s *StatusScheduler) move(ctx context.Context, a planning.Assignment, to planning.Status, res *RunResult) bool {
	if _, err := s.Planner.Transition(ctx, a.ID, to); err != nil {
		s.Log.Warn().Err(err).
			Str("assignment_id", string(a.ID)).
			Str("to", string(to)).
			Msg("status scheduler: transition failed")
		res.Failed++
		return false
	}
	return true
}
