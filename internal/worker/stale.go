// Package worker runs the background jobs of the tag league API. The only
// job today is the stale-score watchdog: it surfaces scores stuck awaiting
// confirmation so operators can intervene. It never mutates state — the
// engine performs no time-based transitions.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mkallio/tag-league/backend/internal/domain"
)

// StaleLister is the slice of the standings service the watchdog needs.
type StaleLister interface {
	StaleScores(ctx context.Context, olderThan time.Duration) ([]domain.StaleScore, error)
}

// StaleWatcher periodically logs a warning for every score that has been
// awaiting confirmation longer than the configured window. Alerting systems
// pick these lines up from the structured log.
type StaleWatcher struct {
	lister    StaleLister
	window    time.Duration
	interval  time.Duration
	log       *slog.Logger
	scheduler gocron.Scheduler
}

// NewStaleWatcher constructs a StaleWatcher. window is how long a score may
// wait before it is flagged; interval is how often to poll.
func NewStaleWatcher(lister StaleLister, window, interval time.Duration, log *slog.Logger) *StaleWatcher {
	return &StaleWatcher{lister: lister, window: window, interval: interval, log: log}
}

// Start begins polling in the background. Call Stop to shut down.
func (w *StaleWatcher) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("worker.StaleWatcher.Start: %w", err)
	}
	w.scheduler = sched

	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.check),
	)
	if err != nil {
		return fmt.Errorf("worker.StaleWatcher.Start: %w", err)
	}

	sched.Start()
	w.log.Info("stale score watchdog started", "window", w.window, "interval", w.interval)
	return nil
}

// Stop shuts the scheduler down, waiting for an in-flight check to finish.
func (w *StaleWatcher) Stop() error {
	if w.scheduler == nil {
		return nil
	}
	if err := w.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("worker.StaleWatcher.Stop: %w", err)
	}
	return nil
}

func (w *StaleWatcher) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stale, err := w.lister.StaleScores(ctx, w.window)
	if err != nil {
		w.log.ErrorContext(ctx, "stale score check failed", "error", err)
		return
	}
	for _, s := range stale {
		w.log.WarnContext(ctx, "score awaiting confirmation past window",
			"participation_id", s.ParticipationID,
			"player_id", s.PlayerID,
			"round_id", s.RoundID,
			"card_id", s.CardID,
			"entered_at", s.EnteredAt,
			"waiting", s.Waiting.String(),
		)
	}
}
