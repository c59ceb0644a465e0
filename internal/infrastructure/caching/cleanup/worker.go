// Package cleanup provides the background worker that closes idle editor
// sessions and drops expired cache entries.
package cleanup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

// SessionReaper closes sessions idle since before cutoff
type SessionReaper interface {
	ReapIdle(ctx context.Context, cutoff time.Time) []string
	SessionCount() int
}

// Result summarises one cleanup pass
type Result struct {
	Reaped   []string
	Purged   int
	Duration time.Duration
}

// Worker runs cleanup passes on a cron schedule
type Worker struct {
	reaper SessionReaper
	caches []interfaces.Purgeable
	config *Config
	logger *logging.ChanneledLogger
	now    func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	lastRun *Result
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(reaper SessionReaper, config *Config, logger *logging.ChanneledLogger, caches ...interfaces.Purgeable) *Worker {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Worker{
		reaper: reaper,
		caches: caches,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Start schedules the cleanup pass. The schedule accepts standard cron
// expressions and descriptors such as "@every 5m".
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		return fmt.Errorf("cleanup worker already started")
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)))
	id, err := c.AddFunc(w.config.Schedule, func() { w.RunOnce(ctx) })
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", w.config.Schedule, err)
	}
	w.cron = c
	w.entry = id
	c.Start()

	w.logger.System().Info("Cleanup worker started",
		"schedule", w.config.Schedule,
		"idleTimeout", w.config.IdleTimeout,
		"verbose", w.config.VerboseReporting)

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for a running pass to finish
func (w *Worker) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	w.logger.Shutdown().Info("Cleanup worker stopped")
}

// NextRun reports when the next pass is due; zero when not started
func (w *Worker) NextRun() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron == nil {
		return time.Time{}
	}
	return w.cron.Entry(w.entry).Next
}

func (w *Worker) LastRun() *Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastRun == nil {
		return nil
	}
	r := *w.lastRun
	return &r
}

// RunOnce executes a single cleanup pass
func (w *Worker) RunOnce(ctx context.Context) Result {
	start := time.Now()
	var res Result

	if w.reaper != nil && w.config.IdleTimeout > 0 {
		cutoff := w.now().Add(-w.config.IdleTimeout)
		res.Reaped = w.reaper.ReapIdle(ctx, cutoff)
	}
	for _, c := range w.caches {
		select {
		case <-ctx.Done():
			return res
		default:
		}
		res.Purged += c.PurgeExpired()
	}
	res.Duration = time.Since(start)

	w.mu.Lock()
	w.lastRun = &res
	w.mu.Unlock()

	if w.config.VerboseReporting {
		NewReporter(w.reaper, w.caches).Print(res)
	}
	if len(res.Reaped) > 0 || res.Purged > 0 {
		w.logger.System().Info("Cleanup pass finished",
			"reapedSessions", len(res.Reaped),
			"purgedCollections", res.Purged,
			"duration", res.Duration)
	} else {
		w.logger.Debug().Debug("Cleanup pass found nothing to do", "duration", res.Duration)
	}
	return res
}
