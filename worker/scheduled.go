package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is one unit of scheduled work, for example a collection run.
type Job func(ctx context.Context) error

// Scheduled runs Job on a cron schedule. Standard five-field expressions and
// descriptors such as "@every 6h" or "@daily" are accepted. A run that is
// still going when the next tick fires causes that tick to be skipped.
type Scheduled struct {
	Name       string
	Schedule   string
	Job        Job
	RunAtStart bool
}

func (w *Scheduled) Start(ctx context.Context) error {
	logger := cronLogger{name: w.Name}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(w.Schedule, func() { w.runOnce(ctx) }); err != nil {
		return fmt.Errorf("%s: invalid schedule %q: %w", w.Name, w.Schedule, err)
	}
	if w.RunAtStart {
		w.runOnce(ctx)
	}
	c.Start()
	slog.Info("scheduler: started", "worker", w.Name, "schedule", w.Schedule)

	<-ctx.Done()
	// Stop returns a context that is done once running jobs have finished.
	<-c.Stop().Done()
	slog.Info("scheduler: stopped", "worker", w.Name)
	return nil
}

func (w *Scheduled) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.Job(ctx); err != nil {
		slog.Error("scheduler: run failed", "worker", w.Name, "err", err)
	}
}

// cronLogger routes cron's internal messages to slog.
type cronLogger struct{ name string }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, append([]interface{}{"worker", l.name}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"worker", l.name, "err", err}, keysAndValues...)...)
}
