package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// janitorCronParser (cron.NewParser with SecondOptional) validates and
// computes the next prune time from a standard cron expression. It does not
// run cron.Cron's own background scheduler — the janitor drives its own loop
// so it can be stopped deterministically from Close.
var janitorCronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// Janitor periodically prunes prompt_executions rows older than
// RetentionDays from a Store.
type Janitor struct {
	store     Store
	retention time.Duration
	schedule  cron.Schedule
	logger    *slog.Logger
	stop      chan struct{}
	done      chan struct{}
}

// NewJanitor builds a Janitor that prunes store on the given cron
// expression (e.g. "0 3 * * *" for daily at 03:00). retentionDays <= 0
// disables pruning and NewJanitor returns nil.
func NewJanitor(store Store, cronExpr string, retentionDays int, logger *slog.Logger) (*Janitor, error) {
	if retentionDays <= 0 {
		return nil, nil
	}
	schedule, err := janitorCronParser.Parse(cronExpr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		schedule:  schedule,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Start runs the prune loop until Stop is called or ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	go j.run(ctx)
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.done)
	now := time.Now()
	next := j.schedule.Next(now)

	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-j.stop:
			timer.Stop()
			return
		case fired := <-timer.C:
			j.prune(ctx)
			next = j.schedule.Next(fired)
		}
	}
}

func (j *Janitor) prune(ctx context.Context) {
	cutoff := time.Now().Add(-j.retention)
	n, err := j.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("cache janitor: prune failed", "error", err)
		return
	}
	if n > 0 {
		j.logger.Info("cache janitor: pruned executions", "count", n, "cutoff", cutoff)
	}
}

// Stop halts the prune loop and waits for it to exit.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}
