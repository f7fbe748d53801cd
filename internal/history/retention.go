package history

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Pruner periodically deletes runs older than the retention window.
type Pruner struct {
	store     *Store
	retention time.Duration
	cron      *cron.Cron
	logger    *logrus.Logger
	now       func() time.Time
}

// NewPruner schedules pruning with a standard cron spec or descriptor such as
// "@hourly". The schedule does not run until Start.
func NewPruner(store *Store, retention time.Duration, schedule string, logger *logrus.Logger) (*Pruner, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	p := &Pruner{
		store:     store,
		retention: retention,
		cron:      cron.New(cron.WithLogger(cron.VerbosePrintfLogger(logger))),
		logger:    logger,
		now:       time.Now,
	}
	if _, err := p.cron.AddFunc(schedule, p.prune); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	return p, nil
}

func (p *Pruner) Start() {
	p.cron.Start()
	p.logger.WithFields(logrus.Fields{
		"component": "history_pruner",
		"retention": p.retention,
	}).Info("History pruner started")
}

// Stop waits for a running prune to finish, up to five seconds.
func (p *Pruner) Stop() {
	ctx := p.cron.Stop()
	select {
	case <-ctx.Done():
		p.logger.WithField("component", "history_pruner").Info("History pruner stopped")
	case <-time.After(5 * time.Second):
		p.logger.WithField("component", "history_pruner").Warn("History pruner stop timed out")
	}
}

// PruneOnce deletes every run older than the retention window.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	return p.store.Prune(ctx, p.now().Add(-p.retention))
}

func (p *Pruner) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := p.PruneOnce(ctx)
	if err != nil {
		p.logger.WithError(err).Error("Failed to prune optimization history")
		return
	}
	p.logger.WithFields(logrus.Fields{
		"component": "history_pruner",
		"removed":   removed,
	}).Info("Pruned optimization history")
}
