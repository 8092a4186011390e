package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rankforge/rankforge/pkg/observability"
)

const snapshotTimeout = 2 * time.Minute

// Snapshotter periodically copies the hot Redis counters into postgres so a
// Redis flush cannot erase a billing period's usage. Runs on a cron schedule
// in one goroutine; each run is bounded by snapshotTimeout.
type Snapshotter struct {
	source *RedisStore
	sink   *PostgresStore
	logger *observability.Logger
	cron   *cron.Cron
}

// NewSnapshotter creates a usage snapshotter
func NewSnapshotter(source *RedisStore, sink *PostgresStore, logger *observability.Logger) *Snapshotter {
	return &Snapshotter{
		source: source,
		sink:   sink,
		logger: logger.WithField("component", "usage_snapshotter"),
		cron:   cron.New(),
	}
}

// Start begins snapshotting on the given cron schedule (e.g. "@every 5m")
func (s *Snapshotter) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		if err := s.Snapshot(ctx); err != nil {
			s.logger.WithError(err).Error("Usage snapshot run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish
func (s *Snapshotter) Stop() {
	<-s.cron.Stop().Done()
}

// Snapshot copies every counter currently in Redis to postgres. Counters
// that fail to persist are logged and skipped so one bad row does not stall
// the rest.
func (s *Snapshotter) Snapshot(ctx context.Context) error {
	counters, err := s.source.Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan usage counters: %w", err)
	}

	var failed int
	for _, c := range counters {
		if err := s.sink.Upsert(ctx, c); err != nil {
			failed++
			s.logger.WithError(err).
				WithField("team_id", c.TeamID).
				WithField("feature", c.Feature).
				Warn("Failed to persist usage counter")
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"counters": len(counters),
		"failed":   failed,
	}).Debug("Usage snapshot complete")

	if failed > 0 {
		return fmt.Errorf("failed to persist %d of %d usage counters", failed, len(counters))
	}
	return nil
}
