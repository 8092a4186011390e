package entitlement

import (
	"context"
	"time"

	"github.com/rankforge/rankforge/pkg/async"
	"github.com/rankforge/rankforge/pkg/observability"
)

const recordTimeout = 5 * time.Second

// Recorder persists usage deltas for metering. It is a best-effort side
// channel: failures are logged and counted but never propagated, so metering
// can never be the reason a legitimate action fails.
type Recorder struct {
	sink    UsageSink
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRecorder creates a usage recorder. metrics may be nil.
func NewRecorder(sink UsageSink, logger *observability.Logger, metrics *observability.Metrics) *Recorder {
	return &Recorder{sink: sink, logger: logger, metrics: metrics}
}

// Record increments the team's usage counter for a feature in the current
// billing period. Fire-and-forget: returns immediately, swallows all sink
// failures.
func (r *Recorder) Record(ctx context.Context, teamID int64, feature string, amount int64) {
	if amount <= 0 {
		amount = 1
	}
	period := BillingPeriod(time.Now())

	async.SafeGo(context.WithoutCancel(ctx), recordTimeout, "usage metering", func(ctx context.Context) error {
		if err := r.sink.AddUsage(ctx, teamID, feature, period, amount); err != nil {
			r.logger.WithError(err).
				WithField("team_id", teamID).
				WithField("feature", feature).
				Warn("Failed to record usage delta")
			if r.metrics != nil {
				r.metrics.UsageRecordFailures.Inc()
			}
			return nil // swallowed: metering is observability, not authorization
		}
		if r.metrics != nil {
			r.metrics.UsageRecordsTotal.WithLabelValues(feature).Inc()
		}
		return nil
	})
}

// RecordSync is Record without the goroutine, for callers that need the write
// flushed before returning (tests, batch jobs). Failures are still swallowed.
func (r *Recorder) RecordSync(ctx context.Context, teamID int64, feature string, amount int64) {
	if amount <= 0 {
		amount = 1
	}
	period := BillingPeriod(time.Now())

	if err := r.sink.AddUsage(ctx, teamID, feature, period, amount); err != nil {
		r.logger.WithError(err).
			WithField("team_id", teamID).
			WithField("feature", feature).
			Warn("Failed to record usage delta")
		if r.metrics != nil {
			r.metrics.UsageRecordFailures.Inc()
		}
		return
	}
	if r.metrics != nil {
		r.metrics.UsageRecordsTotal.WithLabelValues(feature).Inc()
	}
}
