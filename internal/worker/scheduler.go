package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/observability"
)

// StatsSource computes the unscoped ticket aggregate.
type StatsSource interface {
	Global(ctx context.Context) (*domain.TicketStats, error)
}

// Scheduler runs periodic jobs on a cron scheduler.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
}

// NewScheduler builds a stopped scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), logger: logger, timeout: 30 * time.Second}
}

// Register schedules fn under spec. An empty spec leaves the job disabled.
func (s *Scheduler) Register(name, spec string, fn func(ctx context.Context) error) error {
	if spec == "" {
		s.logger.Info("job disabled", zap.String("job", name))
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		start := time.Now()
		if err := fn(ctx); err != nil {
			s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Debug("job finished", zap.String("job", name), zap.Duration("duration", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.logger.Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// StatsSnapshotJob records the global ticket stats as metric gauges.
func StatsSnapshotJob(source StatsSource, metrics *observability.Metrics, now func() time.Time) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		stats, err := source.Global(ctx)
		if err != nil {
			return err
		}
		metrics.SetGauges(StatsGauges(stats), now())
		return nil
	}
}

// StatsGauges flattens stats into gauge values. Missing averages are omitted.
func StatsGauges(stats *domain.TicketStats) map[string]float64 {
	gauges := map[string]float64{
		"tickets_open":            float64(stats.Open),
		"tickets_in_progress":     float64(stats.InProgress),
		"tickets_resolved":        float64(stats.Resolved),
		"tickets_closed":          float64(stats.Closed),
		"tickets_total":           float64(stats.Total),
		"tickets_priority_urgent": float64(stats.Urgent),
		"tickets_priority_high":   float64(stats.High),
		"tickets_priority_medium": float64(stats.Medium),
		"tickets_priority_low":    float64(stats.Low),
		"tickets_unassigned":      float64(stats.Unassigned),
		"tickets_no_response":     float64(stats.NoResponse),
	}
	if stats.AvgResponseTime != nil {
		gauges["tickets_avg_response_minutes"] = float64(*stats.AvgResponseTime)
	}
	if stats.AvgResolutionTime != nil {
		gauges["tickets_avg_resolution_hours"] = float64(*stats.AvgResolutionTime)
	}
	return gauges
}
