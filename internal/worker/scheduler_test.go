package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/observability"
)

type fakeStats struct {
	stats *domain.TicketStats
	err   error
}

func (f fakeStats) Global(context.Context) (*domain.TicketStats, error) {
	return f.stats, f.err
}

func TestStatsSnapshotJob_RecordsGauges(t *testing.T) {
	avg := int64(42)
	metrics := observability.NewMetrics()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	job := StatsSnapshotJob(fakeStats{stats: &domain.TicketStats{Open: 2, Total: 2, Urgent: 1, AvgResponseTime: &avg}}, metrics, func() time.Time { return at })

	require.NoError(t, job(context.Background()))

	snap := metrics.Snapshot()
	assert.Equal(t, 2.0, snap.Gauges["tickets_open"])
	assert.Equal(t, 1.0, snap.Gauges["tickets_priority_urgent"])
	assert.Equal(t, 42.0, snap.Gauges["tickets_avg_response_minutes"])
	_, hasResolution := snap.Gauges["tickets_avg_resolution_hours"]
	assert.False(t, hasResolution)
	require.NotNil(t, snap.GaugesAt)
	assert.Equal(t, at, *snap.GaugesAt)
}

func TestStatsSnapshotJob_PropagatesErrors(t *testing.T) {
	metrics := observability.NewMetrics()
	job := StatsSnapshotJob(fakeStats{err: errors.New("db down")}, metrics, time.Now)

	assert.Error(t, job(context.Background()))
	assert.Empty(t, metrics.Snapshot().Gauges)
}

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	noop := func(context.Context) error { return nil }

	assert.NoError(t, s.Register("disabled", "", noop))
	assert.NoError(t, s.Register("every", "@every 1m", noop))
	assert.Error(t, s.Register("broken", "not a cron spec", noop))
	assert.Len(t, s.cron.Entries(), 1)
}
