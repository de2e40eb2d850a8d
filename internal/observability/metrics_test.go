package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_SnapshotCopiesCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/tickets", "GET", 200, 5*time.Millisecond)
	m.RecordError("/tickets/:id", "PATCH", "FORBIDDEN")

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.SetGauges(map[string]float64{"tickets_open": 3}, at)

	snap := m.Snapshot()
	require.Len(t, snap.Requests, 1)
	assert.Equal(t, RequestStat{Key: "/tickets|GET|200", Count: 2, TotalMillis: 20}, snap.Requests[0])
	assert.Equal(t, int64(1), snap.Errors["/tickets/:id|PATCH|FORBIDDEN"])
	assert.Equal(t, 3.0, snap.Gauges["tickets_open"])
	require.NotNil(t, snap.GaugesAt)
	assert.Equal(t, at, *snap.GaugesAt)

	snap.Gauges["tickets_open"] = 99
	assert.Equal(t, 3.0, m.Snapshot().Gauges["tickets_open"])
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.SetGauges(nil, time.Now())
	assert.Empty(t, m.Snapshot().Requests)
}
