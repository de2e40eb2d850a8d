package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters and gauges.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	requestMillis map[string]int64
	errorCount    map[string]int64
	gauges        map[string]float64
	gaugesAt      time.Time
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		requestMillis: make(map[string]int64),
		errorCount:    make(map[string]int64),
		gauges:        make(map[string]float64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestMillis[key] += duration.Milliseconds()
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// SetGauges replaces the gauge set, e.g. with a fresh ticket stats snapshot.
func (m *Metrics) SetGauges(values map[string]float64, at time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges = make(map[string]float64, len(values))
	for k, v := range values {
		m.gauges[k] = v
	}
	m.gaugesAt = at
}

// RequestStat is one row of the request counters.
type RequestStat struct {
	Key         string `json:"key"`
	Count       int64  `json:"count"`
	TotalMillis int64  `json:"totalMillis"`
}

// Snapshot is a point-in-time copy of every metric.
type Snapshot struct {
	Requests []RequestStat      `json:"requests"`
	Errors   map[string]int64   `json:"errors"`
	Gauges   map[string]float64 `json:"gauges"`
	GaugesAt *time.Time         `json:"gaugesAt,omitempty"`
}

// Snapshot copies the current values.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Requests: []RequestStat{}, Errors: map[string]int64{}, Gauges: map[string]float64{}}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, count := range m.requestCount {
		snap.Requests = append(snap.Requests, RequestStat{Key: key, Count: count, TotalMillis: m.requestMillis[key]})
	}
	sort.Slice(snap.Requests, func(i, j int) bool { return snap.Requests[i].Key < snap.Requests[j].Key })
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	for k, v := range m.gauges {
		snap.Gauges[k] = v
	}
	if !m.gaugesAt.IsZero() {
		at := m.gaugesAt
		snap.GaugesAt = &at
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
