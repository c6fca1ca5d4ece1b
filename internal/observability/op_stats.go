// Package observability tracks which frame operations run, how long they
// take and which columns they touch, and exports the counts to Prometheus.
package observability

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OpStats records operation outcomes and column usage.
type OpStats struct {
	mu        sync.RWMutex
	columns   map[string]*ColumnStats
	window    time.Duration
	registry  *prometheus.Registry
	ops       *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// ColumnStats holds usage statistics for a column label.
type ColumnStats struct {
	Column    string
	Frequency int64
	LastSeen  time.Time
	Ops       map[string]int // operation → count (e.g., "filter" → 5)
}

// NewOpStats creates a tracker with its own Prometheus registry.
// window: age after which Prune drops a column (e.g., 1 hour)
func NewOpStats(window time.Duration) *OpStats {
	s := &OpStats{
		columns:  make(map[string]*ColumnStats),
		window:   window,
		registry: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "framekit_operations_total",
			Help: "Frame operations by name and outcome.",
		}, []string{"op", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "framekit_operation_duration_seconds",
			Help:    "Frame operation latency.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"op"}),
	}
	s.registry.MustRegister(s.ops, s.durations)
	return s
}

// Observe records one finished operation. status is "ok" when err is nil and
// "error" otherwise.
func (s *OpStats) Observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.ops.WithLabelValues(op, status).Inc()
	s.durations.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RecordColumn records that op used the column.
func (s *OpStats) RecordColumn(column, op string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, exists := s.columns[column]
	if !exists {
		stats = &ColumnStats{
			Column: column,
			Ops:    make(map[string]int),
		}
		s.columns[column] = stats
	}

	stats.Frequency++
	stats.LastSeen = time.Now()
	stats.Ops[op]++
}

// GetTopColumns returns copies of the n most used columns, most used first.
// Ties are broken by name.
func (s *OpStats) GetTopColumns(n int) []ColumnStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || len(s.columns) == 0 {
		return []ColumnStats{}
	}

	stats := make([]ColumnStats, 0, len(s.columns))
	for _, c := range s.columns {
		cp := ColumnStats{
			Column:    c.Column,
			Frequency: c.Frequency,
			LastSeen:  c.LastSeen,
			Ops:       make(map[string]int, len(c.Ops)),
		}
		for op, count := range c.Ops {
			cp.Ops[op] = count
		}
		stats = append(stats, cp)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Frequency != stats[j].Frequency {
			return stats[i].Frequency > stats[j].Frequency
		}
		return stats[i].Column < stats[j].Column
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// Prune removes columns not seen within the window.
func (s *OpStats) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := time.Now().Add(-s.window)
	for col, stats := range s.columns {
		if stats.LastSeen.Before(threshold) {
			delete(s.columns, col)
		}
	}
}

// Registry returns the registry holding the operation metrics.
func (s *OpStats) Registry() *prometheus.Registry {
	return s.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (s *OpStats) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
