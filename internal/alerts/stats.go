package alerts

import (
	"sync/atomic"
	"time"
)

// Stats counts messages sent since process start.
type Stats struct {
	signals atomic.Int64
	alerts  atomic.Int64
	since   time.Time
}

// StatsSnapshot is a copy of the counters.
type StatsSnapshot struct {
	SignalsSent int64     `json:"signals_sent"`
	AlertsSent  int64     `json:"alerts_sent"`
	Since       time.Time `json:"since"`
}

// NewStats creates counters starting now.
func NewStats() *Stats {
	return &Stats{since: time.Now()}
}

// AddSignals counts periodic signals sent.
func (s *Stats) AddSignals(n int) {
	if s != nil {
		s.signals.Add(int64(n))
	}
}

// AddAlerts counts urgent alerts delivered.
func (s *Stats) AddAlerts(n int) {
	if s != nil {
		s.alerts.Add(int64(n))
	}
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		SignalsSent: s.signals.Load(),
		AlertsSent:  s.alerts.Load(),
		Since:       s.since,
	}
}
