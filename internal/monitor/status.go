package monitor

import (
	"sync"
	"time"

	"codeberg.org/mutker/turbinemon/internal/estimator"
	"codeberg.org/mutker/turbinemon/internal/metrics"
)

// Counters tally what happened to incoming lines.
type Counters struct {
	Samples        uint64 `json:"samples"`
	Noise          uint64 `json:"noise"`
	ParseErrors    uint64 `json:"parse_errors"`
	PropertyErrors uint64 `json:"property_errors"`
}

// StatusSnapshot is a point-in-time copy of the session status.
type StatusSnapshot struct {
	State      string            `json:"state"`
	Connected  bool              `json:"connected"`
	StartedAt  time.Time         `json:"started_at"`
	LastReport *metrics.Snapshot `json:"last_report,omitempty"`
	LastError  string            `json:"last_error,omitempty"`
	Counters   Counters          `json:"counters"`
}

// Status is written by the session loop and read by anyone else.
type Status struct {
	mu       sync.RWMutex
	snapshot StatusSnapshot
}

func NewStatus() *Status {
	return &Status{
		snapshot: StatusSnapshot{
			State:     estimator.Uncalibrated.String(),
			StartedAt: time.Now().UTC(),
		},
	}
}

// Snapshot returns a copy safe to use without holding any lock.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.snapshot
	if s.snapshot.LastReport != nil {
		report := *s.snapshot.LastReport
		out.LastReport = &report
	}

	return out
}

func (s *Status) setConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Connected = connected
}

func (s *Status) recordNoise() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Counters.Noise++
}

func (s *Status) recordParseError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Counters.ParseErrors++
	s.snapshot.LastError = err.Error()
}

func (s *Status) recordPropertyError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Counters.PropertyErrors++
	s.snapshot.LastError = err.Error()
}

func (s *Status) recordReport(report metrics.Snapshot, state estimator.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Counters.Samples++
	s.snapshot.State = state.String()
	s.snapshot.LastReport = &report
}
