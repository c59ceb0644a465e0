// Package performance times editor operations (saves, publishes, preview
// renders, image processing) and keeps a bounded record of recent runs.
package performance

import (
	"sync"
	"time"
)

// Record is the result of one timed operation
type Record struct {
	Operation string         `json:"operation"` // e.g. "session:save", "asset:attach_image"
	SessionID string         `json:"sessionId,omitempty"`
	StartTime time.Time      `json:"startTime"`
	EndTime   time.Time      `json:"endTime"`
	Duration  time.Duration  `json:"duration"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Completed bool           `json:"completed"`
}

// Marker times an operation in flight
type Marker struct {
	Record

	mu      sync.Mutex
	tracker *Tracker
}

// Complete stops the clock and hands the marker to its tracker. Later
// calls are ignored.
func (m *Marker) Complete() {
	m.mu.Lock()
	if m.Completed {
		m.mu.Unlock()
		return
	}
	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime)
	m.Completed = true
	m.mu.Unlock()

	if m.tracker != nil {
		m.tracker.record(m)
	}
}

func (m *Marker) SetSuccess(success bool) {
	m.mu.Lock()
	m.Success = success
	m.mu.Unlock()
}

// SetError records err and marks the operation failed
func (m *Marker) SetError(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.Error = err.Error()
	m.Success = false
	m.mu.Unlock()
}

func (m *Marker) AddMetadata(key string, value any) {
	m.mu.Lock()
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
	m.mu.Unlock()
}

// snapshot copies the record
func (m *Marker) snapshot() Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.Record
	if len(m.Metadata) > 0 {
		out.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// OperationStats aggregates the recorded runs of one operation
type OperationStats struct {
	Operation string        `json:"operation"`
	Count     int           `json:"count"`
	Failures  int           `json:"failures"`
	Slow      int           `json:"slow"`
	Average   time.Duration `json:"average"`
	Max       time.Duration `json:"max"`
	Last      time.Time     `json:"last"`
}
