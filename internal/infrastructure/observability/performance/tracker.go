package performance

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

// Tracker keeps the most recent completed markers in a ring and flags
// operations that exceed the slow threshold
type Tracker struct {
	mu      sync.RWMutex
	ring    []Record
	next    int
	full    bool
	active  int
	started time.Time
	config  *TrackerConfig
	logger  *logging.ChanneledLogger
}

type TrackerConfig struct {
	MaxMarkers    int           `json:"maxMarkers"`
	SlowThreshold time.Duration `json:"slowThreshold"`
}

func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:    1000,
		SlowThreshold: 500 * time.Millisecond,
	}
}

func NewTracker(config *TrackerConfig, logger *logging.ChanneledLogger) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	if config.MaxMarkers <= 0 {
		config.MaxMarkers = DefaultTrackerConfig().MaxMarkers
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Tracker{
		ring:    make([]Record, config.MaxMarkers),
		started: time.Now(),
		config:  config,
		logger:  logger,
	}
}

// StartOperation begins timing an operation. Markers count as successful
// until SetError or SetSuccess(false) says otherwise.
func (t *Tracker) StartOperation(operation, sessionID string) *Marker {
	t.mu.Lock()
	t.active++
	t.mu.Unlock()
	return &Marker{
		Record: Record{
			Operation: operation,
			SessionID: sessionID,
			StartTime: time.Now(),
			Success:   true,
		},
		tracker: t,
	}
}

func (t *Tracker) record(m *Marker) {
	snap := m.snapshot()
	t.mu.Lock()
	t.active--
	t.ring[t.next] = snap
	t.next = (t.next + 1) % len(t.ring)
	if t.next == 0 {
		t.full = true
	}
	t.mu.Unlock()

	if t.config.SlowThreshold > 0 && snap.Duration > t.config.SlowThreshold {
		t.logger.System().Warn("Slow operation", "operation", snap.Operation, "sessionId", snap.SessionID,
			"duration", snap.Duration, "threshold", t.config.SlowThreshold)
	}
}

// Recent returns completed records newest first, optionally filtered by
// operation
func (t *Tracker) Recent(operation string, limit int) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	size := t.next
	if t.full {
		size = len(t.ring)
	}
	out := make([]Record, 0, size)
	for i := 0; i < size; i++ {
		idx := (t.next - 1 - i + len(t.ring)) % len(t.ring)
		m := t.ring[idx]
		if operation != "" && m.Operation != operation {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Stats aggregates the recorded markers per operation, sorted by name
func (t *Tracker) Stats() []OperationStats {
	byOp := make(map[string]*OperationStats)
	totals := make(map[string]time.Duration)
	for _, m := range t.Recent("", 0) {
		s, ok := byOp[m.Operation]
		if !ok {
			s = &OperationStats{Operation: m.Operation}
			byOp[m.Operation] = s
		}
		s.Count++
		if !m.Success {
			s.Failures++
		}
		if t.config.SlowThreshold > 0 && m.Duration > t.config.SlowThreshold {
			s.Slow++
		}
		if m.Duration > s.Max {
			s.Max = m.Duration
		}
		if m.EndTime.After(s.Last) {
			s.Last = m.EndTime
		}
		totals[m.Operation] += m.Duration
	}
	out := make([]OperationStats, 0, len(byOp))
	for op, s := range byOp {
		s.Average = totals[op] / time.Duration(s.Count)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

// GetOverallStats returns process-wide tracker figures
func (t *Tracker) GetOverallStats() map[string]any {
	t.mu.RLock()
	recorded := t.next
	if t.full {
		recorded = len(t.ring)
	}
	active := t.active
	t.mu.RUnlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	return map[string]any{
		"trackerUptime":       time.Since(t.started).String(),
		"activeOperations":    active,
		"completedOperations": recorded,
		"memoryUsageMB":       memStats.Alloc / (1024 * 1024),
		"systemMemoryMB":      memStats.Sys / (1024 * 1024),
		"goroutines":          runtime.NumGoroutine(),
	}
}
