package surface

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

const DefaultErrorBuffer = 100

// ErrorCollector keeps the most recent boundary errors of one session
type ErrorCollector struct {
	sessionID string
	logger    *logging.ChanneledLogger

	mu      sync.Mutex
	entries []*BoundaryError
	next    int
	total   int
}

func NewErrorCollector(sessionID string, capacity int, logger *logging.ChanneledLogger) *ErrorCollector {
	if capacity <= 0 {
		capacity = DefaultErrorBuffer
	}
	return &ErrorCollector{
		sessionID: sessionID,
		logger:    logger,
		entries:   make([]*BoundaryError, 0, capacity),
	}
}

// Record stamps, stores and logs a boundary error
func (c *ErrorCollector) Record(be *BoundaryError) {
	if be.ID == "" {
		be.ID = uuid.NewString()
	}
	if be.At.IsZero() {
		be.At = time.Now().UTC()
	}

	c.mu.Lock()
	if len(c.entries) < cap(c.entries) {
		c.entries = append(c.entries, be)
	} else {
		c.entries[c.next] = be
		c.next = (c.next + 1) % len(c.entries)
	}
	c.total++
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.LogBoundaryError(c.sessionID, string(be.Code), string(be.MessageType), be.ElementID, be.Err)
	}
}

// List returns stored errors oldest first
func (c *ErrorCollector) List() []BoundaryError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]BoundaryError, 0, len(c.entries))
	for i := 0; i < len(c.entries); i++ {
		out = append(out, *c.entries[(c.next+i)%len(c.entries)])
	}
	return out
}

// Total counts every error ever recorded, including evicted ones
func (c *ErrorCollector) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func (c *ErrorCollector) Clear() {
	c.mu.Lock()
	c.entries = c.entries[:0]
	c.next = 0
	c.mu.Unlock()
}
