package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LogEntry is one line of the in-memory log tail
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	SessionID string    `json:"sessionId,omitempty"`
}

// RecentLogs keeps the newest log entries in a fixed-size ring
type RecentLogs struct {
	mu      sync.Mutex
	entries []LogEntry
	next    int
	full    bool
}

func NewRecentLogs(capacity int) *RecentLogs {
	return &RecentLogs{entries: make([]LogEntry, capacity)}
}

func (r *RecentLogs) add(e LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// Entries returns matching entries oldest first. An empty channel matches
// every channel; entries below minLevel are skipped.
func (r *RecentLogs) Entries(channel Channel, minLevel slog.Level, limit int) []LogEntry {
	r.mu.Lock()
	var ordered []LogEntry
	if r.full {
		ordered = append(ordered, r.entries[r.next:]...)
	}
	ordered = append(ordered, r.entries[:r.next]...)
	r.mu.Unlock()

	out := make([]LogEntry, 0, len(ordered))
	for _, e := range ordered {
		if channel != "" && Channel(e.Channel) != channel {
			continue
		}
		if ParseLevel(e.Level) < minLevel {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// teeHandler forwards records to the primary handler and the recent ring
type teeHandler struct {
	primary   slog.Handler
	recent    *RecentLogs
	level     slog.Level
	channel   string
	sessionID string
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level || h.primary.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	sessionID := h.sessionID
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "sessionId" {
			sessionID = a.Value.String()
			return false
		}
		return true
	})
	h.recent.add(LogEntry{
		Timestamp: r.Time,
		Channel:   h.channel,
		Level:     r.Level.String(),
		Message:   r.Message,
		SessionID: sessionID,
	})
	if !h.primary.Enabled(ctx, r.Level) {
		return nil
	}
	return h.primary.Handle(ctx, r)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.primary = h.primary.WithAttrs(attrs)
	for _, a := range attrs {
		switch a.Key {
		case "channel":
			next.channel = a.Value.String()
		case "sessionId":
			next.sessionID = a.Value.String()
		}
	}
	return &next
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.primary = h.primary.WithGroup(name)
	return &next
}
