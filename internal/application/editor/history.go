package editor

import (
	"time"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
)

// DefaultHistoryLimit caps the undo stack when no limit is configured
const DefaultHistoryLimit = 50

// HistoryEntry is one snapshot of the element tree
type HistoryEntry struct {
	Label     string
	Tree      *canvas.ElementTree
	CreatedAt time.Time
}

// History is a bounded linear undo/redo buffer. Every entry holds a deep
// copy, so later edits to the live tree never leak into history.
type History struct {
	limit int
	undo  []HistoryEntry
	redo  []HistoryEntry
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Push records the pre-mutation tree and invalidates redo. The oldest
// entry is evicted once the limit is reached.
func (h *History) Push(label string, tree *canvas.ElementTree) {
	h.Record(label, tree.Clone())
}

// Record is Push without the copy; the caller hands over ownership of tree
func (h *History) Record(label string, tree *canvas.ElementTree) {
	h.undo = append(h.undo, HistoryEntry{Label: label, Tree: tree, CreatedAt: time.Now()})
	if over := len(h.undo) - h.limit; over > 0 {
		copy(h.undo, h.undo[over:])
		for i := len(h.undo) - over; i < len(h.undo); i++ {
			h.undo[i] = HistoryEntry{}
		}
		h.undo = h.undo[:h.limit]
	}
	h.redo = nil
}

// Undo swaps current for the latest undo entry. ok is false when empty.
func (h *History) Undo(current *canvas.ElementTree) (*canvas.ElementTree, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	last := h.undo[len(h.undo)-1]
	h.undo[len(h.undo)-1] = HistoryEntry{}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, HistoryEntry{Label: last.Label, Tree: current.Clone(), CreatedAt: time.Now()})
	return last.Tree.Clone(), true
}

// Redo is the mirror of Undo
func (h *History) Redo(current *canvas.ElementTree) (*canvas.ElementTree, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	last := h.redo[len(h.redo)-1]
	h.redo[len(h.redo)-1] = HistoryEntry{}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, HistoryEntry{Label: last.Label, Tree: current.Clone(), CreatedAt: time.Now()})
	return last.Tree.Clone(), true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }

func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Len returns the undo and redo depths
func (h *History) Len() (undo, redo int) { return len(h.undo), len(h.redo) }

func (h *History) Limit() int { return h.limit }

func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

// Labels lists undo entry labels, oldest first
func (h *History) Labels() []string {
	out := make([]string, len(h.undo))
	for i, e := range h.undo {
		out[i] = e.Label
	}
	return out
}
