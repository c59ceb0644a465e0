package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
)

func treeWithChildren(n int) *canvas.ElementTree {
	tree := canvas.NewElementTree(&canvas.Element{ID: "root", Tag: "body"})
	for i := 0; i < n; i++ {
		_ = tree.Insert(canvas.NewElement(string(rune('a'+i)), canvas.ElementData{}), "root", canvas.AppendPosition)
	}
	return tree
}

func TestHistoryPushCopies(t *testing.T) {
	h := NewHistory(3)
	live := treeWithChildren(1)
	h.Push("one", live)
	_ = live.Insert(canvas.NewElement("z", canvas.ElementData{}), "root", canvas.AppendPosition)

	prev, ok := h.Undo(live)
	require.True(t, ok)
	assert.Equal(t, 2, prev.Len())
}

func TestHistoryEviction(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Push("step", treeWithChildren(i))
	}
	undo, redo := h.Len()
	assert.Equal(t, 3, undo)
	assert.Equal(t, 0, redo)

	current := treeWithChildren(5)
	for want := 4; want >= 2; want-- {
		prev, ok := h.Undo(current)
		require.True(t, ok)
		assert.Equal(t, want+1, prev.Len())
		current = prev
	}
	_, ok := h.Undo(current)
	assert.False(t, ok)
	assert.True(t, h.CanRedo())
}

func TestHistoryRedoClearedByPush(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, DefaultHistoryLimit, h.Limit())

	h.Push("a", treeWithChildren(0))
	_, ok := h.Undo(treeWithChildren(1))
	require.True(t, ok)
	require.True(t, h.CanRedo())

	h.Push("b", treeWithChildren(0))
	assert.False(t, h.CanRedo())
	_, ok = h.Redo(treeWithChildren(0))
	assert.False(t, ok)
}
