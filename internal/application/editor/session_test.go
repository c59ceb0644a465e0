package editor

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	tree := canvas.NewElementTree(&canvas.Element{ID: "root", Tag: "body"})
	n := 0
	return NewSession("s1", canvas.Document{ID: "doc", Name: "Home"}, tree, Options{
		NewID: func() string { n++; return fmt.Sprintf("e%d", n) },
	})
}

func ptr(s string) *string { return &s }

func mustCreate(t *testing.T, s *Session, tag, parent string) string {
	t.Helper()
	id, err := s.CreateElement(canvas.ElementData{Tag: tag}, parent, canvas.AppendPosition)
	require.NoError(t, err)
	return id
}

func TestCreateAppendsToRootAndSelects(t *testing.T) {
	s := newTestSession(t)

	id, err := s.CreateElement(canvas.ElementData{Tag: "p", TextContent: "hi"}, "", canvas.AppendPosition)
	require.NoError(t, err)

	tree := s.Tree()
	assert.Equal(t, []string{id}, tree.Children("root"))
	el, ok := tree.Get(id)
	require.True(t, ok)
	assert.Equal(t, "hi", el.TextContent)
	assert.Equal(t, "root", el.ParentID)

	st := s.State()
	assert.Equal(t, id, canvas.IDValue(st.SelectedElementID))
	assert.True(t, st.Dirty)
	assert.True(t, st.CanUndo)
}

func TestCreateRejectsMissingParent(t *testing.T) {
	s := newTestSession(t)
	_, err := s.CreateElement(canvas.ElementData{}, "ghost", canvas.AppendPosition)
	assert.ErrorIs(t, err, canvas.ErrElementNotFound)
	assert.False(t, s.State().CanUndo)
}

func TestDeleteParentClearsSelection(t *testing.T) {
	s := newTestSession(t)
	parent := mustCreate(t, s, "div", "")
	mustCreate(t, s, "p", parent)
	child2 := mustCreate(t, s, "p", parent)
	mustCreate(t, s, "p", parent)
	s.Select(ptr(child2))
	require.Equal(t, 5, s.Tree().Len())

	require.NoError(t, s.DeleteElement(parent))

	assert.Equal(t, 1, s.Tree().Len())
	assert.Nil(t, s.State().SelectedElementID)
}

func TestDeleteRootRejected(t *testing.T) {
	s := newTestSession(t)
	assert.ErrorIs(t, s.DeleteElement("root"), canvas.ErrRootImmutable)
}

func TestMissingIDsAreNoops(t *testing.T) {
	s := newTestSession(t)
	mustCreate(t, s, "div", "")
	before := s.Tree()
	undoDepth := s.State().UndoDepth
	text := "x"

	changed, err := s.UpdateElement("ghost", canvas.ElementPatch{TextContent: &text})
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, s.DeleteElement("ghost"))
	assert.NoError(t, s.MoveElement("ghost", "", canvas.AppendPosition))
	assert.False(t, s.UpdateStyles("ghost", canvas.LayerBase, canvas.StyleMap{"color": "red"}))
	id, err := s.DuplicateElement("ghost")
	assert.NoError(t, err)
	assert.Empty(t, id)

	assert.True(t, s.Tree().Equal(before))
	assert.Equal(t, undoDepth, s.State().UndoDepth)
}

func TestSelectStaleIDFallsBackToNil(t *testing.T) {
	s := newTestSession(t)
	id := mustCreate(t, s, "div", "")
	s.Select(ptr(id))
	s.Select(ptr("ghost"))
	assert.Nil(t, s.State().SelectedElementID)

	s.Hover(ptr(id))
	s.Select(nil)
	st := s.State()
	assert.Nil(t, st.SelectedElementID)
	assert.Equal(t, id, canvas.IDValue(st.HoveredElementID))
}

func TestDuplicateInsertsAfterAndSelectsClone(t *testing.T) {
	s := newTestSession(t)
	a := mustCreate(t, s, "div", "")
	mustCreate(t, s, "img", a)
	b := mustCreate(t, s, "p", "")
	s.UpdateStyles(a, canvas.StyleLayer(canvas.BreakpointTablet), canvas.StyleMap{"color": "blue"})

	clone, err := s.DuplicateElement(a)
	require.NoError(t, err)

	tree := s.Tree()
	assert.Equal(t, []string{a, clone, b}, tree.Children("root"))
	require.Len(t, tree.Children(clone), 1)
	assert.NotEqual(t, tree.Children(a)[0], tree.Children(clone)[0])
	el, _ := tree.Get(clone)
	assert.Equal(t, "blue", el.Styles.Tablet["color"])
	assert.Equal(t, clone, canvas.IDValue(s.State().SelectedElementID))
}

func TestDragIntoDescendantRejected(t *testing.T) {
	s := newTestSession(t)
	a := mustCreate(t, s, "div", "")
	b := mustCreate(t, s, "div", a)
	before := s.Tree()

	require.NoError(t, s.StartDrag(a))
	require.NoError(t, s.UpdateDragTarget(b, canvas.DropInside))
	moved, err := s.EndDrag()

	assert.ErrorIs(t, err, canvas.ErrCycle)
	assert.False(t, moved)
	assert.True(t, s.Tree().Equal(before))
	assert.False(t, s.State().DragState.IsDragging)
}

func TestDragCommitsMove(t *testing.T) {
	s := newTestSession(t)
	a := mustCreate(t, s, "div", "")
	b := mustCreate(t, s, "div", "")
	c := mustCreate(t, s, "p", "")

	require.NoError(t, s.StartDrag(c))
	require.NoError(t, s.UpdateDragTarget(a, canvas.DropBefore))
	require.NoError(t, s.UpdateDragTarget(b, canvas.DropInside))
	moved, err := s.EndDrag()

	require.NoError(t, err)
	assert.True(t, moved)
	tree := s.Tree()
	assert.Equal(t, []string{c}, tree.Children(b))
	assert.Equal(t, []string{a, b}, tree.Children("root"))
	assert.Equal(t, canvas.DragState{}, s.State().DragState)
}

func TestDragGuards(t *testing.T) {
	s := newTestSession(t)
	img := mustCreate(t, s, "img", "")
	p := mustCreate(t, s, "p", "")

	assert.ErrorIs(t, s.StartDrag("root"), canvas.ErrRootImmutable)
	assert.False(t, s.State().DragState.IsDragging)

	assert.NoError(t, s.UpdateDragTarget(img, canvas.DropAfter), "ignored while idle")
	assert.Nil(t, s.State().DragState.DropTargetID)

	require.NoError(t, s.StartDrag(p))
	assert.ErrorIs(t, s.UpdateDragTarget(img, canvas.DropInside), canvas.ErrNotContainer)
	assert.ErrorIs(t, s.UpdateDragTarget(img, "sideways"), canvas.ErrInvalidPosition)

	moved, err := s.EndDrag()
	assert.NoError(t, err)
	assert.False(t, moved, "no target means no move")
}

func TestCancelDragHasNoTreeEffects(t *testing.T) {
	s := newTestSession(t)
	a := mustCreate(t, s, "div", "")
	b := mustCreate(t, s, "div", "")
	before := s.Tree()
	depth := s.State().UndoDepth

	require.NoError(t, s.StartDrag(a))
	require.NoError(t, s.UpdateDragTarget(b, canvas.DropInside))
	s.CancelDrag()

	assert.True(t, s.Tree().Equal(before))
	assert.Equal(t, depth, s.State().UndoDepth)
	assert.False(t, s.State().DragState.IsDragging)
}

func TestDeletingDragSourceCancelsDrag(t *testing.T) {
	s := newTestSession(t)
	a := mustCreate(t, s, "div", "")
	b := mustCreate(t, s, "div", "")

	require.NoError(t, s.StartDrag(a))
	require.NoError(t, s.UpdateDragTarget(b, canvas.DropInside))
	require.NoError(t, s.DeleteElement(b))

	st := s.State()
	assert.False(t, st.DragState.IsDragging)
	assert.Nil(t, st.DragState.DraggedElementID)
	moved, err := s.EndDrag()
	assert.NoError(t, err)
	assert.False(t, moved)
}

func TestUndoRedoRoundTrip(t *testing.T) {
	s := newTestSession(t)
	a := mustCreate(t, s, "div", "")
	pre := s.Tree()

	require.True(t, s.UpdateStyles(a, canvas.LayerBase, canvas.StyleMap{"color": "red"}))
	post := s.Tree()

	require.True(t, s.Undo())
	assert.True(t, s.Tree().Equal(pre))
	require.True(t, s.Redo())
	assert.True(t, s.Tree().Equal(post))

	require.True(t, s.Undo())
	mustCreate(t, s, "p", "")
	assert.False(t, s.Redo(), "new mutation clears redo")
}

func TestUndoAllReturnsToInitial(t *testing.T) {
	s := newTestSession(t)
	initial := s.Tree()

	a := mustCreate(t, s, "div", "")
	b := mustCreate(t, s, "p", a)
	s.CommitText(b, "hello")
	_, err := s.DuplicateElement(a)
	require.NoError(t, err)
	require.NoError(t, s.MoveElement(b, "", 0))
	require.NoError(t, s.DeleteElement(a))

	for i := 0; i < 6; i++ {
		require.True(t, s.Undo(), "undo %d", i)
	}
	assert.False(t, s.Undo())
	assert.True(t, s.Tree().Equal(initial))
}

func TestUndoCapEvictsOldest(t *testing.T) {
	s := newTestSession(t)
	a := mustCreate(t, s, "div", "")
	afterFirst := s.Tree()

	for i := 0; i < 50; i++ {
		require.True(t, s.UpdateStyles(a, canvas.LayerBase, canvas.StyleMap{"width": fmt.Sprintf("%dpx", i)}))
	}
	assert.Equal(t, 50, s.State().UndoDepth)

	for i := 0; i < 50; i++ {
		require.True(t, s.Undo())
	}
	assert.False(t, s.Undo())
	assert.True(t, s.Tree().Equal(afterFirst))
}

func TestHistoryIsolatedFromLiveEdits(t *testing.T) {
	s := newTestSession(t)
	a := mustCreate(t, s, "div", "")
	s.UpdateStyles(a, canvas.LayerBase, canvas.StyleMap{"color": "red"})
	snapshot := s.Tree()

	s.UpdateStyles(a, canvas.LayerBase, canvas.StyleMap{"color": "blue"})
	el, _ := s.Element(a)
	el.Styles.Base["color"] = "green"

	require.True(t, s.Undo())
	assert.True(t, s.Tree().Equal(snapshot))
}

func TestCommitTextEndsEdit(t *testing.T) {
	s := newTestSession(t)
	p := mustCreate(t, s, "p", "")
	require.True(t, s.BeginTextEdit(p))
	assert.Equal(t, p, canvas.IDValue(s.State().TextEditElementID))

	assert.True(t, s.CommitText(p, "final"))
	assert.Nil(t, s.State().TextEditElementID)
	el, _ := s.Element(p)
	assert.Equal(t, "final", el.TextContent)

	depth := s.State().UndoDepth
	assert.False(t, s.CommitText(p, "final"))
	assert.Equal(t, depth, s.State().UndoDepth)
}

func TestSetInnerHTMLDerivesText(t *testing.T) {
	s := newTestSession(t)
	p := mustCreate(t, s, "p", "")

	ok, err := s.SetInnerHTML(p, "Hello <strong>big</strong><br>world")
	require.NoError(t, err)
	require.True(t, ok)

	el, _ := s.Element(p)
	assert.Equal(t, "Hello big\nworld", el.TextContent)
	assert.Equal(t, "Hello <strong>big</strong><br>world", el.InnerHTML)
}

func TestDropTemplate(t *testing.T) {
	s := newTestSession(t)
	a := mustCreate(t, s, "div", "")
	tpl := canvas.ElementTemplate{
		ID:  "card",
		Tag: "article",
		Children: []canvas.ElementTemplate{
			{Tag: "h2", DefaultProps: canvas.TemplateProps{TextContent: "Title"}},
			{Tag: "img", DefaultProps: canvas.TemplateProps{Attributes: map[string]string{"alt": ""}}},
		},
		DefaultStyles: canvas.Styles{Base: canvas.StyleMap{"padding": "8px"}},
	}

	id, err := s.DropTemplate(tpl, a, canvas.DropBefore)
	require.NoError(t, err)

	tree := s.Tree()
	assert.Equal(t, []string{id, a}, tree.Children("root"))
	kids := tree.Children(id)
	require.Len(t, kids, 2)
	h2, _ := tree.Get(kids[0])
	assert.Equal(t, "Title", h2.TextContent)
	assert.Equal(t, id, canvas.IDValue(s.State().SelectedElementID))

	id, err = s.DropTemplate(tpl, "ghost", canvas.DropInside)
	assert.NoError(t, err)
	assert.Empty(t, id)
}

func TestObserversNotifiedOutsideLock(t *testing.T) {
	s := newTestSession(t)
	var mu sync.Mutex
	var kinds []ChangeKind
	cancel := s.Subscribe(func(c Change) {
		// reading state would deadlock if the lock were still held
		_ = s.State()
		mu.Lock()
		kinds = append(kinds, c.Kind)
		mu.Unlock()
	})

	id := mustCreate(t, s, "div", "")
	s.Hover(ptr(id))
	require.NoError(t, s.SetViewport(canvas.BreakpointMobile))
	cancel()
	s.Hover(nil)

	require.Len(t, kinds, 3)
	assert.True(t, kinds[0].Has(ChangeTree))
	assert.True(t, kinds[0].Has(ChangeSelection))
	assert.Equal(t, ChangeHover, kinds[1])
	assert.Equal(t, ChangeViewport, kinds[2])
}

func TestMarkSavedKeepsLaterEditsDirty(t *testing.T) {
	s := newTestSession(t)
	mustCreate(t, s, "div", "")
	_, rev := s.Snapshot()

	mustCreate(t, s, "p", "")
	assert.False(t, s.MarkSaved(rev, canvas.StatusDraft, nil))
	assert.True(t, s.IsDirty())

	_, rev = s.Snapshot()
	assert.True(t, s.MarkSaved(rev, canvas.StatusDraft, nil))
	assert.False(t, s.IsDirty())
}

func TestSetViewportRejectsUnknown(t *testing.T) {
	s := newTestSession(t)
	assert.Error(t, s.SetViewport("watch"))
	assert.Equal(t, canvas.BreakpointDesktop, s.State().Viewport)
}

func TestSetAttributesMergesInOneStep(t *testing.T) {
	s := newTestSession(t)
	img := mustCreate(t, s, "img", "")
	require.True(t, s.SetAttributes(img, map[string]string{"alt": "Logo", "src": "/a.png"}))
	undoBefore := s.State().UndoDepth

	require.True(t, s.SetAttributes(img, map[string]string{"src": "/b.webp", "srcset": "/b.webp 375w", "alt": ""}))
	el, _ := s.Element(img)
	assert.Equal(t, map[string]string{"src": "/b.webp", "srcset": "/b.webp 375w"}, el.Attributes)
	assert.Equal(t, undoBefore+1, s.State().UndoDepth)

	assert.False(t, s.SetAttributes(img, map[string]string{"src": "/b.webp"}))
	assert.False(t, s.SetAttributes("missing", map[string]string{"src": "x"}))
}

func TestRetagContainerToVoidRejected(t *testing.T) {
	s := newTestSession(t)
	div := mustCreate(t, s, "div", "")
	mustCreate(t, s, "p", div)
	before := s.Tree()
	depth := s.State().UndoDepth
	img := "img"

	changed, err := s.UpdateElement(div, canvas.ElementPatch{Tag: &img})
	assert.ErrorIs(t, err, canvas.ErrNotContainer)
	assert.False(t, changed)
	changed, err = s.UpdateElement("root", canvas.ElementPatch{Tag: &img})
	assert.ErrorIs(t, err, canvas.ErrNotContainer)
	assert.False(t, changed)

	assert.True(t, s.Tree().Equal(before))
	assert.Equal(t, depth, s.State().UndoDepth)
}

func TestClearDragTargetMakesDropANoop(t *testing.T) {
	s := newTestSession(t)
	a := mustCreate(t, s, "div", "")
	b := mustCreate(t, s, "p", "")
	before := s.Tree()

	require.NoError(t, s.StartDrag(b))
	require.NoError(t, s.UpdateDragTarget(a, canvas.DropInside))
	s.ClearDragTarget()

	drag := s.State().DragState
	assert.True(t, drag.IsDragging)
	assert.Nil(t, drag.DropTargetID)
	assert.Equal(t, canvas.DropNone, drag.DropPosition)

	moved, err := s.EndDrag()
	assert.NoError(t, err)
	assert.False(t, moved)
	assert.True(t, s.Tree().Equal(before))
}
