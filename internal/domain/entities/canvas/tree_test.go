package canvas

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T) *ElementTree {
	t.Helper()
	tree := NewElementTree(&Element{ID: "root", Tag: "body"})
	require.NoError(t, tree.Insert(NewElement("section", ElementData{Tag: "section"}), "root", AppendPosition))
	require.NoError(t, tree.Insert(NewElement("a", ElementData{Tag: "div"}), "section", AppendPosition))
	require.NoError(t, tree.Insert(NewElement("b", ElementData{Tag: "p", TextContent: "b"}), "section", AppendPosition))
	require.NoError(t, tree.Insert(NewElement("c", ElementData{Tag: "div"}), "section", AppendPosition))
	require.NoError(t, tree.Insert(NewElement("a1", ElementData{Tag: "img"}), "a", AppendPosition))
	return tree
}

func TestInsertAppendsAndClamps(t *testing.T) {
	tree := newTestTree(t)

	require.NoError(t, tree.Insert(NewElement("first", ElementData{}), "section", 0))
	require.NoError(t, tree.Insert(NewElement("last", ElementData{}), "section", 99))

	assert.Equal(t, []string{"first", "a", "b", "c", "last"}, tree.Children("section"))
	assert.Equal(t, "section", tree.Parent("first"))
}

func TestInsertRejectsBadTargets(t *testing.T) {
	tree := newTestTree(t)

	assert.ErrorIs(t, tree.Insert(NewElement("x", ElementData{}), "missing", AppendPosition), ErrElementNotFound)
	assert.ErrorIs(t, tree.Insert(NewElement("x", ElementData{}), "a1", AppendPosition), ErrNotContainer)
	assert.ErrorIs(t, tree.Insert(NewElement("b", ElementData{}), "root", AppendPosition), ErrDuplicateID)
	assert.False(t, tree.Has("x"))
}

func TestGetReturnsCopy(t *testing.T) {
	tree := newTestTree(t)

	el, ok := tree.Get("b")
	require.True(t, ok)
	el.TextContent = "changed"
	el.Styles.Base["color"] = "red"

	again, _ := tree.Get("b")
	assert.Equal(t, "b", again.TextContent)
	assert.Empty(t, again.Styles.Base)
}

func TestUpdateMissingIsNoop(t *testing.T) {
	tree := newTestTree(t)
	before := tree.Clone()

	text := "x"
	changed, err := tree.Update("nope", ElementPatch{TextContent: &text})
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, tree.Equal(before))
}

func TestUpdateMergesShallow(t *testing.T) {
	tree := newTestTree(t)
	text := "hello"

	changed, err := tree.Update("b", ElementPatch{
		TextContent: &text,
		Attributes:  map[string]string{"title": "t"},
	})
	require.NoError(t, err)
	require.True(t, changed)

	el, _ := tree.Get("b")
	assert.Equal(t, "hello", el.TextContent)
	assert.Equal(t, "p", el.Tag)
	assert.Equal(t, "section", el.ParentID)
	assert.Equal(t, map[string]string{"title": "t"}, el.Attributes)
}

func TestUpdateRefusesVoidTagOnContainer(t *testing.T) {
	tree := newTestTree(t)
	before := tree.Clone()
	img := "img"

	_, err := tree.Update("a", ElementPatch{Tag: &img})
	assert.ErrorIs(t, err, ErrNotContainer)
	_, err = tree.Update("root", ElementPatch{Tag: &img})
	assert.ErrorIs(t, err, ErrNotContainer)
	assert.True(t, tree.Equal(before))

	// leaves may become void
	changed, err := tree.Update("c", ElementPatch{Tag: &img})
	require.NoError(t, err)
	assert.True(t, changed)
	el, _ := tree.Get("c")
	assert.Equal(t, "img", el.Tag)
}

func TestRemoveCascades(t *testing.T) {
	tree := newTestTree(t)

	removed, err := tree.Remove("a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "a1"}, removed)
	assert.False(t, tree.Has("a1"))
	assert.Equal(t, []string{"b", "c"}, tree.Children("section"))

	_, err = tree.Remove("root")
	assert.ErrorIs(t, err, ErrRootImmutable)

	removed, err = tree.Remove("missing")
	assert.NoError(t, err)
	assert.Nil(t, removed)
}

func TestMoveWithinSameParent(t *testing.T) {
	tree := newTestTree(t)

	require.NoError(t, tree.Move("a", "section", AppendPosition))
	assert.Equal(t, []string{"b", "c", "a"}, tree.Children("section"))

	require.NoError(t, tree.Move("a", "section", 0))
	assert.Equal(t, []string{"a", "b", "c"}, tree.Children("section"))
}

func TestMoveRejectsCycles(t *testing.T) {
	tree := newTestTree(t)
	require.NoError(t, tree.Insert(NewElement("a2", ElementData{}), "a", AppendPosition))
	before := tree.Clone()

	assert.ErrorIs(t, tree.Move("a", "a2", AppendPosition), ErrCycle)
	assert.ErrorIs(t, tree.Move("a", "a", AppendPosition), ErrCycle)
	assert.ErrorIs(t, tree.Move("root", "a", AppendPosition), ErrRootImmutable)
	assert.ErrorIs(t, tree.Move("b", "a1", AppendPosition), ErrNotContainer)
	assert.True(t, tree.Equal(before))
}

func TestMoveRelative(t *testing.T) {
	tree := newTestTree(t)

	require.NoError(t, tree.MoveRelative("a", "c", DropAfter))
	assert.Equal(t, []string{"b", "c", "a"}, tree.Children("section"))

	require.NoError(t, tree.MoveRelative("a", "b", DropBefore))
	assert.Equal(t, []string{"a", "b", "c"}, tree.Children("section"))

	require.NoError(t, tree.MoveRelative("b", "c", DropInside))
	assert.Equal(t, []string{"b"}, tree.Children("c"))
	assert.Equal(t, "c", tree.Parent("b"))

	assert.ErrorIs(t, tree.MoveRelative("c", "b", DropInside), ErrCycle)
	assert.ErrorIs(t, tree.MoveRelative("c", "root", DropBefore), ErrInvalidPosition)
	assert.ErrorIs(t, tree.MoveRelative("c", "a1", DropInside), ErrNotContainer)
	assert.NoError(t, tree.MoveRelative("ghost", "a", DropInside))
}

func TestCloneSubtreeRegeneratesIDs(t *testing.T) {
	tree := newTestTree(t)
	n := 0
	next := func() string { n++; return fmt.Sprintf("n%d", n) }

	rootID, nodes := tree.CloneSubtree("a", next)
	require.Len(t, nodes, 2)
	assert.Equal(t, "n1", rootID)
	assert.Equal(t, []string{"n2"}, nodes[0].Children)
	assert.Equal(t, "n1", nodes[1].ParentID)
	assert.Equal(t, "img", nodes[1].Tag)

	require.NoError(t, tree.InsertSubtree(nodes, "section", tree.IndexOf("a")+1))
	assert.Equal(t, []string{"a", "n1", "b", "c"}, tree.Children("section"))
	assert.Equal(t, "n1", tree.Parent("n2"))
}

func TestAncestorsAndDepth(t *testing.T) {
	tree := newTestTree(t)

	assert.Equal(t, []string{"a", "section", "root"}, tree.Ancestors("a1"))
	assert.Equal(t, 3, tree.Depth("a1"))
	assert.Equal(t, 0, tree.Depth("root"))
	assert.Equal(t, -1, tree.Depth("missing"))
	assert.True(t, tree.IsDescendant("section", "a1"))
	assert.False(t, tree.IsDescendant("a1", "section"))
}

func TestWalkRenderOrder(t *testing.T) {
	tree := newTestTree(t)
	var order []string
	tree.Walk(func(el *Element, depth int) { order = append(order, el.ID) })
	assert.Equal(t, []string{"root", "section", "a", "a1", "b", "c"}, order)
}

func TestCloneIsIndependent(t *testing.T) {
	tree := newTestTree(t)
	cp := tree.Clone()

	require.NoError(t, tree.Move("b", "c", AppendPosition))
	tree.UpdateStyles("c", LayerBase, StyleMap{"color": "red"})

	assert.False(t, tree.Equal(cp))
	assert.Equal(t, []string{"a", "b", "c"}, cp.Children("section"))
	el, _ := cp.Get("c")
	assert.Empty(t, el.Styles.Base)
}
