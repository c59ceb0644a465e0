package canvas

import (
	"fmt"
	"reflect"
	"sort"
)

// AppendPosition inserts at the end of a children list
const AppendPosition = -1

// ElementTree is the id-indexed arena of a document's elements. It is not
// safe for concurrent use; the owning session serialises access.
type ElementTree struct {
	rootID   string
	elements map[string]*Element
}

// NewElementTree creates a tree holding only the given root. The root is
// copied and detached: its parent and children are reset.
func NewElementTree(root *Element) *ElementTree {
	r := root.Clone()
	r.ParentID = ""
	r.Children = []string{}
	if r.Styles.Base == nil {
		r.Styles.Base = StyleMap{}
	}
	return &ElementTree{
		rootID:   r.ID,
		elements: map[string]*Element{r.ID: r},
	}
}

// TreeFromSnapshot rebuilds a tree from a snapshot without validation.
// Callers that accept untrusted input should run an integrity check.
func TreeFromSnapshot(rootID string, elements map[string]*Element) *ElementTree {
	t := &ElementTree{rootID: rootID, elements: make(map[string]*Element, len(elements))}
	for id, el := range elements {
		t.elements[id] = el.Clone()
	}
	return t
}

func (t *ElementTree) Root() string { return t.rootID }

func (t *ElementTree) Len() int { return len(t.elements) }

func (t *ElementTree) Has(id string) bool {
	_, ok := t.elements[id]
	return ok
}

// Get returns a copy of the element
func (t *ElementTree) Get(id string) (*Element, bool) {
	el, ok := t.elements[id]
	if !ok {
		return nil, false
	}
	return el.Clone(), true
}

// IDs returns every element id in sorted order
func (t *ElementTree) IDs() []string {
	ids := make([]string, 0, len(t.elements))
	for id := range t.elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Children returns a copy of the child id list of id
func (t *ElementTree) Children(id string) []string {
	el, ok := t.elements[id]
	if !ok {
		return nil
	}
	return append([]string{}, el.Children...)
}

// Parent returns the parent id, "" for the root or a missing id
func (t *ElementTree) Parent(id string) string {
	if el, ok := t.elements[id]; ok {
		return el.ParentID
	}
	return ""
}

// IndexOf is the position of id among its siblings, -1 if unknown
func (t *ElementTree) IndexOf(id string) int {
	el, ok := t.elements[id]
	if !ok || el.ParentID == "" {
		return -1
	}
	parent, ok := t.elements[el.ParentID]
	if !ok {
		return -1
	}
	return indexOf(parent.Children, id)
}

// Insert attaches a single new element under parentID at position.
// Any children listed on el are discarded.
func (t *ElementTree) Insert(el *Element, parentID string, position int) error {
	if el == nil || el.ID == "" {
		return fmt.Errorf("insert: element id is required")
	}
	node := el.Clone()
	node.Children = []string{}
	return t.InsertSubtree([]*Element{node}, parentID, position)
}

// InsertSubtree attaches a detached subtree. nodes[0] is the subtree root;
// the remaining nodes must be linked to it through ParentID and Children.
func (t *ElementTree) InsertSubtree(nodes []*Element, parentID string, position int) error {
	if len(nodes) == 0 {
		return nil
	}
	parent, ok := t.elements[parentID]
	if !ok {
		return ErrElementNotFound
	}
	if !parent.CanHaveChildren() {
		return ErrNotContainer
	}

	incoming := make(map[string]*Element, len(nodes))
	for _, n := range nodes {
		if n == nil || n.ID == "" {
			return fmt.Errorf("insert: element id is required")
		}
		if _, exists := t.elements[n.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
		}
		if _, dup := incoming[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
		}
		incoming[n.ID] = n.Clone()
	}

	subRoot := incoming[nodes[0].ID]
	subRoot.ParentID = parentID
	for _, n := range nodes[1:] {
		owner, ok := incoming[n.ParentID]
		if !ok || indexOf(owner.Children, n.ID) < 0 {
			return fmt.Errorf("insert: %s is not linked into the subtree", n.ID)
		}
		if !owner.CanHaveChildren() {
			return ErrNotContainer
		}
	}
	for _, n := range incoming {
		if n.Children == nil {
			n.Children = []string{}
		}
		for _, c := range n.Children {
			if _, ok := incoming[c]; !ok {
				return fmt.Errorf("insert: dangling child %s", c)
			}
		}
		if n.Styles.Base == nil {
			n.Styles.Base = StyleMap{}
		}
	}

	for id, n := range incoming {
		t.elements[id] = n
	}
	parent.Children = insertAt(parent.Children, subRoot.ID, position)
	return nil
}

// Update shallow-merges patch into the element. Missing ids are a no-op.
// A tag change to a void tag is refused with ErrNotContainer when the
// element has children or is the root.
func (t *ElementTree) Update(id string, patch ElementPatch) (bool, error) {
	el, ok := t.elements[id]
	if !ok {
		return false, nil
	}
	if patch.Tag != nil && IsVoidTag(*patch.Tag) && (id == t.rootID || len(el.Children) > 0) {
		return false, ErrNotContainer
	}
	patch.apply(el)
	return true, nil
}

// UpdateStyles merges changes into one style layer of an element
func (t *ElementTree) UpdateStyles(id string, layer StyleLayer, changes StyleMap) bool {
	el, ok := t.elements[id]
	if !ok {
		return false
	}
	return el.Styles.MergeLayer(layer, changes)
}

// Remove deletes id and all its descendants and returns the removed ids in
// pre-order. Missing ids are a no-op.
func (t *ElementTree) Remove(id string) ([]string, error) {
	if id == t.rootID {
		return nil, ErrRootImmutable
	}
	el, ok := t.elements[id]
	if !ok {
		return nil, nil
	}
	if parent, ok := t.elements[el.ParentID]; ok {
		parent.Children = removeID(parent.Children, id)
	}
	removed := t.subtreeIDs(id)
	for _, rid := range removed {
		delete(t.elements, rid)
	}
	return removed, nil
}

// Move detaches id and attaches it under newParentID at position, where
// position is an index into the new parent's children after the detach.
// Missing ids are a no-op.
func (t *ElementTree) Move(id, newParentID string, position int) error {
	if id == t.rootID {
		return ErrRootImmutable
	}
	el, ok := t.elements[id]
	if !ok {
		return nil
	}
	newParent, ok := t.elements[newParentID]
	if !ok {
		return nil
	}
	if newParentID == id || t.IsDescendant(id, newParentID) {
		return ErrCycle
	}
	if !newParent.CanHaveChildren() {
		return ErrNotContainer
	}
	t.relink(el, newParent, position)
	return nil
}

// MoveRelative places id before, after or inside targetID
func (t *ElementTree) MoveRelative(id, targetID string, pos DropPosition) error {
	if id == t.rootID {
		return ErrRootImmutable
	}
	el, ok := t.elements[id]
	if !ok {
		return nil
	}
	target, ok := t.elements[targetID]
	if !ok {
		return nil
	}
	if targetID == id || t.IsDescendant(id, targetID) {
		return ErrCycle
	}

	switch pos {
	case DropInside:
		if !target.CanHaveChildren() {
			return ErrNotContainer
		}
		t.relink(el, target, AppendPosition)
		return nil
	case DropBefore, DropAfter:
		if targetID == t.rootID {
			return ErrInvalidPosition
		}
		newParent := t.elements[target.ParentID]
		// sibling index is taken after the detach so same-parent moves land correctly
		siblings := removeID(append([]string{}, newParent.Children...), id)
		idx := indexOf(siblings, targetID)
		if pos == DropAfter {
			idx++
		}
		t.relink(el, newParent, idx)
		return nil
	default:
		return ErrInvalidPosition
	}
}

// relink moves el under newParent in a single step
func (t *ElementTree) relink(el, newParent *Element, position int) {
	if old, ok := t.elements[el.ParentID]; ok {
		old.Children = removeID(old.Children, el.ID)
	}
	el.ParentID = newParent.ID
	newParent.Children = insertAt(newParent.Children, el.ID, position)
}

// CloneSubtree copies the subtree rooted at id with fresh ids. The returned
// nodes are detached and ordered with the subtree root first.
func (t *ElementTree) CloneSubtree(id string, newID func() string) (string, []*Element) {
	if _, ok := t.elements[id]; !ok {
		return "", nil
	}
	ids := t.subtreeIDs(id)
	mapping := make(map[string]string, len(ids))
	for _, old := range ids {
		mapping[old] = newID()
	}
	out := make([]*Element, 0, len(ids))
	for _, old := range ids {
		cp := t.elements[old].Clone()
		cp.ID = mapping[old]
		if old == id {
			cp.ParentID = ""
		} else {
			cp.ParentID = mapping[cp.ParentID]
		}
		for i, c := range cp.Children {
			cp.Children[i] = mapping[c]
		}
		out = append(out, cp)
	}
	return mapping[id], out
}

// IsDescendant reports whether id sits strictly below ancestor
func (t *ElementTree) IsDescendant(ancestor, id string) bool {
	el, ok := t.elements[id]
	if !ok {
		return false
	}
	seen := map[string]bool{id: true}
	for el.ParentID != "" {
		if el.ParentID == ancestor {
			return true
		}
		if seen[el.ParentID] {
			return false
		}
		seen[el.ParentID] = true
		next, ok := t.elements[el.ParentID]
		if !ok {
			return false
		}
		el = next
	}
	return false
}

// Ancestors returns the ancestor ids of id, nearest first
func (t *ElementTree) Ancestors(id string) []string {
	var out []string
	el, ok := t.elements[id]
	if !ok {
		return nil
	}
	seen := map[string]bool{id: true}
	for el.ParentID != "" && !seen[el.ParentID] {
		out = append(out, el.ParentID)
		seen[el.ParentID] = true
		next, ok := t.elements[el.ParentID]
		if !ok {
			break
		}
		el = next
	}
	return out
}

// Depth is the distance from the root, -1 for unknown ids
func (t *ElementTree) Depth(id string) int {
	if !t.Has(id) {
		return -1
	}
	return len(t.Ancestors(id))
}

// Walk visits every element reachable from the root in render order.
// The element passed to fn is live and must not be modified.
func (t *ElementTree) Walk(fn func(el *Element, depth int)) {
	seen := make(map[string]bool, len(t.elements))
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		el, ok := t.elements[id]
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		fn(el, depth)
		for _, c := range el.Children {
			visit(c, depth+1)
		}
	}
	visit(t.rootID, 0)
}

// Clone returns a deep copy
func (t *ElementTree) Clone() *ElementTree {
	return TreeFromSnapshot(t.rootID, t.elements)
}

// Snapshot returns a deep copy of the element map
func (t *ElementTree) Snapshot() map[string]*Element {
	out := make(map[string]*Element, len(t.elements))
	for id, el := range t.elements {
		out[id] = el.Clone()
	}
	return out
}

// Equal reports deep equality of two trees
func (t *ElementTree) Equal(other *ElementTree) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.rootID == other.rootID && reflect.DeepEqual(t.elements, other.elements)
}

func (t *ElementTree) subtreeIDs(id string) []string {
	var out []string
	seen := map[string]bool{}
	var visit func(string)
	visit = func(cur string) {
		el, ok := t.elements[cur]
		if !ok || seen[cur] {
			return
		}
		seen[cur] = true
		out = append(out, cur)
		for _, c := range el.Children {
			visit(c)
		}
	}
	visit(id)
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func insertAt(ids []string, id string, position int) []string {
	if position < 0 || position >= len(ids) {
		return append(ids, id)
	}
	ids = append(ids, "")
	copy(ids[position+1:], ids[position:])
	ids[position] = id
	return ids
}
