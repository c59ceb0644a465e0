// Package editor implements the editing session: the mutation API over the
// element tree, the selection/hover/drag state machine and undo history.
package editor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
)

var ErrSessionClosed = errors.New("session closed")

// ChangeKind flags what a notification is about
type ChangeKind uint8

const (
	ChangeTree ChangeKind = 1 << iota
	ChangeSelection
	ChangeHover
	ChangeViewport
	ChangeDrag
	ChangeDirty
)

func (k ChangeKind) Has(flag ChangeKind) bool { return k&flag != 0 }

// Change is delivered to observers after the session lock is released.
// Observers read current state through the session, never a live reference.
type Change struct {
	Kind     ChangeKind
	Revision uint64
}

type Observer func(Change)

// SessionState is the read-only view of the non-tree session state
type SessionState struct {
	SessionID         string            `json:"sessionId"`
	DocumentID        string            `json:"documentId"`
	DocumentName      string            `json:"documentName"`
	RootID            string            `json:"rootId"`
	SelectedElementID *string           `json:"selectedElementId"`
	HoveredElementID  *string           `json:"hoveredElementId"`
	TextEditElementID *string           `json:"textEditElementId"`
	DragState         canvas.DragState  `json:"dragState"`
	Viewport          canvas.Breakpoint `json:"viewport"`
	Dirty             bool              `json:"dirty"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	Revision          uint64            `json:"revision"`
	ElementCount      int               `json:"elementCount"`
	CanUndo           bool              `json:"canUndo"`
	CanRedo           bool              `json:"canRedo"`
	UndoDepth         int               `json:"undoDepth"`
	RedoDepth         int               `json:"redoDepth"`
}

type Options struct {
	HistoryLimit int
	NewID        func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// Session owns one open document. All public methods are safe for
// concurrent use.
type Session struct {
	mu sync.Mutex

	id       string
	meta     canvas.Document
	tree     *canvas.ElementTree
	history  *History
	newID    func() string
	now      func() time.Time
	logger   *slog.Logger
	revision uint64

	selected *string
	hovered  *string
	textEdit *string
	drag     canvas.DragState
	viewport canvas.Breakpoint

	dirty        bool
	updatedAt    time.Time
	lastActivity time.Time

	observers  map[int]Observer
	nextObsKey int
}

// NewSession opens a session over tree. meta carries the document identity
// and publication fields; its Root and Sections are ignored.
func NewSession(id string, meta canvas.Document, tree *canvas.ElementTree, opts Options) *Session {
	if opts.NewID == nil {
		n := 0
		opts.NewID = func() string { n++; return fmt.Sprintf("%s-%d", id, n) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	meta.Root = canvas.Element{}
	meta.Sections = nil
	now := opts.Now()
	return &Session{
		id:           id,
		meta:         meta,
		tree:         tree.Clone(),
		history:      NewHistory(opts.HistoryLimit),
		newID:        opts.NewID,
		now:          opts.Now,
		logger:       opts.Logger.With("sessionId", id, "documentId", meta.ID),
		viewport:     canvas.BreakpointDesktop,
		updatedAt:    meta.UpdatedAt,
		lastActivity: now,
		observers:    make(map[int]Observer),
	}
}

func (s *Session) ID() string { return s.id }

// Subscribe registers an observer and returns its cancel func
func (s *Session) Subscribe(obs Observer) func() {
	s.mu.Lock()
	key := s.nextObsKey
	s.nextObsKey++
	s.observers[key] = obs
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, key)
		s.mu.Unlock()
	}
}

// notify runs observers outside the lock
func (s *Session) notify(kind ChangeKind, revision uint64, observers []Observer) {
	if kind == 0 {
		return
	}
	for _, obs := range observers {
		obs(Change{Kind: kind, Revision: revision})
	}
}

// unlockAndNotify releases the lock and then delivers kind
func (s *Session) unlockAndNotify(kind ChangeKind) {
	rev := s.revision
	var observers []Observer
	if kind != 0 {
		observers = make([]Observer, 0, len(s.observers))
		for _, obs := range s.observers {
			observers = append(observers, obs)
		}
	}
	s.mu.Unlock()
	s.notify(kind, rev, observers)
}

// commit records the pre-mutation tree and marks the session dirty.
// Caller holds the lock.
func (s *Session) commit(label string, before *canvas.ElementTree) {
	s.history.Record(label, before)
	s.touchTree()
	s.logger.Debug("Mutation applied", "action", label, "revision", s.revision)
}

func (s *Session) touchTree() {
	s.revision++
	s.dirty = true
	s.updatedAt = s.now()
	s.lastActivity = s.updatedAt
	s.revalidateRefs()
}

// revalidateRefs clears selection, hover, text edit and drag references
// that no longer resolve. Caller holds the lock.
func (s *Session) revalidateRefs() ChangeKind {
	var kind ChangeKind
	if s.selected != nil && !s.tree.Has(*s.selected) {
		s.selected = nil
		kind |= ChangeSelection
	}
	if s.hovered != nil && !s.tree.Has(*s.hovered) {
		s.hovered = nil
		kind |= ChangeHover
	}
	if s.textEdit != nil && !s.tree.Has(*s.textEdit) {
		s.textEdit = nil
	}
	if s.drag.IsDragging {
		src := canvas.IDValue(s.drag.DraggedElementID)
		tgt := s.drag.DropTargetID
		if !s.tree.Has(src) || (tgt != nil && !s.tree.Has(*tgt)) {
			s.drag.Clear()
			kind |= ChangeDrag
		}
	}
	return kind
}

func (s *Session) resolveParent(parentID string) string {
	if parentID == "" {
		return s.tree.Root()
	}
	return parentID
}

// CreateElement inserts a new element and selects it
func (s *Session) CreateElement(data canvas.ElementData, parentID string, position int) (string, error) {
	s.mu.Lock()
	parentID = s.resolveParent(parentID)
	id := s.newID()
	before := s.tree.Clone()
	if err := s.tree.Insert(canvas.NewElement(id, data), parentID, position); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.commit("create", before)
	s.selected = canvas.IDPtr(id)
	s.unlockAndNotify(ChangeTree | ChangeSelection | ChangeDirty)
	return id, nil
}

// CreateFromTemplate seeds a new subtree from a template and selects its root
func (s *Session) CreateFromTemplate(tpl canvas.ElementTemplate, parentID string, position int) (string, error) {
	s.mu.Lock()
	parentID = s.resolveParent(parentID)
	id, err := s.insertTemplate(tpl, parentID, position)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.unlockAndNotify(ChangeTree | ChangeSelection | ChangeDirty)
	return id, nil
}

// DropTemplate places a template before, after or inside targetID.
// A missing target is a silent no-op.
func (s *Session) DropTemplate(tpl canvas.ElementTemplate, targetID string, pos canvas.DropPosition) (string, error) {
	s.mu.Lock()
	if !s.tree.Has(targetID) {
		s.mu.Unlock()
		return "", nil
	}
	parentID, position, err := s.dropSlot(targetID, pos)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	id, err := s.insertTemplate(tpl, parentID, position)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.unlockAndNotify(ChangeTree | ChangeSelection | ChangeDirty)
	return id, nil
}

// dropSlot turns a drop position into a parent and index. Before and after
// the root fall back to the first and last slot inside it.
func (s *Session) dropSlot(targetID string, pos canvas.DropPosition) (string, int, error) {
	switch pos {
	case canvas.DropInside:
		return targetID, canvas.AppendPosition, nil
	case canvas.DropBefore, canvas.DropAfter:
		if targetID == s.tree.Root() {
			if pos == canvas.DropBefore {
				return targetID, 0, nil
			}
			return targetID, canvas.AppendPosition, nil
		}
		idx := s.tree.IndexOf(targetID)
		if pos == canvas.DropAfter {
			idx++
		}
		return s.tree.Parent(targetID), idx, nil
	}
	return "", 0, canvas.ErrInvalidPosition
}

// insertTemplate runs under the lock
func (s *Session) insertTemplate(tpl canvas.ElementTemplate, parentID string, position int) (string, error) {
	nodes := s.templateNodes(tpl, "")
	before := s.tree.Clone()
	if err := s.tree.InsertSubtree(nodes, parentID, position); err != nil {
		return "", err
	}
	s.commit("template:"+tpl.ID, before)
	s.selected = canvas.IDPtr(nodes[0].ID)
	return nodes[0].ID, nil
}

func (s *Session) templateNodes(tpl canvas.ElementTemplate, parentID string) []*canvas.Element {
	el := canvas.NewElement(s.newID(), tpl.ElementData())
	el.ParentID = parentID
	out := []*canvas.Element{el}
	for _, child := range tpl.Children {
		sub := s.templateNodes(child, el.ID)
		el.Children = append(el.Children, sub[0].ID)
		out = append(out, sub...)
	}
	return out
}

// UpdateElement shallow-merges patch. Missing ids are a silent no-op.
func (s *Session) UpdateElement(id string, patch canvas.ElementPatch) (bool, error) {
	s.mu.Lock()
	if !s.tree.Has(id) || patch.IsEmpty() {
		s.mu.Unlock()
		return false, nil
	}
	before := s.tree.Clone()
	if _, err := s.tree.Update(id, patch); err != nil {
		s.mu.Unlock()
		return false, err
	}
	if s.tree.Equal(before) {
		s.mu.Unlock()
		return false, nil
	}
	s.commit("update", before)
	s.unlockAndNotify(ChangeTree | ChangeDirty)
	return true, nil
}

// SetAttributes merges changes into the element's attributes. An empty
// value removes the attribute.
func (s *Session) SetAttributes(id string, changes map[string]string) bool {
	s.mu.Lock()
	el, ok := s.tree.Get(id)
	if !ok || len(changes) == 0 {
		s.mu.Unlock()
		return false
	}
	attrs := make(map[string]string, len(el.Attributes)+len(changes))
	for k, v := range el.Attributes {
		attrs[k] = v
	}
	for k, v := range changes {
		if v == "" {
			delete(attrs, k)
		} else {
			attrs[k] = v
		}
	}
	before := s.tree.Clone()
	_, _ = s.tree.Update(id, canvas.ElementPatch{Attributes: attrs})
	if s.tree.Equal(before) {
		s.mu.Unlock()
		return false
	}
	s.commit("attributes", before)
	s.unlockAndNotify(ChangeTree | ChangeDirty)
	return true
}

// UpdateStyles merges changes into one style layer
func (s *Session) UpdateStyles(id string, layer canvas.StyleLayer, changes canvas.StyleMap) bool {
	s.mu.Lock()
	if !s.tree.Has(id) || !layer.Valid() {
		s.mu.Unlock()
		return false
	}
	before := s.tree.Clone()
	if !s.tree.UpdateStyles(id, layer, changes) {
		s.mu.Unlock()
		return false
	}
	s.commit("styles:"+string(layer), before)
	s.unlockAndNotify(ChangeTree | ChangeDirty)
	return true
}

// DeleteElement removes id and its subtree. The root is rejected; a missing
// id is a silent no-op.
func (s *Session) DeleteElement(id string) error {
	s.mu.Lock()
	if id == s.tree.Root() {
		s.mu.Unlock()
		return canvas.ErrRootImmutable
	}
	if !s.tree.Has(id) {
		s.mu.Unlock()
		return nil
	}
	before := s.tree.Clone()
	removed, err := s.tree.Remove(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.commit("delete", before)
	s.logger.Debug("Elements removed", "elementId", id, "count", len(removed))
	s.unlockAndNotify(ChangeTree | ChangeSelection | ChangeHover | ChangeDrag | ChangeDirty)
	return nil
}

// MoveElement reparents id. Missing ids are a silent no-op.
func (s *Session) MoveElement(id, newParentID string, position int) error {
	s.mu.Lock()
	newParentID = s.resolveParent(newParentID)
	before := s.tree.Clone()
	if err := s.tree.Move(id, newParentID, position); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.tree.Equal(before) {
		s.mu.Unlock()
		return nil
	}
	s.commit("move", before)
	s.unlockAndNotify(ChangeTree | ChangeDirty)
	return nil
}

// MoveRelative places id before, after or inside targetID
func (s *Session) MoveRelative(id, targetID string, pos canvas.DropPosition) error {
	s.mu.Lock()
	moved, err := s.moveRelative(id, targetID, pos)
	if err != nil || !moved {
		s.mu.Unlock()
		return err
	}
	s.unlockAndNotify(ChangeTree | ChangeDirty)
	return nil
}

func (s *Session) moveRelative(id, targetID string, pos canvas.DropPosition) (bool, error) {
	before := s.tree.Clone()
	if err := s.tree.MoveRelative(id, targetID, pos); err != nil {
		return false, err
	}
	if s.tree.Equal(before) {
		return false, nil
	}
	s.commit("move", before)
	return true, nil
}

// DuplicateElement clones the subtree at id right after the original and
// selects the clone
func (s *Session) DuplicateElement(id string) (string, error) {
	s.mu.Lock()
	if id == s.tree.Root() {
		s.mu.Unlock()
		return "", canvas.ErrRootImmutable
	}
	if !s.tree.Has(id) {
		s.mu.Unlock()
		return "", nil
	}
	cloneID, nodes := s.tree.CloneSubtree(id, s.newID)
	before := s.tree.Clone()
	if err := s.tree.InsertSubtree(nodes, s.tree.Parent(id), s.tree.IndexOf(id)+1); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.commit("duplicate", before)
	s.selected = canvas.IDPtr(cloneID)
	s.unlockAndNotify(ChangeTree | ChangeSelection | ChangeDirty)
	return cloneID, nil
}

// CommitText writes the final text of an inline edit and ends the edit.
// Plain text replaces any markup.
func (s *Session) CommitText(id, text string) bool {
	s.mu.Lock()
	el, ok := s.tree.Get(id)
	if !ok {
		s.mu.Unlock()
		return false
	}
	kind := ChangeKind(0)
	if s.textEdit != nil && *s.textEdit == id {
		s.textEdit = nil
	}
	if el.TextContent != text || el.InnerHTML != "" {
		before := s.tree.Clone()
		empty := ""
		_, _ = s.tree.Update(id, canvas.ElementPatch{TextContent: &text, InnerHTML: &empty})
		s.commit("text", before)
		kind = ChangeTree | ChangeDirty
	}
	s.unlockAndNotify(kind)
	return kind != 0
}

// SetInnerHTML stores markup and derives the plain text from it
func (s *Session) SetInnerHTML(id, markup string) (bool, error) {
	text, err := htmlText(markup)
	if err != nil {
		return false, err
	}
	return s.UpdateElement(id, canvas.ElementPatch{InnerHTML: &markup, TextContent: &text})
}

// ReplaceTree swaps the whole tree in one undoable step
func (s *Session) ReplaceTree(label string, tree *canvas.ElementTree) {
	s.mu.Lock()
	before := s.tree
	s.tree = tree.Clone()
	s.commit(label, before)
	s.unlockAndNotify(ChangeTree | ChangeSelection | ChangeHover | ChangeDrag | ChangeDirty)
}

func htmlText(markup string) (string, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return "", fmt.Errorf("parse inner html: %w", err)
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return b.String(), nil
}

// Select sets the selection. Stale ids fall back to no selection.
// Selecting another element ends an inline text edit.
func (s *Session) Select(id *string) {
	s.mu.Lock()
	next := s.validRef(id)
	s.lastActivity = s.now()
	if s.textEdit != nil && (next == nil || *next != *s.textEdit) {
		s.textEdit = nil
	}
	if sameRef(s.selected, next) {
		s.mu.Unlock()
		return
	}
	s.selected = next
	s.unlockAndNotify(ChangeSelection)
}

// Hover sets the hovered element, independent of selection
func (s *Session) Hover(id *string) {
	s.mu.Lock()
	next := s.validRef(id)
	if sameRef(s.hovered, next) {
		s.mu.Unlock()
		return
	}
	s.hovered = next
	s.unlockAndNotify(ChangeHover)
}

func (s *Session) validRef(id *string) *string {
	if id == nil || !s.tree.Has(*id) {
		return nil
	}
	return canvas.CopyID(id)
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// BeginTextEdit enters inline text editing on id and selects it
func (s *Session) BeginTextEdit(id string) bool {
	s.mu.Lock()
	if !s.tree.Has(id) {
		s.mu.Unlock()
		return false
	}
	s.textEdit = canvas.IDPtr(id)
	s.lastActivity = s.now()
	kind := ChangeKind(0)
	if !sameRef(s.selected, s.textEdit) {
		s.selected = canvas.IDPtr(id)
		kind = ChangeSelection
	}
	s.unlockAndNotify(kind)
	return true
}

// EndTextEdit leaves inline editing without committing
func (s *Session) EndTextEdit() {
	s.mu.Lock()
	s.textEdit = nil
	s.mu.Unlock()
}

// StartDrag begins dragging id. The root is rejected, a missing id ignored.
func (s *Session) StartDrag(id string) error {
	s.mu.Lock()
	if id == s.tree.Root() {
		s.mu.Unlock()
		return canvas.ErrRootImmutable
	}
	if !s.tree.Has(id) {
		s.mu.Unlock()
		return nil
	}
	s.drag = canvas.DragState{IsDragging: true, DraggedElementID: canvas.IDPtr(id)}
	s.lastActivity = s.now()
	s.unlockAndNotify(ChangeDrag)
	return nil
}

// UpdateDragTarget records the live drop target. It is ignored when no
// drag is in flight or the target no longer exists.
func (s *Session) UpdateDragTarget(targetID string, pos canvas.DropPosition) error {
	s.mu.Lock()
	if !s.drag.IsDragging || !s.tree.Has(targetID) {
		s.mu.Unlock()
		return nil
	}
	if !pos.Valid() {
		s.mu.Unlock()
		return canvas.ErrInvalidPosition
	}
	target, _ := s.tree.Get(targetID)
	if pos == canvas.DropInside && !target.CanHaveChildren() {
		s.mu.Unlock()
		return canvas.ErrNotContainer
	}
	s.drag.DropTargetID = canvas.IDPtr(targetID)
	s.drag.DropPosition = pos
	s.unlockAndNotify(ChangeDrag)
	return nil
}

// ClearDragTarget forgets the candidate target while the drag continues, so
// an EndDrag without a new target moves nothing
func (s *Session) ClearDragTarget() {
	s.mu.Lock()
	if !s.drag.IsDragging || (s.drag.DropTargetID == nil && s.drag.DropPosition == canvas.DropNone) {
		s.mu.Unlock()
		return
	}
	s.drag.DropTargetID = nil
	s.drag.DropPosition = canvas.DropNone
	s.unlockAndNotify(ChangeDrag)
}

// EndDrag commits the drop when the drag triple is complete and valid, and
// always clears the drag state. Dropping onto the dragged element or one of
// its descendants is rejected with ErrCycle and leaves the tree unchanged.
func (s *Session) EndDrag() (bool, error) {
	s.mu.Lock()
	drag := s.drag.Clone()
	s.drag.Clear()
	s.lastActivity = s.now()

	src := canvas.IDValue(drag.DraggedElementID)
	tgt := canvas.IDValue(drag.DropTargetID)
	if !drag.IsDragging || src == "" || tgt == "" || !drag.DropPosition.Valid() ||
		!s.tree.Has(src) || !s.tree.Has(tgt) {
		s.unlockAndNotify(ChangeDrag)
		return false, nil
	}
	if src == tgt || s.tree.IsDescendant(src, tgt) {
		s.logger.Debug("Drop rejected", "elementId", src, "targetId", tgt, "reason", "cycle")
		s.unlockAndNotify(ChangeDrag)
		return false, canvas.ErrCycle
	}
	moved, err := s.moveRelative(src, tgt, drag.DropPosition)
	if err != nil {
		s.unlockAndNotify(ChangeDrag)
		return false, err
	}
	kind := ChangeDrag
	if moved {
		kind |= ChangeTree | ChangeDirty
	}
	s.unlockAndNotify(kind)
	return moved, nil
}

// CancelDrag discards the drag state with no tree effects
func (s *Session) CancelDrag() {
	s.mu.Lock()
	if !s.drag.IsDragging {
		s.mu.Unlock()
		return
	}
	s.drag.Clear()
	s.unlockAndNotify(ChangeDrag)
}

// Undo restores the previous tree. ok is false when there is nothing to undo.
func (s *Session) Undo() bool {
	return s.step(s.history.Undo)
}

// Redo reapplies the last undone change
func (s *Session) Redo() bool {
	return s.step(s.history.Redo)
}

func (s *Session) step(fn func(*canvas.ElementTree) (*canvas.ElementTree, bool)) bool {
	s.mu.Lock()
	tree, ok := fn(s.tree)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.tree = tree
	s.drag.Clear()
	s.touchTree()
	s.unlockAndNotify(ChangeTree | ChangeSelection | ChangeHover | ChangeDrag | ChangeDirty)
	return true
}

// SetViewport switches the breakpoint used for resolved styles
func (s *Session) SetViewport(bp canvas.Breakpoint) error {
	if !bp.Valid() {
		return fmt.Errorf("unknown viewport %q", bp)
	}
	s.mu.Lock()
	if s.viewport == bp {
		s.mu.Unlock()
		return nil
	}
	s.viewport = bp
	s.unlockAndNotify(ChangeViewport)
	return nil
}

// ResetInteraction clears hover, drag and text edit state, as after a
// render surface fault
func (s *Session) ResetInteraction() {
	s.mu.Lock()
	s.hovered = nil
	s.textEdit = nil
	s.drag.Clear()
	s.unlockAndNotify(ChangeHover | ChangeDrag)
}

// State returns the current non-tree state
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	undo, redo := s.history.Len()
	return SessionState{
		SessionID:         s.id,
		DocumentID:        s.meta.ID,
		DocumentName:      s.meta.Name,
		RootID:            s.tree.Root(),
		SelectedElementID: canvas.CopyID(s.selected),
		HoveredElementID:  canvas.CopyID(s.hovered),
		TextEditElementID: canvas.CopyID(s.textEdit),
		DragState:         s.drag.Clone(),
		Viewport:          s.viewport,
		Dirty:             s.dirty,
		UpdatedAt:         s.updatedAt,
		Revision:          s.revision,
		ElementCount:      s.tree.Len(),
		CanUndo:           undo > 0,
		CanRedo:           redo > 0,
		UndoDepth:         undo,
		RedoDepth:         redo,
	}
}

// Tree returns a deep copy of the element tree
func (s *Session) Tree() *canvas.ElementTree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Clone()
}

// Snapshot returns the tree copy with the revision it was taken at
func (s *Session) Snapshot() (*canvas.ElementTree, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Clone(), s.revision
}

// Element returns a copy of one element
func (s *Session) Element(id string) (*canvas.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Get(id)
}

// Has reports whether id exists in the current tree
func (s *Session) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Has(id)
}

// Meta returns document identity and publication fields
func (s *Session) Meta() canvas.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.meta
	m.UpdatedAt = s.updatedAt
	return m
}

func (s *Session) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// MarkSaved clears the dirty flag if nothing changed since revision was
// captured. Edits made while a save was in flight keep the session dirty.
func (s *Session) MarkSaved(revision uint64, status canvas.DocumentStatus, publishedAt *time.Time) bool {
	s.mu.Lock()
	if status != "" {
		s.meta.Status = status
	}
	if publishedAt != nil {
		t := *publishedAt
		s.meta.PublishedAt = &t
	}
	if s.revision != revision {
		s.mu.Unlock()
		return false
	}
	s.dirty = false
	s.unlockAndNotify(ChangeDirty)
	return true
}

// LastActivity is the time of the last mutation or gesture
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Touch records activity without changing state
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = s.now()
	s.mu.Unlock()
}

// History labels oldest first, for diagnostics
func (s *Session) HistoryLabels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Labels()
}
