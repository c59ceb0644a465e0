package surface

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/editor"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/protocol"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/services"
)

type fakeTransport struct {
	mu     sync.Mutex
	sent   []protocol.Envelope
	closed int
}

func (f *fakeTransport) Send(env protocol.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeTransport) types() []protocol.MessageType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.MessageType, len(f.sent))
	for i, env := range f.sent {
		out[i] = env.Type
	}
	return out
}

func (f *fakeTransport) last(t protocol.MessageType) (protocol.Envelope, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Type == t {
			return f.sent[i], true
		}
	}
	return protocol.Envelope{}, false
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	f.sent = nil
	f.mu.Unlock()
}

type mapTemplates map[string]*canvas.ElementTemplate

func (m mapTemplates) Get(id string) (*canvas.ElementTemplate, bool) {
	t, ok := m[id]
	return t, ok
}

type fixture struct {
	session   *editor.Session
	transport *fakeTransport
	bridge    *Bridge
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tree := canvas.NewElementTree(&canvas.Element{ID: "root", Tag: "body"})
	n := 0
	session := editor.NewSession("s1", canvas.Document{ID: "doc"}, tree, editor.Options{
		NewID: func() string { n++; return fmt.Sprintf("e%d", n) },
	})
	transport := &fakeTransport{}
	bridge := NewBridge(BridgeConfig{
		Session:   session,
		Transport: transport,
		Renderer:  NewRenderer(services.NewStyleResolver(), services.NewBindingResolver(), nil),
		Templates: mapTemplates{
			"heading": {ID: "heading", Name: "Heading", Tag: "h2", DefaultProps: canvas.TemplateProps{TextContent: "Title"}},
		},
	})
	t.Cleanup(bridge.Detach)
	return &fixture{session: session, transport: transport, bridge: bridge}
}

func (f *fixture) send(t *testing.T, typ protocol.MessageType, payload any) {
	t.Helper()
	env, err := protocol.NewEnvelope(typ, payload)
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	f.bridge.HandleMessage(raw)
}

func (f *fixture) ready(t *testing.T) {
	t.Helper()
	f.send(t, protocol.IframeReady, nil)
}

func (f *fixture) create(t *testing.T, tag, parent string) string {
	t.Helper()
	id, err := f.session.CreateElement(canvas.ElementData{Tag: tag}, parent, canvas.AppendPosition)
	require.NoError(t, err)
	return id
}

func codes(errs []BoundaryError) []ErrorCode {
	out := make([]ErrorCode, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestNothingSentBeforeReady(t *testing.T) {
	f := newFixture(t)
	f.create(t, "div", "")

	assert.Empty(t, f.transport.types())
	assert.Equal(t, 1, f.bridge.Stats().DroppedEarly)

	f.ready(t)
	assert.Equal(t, []protocol.MessageType{
		protocol.UpdateViewport, protocol.RenderElements, protocol.UpdateSelection, protocol.UpdateHover,
	}, f.transport.types())

	env, ok := f.transport.last(protocol.RenderElements)
	require.True(t, ok)
	var payload protocol.RenderElementsPayload
	require.NoError(t, env.Decode(&payload))
	assert.Equal(t, "root", payload.RootID)
	assert.Len(t, payload.Elements, 2)
}

func TestInboundBeforeReadyIsRejected(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "div", "")

	f.send(t, protocol.ClickElement, protocol.ElementRefPayload{ElementID: &id})

	assert.Equal(t, []ErrorCode{CodeNotReady}, codes(f.bridge.Errors().List()))
}

func TestDuplicateReadyResyncs(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	f.transport.reset()

	f.ready(t)

	assert.Equal(t, []ErrorCode{CodeDuplicateReady}, codes(f.bridge.Errors().List()))
	assert.Contains(t, f.transport.types(), protocol.RenderElements)
}

func TestMalformedAndUnknownMessages(t *testing.T) {
	f := newFixture(t)
	f.bridge.HandleMessage([]byte("{not json"))
	f.bridge.HandleMessage([]byte(`{"type":"RENDER_ELEMENTS","payload":{}}`))
	f.bridge.HandleMessage([]byte(`{"type":"LAUNCH_ROCKETS"}`))

	assert.Equal(t, []ErrorCode{CodeMalformedMessage, CodeUnknownMessageType, CodeUnknownMessageType},
		codes(f.bridge.Errors().List()))
}

func TestClickSelectsAndBroadcasts(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "div", "")
	f.ready(t)
	f.transport.reset()

	f.send(t, protocol.ClickElement, protocol.ElementRefPayload{})
	assert.Nil(t, f.session.State().SelectedElementID)

	f.send(t, protocol.ClickElement, protocol.ElementRefPayload{ElementID: &id})
	assert.Equal(t, id, canvas.IDValue(f.session.State().SelectedElementID))

	env, ok := f.transport.last(protocol.UpdateSelection)
	require.True(t, ok)
	var sel protocol.SelectionPayload
	require.NoError(t, env.Decode(&sel))
	assert.Equal(t, id, canvas.IDValue(sel.SelectedElementID))
}

func TestStaleReferencesAreSilent(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "div", "")
	f.ready(t)
	ghost := "ghost"
	before, _ := f.session.Snapshot()

	f.send(t, protocol.ClickElement, protocol.ElementRefPayload{ElementID: &ghost})
	f.send(t, protocol.HoverElement, protocol.ElementRefPayload{ElementID: &ghost})
	f.send(t, protocol.DragStart, protocol.ElementRefPayload{ElementID: &ghost})
	f.send(t, protocol.UpdateTextContent, protocol.TextContentPayload{ElementID: &ghost, TextContent: "x"})

	after, _ := f.session.Snapshot()
	assert.True(t, before.Equal(after))
	assert.Equal(t, id, canvas.IDValue(f.session.State().SelectedElementID))
	assert.Empty(t, f.bridge.Errors().List())
	assert.Equal(t, 4, f.bridge.Stats().StaleRefs)
}

func TestMissingRequiredIDIsInvalidPayload(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	f.send(t, protocol.DragStart, protocol.ElementRefPayload{})
	f.send(t, protocol.UpdateTextContent, protocol.TextContentPayload{TextContent: "x"})

	assert.Equal(t, []ErrorCode{CodeInvalidPayload, CodeInvalidPayload}, codes(f.bridge.Errors().List()))
}

func TestDragGestureMovesElement(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "div", "")
	b := f.create(t, "div", "")
	f.ready(t)
	f.transport.reset()

	f.send(t, protocol.DragStart, protocol.ElementRefPayload{ElementID: &b})
	f.send(t, protocol.UpdateDragTarget, protocol.DragTargetPayload{
		TargetID: &a,
		Pointer:  &protocol.Pointer{OffsetY: 2, Height: 100},
	})
	assert.Equal(t, canvas.DropBefore, f.session.State().DragState.DropPosition)

	f.send(t, protocol.DragEnd, nil)

	assert.Equal(t, []string{b, a}, f.session.Tree().Children("root"))
	assert.False(t, f.session.State().DragState.IsDragging)
	assert.Contains(t, f.transport.types(), protocol.RenderElements)
	assert.Empty(t, f.bridge.Errors().List())
}

func TestDragIntoDescendantIsStructuralViolation(t *testing.T) {
	f := newFixture(t)
	parent := f.create(t, "div", "")
	child := f.create(t, "div", parent)
	f.ready(t)
	before, _ := f.session.Snapshot()

	f.send(t, protocol.DragStart, protocol.ElementRefPayload{ElementID: &parent})
	f.send(t, protocol.UpdateDragTarget, protocol.DragTargetPayload{TargetID: &child, Position: canvas.DropInside})
	f.send(t, protocol.DragEnd, nil)

	after, _ := f.session.Snapshot()
	assert.True(t, before.Equal(after))
	errs := f.bridge.Errors().List()
	require.Len(t, errs, 1)
	assert.Equal(t, CodeStructuralViolation, errs[0].Code)
	assert.Equal(t, parent, errs[0].ElementID)
	assert.False(t, f.session.State().DragState.IsDragging)
}

func TestDragRootIsRejected(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	root := "root"

	f.send(t, protocol.DragStart, protocol.ElementRefPayload{ElementID: &root})

	assert.Equal(t, []ErrorCode{CodeStructuralViolation}, codes(f.bridge.Errors().List()))
	assert.False(t, f.session.State().DragState.IsDragging)
}

func TestDoubleClickAndTextCommit(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "p", "")
	f.ready(t)

	f.send(t, protocol.DoubleClickElement, protocol.ElementRefPayload{ElementID: &id})
	assert.Equal(t, id, canvas.IDValue(f.session.State().TextEditElementID))

	f.send(t, protocol.UpdateTextContent, protocol.TextContentPayload{ElementID: &id, TextContent: "Hello"})
	el, ok := f.session.Element(id)
	require.True(t, ok)
	assert.Equal(t, "Hello", el.TextContent)
	assert.Nil(t, f.session.State().TextEditElementID)
}

func TestDropTemplateInlineAndByID(t *testing.T) {
	f := newFixture(t)
	section := f.create(t, "section", "")
	f.ready(t)

	f.send(t, protocol.DropTemplateElement, protocol.DropTemplatePayload{
		Template: &canvas.ElementTemplate{ID: "heading"},
		Position: protocol.DropTarget{TargetID: &section, DropPosition: canvas.DropInside},
	})
	children := f.session.Tree().Children(section)
	require.Len(t, children, 1)
	el, _ := f.session.Element(children[0])
	assert.Equal(t, "h2", el.Tag)
	assert.Equal(t, "Title", el.TextContent)

	f.send(t, protocol.DropTemplateElement, protocol.DropTemplatePayload{
		Template: &canvas.ElementTemplate{Tag: "img"},
		Position: protocol.DropTarget{},
	})
	rootChildren := f.session.Tree().Children("root")
	require.Len(t, rootChildren, 2)
	img, _ := f.session.Element(rootChildren[1])
	assert.Equal(t, "img", img.Tag)

	f.send(t, protocol.DropTemplateElement, protocol.DropTemplatePayload{
		Template: &canvas.ElementTemplate{ID: "missing"},
	})
	assert.Equal(t, []ErrorCode{CodeInvalidPayload}, codes(f.bridge.Errors().List()))
}

func TestPanicInHandlerFaultsSurface(t *testing.T) {
	sup := NewSupervisor()
	be := sup.Guard(func() { panic("nil map") })

	require.NotNil(t, be)
	assert.Equal(t, CodeHandlerPanic, be.Code)
	assert.Equal(t, "panic: nil map", be.Message)
	assert.True(t, sup.Faulted())
	assert.Equal(t, 1, sup.State().FaultCount)

	assert.Nil(t, sup.Guard(func() {}))
}

func TestViewportChangeRerenders(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	f.transport.reset()

	require.NoError(t, f.session.SetViewport(canvas.BreakpointMobile))

	assert.Equal(t, []protocol.MessageType{protocol.UpdateViewport, protocol.RenderElements}, f.transport.types())
}

func TestNullDragTargetCancelsDrop(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "div", "")
	b := f.create(t, "p", "")
	f.ready(t)
	before := f.session.Tree()
	depth := f.session.State().UndoDepth

	f.send(t, protocol.DragStart, protocol.ElementRefPayload{ElementID: &b})
	f.send(t, protocol.UpdateDragTarget, protocol.DragTargetPayload{TargetID: &a, Position: canvas.DropInside})
	drag := f.session.State().DragState
	require.NotNil(t, drag.DropTargetID)
	assert.Equal(t, a, *drag.DropTargetID)

	// the pointer left every target
	f.send(t, protocol.UpdateDragTarget, protocol.DragTargetPayload{})
	drag = f.session.State().DragState
	assert.True(t, drag.IsDragging)
	assert.Nil(t, drag.DropTargetID)
	assert.Equal(t, canvas.DropNone, drag.DropPosition)

	f.send(t, protocol.DragEnd, nil)
	assert.True(t, f.session.Tree().Equal(before))
	assert.Empty(t, f.session.Tree().Children(a))
	assert.Equal(t, depth, f.session.State().UndoDepth)
	assert.False(t, f.session.State().DragState.IsDragging)
	assert.Empty(t, f.bridge.Errors().List())
}
