package surface

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/editor"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/protocol"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

// Transport carries envelopes to one connected surface
type Transport interface {
	Send(env protocol.Envelope) error
	Close() error
}

var errMissingElementID = errors.New("elementId is required")

// BridgeStats counts traffic that never reached the surface
type BridgeStats struct {
	Ready        bool `json:"ready"`
	Sent         int  `json:"sent"`
	Received     int  `json:"received"`
	DroppedEarly int  `json:"droppedBeforeReady"`
	StaleRefs    int  `json:"staleReferences"`
}

// Bridge speaks the render boundary protocol for one surface connection.
// Nothing is sent before the surface announces readiness, every inbound id
// is checked against the current tree, and tree changes retransmit the
// whole element map.
type Bridge struct {
	session    *editor.Session
	transport  Transport
	renderer   *Renderer
	templates  TemplateSource
	errors     *ErrorCollector
	supervisor *Supervisor
	logger     *logging.ChanneledLogger

	sendMu sync.Mutex // keeps each outbound batch contiguous

	mu          sync.Mutex
	ready       bool
	stats       BridgeStats
	unsubscribe func()
}

type BridgeConfig struct {
	Session    *editor.Session
	Transport  Transport
	Renderer   *Renderer
	Templates  TemplateSource
	Errors     *ErrorCollector
	Supervisor *Supervisor
	Logger     *logging.ChanneledLogger
}

func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.Supervisor == nil {
		cfg.Supervisor = NewSupervisor()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDiscardLogger()
	}
	if cfg.Errors == nil {
		cfg.Errors = NewErrorCollector(cfg.Session.ID(), DefaultErrorBuffer, cfg.Logger)
	}
	b := &Bridge{
		session:    cfg.Session,
		transport:  cfg.Transport,
		renderer:   cfg.Renderer,
		templates:  cfg.Templates,
		errors:     cfg.Errors,
		supervisor: cfg.Supervisor,
		logger:     cfg.Logger,
	}
	b.unsubscribe = cfg.Session.Subscribe(b.onChange)
	return b
}

// Detach stops forwarding session changes
func (b *Bridge) Detach() {
	b.mu.Lock()
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.ready = false
	b.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (b *Bridge) Errors() *ErrorCollector { return b.errors }

func (b *Bridge) Supervisor() *Supervisor { return b.supervisor }

func (b *Bridge) Stats() BridgeStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.Ready = b.ready
	return s
}

func (b *Bridge) isReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// HandleMessage processes one raw inbound frame. Failures are recorded as
// boundary errors and never returned.
func (b *Bridge) HandleMessage(data []byte) {
	b.mu.Lock()
	b.stats.Received++
	b.mu.Unlock()

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		b.record(newBoundaryError(CodeMalformedMessage, "", "", err))
		return
	}
	if !env.Type.Inbound() {
		b.record(newBoundaryError(CodeUnknownMessageType, env.Type, "", fmt.Errorf("unknown message type %q", env.Type)))
		return
	}

	if be := b.supervisor.Guard(func() { b.dispatch(env) }); be != nil {
		be.MessageType = env.Type
		b.record(be)
	}
}

func (b *Bridge) dispatch(env protocol.Envelope) {
	if env.Type == protocol.IframeReady {
		b.handleReady()
		return
	}
	if env.Type == protocol.RenderError {
		b.handleRenderError(env)
		return
	}
	if !b.isReady() {
		b.record(newBoundaryError(CodeNotReady, env.Type, "", errors.New("surface has not announced readiness")))
		return
	}
	if b.supervisor.Faulted() {
		b.logger.Sync().Debug("Message ignored while surface is faulted", "sessionId", b.session.ID(), "type", env.Type)
		return
	}

	b.session.Touch()
	switch env.Type {
	case protocol.ClickElement:
		b.handleClick(env)
	case protocol.DoubleClickElement:
		b.handleDoubleClick(env)
	case protocol.HoverElement:
		b.handleHover(env)
	case protocol.DragStart:
		b.handleDragStart(env)
	case protocol.UpdateDragTarget:
		b.handleDragTarget(env)
	case protocol.DragEnd:
		b.handleDragEnd(env)
	case protocol.UpdateTextContent:
		b.handleTextContent(env)
	case protocol.DropTemplateElement:
		b.handleDropTemplate(env)
	}
}

func (b *Bridge) handleReady() {
	b.mu.Lock()
	already := b.ready
	b.ready = true
	b.mu.Unlock()

	if already {
		b.record(newBoundaryError(CodeDuplicateReady, protocol.IframeReady, "", errors.New("surface announced readiness twice")))
	}
	b.logger.Sync().Info("Render surface ready", "sessionId", b.session.ID(), "resync", already)
	b.Resync()
}

func (b *Bridge) handleRenderError(env protocol.Envelope) {
	var p protocol.RenderErrorPayload
	if err := env.Decode(&p); err != nil {
		b.record(newBoundaryError(CodeInvalidPayload, env.Type, "", err))
		return
	}
	elementID := canvas.IDValue(p.ElementID)
	b.supervisor.Fault(CodeSurfaceFault, p.Message, elementID)
	b.record(newBoundaryError(CodeSurfaceFault, env.Type, elementID, errors.New(p.Message)))
}

// decodeRef decodes an element reference payload and reports whether the
// message should be applied. A nil id is valid when allowNil is set.
func (b *Bridge) decodeRef(env protocol.Envelope, allowNil bool) (*string, bool) {
	var p protocol.ElementRefPayload
	if err := env.Decode(&p); err != nil {
		b.record(newBoundaryError(CodeInvalidPayload, env.Type, "", err))
		return nil, false
	}
	if p.ElementID == nil {
		if !allowNil {
			b.record(newBoundaryError(CodeInvalidPayload, env.Type, "", errMissingElementID))
		}
		return nil, allowNil
	}
	if !b.session.Has(*p.ElementID) {
		b.stale(env.Type, *p.ElementID)
		return nil, false
	}
	return p.ElementID, true
}

func (b *Bridge) handleClick(env protocol.Envelope) {
	if id, ok := b.decodeRef(env, true); ok {
		b.session.Select(id)
	}
}

func (b *Bridge) handleDoubleClick(env protocol.Envelope) {
	if id, ok := b.decodeRef(env, false); ok {
		b.session.BeginTextEdit(*id)
	}
}

func (b *Bridge) handleHover(env protocol.Envelope) {
	if id, ok := b.decodeRef(env, true); ok {
		b.session.Hover(id)
	}
}

func (b *Bridge) handleDragStart(env protocol.Envelope) {
	id, ok := b.decodeRef(env, false)
	if !ok {
		return
	}
	if err := b.session.StartDrag(*id); err != nil {
		b.record(newBoundaryError(CodeStructuralViolation, env.Type, *id, err))
	}
}

func (b *Bridge) handleDragTarget(env protocol.Envelope) {
	var p protocol.DragTargetPayload
	if err := env.Decode(&p); err != nil {
		b.record(newBoundaryError(CodeInvalidPayload, env.Type, "", err))
		return
	}
	if p.TargetID == nil {
		b.session.ClearDragTarget()
		return
	}
	target, ok := b.session.Element(*p.TargetID)
	if !ok {
		b.stale(env.Type, *p.TargetID)
		return
	}
	pos := p.Position
	if p.Pointer != nil {
		pos = services.DropPositionFor(p.Pointer.OffsetY, p.Pointer.Height, target.CanHaveChildren())
	}
	if err := b.session.UpdateDragTarget(target.ID, pos); err != nil {
		code := CodeStructuralViolation
		if errors.Is(err, canvas.ErrInvalidPosition) {
			code = CodeInvalidPayload
		}
		b.record(newBoundaryError(code, env.Type, target.ID, err))
	}
}

func (b *Bridge) handleDragEnd(env protocol.Envelope) {
	dragged := canvas.IDValue(b.session.State().DragState.DraggedElementID)
	if _, err := b.session.EndDrag(); err != nil {
		b.record(newBoundaryError(CodeStructuralViolation, env.Type, dragged, err))
	}
}

func (b *Bridge) handleTextContent(env protocol.Envelope) {
	var p protocol.TextContentPayload
	if err := env.Decode(&p); err != nil {
		b.record(newBoundaryError(CodeInvalidPayload, env.Type, "", err))
		return
	}
	if p.ElementID == nil {
		b.record(newBoundaryError(CodeInvalidPayload, env.Type, "", errMissingElementID))
		return
	}
	if !b.session.Has(*p.ElementID) {
		b.stale(env.Type, *p.ElementID)
		return
	}
	b.session.CommitText(*p.ElementID, p.TextContent)
}

func (b *Bridge) handleDropTemplate(env protocol.Envelope) {
	var p protocol.DropTemplatePayload
	if err := env.Decode(&p); err != nil {
		b.record(newBoundaryError(CodeInvalidPayload, env.Type, "", err))
		return
	}
	tpl, err := b.resolveTemplate(p.Template)
	if err != nil {
		b.record(newBoundaryError(CodeInvalidPayload, env.Type, "", err))
		return
	}

	targetID := canvas.IDValue(p.Position.TargetID)
	pos := p.Position.DropPosition
	if targetID == "" {
		targetID = b.session.State().RootID
		pos = canvas.DropInside
	}
	if pos == canvas.DropNone {
		pos = canvas.DropInside
	}
	if !b.session.Has(targetID) {
		b.stale(env.Type, targetID)
		return
	}
	if _, err := b.session.DropTemplate(*tpl, targetID, pos); err != nil {
		b.record(newBoundaryError(CodeStructuralViolation, env.Type, targetID, err))
	}
}

// resolveTemplate accepts an inline template or a library reference
func (b *Bridge) resolveTemplate(tpl *canvas.ElementTemplate) (*canvas.ElementTemplate, error) {
	if tpl == nil {
		return nil, errors.New("template is required")
	}
	if tpl.Tag != "" {
		return tpl, nil
	}
	if tpl.ID == "" || b.templates == nil {
		return nil, errors.New("template needs a tag or a library id")
	}
	found, ok := b.templates.Get(tpl.ID)
	if !ok {
		return nil, fmt.Errorf("template %q not found", tpl.ID)
	}
	return found, nil
}

// stale logs an id that no longer resolves; these are expected and never
// surface as errors
func (b *Bridge) stale(msgType protocol.MessageType, elementID string) {
	b.mu.Lock()
	b.stats.StaleRefs++
	b.mu.Unlock()
	b.logger.Sync().Debug("Stale element reference ignored",
		"sessionId", b.session.ID(),
		"code", CodeStaleReference,
		"type", msgType,
		"elementId", elementID)
}

func (b *Bridge) record(be *BoundaryError) {
	b.errors.Record(be)
}

// onChange is the session observer
func (b *Bridge) onChange(c editor.Change) {
	if !b.isReady() {
		b.mu.Lock()
		b.stats.DroppedEarly++
		b.mu.Unlock()
		return
	}
	if b.supervisor.Faulted() {
		return
	}
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	state := b.session.State()
	if c.Kind.Has(editor.ChangeViewport) {
		b.send(protocol.UpdateViewport, protocol.ViewportPayload{Viewport: state.Viewport})
	}
	if c.Kind.Has(editor.ChangeTree) || c.Kind.Has(editor.ChangeViewport) {
		b.send(protocol.RenderElements, b.renderer.Payload(b.session.Tree(), state.Viewport))
	}
	if c.Kind.Has(editor.ChangeSelection) {
		b.send(protocol.UpdateSelection, protocol.SelectionPayload{SelectedElementID: state.SelectedElementID})
	}
	if c.Kind.Has(editor.ChangeHover) {
		b.send(protocol.UpdateHover, protocol.HoverPayload{HoveredElementID: state.HoveredElementID})
	}
}

// Resync sends the full surface state: viewport, elements, selection, hover
func (b *Bridge) Resync() {
	if !b.isReady() {
		return
	}
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	state := b.session.State()
	b.send(protocol.UpdateViewport, protocol.ViewportPayload{Viewport: state.Viewport})
	b.send(protocol.RenderElements, b.renderer.Payload(b.session.Tree(), state.Viewport))
	b.send(protocol.UpdateSelection, protocol.SelectionPayload{SelectedElementID: state.SelectedElementID})
	b.send(protocol.UpdateHover, protocol.HoverPayload{HoveredElementID: state.HoveredElementID})
}

func (b *Bridge) disconnect() error {
	b.mu.Lock()
	b.ready = false
	b.mu.Unlock()
	if b.transport == nil {
		return nil
	}
	return b.transport.Close()
}

func (b *Bridge) send(t protocol.MessageType, payload any) {
	env, err := protocol.NewEnvelope(t, payload)
	if err != nil {
		b.record(newBoundaryError(CodeMalformedMessage, t, "", err))
		return
	}
	if b.transport == nil {
		return
	}
	if err := b.transport.Send(env); err != nil {
		b.logger.Sync().Warn("Send to render surface failed", "sessionId", b.session.ID(), "type", t, "error", err)
		return
	}
	b.mu.Lock()
	b.stats.Sent++
	b.mu.Unlock()
}
