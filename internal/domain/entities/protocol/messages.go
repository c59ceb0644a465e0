// Package protocol defines the messages exchanged with the render surface.
// Type strings and payload field names are a wire contract.
package protocol

import (
	"encoding/json"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
)

// MessageType identifies a message on the render boundary
type MessageType string

// Editor to render surface
const (
	RenderElements  MessageType = "RENDER_ELEMENTS"
	UpdateSelection MessageType = "UPDATE_SELECTION"
	UpdateHover     MessageType = "UPDATE_HOVER"
	UpdateViewport  MessageType = "UPDATE_VIEWPORT"
)

// Render surface to editor
const (
	IframeReady         MessageType = "IFRAME_READY"
	ClickElement        MessageType = "CLICK_ELEMENT"
	DoubleClickElement  MessageType = "DOUBLE_CLICK_ELEMENT"
	HoverElement        MessageType = "HOVER_ELEMENT"
	DragStart           MessageType = "DRAG_START"
	UpdateDragTarget    MessageType = "UPDATE_DRAG_TARGET"
	DragEnd             MessageType = "DRAG_END"
	UpdateTextContent   MessageType = "UPDATE_TEXT_CONTENT"
	DropTemplateElement MessageType = "DROP_TEMPLATE_ELEMENT"
	RenderError         MessageType = "RENDER_ERROR"
)

// Inbound reports whether t is a message the surface may send
func (t MessageType) Inbound() bool {
	switch t {
	case IframeReady, ClickElement, DoubleClickElement, HoverElement, DragStart,
		UpdateDragTarget, DragEnd, UpdateTextContent, DropTemplateElement, RenderError:
		return true
	}
	return false
}

// Envelope is the framing of every message
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an envelope
func NewEnvelope(t MessageType, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: t}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: t, Payload: raw}, nil
}

// Decode unmarshals the payload into v. An absent payload leaves v untouched.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// RenderedElement is an element as sent to the surface: bindings applied
// and styles resolved for the current viewport.
type RenderedElement struct {
	*canvas.Element
	ComputedStyle canvas.StyleMap `json:"computedStyle"`
}

type RenderElementsPayload struct {
	Elements map[string]RenderedElement `json:"elements"`
	RootID   string                     `json:"rootId"`
}

type SelectionPayload struct {
	SelectedElementID *string `json:"selectedElementId"`
}

type HoverPayload struct {
	HoveredElementID *string `json:"hoveredElementId"`
}

type ViewportPayload struct {
	Viewport canvas.Breakpoint `json:"viewport"`
}

// ElementRefPayload carries a nullable element id; used by CLICK_ELEMENT,
// DOUBLE_CLICK_ELEMENT, HOVER_ELEMENT and DRAG_START
type ElementRefPayload struct {
	ElementID *string `json:"elementId"`
}

// Pointer is the pointer offset inside the candidate target's bounds
type Pointer struct {
	OffsetY float64 `json:"offsetY"`
	Height  float64 `json:"height"`
}

type DragTargetPayload struct {
	TargetID *string             `json:"targetId"`
	Position canvas.DropPosition `json:"position"`
	Pointer  *Pointer            `json:"pointer,omitempty"`
}

type TextContentPayload struct {
	ElementID   *string `json:"elementId"`
	TextContent string  `json:"textContent"`
}

// DropTarget positions a dropped template relative to an existing element
type DropTarget struct {
	TargetID     *string             `json:"targetId"`
	DropPosition canvas.DropPosition `json:"dropPosition"`
}

// DropTemplatePayload carries either an inline template or a library
// reference holding only an id
type DropTemplatePayload struct {
	Template *canvas.ElementTemplate `json:"template"`
	Position DropTarget              `json:"position"`
}

type RenderErrorPayload struct {
	Message   string  `json:"message"`
	ElementID *string `json:"elementId,omitempty"`
}
