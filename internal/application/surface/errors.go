// Package surface keeps an isolated render surface consistent with an editor
// session and turns the surface's gestures back into session intents.
package surface

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/protocol"
)

// ErrorCode is the machine-readable kind of a boundary error
type ErrorCode string

const (
	CodeMalformedMessage    ErrorCode = "MALFORMED_MESSAGE"
	CodeUnknownMessageType  ErrorCode = "UNKNOWN_MESSAGE_TYPE"
	CodeNotReady            ErrorCode = "NOT_READY"
	CodeDuplicateReady      ErrorCode = "DUPLICATE_READY"
	CodeStaleReference      ErrorCode = "STALE_REFERENCE"
	CodeStructuralViolation ErrorCode = "STRUCTURAL_VIOLATION"
	CodeInvalidPayload      ErrorCode = "INVALID_PAYLOAD"
	CodeSurfaceFault        ErrorCode = "SURFACE_FAULT"
	CodeHandlerPanic        ErrorCode = "HANDLER_PANIC"
)

// BoundaryError is a fault caught at the render boundary. It is recorded
// and logged, never returned to the surface or the editing session.
type BoundaryError struct {
	ID          string               `json:"id"`
	Code        ErrorCode            `json:"code"`
	MessageType protocol.MessageType `json:"messageType,omitempty"`
	ElementID   string               `json:"elementId,omitempty"`
	Message     string               `json:"message"`
	At          time.Time            `json:"at"`
	Err         error                `json:"-"`
}

func newBoundaryError(code ErrorCode, msgType protocol.MessageType, elementID string, err error) *BoundaryError {
	be := &BoundaryError{Code: code, MessageType: msgType, ElementID: elementID, Err: err}
	if err != nil {
		be.Message = err.Error()
	}
	return be
}

func (e *BoundaryError) Error() string {
	msg := string(e.Code)
	if e.MessageType != "" {
		msg += " " + string(e.MessageType)
	}
	if e.ElementID != "" {
		msg += fmt.Sprintf(" (element %s)", e.ElementID)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *BoundaryError) Unwrap() error { return e.Err }
