package surface

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

type SurfaceStatus string

const (
	StatusHealthy SurfaceStatus = "healthy"
	StatusFaulted SurfaceStatus = "faulted"
)

// Fault describes why a surface stopped receiving updates
type Fault struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	ElementID string    `json:"elementId,omitempty"`
	At        time.Time `json:"at"`
}

// SupervisorState is the externally visible supervisor status
type SupervisorState struct {
	Status     SurfaceStatus `json:"status"`
	Fault      *Fault        `json:"fault,omitempty"`
	FaultCount int           `json:"faultCount"`
	Resets     int           `json:"resets"`
	Reloads    int           `json:"reloads"`
}

// Supervisor isolates faults of one render surface. A fault parks the
// surface until it is reset or reloaded; the editing session is unaffected.
type Supervisor struct {
	mu    sync.Mutex
	state SupervisorState
}

func NewSupervisor() *Supervisor {
	return &Supervisor{state: SupervisorState{Status: StatusHealthy}}
}

// Guard runs fn and converts a panic into a fault
func (s *Supervisor) Guard(fn func()) (be *BoundaryError) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v\n%s", r, debug.Stack())
			be = newBoundaryError(CodeHandlerPanic, "", "", err)
			be.Message = fmt.Sprintf("panic: %v", r)
			s.Fault(CodeHandlerPanic, be.Message, "")
		}
	}()
	fn()
	return nil
}

// Fault parks the surface
func (s *Supervisor) Fault(code ErrorCode, message, elementID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Status = StatusFaulted
	s.state.Fault = &Fault{Code: code, Message: message, ElementID: elementID, At: time.Now().UTC()}
	s.state.FaultCount++
}

func (s *Supervisor) Faulted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status == StatusFaulted
}

func (s *Supervisor) clear(reload bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Status = StatusHealthy
	s.state.Fault = nil
	if reload {
		s.state.Reloads++
	} else {
		s.state.Resets++
	}
}

func (s *Supervisor) State() SupervisorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	if s.state.Fault != nil {
		f := *s.state.Fault
		out.Fault = &f
	}
	return out
}
