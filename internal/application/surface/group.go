package surface

import (
	"errors"
	"sync"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/editor"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

// GroupStatus is the surface status reported for a session
type GroupStatus struct {
	SupervisorState
	Connections int           `json:"connections"`
	Bridges     []BridgeStats `json:"bridges"`
	ErrorCount  int           `json:"errorCount"`
}

type GroupConfig struct {
	Session     *editor.Session
	Renderer    *Renderer
	Templates   TemplateSource
	ErrorBuffer int
	Logger      *logging.ChanneledLogger
}

// Group holds every surface connection of one session. The connections
// share a supervisor and an error collector, so a fault parks all of them.
type Group struct {
	session    *editor.Session
	renderer   *Renderer
	templates  TemplateSource
	errors     *ErrorCollector
	supervisor *Supervisor
	logger     *logging.ChanneledLogger

	mu      sync.Mutex
	bridges map[*Bridge]struct{}
}

func NewGroup(cfg GroupConfig) *Group {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDiscardLogger()
	}
	if cfg.ErrorBuffer <= 0 {
		cfg.ErrorBuffer = DefaultErrorBuffer
	}
	return &Group{
		session:    cfg.Session,
		renderer:   cfg.Renderer,
		templates:  cfg.Templates,
		errors:     NewErrorCollector(cfg.Session.ID(), cfg.ErrorBuffer, cfg.Logger),
		supervisor: NewSupervisor(),
		logger:     cfg.Logger,
		bridges:    make(map[*Bridge]struct{}),
	}
}

// Attach starts a bridge for a new connection. It stays silent until the
// surface sends IFRAME_READY.
func (g *Group) Attach(t Transport) *Bridge {
	b := NewBridge(BridgeConfig{
		Session:    g.session,
		Transport:  t,
		Renderer:   g.renderer,
		Templates:  g.templates,
		Errors:     g.errors,
		Supervisor: g.supervisor,
		Logger:     g.logger,
	})
	g.mu.Lock()
	g.bridges[b] = struct{}{}
	n := len(g.bridges)
	g.mu.Unlock()
	g.logger.Sync().Info("Render surface attached", "sessionId", g.session.ID(), "connections", n)
	return b
}

// Detach stops a bridge whose connection went away
func (g *Group) Detach(b *Bridge) {
	g.mu.Lock()
	_, ok := g.bridges[b]
	delete(g.bridges, b)
	n := len(g.bridges)
	g.mu.Unlock()
	if !ok {
		return
	}
	b.Detach()
	g.logger.Sync().Info("Render surface detached", "sessionId", g.session.ID(), "connections", n)
}

func (g *Group) snapshot() []*Bridge {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Bridge, 0, len(g.bridges))
	for b := range g.bridges {
		out = append(out, b)
	}
	return out
}

func (g *Group) Connections() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.bridges)
}

func (g *Group) Errors() *ErrorCollector { return g.errors }

func (g *Group) Status() GroupStatus {
	bridges := g.snapshot()
	status := GroupStatus{
		SupervisorState: g.supervisor.State(),
		Connections:     len(bridges),
		Bridges:         make([]BridgeStats, 0, len(bridges)),
		ErrorCount:      g.errors.Total(),
	}
	for _, b := range bridges {
		status.Bridges = append(status.Bridges, b.Stats())
	}
	return status
}

// Resync retransmits the full state to every ready connection, as after
// CMS content changed underneath the bindings
func (g *Group) Resync() {
	for _, b := range g.snapshot() {
		b.Resync()
	}
}

// Reset clears the fault and transient interaction state, then resyncs
// every ready connection
func (g *Group) Reset() {
	g.supervisor.clear(false)
	g.session.ResetInteraction()
	g.Resync()
	g.logger.Sync().Info("Render surfaces reset", "sessionId", g.session.ID(), "connections", g.Connections())
}

// Reload clears the fault and closes every connection so the surfaces
// reconnect and announce readiness again
func (g *Group) Reload() error {
	g.supervisor.clear(true)
	g.session.ResetInteraction()
	var errs []error
	bridges := g.snapshot()
	for _, b := range bridges {
		errs = append(errs, b.disconnect())
	}
	g.logger.Sync().Info("Render surfaces reload requested", "sessionId", g.session.ID(), "connections", len(bridges))
	return errors.Join(errs...)
}

// Close detaches and disconnects every bridge
func (g *Group) Close() error {
	var errs []error
	for _, b := range g.snapshot() {
		g.Detach(b)
		errs = append(errs, b.disconnect())
	}
	return errors.Join(errs...)
}
