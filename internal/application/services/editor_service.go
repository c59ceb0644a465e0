// Package services provides application-level services that orchestrate
// editor sessions, persistence, CMS content, templates and assets.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/editor"
	"github.com/AtRiskMedia/pagebuilder-go/internal/application/surface"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/repositories"
	domain "github.com/AtRiskMedia/pagebuilder-go/internal/domain/services"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/security"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidDocument = errors.New("invalid document")
)

// autosaveTimeout bounds one background save
const autosaveTimeout = 30 * time.Second

// PublishNotifier is told about every successful publish
type PublishNotifier interface {
	NotifyPublished(ctx context.Context, doc canvas.Document, elementCount int) error
}

type EditorConfig struct {
	HistoryLimit  int
	AutosaveDelay time.Duration // zero disables auto-save
	ErrorBuffer   int
}

type EditorDeps struct {
	Documents    repositories.DocumentRepository
	Projector    *domain.DocumentProjector
	Integrity    *domain.TreeIntegrityService
	Renderer     *surface.Renderer
	Templates    surface.TemplateSource
	Notifier     PublishNotifier
	NewElementID func() string
	NewSessionID func() string
	NewDocID     func() string
	Logger       *logging.ChanneledLogger
}

// SaveResult reports what a save wrote
type SaveResult struct {
	SessionID   string                `json:"sessionId"`
	DocumentID  string                `json:"documentId"`
	Revision    uint64                `json:"revision"`
	Clean       bool                  `json:"clean"`
	Status      canvas.DocumentStatus `json:"status"`
	SavedAt     time.Time             `json:"savedAt"`
	PublishedAt *time.Time            `json:"publishedAt,omitempty"`
}

type openSession struct {
	session     *editor.Session
	surfaces    *surface.Group
	autosave    func(func())
	unsubscribe func()
	saveMu      sync.Mutex // one save in flight per session
	closed      atomic.Bool
}

// EditorService owns the open editing sessions. There is at most one
// session per document.
type EditorService struct {
	docs      repositories.DocumentRepository
	projector *domain.DocumentProjector
	integrity *domain.TreeIntegrityService
	renderer  *surface.Renderer
	templates surface.TemplateSource
	notifier  PublishNotifier
	newID     func() string
	newSessID func() string
	newDocID  func() string
	config    EditorConfig
	logger    *logging.ChanneledLogger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*openSession
	byDoc    map[string]string
}

func NewEditorService(deps EditorDeps, config EditorConfig) *EditorService {
	if deps.Logger == nil {
		deps.Logger = logging.NewDiscardLogger()
	}
	if deps.Integrity == nil {
		deps.Integrity = domain.NewTreeIntegrityService()
	}
	if deps.Projector == nil {
		deps.Projector = domain.NewDocumentProjector(deps.Integrity)
	}
	if deps.NewElementID == nil {
		deps.NewElementID = security.NewElementIDGenerator().NewID
	}
	if deps.NewSessionID == nil {
		deps.NewSessionID = security.GenerateSessionID
	}
	if deps.NewDocID == nil {
		deps.NewDocID = func() string { return "doc_" + strings.ToLower(security.GenerateULID()) }
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = editor.DefaultHistoryLimit
	}
	return &EditorService{
		docs:      deps.Documents,
		projector: deps.Projector,
		integrity: deps.Integrity,
		renderer:  deps.Renderer,
		templates: deps.Templates,
		notifier:  deps.Notifier,
		newID:     deps.NewElementID,
		newSessID: deps.NewSessionID,
		newDocID:  deps.NewDocID,
		config:    config,
		logger:    deps.Logger,
		now:       time.Now,
		sessions:  make(map[string]*openSession),
		byDoc:     make(map[string]string),
	}
}

// CreateDocument stores a new draft holding a root with one empty section
// and row
func (s *EditorService) CreateDocument(ctx context.Context, name string) (*canvas.Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidDocument)
	}
	root := canvas.NewElement(s.newID(), canvas.ElementData{Tag: "body"})
	tree := canvas.NewElementTree(root)
	section := canvas.NewElement(s.newID(), canvas.ElementData{Tag: "section"})
	if err := tree.Insert(section, root.ID, canvas.AppendPosition); err != nil {
		return nil, err
	}
	row := canvas.NewElement(s.newID(), canvas.ElementData{Tag: "div", ClassList: []string{"row"}})
	if err := tree.Insert(row, section.ID, canvas.AppendPosition); err != nil {
		return nil, err
	}

	doc := s.projector.ToDocument(tree, canvas.Document{
		ID:        s.newDocID(),
		Name:      name,
		Status:    canvas.StatusDraft,
		UpdatedAt: s.now().UTC(),
	})
	if err := s.docs.SaveDraft(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	s.logger.Editor().Info("Document created", "documentId", doc.ID, "name", name)
	return doc, nil
}

func (s *EditorService) ListDocuments(ctx context.Context) ([]*canvas.DocumentSummary, error) {
	return s.docs.FindAll(ctx)
}

// GetDocument returns the live projection when the document is open and
// the stored draft otherwise
func (s *EditorService) GetDocument(ctx context.Context, id string) (*canvas.Document, error) {
	s.mu.RLock()
	sessionID, open := s.byDoc[id]
	s.mu.RUnlock()
	if open {
		if doc, err := s.Document(sessionID); err == nil {
			return doc, nil
		}
	}
	return s.docs.FindByID(ctx, id)
}

func (s *EditorService) GetPublished(ctx context.Context, id string) (*canvas.Document, error) {
	return s.docs.FindPublished(ctx, id)
}

// DeleteDocument closes any open session without saving, then deletes
func (s *EditorService) DeleteDocument(ctx context.Context, id string) error {
	s.mu.RLock()
	sessionID, open := s.byDoc[id]
	s.mu.RUnlock()
	if open {
		if entry := s.detach(sessionID); entry != nil {
			entry.surfaces.Close()
		}
	}
	return s.docs.Delete(ctx, id)
}

// OpenSession loads a document into an editing session. An already open
// document returns its existing session.
func (s *EditorService) OpenSession(ctx context.Context, documentID string) (*editor.Session, error) {
	s.mu.RLock()
	if sid, ok := s.byDoc[documentID]; ok {
		entry := s.sessions[sid]
		s.mu.RUnlock()
		entry.session.Touch()
		return entry.session, nil
	}
	s.mu.RUnlock()

	doc, err := s.docs.FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	tree, err := s.projector.ToTree(doc)
	if err != nil {
		s.logger.LogError(logging.ChannelEditor, "open_session", err, "", map[string]any{"documentId": documentID})
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	sessionID := s.newSessID()
	session := editor.NewSession(sessionID, *doc, tree, editor.Options{
		HistoryLimit: s.config.HistoryLimit,
		NewID:        s.newID,
		Logger:       s.logger.WithSession(logging.ChannelEditor, sessionID),
	})
	entry := &openSession{
		session: session,
		surfaces: surface.NewGroup(surface.GroupConfig{
			Session:     session,
			Renderer:    s.renderer,
			Templates:   s.templates,
			ErrorBuffer: s.config.ErrorBuffer,
			Logger:      s.logger,
		}),
	}
	if s.config.AutosaveDelay > 0 {
		entry.autosave = debounce.New(s.config.AutosaveDelay)
		entry.unsubscribe = session.Subscribe(func(c editor.Change) {
			if c.Kind.Has(editor.ChangeDirty) && !entry.closed.Load() && session.IsDirty() {
				entry.autosave(func() { s.autosaveNow(entry) })
			}
		})
	}

	s.mu.Lock()
	if sid, ok := s.byDoc[documentID]; ok {
		// lost a race with another open of the same document
		existing := s.sessions[sid]
		s.mu.Unlock()
		if entry.unsubscribe != nil {
			entry.unsubscribe()
		}
		return existing.session, nil
	}
	s.sessions[sessionID] = entry
	s.byDoc[documentID] = sessionID
	count := len(s.sessions)
	s.mu.Unlock()

	s.logger.Editor().Info("Session opened", "sessionId", sessionID, "documentId", documentID,
		"elements", tree.Len(), "openSessions", count)
	return session, nil
}

func (s *EditorService) lookup(sessionID string) (*openSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

func (s *EditorService) GetSession(sessionID string) (*editor.Session, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return entry.session, nil
}

// Surfaces returns the render surface connections of a session
func (s *EditorService) Surfaces(sessionID string) (*surface.Group, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return entry.surfaces, nil
}

// Sessions lists the state of every open session, oldest first
func (s *EditorService) Sessions() []editor.SessionState {
	s.mu.RLock()
	list := make([]*openSession, 0, len(s.sessions))
	for _, entry := range s.sessions {
		list = append(list, entry)
	}
	s.mu.RUnlock()

	out := make([]editor.SessionState, 0, len(list))
	for _, entry := range list {
		out = append(out, entry.session.State())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

func (s *EditorService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Document projects the live tree of a session into its persisted shape
func (s *EditorService) Document(sessionID string) (*canvas.Document, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	tree, _ := entry.session.Snapshot()
	return s.projector.ToDocument(tree, entry.session.Meta()), nil
}

// ImportDocument replaces the session tree with doc in one undoable step.
// The document identity of the session is kept.
func (s *EditorService) ImportDocument(sessionID string, doc *canvas.Document) error {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	tree, err := s.projector.ToTree(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	entry.session.ReplaceTree("import", tree)
	s.logger.Editor().Info("Document imported into session", "sessionId", sessionID, "elements", tree.Len())
	return nil
}

// CheckIntegrity validates the live tree of a session
func (s *EditorService) CheckIntegrity(sessionID string) ([]domain.Violation, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return s.integrity.Check(entry.session.Tree()), nil
}

// SaveDraft persists the current tree. On failure the session stays dirty
// and unchanged.
func (s *EditorService) SaveDraft(ctx context.Context, sessionID string) (*SaveResult, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, entry)
}

func (s *EditorService) save(ctx context.Context, entry *openSession) (*SaveResult, error) {
	entry.saveMu.Lock()
	defer entry.saveMu.Unlock()

	start := time.Now()
	tree, revision := entry.session.Snapshot()
	meta := entry.session.Meta()
	doc := s.projector.ToDocument(tree, meta)
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = s.now().UTC()
	}

	if err := s.docs.SaveDraft(ctx, doc); err != nil {
		s.logger.LogError(logging.ChannelPersistence, "save_draft", err, entry.session.ID(), map[string]any{"documentId": doc.ID})
		return nil, fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}
	clean := entry.session.MarkSaved(revision, "", nil)

	s.logger.Persistence().Info("Session saved", "sessionId", entry.session.ID(), "documentId", doc.ID,
		"revision", revision, "clean", clean, "duration", time.Since(start))
	return &SaveResult{
		SessionID:   entry.session.ID(),
		DocumentID:  doc.ID,
		Revision:    revision,
		Clean:       clean,
		Status:      meta.Status,
		SavedAt:     doc.UpdatedAt,
		PublishedAt: meta.PublishedAt,
	}, nil
}

// Publish saves the draft, promotes it and sends the publish notice.
// A failing notice is logged only.
func (s *EditorService) Publish(ctx context.Context, sessionID string) (*SaveResult, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	res, err := s.save(ctx, entry)
	if err != nil {
		return nil, err
	}

	publishedAt, err := s.docs.Publish(ctx, res.DocumentID)
	if err != nil {
		s.logger.LogError(logging.ChannelPersistence, "publish", err, sessionID, map[string]any{"documentId": res.DocumentID})
		return nil, fmt.Errorf("failed to publish document %s: %w", res.DocumentID, err)
	}
	res.Clean = entry.session.MarkSaved(res.Revision, canvas.StatusPublished, &publishedAt)
	res.Status = canvas.StatusPublished
	res.PublishedAt = &publishedAt
	s.logger.Persistence().Info("Document published", "sessionId", sessionID, "documentId", res.DocumentID, "revision", res.Revision)

	if s.notifier != nil {
		meta := entry.session.Meta()
		if err := s.notifier.NotifyPublished(ctx, meta, entry.session.State().ElementCount); err != nil {
			s.logger.Persistence().Warn("Publish notice failed", "documentId", res.DocumentID, "error", err.Error())
		}
	}
	return res, nil
}

// autosaveNow runs when the debouncer fires. Clean or closed sessions are
// skipped.
func (s *EditorService) autosaveNow(entry *openSession) {
	if entry.closed.Load() || !entry.session.IsDirty() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()
	if _, err := s.save(ctx, entry); err != nil {
		s.logger.Persistence().Warn("Auto-save failed", "sessionId", entry.session.ID(), "error", err.Error())
		return
	}
	s.logger.Persistence().Debug("Auto-saved session", "sessionId", entry.session.ID())
}

// detach removes a session from the registry and stops its auto-save
func (s *EditorService) detach(sessionID string) *openSession {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
		meta := entry.session.Meta()
		if s.byDoc[meta.ID] == sessionID {
			delete(s.byDoc, meta.ID)
		}
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	entry.closed.Store(true)
	if entry.unsubscribe != nil {
		entry.unsubscribe()
	}
	return entry
}

// CloseSession flushes unsaved edits, disconnects surfaces and forgets the
// session. The session is closed even when the final save fails.
func (s *EditorService) CloseSession(ctx context.Context, sessionID string) error {
	entry := s.detach(sessionID)
	if entry == nil {
		return ErrSessionNotFound
	}
	var saveErr error
	if entry.session.IsDirty() {
		_, saveErr = s.save(ctx, entry)
	}
	if err := entry.surfaces.Close(); err != nil {
		s.logger.Sync().Debug("Surface close reported errors", "sessionId", sessionID, "error", err.Error())
	}
	s.logger.Editor().Info("Session closed", "sessionId", sessionID, "flushError", saveErr != nil)
	return saveErr
}

// ReapIdle closes sessions without activity since cutoff
func (s *EditorService) ReapIdle(ctx context.Context, cutoff time.Time) []string {
	s.mu.RLock()
	var idle []string
	for id, entry := range s.sessions {
		if entry.session.LastActivity().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	s.mu.RUnlock()

	sort.Strings(idle)
	for _, id := range idle {
		if err := s.CloseSession(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			s.logger.Editor().Warn("Idle session closed with unsaved changes", "sessionId", id, "error", err.Error())
		}
	}
	return idle
}

// ResyncSurfaces retransmits every session to its surfaces
func (s *EditorService) ResyncSurfaces() {
	s.mu.RLock()
	groups := make([]*surface.Group, 0, len(s.sessions))
	for _, entry := range s.sessions {
		groups = append(groups, entry.surfaces)
	}
	s.mu.RUnlock()
	for _, g := range groups {
		g.Resync()
	}
}

// Shutdown closes every session, flushing unsaved work
func (s *EditorService) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := s.CloseSession(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
