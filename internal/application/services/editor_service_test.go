package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/repositories"
)

// memDocuments is an in-memory DocumentRepository with failure injection
type memDocuments struct {
	mu        sync.Mutex
	drafts    map[string]*canvas.Document
	published map[string]*canvas.Document
	saves     int
	failSave  error
}

func newMemDocuments() *memDocuments {
	return &memDocuments{drafts: map[string]*canvas.Document{}, published: map[string]*canvas.Document{}}
}

func copyDoc(d *canvas.Document) *canvas.Document {
	cp := *d
	return &cp
}

func (m *memDocuments) FindByID(_ context.Context, id string) (*canvas.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyDoc(d), nil
}

func (m *memDocuments) FindPublished(_ context.Context, id string) (*canvas.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.published[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyDoc(d), nil
}

func (m *memDocuments) FindAll(_ context.Context) ([]*canvas.DocumentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*canvas.DocumentSummary{}
	for _, d := range m.drafts {
		out = append(out, &canvas.DocumentSummary{ID: d.ID, Name: d.Name, Status: d.Status})
	}
	return out, nil
}

func (m *memDocuments) SaveDraft(_ context.Context, doc *canvas.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.saves++
	m.drafts[doc.ID] = copyDoc(doc)
	return nil
}

func (m *memDocuments) Publish(_ context.Context, id string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return time.Time{}, repositories.ErrNotFound
	}
	m.published[id] = copyDoc(d)
	return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), nil
}

func (m *memDocuments) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.drafts, id)
	return nil
}

func (m *memDocuments) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type recordingNotifier struct {
	mu    sync.Mutex
	docs  []canvas.Document
	count int
	err   error
}

func (n *recordingNotifier) NotifyPublished(_ context.Context, doc canvas.Document, elementCount int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.docs = append(n.docs, doc)
	n.count = elementCount
	return n.err
}

func newTestEditor(t *testing.T, docs *memDocuments, cfg EditorConfig, notifier PublishNotifier) *EditorService {
	t.Helper()
	var mu sync.Mutex
	n, s, d := 0, 0, 0
	svc := NewEditorService(EditorDeps{
		Documents:    docs,
		Notifier:     notifier,
		NewElementID: func() string { mu.Lock(); defer mu.Unlock(); n++; return fmt.Sprintf("el%d", n) },
		NewSessionID: func() string { mu.Lock(); defer mu.Unlock(); s++; return fmt.Sprintf("sess%d", s) },
		NewDocID:     func() string { mu.Lock(); defer mu.Unlock(); d++; return fmt.Sprintf("doc%d", d) },
	}, cfg)
	t.Cleanup(func() { svc.Shutdown(context.Background()) })
	return svc
}

func TestCreateDocumentAndOpenSession(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocuments()
	svc := newTestEditor(t, docs, EditorConfig{}, nil)

	doc, err := svc.CreateDocument(ctx, "  Landing ")
	require.NoError(t, err)
	assert.Equal(t, "doc1", doc.ID)
	assert.Equal(t, "Landing", doc.Name)
	require.Len(t, doc.Sections, 1)
	require.Len(t, doc.Sections[0].Rows, 1)

	_, err = svc.CreateDocument(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidDocument)

	session, err := svc.OpenSession(ctx, doc.ID)
	require.NoError(t, err)
	state := session.State()
	assert.Equal(t, 3, state.ElementCount)
	assert.False(t, state.Dirty)

	again, err := svc.OpenSession(ctx, doc.ID)
	require.NoError(t, err)
	assert.Same(t, session, again)
	assert.Equal(t, 1, svc.SessionCount())

	violations, err := svc.CheckIntegrity(session.ID())
	require.NoError(t, err)
	assert.Empty(t, violations)

	_, err = svc.OpenSession(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestSaveDraftMarksClean(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocuments()
	svc := newTestEditor(t, docs, EditorConfig{}, nil)
	doc, err := svc.CreateDocument(ctx, "Page")
	require.NoError(t, err)
	session, err := svc.OpenSession(ctx, doc.ID)
	require.NoError(t, err)

	row := doc.Sections[0].Rows[0].Element.ID
	_, err = session.CreateElement(canvas.ElementData{Tag: "h1", TextContent: "Hello"}, row, canvas.AppendPosition)
	require.NoError(t, err)
	require.True(t, session.IsDirty())

	res, err := svc.SaveDraft(ctx, session.ID())
	require.NoError(t, err)
	assert.True(t, res.Clean)
	assert.False(t, session.IsDirty())

	stored, err := docs.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored.Sections[0].Rows[0].Widgets, 1)
	assert.Equal(t, "Hello", stored.Sections[0].Rows[0].Widgets[0].Element.TextContent)

	_, err = svc.SaveDraft(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFailedSaveLeavesSessionDirty(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocuments()
	svc := newTestEditor(t, docs, EditorConfig{}, nil)
	doc, err := svc.CreateDocument(ctx, "Page")
	require.NoError(t, err)
	session, err := svc.OpenSession(ctx, doc.ID)
	require.NoError(t, err)

	_, err = session.CreateElement(canvas.ElementData{Tag: "p"}, "", canvas.AppendPosition)
	require.NoError(t, err)
	before := session.Tree()

	boom := errors.New("disk full")
	docs.failSave = boom
	_, err = svc.SaveDraft(ctx, session.ID())
	assert.ErrorIs(t, err, boom)
	assert.True(t, session.IsDirty())
	assert.True(t, before.Equal(session.Tree()))
}

func TestPublishNotifiesAndSurvivesNotifierFailure(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocuments()
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	svc := newTestEditor(t, docs, EditorConfig{}, notifier)
	doc, err := svc.CreateDocument(ctx, "Launch")
	require.NoError(t, err)
	session, err := svc.OpenSession(ctx, doc.ID)
	require.NoError(t, err)
	_, err = session.CreateElement(canvas.ElementData{Tag: "p"}, "", canvas.AppendPosition)
	require.NoError(t, err)

	res, err := svc.Publish(ctx, session.ID())
	require.NoError(t, err)
	assert.Equal(t, canvas.StatusPublished, res.Status)
	require.NotNil(t, res.PublishedAt)
	assert.True(t, res.Clean)

	meta := session.Meta()
	assert.Equal(t, canvas.StatusPublished, meta.Status)
	require.NotNil(t, meta.PublishedAt)

	require.Len(t, notifier.docs, 1)
	assert.Equal(t, "Launch", notifier.docs[0].Name)
	assert.Equal(t, 4, notifier.count)

	_, err = docs.FindPublished(ctx, doc.ID)
	assert.NoError(t, err)
}

func TestAutosaveDebouncesEdits(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocuments()
	svc := newTestEditor(t, docs, EditorConfig{AutosaveDelay: 30 * time.Millisecond}, nil)
	doc, err := svc.CreateDocument(ctx, "Page")
	require.NoError(t, err)
	base := docs.saveCount()
	session, err := svc.OpenSession(ctx, doc.ID)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := session.CreateElement(canvas.ElementData{Tag: "p"}, "", canvas.AppendPosition)
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool { return !session.IsDirty() }, 2*time.Second, 5*time.Millisecond)
	// a burst of edits collapses into one save
	assert.Equal(t, base+1, docs.saveCount())
}

func TestCloseSessionFlushesAndForgets(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocuments()
	svc := newTestEditor(t, docs, EditorConfig{}, nil)
	doc, err := svc.CreateDocument(ctx, "Page")
	require.NoError(t, err)
	session, err := svc.OpenSession(ctx, doc.ID)
	require.NoError(t, err)
	_, err = session.CreateElement(canvas.ElementData{Tag: "p", TextContent: "kept"}, "", canvas.AppendPosition)
	require.NoError(t, err)

	require.NoError(t, svc.CloseSession(ctx, session.ID()))
	_, err = svc.GetSession(session.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.CloseSession(ctx, session.ID()), ErrSessionNotFound)

	stored, err := docs.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Sections, 2)

	reopened, err := svc.OpenSession(ctx, doc.ID)
	require.NoError(t, err)
	assert.NotEqual(t, session.ID(), reopened.ID())
}

func TestReapIdleClosesStaleSessions(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocuments()
	svc := newTestEditor(t, docs, EditorConfig{}, nil)
	a, err := svc.CreateDocument(ctx, "A")
	require.NoError(t, err)
	b, err := svc.CreateDocument(ctx, "B")
	require.NoError(t, err)
	sa, err := svc.OpenSession(ctx, a.ID)
	require.NoError(t, err)
	_, err = svc.OpenSession(ctx, b.ID)
	require.NoError(t, err)

	assert.Empty(t, svc.ReapIdle(ctx, time.Now().Add(-time.Hour)))

	reaped := svc.ReapIdle(ctx, time.Now().Add(time.Hour))
	assert.Len(t, reaped, 2)
	assert.Contains(t, reaped, sa.ID())
	assert.Equal(t, 0, svc.SessionCount())
}

func TestImportDocumentReplacesTreeUndoably(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocuments()
	svc := newTestEditor(t, docs, EditorConfig{}, nil)
	doc, err := svc.CreateDocument(ctx, "Page")
	require.NoError(t, err)
	session, err := svc.OpenSession(ctx, doc.ID)
	require.NoError(t, err)
	original := session.Tree()

	imported := &canvas.Document{
		ID:   doc.ID,
		Root: canvas.Element{ID: "r", Tag: "body"},
		Sections: []canvas.Section{{
			Element: canvas.Element{ID: "s", Tag: "section"},
		}},
	}
	require.NoError(t, svc.ImportDocument(session.ID(), imported))
	assert.Equal(t, 2, session.State().ElementCount)
	assert.True(t, session.Has("s"))

	require.True(t, session.Undo())
	assert.True(t, original.Equal(session.Tree()))

	err = svc.ImportDocument(session.ID(), &canvas.Document{})
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestGetDocumentPrefersLiveSession(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocuments()
	svc := newTestEditor(t, docs, EditorConfig{}, nil)
	doc, err := svc.CreateDocument(ctx, "Page")
	require.NoError(t, err)
	session, err := svc.OpenSession(ctx, doc.ID)
	require.NoError(t, err)
	_, err = session.CreateElement(canvas.ElementData{Tag: "section"}, "", canvas.AppendPosition)
	require.NoError(t, err)

	live, err := svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, live.Sections, 2)

	require.NoError(t, svc.DeleteDocument(ctx, doc.ID))
	assert.Equal(t, 0, svc.SessionCount())
	_, err = svc.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
