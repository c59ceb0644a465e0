package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/editor"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/cms"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/repositories"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/library"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/media"
)

type memCollections struct {
	mu    sync.Mutex
	items map[string]*cms.Collection
}

func newMemCollections() *memCollections {
	return &memCollections{items: map[string]*cms.Collection{}}
}

func (m *memCollections) FindByID(_ context.Context, id string) (*cms.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return c, nil
}

func (m *memCollections) FindAll(_ context.Context) ([]*cms.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*cms.Collection, 0, len(m.items))
	for _, c := range m.items {
		out = append(out, c)
	}
	return out, nil
}

func (m *memCollections) Store(_ context.Context, c *cms.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[c.ID] = c
	return nil
}

func (m *memCollections) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func TestCMSUpsertValidatesAndNotifies(t *testing.T) {
	ctx := context.Background()
	svc := NewCMSService(newMemCollections(), nil)
	changes := 0
	svc.OnChange(func() { changes++ })

	err := svc.Upsert(ctx, &cms.Collection{ID: "posts", Fields: []cms.Field{{ID: "f1", Slug: "title", Type: "colour"}}})
	assert.ErrorIs(t, err, ErrInvalidCollection)
	assert.Equal(t, 0, changes)

	posts := &cms.Collection{
		ID:     "posts",
		Name:   "Posts",
		Fields: []cms.Field{{ID: "f1", Slug: "title", Type: cms.FieldText}},
		Items:  []cms.Item{{ID: "i1", Data: map[string]any{"title": "Hello"}}},
	}
	require.NoError(t, svc.Upsert(ctx, posts))
	assert.Equal(t, 1, changes)
	assert.Equal(t, "posts", posts.Slug)
	assert.Equal(t, "posts", posts.Items[0].CollectionID)
	assert.Len(t, svc.Collections(), 1)

	require.NoError(t, svc.Delete(ctx, "posts"))
	assert.Equal(t, 2, changes)
	assert.ErrorIs(t, svc.Delete(ctx, "posts"), repositories.ErrNotFound)
	assert.Equal(t, 2, changes)
}

func TestCMSGetFallsBackToSlug(t *testing.T) {
	ctx := context.Background()
	svc := NewCMSService(newMemCollections(), nil)
	require.NoError(t, svc.Upsert(ctx, &cms.Collection{ID: "c_01", Slug: "team", Name: "Team"}))

	byID, err := svc.Get(ctx, "c_01")
	require.NoError(t, err)
	bySlug, err := svc.Get(ctx, "team")
	require.NoError(t, err)
	assert.Same(t, byID, bySlug)

	_, err = svc.Get(ctx, "nobody")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = svc.Get(ctx, "")
	assert.Error(t, err)
}

func newBareSession(t *testing.T) *editor.Session {
	t.Helper()
	tree := canvas.NewElementTree(&canvas.Element{ID: "root", Tag: "body"})
	require.NoError(t, tree.Insert(&canvas.Element{ID: "img1", Tag: "img"}, "root", canvas.AppendPosition))
	require.NoError(t, tree.Insert(&canvas.Element{ID: "p1", Tag: "p"}, "root", canvas.AppendPosition))
	n := 0
	return editor.NewSession("s1", canvas.Document{ID: "doc"}, tree, editor.Options{
		NewID: func() string { n++; return fmt.Sprintf("n%d", n) },
	})
}

func TestTemplateServiceInstantiatesBuiltins(t *testing.T) {
	lib := library.NewFileLibrary(t.TempDir(), nil)
	svc := NewTemplateService(lib)

	layout := svc.List("layout")
	require.NotEmpty(t, layout)
	for _, tpl := range layout {
		assert.Equal(t, "layout", tpl.Category)
	}
	assert.Greater(t, len(svc.List("")), len(layout))

	session := newBareSession(t)
	id, err := svc.Instantiate(session, "section", "root", canvas.AppendPosition)
	require.NoError(t, err)
	el, ok := session.Element(id)
	require.True(t, ok)
	assert.Equal(t, "section", el.Tag)
	assert.Len(t, el.Children, 1)

	_, err = svc.Instantiate(session, "carousel", "root", canvas.AppendPosition)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

type fakeImages struct {
	err     error
	removed int
}

func (f *fakeImages) ProcessVariants(_, name string) (*media.ProcessedImage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &media.ProcessedImage{
		Original: "/media/images/originals/" + name + ".png",
		Src:      "/media/images/variants/" + name + "_1280px.webp",
		SrcSet:   "/media/images/variants/" + name + "_375px.webp 375w, /media/images/variants/" + name + "_1280px.webp 1280w",
		Variants: []media.ImageVariant{{Width: 375}, {Width: 1280}},
	}, nil
}

func (f *fakeImages) Remove(*media.ProcessedImage) { f.removed++ }

func TestAttachImageSetsSourcesInOneStep(t *testing.T) {
	ctx := context.Background()
	images := &fakeImages{}
	svc := NewAssetService(images, nil)
	session := newBareSession(t)
	depth := session.State().UndoDepth

	img, err := svc.AttachImage(ctx, session, "img1", "data:image/png;base64,AAAA")
	require.NoError(t, err)
	el, _ := session.Element("img1")
	assert.Equal(t, img.Src, el.Attributes["src"])
	assert.Equal(t, img.SrcSet, el.Attributes["srcset"])
	assert.Equal(t, "100vw", el.Attributes["sizes"])
	assert.Equal(t, depth+1, session.State().UndoDepth)

	require.True(t, session.Undo())
	el, _ = session.Element("img1")
	assert.Empty(t, el.Attributes["src"])
}

func TestAttachImageRejectsBadTargets(t *testing.T) {
	ctx := context.Background()
	images := &fakeImages{}
	svc := NewAssetService(images, nil)
	session := newBareSession(t)

	_, err := svc.AttachImage(ctx, session, "p1", "data:image/png;base64,AAAA")
	assert.ErrorIs(t, err, ErrNotImage)
	_, err = svc.AttachImage(ctx, session, "ghost", "data:image/png;base64,AAAA")
	assert.ErrorIs(t, err, canvas.ErrElementNotFound)

	images.err = errors.New("bad upload")
	_, err = svc.AttachImage(ctx, session, "img1", "junk")
	assert.ErrorIs(t, err, images.err)
	assert.False(t, session.IsDirty())
}
