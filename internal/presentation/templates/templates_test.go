package templates

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/surface"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/cms"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/services"
)

type staticCollections []*cms.Collection

func (s staticCollections) Collections() []*cms.Collection { return s }

func newPreview(collections ...*cms.Collection) *PreviewRenderer {
	styles := services.NewStyleResolver()
	return NewPreviewRenderer(surface.NewRenderer(styles, services.NewBindingResolver(), staticCollections(collections)), styles)
}

func previewTree(t *testing.T) *canvas.ElementTree {
	t.Helper()
	tree := canvas.NewElementTree(&canvas.Element{ID: "root", Tag: "body"})
	insert := func(el *canvas.Element, parent string) {
		require.NoError(t, tree.Insert(el, parent, canvas.AppendPosition))
	}
	insert(&canvas.Element{ID: "sec", Tag: "section", ClassList: []string{"hero", "dark"}, Styles: canvas.Styles{
		Base:    canvas.StyleMap{"padding": "8px"},
		Desktop: canvas.StyleMap{"padding": "48px"},
	}}, "root")
	insert(&canvas.Element{ID: "title", Tag: "h1", TextContent: "static", DataBindings: map[string]*cms.BindingRule{
		"textContent": {CollectionID: "posts", FieldID: "title", Fallback: "fallback"},
	}}, "sec")
	insert(&canvas.Element{ID: "pic", Tag: "img", Attributes: map[string]string{"src": "/a.webp", "onerror": "alert(1)"}}, "sec")
	insert(&canvas.Element{ID: "rich", Tag: "p", InnerHTML: "<b>bold</b> text"}, "sec")
	insert(&canvas.Element{ID: "odd", Tag: "not a tag", TextContent: "<script>"}, "sec")
	return tree
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "data-element-id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hit := findByID(c, id); hit != nil {
			return hit
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func TestPreviewRendersResolvedTree(t *testing.T) {
	posts := &cms.Collection{
		ID:     "posts",
		Fields: []cms.Field{{ID: "title", Slug: "title", Type: cms.FieldText}},
		Items:  []cms.Item{{ID: "i1", Published: true, Data: map[string]any{"title": "From CMS"}}},
	}
	var buf bytes.Buffer
	require.NoError(t, newPreview(posts).Render(&buf, previewTree(t), canvas.BreakpointDesktop, "Landing"))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>Landing</title>")
	assert.Contains(t, out, `content="width=1280"`)

	doc, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)

	body := findByID(doc, "root")
	require.NotNil(t, body)
	assert.Equal(t, "body", body.Data)

	sec := findByID(doc, "sec")
	require.NotNil(t, sec)
	assert.Equal(t, "hero dark", attr(sec, "class"))
	assert.Equal(t, "padding: 48px;", attr(sec, "style"))

	title := findByID(doc, "title")
	require.NotNil(t, title)
	assert.Equal(t, "From CMS", title.FirstChild.Data)

	pic := findByID(doc, "pic")
	require.NotNil(t, pic)
	assert.Equal(t, "/a.webp", attr(pic, "src"))
	assert.Empty(t, attr(pic, "onerror"))
	assert.Nil(t, pic.FirstChild)

	rich := findByID(doc, "rich")
	require.NotNil(t, rich)
	require.NotNil(t, rich.FirstChild)
	assert.Equal(t, "b", rich.FirstChild.Data)

	odd := findByID(doc, "odd")
	require.NotNil(t, odd)
	assert.Equal(t, "div", odd.Data)
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestPreviewUsesBreakpointCascade(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newPreview().Render(&buf, previewTree(t), canvas.BreakpointMobile, "x"))
	doc, err := html.Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, "padding: 8px;", attr(findByID(doc, "sec"), "style"))
	// no collections: the binding falls back
	assert.Equal(t, "fallback", findByID(doc, "title").FirstChild.Data)

	buf.Reset()
	require.NoError(t, newPreview().Render(&buf, previewTree(t), "watch", "x"))
	assert.Contains(t, buf.String(), `data-breakpoint="desktop"`)
}

func TestPreviewWrapsNonBodyRoot(t *testing.T) {
	tree := canvas.NewElementTree(&canvas.Element{ID: "r", Tag: "main"})
	var buf bytes.Buffer
	require.NoError(t, newPreview().Render(&buf, tree, canvas.BreakpointTablet, "x"))
	assert.Contains(t, buf.String(), `<body><main data-element-id="r"></main></body>`)
}

func TestSurfaceShellEscapesValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderSurfaceShell(&buf, ShellData{
		SessionID:  `s1"</script>`,
		Token:      "tok.en",
		SocketPath: "/surface/s1/ws",
	}))
	out := buf.String()
	assert.Contains(t, out, `const token = "tok.en";`)
	assert.Contains(t, out, `data-viewport="desktop"`)
	assert.NotContains(t, out, `s1"</script>`)
	assert.Contains(t, out, "IFRAME_READY")
}

func TestSurfaceShellClearsTargetOnAbandonedDrag(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderSurfaceShell(&buf, ShellData{SessionID: "s1", Token: "t", SocketPath: "/surface/s1/ws"}))
	out := buf.String()

	assert.Contains(t, out, `mount.addEventListener("dragleave"`)
	require.Contains(t, out, `e.dataTransfer.dropEffect === "none"`)
	cancelled := out[strings.Index(out, `dropEffect === "none"`):]
	clear := strings.Index(cancelled, `send("UPDATE_DRAG_TARGET", { targetId: null })`)
	end := strings.Index(cancelled, `send("DRAG_END")`)
	require.GreaterOrEqual(t, clear, 0)
	assert.Less(t, clear, end, "target cleared before DRAG_END on a cancelled drag")
}
