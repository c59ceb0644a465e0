// Package templates renders HTML for the isolated render surface shell and
// for static previews of an editing session.
package templates

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/surface"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/protocol"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/services"
)

var (
	validTag  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)
	validAttr = regexp.MustCompile(`^[a-zA-Z_:][-a-zA-Z0-9_:.]*$`)
)

// attributes written by the renderer itself
var managedAttrs = map[string]bool{"class": true, "style": true, "data-element-id": true}

// PreviewRenderer turns a session tree into a standalone HTML document with
// bindings applied and styles resolved inline for one breakpoint
type PreviewRenderer struct {
	renderer *surface.Renderer
	styles   *services.StyleResolver
}

func NewPreviewRenderer(renderer *surface.Renderer, styles *services.StyleResolver) *PreviewRenderer {
	return &PreviewRenderer{renderer: renderer, styles: styles}
}

// Render writes the preview of tree at bp. An unknown breakpoint renders
// at desktop.
func (p *PreviewRenderer) Render(w io.Writer, tree *canvas.ElementTree, bp canvas.Breakpoint, title string) error {
	if !bp.Valid() {
		bp = canvas.BreakpointDesktop
	}
	payload := p.renderer.Payload(tree, bp)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	root := element("html", html.Attribute{Key: "lang", Val: "en"}, html.Attribute{Key: "data-breakpoint", Val: string(bp)})
	doc.AppendChild(root)

	head := element("head")
	head.AppendChild(element("meta", html.Attribute{Key: "charset", Val: "utf-8"}))
	head.AppendChild(element("meta",
		html.Attribute{Key: "name", Val: "viewport"},
		html.Attribute{Key: "content", Val: "width=" + strconv.Itoa(bp.Width())},
	))
	titleNode := element("title")
	titleNode.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	head.AppendChild(titleNode)
	root.AppendChild(head)

	rootEl, ok := payload.Elements[payload.RootID]
	if !ok {
		return fmt.Errorf("preview: root %s missing from payload", payload.RootID)
	}
	var body *html.Node
	if strings.EqualFold(rootEl.Tag, "body") {
		body = p.node(rootEl)
		p.fill(body, rootEl, payload)
	} else {
		body = element("body")
		body.AppendChild(p.build(rootEl, payload))
	}
	root.AppendChild(body)

	return html.Render(w, doc)
}

func (p *PreviewRenderer) build(el protocol.RenderedElement, payload protocol.RenderElementsPayload) *html.Node {
	n := p.node(el)
	p.fill(n, el, payload)
	return n
}

// node creates the element node with its attributes, class list, inline
// style and data-element-id
func (p *PreviewRenderer) node(el protocol.RenderedElement) *html.Node {
	tag := strings.ToLower(el.Tag)
	if !validTag.MatchString(tag) {
		tag = "div"
	}
	n := element(tag, html.Attribute{Key: "data-element-id", Val: el.ID})

	keys := make([]string, 0, len(el.Attributes))
	for k := range el.Attributes {
		lk := strings.ToLower(k)
		// inline handlers never run in a preview
		if managedAttrs[lk] || strings.HasPrefix(lk, "on") || !validAttr.MatchString(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Attr = append(n.Attr, html.Attribute{Key: strings.ToLower(k), Val: el.Attributes[k]})
	}
	if len(el.ClassList) > 0 {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: strings.Join(el.ClassList, " ")})
	}
	if css := p.styles.CSSDeclarations(el.ComputedStyle); css != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: css})
	}
	return n
}

// fill appends content then children. Void elements stay empty.
func (p *PreviewRenderer) fill(n *html.Node, el protocol.RenderedElement, payload protocol.RenderElementsPayload) {
	if canvas.IsVoidTag(n.Data) {
		return
	}
	switch {
	case el.InnerHTML != "":
		nodes, err := html.ParseFragment(strings.NewReader(el.InnerHTML), element(n.Data))
		if err != nil {
			n.AppendChild(&html.Node{Type: html.TextNode, Data: el.TextContent})
			break
		}
		for _, c := range nodes {
			n.AppendChild(c)
		}
	case el.TextContent != "":
		n.AppendChild(&html.Node{Type: html.TextNode, Data: el.TextContent})
	}
	for _, id := range el.Children {
		child, ok := payload.Elements[id]
		if !ok {
			continue
		}
		n.AppendChild(p.build(child, payload))
	}
}

func element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag)), Attr: attrs}
}
