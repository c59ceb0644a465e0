package surface

import (
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/cms"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/protocol"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/services"
)

// CollectionSource supplies the CMS collections bindings read from
type CollectionSource interface {
	Collections() []*cms.Collection
}

// TemplateSource looks up library templates by id
type TemplateSource interface {
	Get(id string) (*canvas.ElementTemplate, bool)
}

// Renderer builds the wholesale element payload sent to the surface
type Renderer struct {
	styles   *services.StyleResolver
	bindings *services.BindingResolver
	cms      CollectionSource
}

func NewRenderer(styles *services.StyleResolver, bindings *services.BindingResolver, cms CollectionSource) *Renderer {
	return &Renderer{styles: styles, bindings: bindings, cms: cms}
}

// Payload renders every element of tree for the given viewport
func (r *Renderer) Payload(tree *canvas.ElementTree, viewport canvas.Breakpoint) protocol.RenderElementsPayload {
	var collections []*cms.Collection
	if r.cms != nil {
		collections = r.cms.Collections()
	}
	out := protocol.RenderElementsPayload{
		Elements: make(map[string]protocol.RenderedElement, tree.Len()),
		RootID:   tree.Root(),
	}
	tree.Walk(func(el *canvas.Element, _ int) {
		bound := r.bindings.ApplyBindings(el, collections)
		out.Elements[el.ID] = protocol.RenderedElement{
			Element:       bound,
			ComputedStyle: r.styles.Resolve(bound, viewport, canvas.StateNone),
		}
	})
	return out
}
