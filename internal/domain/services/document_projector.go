package services

import (
	"fmt"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
)

// DocumentProjector converts between the persisted section/row/widget
// document and the flat element tree. Levels are positional: children of
// the root are sections, their children rows, and anything deeper widgets.
type DocumentProjector struct {
	integrity *TreeIntegrityService
}

func NewDocumentProjector(integrity *TreeIntegrityService) *DocumentProjector {
	return &DocumentProjector{integrity: integrity}
}

// ToTree flattens a document into an element tree
func (p *DocumentProjector) ToTree(doc *canvas.Document) (*canvas.ElementTree, error) {
	if doc == nil || doc.Root.ID == "" {
		return nil, fmt.Errorf("document has no root element")
	}
	tree := canvas.NewElementTree(&doc.Root)
	for _, section := range doc.Sections {
		if err := tree.Insert(&section.Element, doc.Root.ID, canvas.AppendPosition); err != nil {
			return nil, fmt.Errorf("section %s: %w", section.Element.ID, err)
		}
		for _, row := range section.Rows {
			if err := tree.Insert(&row.Element, section.Element.ID, canvas.AppendPosition); err != nil {
				return nil, fmt.Errorf("row %s: %w", row.Element.ID, err)
			}
			for _, w := range row.Widgets {
				if err := p.insertWidget(tree, w, row.Element.ID); err != nil {
					return nil, err
				}
			}
		}
	}
	if violations := p.integrity.Check(tree); len(violations) > 0 {
		return nil, fmt.Errorf("document %s: %s", doc.ID, violations[0])
	}
	return tree, nil
}

func (p *DocumentProjector) insertWidget(tree *canvas.ElementTree, w canvas.Widget, parentID string) error {
	if err := tree.Insert(&w.Element, parentID, canvas.AppendPosition); err != nil {
		return fmt.Errorf("widget %s: %w", w.Element.ID, err)
	}
	for _, child := range w.Children {
		if err := p.insertWidget(tree, child, w.Element.ID); err != nil {
			return err
		}
	}
	return nil
}

// ToDocument rebuilds the persisted shape of a tree. Identity and
// timestamps are taken from meta.
func (p *DocumentProjector) ToDocument(tree *canvas.ElementTree, meta canvas.Document) *canvas.Document {
	doc := &canvas.Document{
		ID:          meta.ID,
		Name:        meta.Name,
		Status:      meta.Status,
		UpdatedAt:   meta.UpdatedAt,
		PublishedAt: meta.PublishedAt,
		Sections:    []canvas.Section{},
	}
	root, _ := tree.Get(tree.Root())
	doc.Root = *root

	for _, sid := range root.Children {
		sel, ok := tree.Get(sid)
		if !ok {
			continue
		}
		section := canvas.Section{Element: *sel, Rows: []canvas.Row{}}
		for _, rid := range sel.Children {
			rel, ok := tree.Get(rid)
			if !ok {
				continue
			}
			row := canvas.Row{Element: *rel, Widgets: []canvas.Widget{}}
			for _, wid := range rel.Children {
				if w, ok := p.widget(tree, wid); ok {
					row.Widgets = append(row.Widgets, w)
				}
			}
			section.Rows = append(section.Rows, row)
		}
		doc.Sections = append(doc.Sections, section)
	}
	return doc
}

func (p *DocumentProjector) widget(tree *canvas.ElementTree, id string) (canvas.Widget, bool) {
	el, ok := tree.Get(id)
	if !ok {
		return canvas.Widget{}, false
	}
	w := canvas.Widget{Element: *el}
	for _, c := range el.Children {
		if child, ok := p.widget(tree, c); ok {
			w.Children = append(w.Children, child)
		}
	}
	return w, true
}
