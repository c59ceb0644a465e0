// Package canvas defines the page element tree the editor operates on,
// its layered styles, and the selection and drag records around it.
package canvas

import "github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/cms"

// AnimationTrigger fires an animation or interaction
type AnimationTrigger string

const (
	TriggerEntrance AnimationTrigger = "entrance"
	TriggerHover    AnimationTrigger = "hover"
	TriggerScroll   AnimationTrigger = "scroll"
	TriggerClick    AnimationTrigger = "click"
)

type Animation struct {
	ID       string           `json:"id"`
	Trigger  AnimationTrigger `json:"trigger"`
	Effect   string           `json:"effect"`
	Duration int              `json:"duration,omitempty"` // milliseconds
	Delay    int              `json:"delay,omitempty"`    // milliseconds
	Easing   string           `json:"easing,omitempty"`
}

type Interaction struct {
	ID      string           `json:"id"`
	Trigger AnimationTrigger `json:"trigger"`
	Action  string           `json:"action"`
	Target  string           `json:"target,omitempty"`
	Value   string           `json:"value,omitempty"`
}

// Element is a single node in the page tree
type Element struct {
	ID           string                      `json:"id"`
	Tag          string                      `json:"tag"`
	ParentID     string                      `json:"parentId,omitempty"`
	Children     []string                    `json:"children"`
	TextContent  string                      `json:"textContent,omitempty"`
	InnerHTML    string                      `json:"innerHTML,omitempty"`
	Attributes   map[string]string           `json:"attributes,omitempty"`
	ClassList    []string                    `json:"classList,omitempty"`
	Styles       Styles                      `json:"styles"`
	DataBindings map[string]*cms.BindingRule `json:"dataBindings,omitempty"`
	Animations   []Animation                 `json:"animations,omitempty"`
	Interactions []Interaction               `json:"interactions,omitempty"`
}

var voidTags = map[string]bool{
	"img": true, "input": true, "br": true, "hr": true,
	"meta": true, "link": true, "source": true,
}

// IsVoidTag reports whether elements of this tag can never hold children
func IsVoidTag(tag string) bool {
	return voidTags[tag]
}

// CanHaveChildren reports whether the element may own children
func (e *Element) CanHaveChildren() bool {
	return !IsVoidTag(e.Tag)
}

// Clone returns a deep copy of the element
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	out := *e
	out.Children = append([]string{}, e.Children...)
	if e.Attributes != nil {
		out.Attributes = make(map[string]string, len(e.Attributes))
		for k, v := range e.Attributes {
			out.Attributes[k] = v
		}
	}
	if e.ClassList != nil {
		out.ClassList = append([]string{}, e.ClassList...)
	}
	out.Styles = e.Styles.Clone()
	if e.DataBindings != nil {
		out.DataBindings = make(map[string]*cms.BindingRule, len(e.DataBindings))
		for k, v := range e.DataBindings {
			out.DataBindings[k] = v.Clone()
		}
	}
	if e.Animations != nil {
		out.Animations = append([]Animation{}, e.Animations...)
	}
	if e.Interactions != nil {
		out.Interactions = append([]Interaction{}, e.Interactions...)
	}
	return &out
}

// ElementData is the seed for a new element
type ElementData struct {
	Tag          string                      `json:"tag"`
	TextContent  string                      `json:"textContent,omitempty"`
	InnerHTML    string                      `json:"innerHTML,omitempty"`
	Attributes   map[string]string           `json:"attributes,omitempty"`
	ClassList    []string                    `json:"classList,omitempty"`
	Styles       Styles                      `json:"styles"`
	DataBindings map[string]*cms.BindingRule `json:"dataBindings,omitempty"`
	Animations   []Animation                 `json:"animations,omitempty"`
	Interactions []Interaction               `json:"interactions,omitempty"`
}

// NewElement builds a detached element with the given id from seed data.
// The seed is copied, so later edits to data never reach the element.
func NewElement(id string, data ElementData) *Element {
	tag := data.Tag
	if tag == "" {
		tag = "div"
	}
	seed := &Element{
		ID:           id,
		Tag:          tag,
		Children:     []string{},
		TextContent:  data.TextContent,
		InnerHTML:    data.InnerHTML,
		Attributes:   data.Attributes,
		ClassList:    data.ClassList,
		Styles:       data.Styles,
		DataBindings: data.DataBindings,
		Animations:   data.Animations,
		Interactions: data.Interactions,
	}
	el := seed.Clone()
	if el.Styles.Base == nil {
		el.Styles.Base = StyleMap{}
	}
	return el
}

// ElementPatch is a shallow partial update. Nil fields are left alone.
// Identity and hierarchy (id, parentId, children) are never patchable.
type ElementPatch struct {
	Tag          *string                     `json:"tag,omitempty"`
	TextContent  *string                     `json:"textContent,omitempty"`
	InnerHTML    *string                     `json:"innerHTML,omitempty"`
	Attributes   map[string]string           `json:"attributes,omitempty"`
	ClassList    []string                    `json:"classList,omitempty"`
	Styles       *Styles                     `json:"styles,omitempty"`
	DataBindings map[string]*cms.BindingRule `json:"dataBindings,omitempty"`
	Animations   []Animation                 `json:"animations,omitempty"`
	Interactions []Interaction               `json:"interactions,omitempty"`
}

// IsEmpty reports whether the patch would change nothing
func (p *ElementPatch) IsEmpty() bool {
	return p.Tag == nil && p.TextContent == nil && p.InnerHTML == nil &&
		p.Attributes == nil && p.ClassList == nil && p.Styles == nil &&
		p.DataBindings == nil && p.Animations == nil && p.Interactions == nil
}

// apply merges the patch into e, copying every value it stores
func (p *ElementPatch) apply(e *Element) {
	src := &Element{
		Attributes:   p.Attributes,
		ClassList:    p.ClassList,
		DataBindings: p.DataBindings,
		Animations:   p.Animations,
		Interactions: p.Interactions,
	}
	if p.Styles != nil {
		src.Styles = *p.Styles
	}
	cp := src.Clone()

	if p.Tag != nil && *p.Tag != "" {
		e.Tag = *p.Tag
	}
	if p.TextContent != nil {
		e.TextContent = *p.TextContent
	}
	if p.InnerHTML != nil {
		e.InnerHTML = *p.InnerHTML
	}
	if p.Attributes != nil {
		e.Attributes = cp.Attributes
	}
	if p.ClassList != nil {
		e.ClassList = cp.ClassList
	}
	if p.Styles != nil {
		e.Styles = cp.Styles
		if e.Styles.Base == nil {
			e.Styles.Base = StyleMap{}
		}
	}
	if p.DataBindings != nil {
		e.DataBindings = cp.DataBindings
	}
	if p.Animations != nil {
		e.Animations = cp.Animations
	}
	if p.Interactions != nil {
		e.Interactions = cp.Interactions
	}
}
