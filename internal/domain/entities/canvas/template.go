package canvas

// TemplateProps are the default content props a template seeds
type TemplateProps struct {
	TextContent string            `json:"textContent,omitempty"`
	InnerHTML   string            `json:"innerHTML,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	ClassList   []string          `json:"classList,omitempty"`
}

// ElementTemplate is opaque seed data for new elements
type ElementTemplate struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Category      string            `json:"category,omitempty"`
	Tag           string            `json:"tag"`
	DefaultProps  TemplateProps     `json:"defaultProps"`
	DefaultStyles Styles            `json:"defaultStyles"`
	Children      []ElementTemplate `json:"children,omitempty"`
}

// ElementData converts the template's own node into creation data
func (t *ElementTemplate) ElementData() ElementData {
	return ElementData{
		Tag:         t.Tag,
		TextContent: t.DefaultProps.TextContent,
		InnerHTML:   t.DefaultProps.InnerHTML,
		Attributes:  t.DefaultProps.Attributes,
		ClassList:   t.DefaultProps.ClassList,
		Styles:      t.DefaultStyles,
	}
}
