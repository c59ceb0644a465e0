// Package cms defines the CMS collection entities consumed by element data bindings.
package cms

// FieldType is the typed kind of a collection field
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldTextarea    FieldType = "textarea"
	FieldRichText    FieldType = "richtext"
	FieldImage       FieldType = "image"
	FieldNumber      FieldType = "number"
	FieldDate        FieldType = "date"
	FieldBoolean     FieldType = "boolean"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
)

// Valid reports whether the field type is one of the known kinds
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldTextarea, FieldRichText, FieldImage, FieldNumber,
		FieldDate, FieldBoolean, FieldSelect, FieldMultiSelect:
		return true
	}
	return false
}

// HasOptions reports whether values are drawn from an option set
func (t FieldType) HasOptions() bool {
	return t == FieldSelect || t == FieldMultiSelect
}

type Field struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

type Item struct {
	ID           string         `json:"id"`
	CollectionID string         `json:"collectionId"`
	Data         map[string]any `json:"data"`
	Published    bool           `json:"published"`
}

type Collection struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Slug   string  `json:"slug"`
	Fields []Field `json:"fields"`
	Items  []Item  `json:"items"`
}

// FieldByRef finds a field by id, falling back to slug
func (c *Collection) FieldByRef(ref string) (*Field, bool) {
	if c == nil || ref == "" {
		return nil, false
	}
	for i := range c.Fields {
		if c.Fields[i].ID == ref {
			return &c.Fields[i], true
		}
	}
	for i := range c.Fields {
		if c.Fields[i].Slug == ref {
			return &c.Fields[i], true
		}
	}
	return nil, false
}

// ItemByID finds an item by id
func (c *Collection) ItemByID(id string) (*Item, bool) {
	if c == nil || id == "" {
		return nil, false
	}
	for i := range c.Items {
		if c.Items[i].ID == id {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the collection
func (c *Collection) Clone() *Collection {
	if c == nil {
		return nil
	}
	out := &Collection{ID: c.ID, Name: c.Name, Slug: c.Slug}
	out.Fields = make([]Field, len(c.Fields))
	for i, f := range c.Fields {
		f.Options = append([]string(nil), f.Options...)
		out.Fields[i] = f
	}
	out.Items = make([]Item, len(c.Items))
	for i, it := range c.Items {
		data := make(map[string]any, len(it.Data))
		for k, v := range it.Data {
			data[k] = v
		}
		it.Data = data
		out.Items[i] = it
	}
	return out
}

// Validate checks the collection's structural rules: unique field slugs,
// known field types, and option sets for select kinds.
func (c *Collection) Validate() []string {
	var problems []string
	if c.ID == "" {
		problems = append(problems, "collection id is required")
	}
	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f.Slug == "" {
			problems = append(problems, "field "+f.ID+" has no slug")
			continue
		}
		if seen[f.Slug] {
			problems = append(problems, "duplicate field slug "+f.Slug)
		}
		seen[f.Slug] = true
		if !f.Type.Valid() {
			problems = append(problems, "field "+f.Slug+" has unknown type "+string(f.Type))
		}
		if f.Type.HasOptions() && len(f.Options) == 0 {
			problems = append(problems, "field "+f.Slug+" needs options")
		}
	}
	return problems
}
