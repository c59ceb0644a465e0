package services

import (
	"strings"
	"unicode"

	"github.com/spf13/cast"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/cms"
)

// Bindable element properties besides plain attributes
const (
	PropTextContent = "textContent"
	PropInnerHTML   = "innerHTML"
	PropClassList   = "classList"
)

// BindingResolver reads CMS values for element data bindings. Any missing
// collection, field, item or empty value yields the rule's fallback.
type BindingResolver struct{}

func NewBindingResolver() *BindingResolver {
	return &BindingResolver{}
}

// ResolveValue returns the bound value of a rule
func (r *BindingResolver) ResolveValue(rule *cms.BindingRule, collections []*cms.Collection) string {
	if rule == nil {
		return ""
	}
	collection := findCollection(collections, rule.CollectionID)
	if collection == nil {
		return rule.Fallback
	}
	field, ok := collection.FieldByRef(rule.FieldID)
	if !ok {
		return rule.Fallback
	}
	item := r.selectItem(collection, rule)
	if item == nil {
		return rule.Fallback
	}

	raw, ok := item.Data[field.Slug]
	if !ok {
		raw, ok = item.Data[field.ID]
	}
	if !ok || raw == nil {
		return rule.Fallback
	}

	value := stringify(raw)
	if value == "" {
		return rule.Fallback
	}
	value = applyTransforms(value, rule.Transform)
	if value == "" {
		return rule.Fallback
	}
	return value
}

// ApplyBindings returns a copy of el with every bound property written
func (r *BindingResolver) ApplyBindings(el *canvas.Element, collections []*cms.Collection) *canvas.Element {
	out := el.Clone()
	if out == nil || len(out.DataBindings) == 0 {
		return out
	}
	for prop, rule := range out.DataBindings {
		if prop == "" || rule == nil {
			continue
		}
		value := r.ResolveValue(rule, collections)
		switch prop {
		case PropTextContent:
			out.TextContent = value
		case PropInnerHTML:
			out.InnerHTML = value
		case PropClassList:
			out.ClassList = strings.Fields(strings.ReplaceAll(value, ",", " "))
		default:
			if out.Attributes == nil {
				out.Attributes = map[string]string{}
			}
			out.Attributes[prop] = value
		}
	}
	return out
}

func (r *BindingResolver) selectItem(c *cms.Collection, rule *cms.BindingRule) *cms.Item {
	if rule.ItemID != "" {
		item, ok := c.ItemByID(rule.ItemID)
		if !ok {
			return nil
		}
		return item
	}
	for i := range c.Items {
		item := &c.Items[i]
		if !item.Published {
			continue
		}
		if rule.Filter == nil || matchFilter(c, item, rule.Filter) {
			return item
		}
	}
	return nil
}

func findCollection(collections []*cms.Collection, id string) *cms.Collection {
	if id == "" {
		return nil
	}
	for _, c := range collections {
		if c != nil && c.ID == id {
			return c
		}
	}
	return nil
}

func matchFilter(c *cms.Collection, item *cms.Item, f *cms.BindingFilter) bool {
	key := f.Field
	if field, ok := c.FieldByRef(f.Field); ok {
		key = field.Slug
	}
	got, ok := item.Data[key]
	if !ok {
		return f.Operator == cms.FilterNeq
	}

	switch f.Operator {
	case cms.FilterEq, "":
		return stringify(got) == stringify(f.Value)
	case cms.FilterNeq:
		return stringify(got) != stringify(f.Value)
	case cms.FilterContains:
		want := stringify(f.Value)
		if list, err := cast.ToStringSliceE(got); err == nil && isList(got) {
			for _, v := range list {
				if v == want {
					return true
				}
			}
			return false
		}
		return strings.Contains(stringify(got), want)
	case cms.FilterGt, cms.FilterLt:
		cmp, ok := compare(got, f.Value)
		if !ok {
			return false
		}
		if f.Operator == cms.FilterGt {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

// compare orders two CMS values numerically, then as times, then as strings
func compare(a, b any) (int, bool) {
	if x, err := cast.ToFloat64E(a); err == nil {
		if y, err := cast.ToFloat64E(b); err == nil {
			return sign(x - y), true
		}
	}
	if x, err := cast.ToTimeE(a); err == nil {
		if y, err := cast.ToTimeE(b); err == nil {
			return x.Compare(y), true
		}
	}
	return strings.Compare(stringify(a), stringify(b)), true
}

func sign(f float64) int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	}
	return 0
}

func isList(v any) bool {
	switch v.(type) {
	case []any, []string:
		return true
	}
	return false
}

// stringify coerces a CMS value; lists become comma separated
func stringify(v any) string {
	if isList(v) {
		list, err := cast.ToStringSliceE(v)
		if err != nil {
			return ""
		}
		return strings.Join(list, ", ")
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

// applyTransforms runs a "|" separated chain such as "trim|uppercase".
// Unknown transforms leave the value unchanged.
func applyTransforms(value, chain string) string {
	if chain == "" {
		return value
	}
	for _, step := range strings.Split(chain, "|") {
		name, arg, _ := strings.Cut(strings.TrimSpace(step), ":")
		switch name {
		case "uppercase":
			value = strings.ToUpper(value)
		case "lowercase":
			value = strings.ToLower(value)
		case "capitalize":
			value = capitalize(value)
		case "trim":
			value = strings.TrimSpace(value)
		case "truncate":
			n := cast.ToInt(arg)
			if r := []rune(value); n > 0 && len(r) > n {
				value = string(r[:n])
			}
		case "prefix":
			value = arg + value
		case "suffix":
			value = value + arg
		}
	}
	return value
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
