package cms

// FilterOperator compares an item field against a filter value
type FilterOperator string

const (
	FilterEq       FilterOperator = "eq"
	FilterNeq      FilterOperator = "neq"
	FilterContains FilterOperator = "contains"
	FilterGt       FilterOperator = "gt"
	FilterLt       FilterOperator = "lt"
)

// BindingFilter narrows the items a binding may read from
type BindingFilter struct {
	Field    string         `json:"field"`
	Operator FilterOperator `json:"operator"`
	Value    any            `json:"value"`
}

// BindingRule links an element property to a CMS field value
type BindingRule struct {
	CollectionID string         `json:"collectionId"`
	FieldID      string         `json:"fieldId"`
	ItemID       string         `json:"itemId,omitempty"`
	Filter       *BindingFilter `json:"filter,omitempty"`
	Transform    string         `json:"transform,omitempty"`
	Fallback     string         `json:"fallback"`
}

// Clone returns a deep copy of the rule
func (r *BindingRule) Clone() *BindingRule {
	if r == nil {
		return nil
	}
	out := *r
	if r.Filter != nil {
		f := *r.Filter
		out.Filter = &f
	}
	return &out
}
