package canvas

// Breakpoint is a named viewport-width tier
type Breakpoint string

const (
	BreakpointMobile  Breakpoint = "mobile"
	BreakpointTablet  Breakpoint = "tablet"
	BreakpointDesktop Breakpoint = "desktop"
)

// Breakpoints returns every breakpoint ordered from narrowest to widest
func Breakpoints() []Breakpoint {
	return []Breakpoint{BreakpointMobile, BreakpointTablet, BreakpointDesktop}
}

// Valid reports whether the breakpoint is one of the closed set
func (b Breakpoint) Valid() bool {
	return b.Rank() >= 0
}

// Rank is the breakpoint's position in ascending width order, -1 if unknown
func (b Breakpoint) Rank() int {
	switch b {
	case BreakpointMobile:
		return 0
	case BreakpointTablet:
		return 1
	case BreakpointDesktop:
		return 2
	default:
		return -1
	}
}

// Width is the reference viewport width in CSS pixels
func (b Breakpoint) Width() int {
	switch b {
	case BreakpointMobile:
		return 375
	case BreakpointTablet:
		return 768
	case BreakpointDesktop:
		return 1280
	default:
		return 0
	}
}

// InteractionState is a pointer/keyboard state with its own style overlay
type InteractionState string

const (
	StateNone   InteractionState = ""
	StateHover  InteractionState = "hover"
	StateFocus  InteractionState = "focus"
	StateActive InteractionState = "active"
)

// Valid reports whether the state is known; StateNone is valid
func (s InteractionState) Valid() bool {
	switch s {
	case StateNone, StateHover, StateFocus, StateActive:
		return true
	}
	return false
}

// StyleMap maps CSS property names to values. An empty value means unset.
type StyleMap map[string]string

// Clone returns a copy of the map, nil stays nil
func (m StyleMap) Clone() StyleMap {
	if m == nil {
		return nil
	}
	out := make(StyleMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Styles is the layered style object of an element
type Styles struct {
	Base    StyleMap `json:"base"`
	Mobile  StyleMap `json:"mobile,omitempty"`
	Tablet  StyleMap `json:"tablet,omitempty"`
	Desktop StyleMap `json:"desktop,omitempty"`
	Hover   StyleMap `json:"hover,omitempty"`
	Focus   StyleMap `json:"focus,omitempty"`
	Active  StyleMap `json:"active,omitempty"`
}

// BreakpointOverlay returns the overlay for a breakpoint, nil when unset
func (s *Styles) BreakpointOverlay(bp Breakpoint) StyleMap {
	switch bp {
	case BreakpointMobile:
		return s.Mobile
	case BreakpointTablet:
		return s.Tablet
	case BreakpointDesktop:
		return s.Desktop
	default:
		return nil
	}
}

// StateOverlay returns the overlay for an interaction state, nil when unset
func (s *Styles) StateOverlay(state InteractionState) StyleMap {
	switch state {
	case StateHover:
		return s.Hover
	case StateFocus:
		return s.Focus
	case StateActive:
		return s.Active
	default:
		return nil
	}
}

// Clone returns a deep copy
func (s Styles) Clone() Styles {
	return Styles{
		Base:    s.Base.Clone(),
		Mobile:  s.Mobile.Clone(),
		Tablet:  s.Tablet.Clone(),
		Desktop: s.Desktop.Clone(),
		Hover:   s.Hover.Clone(),
		Focus:   s.Focus.Clone(),
		Active:  s.Active.Clone(),
	}
}

// StyleLayer names one layer of Styles: "base", a breakpoint or a state
type StyleLayer string

const LayerBase StyleLayer = "base"

// Valid reports whether the layer names an existing slot in Styles
func (l StyleLayer) Valid() bool {
	if l == LayerBase {
		return true
	}
	if Breakpoint(l).Valid() {
		return true
	}
	st := InteractionState(l)
	return st != StateNone && st.Valid()
}

// Layer returns a pointer to the map slot for the layer so callers can
// allocate it in place. Unknown layers return nil.
func (s *Styles) Layer(l StyleLayer) *StyleMap {
	switch l {
	case LayerBase:
		return &s.Base
	case StyleLayer(BreakpointMobile):
		return &s.Mobile
	case StyleLayer(BreakpointTablet):
		return &s.Tablet
	case StyleLayer(BreakpointDesktop):
		return &s.Desktop
	case StyleLayer(StateHover):
		return &s.Hover
	case StyleLayer(StateFocus):
		return &s.Focus
	case StyleLayer(StateActive):
		return &s.Active
	default:
		return nil
	}
}

// MergeLayer merges changes into one layer. Empty values delete the key.
// Returns false when the layer is unknown or nothing changed.
func (s *Styles) MergeLayer(l StyleLayer, changes StyleMap) bool {
	slot := s.Layer(l)
	if slot == nil {
		return false
	}
	changed := false
	for k, v := range changes {
		if v == "" {
			if _, ok := (*slot)[k]; ok {
				delete(*slot, k)
				changed = true
			}
			continue
		}
		if *slot == nil {
			*slot = make(StyleMap)
		}
		if cur, ok := (*slot)[k]; !ok || cur != v {
			(*slot)[k] = v
			changed = true
		}
	}
	return changed
}
