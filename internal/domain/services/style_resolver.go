// Package services holds the pure domain services of the canvas engine:
// style cascade, CMS binding resolution, tree integrity and projection.
package services

import (
	"sort"
	"strings"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
)

// StyleResolver flattens layered styles. Cascade is mobile-first: base,
// then each breakpoint up to the active one, then the interaction state.
type StyleResolver struct{}

func NewStyleResolver() *StyleResolver {
	return &StyleResolver{}
}

// Resolve returns the effective style map of an element
func (r *StyleResolver) Resolve(el *canvas.Element, bp canvas.Breakpoint, state canvas.InteractionState) canvas.StyleMap {
	out := canvas.StyleMap{}
	if el == nil {
		return out
	}
	merge(out, el.Styles.Base)

	active := bp.Rank()
	for _, b := range canvas.Breakpoints() {
		if b.Rank() > active {
			break
		}
		merge(out, el.Styles.BreakpointOverlay(b))
	}

	merge(out, el.Styles.StateOverlay(state))
	return out
}

// ResolveAll resolves every element of a snapshot
func (r *StyleResolver) ResolveAll(elements map[string]*canvas.Element, bp canvas.Breakpoint, state canvas.InteractionState) map[string]canvas.StyleMap {
	out := make(map[string]canvas.StyleMap, len(elements))
	for id, el := range elements {
		out[id] = r.Resolve(el, bp, state)
	}
	return out
}

// CSSDeclarations renders a style map as sorted "key: value;" pairs
func (r *StyleResolver) CSSDeclarations(styles canvas.StyleMap) string {
	keys := make([]string, 0, len(styles))
	for k, v := range styles {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(cssProperty(k))
		b.WriteString(": ")
		b.WriteString(styles[k])
		b.WriteByte(';')
	}
	return b.String()
}

// merge copies overlay into dst; empty values never reach the output
func merge(dst, overlay canvas.StyleMap) {
	for k, v := range overlay {
		if v == "" {
			continue
		}
		dst[k] = v
	}
}

// cssProperty turns camelCase keys (fontSize) into CSS names (font-size)
func cssProperty(key string) string {
	if strings.HasPrefix(key, "--") || strings.ToLower(key) == key {
		return key
	}
	var b strings.Builder
	for i, r := range key {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
