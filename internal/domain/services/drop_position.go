package services

import "github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"

// Fractions of the target height that map to before and after
const (
	dropEdgeFraction  = 0.25
	dropSplitFraction = 0.5
)

// DropPositionFor maps a pointer offset inside a target's bounds to a drop
// position. Containers split 25/50/25 into before/inside/after; anything
// else splits at half into before/after.
func DropPositionFor(offsetY, height float64, canNest bool) canvas.DropPosition {
	if height <= 0 {
		return canvas.DropBefore
	}
	ratio := offsetY / height
	if !canNest {
		if ratio < dropSplitFraction {
			return canvas.DropBefore
		}
		return canvas.DropAfter
	}
	switch {
	case ratio < dropEdgeFraction:
		return canvas.DropBefore
	case ratio > 1-dropEdgeFraction:
		return canvas.DropAfter
	default:
		return canvas.DropInside
	}
}
