package canvas

// DropPosition is where a dragged element lands relative to its target
type DropPosition string

const (
	DropNone   DropPosition = ""
	DropBefore DropPosition = "before"
	DropAfter  DropPosition = "after"
	DropInside DropPosition = "inside"
)

// Valid reports whether p is a concrete drop position
func (p DropPosition) Valid() bool {
	return p == DropBefore || p == DropAfter || p == DropInside
}

// DragState is the in-flight drag record
type DragState struct {
	IsDragging       bool         `json:"isDragging"`
	DraggedElementID *string      `json:"draggedElementId"`
	DropTargetID     *string      `json:"dropTargetId"`
	DropPosition     DropPosition `json:"dropPosition"`
}

// Clear resets the drag record to idle
func (d *DragState) Clear() {
	*d = DragState{}
}

// Involves reports whether id is the dragged element or the drop target
func (d *DragState) Involves(id string) bool {
	return (d.DraggedElementID != nil && *d.DraggedElementID == id) ||
		(d.DropTargetID != nil && *d.DropTargetID == id)
}

// Clone returns a copy that shares no pointers with d
func (d DragState) Clone() DragState {
	out := DragState{IsDragging: d.IsDragging, DropPosition: d.DropPosition}
	out.DraggedElementID = CopyID(d.DraggedElementID)
	out.DropTargetID = CopyID(d.DropTargetID)
	return out
}

// SelectionState holds the selected and hovered element ids
type SelectionState struct {
	SelectedElementID *string `json:"selectedElementId"`
	HoveredElementID  *string `json:"hoveredElementId"`
}

// IDPtr returns a pointer to id, or nil for the empty string
func IDPtr(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// IDValue dereferences an optional id
func IDValue(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

// CopyID copies an optional id
func CopyID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
