package services

import (
	"fmt"
	"sort"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
)

type ViolationKind string

const (
	ViolationRoot          ViolationKind = "root"
	ViolationDangling      ViolationKind = "dangling_child"
	ViolationDuplicateOwn  ViolationKind = "duplicate_ownership"
	ViolationParentLink    ViolationKind = "parent_mismatch"
	ViolationCycle         ViolationKind = "cycle"
	ViolationUnreachable   ViolationKind = "unreachable"
	ViolationVoidContainer ViolationKind = "void_with_children"
	ViolationIDMismatch    ViolationKind = "id_mismatch"
)

type Violation struct {
	Kind      ViolationKind `json:"kind"`
	ElementID string        `json:"elementId"`
	Detail    string        `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s", v.Kind, v.ElementID, v.Detail)
}

type TreeIntegrityService struct{}

func NewTreeIntegrityService() *TreeIntegrityService {
	return &TreeIntegrityService{}
}

// Check reports every structural violation of a tree. An empty result
// means one root, single ownership, consistent back-references, no cycles
// and every element reachable from the root.
func (s *TreeIntegrityService) Check(tree *canvas.ElementTree) []Violation {
	return s.CheckSnapshot(tree.Root(), tree.Snapshot())
}

// CheckSnapshot runs the same checks over a raw element map
func (s *TreeIntegrityService) CheckSnapshot(rootID string, elements map[string]*canvas.Element) []Violation {
	var out []Violation
	add := func(kind ViolationKind, id, format string, args ...any) {
		out = append(out, Violation{Kind: kind, ElementID: id, Detail: fmt.Sprintf(format, args...)})
	}

	root, ok := elements[rootID]
	switch {
	case !ok:
		add(ViolationRoot, rootID, "root element is missing")
		return out
	case root.ParentID != "":
		add(ViolationRoot, rootID, "root has parent %s", root.ParentID)
	}

	ids := make([]string, 0, len(elements))
	for id := range elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	owner := make(map[string]string, len(elements))
	for _, id := range ids {
		el := elements[id]
		if el.ID != id {
			add(ViolationIDMismatch, id, "indexed under %s but has id %s", id, el.ID)
		}
		if id != rootID && el.ParentID == "" {
			add(ViolationRoot, id, "second parentless element")
		}
		if len(el.Children) > 0 && !el.CanHaveChildren() {
			add(ViolationVoidContainer, id, "%s element has %d children", el.Tag, len(el.Children))
		}
		for _, c := range el.Children {
			child, ok := elements[c]
			if !ok {
				add(ViolationDangling, id, "child %s does not exist", c)
				continue
			}
			if prev, dup := owner[c]; dup {
				add(ViolationDuplicateOwn, c, "owned by %s and %s", prev, id)
				continue
			}
			owner[c] = id
			if child.ParentID != id {
				add(ViolationParentLink, c, "listed under %s but parentId is %s", id, child.ParentID)
			}
		}
	}

	for _, id := range ids {
		if id == rootID {
			continue
		}
		if _, ok := owner[id]; !ok && elements[id].ParentID != "" {
			add(ViolationParentLink, id, "parent %s does not list it", elements[id].ParentID)
		}
	}

	// walk parent chains to find cycles
	for _, id := range ids {
		seen := map[string]bool{}
		cur := id
		for cur != "" {
			if seen[cur] {
				add(ViolationCycle, id, "parent chain loops at %s", cur)
				break
			}
			seen[cur] = true
			el, ok := elements[cur]
			if !ok {
				break
			}
			cur = el.ParentID
		}
	}

	reached := map[string]bool{}
	stack := []string{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			continue
		}
		reached[id] = true
		if el, ok := elements[id]; ok {
			stack = append(stack, el.Children...)
		}
	}
	for _, id := range ids {
		if !reached[id] {
			add(ViolationUnreachable, id, "not reachable from root")
		}
	}
	return out
}
