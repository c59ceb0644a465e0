package canvas

import "errors"

var (
	ErrElementNotFound = errors.New("element not found")
	ErrRootImmutable   = errors.New("root element cannot be moved, dragged or deleted")
	ErrCycle           = errors.New("element cannot be placed inside itself or its descendants")
	ErrNotContainer    = errors.New("element cannot contain children")
	ErrDuplicateID     = errors.New("element id already exists")
	ErrInvalidPosition = errors.New("invalid drop position")
)
