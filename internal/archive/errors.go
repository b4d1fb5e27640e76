package archive

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
	// ErrNoElement means an element text points at an element that does not exist,
	// typically because the element set was deleted and recreated by another process.
	ErrNoElement = errors.New("element does not exist")
)
