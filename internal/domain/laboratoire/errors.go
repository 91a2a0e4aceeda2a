package laboratoire

import "errors"

var (
	ErrNotFound          = errors.New("laboratoire not found")
	ErrStructureNotFound = errors.New("structure not found")
	ErrTutelleNotFound   = errors.New("tutelle not found")
	ErrNoFields          = errors.New("no updatable fields supplied")

	ErrParentNotFound = errors.New("parent structure does not exist")
	ErrParentOtherLab = errors.New("parent structure belongs to another laboratory")
	ErrParentCycle    = errors.New("parent chain would form a cycle")
)
