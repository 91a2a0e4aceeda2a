package affectation

import "errors"

var (
	ErrNotFound       = errors.New("affectation not found")
	ErrTargetNotFound = errors.New("affectation target not found")
)
