package personne

import "errors"

var (
	ErrNotFound = errors.New("personne not found")
	ErrNoFields = errors.New("no valid fields to update")
)
