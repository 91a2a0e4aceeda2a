package emploi

import (
	"errors"
	"strings"
)

var (
	ErrNotFound              = errors.New("emploi not found")
	ErrEtablissementNotFound = errors.New("etablissement not found")
)

// Issue is a single field-level validation failure.
type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError wraps the full list of issues for one request.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+": "+is.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
